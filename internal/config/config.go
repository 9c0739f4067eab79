package config

import "time"

// Config is the toolcore configuration consumed by a host application when
// wiring the execution core.
type Config struct {
	// Scheduler controls batch concurrency.
	Scheduler SchedulerConfig `json:"scheduler" mapstructure:"scheduler"`

	// Shell controls subprocess execution.
	Shell ShellConfig `json:"shell" mapstructure:"shell"`

	// Hooks controls the policy hook pipeline.
	Hooks HooksConfig `json:"hooks" mapstructure:"hooks"`

	// Approval controls the confirmation gate.
	Approval ApprovalConfig `json:"approval" mapstructure:"approval"`

	// History controls the tool call audit store.
	History HistoryConfig `json:"history" mapstructure:"history"`

	// Logging configuration.
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// WorkspaceRoot is the directory tools are confined to.
	WorkspaceRoot string `json:"workspace_root" mapstructure:"workspace_root"`

	// DataDir holds the history database and default file paths.
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// SchedulerConfig controls how calls within a batch run.
type SchedulerConfig struct {
	// MaxConcurrentReadOnly caps concurrent read-only calls; 1 makes
	// batches fully sequential.
	MaxConcurrentReadOnly int `json:"max_concurrent_read_only" mapstructure:"max_concurrent_read_only"`
}

// ShellConfig controls subprocess execution.
type ShellConfig struct {
	UsePty          bool          `json:"use_pty" mapstructure:"use_pty"`
	TerminalCols    int           `json:"terminal_cols" mapstructure:"terminal_cols"`
	TerminalRows    int           `json:"terminal_rows" mapstructure:"terminal_rows"`
	MaxOutputBytes  int           `json:"max_output_bytes" mapstructure:"max_output_bytes"`
	ExitGracePeriod time.Duration `json:"exit_grace_period" mapstructure:"exit_grace_period"`
}

// HooksConfig controls the policy hook pipeline.
type HooksConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	// File is a JSON file holding hook definitions; changes are picked up
	// without restart.
	File string `json:"file" mapstructure:"file"`
	// Watch enables hot reload of the hooks file.
	Watch bool `json:"watch" mapstructure:"watch"`
}

// ApprovalConfig controls the confirmation gate.
type ApprovalConfig struct {
	// Mode is one of "auto", "allowlist", or "ask".
	Mode string `json:"mode" mapstructure:"mode"`
	// AllowedCommands are root commands approved without asking in
	// allowlist mode.
	AllowedCommands []string      `json:"allowed_commands" mapstructure:"allowed_commands"`
	Timeout         time.Duration `json:"timeout" mapstructure:"timeout"`
}

// HistoryConfig controls the audit store.
type HistoryConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	DBPath  string `json:"db_path" mapstructure:"db_path"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Console   bool   `json:"console" mapstructure:"console"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Scheduler: SchedulerConfig{
			MaxConcurrentReadOnly: 4,
		},
		Shell: ShellConfig{
			MaxOutputBytes:  200000,
			ExitGracePeriod: 3 * time.Second,
			TerminalCols:    80,
			TerminalRows:    24,
		},
		Approval: ApprovalConfig{
			Mode:    "ask",
			Timeout: 60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Console:   true,
			Pretty:    true,
			Redaction: true,
		},
	}
}
