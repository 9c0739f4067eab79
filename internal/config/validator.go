package config

import "fmt"

// Validator validates configuration values.
type Validator struct{}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks the whole configuration.
func (v *Validator) Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := v.ValidateScheduler(cfg.Scheduler); err != nil {
		return err
	}
	if err := v.ValidateShell(cfg.Shell); err != nil {
		return err
	}
	if err := v.ValidateApproval(cfg.Approval); err != nil {
		return err
	}
	if err := v.ValidateLogging(cfg.Logging); err != nil {
		return err
	}
	return nil
}

// ValidateScheduler checks scheduler limits.
func (v *Validator) ValidateScheduler(cfg SchedulerConfig) error {
	if cfg.MaxConcurrentReadOnly < 1 {
		return fmt.Errorf("scheduler max_concurrent_read_only must be >= 1")
	}
	return nil
}

// ValidateShell checks shell execution settings.
func (v *Validator) ValidateShell(cfg ShellConfig) error {
	if cfg.MaxOutputBytes < 0 {
		return fmt.Errorf("shell max_output_bytes must be >= 0")
	}
	if cfg.ExitGracePeriod < 0 {
		return fmt.Errorf("shell exit_grace_period must be >= 0")
	}
	if cfg.UsePty && (cfg.TerminalCols <= 0 || cfg.TerminalRows <= 0) {
		return fmt.Errorf("shell terminal dimensions must be positive when use_pty is set")
	}
	return nil
}

// ValidateApproval checks the approval mode.
func (v *Validator) ValidateApproval(cfg ApprovalConfig) error {
	switch cfg.Mode {
	case "auto", "allowlist", "ask":
	default:
		return fmt.Errorf("approval mode must be auto, allowlist, or ask (got %q)", cfg.Mode)
	}
	if cfg.Mode == "allowlist" && len(cfg.AllowedCommands) == 0 {
		return fmt.Errorf("approval allowlist mode requires allowed_commands")
	}
	if cfg.Timeout < 0 {
		return fmt.Errorf("approval timeout must be >= 0")
	}
	return nil
}

// ValidateLogging checks log settings.
func (v *Validator) ValidateLogging(cfg LoggingConfig) error {
	switch cfg.Level {
	case "", "trace", "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("invalid log level %q", cfg.Level)
	}
}
