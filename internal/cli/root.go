package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harun/toolcore/internal/config"
	"github.com/harun/toolcore/internal/logger"
)

const version = "0.1.0"

var (
	cfgFile      string
	logLevel     string
	workspaceDir string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "toolcore",
	Short: "Toolcore - tool execution core for coding agents",
	Long: `Toolcore schedules and executes agent tool calls: schema validation,
policy hooks, human approval, and shell execution with reliable process
teardown. This CLI drives single calls and inspects the call history.`,
	Version: version,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.toolcore/toolcore.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&workspaceDir, "workspace", "", "workspace root (default is the current directory)")

	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)
}

// loadConfig loads configuration and applies command line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		return nil, err
	}

	if workspaceDir != "" {
		cfg.WorkspaceRoot = workspaceDir
	}
	if cfg.WorkspaceRoot == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine workspace root: %w", err)
		}
		cfg.WorkspaceRoot = cwd
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the process logger from config.
func newLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   cfg.Logging.Console,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
	})
}

// GetRootCmd returns the root command for testing
func GetRootCmd() *cobra.Command {
	return rootCmd
}
