package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 4, cfg.Scheduler.MaxConcurrentReadOnly)
	assert.Equal(t, 200000, cfg.Shell.MaxOutputBytes)
	assert.Equal(t, 3*time.Second, cfg.Shell.ExitGracePeriod)
	assert.Equal(t, "ask", cfg.Approval.Mode)
	assert.Equal(t, 60*time.Second, cfg.Approval.Timeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Redaction)
}

func TestDefaultConfigIsValid(t *testing.T) {
	assert.NoError(t, NewValidator().Validate(DefaultConfig()))
}

func TestLoaderMissingFileYieldsDefaults(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "absent.json"))

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Scheduler.MaxConcurrentReadOnly)
	assert.NotEmpty(t, cfg.History.DBPath)
	assert.NotEmpty(t, cfg.Hooks.File)
}

func TestLoaderReadsFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toolcore.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"scheduler": {"max_concurrent_read_only": 8},
		"approval": {"mode": "auto"},
		"workspace_root": "/srv/project"
	}`), 0o644))

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Scheduler.MaxConcurrentReadOnly)
	assert.Equal(t, "auto", cfg.Approval.Mode)
	assert.Equal(t, "/srv/project", cfg.WorkspaceRoot)
	// Untouched sections keep their defaults.
	assert.Equal(t, 200000, cfg.Shell.MaxOutputBytes)
}

func TestLoaderRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toolcore.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewLoader(path).Load()
	require.Error(t, err)
}

func TestLoaderAppliesPathDefaultsFromDataDir(t *testing.T) {
	dataDir := t.TempDir()
	path := filepath.Join(t.TempDir(), "toolcore.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"data_dir": "`+dataDir+`"}`), 0o644))

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dataDir, "history.db"), cfg.History.DBPath)
	assert.Equal(t, filepath.Join(dataDir, "hooks.json"), cfg.Hooks.File)
	assert.Equal(t, filepath.Join(dataDir, "toolcore.log"), cfg.Logging.File)
}

func TestValidateScheduler(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.ValidateScheduler(SchedulerConfig{MaxConcurrentReadOnly: 1}))
	assert.Error(t, v.ValidateScheduler(SchedulerConfig{MaxConcurrentReadOnly: 0}))
}

func TestValidateShell(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.ValidateShell(ShellConfig{MaxOutputBytes: 1000}))
	assert.Error(t, v.ValidateShell(ShellConfig{MaxOutputBytes: -1}))
	assert.Error(t, v.ValidateShell(ShellConfig{ExitGracePeriod: -time.Second}))
	assert.Error(t, v.ValidateShell(ShellConfig{UsePty: true}))
	assert.NoError(t, v.ValidateShell(ShellConfig{UsePty: true, TerminalCols: 80, TerminalRows: 24}))
}

func TestValidateApproval(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.ValidateApproval(ApprovalConfig{Mode: "auto"}))
	assert.NoError(t, v.ValidateApproval(ApprovalConfig{Mode: "ask"}))
	assert.NoError(t, v.ValidateApproval(ApprovalConfig{Mode: "allowlist", AllowedCommands: []string{"git"}}))
	assert.Error(t, v.ValidateApproval(ApprovalConfig{Mode: "allowlist"}))
	assert.Error(t, v.ValidateApproval(ApprovalConfig{Mode: "yolo"}))
	assert.Error(t, v.ValidateApproval(ApprovalConfig{Mode: "auto", Timeout: -time.Second}))
}

func TestValidateLogging(t *testing.T) {
	v := NewValidator()
	for _, level := range []string{"", "trace", "debug", "info", "warn", "error"} {
		assert.NoError(t, v.ValidateLogging(LoggingConfig{Level: level}))
	}
	assert.Error(t, v.ValidateLogging(LoggingConfig{Level: "verbose"}))
}
