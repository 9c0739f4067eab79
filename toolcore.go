// Package toolcore assembles the tool-execution core of an autonomous coding
// agent: a schema-validated tool registry, a policy hook pipeline, an
// approval gate, shell execution with reliable process teardown, and the
// scheduler that drives batches of tool calls for a reasoning loop.
package toolcore

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/harun/toolcore/internal/config"
	"github.com/harun/toolcore/pkg/approval"
	"github.com/harun/toolcore/pkg/coretools"
	"github.com/harun/toolcore/pkg/history"
	"github.com/harun/toolcore/pkg/hooks"
	"github.com/harun/toolcore/pkg/proc"
	"github.com/harun/toolcore/pkg/scheduler"
	"github.com/harun/toolcore/pkg/shell"
	"github.com/harun/toolcore/pkg/tool"
)

// RuntimeOptions configures a Runtime.
type RuntimeOptions struct {
	// Config tunes the core; nil uses defaults.
	Config *config.Config
	Logger zerolog.Logger
	// ApprovalHandler resolves confirmation requests. Required in "ask"
	// mode; in "allowlist" mode it handles whatever the allowlist cannot
	// approve.
	ApprovalHandler approval.Handler
	// OnUpdate observes call state changes for UIs and transcripts.
	OnUpdate func(scheduler.Snapshot)
}

// Runtime is a fully wired execution core.
type Runtime struct {
	Config    *config.Config
	Registry  *tool.Registry
	Scheduler *scheduler.Scheduler
	Shell     *shell.Service
	Procs     *proc.Manager
	Hooks     *hooks.Manager
	History   *history.Store

	hookWatcher *hooks.Watcher
	logger      zerolog.Logger
}

// NewRuntime wires the execution core from configuration.
func NewRuntime(opts RuntimeOptions) (*Runtime, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	procs := proc.NewManager(opts.Logger)
	procs.SetGracePeriod(cfg.Shell.ExitGracePeriod)
	shellSvc := shell.NewService(opts.Logger, procs)

	registry := tool.NewRegistry()
	if cfg.WorkspaceRoot != "" {
		err := coretools.Register(registry, coretools.Options{
			WorkspaceRoot: cfg.WorkspaceRoot,
			Shell:         shellSvc,
		})
		if err != nil {
			return nil, err
		}
	}

	rt := &Runtime{
		Config:   cfg,
		Registry: registry,
		Shell:    shellSvc,
		Procs:    procs,
		logger:   opts.Logger,
	}

	hookSystem, err := rt.wireHooks(cfg, opts.Logger)
	if err != nil {
		return nil, err
	}

	gate, err := wireApproval(cfg, opts.ApprovalHandler)
	if err != nil {
		return nil, err
	}

	var recorder scheduler.Recorder
	if cfg.History.Enabled {
		store, err := history.NewStore(history.Config{
			DBPath: cfg.History.DBPath,
			Logger: opts.Logger,
		})
		if err != nil {
			return nil, err
		}
		rt.History = store
		recorder = store
	}

	shellCfg := &tool.ShellConfig{
		WorkingDir:     cfg.WorkspaceRoot,
		UsePty:         cfg.Shell.UsePty,
		TerminalCols:   cfg.Shell.TerminalCols,
		TerminalRows:   cfg.Shell.TerminalRows,
		MaxOutputBytes: cfg.Shell.MaxOutputBytes,
	}

	sched, err := scheduler.New(scheduler.Options{
		Registry:              registry,
		Hooks:                 hookSystem,
		Approval:              gate,
		Recorder:              recorder,
		Logger:                opts.Logger,
		MaxConcurrentReadOnly: cfg.Scheduler.MaxConcurrentReadOnly,
		Shell:                 shellCfg,
		OnUpdate:              opts.OnUpdate,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Scheduler = sched
	return rt, nil
}

func (rt *Runtime) wireHooks(cfg *config.Config, logger zerolog.Logger) (hooks.System, error) {
	if !cfg.Hooks.Enabled {
		return nil, nil
	}

	var defs []hooks.Hook
	if cfg.Hooks.File != "" {
		loaded, err := hooks.LoadHooksFile(cfg.Hooks.File)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load hooks file: %w", err)
		}
		defs = loaded
	}

	manager, err := hooks.NewManager(hooks.Config{
		Enabled: true,
		Hooks:   defs,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	rt.Hooks = manager

	if cfg.Hooks.Watch && cfg.Hooks.File != "" {
		watcher, err := hooks.NewWatcher(logger, manager, cfg.Hooks.File)
		if err != nil {
			logger.Warn().Err(err).Msg("Hooks file watch unavailable")
		} else {
			rt.hookWatcher = watcher
		}
	}
	return manager, nil
}

func wireApproval(cfg *config.Config, handler approval.Handler) (*approval.Gate, error) {
	var resolved approval.Handler
	switch cfg.Approval.Mode {
	case "auto":
		resolved = approval.AutoApproveHandler{}
	case "allowlist":
		resolved = &approval.AllowlistHandler{
			Commands: cfg.Approval.AllowedCommands,
			Fallback: handler,
		}
	default: // ask
		if handler == nil {
			return nil, fmt.Errorf("approval mode %q requires an approval handler", cfg.Approval.Mode)
		}
		resolved = handler
	}

	gate := approval.NewGate(resolved)
	gate.SetDefaultTimeout(cfg.Approval.Timeout)
	return gate, nil
}

// Schedule runs a batch of tool call requests through the scheduler.
func (rt *Runtime) Schedule(ctx context.Context, requests []tool.CallRequest) ([]tool.CallResponse, *scheduler.BatchStop) {
	return rt.Scheduler.Schedule(ctx, requests)
}

// Close releases the runtime's background resources.
func (rt *Runtime) Close() error {
	if rt.hookWatcher != nil {
		if err := rt.hookWatcher.Stop(); err != nil {
			rt.logger.Warn().Err(err).Msg("Failed to stop hooks watcher")
		}
	}
	if rt.History != nil {
		return rt.History.Close()
	}
	return nil
}
