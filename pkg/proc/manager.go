package proc

import (
	"time"

	"github.com/rs/zerolog"
)

// DefaultGracePeriod is how long a process group gets to exit after the
// graceful signal before the forceful one is sent.
const DefaultGracePeriod = 3 * time.Second

// PtyHandle is the kill surface of a pseudo-terminal backed process. When a
// platform's pty implementation owns the child, its own kill is the most
// reliable teardown path.
type PtyHandle interface {
	Kill() error
}

// KillOptions tunes a single KillProcessGroup call.
type KillOptions struct {
	// Escalate sends the graceful signal first, waits the grace period,
	// and only then sends the forceful signal. Without it the forceful
	// signal is sent immediately.
	Escalate bool
	// GracePeriod overrides the manager default for this call.
	GracePeriod time.Duration
	// IsExited reports whether the process already exited. It is re-checked
	// immediately before the forceful signal so a process that exited during
	// the grace period is never signalled again.
	IsExited func() bool
	// Pty is the pseudo-terminal handle backing the process, if any.
	Pty PtyHandle
}

// Manager terminates processes and process groups. Teardown failures are
// logged and swallowed: cleanup must never fail the tool call it is cleaning
// up after.
type Manager struct {
	logger      zerolog.Logger
	gracePeriod time.Duration

	// signalGroup and signalPid are the platform signalling primitives,
	// replaceable in tests.
	signalGroup func(pid int, graceful bool) error
	signalPid   func(pid int, graceful bool) error
}

// NewManager creates a process lifecycle manager.
func NewManager(logger zerolog.Logger) *Manager {
	m := &Manager{
		logger:      logger.With().Str("component", "proc").Logger(),
		gracePeriod: DefaultGracePeriod,
		signalGroup: platformSignalGroup,
		signalPid:   platformSignalPid,
	}
	return m
}

// SetGracePeriod overrides the default escalation grace period.
func (m *Manager) SetGracePeriod(d time.Duration) {
	if d > 0 {
		m.gracePeriod = d
	}
}

// KillProcessGroup terminates the process group led by pid. With
// opts.Escalate it sends the graceful signal, waits the grace period while
// watching opts.IsExited, and sends the forceful signal only if the process
// is still alive. It is idempotent against already-dead processes.
func (m *Manager) KillProcessGroup(pid int, opts KillOptions) {
	if pid <= 0 {
		return
	}

	grace := opts.GracePeriod
	if grace <= 0 {
		grace = m.gracePeriod
	}

	if opts.Escalate {
		m.signal(pid, opts.Pty, true)
		if m.waitExited(opts.IsExited, grace) {
			m.logger.Debug().Int("pid", pid).Msg("Process exited during grace period")
			return
		}
	}

	m.signal(pid, opts.Pty, false)
}

// signal delivers one signal through the fallback chain: process group
// first, leader pid if the group is gone, pty handle last.
func (m *Manager) signal(pid int, pty PtyHandle, graceful bool) {
	if err := m.signalGroup(pid, graceful); err == nil {
		return
	}
	if err := m.signalPid(pid, graceful); err == nil {
		m.logger.Debug().Int("pid", pid).Msg("Process group gone, signalled leader directly")
		return
	}
	if pty != nil {
		if err := pty.Kill(); err != nil {
			m.logger.Debug().Int("pid", pid).Err(err).Msg("Pty kill failed")
		}
		return
	}
	m.logger.Debug().Int("pid", pid).Bool("graceful", graceful).Msg("Process already gone")
}

// waitExited waits up to grace for isExited to become true. A nil predicate
// waits the full grace period.
func (m *Manager) waitExited(isExited func() bool, grace time.Duration) bool {
	deadline := time.Now().Add(grace)
	for {
		if isExited != nil && isExited() {
			return true
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return isExited != nil && isExited()
		}
		step := 50 * time.Millisecond
		if remaining < step {
			step = remaining
		}
		time.Sleep(step)
	}
}
