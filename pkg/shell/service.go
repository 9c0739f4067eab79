package shell

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/harun/toolcore/pkg/proc"
)

// Options configures one execution.
type Options struct {
	WorkingDir     string
	Env            map[string]string
	UsePty         bool
	Cols           int
	Rows           int
	MaxOutputBytes int
	GracePeriod    time.Duration
}

// Outcome is the final result of an execution: the fully buffered output and
// the exit status. A spawn failure is reported as a synthetic non-zero exit
// with the error text in Output; Execute never fails ahead of the result.
type Outcome struct {
	Output    string
	ExitCode  int
	Signal    string
	Truncated bool
	Cancelled bool
}

// Handle is a running execution: its pid and its pending result.
type Handle struct {
	pid    int
	result chan Outcome
	exited atomic.Bool
}

// Pid returns the leader pid, or 0 if the command never spawned.
func (h *Handle) Pid() int { return h.pid }

// Result delivers the Outcome exactly once when the command completes.
func (h *Handle) Result() <-chan Outcome { return h.result }

// Service executes command lines through a shell, in pipe or pty mode.
type Service struct {
	logger zerolog.Logger
	procs  *proc.Manager

	mu       sync.Mutex
	sessions map[int]*ptySession
}

// NewService creates a shell execution service backed by the given process
// lifecycle manager.
func NewService(logger zerolog.Logger, procs *proc.Manager) *Service {
	return &Service{
		logger:   logger.With().Str("component", "shell").Logger(),
		procs:    procs,
		sessions: make(map[int]*ptySession),
	}
}

// Execute starts command under /bin/sh -c and returns immediately with a
// Handle. Output chunks stream to onOutput as they arrive; the buffered copy
// is capped at opts.MaxOutputBytes with a truncation marker. Cancelling ctx
// requests group termination with graceful escalation.
func (s *Service) Execute(ctx context.Context, command string, onOutput func(string), opts Options) *Handle {
	handle := &Handle{result: make(chan Outcome, 1)}
	buffer := newCappedBuffer(opts.MaxOutputBytes)

	cmd := shellCommand(command)
	if opts.WorkingDir != "" {
		cmd.Dir = opts.WorkingDir
	}
	cmd.Env = buildEnv(opts.Env)

	var session *ptySession
	var readers []io.Reader

	if opts.UsePty {
		var err error
		session, err = startPty(cmd, opts.Cols, opts.Rows)
		if err != nil {
			s.logger.Debug().Err(err).Msg("Pty unavailable, falling back to pipes")
			session = nil
		}
	}

	if session != nil {
		readers = []io.Reader{session.Reader()}
	} else {
		// Own process group so the whole command tree can be killed at once.
		cmd.SysProcAttr = proc.GroupAttr()
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			handle.result <- spawnFailure(err)
			return handle
		}
		stderr, err := cmd.StderrPipe()
		if err != nil {
			handle.result <- spawnFailure(err)
			return handle
		}
		readers = []io.Reader{stdout, stderr}

		if err := cmd.Start(); err != nil {
			handle.result <- spawnFailure(err)
			return handle
		}
	}

	handle.pid = cmd.Process.Pid
	if session != nil {
		s.registerSession(handle.pid, session)
	}

	s.logger.Debug().
		Int("pid", handle.pid).
		Bool("pty", session != nil).
		Str("command", command).
		Msg("Command started")

	var readWg sync.WaitGroup
	for _, r := range readers {
		readWg.Add(1)
		go func(r io.Reader) {
			defer readWg.Done()
			streamOutput(r, buffer, onOutput)
		}(r)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		readWg.Wait()
		err := cmd.Wait()
		handle.exited.Store(true)

		if session != nil {
			s.unregisterSession(handle.pid)
			session.Close()
		}

		outcome := Outcome{
			Output:    buffer.String(),
			Truncated: buffer.Truncated(),
			Cancelled: ctx.Err() != nil,
		}
		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				outcome.ExitCode = exitErr.ExitCode()
				outcome.Signal = termSignal(exitErr)
			} else {
				outcome.ExitCode = -1
			}
		}

		s.logger.Debug().
			Int("pid", handle.pid).
			Int("exit_code", outcome.ExitCode).
			Bool("cancelled", outcome.Cancelled).
			Msg("Command completed")

		handle.result <- outcome
	}()

	go func() {
		select {
		case <-ctx.Done():
			s.procs.KillProcessGroup(handle.pid, proc.KillOptions{
				Escalate:    true,
				GracePeriod: opts.GracePeriod,
				IsExited:    handle.exited.Load,
				Pty:         ptyHandleOrNil(session),
			})
		case <-done:
		}
	}()

	return handle
}

// ResizePty adjusts the terminal size of a pty-backed execution. It is a
// no-op for pipe-backed pids.
func (s *Service) ResizePty(pid, cols, rows int) {
	s.mu.Lock()
	session := s.sessions[pid]
	s.mu.Unlock()
	if session == nil {
		return
	}
	if err := session.Resize(cols, rows); err != nil {
		s.logger.Debug().Int("pid", pid).Err(err).Msg("Pty resize failed")
	}
}

func (s *Service) registerSession(pid int, session *ptySession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[pid] = session
}

func (s *Service) unregisterSession(pid int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, pid)
}

func spawnFailure(err error) Outcome {
	return Outcome{
		Output:   fmt.Sprintf("failed to start command: %v", err),
		ExitCode: 127,
	}
}

// streamOutput copies r into the capped buffer, forwarding each chunk to
// onOutput as it arrives.
func streamOutput(r io.Reader, buffer *cappedBuffer, onOutput func(string)) {
	chunk := make([]byte, 4096)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buffer.Write(chunk[:n])
			if onOutput != nil {
				onOutput(string(chunk[:n]))
			}
		}
		if err != nil {
			return
		}
	}
}

func buildEnv(extra map[string]string) []string {
	env := append([]string{}, os.Environ()...)
	for key, value := range extra {
		env = append(env, key+"="+value)
	}
	return env
}

func ptyHandleOrNil(session *ptySession) proc.PtyHandle {
	if session == nil {
		return nil
	}
	return session
}
