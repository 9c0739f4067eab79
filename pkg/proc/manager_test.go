package proc

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentSignal struct {
	pid      int
	graceful bool
	group    bool
}

// signalRecorder replaces the platform primitives so tests observe the exact
// signal sequence without touching real processes.
type signalRecorder struct {
	sent     []sentSignal
	groupErr error
	pidErr   error
}

func (r *signalRecorder) install(m *Manager) {
	m.signalGroup = func(pid int, graceful bool) error {
		if r.groupErr != nil {
			return r.groupErr
		}
		r.sent = append(r.sent, sentSignal{pid: pid, graceful: graceful, group: true})
		return nil
	}
	m.signalPid = func(pid int, graceful bool) error {
		if r.pidErr != nil {
			return r.pidErr
		}
		r.sent = append(r.sent, sentSignal{pid: pid, graceful: graceful, group: false})
		return nil
	}
}

type fakePty struct {
	killed atomic.Int32
}

func (p *fakePty) Kill() error {
	p.killed.Add(1)
	return nil
}

func newTestManager(t *testing.T) (*Manager, *signalRecorder) {
	t.Helper()
	m := NewManager(zerolog.Nop())
	rec := &signalRecorder{}
	rec.install(m)
	return m, rec
}

func TestKillProcessGroupWithoutEscalationIsForcefulImmediately(t *testing.T) {
	m, rec := newTestManager(t)

	m.KillProcessGroup(1234, KillOptions{})

	require.Len(t, rec.sent, 1)
	assert.Equal(t, sentSignal{pid: 1234, graceful: false, group: true}, rec.sent[0])
}

func TestKillProcessGroupEscalatesGracefulThenForceful(t *testing.T) {
	m, rec := newTestManager(t)

	m.KillProcessGroup(1234, KillOptions{
		Escalate:    true,
		GracePeriod: 20 * time.Millisecond,
		IsExited:    func() bool { return false },
	})

	require.Len(t, rec.sent, 2)
	assert.True(t, rec.sent[0].graceful)
	assert.False(t, rec.sent[1].graceful)
}

func TestKillProcessGroupSkipsForcefulWhenProcessExitsInGrace(t *testing.T) {
	m, rec := newTestManager(t)

	var checks atomic.Int32
	m.KillProcessGroup(1234, KillOptions{
		Escalate:    true,
		GracePeriod: 500 * time.Millisecond,
		IsExited: func() bool {
			// Exits after the graceful signal has had a moment to land.
			return checks.Add(1) > 1
		},
	})

	require.Len(t, rec.sent, 1)
	assert.True(t, rec.sent[0].graceful)
}

func TestKillProcessGroupFallsBackToLeaderPidWhenGroupGone(t *testing.T) {
	m, rec := newTestManager(t)
	rec.groupErr = errors.New("no such process group")

	m.KillProcessGroup(1234, KillOptions{})

	require.Len(t, rec.sent, 1)
	assert.False(t, rec.sent[0].group)
	assert.Equal(t, 1234, rec.sent[0].pid)
}

func TestKillProcessGroupFallsBackToPtyWhenSignalsFail(t *testing.T) {
	m, rec := newTestManager(t)
	rec.groupErr = errors.New("no such process group")
	rec.pidErr = errors.New("no such process")

	pty := &fakePty{}
	m.KillProcessGroup(1234, KillOptions{Pty: pty})

	assert.Empty(t, rec.sent)
	assert.Equal(t, int32(1), pty.killed.Load())
}

func TestKillProcessGroupIgnoresNonPositivePid(t *testing.T) {
	m, rec := newTestManager(t)

	m.KillProcessGroup(0, KillOptions{})
	m.KillProcessGroup(-5, KillOptions{})

	assert.Empty(t, rec.sent)
}

func TestSetGracePeriodIgnoresNonPositiveValues(t *testing.T) {
	m := NewManager(zerolog.Nop())
	m.SetGracePeriod(-time.Second)
	assert.Equal(t, DefaultGracePeriod, m.gracePeriod)

	m.SetGracePeriod(time.Second)
	assert.Equal(t, time.Second, m.gracePeriod)
}
