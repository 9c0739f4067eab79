//go:build !windows

package shell

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/toolcore/pkg/proc"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(zerolog.Nop(), proc.NewManager(zerolog.Nop()))
}

func waitOutcome(t *testing.T, handle *Handle) Outcome {
	t.Helper()
	select {
	case outcome := <-handle.Result():
		return outcome
	case <-time.After(10 * time.Second):
		t.Fatal("command did not complete in time")
		return Outcome{}
	}
}

func TestExecuteCapturesOutputAndExitCode(t *testing.T) {
	s := newTestService(t)

	handle := s.Execute(context.Background(), "echo hello", nil, Options{})
	outcome := waitOutcome(t, handle)

	assert.Equal(t, "hello\n", outcome.Output)
	assert.Equal(t, 0, outcome.ExitCode)
	assert.False(t, outcome.Truncated)
	assert.False(t, outcome.Cancelled)
	assert.Greater(t, handle.Pid(), 0)
}

func TestExecuteMergesStdoutAndStderr(t *testing.T) {
	s := newTestService(t)

	handle := s.Execute(context.Background(), "echo out; echo err >&2", nil, Options{})
	outcome := waitOutcome(t, handle)

	assert.Contains(t, outcome.Output, "out")
	assert.Contains(t, outcome.Output, "err")
}

func TestExecuteReportsNonZeroExit(t *testing.T) {
	s := newTestService(t)

	handle := s.Execute(context.Background(), "exit 3", nil, Options{})
	outcome := waitOutcome(t, handle)

	assert.Equal(t, 3, outcome.ExitCode)
}

func TestExecuteRunsInWorkingDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker.txt"), []byte("here"), 0o644))

	s := newTestService(t)
	handle := s.Execute(context.Background(), "cat marker.txt", nil, Options{WorkingDir: dir})
	outcome := waitOutcome(t, handle)

	assert.Equal(t, "here", outcome.Output)
	assert.Equal(t, 0, outcome.ExitCode)
}

func TestExecutePassesExtraEnv(t *testing.T) {
	s := newTestService(t)

	handle := s.Execute(context.Background(), "printf %s \"$GREETING\"", nil, Options{
		Env: map[string]string{"GREETING": "hi there"},
	})
	outcome := waitOutcome(t, handle)

	assert.Equal(t, "hi there", outcome.Output)
}

func TestExecuteStreamsOutputChunks(t *testing.T) {
	s := newTestService(t)

	var mu sync.Mutex
	var streamed strings.Builder
	handle := s.Execute(context.Background(), "printf one; sleep 0.1; printf two", func(chunk string) {
		mu.Lock()
		streamed.WriteString(chunk)
		mu.Unlock()
	}, Options{})
	outcome := waitOutcome(t, handle)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "onetwo", streamed.String())
	assert.Equal(t, "onetwo", outcome.Output)
}

func TestExecuteTruncatesOutputAtCap(t *testing.T) {
	s := newTestService(t)

	handle := s.Execute(context.Background(), "yes x | head -c 5000", nil, Options{MaxOutputBytes: 100})
	outcome := waitOutcome(t, handle)

	assert.True(t, outcome.Truncated)
	assert.True(t, strings.HasSuffix(outcome.Output, TruncationMarker))
	assert.LessOrEqual(t, len(outcome.Output), 100+len(TruncationMarker))
}

func TestExecuteCancellationKillsCommandTree(t *testing.T) {
	s := newTestService(t)

	ctx, cancel := context.WithCancel(context.Background())
	handle := s.Execute(ctx, "sleep 30", nil, Options{GracePeriod: 100 * time.Millisecond})
	require.Greater(t, handle.Pid(), 0)

	cancel()
	outcome := waitOutcome(t, handle)

	assert.True(t, outcome.Cancelled)
	assert.NotEqual(t, 0, outcome.ExitCode)
}

func TestExecuteSpawnFailureReportsSyntheticExit(t *testing.T) {
	s := newTestService(t)

	// An unwritable working directory makes Start fail before any process
	// exists.
	handle := s.Execute(context.Background(), "echo hi", nil, Options{WorkingDir: "/no/such/dir"})
	outcome := waitOutcome(t, handle)

	assert.Equal(t, 127, outcome.ExitCode)
	assert.Contains(t, outcome.Output, "failed to start command")
	assert.Zero(t, handle.Pid())
}
