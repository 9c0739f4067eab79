package shell

import (
	"strings"
	"sync"
)

// TruncationMarker is appended to buffered output that hit the size cap.
const TruncationMarker = "\n... [output truncated]"

// DefaultMaxOutputBytes caps retained output for chatty commands.
const DefaultMaxOutputBytes = 200000

// cappedBuffer retains at most max bytes of output. Writes past the cap are
// dropped and the final string carries a truncation marker. Safe for
// concurrent writers (stdout and stderr readers share one buffer).
type cappedBuffer struct {
	mu        sync.Mutex
	builder   strings.Builder
	max       int
	truncated bool
}

func newCappedBuffer(max int) *cappedBuffer {
	if max <= 0 {
		max = DefaultMaxOutputBytes
	}
	return &cappedBuffer{max: max}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.truncated {
		return len(p), nil
	}
	remaining := b.max - b.builder.Len()
	if remaining <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if len(p) > remaining {
		b.builder.Write(p[:remaining])
		b.truncated = true
		return len(p), nil
	}
	b.builder.Write(p)
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.truncated {
		return b.builder.String() + TruncationMarker
	}
	return b.builder.String()
}

func (b *cappedBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.truncated
}
