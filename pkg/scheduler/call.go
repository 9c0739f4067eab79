package scheduler

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/harun/toolcore/pkg/tool"
)

// State is one position in the per-call lifecycle.
type State string

const (
	StateScheduled        State = "scheduled"
	StateValidating       State = "validating"
	StateAwaitingApproval State = "awaiting_approval"
	StateExecuting        State = "executing"
	StateSuccess          State = "success"
	StateError            State = "error"
	StateCancelled        State = "cancelled"
)

// Terminal reports whether no further transition is possible from s.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateError || s == StateCancelled
}

// allowedTransitions encodes the monotonic state machine: states are never
// revisited and every call ends in exactly one terminal state.
var allowedTransitions = map[State][]State{
	StateScheduled:        {StateValidating, StateCancelled},
	StateValidating:       {StateAwaitingApproval, StateExecuting, StateError, StateCancelled},
	StateAwaitingApproval: {StateExecuting, StateCancelled},
	StateExecuting:        {StateSuccess, StateError, StateCancelled},
}

// call is the scheduler's mutable record for one request. Only the scheduler
// mutates it; the caller sees an immutable CallResponse once the call is
// terminal.
type call struct {
	mu sync.Mutex

	id        string
	index     int
	request   tool.CallRequest
	impl      tool.Tool
	duplicate bool

	state        State
	invocation   tool.Invocation
	args         map[string]interface{}
	modifiedKeys []string

	// Executing-only fields.
	pid        int
	liveOutput strings.Builder

	// Awaiting-approval-only field.
	confirmation *tool.Confirmation

	response *tool.CallResponse
}

func newCall(index int, request tool.CallRequest, impl tool.Tool) *call {
	return &call{
		id:      uuid.New().String(),
		index:   index,
		request: request,
		impl:    impl,
		state:   StateScheduled,
		args:    request.Args,
	}
}

// readOnly classifies the call for the concurrency policy. Calls whose tool
// is unknown count as read-only: they fail during validation and never
// execute, so they need no exclusivity.
func (c *call) readOnly() bool {
	return c.impl == nil || c.impl.ReadOnly()
}

// transition advances the state machine. Invalid transitions are refused,
// keeping the lifecycle monotonic even under scheduler bugs.
func (c *call) transition(next State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, allowed := range allowedTransitions[c.state] {
		if allowed == next {
			c.state = next
			if next != StateExecuting {
				c.pid = 0
			}
			if next != StateAwaitingApproval {
				c.confirmation = nil
			}
			return true
		}
	}
	return false
}

func (c *call) currentState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *call) setPid(pid int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateExecuting {
		c.pid = pid
	}
}

func (c *call) appendOutput(chunk string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateExecuting {
		c.liveOutput.WriteString(chunk)
	}
}

func (c *call) setConfirmation(details *tool.Confirmation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateAwaitingApproval {
		c.confirmation = details
	}
}

// resolve records the terminal response. The first resolution wins; late
// resolutions (a decision arriving after cancellation) are dropped.
func (c *call) resolve(resp tool.CallResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.response != nil {
		return
	}
	c.response = &resp
}

func (c *call) resolved() *tool.CallResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.response
}

// Snapshot is a read-only view of a call for observers such as approval UIs
// and transcript renderers. Executing-only and approval-only fields are zero
// outside their states.
type Snapshot struct {
	CallID       string
	ToolName     string
	State        State
	Pid          int
	LiveOutput   string
	Confirmation *tool.Confirmation
}

func (c *call) snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		CallID:   c.request.CallID,
		ToolName: c.request.Name,
		State:    c.state,
	}
	if c.state == StateExecuting {
		snap.Pid = c.pid
		snap.LiveOutput = c.liveOutput.String()
	}
	if c.state == StateAwaitingApproval {
		snap.Confirmation = c.confirmation
	}
	return snap
}
