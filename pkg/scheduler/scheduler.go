package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/harun/toolcore/pkg/approval"
	"github.com/harun/toolcore/pkg/hooks"
	"github.com/harun/toolcore/pkg/tool"
)

// DefaultMaxConcurrentReadOnly bounds how many read-only calls of one batch
// run at the same time.
const DefaultMaxConcurrentReadOnly = 4

// Recorder persists terminal call outcomes. Recording failures are logged
// and swallowed; they never affect the call they describe.
type Recorder interface {
	RecordCall(ctx context.Context, req tool.CallRequest, resp tool.CallResponse, state State, started, finished time.Time) error
}

// BatchStop reports that a hook halted the whole batch before it finished.
type BatchStop struct {
	// Reason is the hook's stated reason for halting.
	Reason string
	// CallID identifies the call whose hook requested the stop.
	CallID string
}

// Options configures a Scheduler.
type Options struct {
	Registry *tool.Registry
	// Hooks is the optional policy pipeline; nil skips hooks entirely.
	Hooks hooks.System
	// Approval resolves confirmation requests; nil approves without asking.
	Approval *approval.Gate
	// Recorder receives every terminal response when configured.
	Recorder Recorder
	Logger   zerolog.Logger
	// MaxConcurrentReadOnly caps concurrent read-only calls; 1 degrades to
	// fully sequential batches.
	MaxConcurrentReadOnly int
	// Shell is passed through to shell-backed invocations.
	Shell *tool.ShellConfig
	// OnUpdate observes call state changes, for approval UIs and live
	// transcripts.
	OnUpdate func(Snapshot)
}

// Scheduler drives batches of tool calls through validation, hooks,
// approval, and execution, and aggregates ordered responses.
type Scheduler struct {
	logger      zerolog.Logger
	registry    *tool.Registry
	hooks       hooks.System
	gate        *approval.Gate
	recorder    Recorder
	shell       *tool.ShellConfig
	onUpdate    func(Snapshot)
	maxReadOnly int
}

// New creates a scheduler.
func New(opts Options) (*Scheduler, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("tool registry is required")
	}
	maxReadOnly := opts.MaxConcurrentReadOnly
	if maxReadOnly <= 0 {
		maxReadOnly = DefaultMaxConcurrentReadOnly
	}
	return &Scheduler{
		logger:      opts.Logger.With().Str("component", "scheduler").Logger(),
		registry:    opts.Registry,
		hooks:       opts.Hooks,
		gate:        opts.Approval,
		recorder:    opts.Recorder,
		shell:       opts.Shell,
		onUpdate:    opts.OnUpdate,
		maxReadOnly: maxReadOnly,
	}, nil
}

// Schedule runs a batch of requests and returns one response per request, in
// submission order. Per-call failures are captured in their responses and
// never returned as errors. A non-nil BatchStop means a hook halted the
// batch: calls that had not started are resolved cancelled, and the caller
// should end the turn with the stop reason.
func (s *Scheduler) Schedule(ctx context.Context, requests []tool.CallRequest) ([]tool.CallResponse, *BatchStop) {
	if ctx == nil {
		ctx = context.Background()
	}

	calls := make([]*call, len(requests))
	seen := make(map[string]bool, len(requests))
	for i, req := range requests {
		impl, _ := s.registry.Lookup(req.Name)
		c := newCall(i, req, impl)
		if seen[req.CallID] {
			c.duplicate = true
		}
		seen[req.CallID] = true
		calls[i] = c
	}

	batch := &batchState{}
	sem := make(chan struct{}, s.maxReadOnly)

	i := 0
	for i < len(calls) {
		if batch.halted() || ctx.Err() != nil {
			break
		}

		if calls[i].readOnly() {
			// Contiguous read-only calls run concurrently, bounded by the
			// configured limit.
			j := i
			for j < len(calls) && calls[j].readOnly() {
				j++
			}
			var wg sync.WaitGroup
			for _, c := range calls[i:j] {
				wg.Add(1)
				go func(c *call) {
					defer wg.Done()
					sem <- struct{}{}
					defer func() { <-sem }()
					s.runCall(ctx, c, batch)
				}(c)
			}
			wg.Wait()
			i = j
		} else {
			// A mutating call executes exclusively.
			s.runCall(ctx, calls[i], batch)
			i++
		}
	}

	// Anything still unresolved (batch stop or cancellation) settles as
	// cancelled without ever executing.
	for _, c := range calls {
		s.sweepUnresolved(ctx, c, batch)
	}

	responses := make([]tool.CallResponse, len(calls))
	for idx, c := range calls {
		responses[idx] = *c.resolved()
	}

	if stopped, callID, reason := batch.info(); stopped {
		s.logger.Warn().Str("call_id", callID).Str("reason", reason).Msg("Batch halted by hook")
		return responses, &BatchStop{Reason: reason, CallID: callID}
	}
	return responses, nil
}

// runCall drives one call through the state machine to a terminal state.
func (s *Scheduler) runCall(ctx context.Context, c *call, batch *batchState) {
	started := time.Now()
	defer s.record(ctx, c, started)

	if stopped, _, reason := batch.info(); stopped {
		s.cancel(c, "batch stopped: "+reason)
		return
	}
	if ctx.Err() != nil {
		s.cancel(c, "cancelled before start")
		return
	}

	c.transition(StateValidating)
	s.notify(c)

	if c.duplicate {
		s.fail(c, tool.ErrorInvalidParams, fmt.Errorf("duplicate call id %q in batch", c.request.CallID))
		return
	}
	if c.impl == nil {
		s.fail(c, tool.ErrorNotRegistered, fmt.Errorf("%w: %s", tool.ErrToolNotFound, c.request.Name))
		return
	}

	invocation, err := c.impl.Build(c.args)
	if err != nil {
		s.fail(c, tool.ErrorInvalidParams, err)
		return
	}
	c.invocation = invocation

	if !s.runBeforeHooks(ctx, c, batch) {
		return
	}

	if !s.awaitApproval(ctx, c) {
		return
	}

	if !c.transition(StateExecuting) {
		// Terminal already (cancelled while approving); nothing to run.
		return
	}
	s.notify(c)

	result, execErr := s.execute(ctx, c)
	if execErr != nil {
		if ctx.Err() != nil {
			s.cancel(c, "cancelled during execution")
			return
		}
		if _, ok := execErr.(panicError); ok {
			s.fail(c, tool.ErrorUnhandled, execErr)
			return
		}
		s.fail(c, tool.ErrorExecutionFailed, execErr)
		return
	}

	// A killed process can still produce a normal result (shell tools report
	// the termination in their output); the batch signal decides the state.
	if ctx.Err() != nil {
		s.cancel(c, "cancelled during execution")
		return
	}

	content, ok := s.runAfterHooks(ctx, c, batch, result)
	if !ok {
		return
	}

	c.transition(StateSuccess)
	s.notify(c)
	c.resolve(successResponse(c.request, content, result, c.modifiedKeys))

	s.logger.Debug().
		Str("call_id", c.request.CallID).
		Str("tool", c.request.Name).
		Dur("duration", time.Since(started)).
		Msg("Tool call succeeded")
}

// runBeforeHooks fires the before-tool pipeline. It returns false when the
// call reached a terminal state (blocked, stopped, or rebuilt args failed).
func (s *Scheduler) runBeforeHooks(ctx context.Context, c *call, batch *batchState) bool {
	if s.hooks == nil {
		return true
	}

	out, err := s.hooks.FireBeforeToolEvent(ctx, c.request.Name, c.args, s.serverInfo(c.impl))
	if err != nil {
		s.fail(c, tool.ErrorExecutionFailed, fmt.Errorf("before-tool hook failed: %w", err))
		return false
	}
	if out == nil {
		return true
	}

	if out.ShouldStopExecution() {
		reason := out.EffectiveReason()
		batch.stop(c.request.CallID, reason)
		s.fail(c, tool.ErrorStopExecution, fmt.Errorf("execution stopped by hook: %s", reason))
		return false
	}
	if blockErr := out.BlockingError(); blockErr != nil {
		s.fail(c, tool.ErrorExecutionFailed, fmt.Errorf("blocked by hook: %w", blockErr))
		return false
	}

	if modified := out.ModifiedToolInput(); len(modified) > 0 {
		newArgs := make(map[string]interface{}, len(c.args)+len(modified))
		for k, v := range c.args {
			newArgs[k] = v
		}
		keys := make([]string, 0, len(modified))
		for k, v := range modified {
			newArgs[k] = v
			keys = append(keys, k)
		}
		sort.Strings(keys)

		// Never mutate the bound invocation: rebuild from the new args so
		// derived state is recomputed and revalidated.
		rebuilt, err := c.impl.Build(newArgs)
		if err != nil {
			s.fail(c, tool.ErrorInvalidParams, fmt.Errorf("hook-modified input is invalid: %w", err))
			return false
		}
		c.invocation = rebuilt
		c.args = newArgs
		c.modifiedKeys = keys

		s.logger.Debug().
			Str("call_id", c.request.CallID).
			Strs("modified_keys", keys).
			Msg("Hook modified tool input")
	}
	return true
}

// awaitApproval suspends on the approval gate when the invocation asks for
// confirmation. It returns false when the call settled (rejected or
// cancelled while waiting).
func (s *Scheduler) awaitApproval(ctx context.Context, c *call) bool {
	details, err := c.invocation.Confirmation(ctx)
	if err != nil {
		s.fail(c, tool.ErrorExecutionFailed, fmt.Errorf("confirmation check failed: %w", err))
		return false
	}
	if details == nil || s.gate == nil {
		return true
	}

	c.transition(StateAwaitingApproval)
	c.setConfirmation(details)
	s.notify(c)

	decision, err := s.gate.Decide(ctx, c.request.Name, c.invocation.Description(), details)
	if err != nil {
		s.cancel(c, fmt.Sprintf("approval unavailable: %v", err))
		return false
	}

	switch decision.Outcome {
	case approval.OutcomeApproved:
		return true
	case approval.OutcomeCancelled:
		s.cancel(c, "cancelled while awaiting approval")
		return false
	default:
		reason := decision.Reason
		if reason == "" {
			reason = "rejected by user"
		}
		s.cancel(c, "approval denied: "+reason)
		return false
	}
}

// runAfterHooks fires the after-tool pipeline and returns the final model
// content. It returns ok=false when the call reached a terminal state.
func (s *Scheduler) runAfterHooks(ctx context.Context, c *call, batch *batchState, result tool.Result) (string, bool) {
	content := result.Content
	if s.hooks == nil {
		return content, true
	}

	out, err := s.hooks.FireAfterToolEvent(ctx, c.request.Name, c.args, result, s.serverInfo(c.impl))
	if err != nil {
		s.fail(c, tool.ErrorExecutionFailed, fmt.Errorf("after-tool hook failed: %w", err))
		return "", false
	}
	if out == nil {
		return content, true
	}

	if out.ShouldStopExecution() {
		reason := out.EffectiveReason()
		batch.stop(c.request.CallID, reason)
		s.fail(c, tool.ErrorStopExecution, fmt.Errorf("execution stopped by hook: %s", reason))
		return "", false
	}
	if blockErr := out.BlockingError(); blockErr != nil {
		s.fail(c, tool.ErrorExecutionFailed, fmt.Errorf("result rejected by hook: %w", blockErr))
		return "", false
	}

	if extra := out.AdditionalContext(); extra != "" {
		// Keep hook commentary visually separate from the tool's own output.
		content += "\n<hook-context>\n" + extra + "\n</hook-context>"
	}
	return content, true
}

// panicError marks a recovered invocation panic so it maps to the unhandled
// error type rather than a plain execution failure.
type panicError struct{ err error }

func (p panicError) Error() string { return p.err.Error() }

// execute runs the invocation, converting panics into errors so they never
// propagate out of Schedule.
func (s *Scheduler) execute(ctx context.Context, c *call) (result tool.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("call_id", c.request.CallID).
				Str("tool", c.request.Name).
				Interface("panic", r).
				Msg("Tool invocation panicked")
			err = panicError{fmt.Errorf("tool %s panicked: %v", c.request.Name, r)}
		}
	}()

	opts := tool.ExecOptions{
		OnOutput: func(chunk string) {
			c.appendOutput(chunk)
			s.notify(c)
		},
		OnPid: func(pid int) {
			c.setPid(pid)
			s.notify(c)
		},
		Shell: s.shell,
	}
	return c.invocation.Execute(ctx, opts)
}

func (s *Scheduler) serverInfo(impl tool.Tool) *tool.ServerInfo {
	info, ok := s.registry.ServerFor(impl)
	if !ok {
		return nil
	}
	return &info
}

// fail settles a call in the error terminal state.
func (s *Scheduler) fail(c *call, errType tool.ErrorType, err error) {
	c.transition(StateError)
	s.notify(c)
	c.resolve(errorResponse(c.request, errType, err))

	s.logger.Warn().
		Str("call_id", c.request.CallID).
		Str("tool", c.request.Name).
		Str("error_type", string(errType)).
		Err(err).
		Msg("Tool call failed")
}

// cancel settles a call in the cancelled terminal state.
func (s *Scheduler) cancel(c *call, reason string) {
	c.transition(StateCancelled)
	s.notify(c)
	c.resolve(cancelResponse(c.request, reason))

	s.logger.Debug().
		Str("call_id", c.request.CallID).
		Str("tool", c.request.Name).
		Str("reason", reason).
		Msg("Tool call cancelled")
}

// sweepUnresolved settles calls the batch never started.
func (s *Scheduler) sweepUnresolved(ctx context.Context, c *call, batch *batchState) {
	if c.resolved() != nil {
		return
	}
	now := time.Now()
	if stopped, _, reason := batch.info(); stopped {
		s.cancel(c, "batch stopped: "+reason)
	} else {
		s.cancel(c, "batch cancelled")
	}
	s.recordAt(ctx, c, now, time.Now())
}

func (s *Scheduler) record(ctx context.Context, c *call, started time.Time) {
	s.recordAt(ctx, c, started, time.Now())
}

func (s *Scheduler) recordAt(ctx context.Context, c *call, started, finished time.Time) {
	resp := c.resolved()
	if s.recorder == nil || resp == nil {
		return
	}
	if err := s.recorder.RecordCall(ctx, c.request, *resp, c.currentState(), started, finished); err != nil {
		s.logger.Warn().Err(err).Str("call_id", c.request.CallID).Msg("Failed to record tool call")
	}
}

func (s *Scheduler) notify(c *call) {
	if s.onUpdate != nil {
		s.onUpdate(c.snapshot())
	}
}

// batchState tracks the one directive that crosses call boundaries: a hook's
// request to stop the whole batch. The first stop wins.
type batchState struct {
	mu      sync.Mutex
	stopped bool
	callID  string
	reason  string
}

func (b *batchState) stop(callID, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}
	b.stopped = true
	b.callID = callID
	b.reason = reason
}

func (b *batchState) halted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stopped
}

func (b *batchState) info() (bool, string, string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stopped, b.callID, b.reason
}
