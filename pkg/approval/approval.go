// Package approval decides whether a tool call that asked for confirmation
// may run. It turns an invocation's confirmation details into a yes/no
// decision, possibly after a real suspension waiting on a human. Rendering
// the prompt is the handler's job; this package only moves the data.
package approval

import (
	"context"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog/log"

	"github.com/harun/toolcore/pkg/tool"
)

// Outcome is the result of an approval request.
type Outcome string

const (
	// OutcomeApproved lets the call execute.
	OutcomeApproved Outcome = "approved"
	// OutcomeRejected resolves the call as cancelled without executing.
	OutcomeRejected Outcome = "rejected"
	// OutcomeCancelled means the batch signal fired while waiting.
	OutcomeCancelled Outcome = "cancelled"
)

// Request asks a handler to approve one tool call.
type Request struct {
	// CorrelationID ties the eventual decision back to the waiting call.
	CorrelationID string             `json:"correlation_id"`
	ToolName      string             `json:"tool_name"`
	Description   string             `json:"description"`
	Details       *tool.Confirmation `json:"details"`
}

// Decision is a handler's answer to a Request.
type Decision struct {
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason,omitempty"`
}

// Handler resolves approval requests. Implementations range from
// auto-approval policy to a UI that suspends on a human.
type Handler interface {
	RequestApproval(ctx context.Context, req Request) (Decision, error)
}

// Gate wraps a Handler with correlation ids and a default timeout.
type Gate struct {
	handler        Handler
	defaultTimeout time.Duration
}

// NewGate creates an approval gate around handler.
func NewGate(handler Handler) *Gate {
	return &Gate{
		handler:        handler,
		defaultTimeout: 60 * time.Second,
	}
}

// SetDefaultTimeout overrides how long the gate waits for a decision.
func (g *Gate) SetDefaultTimeout(timeout time.Duration) {
	if timeout > 0 {
		g.defaultTimeout = timeout
	}
}

// Decide requests approval for a confirmation and waits for the decision.
// Cancellation of ctx while waiting yields OutcomeCancelled, not an error.
func (g *Gate) Decide(ctx context.Context, toolName, description string, details *tool.Confirmation) (Decision, error) {
	if g == nil || g.handler == nil {
		return Decision{}, fmt.Errorf("no approval handler configured")
	}

	correlationID, err := gonanoid.New()
	if err != nil {
		return Decision{}, fmt.Errorf("failed to generate correlation id: %w", err)
	}

	req := Request{
		CorrelationID: correlationID,
		ToolName:      toolName,
		Description:   description,
		Details:       details,
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, g.defaultTimeout)
	defer cancel()

	log.Info().
		Str("tool", toolName).
		Str("correlation_id", correlationID).
		Msg("Requesting approval")

	decisionChan := make(chan Decision, 1)
	errChan := make(chan error, 1)
	go func() {
		decision, err := g.handler.RequestApproval(timeoutCtx, req)
		if err != nil {
			errChan <- err
			return
		}
		decisionChan <- decision
	}()

	select {
	case decision := <-decisionChan:
		log.Info().
			Str("tool", toolName).
			Str("outcome", string(decision.Outcome)).
			Str("reason", decision.Reason).
			Msg("Approval resolved")
		return decision, nil

	case err := <-errChan:
		if ctx.Err() != nil {
			log.Warn().Str("tool", toolName).Msg("Approval wait cancelled")
			return Decision{Outcome: OutcomeCancelled, Reason: "cancelled while awaiting approval"}, nil
		}
		log.Error().Err(err).Str("tool", toolName).Msg("Approval request failed")
		return Decision{}, fmt.Errorf("approval request failed: %w", err)

	case <-ctx.Done():
		log.Warn().Str("tool", toolName).Msg("Approval wait cancelled")
		return Decision{Outcome: OutcomeCancelled, Reason: "cancelled while awaiting approval"}, nil

	case <-timeoutCtx.Done():
		// The timeout context inherits the caller's cancellation, so both
		// channels fire together when the batch signal trips. Cancellation
		// wins over the timeout regardless of which branch the select picks.
		if ctx.Err() != nil {
			log.Warn().Str("tool", toolName).Msg("Approval wait cancelled")
			return Decision{Outcome: OutcomeCancelled, Reason: "cancelled while awaiting approval"}, nil
		}
		log.Warn().
			Str("tool", toolName).
			Dur("timeout", g.defaultTimeout).
			Msg("Approval request timed out")
		return Decision{}, fmt.Errorf("approval request timed out after %v", g.defaultTimeout)
	}
}
