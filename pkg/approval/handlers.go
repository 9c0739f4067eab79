package approval

import (
	"context"
	"strings"
	"time"

	"github.com/harun/toolcore/pkg/tool"
)

// AutoApproveHandler approves every request without user interaction.
type AutoApproveHandler struct{}

// RequestApproval implements Handler.
func (AutoApproveHandler) RequestApproval(_ context.Context, _ Request) (Decision, error) {
	return Decision{Outcome: OutcomeApproved, Reason: "auto-approved"}, nil
}

// AllowlistHandler auto-approves exec confirmations whose root command is
// allowlisted and rejects everything else it cannot decide, delegating the
// undecided rest to a fallback handler when one is configured.
type AllowlistHandler struct {
	// Commands are allowlisted root commands, e.g. "git" or "ls".
	Commands []string
	// Fallback handles requests the allowlist cannot approve. Nil means
	// reject.
	Fallback Handler
}

// RequestApproval implements Handler.
func (h *AllowlistHandler) RequestApproval(ctx context.Context, req Request) (Decision, error) {
	if req.Details != nil && req.Details.Kind == tool.ConfirmExec {
		root := req.Details.RootCommand
		if root == "" {
			root = rootCommand(req.Details.Command)
		}
		for _, allowed := range h.Commands {
			if allowed == root || allowed == "*" {
				return Decision{Outcome: OutcomeApproved, Reason: "allowlisted command"}, nil
			}
		}
	}

	if h.Fallback != nil {
		return h.Fallback.RequestApproval(ctx, req)
	}
	return Decision{Outcome: OutcomeRejected, Reason: "not allowlisted"}, nil
}

func rootCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// MockHandler is a configurable handler for tests.
type MockHandler struct {
	Decision Decision
	Delay    time.Duration
	Err      error

	// Requests records every request the handler saw.
	Requests []Request
}

// RequestApproval implements Handler.
func (m *MockHandler) RequestApproval(ctx context.Context, req Request) (Decision, error) {
	m.Requests = append(m.Requests, req)

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return Decision{}, ctx.Err()
		}
	}
	if m.Err != nil {
		return Decision{}, m.Err
	}
	return m.Decision, nil
}
