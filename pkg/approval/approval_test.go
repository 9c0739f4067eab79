package approval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/toolcore/pkg/tool"
)

func execDetails(command string) *tool.Confirmation {
	return &tool.Confirmation{Kind: tool.ConfirmExec, Command: command}
}

func TestGateDecideDeliversDecision(t *testing.T) {
	handler := &MockHandler{Decision: Decision{Outcome: OutcomeApproved}}
	gate := NewGate(handler)

	decision, err := gate.Decide(context.Background(), "run_shell_command", "run ls", execDetails("ls"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApproved, decision.Outcome)

	require.Len(t, handler.Requests, 1)
	req := handler.Requests[0]
	assert.Equal(t, "run_shell_command", req.ToolName)
	assert.Equal(t, "run ls", req.Description)
	assert.NotEmpty(t, req.CorrelationID)
	assert.Equal(t, execDetails("ls"), req.Details)
}

func TestGateDecideGeneratesUniqueCorrelationIDs(t *testing.T) {
	handler := &MockHandler{Decision: Decision{Outcome: OutcomeApproved}}
	gate := NewGate(handler)

	_, err := gate.Decide(context.Background(), "a", "", execDetails("ls"))
	require.NoError(t, err)
	_, err = gate.Decide(context.Background(), "b", "", execDetails("ls"))
	require.NoError(t, err)

	require.Len(t, handler.Requests, 2)
	assert.NotEqual(t, handler.Requests[0].CorrelationID, handler.Requests[1].CorrelationID)
}

func TestGateDecideCancelledContextYieldsCancelledOutcome(t *testing.T) {
	handler := &MockHandler{Delay: 10 * time.Second, Decision: Decision{Outcome: OutcomeApproved}}
	gate := NewGate(handler)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	decision, err := gate.Decide(ctx, "run_shell_command", "", execDetails("ls"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCancelled, decision.Outcome)
}

func TestGateDecideTimesOut(t *testing.T) {
	handler := &MockHandler{Delay: 10 * time.Second, Decision: Decision{Outcome: OutcomeApproved}}
	gate := NewGate(handler)
	gate.SetDefaultTimeout(100 * time.Millisecond)

	_, err := gate.Decide(context.Background(), "run_shell_command", "", execDetails("ls"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestGateDecideHandlerErrorIsWrapped(t *testing.T) {
	handler := &MockHandler{Err: errors.New("ui disconnected")}
	gate := NewGate(handler)

	_, err := gate.Decide(context.Background(), "run_shell_command", "", execDetails("ls"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ui disconnected")
}

func TestGateWithoutHandlerFails(t *testing.T) {
	gate := NewGate(nil)
	_, err := gate.Decide(context.Background(), "run_shell_command", "", execDetails("ls"))
	require.Error(t, err)
}

func TestAutoApproveHandlerApprovesEverything(t *testing.T) {
	decision, err := AutoApproveHandler{}.RequestApproval(context.Background(), Request{ToolName: "anything"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApproved, decision.Outcome)
}

func TestAllowlistHandlerApprovesListedRootCommand(t *testing.T) {
	handler := &AllowlistHandler{Commands: []string{"git", "ls"}}

	decision, err := handler.RequestApproval(context.Background(), Request{
		Details: &tool.Confirmation{Kind: tool.ConfirmExec, Command: "git status --short"},
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApproved, decision.Outcome)
}

func TestAllowlistHandlerPrefersExplicitRootCommand(t *testing.T) {
	handler := &AllowlistHandler{Commands: []string{"npm"}}

	decision, err := handler.RequestApproval(context.Background(), Request{
		Details: &tool.Confirmation{Kind: tool.ConfirmExec, Command: "env FOO=1 npm test", RootCommand: "npm"},
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApproved, decision.Outcome)
}

func TestAllowlistHandlerRejectsUnlistedCommandWithoutFallback(t *testing.T) {
	handler := &AllowlistHandler{Commands: []string{"ls"}}

	decision, err := handler.RequestApproval(context.Background(), Request{
		Details: &tool.Confirmation{Kind: tool.ConfirmExec, Command: "rm -rf build"},
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, decision.Outcome)
}

func TestAllowlistHandlerDelegatesToFallback(t *testing.T) {
	fallback := &MockHandler{Decision: Decision{Outcome: OutcomeApproved, Reason: "human said yes"}}
	handler := &AllowlistHandler{Commands: []string{"ls"}, Fallback: fallback}

	decision, err := handler.RequestApproval(context.Background(), Request{
		Details: &tool.Confirmation{Kind: tool.ConfirmExec, Command: "rm -rf build"},
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApproved, decision.Outcome)
	assert.Len(t, fallback.Requests, 1)
}

func TestAllowlistHandlerNeverAutoApprovesEdits(t *testing.T) {
	handler := &AllowlistHandler{Commands: []string{"*"}}

	decision, err := handler.RequestApproval(context.Background(), Request{
		Details: &tool.Confirmation{Kind: tool.ConfirmEdit, Path: "main.go"},
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, decision.Outcome)
}

func TestGateDecideCancelledContextNeverReportsTimeout(t *testing.T) {
	handler := &MockHandler{Delay: 10 * time.Second, Decision: Decision{Outcome: OutcomeApproved}}
	gate := NewGate(handler)
	gate.SetDefaultTimeout(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The timeout context inherits the cancellation, so every wait channel is
	// ready at once; repeated runs exercise the select's random pick.
	for i := 0; i < 25; i++ {
		decision, err := gate.Decide(ctx, "run_shell_command", "", execDetails("ls"))
		require.NoError(t, err)
		assert.Equal(t, OutcomeCancelled, decision.Outcome)
	}
}
