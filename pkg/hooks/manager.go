package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/harun/toolcore/pkg/tool"
)

// Hook defines one policy script bound to a tool lifecycle event. The script
// receives the event payload as JSON on stdin and may print a JSON decision
// to stdout.
type Hook struct {
	ID      string        `json:"id"`
	Event   string        `json:"event"`
	Matcher string        `json:"matcher,omitempty"`
	Script  string        `json:"script"`
	Timeout time.Duration `json:"timeout,omitempty"`
	Enabled bool          `json:"enabled"`
}

// Config configures a hook Manager.
type Config struct {
	Enabled bool
	Hooks   []Hook
	Logger  zerolog.Logger
}

// Manager runs configured hook scripts for tool lifecycle events and merges
// their decisions. A nil or disabled Manager is a no-op.
type Manager struct {
	enabled bool
	logger  zerolog.Logger

	mu           sync.RWMutex
	hooksByEvent map[string][]Hook
}

// NewManager creates a hook manager.
func NewManager(cfg Config) (*Manager, error) {
	manager := &Manager{
		enabled:      cfg.Enabled,
		logger:       cfg.Logger.With().Str("component", "hooks").Logger(),
		hooksByEvent: make(map[string][]Hook),
	}

	if !cfg.Enabled {
		return manager, nil
	}
	if err := manager.Reload(cfg.Hooks); err != nil {
		return nil, err
	}
	return manager, nil
}

// Reload replaces the hook set. Used at startup and by the file watcher.
func (m *Manager) Reload(hooks []Hook) error {
	byEvent := make(map[string][]Hook)
	for _, hook := range hooks {
		if !hook.Enabled {
			continue
		}
		event := strings.TrimSpace(hook.Event)
		if event != EventBeforeTool && event != EventAfterTool {
			return fmt.Errorf("unknown hook event %q", hook.Event)
		}
		if strings.TrimSpace(hook.Script) == "" {
			return fmt.Errorf("hook script is required for event %q", event)
		}
		byEvent[event] = append(byEvent[event], hook)
	}

	m.mu.Lock()
	m.hooksByEvent = byEvent
	m.mu.Unlock()
	return nil
}

// FireBeforeToolEvent implements System.
func (m *Manager) FireBeforeToolEvent(ctx context.Context, toolName string, args map[string]interface{}, server *tool.ServerInfo) (*BeforeToolOutput, error) {
	d, err := m.fire(ctx, EventBeforeTool, toolName, args, nil, server)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, nil
	}
	return &BeforeToolOutput{d: *d}, nil
}

// FireAfterToolEvent implements System.
func (m *Manager) FireAfterToolEvent(ctx context.Context, toolName string, args map[string]interface{}, result tool.Result, server *tool.ServerInfo) (*AfterToolOutput, error) {
	d, err := m.fire(ctx, EventAfterTool, toolName, args, &result, server)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, nil
	}
	return &AfterToolOutput{d: *d}, nil
}

type eventPayload struct {
	Event      string                 `json:"event"`
	ToolName   string                 `json:"tool_name"`
	ToolInput  map[string]interface{} `json:"tool_input"`
	ToolOutput string                 `json:"tool_output,omitempty"`
	Server     *tool.ServerInfo       `json:"server,omitempty"`
}

// scriptDecision is what a hook script may print to stdout.
type scriptDecision struct {
	Blocked           bool                   `json:"blocked"`
	Reason            string                 `json:"reason"`
	StopExecution     bool                   `json:"stop_execution"`
	StopReason        string                 `json:"stop_reason"`
	ModifiedInput     map[string]interface{} `json:"modified_input"`
	AdditionalContext string                 `json:"additional_context"`
}

func (m *Manager) fire(ctx context.Context, event, toolName string, args map[string]interface{}, result *tool.Result, server *tool.ServerInfo) (*decision, error) {
	if m == nil || !m.enabled {
		return nil, nil
	}

	m.mu.RLock()
	hooks := append([]Hook(nil), m.hooksByEvent[event]...)
	m.mu.RUnlock()
	if len(hooks) == 0 {
		return nil, nil
	}

	payload := eventPayload{
		Event:     event,
		ToolName:  toolName,
		ToolInput: args,
		Server:    server,
	}
	if result != nil {
		payload.ToolOutput = result.Content
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode hook payload: %w", err)
	}

	merged := &decision{}
	fired := false
	for _, hook := range hooks {
		if !matchesTool(hook.Matcher, toolName) {
			continue
		}
		dec, err := m.executeHook(ctx, event, hook, input)
		if err != nil {
			return nil, err
		}
		fired = true
		if dec == nil {
			continue
		}
		mergeDecision(merged, dec)
		if merged.blocked || merged.stopExecution {
			break
		}
	}

	if !fired {
		return nil, nil
	}
	return merged, nil
}

func (m *Manager) executeHook(ctx context.Context, event string, hook Hook, input []byte) (*scriptDecision, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	hookID := hook.ID
	if strings.TrimSpace(hookID) == "" {
		hookID = event
	}

	runCtx := ctx
	cancel := func() {}
	if hook.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, hook.Timeout)
	}
	defer cancel()

	cmd := exec.CommandContext(runCtx, "/bin/sh", "-c", hook.Script)
	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("hook %s failed: %w: %s", hookID, err, detail)
		}
		return nil, fmt.Errorf("hook %s failed: %w", hookID, err)
	}

	outputText := strings.TrimSpace(stdout.String())
	if outputText == "" {
		return nil, nil
	}

	var dec scriptDecision
	if err := json.Unmarshal([]byte(outputText), &dec); err != nil {
		// Plain text output is informational only.
		m.logger.Debug().
			Str("event", event).
			Str("hook_id", hookID).
			Str("output", outputText).
			Msg("Hook produced non-JSON output")
		return nil, nil
	}

	m.logger.Debug().
		Str("event", event).
		Str("hook_id", hookID).
		Bool("blocked", dec.Blocked).
		Bool("stop", dec.StopExecution).
		Msg("Hook executed")

	return &dec, nil
}

func mergeDecision(merged *decision, dec *scriptDecision) {
	if dec.Blocked {
		merged.blocked = true
		if merged.reason == "" {
			merged.reason = dec.Reason
		}
	}
	if dec.StopExecution {
		merged.stopExecution = true
		if merged.stopReason == "" {
			merged.stopReason = dec.StopReason
			if merged.stopReason == "" {
				merged.stopReason = dec.Reason
			}
		}
	}
	if len(dec.ModifiedInput) > 0 {
		if merged.modifiedInput == nil {
			merged.modifiedInput = make(map[string]interface{}, len(dec.ModifiedInput))
		}
		for k, v := range dec.ModifiedInput {
			merged.modifiedInput[k] = v
		}
	}
	if dec.AdditionalContext != "" {
		merged.additionalContext = append(merged.additionalContext, dec.AdditionalContext)
	}
}

// matchesTool reports whether a hook's matcher selects the tool. An empty
// matcher or "*" selects every tool; "prefix*" matches by prefix.
func matchesTool(matcher, toolName string) bool {
	matcher = strings.TrimSpace(matcher)
	if matcher == "" || matcher == "*" {
		return true
	}
	if strings.HasSuffix(matcher, "*") {
		return strings.HasPrefix(toolName, strings.TrimSuffix(matcher, "*"))
	}
	return matcher == toolName
}
