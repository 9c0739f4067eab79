package hooks

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/toolcore/pkg/tool"
)

func newTestManager(t *testing.T, defs ...Hook) *Manager {
	t.Helper()
	manager, err := NewManager(Config{
		Enabled: true,
		Hooks:   defs,
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)
	return manager
}

func beforeHook(id, matcher, script string) Hook {
	return Hook{ID: id, Event: EventBeforeTool, Matcher: matcher, Script: script, Enabled: true}
}

func TestFireBeforeToolEventWithNoHooksReturnsNil(t *testing.T) {
	manager := newTestManager(t)

	out, err := manager.FireBeforeToolEvent(context.Background(), "read_file", nil, nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestDisabledManagerIsNoOp(t *testing.T) {
	manager, err := NewManager(Config{Enabled: false, Logger: zerolog.Nop()})
	require.NoError(t, err)

	out, fireErr := manager.FireBeforeToolEvent(context.Background(), "read_file", nil, nil)
	require.NoError(t, fireErr)
	assert.Nil(t, out)
}

func TestHookReceivesEventPayloadOnStdin(t *testing.T) {
	// The script echoes the payload's tool name back as additional context.
	script := `name=$(sed 's/.*"tool_name":"\([^"]*\)".*/\1/'); printf '{"additional_context": "saw %s"}' "$name"`
	manager := newTestManager(t, beforeHook("inspect", "", script))

	out, err := manager.FireBeforeToolEvent(context.Background(), "read_file", map[string]interface{}{"path": "a.txt"}, nil)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "saw read_file", out.AdditionalContext())
}

func TestHookBlockDecision(t *testing.T) {
	manager := newTestManager(t, beforeHook("deny", "", `echo '{"blocked": true, "reason": "forbidden path"}'`))

	out, err := manager.FireBeforeToolEvent(context.Background(), "read_file", nil, nil)
	require.NoError(t, err)
	require.NotNil(t, out)

	blockErr := out.BlockingError()
	require.Error(t, blockErr)
	assert.Equal(t, "forbidden path", blockErr.Error())
	assert.False(t, out.ShouldStopExecution())
}

func TestHookStopDecisionPrefersStopReason(t *testing.T) {
	manager := newTestManager(t, beforeHook("budget", "", `echo '{"stop_execution": true, "stop_reason": "budget exhausted"}'`))

	out, err := manager.FireBeforeToolEvent(context.Background(), "write_file", nil, nil)
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.True(t, out.ShouldStopExecution())
	assert.Equal(t, "budget exhausted", out.EffectiveReason())
}

func TestHookModifiedInputIsMergedAcrossHooks(t *testing.T) {
	manager := newTestManager(t,
		beforeHook("first", "", `echo '{"modified_input": {"path": "redirected.txt"}}'`),
		beforeHook("second", "", `echo '{"modified_input": {"mode": "readonly"}}'`),
	)

	out, err := manager.FireBeforeToolEvent(context.Background(), "read_file", nil, nil)
	require.NoError(t, err)
	require.NotNil(t, out)

	modified := out.ModifiedToolInput()
	assert.Equal(t, "redirected.txt", modified["path"])
	assert.Equal(t, "readonly", modified["mode"])
}

func TestHookMatcherSelectsTools(t *testing.T) {
	manager := newTestManager(t, beforeHook("shell-only", "run_shell*", `echo '{"blocked": true, "reason": "no shell"}'`))

	out, err := manager.FireBeforeToolEvent(context.Background(), "read_file", nil, nil)
	require.NoError(t, err)
	assert.Nil(t, out)

	out, err = manager.FireBeforeToolEvent(context.Background(), "run_shell_command", nil, nil)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Error(t, out.BlockingError())
}

func TestHookNonJSONOutputIsInformational(t *testing.T) {
	manager := newTestManager(t, beforeHook("chatty", "", `echo "just some logging"`))

	out, err := manager.FireBeforeToolEvent(context.Background(), "read_file", nil, nil)
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.NoError(t, out.BlockingError())
	assert.False(t, out.ShouldStopExecution())
	assert.Empty(t, out.AdditionalContext())
}

func TestHookScriptFailureReturnsError(t *testing.T) {
	manager := newTestManager(t, beforeHook("broken", "", `echo "bad hook" >&2; exit 2`))

	_, err := manager.FireBeforeToolEvent(context.Background(), "read_file", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.Contains(t, err.Error(), "bad hook")
}

func TestHookTimeoutCancelsScript(t *testing.T) {
	hook := beforeHook("slow", "", "sleep 5")
	hook.Timeout = 100 * time.Millisecond
	manager := newTestManager(t, hook)

	start := time.Now()
	_, err := manager.FireBeforeToolEvent(context.Background(), "read_file", nil, nil)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestFireAfterToolEventPassesResultContent(t *testing.T) {
	script := `if grep -q "compiled ok" >/dev/null; then echo '{"additional_context": "build verified"}'; fi`
	manager := newTestManager(t, Hook{
		ID:      "verify",
		Event:   EventAfterTool,
		Script:  script,
		Enabled: true,
	})

	out, err := manager.FireAfterToolEvent(context.Background(), "run_shell_command", nil, tool.Result{Content: "compiled ok"}, nil)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "build verified", out.AdditionalContext())
}

func TestReloadRejectsUnknownEvent(t *testing.T) {
	manager := newTestManager(t)

	err := manager.Reload([]Hook{{ID: "bad", Event: "on_startup", Script: "true", Enabled: true}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown hook event")
}

func TestReloadSkipsDisabledHooks(t *testing.T) {
	manager := newTestManager(t)
	require.NoError(t, manager.Reload([]Hook{
		{ID: "off", Event: EventBeforeTool, Script: `echo '{"blocked": true}'`, Enabled: false},
	}))

	out, err := manager.FireBeforeToolEvent(context.Background(), "read_file", nil, nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestMatchesTool(t *testing.T) {
	tests := []struct {
		matcher  string
		toolName string
		want     bool
	}{
		{"", "read_file", true},
		{"*", "read_file", true},
		{"read_file", "read_file", true},
		{"read_file", "write_file", false},
		{"read_*", "read_file", true},
		{"read_*", "write_file", false},
		{" read_file ", "read_file", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, matchesTool(tt.matcher, tt.toolName), "matcher %q tool %q", tt.matcher, tt.toolName)
	}
}

func TestFirstBlockShortCircuitsLaterHooks(t *testing.T) {
	marker := t.TempDir() + "/ran"
	manager := newTestManager(t,
		beforeHook("deny", "", `echo '{"blocked": true, "reason": "no"}'`),
		beforeHook("later", "", "touch "+marker),
	)

	out, err := manager.FireBeforeToolEvent(context.Background(), "read_file", nil, nil)
	require.NoError(t, err)
	require.Error(t, out.BlockingError())

	assert.NoFileExists(t, marker)
}

func TestHookPayloadIncludesServerInfo(t *testing.T) {
	script := `if grep -q '"server"' >/dev/null; then echo '{"additional_context": "remote"}'; fi`
	manager := newTestManager(t, beforeHook("remote", "", script))

	out, err := manager.FireBeforeToolEvent(context.Background(), "remote_tool", nil, &tool.ServerInfo{Name: "docs"})
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Contains(t, out.AdditionalContext(), "remote")
}
