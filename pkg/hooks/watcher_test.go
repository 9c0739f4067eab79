package hooks

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeHooksFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadHooksFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hooks.json")
	writeHooksFile(t, path, `[
		{"id": "deny", "event": "before_tool", "script": "echo '{\"blocked\": true}'", "enabled": true}
	]`)

	loaded, err := LoadHooksFile(path)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "deny", loaded[0].ID)
	assert.Equal(t, EventBeforeTool, loaded[0].Event)
	assert.True(t, loaded[0].Enabled)
}

func TestLoadHooksFileRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hooks.json")
	writeHooksFile(t, path, `{"not": "an array"}`)

	_, err := LoadHooksFile(path)
	require.Error(t, err)
}

func TestWatcherReloadsOnFileChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hooks.json")
	writeHooksFile(t, path, `[]`)

	manager := newTestManager(t)
	watcher, err := NewWatcher(zerolog.Nop(), manager, path)
	require.NoError(t, err)
	defer watcher.Stop()

	out, err := manager.FireBeforeToolEvent(context.Background(), "read_file", nil, nil)
	require.NoError(t, err)
	require.Nil(t, out)

	writeHooksFile(t, path, `[
		{"id": "deny", "event": "before_tool", "script": "echo '{\"blocked\": true, \"reason\": \"edited policy\"}'", "enabled": true}
	]`)

	// The reload is debounced; poll until the new policy takes effect.
	require.Eventually(t, func() bool {
		out, err := manager.FireBeforeToolEvent(context.Background(), "read_file", nil, nil)
		return err == nil && out.BlockingError() != nil
	}, 5*time.Second, 100*time.Millisecond)
}

func TestWatcherKeepsOldHooksWhenNewFileIsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hooks.json")
	writeHooksFile(t, path, `[
		{"id": "deny", "event": "before_tool", "script": "echo '{\"blocked\": true}'", "enabled": true}
	]`)

	manager := newTestManager(t)
	require.NoError(t, manager.Reload(mustLoad(t, path)))

	watcher, err := NewWatcher(zerolog.Nop(), manager, path)
	require.NoError(t, err)
	defer watcher.Stop()

	writeHooksFile(t, path, `not json at all`)

	// Give the debounced reload time to run, then confirm the old policy
	// still applies.
	time.Sleep(1 * time.Second)
	out, err := manager.FireBeforeToolEvent(context.Background(), "read_file", nil, nil)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Error(t, out.BlockingError())
}

func mustLoad(t *testing.T, path string) []Hook {
	t.Helper()
	loaded, err := LoadHooksFile(path)
	require.NoError(t, err)
	return loaded
}
