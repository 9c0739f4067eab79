package hooks

import (
	"encoding/json"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher hot-reloads hook definitions when the hooks file changes, so
// policy edits take effect without restarting the host process.
type Watcher struct {
	watcher  *fsnotify.Watcher
	manager  *Manager
	logger   zerolog.Logger
	path     string
	debounce time.Duration
	timer    *time.Timer
	stopCh   chan struct{}
}

// NewWatcher watches path, a JSON file holding an array of Hook definitions,
// and reloads manager on change.
func NewWatcher(logger zerolog.Logger, manager *Manager, path string) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fsWatcher,
		manager:  manager,
		logger:   logger.With().Str("component", "hooks-watcher").Logger(),
		path:     path,
		debounce: 500 * time.Millisecond,
		stopCh:   make(chan struct{}),
	}

	if err := fsWatcher.Add(path); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	go w.run()
	return w, nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	close(w.stopCh)
	return w.watcher.Close()
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.scheduleReload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("Hooks watcher error")
		case <-w.stopCh:
			return
		}
	}
}

// scheduleReload debounces bursts of write events into one reload.
func (w *Watcher) scheduleReload() {
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	hooks, err := LoadHooksFile(w.path)
	if err != nil {
		w.logger.Warn().Err(err).Str("path", w.path).Msg("Failed to load hooks file")
		return
	}
	if err := w.manager.Reload(hooks); err != nil {
		w.logger.Warn().Err(err).Msg("Failed to reload hooks")
		return
	}
	w.logger.Info().Int("hooks", len(hooks)).Msg("Hooks reloaded")
}

// LoadHooksFile reads hook definitions from a JSON file.
func LoadHooksFile(path string) ([]Hook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var hooks []Hook
	if err := json.Unmarshal(data, &hooks); err != nil {
		return nil, err
	}
	return hooks, nil
}
