package scheduler

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/markstack/markstack/internal/config"
	"github.com/markstack/markstack/internal/logger"
)

// SettingsWatcher reloads the sync settings file when it changes on disk,
// so the UI (or the user in an editor) can adjust sync behavior without
// restarting the daemon.
type SettingsWatcher struct {
	path      string
	scheduler *SyncScheduler
	logger    logger.Logger
	watcher   *fsnotify.Watcher
	stopCh    chan struct{}
}

// NewSettingsWatcher creates a watcher for the given settings file.
func NewSettingsWatcher(path string, scheduler *SyncScheduler, log logger.Logger) *SettingsWatcher {
	return &SettingsWatcher{
		path:      path,
		scheduler: scheduler,
		logger:    log,
		stopCh:    make(chan struct{}),
	}
}

// Start begins watching. The parent directory is watched rather than the
// file itself: editors replace files on save, which would otherwise drop
// the watch.
func (w *SettingsWatcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create settings watcher: %w", err)
	}
	w.watcher = watcher

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	go w.run()

	w.logger.Info("settings watcher started", logger.String("file", w.path))
	return nil
}

// Stop ends the watch.
func (w *SettingsWatcher) Stop() {
	close(w.stopCh)
	if w.watcher != nil {
		_ = w.watcher.Close()
	}
}

func (w *SettingsWatcher) run() {
	// Editors fire several events per save; a short quiet period collapses
	// them into one reload.
	var pending *time.Timer
	var pendingC <-chan time.Time

	target := filepath.Clean(w.path)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if pending == nil {
				pending = time.NewTimer(500 * time.Millisecond)
				pendingC = pending.C
			} else {
				pending.Reset(500 * time.Millisecond)
			}

		case <-pendingC:
			pending = nil
			pendingC = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("settings watcher error", logger.Error(err))

		case <-w.stopCh:
			return
		}
	}
}

func (w *SettingsWatcher) reload() {
	settings, err := config.LoadSettings(w.path)
	if err != nil {
		// Keep the last good settings on a broken edit.
		w.logger.Warn("settings file invalid, keeping previous settings",
			logger.String("file", w.path),
			logger.Error(err))
		return
	}
	w.scheduler.UpdateSettings(settings)
}
