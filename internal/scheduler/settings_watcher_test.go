package scheduler

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/markstack/markstack/internal/config"
)

func TestSettingsWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	if err := config.SaveSettings(path, config.DefaultSettings()); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	sched, _, _, _ := newTestScheduler(config.DefaultSettings())
	watcher := NewSettingsWatcher(path, sched, sched.logger)
	if err := watcher.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer watcher.Stop()

	updated := config.DefaultSettings()
	updated.SyncIntervalMinutes = 60
	if err := config.SaveSettings(path, updated); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		if sched.Settings().SyncIntervalMinutes == 60 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("settings change never picked up")
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestSettingsWatcherKeepsPreviousOnBrokenFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	if err := config.SaveSettings(path, config.DefaultSettings()); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	sched, _, _, _ := newTestScheduler(config.DefaultSettings())
	watcher := NewSettingsWatcher(path, sched, sched.logger)

	if err := os.WriteFile(path, []byte("syncIntervalMinutes: 0\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	watcher.reload()

	if got := sched.Settings(); got != config.DefaultSettings() {
		t.Errorf("settings changed after a broken edit: %+v", got)
	}
}
