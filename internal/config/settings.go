package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings are the user-editable sync preferences, kept in a yaml file so
// the UI (or an editor) can change them while the daemon runs. The
// settings watcher picks up file changes live.
type Settings struct {
	AutoSync            bool   `yaml:"autoSync"`
	SyncIntervalMinutes int    `yaml:"syncIntervalMinutes"`
	SyncOnStartup       bool   `yaml:"syncOnStartup"`
	SyncBeforeClose     bool   `yaml:"syncBeforeClose"`
	ConflictResolution  string `yaml:"conflictResolution"` // "ask" | "local" | "remote" | "merge"
	BackupBeforeSync    bool   `yaml:"backupBeforeSync"`
	DebounceSeconds     int    `yaml:"debounceSeconds"`
}

// DefaultSettings mirror the behavior a fresh install should have:
// automatic background sync with conflicts surfaced to the user.
func DefaultSettings() Settings {
	return Settings{
		AutoSync:            true,
		SyncIntervalMinutes: 15,
		SyncOnStartup:       true,
		SyncBeforeClose:     true,
		ConflictResolution:  "ask",
		BackupBeforeSync:    false,
		DebounceSeconds:     3,
	}
}

// SyncInterval returns the periodic sync interval as a duration.
func (s Settings) SyncInterval() time.Duration {
	return time.Duration(s.SyncIntervalMinutes) * time.Minute
}

// Debounce returns the edit-coalescing window as a duration.
func (s Settings) Debounce() time.Duration {
	return time.Duration(s.DebounceSeconds) * time.Second
}

// Validate rejects values the scheduler cannot work with.
func (s Settings) Validate() error {
	if s.SyncIntervalMinutes < 1 {
		return fmt.Errorf("syncIntervalMinutes must be >= 1, got %d", s.SyncIntervalMinutes)
	}
	if s.DebounceSeconds < 0 {
		return fmt.Errorf("debounceSeconds must be >= 0, got %d", s.DebounceSeconds)
	}
	switch s.ConflictResolution {
	case "ask", "local", "remote", "merge":
	default:
		return fmt.Errorf("unknown conflictResolution %q", s.ConflictResolution)
	}
	return nil
}

// LoadSettings reads the settings file. A missing file yields the
// defaults; an unreadable or invalid file is an error so a typo never
// silently reverts the user's preferences.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read settings file: %w", err)
	}

	settings := DefaultSettings()
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("failed to parse settings yaml: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// SaveSettings writes the settings file, creating it when absent.
func SaveSettings(path string, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}
