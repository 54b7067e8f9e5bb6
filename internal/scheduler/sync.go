// Package scheduler turns triggers (startup, periodic timer, local edits,
// manual calls, shutdown) into sync attempts, and applies sync results
// back onto local state. A debounce window coalesces bursts of edits into
// one attempt instead of syncing after every keystroke-level mutation.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/markstack/markstack/internal/backup"
	"github.com/markstack/markstack/internal/config"
	"github.com/markstack/markstack/internal/domain"
	"github.com/markstack/markstack/internal/engine"
	"github.com/markstack/markstack/internal/local"
	"github.com/markstack/markstack/internal/logger"
)

// SnapshotPersister saves the last-known snapshot between runs. The redis
// store implements it; failures are logged, never fatal.
type SnapshotPersister interface {
	SaveSnapshot(ctx context.Context, snap *domain.Snapshot) error
}

// SyncScheduler owns the background sync loop and the apply-result
// pipeline shared by background and on-demand syncs.
type SyncScheduler struct {
	engine  *engine.Engine
	local   *local.Store
	store   SnapshotPersister
	backups *backup.Manager
	logger  logger.Logger

	mu       sync.Mutex
	settings config.Settings

	settingsCh chan config.Settings
	stopCh     chan struct{}
}

// NewSyncScheduler wires the scheduler. Settings can change at runtime
// via UpdateSettings.
func NewSyncScheduler(
	eng *engine.Engine,
	localStore *local.Store,
	store SnapshotPersister,
	backups *backup.Manager,
	settings config.Settings,
	log logger.Logger,
) *SyncScheduler {
	return &SyncScheduler{
		engine:     eng,
		local:      localStore,
		store:      store,
		backups:    backups,
		logger:     log,
		settings:   settings,
		settingsCh: make(chan config.Settings, 1),
		stopCh:     make(chan struct{}),
	}
}

// Settings returns the currently active settings.
func (s *SyncScheduler) Settings() config.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// UpdateSettings swaps the active settings; the loop picks up the new
// interval and debounce on its next wakeup.
func (s *SyncScheduler) UpdateSettings(settings config.Settings) {
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()

	select {
	case s.settingsCh <- settings:
	default:
	}

	s.logger.Info("sync settings updated",
		logger.Bool("auto_sync", settings.AutoSync),
		logger.Duration("interval", settings.SyncInterval()),
		logger.String("conflict_resolution", settings.ConflictResolution))
}

// Start runs the startup sync (when configured) and launches the loop.
func (s *SyncScheduler) Start(ctx context.Context) {
	if s.Settings().SyncOnStartup {
		result := s.SyncNow(ctx, domain.TriggerStartup)
		if !result.Success && result.Action != domain.ActionConflict {
			// Non-fatal: local data stays fully usable offline.
			s.logger.Warn("startup sync failed", logger.String("error", result.Error))
		}
	}

	go s.loop(ctx)
}

// Stop terminates the background loop.
func (s *SyncScheduler) Stop() {
	close(s.stopCh)
}

// BeforeClose runs the final sync on shutdown when configured.
func (s *SyncScheduler) BeforeClose(ctx context.Context) {
	if !s.Settings().SyncBeforeClose {
		return
	}
	result := s.SyncNow(ctx, domain.TriggerBeforeClose)
	if !result.Success {
		s.logger.Warn("before-close sync failed", logger.String("error", result.Error))
	}
}

func (s *SyncScheduler) loop(ctx context.Context) {
	settings := s.Settings()
	ticker := time.NewTicker(settings.SyncInterval())
	defer ticker.Stop()

	// Debounce state for local-edit bursts. The timer exists only while a
	// burst is pending.
	var debounce *time.Timer
	var debounceC <-chan time.Time

	for {
		select {
		case <-ticker.C:
			if settings.AutoSync && s.engine.State() == engine.StateIdle {
				s.SyncNow(ctx, domain.TriggerAuto)
			}

		case <-s.local.Changed():
			if !settings.AutoSync {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(settings.Debounce())
				debounceC = debounce.C
			} else {
				// Drain a tick that fired between selects before
				// rearming, otherwise the stale tick ends the burst
				// early.
				if !debounce.Stop() {
					select {
					case <-debounceC:
					default:
					}
				}
				debounce.Reset(settings.Debounce())
			}

		case <-debounceC:
			debounce = nil
			debounceC = nil
			s.SyncNow(ctx, domain.TriggerAuto)

		case settings = <-s.settingsCh:
			ticker.Reset(settings.SyncInterval())

		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// SyncNow runs one sync attempt for the current local snapshot and
// applies the result: downloads replace local state, successes persist
// the snapshot, and conflicts auto-resolve when the user preference says
// so. Safe to call from any goroutine; the engine's single-flight guard
// rejects overlap.
func (s *SyncScheduler) SyncNow(ctx context.Context, trigger domain.SyncTrigger) domain.SyncResult {
	settings := s.Settings()

	if settings.BackupBeforeSync && s.engine.State() != engine.StateSyncing {
		if _, err := s.backups.Create(ctx, s.local.Snapshot(), "pre-sync"); err != nil {
			// Best effort: a missed backup never blocks the sync itself.
			s.logger.Warn("pre-sync backup failed", logger.Error(err))
		}
	}

	snap := s.local.Snapshot()
	result := s.engine.Sync(ctx, snap, trigger)
	result = s.applyResult(ctx, result, snap.LastUpdated)

	if result.Action == domain.ActionConflict && settings.ConflictResolution != "ask" {
		s.logger.Info("auto-resolving conflict",
			logger.String("preference", settings.ConflictResolution))
		result = s.ResolveNow(ctx, domain.Resolution(settings.ConflictResolution))
	}

	return result
}

// ResolveNow applies a conflict resolution strategy and folds the outcome
// back into local state.
func (s *SyncScheduler) ResolveNow(ctx context.Context, resolution domain.Resolution) domain.SyncResult {
	baseline := s.local.LastUpdated()
	result := s.engine.ResolveConflict(ctx, resolution)
	return s.applyResult(ctx, result, baseline)
}

// applyResult folds a sync outcome into local state: downloaded or merged
// snapshots replace the in-memory copy, and every success refreshes the
// persisted last-known snapshot. baseline is the local LastUpdated the
// attempt started from; when local state moved past it mid-flight, the
// replace is skipped so the concurrent edit survives and the next
// debounced sync reconciles it.
func (s *SyncScheduler) applyResult(ctx context.Context, result domain.SyncResult, baseline time.Time) domain.SyncResult {
	if result.Success && result.Data != nil {
		if s.local.LastUpdated().Equal(baseline) {
			s.local.Replace(result.Data)
		} else {
			s.logger.Warn("local state changed during sync, keeping local edits",
				logger.String("action", string(result.Action)))
		}
	}
	if result.Success {
		if err := s.store.SaveSnapshot(ctx, s.local.Snapshot()); err != nil {
			s.logger.Warn("failed to persist snapshot", logger.Error(err))
		}
	}
	return result
}
