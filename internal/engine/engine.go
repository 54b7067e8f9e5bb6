// Package engine owns the sync protocol: locate the remote document,
// classify divergence, decide upload/download/no-op/conflict, and report
// a SyncResult. It never retries (the gist client already did) and never
// returns a bare error to its caller.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/markstack/markstack/internal/domain"
	"github.com/markstack/markstack/internal/gist"
	"github.com/markstack/markstack/internal/logger"
	"github.com/markstack/markstack/internal/meta"
)

// State is the engine's externally visible sync state.
type State string

const (
	StateIdle     State = "idle"
	StateSyncing  State = "syncing"
	StateConflict State = "conflict"
)

// DocumentStore is the slice of the gist client the engine needs.
type DocumentStore interface {
	IsAuthenticated() bool
	FindDocument(ctx context.Context, marker string) (*gist.Handle, error)
	GetDocument(ctx context.Context, id string) (*gist.Document, error)
	CreateDocument(ctx context.Context, description string, files map[string]string) (*gist.Handle, error)
	UpdateDocument(ctx context.Context, id string, files map[string]string) (*gist.Handle, error)
}

// SyncState persists the engine's durable bits between runs: the cached
// remote document id and the last sync metadata (source of the sync
// counter). Failures here are logged but never fail a sync.
type SyncState interface {
	CachedDocumentID(ctx context.Context) (string, error)
	SaveDocumentID(ctx context.Context, id string) error
	LastMetadata(ctx context.Context) (*domain.SyncMetadata, error)
	SaveMetadata(ctx context.Context, m domain.SyncMetadata) error
}

// Engine orchestrates sync attempts against the single remote document.
// At most one attempt is in flight at a time; a call arriving while one
// runs is rejected, never run in parallel.
type Engine struct {
	store    DocumentStore
	state    SyncState
	deviceID string
	logger   logger.Logger

	mu         sync.Mutex
	syncState  State
	conflict   *domain.SyncConflict
	lastResult *domain.SyncResult
}

// New wires an engine. The device id must be the stable per-installation
// identifier from the local store.
func New(store DocumentStore, state SyncState, deviceID string, log logger.Logger) *Engine {
	return &Engine{
		store:     store,
		state:     state,
		deviceID:  deviceID,
		logger:    log,
		syncState: StateIdle,
	}
}

// State returns the current sync state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.syncState
}

// LastResult returns the most recent sync result, or nil before the first
// attempt.
func (e *Engine) LastResult() *domain.SyncResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastResult
}

// Conflict returns the pending conflict, or nil.
func (e *Engine) Conflict() *domain.SyncConflict {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conflict
}

// DeviceID returns this installation's identifier.
func (e *Engine) DeviceID() string {
	return e.deviceID
}

// Sync runs one full sync attempt for the given local snapshot.
//
// A pending conflict is discarded and regenerated by this attempt if the
// divergence still exists; a sync already in flight rejects the call.
func (e *Engine) Sync(ctx context.Context, local *domain.Snapshot, trigger domain.SyncTrigger) domain.SyncResult {
	if !e.store.IsAuthenticated() {
		// No state transition: an unauthenticated attempt is a no-op.
		return e.record(failure("not authenticated"))
	}

	e.mu.Lock()
	if e.syncState == StateSyncing {
		e.mu.Unlock()
		return failure("sync already in progress")
	}
	if e.conflict != nil {
		// Stale conflict from a previous attempt; this run re-detects.
		e.logger.Info("discarding stale conflict before new sync")
		e.conflict = nil
	}
	e.syncState = StateSyncing
	e.mu.Unlock()

	e.logger.Info("sync started",
		logger.String("trigger", string(trigger)),
		logger.String("device_id", e.deviceID))

	result := e.sync(ctx, local)

	e.mu.Lock()
	if result.Action == domain.ActionConflict {
		e.syncState = StateConflict
		e.conflict = result.Conflict
	} else {
		// Failures settle back to idle too; the error stays visible
		// through LastResult and the next attempt is a normal retry.
		e.syncState = StateIdle
	}
	e.mu.Unlock()

	e.logger.Info("sync finished",
		logger.String("trigger", string(trigger)),
		logger.String("action", string(result.Action)),
		logger.Bool("success", result.Success))

	return e.record(result)
}

func (e *Engine) sync(ctx context.Context, local *domain.Snapshot) domain.SyncResult {
	docID, err := e.locateDocument(ctx)
	if err != nil {
		return failure(err.Error())
	}

	// First sync ever for this account: upload local as a new document.
	if docID == "" {
		return e.uploadNew(ctx, local)
	}

	doc, err := e.store.GetDocument(ctx, docID)
	if err != nil {
		return failure(err.Error())
	}

	remote, remoteMeta, err := parseRemote(doc)
	if err != nil {
		var integrity *gist.DataIntegrityError
		if errors.As(err, &integrity) {
			// Corrupted remote: treat as no usable remote data and
			// overwrite with local rather than crash.
			e.logger.Warn("remote document corrupted, overwriting with local",
				logger.String("doc_id", docID),
				logger.Error(err))
			return e.upload(ctx, docID, local)
		}
		return failure(err.Error())
	}

	// Identical content on both sides: nothing to do regardless of
	// timestamps. This is what makes back-to-back syncs idempotent.
	if meta.Checksum(local) == remoteMeta.Checksum {
		return domain.SyncResult{
			Success:     true,
			Action:      domain.ActionNoChange,
			RemoteDocID: docID,
			Timestamp:   time.Now(),
		}
	}

	localMeta := e.localMetadata(ctx, local)
	if conflict := Detect(local, localMeta, remote, remoteMeta, e.deviceID); conflict != nil {
		return domain.SyncResult{
			Success:     false,
			Action:      domain.ActionConflict,
			Conflict:    conflict,
			RemoteDocID: docID,
			Timestamp:   time.Now(),
		}
	}

	if remote.LastUpdated.After(local.LastUpdated) {
		// Remote cleanly wins: hand the snapshot back, the caller
		// replaces local state. The remote writer's metadata becomes
		// our baseline.
		if err := e.state.SaveMetadata(ctx, remoteMeta); err != nil {
			e.logger.Warn("failed to persist sync metadata", logger.Error(err))
		}
		return domain.SyncResult{
			Success:     true,
			Action:      domain.ActionDownloaded,
			Data:        remote,
			RemoteDocID: docID,
			Timestamp:   time.Now(),
		}
	}

	return e.upload(ctx, docID, local)
}

// ResolveConflict applies the chosen strategy to the pending conflict.
// On success the conflict clears and the engine returns to idle; on
// failure the conflict is retained so the user can retry the same
// resolution without re-running sync.
func (e *Engine) ResolveConflict(ctx context.Context, resolution domain.Resolution) domain.SyncResult {
	if !resolution.Valid() {
		return e.record(failure(fmt.Sprintf("unknown resolution %q", resolution)))
	}

	e.mu.Lock()
	if e.syncState == StateSyncing {
		e.mu.Unlock()
		return failure("sync already in progress")
	}
	conflict := e.conflict
	if conflict == nil {
		e.mu.Unlock()
		return e.record(failure("no conflict to resolve"))
	}
	e.syncState = StateSyncing
	e.mu.Unlock()

	e.logger.Info("resolving conflict",
		logger.String("kind", string(conflict.Kind)),
		logger.String("resolution", string(resolution)))

	result := e.resolve(ctx, conflict, resolution)

	e.mu.Lock()
	if result.Success {
		e.conflict = nil
		e.syncState = StateIdle
	} else {
		// Keep the conflict: the user's resolution context survives a
		// transient failure.
		e.syncState = StateConflict
	}
	e.mu.Unlock()

	return e.record(result)
}

func (e *Engine) resolve(ctx context.Context, conflict *domain.SyncConflict, resolution domain.Resolution) domain.SyncResult {
	docID, err := e.locateDocument(ctx)
	if err != nil {
		return failure(err.Error())
	}

	switch resolution {
	case domain.ResolveLocal:
		return e.upload(ctx, docID, conflict.Local)

	case domain.ResolveRemote:
		// No upload: the remote side is already authoritative. Adopt its
		// metadata and hand the snapshot back for local application.
		if err := e.state.SaveMetadata(ctx, conflict.RemoteMeta); err != nil {
			e.logger.Warn("failed to persist sync metadata", logger.Error(err))
		}
		return domain.SyncResult{
			Success:     true,
			Action:      domain.ActionDownloaded,
			Data:        conflict.Remote,
			RemoteDocID: docID,
			Timestamp:   time.Now(),
		}

	default: // domain.ResolveMerge
		merged := Merge(conflict.Local, conflict.Remote)
		result := e.upload(ctx, docID, merged)
		if result.Success {
			// The caller must also apply the merged snapshot locally.
			result.Data = merged
		}
		return result
	}
}

// DiscardConflict drops the pending conflict without resolving it.
func (e *Engine) DiscardConflict() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conflict != nil {
		e.conflict = nil
		e.syncState = StateIdle
		e.logger.Info("conflict discarded")
	}
}

// locateDocument returns the cached remote document id, falling back to a
// marker search. Returns "" when no remote document exists yet.
func (e *Engine) locateDocument(ctx context.Context) (string, error) {
	id, err := e.state.CachedDocumentID(ctx)
	if err != nil {
		e.logger.Warn("failed to read cached document id", logger.Error(err))
	}
	if id != "" {
		return id, nil
	}

	handle, err := e.store.FindDocument(ctx, DocumentMarker)
	if err != nil {
		return "", err
	}
	if handle == nil {
		return "", nil
	}

	if err := e.state.SaveDocumentID(ctx, handle.ID); err != nil {
		e.logger.Warn("failed to cache document id", logger.Error(err))
	}
	return handle.ID, nil
}

// uploadNew creates the remote document for the first time.
func (e *Engine) uploadNew(ctx context.Context, local *domain.Snapshot) domain.SyncResult {
	m := e.nextMetadata(ctx, local)
	files, err := encodeRemote(local, m)
	if err != nil {
		return failure(err.Error())
	}

	handle, err := e.store.CreateDocument(ctx, DocumentDescription, files)
	if err != nil {
		return failure(err.Error())
	}

	if err := e.state.SaveDocumentID(ctx, handle.ID); err != nil {
		e.logger.Warn("failed to cache document id", logger.Error(err))
	}
	if err := e.state.SaveMetadata(ctx, m); err != nil {
		e.logger.Warn("failed to persist sync metadata", logger.Error(err))
	}

	e.logger.Info("created remote document", logger.String("doc_id", handle.ID))

	return domain.SyncResult{
		Success:     true,
		Action:      domain.ActionUploaded,
		RemoteDocID: handle.ID,
		Timestamp:   time.Now(),
	}
}

// upload overwrites the remote document's blobs with the given snapshot
// and freshly bumped metadata.
func (e *Engine) upload(ctx context.Context, docID string, snap *domain.Snapshot) domain.SyncResult {
	m := e.nextMetadata(ctx, snap)
	files, err := encodeRemote(snap, m)
	if err != nil {
		return failure(err.Error())
	}

	if _, err := e.store.UpdateDocument(ctx, docID, files); err != nil {
		return failure(err.Error())
	}

	if err := e.state.SaveMetadata(ctx, m); err != nil {
		e.logger.Warn("failed to persist sync metadata", logger.Error(err))
	}

	return domain.SyncResult{
		Success:     true,
		Action:      domain.ActionUploaded,
		RemoteDocID: docID,
		Timestamp:   time.Now(),
	}
}

// nextMetadata builds the metadata record for an upload, continuing the
// persisted sync counter.
func (e *Engine) nextMetadata(ctx context.Context, snap *domain.Snapshot) domain.SyncMetadata {
	prevCount := 0
	if last, err := e.state.LastMetadata(ctx); err != nil {
		e.logger.Warn("failed to read last sync metadata", logger.Error(err))
	} else if last != nil {
		prevCount = last.SyncCount
	}
	return meta.Build(snap, e.deviceID, prevCount)
}

// localMetadata describes the local side for conflict attribution. The
// persisted record is used when present; otherwise a zero-count record is
// synthesized for a device that has never uploaded.
func (e *Engine) localMetadata(ctx context.Context, snap *domain.Snapshot) domain.SyncMetadata {
	if last, err := e.state.LastMetadata(ctx); err == nil && last != nil {
		return *last
	}
	return domain.SyncMetadata{
		SchemaVersion: meta.SchemaVersion,
		DeviceID:      e.deviceID,
		Checksum:      meta.Checksum(snap),
	}
}

func (e *Engine) record(result domain.SyncResult) domain.SyncResult {
	e.mu.Lock()
	e.lastResult = &result
	e.mu.Unlock()
	return result
}

func failure(msg string) domain.SyncResult {
	return domain.SyncResult{
		Success:   false,
		Action:    domain.ActionNoChange,
		Error:     msg,
		Timestamp: time.Now(),
	}
}
