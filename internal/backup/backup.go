// Package backup snapshots the bookmark data into timestamp-suffixed
// blobs inside the same remote document the sync engine maintains. A thin
// wrapper over the document-store primitives, not a second sync protocol.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/markstack/markstack/internal/domain"
	"github.com/markstack/markstack/internal/engine"
	"github.com/markstack/markstack/internal/gist"
	"github.com/markstack/markstack/internal/logger"
	"github.com/markstack/markstack/internal/meta"
)

const (
	blobPrefix = "markstack-backup-"
	infoSuffix = ".info.json"
	dataSuffix = ".json"

	// idFormat renders the backup id from its creation time.
	idFormat = "20060102T150405Z"
)

// Info describes one stored backup.
type Info struct {
	ID            string    `json:"id"`
	Label         string    `json:"label,omitempty"`
	Created       time.Time `json:"created"`
	DeviceID      string    `json:"deviceId"`
	SchemaVersion string    `json:"schemaVersion"`
}

// Manager creates, lists and restores backups.
type Manager struct {
	store    engine.DocumentStore
	state    engine.SyncState
	deviceID string
	logger   logger.Logger
}

// NewManager wires a backup manager against the same document store and
// sync state the engine uses.
func NewManager(store engine.DocumentStore, state engine.SyncState, deviceID string, log logger.Logger) *Manager {
	return &Manager{
		store:    store,
		state:    state,
		deviceID: deviceID,
		logger:   log,
	}
}

// Create stores the given snapshot as a new backup blob pair. The remote
// document must already exist (at least one sync must have run).
func (m *Manager) Create(ctx context.Context, snap *domain.Snapshot, label string) (*Info, error) {
	docID, err := m.documentID(ctx)
	if err != nil {
		return nil, err
	}

	created := time.Now().UTC()
	info := &Info{
		ID:            created.Format(idFormat),
		Label:         label,
		Created:       created,
		DeviceID:      m.deviceID,
		SchemaVersion: meta.SchemaVersion,
	}

	dataRaw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode backup snapshot: %w", err)
	}
	infoRaw, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode backup info: %w", err)
	}

	files := map[string]string{
		blobPrefix + info.ID + dataSuffix: string(dataRaw),
		blobPrefix + info.ID + infoSuffix: string(infoRaw),
	}
	if _, err := m.store.UpdateDocument(ctx, docID, files); err != nil {
		return nil, err
	}

	m.logger.Info("backup created",
		logger.String("backup_id", info.ID),
		logger.String("label", label))
	return info, nil
}

// List returns all backups in the remote document, newest first.
func (m *Manager) List(ctx context.Context) ([]Info, error) {
	docID, err := m.documentID(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := m.store.GetDocument(ctx, docID)
	if err != nil {
		return nil, err
	}

	var backups []Info
	for name, content := range doc.Files {
		if !strings.HasPrefix(name, blobPrefix) || !strings.HasSuffix(name, infoSuffix) {
			continue
		}
		var info Info
		if err := json.Unmarshal([]byte(content), &info); err != nil {
			m.logger.Warn("skipping unreadable backup info blob",
				logger.String("blob", name),
				logger.Error(err))
			continue
		}
		backups = append(backups, info)
	}

	// Newest first.
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Created.After(backups[j].Created)
	})
	return backups, nil
}

// Restore fetches the snapshot stored under the given backup id. The
// caller applies it locally; restore never touches the live data blob.
func (m *Manager) Restore(ctx context.Context, id string) (*domain.Snapshot, error) {
	docID, err := m.documentID(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := m.store.GetDocument(ctx, docID)
	if err != nil {
		return nil, err
	}

	content, ok := doc.Files[blobPrefix+id+dataSuffix]
	if !ok {
		return nil, fmt.Errorf("backup not found: %s", id)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal([]byte(content), &snap); err != nil {
		return nil, &gist.DataIntegrityError{Reason: fmt.Sprintf("backup %s unreadable: %v", id, err)}
	}
	if err := snap.Validate(); err != nil {
		return nil, &gist.DataIntegrityError{Reason: fmt.Sprintf("backup %s inconsistent: %v", id, err)}
	}

	m.logger.Info("backup restored", logger.String("backup_id", id))
	return &snap, nil
}

func (m *Manager) documentID(ctx context.Context) (string, error) {
	id, err := m.state.CachedDocumentID(ctx)
	if err != nil {
		m.logger.Warn("failed to read cached document id", logger.Error(err))
	}
	if id != "" {
		return id, nil
	}

	handle, err := m.store.FindDocument(ctx, engine.DocumentMarker)
	if err != nil {
		return "", err
	}
	if handle == nil {
		return "", fmt.Errorf("no remote document exists yet, sync at least once before backing up")
	}
	return handle.ID, nil
}
