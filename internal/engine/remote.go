package engine

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/markstack/markstack/internal/domain"
	"github.com/markstack/markstack/internal/gist"
)

const (
	// DocumentMarker identifies "the" bookmark document among the user's
	// remote documents; FindDocument matches on description.
	DocumentMarker = "markstack-sync"

	// DocumentDescription is written on the remote document at creation.
	DocumentDescription = "markstack-sync: bookmark data (managed, do not edit)"

	// DataFile is the blob holding the serialized snapshot.
	DataFile = "markstack-bookmarks.json"

	// MetaFile is the blob holding the serialized sync metadata.
	MetaFile = "markstack-sync-meta.json"
)

var validate = validator.New()

// parseRemote decodes and validates the snapshot and metadata blobs of a
// remote document. Any failure comes back as a DataIntegrityError, which
// the engine treats as "no usable remote data".
func parseRemote(doc *gist.Document) (*domain.Snapshot, domain.SyncMetadata, error) {
	var meta domain.SyncMetadata

	dataRaw, ok := doc.Files[DataFile]
	if !ok {
		return nil, meta, &gist.DataIntegrityError{Reason: fmt.Sprintf("blob %s missing", DataFile)}
	}
	metaRaw, ok := doc.Files[MetaFile]
	if !ok {
		return nil, meta, &gist.DataIntegrityError{Reason: fmt.Sprintf("blob %s missing", MetaFile)}
	}

	var snap domain.Snapshot
	if err := json.Unmarshal([]byte(dataRaw), &snap); err != nil {
		return nil, meta, &gist.DataIntegrityError{Reason: fmt.Sprintf("snapshot unreadable: %v", err)}
	}
	if err := json.Unmarshal([]byte(metaRaw), &meta); err != nil {
		return nil, meta, &gist.DataIntegrityError{Reason: fmt.Sprintf("metadata unreadable: %v", err)}
	}

	if err := validate.Struct(&snap); err != nil {
		return nil, meta, &gist.DataIntegrityError{Reason: fmt.Sprintf("snapshot invalid: %v", err)}
	}
	if err := validate.Struct(&meta); err != nil {
		return nil, meta, &gist.DataIntegrityError{Reason: fmt.Sprintf("metadata invalid: %v", err)}
	}
	if err := snap.Validate(); err != nil {
		return nil, meta, &gist.DataIntegrityError{Reason: fmt.Sprintf("snapshot inconsistent: %v", err)}
	}

	return &snap, meta, nil
}

// encodeRemote renders the two blobs for upload. Pretty-printed so the
// document stays human-inspectable in the gist UI.
func encodeRemote(snap *domain.Snapshot, meta domain.SyncMetadata) (map[string]string, error) {
	dataRaw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	metaRaw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return map[string]string{
		DataFile: string(dataRaw),
		MetaFile: string(metaRaw),
	}, nil
}
