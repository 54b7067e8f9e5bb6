// Package meta computes content checksums and builds the sync metadata
// record that travels next to a snapshot in the remote document.
// Pure functions, no I/O.
package meta

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/markstack/markstack/internal/domain"
)

// SchemaVersion is stamped into every metadata record. Bump only on
// incompatible changes to the remote document format.
const SchemaVersion = "1.0"

// canonicalSnapshot is the checksum input: groups and entries sorted by id,
// tags sorted, LastUpdated excluded. Excluding the timestamp means a pure
// clock bump never reads as new content, and array order never affects the
// digest.
type canonicalSnapshot struct {
	Groups  []domain.BookmarkGroup `json:"groups"`
	Entries []domain.BookmarkEntry `json:"entries"`
}

// Checksum returns a deterministic, order-independent digest of the
// snapshot content. A cheap corruption/tamper signal, not a security
// primitive.
func Checksum(s *domain.Snapshot) string {
	canon := canonicalSnapshot{
		Groups:  make([]domain.BookmarkGroup, len(s.Groups)),
		Entries: make([]domain.BookmarkEntry, len(s.Entries)),
	}
	copy(canon.Groups, s.Groups)
	for i, e := range s.Entries {
		if len(e.Tags) > 0 {
			tags := make([]string, len(e.Tags))
			copy(tags, e.Tags)
			sort.Strings(tags)
			e.Tags = tags
		}
		canon.Entries[i] = e
	}
	sort.Slice(canon.Groups, func(i, j int) bool {
		return canon.Groups[i].ID < canon.Groups[j].ID
	})
	sort.Slice(canon.Entries, func(i, j int) bool {
		return canon.Entries[i].ID < canon.Entries[j].ID
	})

	// Struct field order is fixed, so this marshal is deterministic.
	data, err := json.Marshal(canon)
	if err != nil {
		// Snapshots contain only marshalable types; this cannot happen.
		panic(err)
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Build stamps a new metadata record for an upload: current time, the
// uploader's device id, an incremented sync counter and a fresh checksum.
func Build(s *domain.Snapshot, deviceID string, previousSyncCount int) domain.SyncMetadata {
	return domain.SyncMetadata{
		SchemaVersion: SchemaVersion,
		LastSync:      time.Now(),
		DeviceID:      deviceID,
		SyncCount:     previousSyncCount + 1,
		Checksum:      Checksum(s),
	}
}
