package engine

import (
	"time"

	"github.com/markstack/markstack/internal/domain"
)

// Merge computes a deterministic field-level union of two snapshots.
// Groups and entries are united by id; on collision the side with the
// later UpdatedAt wins, local on exact ties. Output order is local items
// first (in local order), then remote-only items (in remote order), so
// repeated calls with the same inputs yield identical output.
//
// Merge is pure except for the top-level LastUpdated, which is set to the
// merge time. It never talks to the network.
func Merge(local, remote *domain.Snapshot) *domain.Snapshot {
	out := &domain.Snapshot{
		Groups:      mergeGroups(local.Groups, remote.Groups),
		Entries:     mergeEntries(local.Entries, remote.Entries),
		LastUpdated: time.Now(),
	}
	return out
}

func mergeGroups(local, remote []domain.BookmarkGroup) []domain.BookmarkGroup {
	remoteByID := make(map[string]domain.BookmarkGroup, len(remote))
	for _, g := range remote {
		remoteByID[g.ID] = g
	}

	out := make([]domain.BookmarkGroup, 0, len(local)+len(remote))
	seen := make(map[string]bool, len(local))

	for _, g := range local {
		if rg, ok := remoteByID[g.ID]; ok && rg.UpdatedAt.After(g.UpdatedAt) {
			g = rg
		}
		out = append(out, g)
		seen[g.ID] = true
	}
	for _, g := range remote {
		if !seen[g.ID] {
			out = append(out, g)
		}
	}
	return out
}

func mergeEntries(local, remote []domain.BookmarkEntry) []domain.BookmarkEntry {
	remoteByID := make(map[string]domain.BookmarkEntry, len(remote))
	for _, e := range remote {
		remoteByID[e.ID] = e
	}

	out := make([]domain.BookmarkEntry, 0, len(local)+len(remote))
	seen := make(map[string]bool, len(local))

	for _, e := range local {
		if re, ok := remoteByID[e.ID]; ok && re.UpdatedAt.After(e.UpdatedAt) {
			e = re
		}
		out = append(out, e)
		seen[e.ID] = true
	}
	for _, e := range remote {
		if !seen[e.ID] {
			out = append(out, e)
		}
	}
	return out
}
