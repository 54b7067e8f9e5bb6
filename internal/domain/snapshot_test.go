package domain

import (
	"strings"
	"testing"
	"time"
)

func TestSnapshotValidate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		snapshot Snapshot
		wantErr  string
	}{
		{
			name:     "empty snapshot is valid",
			snapshot: Snapshot{},
		},
		{
			name: "consistent snapshot is valid",
			snapshot: Snapshot{
				Groups:  []BookmarkGroup{{ID: "g1", Name: "Dev", UpdatedAt: now}},
				Entries: []BookmarkEntry{{ID: "e1", GroupID: "g1", Title: "Go", URL: "https://go.dev"}},
			},
		},
		{
			name: "group with empty id",
			snapshot: Snapshot{
				Groups: []BookmarkGroup{{Name: "Dev"}},
			},
			wantErr: "empty id",
		},
		{
			name: "entry with empty id",
			snapshot: Snapshot{
				Groups:  []BookmarkGroup{{ID: "g1", Name: "Dev"}},
				Entries: []BookmarkEntry{{GroupID: "g1", Title: "Go", URL: "https://go.dev"}},
			},
			wantErr: "empty id",
		},
		{
			name: "orphaned entry",
			snapshot: Snapshot{
				Groups:  []BookmarkGroup{{ID: "g1", Name: "Dev"}},
				Entries: []BookmarkEntry{{ID: "e1", GroupID: "ghost", Title: "Go", URL: "https://go.dev"}},
			},
			wantErr: "unknown group",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.snapshot.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSnapshotClone(t *testing.T) {
	now := time.Now()
	original := &Snapshot{
		Groups: []BookmarkGroup{{ID: "g1", Name: "Dev", UpdatedAt: now}},
		Entries: []BookmarkEntry{
			{ID: "e1", GroupID: "g1", Title: "Go", URL: "https://go.dev", Tags: []string{"lang"}},
		},
		LastUpdated: now,
	}

	clone := original.Clone()
	clone.Groups[0].Name = "mutated"
	clone.Entries[0].Tags[0] = "mutated"
	clone.Entries = append(clone.Entries, BookmarkEntry{ID: "e2", GroupID: "g1"})

	if original.Groups[0].Name != "Dev" {
		t.Error("clone aliased the group slice")
	}
	if original.Entries[0].Tags[0] != "lang" {
		t.Error("clone aliased an entry's tags")
	}
	if len(original.Entries) != 1 {
		t.Error("clone aliased the entry slice")
	}
}

func TestSnapshotLookups(t *testing.T) {
	s := &Snapshot{
		Groups:  []BookmarkGroup{{ID: "g1", Name: "Dev"}},
		Entries: []BookmarkEntry{{ID: "e1", GroupID: "g1", Title: "Go"}},
	}

	if g, ok := s.Group("g1"); !ok || g.Name != "Dev" {
		t.Errorf("Group(g1) = %+v, %v", g, ok)
	}
	if _, ok := s.Group("ghost"); ok {
		t.Error("Group(ghost) found something")
	}
	if e, ok := s.Entry("e1"); !ok || e.Title != "Go" {
		t.Errorf("Entry(e1) = %+v, %v", e, ok)
	}
	if _, ok := s.Entry("ghost"); ok {
		t.Error("Entry(ghost) found something")
	}
}

func TestSortGroups(t *testing.T) {
	groups := []BookmarkGroup{
		{ID: "c", Order: 2},
		{ID: "a", Order: 0},
		{ID: "b1", Order: 1},
		{ID: "b2", Order: 1},
	}

	SortGroups(groups)

	want := []string{"a", "b1", "b2", "c"}
	for i, id := range want {
		if groups[i].ID != id {
			t.Errorf("groups[%d].ID = %q, want %q", i, groups[i].ID, id)
		}
	}
}

func TestSortEntriesPinnedFirst(t *testing.T) {
	entries := []BookmarkEntry{
		{ID: "unpinned-0", Order: 0},
		{ID: "pinned-5", Order: 5, Pinned: true},
		{ID: "unpinned-1", Order: 1},
		{ID: "pinned-2", Order: 2, Pinned: true},
	}

	SortEntries(entries)

	want := []string{"pinned-2", "pinned-5", "unpinned-0", "unpinned-1"}
	for i, id := range want {
		if entries[i].ID != id {
			t.Errorf("entries[%d].ID = %q, want %q", i, entries[i].ID, id)
		}
	}
}
