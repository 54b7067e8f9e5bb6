package domain

import (
	"fmt"
	"time"
)

// Snapshot is the complete bookmark state of one installation: all groups,
// all entries and a top-level last-modified time. It is the unit of
// synchronization - always read, written and compared as a whole.
type Snapshot struct {
	Groups      []BookmarkGroup `json:"groups" validate:"dive"`
	Entries     []BookmarkEntry `json:"entries" validate:"dive"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

// NewSnapshot returns an empty snapshot stamped with now.
// Created once at first install, mutated in place by the CRUD layer.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Groups:      []BookmarkGroup{},
		Entries:     []BookmarkEntry{},
		LastUpdated: time.Now(),
	}
}

// Validate checks referential integrity: every entry must point at an
// existing group within the same snapshot. The sync engine refuses to
// repair orphans; the CRUD layer must never produce them.
func (s *Snapshot) Validate() error {
	groupIDs := make(map[string]bool, len(s.Groups))
	for _, g := range s.Groups {
		if g.ID == "" {
			return fmt.Errorf("group %q has empty id", g.Name)
		}
		groupIDs[g.ID] = true
	}
	for _, e := range s.Entries {
		if e.ID == "" {
			return fmt.Errorf("entry %q has empty id", e.Title)
		}
		if !groupIDs[e.GroupID] {
			return fmt.Errorf("entry %s references unknown group %s", e.ID, e.GroupID)
		}
	}
	return nil
}

// Clone returns a deep copy. Slices are copied so the caller can mutate
// the clone without racing the original.
func (s *Snapshot) Clone() *Snapshot {
	out := &Snapshot{
		Groups:      make([]BookmarkGroup, len(s.Groups)),
		Entries:     make([]BookmarkEntry, len(s.Entries)),
		LastUpdated: s.LastUpdated,
	}
	copy(out.Groups, s.Groups)
	for i, e := range s.Entries {
		if e.Tags != nil {
			tags := make([]string, len(e.Tags))
			copy(tags, e.Tags)
			e.Tags = tags
		}
		out.Entries[i] = e
	}
	return out
}

// Group returns the group with the given id, if present.
func (s *Snapshot) Group(id string) (*BookmarkGroup, bool) {
	for i := range s.Groups {
		if s.Groups[i].ID == id {
			return &s.Groups[i], true
		}
	}
	return nil, false
}

// Entry returns the entry with the given id, if present.
func (s *Snapshot) Entry(id string) (*BookmarkEntry, bool) {
	for i := range s.Entries {
		if s.Entries[i].ID == id {
			return &s.Entries[i], true
		}
	}
	return nil, false
}
