// Package local holds the mutable in-memory bookmark snapshot: the single
// logical writer per device. Every mutation bumps the snapshot's
// LastUpdated and raises a change signal the scheduler debounces into
// sync attempts.
package local

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/markstack/markstack/internal/domain"
)

// Store is the in-memory snapshot holder. Safe for concurrent readers;
// mutations are serialized by the lock.
type Store struct {
	mu      sync.RWMutex
	snap    *domain.Snapshot
	changed chan struct{}
}

// New wraps an initial snapshot (the persisted last-known one, or a fresh
// empty snapshot at first install).
func New(initial *domain.Snapshot) *Store {
	if initial == nil {
		initial = domain.NewSnapshot()
	}
	return &Store{
		snap:    initial,
		changed: make(chan struct{}, 1),
	}
}

// Changed signals after every local mutation. Buffered with size one:
// bursts collapse into a single pending signal.
func (s *Store) Changed() <-chan struct{} {
	return s.changed
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() *domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone()
}

// Replace overwrites the whole snapshot, used when a sync downloads the
// remote state or a backup is restored. Deliberately does not raise the
// change signal: applying a sync result must not trigger another sync.
func (s *Store) Replace(snap *domain.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap.Clone()
}

// CreateGroup adds a group. A missing id is generated; Order defaults to
// the end of the list.
func (s *Store) CreateGroup(g domain.BookmarkGroup) domain.BookmarkGroup {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.Order == 0 {
		g.Order = len(s.snap.Groups)
	}
	g.UpdatedAt = time.Now()
	s.snap.Groups = append(s.snap.Groups, g)
	s.bump()
	return g
}

// UpdateGroup replaces the stored group with the same id.
func (s *Store) UpdateGroup(g domain.BookmarkGroup) (domain.BookmarkGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.snap.Groups {
		if s.snap.Groups[i].ID == g.ID {
			g.UpdatedAt = time.Now()
			s.snap.Groups[i] = g
			s.bump()
			return g, nil
		}
	}
	return domain.BookmarkGroup{}, fmt.Errorf("group not found: %s", g.ID)
}

// DeleteGroup removes a group and every entry belonging to it.
func (s *Store) DeleteGroup(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	groups := s.snap.Groups[:0]
	for _, g := range s.snap.Groups {
		if g.ID == id {
			found = true
			continue
		}
		groups = append(groups, g)
	}
	if !found {
		return fmt.Errorf("group not found: %s", id)
	}
	s.snap.Groups = groups

	entries := s.snap.Entries[:0]
	for _, e := range s.snap.Entries {
		if e.GroupID != id {
			entries = append(entries, e)
		}
	}
	s.snap.Entries = entries
	s.bump()
	return nil
}

// CreateEntry adds an entry to an existing group.
func (s *Store) CreateEntry(e domain.BookmarkEntry) (domain.BookmarkEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groupLocked(e.GroupID); !ok {
		return domain.BookmarkEntry{}, fmt.Errorf("group not found: %s", e.GroupID)
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Order == 0 {
		e.Order = s.groupSizeLocked(e.GroupID)
	}
	now := time.Now()
	e.CreatedAt = now
	e.UpdatedAt = now
	s.snap.Entries = append(s.snap.Entries, e)
	s.bump()
	return e, nil
}

// UpdateEntry replaces the stored entry with the same id. CreatedAt is
// preserved from the stored copy.
func (s *Store) UpdateEntry(e domain.BookmarkEntry) (domain.BookmarkEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groupLocked(e.GroupID); !ok {
		return domain.BookmarkEntry{}, fmt.Errorf("group not found: %s", e.GroupID)
	}

	for i := range s.snap.Entries {
		if s.snap.Entries[i].ID == e.ID {
			e.CreatedAt = s.snap.Entries[i].CreatedAt
			e.UpdatedAt = time.Now()
			s.snap.Entries[i] = e
			s.bump()
			return e, nil
		}
	}
	return domain.BookmarkEntry{}, fmt.Errorf("entry not found: %s", e.ID)
}

// DeleteEntry removes an entry.
func (s *Store) DeleteEntry(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.snap.Entries {
		if s.snap.Entries[i].ID == id {
			s.snap.Entries = append(s.snap.Entries[:i], s.snap.Entries[i+1:]...)
			s.bump()
			return nil
		}
	}
	return fmt.Errorf("entry not found: %s", id)
}

// Count returns (groups, entries) sizes.
func (s *Store) Count() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snap.Groups), len(s.snap.Entries)
}

// LastUpdated returns the snapshot's top-level modification time.
func (s *Store) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.LastUpdated
}

// bump must be called with the write lock held.
func (s *Store) bump() {
	s.snap.LastUpdated = time.Now()
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

func (s *Store) groupLocked(id string) (*domain.BookmarkGroup, bool) {
	for i := range s.snap.Groups {
		if s.snap.Groups[i].ID == id {
			return &s.snap.Groups[i], true
		}
	}
	return nil, false
}

func (s *Store) groupSizeLocked(groupID string) int {
	n := 0
	for i := range s.snap.Entries {
		if s.snap.Entries[i].GroupID == groupID {
			n++
		}
	}
	return n
}
