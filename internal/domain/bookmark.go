package domain

import (
	"sort"
	"time"
)

// BookmarkGroup is a named collection of bookmark entries.
// Groups are the unit the UI renders as a stack.
type BookmarkGroup struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is the canonical unique identifier.
	ID string `json:"id" validate:"required"`

	// Name is the user-visible group label.
	// Example: "Reading", "Work"
	Name string `json:"name" validate:"required"`

	// ─────────────────────────────
	// Presentation
	// ─────────────────────────────

	// Icon is an optional icon identifier chosen by the user.
	Icon string `json:"icon,omitempty"`

	// Color is an optional accent color (hex or named).
	Color string `json:"color,omitempty"`

	// Order defines the display position among all groups.
	// Not required unique; ties keep insertion order.
	Order int `json:"order"`

	// ─────────────────────────────
	// Metadata
	// ─────────────────────────────

	// UpdatedAt is bumped on any mutation of the group itself
	// (rename, recolor, reorder). Used as the merge tie-breaker.
	UpdatedAt time.Time `json:"updatedAt"`
}

// BookmarkEntry is a single saved URL belonging to exactly one group.
type BookmarkEntry struct {
	// ID is the canonical unique identifier.
	ID string `json:"id" validate:"required"`

	// GroupID references the owning BookmarkGroup.ID.
	GroupID string `json:"groupId" validate:"required"`

	// Title is the user-visible label.
	Title string `json:"title" validate:"required"`

	// URL is the bookmarked address.
	URL string `json:"url" validate:"required"`

	// Description is an optional free-form note.
	Description string `json:"description,omitempty"`

	// FaviconURL points at the site favicon, if resolved.
	FaviconURL string `json:"faviconUrl,omitempty"`

	// ImageURL points at a preview image, if resolved.
	ImageURL string `json:"imageUrl,omitempty"`

	// Tags is an optional set of labels. Order is not significant.
	Tags []string `json:"tags,omitempty"`

	// Pinned entries sort before unpinned ones regardless of Order.
	Pinned bool `json:"pinned,omitempty"`

	// Order defines the display position within the group.
	Order int `json:"order"`

	// CreatedAt is set once when the entry is first saved.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is bumped on any mutation. Used for merge tie-breaks.
	UpdatedAt time.Time `json:"updatedAt"`
}

// SortGroups orders groups by Order, keeping insertion order on ties.
func SortGroups(groups []BookmarkGroup) {
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Order < groups[j].Order
	})
}

// SortEntries orders entries for display: pinned entries always come
// before unpinned ones, then by Order, insertion order on ties.
func SortEntries(entries []BookmarkEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Pinned != entries[j].Pinned {
			return entries[i].Pinned
		}
		return entries[i].Order < entries[j].Order
	})
}
