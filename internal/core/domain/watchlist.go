package domain

import "time"

// WatchKind identifies what a watch-list entry points at.
type WatchKind string

const (
	WatchKindMovie WatchKind = "movie"
	WatchKindTV    WatchKind = "tv"
)

// IsValid reports whether k is a known watch-list kind.
func (k WatchKind) IsValid() bool {
	return k == WatchKindMovie || k == WatchKindTV
}

// WatchItem is a single entry of a user's watch list. It has no identity
// outside the user that owns it.
type WatchItem struct {
	ID      string    `json:"id"`
	Kind    WatchKind `json:"kind"`
	RefID   string    `json:"ref_id"`
	Title   string    `json:"title,omitempty"`
	AddedAt time.Time `json:"added_at"`
}
