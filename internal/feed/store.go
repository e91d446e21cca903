package feed

import (
	"sort"
	"time"

	"github.com/user/livedrops/internal/types"
)

const defaultStoreCap = 150

// Item is a revealed event together with its normalized instant.
type Item struct {
	Event      types.Event `json:"event"`
	At         time.Time   `json:"at"`
	RevealedAt time.Time   `json:"revealed_at"`
	// Backlog is true when the event was old enough on arrival to skip the
	// reveal window.
	Backlog bool `json:"backlog"`
}

// newer reports whether a sorts before b: later instant first, higher id
// first on ties.
func newer(a, b Item) bool {
	if !a.At.Equal(b.At) {
		return a.At.After(b.At)
	}
	return a.Event.ID.Compare(b.Event.ID) > 0
}

// Store is the time-ordered, capped list of revealed events.
type Store struct {
	items []Item
	cap   int
}

// NewStore creates a Store holding at most limit items (150 when limit is
// not positive).
func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = defaultStoreCap
	}
	return &Store{cap: limit}
}

// Admit inserts item, keeps the list sorted newest first, and drops the
// oldest entries beyond the cap. An id already present is ignored. It
// reports whether the item is retained.
func (s *Store) Admit(item Item) bool {
	for _, existing := range s.items {
		if existing.Event.ID == item.Event.ID {
			return false
		}
	}
	s.items = append(s.items, item)
	sort.SliceStable(s.items, func(i, j int) bool {
		return newer(s.items[i], s.items[j])
	})
	if len(s.items) > s.cap {
		evicted := s.items[s.cap:]
		s.items = s.items[:s.cap:s.cap]
		for _, e := range evicted {
			if e.Event.ID == item.Event.ID {
				return false
			}
		}
	}
	return true
}

// Snapshot returns a copy; callers may modify it freely.
func (s *Store) Snapshot() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Len() int {
	return len(s.items)
}

// Cap returns the configured capacity.
func (s *Store) Cap() int {
	return s.cap
}
