package feed

import (
	"time"

	"github.com/user/livedrops/internal/clock"
	"github.com/user/livedrops/internal/types"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// drop builds a drop event whose timestamp carries no zone marker, the way
// the backend's SQLite rows arrive.
func drop(id string, at time.Time) types.Event {
	return types.Event{
		ID:        types.EventID(id),
		CreatedAt: types.RawTime(at.UTC().Format("2006-01-02 15:04:05.000")),
		Kind:      types.KindDrop,
		Drop:      types.Drop{Rarity: types.RarityRare, ItemName: "Diamond"},
	}
}

func achievement(id string, at time.Time) types.Event {
	return types.Event{
		ID:          types.EventID(id),
		CreatedAt:   types.RawTime(at.UTC().Format(time.RFC3339)),
		Kind:        types.KindAchievement,
		Achievement: types.Achievement{Name: "First Spin"},
	}
}

func newTestEngine(opts ...Option) (*Engine, *clock.Manual) {
	m := clock.NewManual(t0)
	return New(append([]Option{WithClock(m)}, opts...)...), m
}

func ids(items []Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = string(item.Event.ID)
	}
	return out
}

func equalIDs(a []string, b ...string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
