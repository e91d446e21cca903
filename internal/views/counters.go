package views

import (
	"maps"
	"sync"

	"github.com/user/livedrops/internal/feed"
	"github.com/user/livedrops/internal/types"
)

// Counts summarizes the reveals seen since the counters were attached.
type Counts struct {
	Total        int                  `json:"total"`
	Live         int                  `json:"live"`
	Backlog      int                  `json:"backlog"`
	Drops        int                  `json:"drops"`
	Achievements int                  `json:"achievements"`
	Lucky        int                  `json:"lucky"`
	ByRarity     map[types.Rarity]int `json:"by_rarity"`
}

type Counters struct {
	mu     sync.Mutex
	counts Counts
}

func NewCounters() *Counters {
	return &Counters{counts: Counts{ByRarity: make(map[types.Rarity]int)}}
}

// OnReveal is a feed.Listener.
func (c *Counters) OnReveal(item feed.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts.Total++
	if item.Backlog {
		c.counts.Backlog++
	} else {
		c.counts.Live++
	}
	switch item.Event.Kind {
	case types.KindAchievement:
		c.counts.Achievements++
	default:
		c.counts.Drops++
		c.counts.ByRarity[item.Event.Drop.Rarity]++
		if item.Event.Drop.Lucky {
			c.counts.Lucky++
		}
	}
}

// Snapshot returns a copy of the counts.
func (c *Counters) Snapshot() Counts {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.counts
	out.ByRarity = maps.Clone(c.counts.ByRarity)
	return out
}
