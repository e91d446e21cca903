// Package views holds the consumer projections of a reveal stream. Views
// only read from the engine; none of them feed events back into it.
package views

import (
	"fmt"
	"time"

	"github.com/user/livedrops/internal/feed"
	"github.com/user/livedrops/internal/types"
)

// Tab selects a rarity class in the ambient feed.
type Tab string

const (
	TabAll     Tab = "all"
	TabSpecial Tab = "special"
	TabMythic  Tab = "mythic"
)

// TimeMode selects how entry timestamps are labelled.
type TimeMode string

const (
	TimeRelative TimeMode = "relative"
	TimeExact    TimeMode = "exact"
)

// ParseTab accepts "", "all", "special" and "mythic".
func ParseTab(s string) (Tab, error) {
	switch Tab(s) {
	case "", TabAll:
		return TabAll, nil
	case TabSpecial, TabMythic:
		return Tab(s), nil
	}
	return "", fmt.Errorf("unknown tab %q", s)
}

// ParseTimeMode accepts "", "relative" and "exact".
func ParseTimeMode(s string) (TimeMode, error) {
	switch TimeMode(s) {
	case "", TimeRelative:
		return TimeRelative, nil
	case TimeExact:
		return TimeExact, nil
	}
	return "", fmt.Errorf("unknown time mode %q", s)
}

func (t Tab) matches(r types.Rarity) bool {
	switch t {
	case TabSpecial:
		return r.IsSpecial()
	case TabMythic:
		return r.IsMythic()
	}
	return true
}

// Source is the read side of an engine. Now is the engine's reference
// "now", which relative labels are measured against.
type Source interface {
	Snapshot() []feed.Item
	Now() time.Time
}

// Entry is one ambient feed row.
type Entry struct {
	feed.Item
	Time string `json:"time"`
}

const defaultAmbientLimit = 150

// Ambient is the sidebar feed: drops only, filtered by tab on read.
type Ambient struct {
	src   Source
	limit int
}

func NewAmbient(src Source, limit int) *Ambient {
	if limit <= 0 {
		limit = defaultAmbientLimit
	}
	return &Ambient{src: src, limit: limit}
}

// Entries projects the current stream. Filtering and time formatting are
// independent of each other and never touch the engine's store.
func (a *Ambient) Entries(tab Tab, mode TimeMode) []Entry {
	now := a.src.Now()
	var out []Entry
	for _, item := range a.src.Snapshot() {
		if item.Event.Kind != types.KindDrop || !tab.matches(item.Event.Drop.Rarity) {
			continue
		}
		label := FormatTimeAgo(item.At, now)
		if mode == TimeExact {
			label = FormatExact(item.At)
		}
		out = append(out, Entry{Item: item, Time: label})
		if len(out) == a.limit {
			break
		}
	}
	return out
}
