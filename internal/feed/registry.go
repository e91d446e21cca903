package feed

import "github.com/user/livedrops/internal/types"

const (
	defaultRegistryCap    = 200
	defaultRegistryRetain = 100
)

// Registry is the bounded set of event ids already admitted for
// scheduling. When it grows past its cap it keeps only the most recently
// admitted ids; a very old id may then be admitted a second time, which
// the capped visible store tolerates.
type Registry struct {
	seen   map[types.EventID]struct{}
	order  []types.EventID
	cap    int
	retain int
}

// NewRegistry creates a Registry that trims to retain ids once it holds
// more than limit. Non-positive values select the defaults of 200 and 100.
func NewRegistry(limit, retain int) *Registry {
	if limit <= 0 {
		limit = defaultRegistryCap
	}
	if retain <= 0 || retain > limit {
		retain = min(defaultRegistryRetain, limit)
	}
	return &Registry{
		seen:   make(map[types.EventID]struct{}, limit+1),
		cap:    limit,
		retain: retain,
	}
}

// Admit returns true exactly once per id.
func (r *Registry) Admit(id types.EventID) bool {
	if _, ok := r.seen[id]; ok {
		return false
	}
	r.seen[id] = struct{}{}
	r.order = append(r.order, id)
	if len(r.order) > r.cap {
		r.evict()
	}
	return true
}

// Len returns the number of ids currently remembered.
func (r *Registry) Len() int {
	return len(r.order)
}

func (r *Registry) evict() {
	drop := r.order[:len(r.order)-r.retain]
	for _, id := range drop {
		delete(r.seen, id)
	}
	kept := make([]types.EventID, r.retain, r.cap+1)
	copy(kept, r.order[len(r.order)-r.retain:])
	r.order = kept
}
