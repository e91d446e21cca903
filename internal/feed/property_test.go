package feed

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/user/livedrops/internal/types"
)

// TestPropertyDedup verifies that redelivering ids through any split of
// calls yields exactly one visible entry per distinct id.
// Property: |Snapshot()| == |distinct(ids)|, no id repeated.
func TestPropertyDedup(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("each id appears at most once", prop.ForAll(
		func(idNums []int, split int) bool {
			e, m := newTestEngine(WithStoreCap(1000), WithRegistryLimits(1000, 500))
			defer e.Close()

			events := make([]types.Event, len(idNums))
			distinct := make(map[int]bool)
			for i, n := range idNums {
				// A mix of fresh and backlog ages.
				age := time.Duration(n%7) * time.Second
				events[i] = drop(fmt.Sprint(n), t0.Add(-age))
				distinct[n] = true
			}
			cut := 0
			if len(events) > 0 {
				cut = split % (len(events) + 1)
			}
			e.Ingest(events[:cut], t0)
			e.Ingest(events[cut:], t0)
			m.Advance(time.Minute)

			seen := make(map[types.EventID]bool)
			for _, it := range e.Snapshot() {
				if seen[it.Event.ID] {
					return false
				}
				seen[it.Event.ID] = true
			}
			return len(seen) == len(distinct) && e.Pending() == 0
		},
		gen.SliceOf(gen.IntRange(0, 40)),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}

// TestPropertyOrdering verifies the visible stream is sorted newest first.
// Property: a.At < b.At implies a is listed after b.
func TestPropertyOrdering(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("snapshot is descending by createdAt", prop.ForAll(
		func(offsets []int) bool {
			e, _ := newTestEngine(WithStoreCap(1000), WithRegistryLimits(1000, 500))
			defer e.Close()

			for i, off := range offsets {
				e.Ingest([]types.Event{drop(fmt.Sprint(i), t0.Add(-time.Duration(off)*time.Second))}, t0)
			}
			snap := e.Snapshot()
			for i := 1; i < len(snap); i++ {
				if snap[i-1].At.Before(snap[i].At) {
					return false
				}
			}
			return len(snap) == len(offsets)
		},
		gen.SliceOf(gen.IntRange(5, 5000)),
	))

	properties.TestingRun(t)
}

// TestPropertyCap verifies the store never exceeds its cap and keeps the
// most recent events.
// Property: |Snapshot()| == min(n, cap) and the oldest kept is the n-cap'th.
func TestPropertyCap(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	const limit = 50
	properties.Property("cap keeps the most recent", prop.ForAll(
		func(n int) bool {
			e, _ := newTestEngine(WithStoreCap(limit), WithRegistryLimits(1000, 500))
			defer e.Close()

			for i := 0; i < n; i++ {
				e.Ingest([]types.Event{drop(fmt.Sprint(i), t0.Add(-time.Hour+time.Duration(i)*time.Second))}, t0)
			}
			snap := e.Snapshot()
			if len(snap) != min(n, limit) {
				return false
			}
			if n == 0 {
				return true
			}
			return snap[0].Event.ID == types.EventID(fmt.Sprint(n-1)) &&
				snap[len(snap)-1].Event.ID == types.EventID(fmt.Sprint(max(0, n-limit)))
		},
		gen.IntRange(0, 300),
	))

	properties.TestingRun(t)
}
