package feed

import "sync/atomic"

// Guard records whether the owning consumer is still active. Timer
// callbacks consult it because cancelling a timer can race with its firing.
type Guard struct {
	active atomic.Bool
}

func NewGuard() *Guard {
	g := &Guard{}
	g.active.Store(true)
	return g
}

func (g *Guard) Active() bool {
	return g.active.Load()
}

// Deactivate marks the guard inactive and reports whether this call did it.
func (g *Guard) Deactivate() bool {
	return g.active.CompareAndSwap(true, false)
}
