package feed

import "time"

// Timing holds the reveal window constants. They are tuned to the
// origin client's reward animation and must be re-tuned together if that
// animation changes.
type Timing struct {
	FreshThreshold   time.Duration
	BacklogThreshold time.Duration
	FullDelay        time.Duration
	MinDelay         time.Duration
	Stagger          time.Duration
}

// DefaultTiming returns the shared defaults: fresh under 2s, backlog from
// 5s, a 5s full window, a 2s floor and a 300ms stagger.
func DefaultTiming() Timing {
	return Timing{
		FreshThreshold:   2 * time.Second,
		BacklogThreshold: 5 * time.Second,
		FullDelay:        5 * time.Second,
		MinDelay:         2 * time.Second,
		Stagger:          300 * time.Millisecond,
	}
}

// Delay returns how long an event of the given age waits before it is
// revealed, and whether it is backlog (revealed immediately). index is the
// event's position among fresh events scheduled in the same ingest call.
func (t Timing) Delay(age time.Duration, index int) (time.Duration, bool) {
	switch {
	case age >= t.BacklogThreshold:
		return 0, true
	case age < t.FreshThreshold:
		return t.FullDelay + time.Duration(index)*t.Stagger, false
	default:
		return max(t.MinDelay, t.FullDelay-age), false
	}
}
