// Package clock provides the time sources used by the reveal engine: a
// wall clock for production and a manually advanced clock for tests.
package clock

import (
	"sort"
	"sync"
	"time"
)

// Timer is a cancellable scheduled callback.
type Timer interface {
	// Stop prevents the callback from running. It returns false if the
	// callback already ran or was already stopped.
	Stop() bool
}

// Clock is the time source injected into the engine and views.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type wallClock struct{}

// Real returns the process wall clock.
func Real() Clock { return wallClock{} }

func (wallClock) Now() time.Time { return time.Now() }

func (wallClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Manual is a deterministic clock. Time moves only through Advance or Set,
// and due callbacks run synchronously on the caller's goroutine in fireAt
// order.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	seq   uint64
	tasks map[uint64]*manualTask
}

type manualTask struct {
	clock  *Manual
	seq    uint64
	fireAt time.Time
	f      func()
}

// NewManual returns a Manual clock reading start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start, tasks: make(map[uint64]*manualTask)}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTask{clock: m, seq: m.seq, fireAt: m.now.Add(d), f: f}
	m.tasks[t.seq] = t
	return t
}

func (t *manualTask) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if _, ok := t.clock.tasks[t.seq]; !ok {
		return false
	}
	delete(t.clock.tasks, t.seq)
	return true
}

// Pending returns the number of callbacks that have not run or been stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Advance moves the clock forward by d, running every callback that
// becomes due. Callbacks scheduled by a callback run in the same call if
// they fall inside the window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()
	m.advanceTo(target)
}

// Set moves the clock to t, which must not be before the current reading.
func (m *Manual) Set(t time.Time) {
	m.advanceTo(t)
}

func (m *Manual) advanceTo(target time.Time) {
	for {
		m.mu.Lock()
		next := m.nextDue(target)
		if next == nil {
			if target.After(m.now) {
				m.now = target
			}
			m.mu.Unlock()
			return
		}
		delete(m.tasks, next.seq)
		if next.fireAt.After(m.now) {
			m.now = next.fireAt
		}
		m.mu.Unlock()
		next.f()
	}
}

// nextDue returns the earliest task due at or before target. Caller must
// hold m.mu.
func (m *Manual) nextDue(target time.Time) *manualTask {
	due := make([]*manualTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		if !t.fireAt.After(target) {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].fireAt.Equal(due[j].fireAt) {
			return due[i].seq < due[j].seq
		}
		return due[i].fireAt.Before(due[j].fireAt)
	})
	return due[0]
}
