package feed

import (
	"sort"
	"time"

	"github.com/user/livedrops/internal/clock"
	"github.com/user/livedrops/internal/types"
)

// PendingReveal describes one scheduled reveal.
type PendingReveal struct {
	ID      types.TaskID  `json:"id"`
	EventID types.EventID `json:"event_id"`
	FireAt  time.Time     `json:"fire_at"`
}

type pendingTask struct {
	item   Item
	fireAt time.Time
	timer  clock.Timer
}

// Scheduler owns the pending reveal timers of one engine. Every task is
// tracked from Schedule until it is taken by the fire path or cancelled,
// so nothing accumulates. It is not safe for concurrent use; the engine
// serializes access.
type Scheduler struct {
	clock clock.Clock
	tasks map[types.TaskID]*pendingTask
	fire  func(types.TaskID)
}

// NewScheduler creates a Scheduler whose timers call fire with the task id.
func NewScheduler(c clock.Clock, fire func(types.TaskID)) *Scheduler {
	return &Scheduler{
		clock: c,
		tasks: make(map[types.TaskID]*pendingTask),
		fire:  fire,
	}
}

// Schedule arms a timer that fires after delay.
func (s *Scheduler) Schedule(item Item, delay time.Duration) types.TaskID {
	id := types.NewTaskID()
	task := &pendingTask{item: item, fireAt: s.clock.Now().Add(delay)}
	s.tasks[id] = task
	task.timer = s.clock.AfterFunc(delay, func() { s.fire(id) })
	return id
}

// Take removes a task from the arena and returns its item. It returns
// false when the task was already taken or cancelled.
func (s *Scheduler) Take(id types.TaskID) (Item, bool) {
	task, ok := s.tasks[id]
	if !ok {
		return Item{}, false
	}
	delete(s.tasks, id)
	return task.item, true
}

// CancelAll stops every outstanding timer and forgets it. Safe to call
// repeatedly; it returns how many tasks were cancelled.
func (s *Scheduler) CancelAll() int {
	n := len(s.tasks)
	for id, task := range s.tasks {
		if task.timer != nil {
			task.timer.Stop()
		}
		delete(s.tasks, id)
	}
	return n
}

func (s *Scheduler) Len() int {
	return len(s.tasks)
}

// Pending lists scheduled reveals by fire time.
func (s *Scheduler) Pending() []PendingReveal {
	out := make([]PendingReveal, 0, len(s.tasks))
	for id, task := range s.tasks {
		out = append(out, PendingReveal{ID: id, EventID: task.item.Event.ID, FireAt: task.fireAt})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].FireAt.Before(out[j].FireAt)
	})
	return out
}
