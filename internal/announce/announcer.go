// Package announce relays notable live drops to chat destinations.
package announce

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/user/livedrops/internal/feed"
	"github.com/user/livedrops/internal/types"
)

const (
	defaultQueueSize = 32
	// maxParallelDeliveries bounds concurrent sends for one announcement.
	maxParallelDeliveries = 4
)

// Announcer watches reveals and sends a message for every live insane or
// mythic drop. Delivery happens on the Run goroutine so a slow destination
// never blocks the engine's listeners.
type Announcer struct {
	reg     *Registry
	targets []string
	queue   chan feed.Item
	sem     *semaphore.Weighted
}

// NewAnnouncer creates an Announcer delivering to targets through reg.
func NewAnnouncer(reg *Registry, targets []string) *Announcer {
	return &Announcer{
		reg:     reg,
		targets: targets,
		queue:   make(chan feed.Item, defaultQueueSize),
		sem:     semaphore.NewWeighted(maxParallelDeliveries),
	}
}

// Notable reports whether an item is worth announcing.
func Notable(item feed.Item) bool {
	return !item.Backlog &&
		item.Event.Kind == types.KindDrop &&
		item.Event.Drop.Rarity.IsMythic()
}

// OnReveal is a feed.Listener. It never blocks; when the queue is full the
// item is dropped with a warning.
func (a *Announcer) OnReveal(item feed.Item) {
	if !Notable(item) || len(a.targets) == 0 {
		return
	}
	select {
	case a.queue <- item:
	default:
		slog.Warn("announce queue full, dropping", "event_id", string(item.Event.ID))
	}
}

// Run delivers queued announcements until ctx is done.
func (a *Announcer) Run(ctx context.Context) error {
	for {
		select {
		case item := <-a.queue:
			a.announce(ctx, item)
		case <-ctx.Done():
			return nil
		}
	}
}

// announce sends one item to every target, a few at a time.
func (a *Announcer) announce(ctx context.Context, item feed.Item) {
	msg := Format(item)
	var wg sync.WaitGroup
	for _, target := range a.targets {
		if err := a.sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer a.sem.Release(1)
			if err := a.reg.Deliver(target, msg); err != nil {
				slog.Error("announce failed", "target", target, "event_id", string(item.Event.ID), "error", err)
			}
		}()
	}
	wg.Wait()
}

// Format renders the announcement text for a drop.
func Format(item feed.Item) string {
	d := item.Event.Drop
	var b strings.Builder
	fmt.Fprintf(&b, "*%s* drop! %s found %s", strings.ToUpper(string(d.Rarity)), item.Event.Actor.DisplayName(), d.ItemName)
	switch {
	case d.Lucky && d.BonusEvent:
		b.WriteString(" (lucky, bonus event)")
	case d.Lucky:
		b.WriteString(" (lucky)")
	case d.BonusEvent:
		b.WriteString(" (bonus event)")
	}
	return b.String()
}

// LogHandler is a Handler that writes announcements to the structured log.
func LogHandler(target, message string) error {
	slog.Info("announcement", "target", target, "message", message)
	return nil
}
