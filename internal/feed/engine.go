// Package feed reconciles the snapshot and push deliveries of drop events
// into one deduplicated, time-ordered stream and delays the reveal of fresh
// events until the acquiring player's own reward animation has finished.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/user/livedrops/internal/clock"
	"github.com/user/livedrops/internal/types"
)

// ErrClosed is returned by Load once the engine has been torn down.
var ErrClosed = errors.New("feed engine closed")

// Engine is one reconciliation instance. Views that need the same stream
// share an Engine rather than ingesting separately.
//
// All engine state is mutated under mu, which makes Ingest, timer fires
// and Close behave as one logical thread.
type Engine struct {
	mu        sync.Mutex
	clock     clock.Clock
	timing    Timing
	dropsOnly bool
	registry  *Registry
	store     *Store
	scheduler *Scheduler
	guard     *Guard
	subs      *subscribers
	// skew is the last reference time minus the local clock.
	skew time.Duration
}

// Option configures an Engine.
type Option func(*engineConfig)

type engineConfig struct {
	clock          clock.Clock
	timing         Timing
	storeCap       int
	registryLimit  int
	registryRetain int
	dropsOnly      bool
}

// WithClock injects the time source. Defaults to the wall clock.
func WithClock(c clock.Clock) Option {
	return func(cfg *engineConfig) { cfg.clock = c }
}

// WithTiming overrides the reveal window constants.
func WithTiming(t Timing) Option {
	return func(cfg *engineConfig) { cfg.timing = t }
}

// WithStoreCap sets the visible stream capacity.
func WithStoreCap(n int) Option {
	return func(cfg *engineConfig) { cfg.storeCap = n }
}

// WithRegistryLimits sets the dedup registry cap and retained tail.
func WithRegistryLimits(limit, retain int) Option {
	return func(cfg *engineConfig) {
		cfg.registryLimit = limit
		cfg.registryRetain = retain
	}
}

// WithDropsOnly discards achievement events at ingestion.
func WithDropsOnly() Option {
	return func(cfg *engineConfig) { cfg.dropsOnly = true }
}

// New creates an active Engine.
func New(opts ...Option) *Engine {
	cfg := engineConfig{
		clock:  clock.Real(),
		timing: DefaultTiming(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	e := &Engine{
		clock:     cfg.clock,
		timing:    cfg.timing,
		dropsOnly: cfg.dropsOnly,
		registry:  NewRegistry(cfg.registryLimit, cfg.registryRetain),
		store:     NewStore(cfg.storeCap),
		guard:     NewGuard(),
		subs:      newSubscribers(),
	}
	e.scheduler = NewScheduler(cfg.clock, e.fire)
	return e
}

// Ingest merges one delivery. ref is the authoritative "now" for age
// computation; the zero value means the engine clock. Each event is
// deduplicated, then revealed immediately when it is backlog or an
// achievement, or scheduled for a delayed reveal otherwise. The branch
// depends only on age, never on which source delivered the event.
func (e *Engine) Ingest(events []types.Event, ref time.Time) {
	e.mu.Lock()
	if !e.guard.Active() {
		e.mu.Unlock()
		return
	}
	now := e.clock.Now()
	if ref.IsZero() {
		ref = now
	}
	e.skew = ref.Sub(now)

	var revealed []Item
	fresh := 0
	for _, ev := range events {
		if e.dropsOnly && ev.Kind == types.KindAchievement {
			continue
		}
		if ev.ID == "" {
			slog.Warn("event without id dropped", "created_at", string(ev.CreatedAt))
			continue
		}
		if !e.registry.Admit(ev.ID) {
			slog.Debug("duplicate event skipped", "event_id", string(ev.ID))
			continue
		}

		at, ok := clock.Parse(ev.CreatedAt)
		if !ok {
			slog.Debug("unparseable created_at, assuming now", "event_id", string(ev.ID), "created_at", string(ev.CreatedAt))
			at = ref
		}
		age := clock.Age(at, ref)
		item := Item{Event: ev, At: at}

		delay, backlog := e.timing.Delay(age, fresh)
		if backlog || ev.Kind == types.KindAchievement {
			item.Backlog = backlog
			item.RevealedAt = now
			if e.store.Admit(item) {
				revealed = append(revealed, item)
			}
			continue
		}
		if age < e.timing.FreshThreshold {
			fresh++
		}
		e.scheduler.Schedule(item, delay)
		slog.Debug("reveal scheduled", "event_id", string(ev.ID), "age", age, "delay", delay)
	}
	e.mu.Unlock()

	e.subs.notify(revealed, e.guard.Active)
}

// IngestBatch ingests a delivery anchored to its server time, if any.
func (e *Engine) IngestBatch(batch *types.Batch) {
	if batch == nil {
		return
	}
	e.Ingest(batch.Events, clock.Reference(batch.ServerTime, e.clock.Now()))
}

// Load performs the one-time snapshot fetch and ingests the result. A
// failed fetch is returned and leaves the visible stream untouched.
func (e *Engine) Load(ctx context.Context, src types.SnapshotSource) error {
	if !e.guard.Active() {
		return ErrClosed
	}
	batch, err := src.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch snapshot: %w", err)
	}
	if !e.guard.Active() {
		return ErrClosed
	}
	e.IngestBatch(batch)
	return nil
}

// fire is the timer callback for a scheduled reveal. After teardown it is
// a no-op.
func (e *Engine) fire(id types.TaskID) {
	e.mu.Lock()
	if !e.guard.Active() {
		e.mu.Unlock()
		return
	}
	item, ok := e.scheduler.Take(id)
	if !ok {
		e.mu.Unlock()
		return
	}
	item.RevealedAt = e.clock.Now()
	kept := e.store.Admit(item)
	e.mu.Unlock()

	if kept {
		e.subs.notify([]Item{item}, e.guard.Active)
	}
}

// Snapshot returns the visible stream, newest first. The slice is a copy.
func (e *Engine) Snapshot() []Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Snapshot()
}

// Pending returns the number of scheduled, not yet revealed events.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scheduler.Len()
}

// PendingReveals lists the scheduled reveals by fire time.
func (e *Engine) PendingReveals() []PendingReveal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scheduler.Pending()
}

// Known returns the number of ids held by the dedup registry.
func (e *Engine) Known() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Len()
}

// Now returns the engine clock shifted by the skew of the last delivery's
// reference time, so labels agree with the ages used for scheduling.
func (e *Engine) Now() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.Now().Add(e.skew)
}

// Timing returns the engine's reveal window constants.
func (e *Engine) Timing() Timing {
	return e.timing
}

// Subscribe registers a listener for reveals and returns its cancel func.
func (e *Engine) Subscribe(l Listener) func() {
	id := e.subs.add(l)
	return func() { e.subs.remove(id) }
}

// Active reports whether the engine has not been closed.
func (e *Engine) Active() bool {
	return e.guard.Active()
}

// Close tears the engine down: it deactivates the guard, cancels every
// pending reveal and drops all listeners. It is idempotent.
func (e *Engine) Close() {
	e.mu.Lock()
	first := e.guard.Deactivate()
	cancelled := e.scheduler.CancelAll()
	e.mu.Unlock()
	e.subs.clear()
	if first {
		slog.Debug("feed engine closed", "cancelled_reveals", cancelled)
	}
}
