package main

import (
	"net/http"

	"github.com/user/livedrops/internal/announce"
	"github.com/user/livedrops/internal/clock"
	"github.com/user/livedrops/internal/config"
	"github.com/user/livedrops/internal/feed"
	"github.com/user/livedrops/internal/source"
	"github.com/user/livedrops/internal/views"
)

// app holds one engine and the views subscribed to it.
type app struct {
	engine   *feed.Engine
	ambient  *views.Ambient
	notifier *views.Notifier
	counters *views.Counters
	unsubs   []func()
}

func newApp(cfg *config.Config, c clock.Clock) *app {
	opts := []feed.Option{
		feed.WithClock(c),
		feed.WithTiming(feed.Timing{
			FreshThreshold:   cfg.Timing.FreshThreshold.Std(),
			BacklogThreshold: cfg.Timing.BacklogThreshold.Std(),
			FullDelay:        cfg.Timing.FullDelay.Std(),
			MinDelay:         cfg.Timing.MinDelay.Std(),
			Stagger:          cfg.Timing.Stagger.Std(),
		}),
		feed.WithStoreCap(cfg.Caps.Store),
		feed.WithRegistryLimits(cfg.Caps.Registry, cfg.Caps.RegistryRetain),
	}
	if cfg.DropsOnly {
		opts = append(opts, feed.WithDropsOnly())
	}
	engine := feed.New(opts...)

	a := &app{
		engine:   engine,
		ambient:  views.NewAmbient(engine, cfg.Caps.Ambient),
		notifier: views.NewNotifier(c, cfg.Caps.Toasts, cfg.Timing.ToastDuration.Std()),
		counters: views.NewCounters(),
	}
	a.subscribe(a.notifier.OnReveal)
	a.subscribe(a.counters.OnReveal)
	return a
}

func (a *app) subscribe(l feed.Listener) {
	a.unsubs = append(a.unsubs, a.engine.Subscribe(l))
}

// close detaches the views and tears the engine down.
func (a *app) close() {
	for _, unsub := range a.unsubs {
		unsub()
	}
	a.notifier.Close()
	a.engine.Close()
}

func newSnapshotSource(cfg *config.Config) *source.HTTPSnapshot {
	opts := []source.SnapshotOption{
		source.WithRecentLimit(cfg.Snapshot.RecentLimit),
		source.WithRare(cfg.Snapshot.RareDays, cfg.Snapshot.RareLimit),
	}
	if t := cfg.Snapshot.Timeout.Std(); t > 0 {
		opts = append(opts, source.WithHTTPClient(&http.Client{Timeout: t}))
	}
	return source.NewHTTPSnapshot(cfg.Snapshot.URL, opts...)
}

// announceTargets lists one target per configured Telegram chat, falling
// back to the log when no chat is configured.
func announceTargets(cfg *config.Config, telegramReady bool) []string {
	if !telegramReady || len(cfg.Telegram.ChatIDs) == 0 {
		return []string{"log:announce"}
	}
	targets := make([]string, 0, len(cfg.Telegram.ChatIDs))
	for _, id := range cfg.Telegram.ChatIDs {
		targets = append(targets, announce.Target(id))
	}
	return targets
}
