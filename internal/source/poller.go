package source

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/user/livedrops/internal/types"
)

// DefaultPollSchedule refreshes every five seconds.
const DefaultPollSchedule = "@every 5s"

// cronParser accepts both standard 5-field cron expressions and 6-field
// expressions with an optional seconds field, plus descriptors.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Poller is the polling push path: on every tick it fetches the latest
// events and hands them to the sink. Overlapping ticks are skipped.
type Poller struct {
	src      types.SnapshotSource
	sink     types.BatchIngester
	schedule string
	timeout  time.Duration
	cron     *cron.Cron
	inflight atomic.Bool
}

// NewPoller creates a Poller. An empty schedule selects DefaultPollSchedule.
func NewPoller(src types.SnapshotSource, sink types.BatchIngester, schedule string) *Poller {
	if schedule == "" {
		schedule = DefaultPollSchedule
	}
	return &Poller{
		src:      src,
		sink:     sink,
		schedule: schedule,
		timeout:  10 * time.Second,
		cron:     cron.New(cron.WithParser(cronParser)),
	}
}

// Start registers the poll job and starts the cron ticker.
func (p *Poller) Start() error {
	if _, err := p.cron.AddFunc(p.schedule, p.Poll); err != nil {
		return err
	}
	p.cron.Start()
	slog.Info("poller started", "schedule", p.schedule)
	return nil
}

// Stop stops the ticker and waits for a running poll to finish.
func (p *Poller) Stop() {
	<-p.cron.Stop().Done()
}

// Poll performs one fetch. Failures are logged; the engine keeps its
// current state.
func (p *Poller) Poll() {
	if !p.inflight.CompareAndSwap(false, true) {
		slog.Debug("poll skipped, previous fetch still running")
		return
	}
	defer p.inflight.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	batch, err := p.src.Fetch(ctx)
	if err != nil {
		slog.Warn("poll failed", "error", err)
		return
	}
	p.sink.IngestBatch(batch)
}
