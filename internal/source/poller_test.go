package source

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/user/livedrops/internal/types"
)

type stubSource struct {
	mu      sync.Mutex
	calls   int
	batch   *types.Batch
	err     error
	release chan struct{}
}

func (s *stubSource) Fetch(ctx context.Context) (*types.Batch, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.release != nil {
		<-s.release
	}
	return s.batch, s.err
}

func (s *stubSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingSink struct {
	mu      sync.Mutex
	batches []*types.Batch
	payload chan struct{}
}

func (r *recordingSink) IngestBatch(b *types.Batch) {
	r.mu.Lock()
	r.batches = append(r.batches, b)
	r.mu.Unlock()
	if r.payload != nil {
		r.payload <- struct{}{}
	}
}

func (r *recordingSink) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func TestPollerForwardsBatch(t *testing.T) {
	batch := &types.Batch{Events: []types.Event{{ID: "1"}}}
	src := &stubSource{batch: batch}
	sink := &recordingSink{}

	NewPoller(src, sink, "").Poll()

	if sink.Len() != 1 || sink.batches[0] != batch {
		t.Fatalf("sink got %d batches", sink.Len())
	}
}

func TestPollerSkipsOnError(t *testing.T) {
	src := &stubSource{err: errors.New("boom")}
	sink := &recordingSink{}

	NewPoller(src, sink, "").Poll()

	if sink.Len() != 0 {
		t.Error("failed fetch must not reach the sink")
	}
}

func TestPollerSkipsOverlappingPoll(t *testing.T) {
	src := &stubSource{batch: &types.Batch{}, release: make(chan struct{})}
	sink := &recordingSink{}
	p := NewPoller(src, sink, "")

	done := make(chan struct{})
	go func() {
		p.Poll()
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for src.Calls() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	p.Poll()
	close(src.release)
	<-done

	if n := src.Calls(); n != 1 {
		t.Errorf("Fetch called %d times, want 1", n)
	}
}

func TestPollerRejectsBadSchedule(t *testing.T) {
	p := NewPoller(&stubSource{}, &recordingSink{}, "not a schedule")
	if err := p.Start(); err == nil {
		p.Stop()
		t.Fatal("expected schedule parse error")
	}
}

func TestPollerRunsOnSchedule(t *testing.T) {
	src := &stubSource{batch: &types.Batch{}}
	sink := &recordingSink{payload: make(chan struct{}, 4)}
	p := NewPoller(src, sink, "@every 1s")
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	select {
	case <-sink.payload:
	case <-time.After(3 * time.Second):
		t.Fatal("poll did not run")
	}
}
