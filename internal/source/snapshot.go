// Package source implements the collaborators that deliver drop events to
// the engine: the one-time snapshot fetch and the push transports.
package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/user/livedrops/internal/types"
)

// maxResponseBytes bounds the body read from the activity API.
const maxResponseBytes = 4 << 20

// HTTPSnapshot fetches the activity feed over HTTP. Alongside the recent
// feed it fetches the rare feed (mythic and insane drops from the last
// days) so those stay visible after leaving the recent window.
type HTTPSnapshot struct {
	baseURL     string
	client      *http.Client
	retry       *RetryPolicy
	recentLimit int
	rareDays    int
	rareLimit   int
}

// SnapshotOption configures an HTTPSnapshot.
type SnapshotOption func(*HTTPSnapshot)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(c *http.Client) SnapshotOption {
	return func(s *HTTPSnapshot) { s.client = c }
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p *RetryPolicy) SnapshotOption {
	return func(s *HTTPSnapshot) { s.retry = p }
}

// WithRecentLimit sets how many recent events to request.
func WithRecentLimit(n int) SnapshotOption {
	return func(s *HTTPSnapshot) { s.recentLimit = n }
}

// WithRare sets the rare feed window; days <= 0 disables the rare fetch.
func WithRare(days, limit int) SnapshotOption {
	return func(s *HTTPSnapshot) {
		s.rareDays = days
		s.rareLimit = limit
	}
}

// NewHTTPSnapshot creates a client for the activity API at baseURL.
func NewHTTPSnapshot(baseURL string, opts ...SnapshotOption) *HTTPSnapshot {
	s := &HTTPSnapshot{
		baseURL:     strings.TrimRight(baseURL, "/"),
		client:      &http.Client{Timeout: 10 * time.Second},
		retry:       DefaultRetryPolicy(),
		recentLimit: 100,
		rareDays:    7,
		rareLimit:   50,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch requests the recent and rare feeds in parallel and merges them by
// id. The recent feed is required; a rare feed failure is logged and the
// recent feed is returned alone.
func (s *HTTPSnapshot) Fetch(ctx context.Context) (*types.Batch, error) {
	var recent, rare *types.Batch

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q := url.Values{"limit": {strconv.Itoa(s.recentLimit)}}
		b, err := s.get(gctx, "/api/activity/all", q)
		if err != nil {
			return fmt.Errorf("fetch recent activity: %w", err)
		}
		recent = b
		return nil
	})
	if s.rareDays > 0 {
		g.Go(func() error {
			q := url.Values{
				"days":  {strconv.Itoa(s.rareDays)},
				"limit": {strconv.Itoa(s.rareLimit)},
			}
			b, err := s.get(gctx, "/api/activity/rare", q)
			if err != nil {
				slog.Warn("rare activity fetch failed", "error", err)
				return nil
			}
			rare = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return merge(recent, rare), nil
}

// merge appends the rare events the recent feed does not already hold.
// Order is left to the engine.
func merge(recent, rare *types.Batch) *types.Batch {
	if rare == nil || len(rare.Events) == 0 {
		return recent
	}
	seen := make(map[types.EventID]bool, len(recent.Events))
	for _, e := range recent.Events {
		seen[e.ID] = true
	}
	out := &types.Batch{
		Events:     append([]types.Event(nil), recent.Events...),
		ServerTime: recent.ServerTime,
	}
	for _, e := range rare.Events {
		if !seen[e.ID] {
			seen[e.ID] = true
			out.Events = append(out.Events, e)
		}
	}
	if out.ServerTime == "" {
		out.ServerTime = rare.ServerTime
	}
	return out
}

func (s *HTTPSnapshot) get(ctx context.Context, path string, q url.Values) (*types.Batch, error) {
	u := s.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var batch *types.Batch
	err := s.retry.Execute(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
			return &StatusError{URL: u, Code: resp.StatusCode}
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		b, err := types.ParseBatch(body)
		if err != nil {
			return fmt.Errorf("invalid response body: %w", err)
		}
		batch = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}
