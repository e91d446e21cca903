package source

import (
	"context"
	"errors"
	"math"
	"net"
	"net/http"
	"strings"
	"time"
)

// RetryPolicy retries failed fetches with exponential backoff.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// DefaultRetryPolicy allows 3 attempts starting at 500ms, doubling up to 5s.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Second,
	}
}

// StatusError is a non-2xx response from the activity API.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return "unexpected status " + http.StatusText(e.Code) + " from " + e.URL
}

// ShouldRetry reports whether attempt (1-indexed) may be followed by
// another one.
func (p *RetryPolicy) ShouldRetry(err error, attempt int) bool {
	return attempt <= p.MaxAttempts && retryable(err)
}

var (
	transientHints = []string{"connection refused", "connection reset", "timeout", "temporary failure"}
	permanentHints = []string{"invalid", "unauthorized", "forbidden"}
)

// retryable classifies an error. Server errors, rate limiting and network
// failures are transient; other statuses, cancellation and decode errors
// are permanent. Anything unrecognised is treated as transient.
func retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var status *StatusError
	if errors.As(err, &status) {
		return status.Code >= 500 || status.Code == http.StatusTooManyRequests
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, hint := range transientHints {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	for _, hint := range permanentHints {
		if strings.Contains(msg, hint) {
			return false
		}
	}
	return true
}

// NextDelay returns the wait after the given attempt:
// InitialDelay * Multiplier^(attempt-1), capped at MaxDelay.
func (p *RetryPolicy) NextDelay(attempt int) time.Duration {
	d := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	return time.Duration(min(d, float64(p.MaxDelay)))
}

// Execute calls fn until it succeeds, returns a permanent error, the
// attempts run out, or ctx is done. The last error is returned.
func (p *RetryPolicy) Execute(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt >= p.MaxAttempts || !p.ShouldRetry(err, attempt) {
			return err
		}
		t := time.NewTimer(p.NextDelay(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
	}
}
