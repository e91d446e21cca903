package views

import (
	"sync"
	"time"

	"github.com/user/livedrops/internal/clock"
	"github.com/user/livedrops/internal/feed"
	"github.com/user/livedrops/internal/types"
)

const (
	defaultToastLimit    = 5
	defaultToastDuration = 6 * time.Second
)

// Toast is one transient notification.
type Toast struct {
	ID        types.ToastID `json:"id"`
	Item      feed.Item     `json:"item"`
	ShownAt   time.Time     `json:"shown_at"`
	ExpiresAt time.Time     `json:"expires_at"`
}

type toastEntry struct {
	toast Toast
	timer clock.Timer
}

// Notifier is the pop-up queue. It shows live reveals only, at most limit
// at a time, and expires each toast on its own timer counted from when it
// was shown.
type Notifier struct {
	mu       sync.Mutex
	clock    clock.Clock
	limit    int
	duration time.Duration
	toasts   []*toastEntry
	closed   bool
	onShow   func(Toast)
}

// NewNotifier creates a Notifier. Non-positive arguments select the
// defaults of 5 toasts and 6 seconds.
func NewNotifier(c clock.Clock, limit int, duration time.Duration) *Notifier {
	if limit <= 0 {
		limit = defaultToastLimit
	}
	if duration <= 0 {
		duration = defaultToastDuration
	}
	return &Notifier{clock: c, limit: limit, duration: duration}
}

// OnShow registers a hook called for every toast that is displayed.
func (n *Notifier) OnShow(fn func(Toast)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onShow = fn
}

// OnReveal is a feed.Listener.
func (n *Notifier) OnReveal(item feed.Item) {
	if item.Backlog {
		return
	}

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	now := n.clock.Now()
	entry := &toastEntry{toast: Toast{
		ID:        types.NewToastID(),
		Item:      item,
		ShownAt:   now,
		ExpiresAt: now.Add(n.duration),
	}}
	id := entry.toast.ID
	entry.timer = n.clock.AfterFunc(n.duration, func() { n.expire(id) })
	n.toasts = append(n.toasts, entry)
	for len(n.toasts) > n.limit {
		n.toasts[0].timer.Stop()
		n.toasts = n.toasts[1:]
	}
	hook := n.onShow
	toast := entry.toast
	n.mu.Unlock()

	if hook != nil {
		hook(toast)
	}
}

func (n *Notifier) expire(id types.ToastID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.remove(id)
}

// remove deletes a toast by id. Caller must hold n.mu.
func (n *Notifier) remove(id types.ToastID) bool {
	for i, entry := range n.toasts {
		if entry.toast.ID == id {
			entry.timer.Stop()
			n.toasts = append(n.toasts[:i], n.toasts[i+1:]...)
			return true
		}
	}
	return false
}

// Dismiss removes a toast before it expires.
func (n *Notifier) Dismiss(id types.ToastID) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.remove(id)
}

// Toasts returns the displayed toasts, oldest first.
func (n *Notifier) Toasts() []Toast {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Toast, len(n.toasts))
	for i, entry := range n.toasts {
		out[i] = entry.toast
	}
	return out
}

// Close cancels every expiry timer and stops accepting reveals.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	for _, entry := range n.toasts {
		entry.timer.Stop()
	}
	n.toasts = nil
}
