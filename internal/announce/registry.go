// internal/announce/registry.go

package announce

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Handler delivers a message to a target such as "telegram:12345".
type Handler func(target, message string) error

// Registry routes announcements to a delivery handler based on target
// prefix (e.g. "telegram:", "log:"). The longest matching prefix wins.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds a handler for targets starting with prefix.
func (r *Registry) Register(prefix string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[prefix] = handler
}

// Prefixes lists the registered prefixes in sorted order.
func (r *Registry) Prefixes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for p := range r.handlers {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Deliver finds the handler matching the target prefix and calls it.
func (r *Registry) Deliver(target, message string) error {
	r.mu.RLock()
	var (
		best    string
		handler Handler
	)
	for prefix, h := range r.handlers {
		if strings.HasPrefix(target, prefix) && len(prefix) >= len(best) {
			best, handler = prefix, h
		}
	}
	r.mu.RUnlock()

	if handler == nil {
		return fmt.Errorf("no delivery handler for target: %s", target)
	}
	return handler(target, message)
}
