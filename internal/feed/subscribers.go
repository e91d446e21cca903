package feed

import (
	"sync"

	"github.com/user/livedrops/internal/types"
)

// Listener is notified of every item that becomes visible, after the
// engine has released its lock. Listeners must not call Ingest.
type Listener func(Item)

// subscribers fans reveals out to consumer views in subscription order.
type subscribers struct {
	mu    sync.RWMutex
	order []types.SubscriberID
	byID  map[types.SubscriberID]Listener
}

func newSubscribers() *subscribers {
	return &subscribers{byID: make(map[types.SubscriberID]Listener)}
}

func (s *subscribers) add(l Listener) types.SubscriberID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := types.NewSubscriberID()
	s.byID[id] = l
	s.order = append(s.order, id)
	return id
}

func (s *subscribers) remove(id types.SubscriberID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return
	}
	delete(s.byID, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *subscribers) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.byID = make(map[types.SubscriberID]Listener)
}

// notify delivers items to a copy of the listener list. active is checked
// before every call so a teardown that races the delivery stops it.
func (s *subscribers) notify(items []Item, active func() bool) {
	if len(items) == 0 {
		return
	}
	s.mu.RLock()
	listeners := make([]Listener, 0, len(s.order))
	for _, id := range s.order {
		listeners = append(listeners, s.byID[id])
	}
	s.mu.RUnlock()

	for _, item := range items {
		for _, l := range listeners {
			if !active() {
				return
			}
			l(item)
		}
	}
}
