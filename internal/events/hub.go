package events

import (
	"sync"
	"sync/atomic"
)

const defaultBuffer = 16

// Hub fans events out to in-process subscribers of the same owner.
// Publish never blocks: a subscriber whose buffer is full misses the event.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
	buffer int

	dropped atomic.Int64
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{subs: map[*Subscription]struct{}{}, buffer: buffer}
}

type Subscription struct {
	owner string
	ch    chan Event
	hub   *Hub
	once  sync.Once
}

// Events is closed when the subscription or the hub is closed.
func (s *Subscription) Events() <-chan Event { return s.ch }

func (s *Subscription) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	if _, ok := s.hub.subs[s]; ok {
		delete(s.hub.subs, s)
		s.closeCh()
	}
}

func (s *Subscription) closeCh() { s.once.Do(func() { close(s.ch) }) }

func (h *Hub) Subscribe(owner string) *Subscription {
	s := &Subscription{owner: owner, ch: make(chan Event, h.buffer), hub: h}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		s.closeCh()
		return s
	}
	h.subs[s] = struct{}{}
	return s
}

func (h *Hub) Publish(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		if s.owner != e.Owner {
			continue
		}
		select {
		case s.ch <- e:
		default:
			h.dropped.Add(1)
		}
	}
}

// Dropped counts events not delivered to a full subscriber.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }

// Close ends every subscription. Later subscriptions are born closed.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for s := range h.subs {
		s.closeCh()
		delete(h.subs, s)
	}
}
