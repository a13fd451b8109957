package changefeed

import (
	"context"
	"sync"
)

// Hub is an in-process Source and Publisher. It is also the dispatch core
// of the Pub/Sub source.
type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]subscription
	closed bool
}

type subscription struct {
	table Table
	state string
	fn    Handler
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]subscription)}
}

// Subscribe registers fn for changes to table in state (AllStates for every state).
func (h *Hub) Subscribe(_ context.Context, table Table, state string, fn Handler) (Unsubscribe, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}

	id := h.nextID
	h.nextID++
	h.subs[id] = subscription{table: table, state: state, fn: fn}

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}, nil
}

// Publish delivers change to every matching subscriber on the caller's goroutine.
func (h *Hub) Publish(_ context.Context, change Change) error {
	h.dispatch(change)
	return nil
}

func (h *Hub) dispatch(change Change) int {
	h.mu.RLock()
	targets := make([]Handler, 0, len(h.subs))
	for _, s := range h.subs {
		if matches(s.table, s.state, change) {
			targets = append(targets, s.fn)
		}
	}
	h.mu.RUnlock()

	for _, fn := range targets {
		fn(change)
	}
	return len(targets)
}

// Len returns the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close drops every subscription and rejects new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.subs = make(map[uint64]subscription)
	return nil
}
