package store

import (
	"encoding/json"
	"sync"
)

// =============================================================================
// HUB - In-process subscription registry shared by Store implementations
// =============================================================================

// Hub tracks live subscriptions and routes change notifications to them.
// A subscription at path P fires when a write touches P, anything under P,
// or an ancestor of P (an ancestor overwrite replaces P's subtree too).
type Hub struct {
	mu   sync.Mutex
	next int
	subs map[int]subscription
}

type subscription struct {
	path string
	fn   func(json.RawMessage)
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]subscription)}
}

// Add registers a subscriber and returns its cancel function.
func (h *Hub) Add(path string, fn func(json.RawMessage)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	h.subs[id] = subscription{path: path, fn: fn}

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
		})
	}
}

// Notify invokes every subscriber affected by a change at changedPath.
// resolve is called outside the hub lock to fetch each subscriber's current
// snapshot; callbacks run synchronously on the calling goroutine.
func (h *Hub) Notify(changedPath string, resolve func(path string) json.RawMessage) {
	h.mu.Lock()
	matched := make([]subscription, 0, len(h.subs))
	for _, s := range h.subs {
		if IsAncestor(s.path, changedPath) || IsAncestor(changedPath, s.path) {
			matched = append(matched, s)
		}
	}
	h.mu.Unlock()

	for _, s := range matched {
		s.fn(resolve(s.path))
	}
}
