package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"learnkit/core"
)

// Hub fans learning events out to live subscribers, typically WebSocket
// connections watching a learner's dashboard.
type Hub struct {
	mu   sync.RWMutex
	subs map[int]*subscription
	next int
}

type subscription struct {
	ch   chan core.Event
	user core.UserID // empty means all users
}

func NewHub() *Hub { return &Hub{subs: map[int]*subscription{}} }

// Subscribe registers a firehose subscriber receiving every event.
func (h *Hub) Subscribe(buffer int) (int, <-chan core.Event) {
	return h.subscribe(buffer, "")
}

// SubscribeUser registers a subscriber that only receives events for one
// learner, which is what a per-user dashboard connection wants.
func (h *Hub) SubscribeUser(user core.UserID, buffer int) (int, <-chan core.Event) {
	return h.subscribe(buffer, user)
}

func (h *Hub) subscribe(buffer int, user core.UserID) (int, <-chan core.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	id := h.next
	sub := &subscription{ch: make(chan core.Event, buffer), user: user}
	h.subs[id] = sub
	return id, sub.ch
}

func (h *Hub) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(sub.ch)
	}
}

// Broadcast delivers the event to every matching subscriber. Slow consumers
// lose events rather than blocking the publisher.
func (h *Hub) Broadcast(_ context.Context, ev core.Event) {
	h.mu.RLock()
	receivers := make([]chan core.Event, 0, len(h.subs))
	for _, sub := range h.subs {
		if sub.user != "" && sub.user != ev.UserID {
			continue
		}
		receivers = append(receivers, sub.ch)
	}
	h.mu.RUnlock()
	for _, ch := range receivers {
		select {
		case ch <- ev:
		default: /* drop if full */
		}
	}
}

// MarshalJSON is a helper to convert events to JSON bytes for WebSocket/SSE.
func MarshalJSON(ev core.Event) []byte {
	b, _ := json.Marshal(ev)
	return b
}
