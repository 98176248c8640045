package engine

import (
	"context"
	"sync"

	"learnkit/core"
)

// DispatchMode controls whether Publish runs handlers inline or hands the
// event to a worker pool.
type DispatchMode int

const (
	DispatchSync DispatchMode = iota
	DispatchAsync
)

const (
	eventQueueSize = 2048
	eventWorkers   = 4
)

type handlerFunc = func(context.Context, core.Event)

// EventBus fans domain events out to handlers registered per event type.
type EventBus struct {
	mode DispatchMode

	mu       sync.RWMutex
	handlers map[core.EventType]map[int]handlerFunc
	lastID   int

	queue chan core.Event
	quit  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

func NewEventBus(mode DispatchMode) *EventBus {
	b := &EventBus{
		mode:     mode,
		handlers: make(map[core.EventType]map[int]handlerFunc),
		queue:    make(chan core.Event, eventQueueSize),
		quit:     make(chan struct{}),
	}
	if mode == DispatchAsync {
		b.wg.Add(eventWorkers)
		for i := 0; i < eventWorkers; i++ {
			go b.worker()
		}
	}
	return b
}

func (b *EventBus) worker() {
	defer b.wg.Done()
	for {
		select {
		case ev := <-b.queue:
			b.dispatch(context.Background(), ev)
		case <-b.quit:
			return
		}
	}
}

// Close stops the worker pool and waits for in-flight handlers to return.
// Events still sitting in the queue are discarded. Safe to call twice.
func (b *EventBus) Close() {
	b.once.Do(func() { close(b.quit) })
	b.wg.Wait()
}

// Subscribe registers handler for typ and returns a function that removes
// the registration again.
func (b *EventBus) Subscribe(typ core.EventType, handler handlerFunc) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastID++
	id := b.lastID
	if b.handlers[typ] == nil {
		b.handlers[typ] = make(map[int]handlerFunc)
	}
	b.handlers[typ][id] = handler
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers[typ], id)
	}
}

// Publish delivers ev to every handler of its type. In async mode the event
// is queued; a full queue drops the event rather than blocking the caller's
// request path.
func (b *EventBus) Publish(ctx context.Context, ev core.Event) {
	if b.mode != DispatchAsync {
		b.dispatch(ctx, ev)
		return
	}
	select {
	case b.queue <- ev:
	default:
	}
}

func (b *EventBus) dispatch(ctx context.Context, ev core.Event) {
	b.mu.RLock()
	snapshot := make([]handlerFunc, 0, len(b.handlers[ev.Type]))
	for _, h := range b.handlers[ev.Type] {
		snapshot = append(snapshot, h)
	}
	b.mu.RUnlock()

	// handlers run outside the lock so they may subscribe or unsubscribe
	for _, h := range snapshot {
		h(ctx, ev)
	}
}
