package events

import (
	"sync"

	"trading-core/pkg/logger"
)

// Handler receives a dispatched Event. It must not be held onto beyond the
// call — the bus does not guarantee the Event's Payload outlives dispatch.
type Handler func(Event)

// Bus is a process-wide, free-threaded, typed pub/sub broker. Dispatch is
// synchronous: Publish returns only after every handler subscribed to the
// event's category at dispatch time has run. The bus never holds its
// internal lock while invoking a handler, so a handler may itself
// subscribe, unsubscribe, or publish without deadlocking.
type Bus struct {
	mu       sync.Mutex
	subs     map[Category][]subscription
	queue    []Event
	nextID   uint64
	dispatch uint64 // total events dispatched so far
	log      *logger.Logger
}

type subscription struct {
	id      uint64
	handler Handler
}

// NewBus creates an empty event bus.
func NewBus(log *logger.Logger) *Bus {
	if log == nil {
		log = logger.NewDiscard()
	}
	return &Bus{subs: make(map[Category][]subscription), log: log}
}

// Subscribe registers handler for category and returns a subscription id
// that is never reused within this bus's lifetime.
func (b *Bus) Subscribe(category Category, handler Handler) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs[category] = append(b.subs[category], subscription{id: id, handler: handler})
	return id
}

// Unsubscribe removes the subscription with the given id, if present, from
// whichever category holds it. No-op if the id is unknown.
func (b *Bus) Unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for category, subs := range b.subs {
		for i, sub := range subs {
			if sub.id == id {
				b.subs[category] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish synchronously fans event out to every handler subscribed to its
// category, in registration order, then returns. The subscriber list is
// snapshotted under the lock and the lock is released before any handler
// runs, so handlers registered during this dispatch do not receive this
// event, and handlers that publish or unsubscribe cannot deadlock the bus.
// A handler panic is recovered, logged, and does not stop the remaining
// handlers from running.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	handlers := append([]subscription(nil), b.subs[event.Category]...)
	b.dispatch++
	b.mu.Unlock()

	for _, sub := range handlers {
		b.invoke(sub.handler, event)
	}
}

func (b *Bus) invoke(h Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Errorf("bus", "handler panic on %s: %v", event.Category, r)
		}
	}()
	h(event)
}

// Enqueue appends event to the deferred FIFO queue without invoking any
// handler. Drain with ProcessQueue.
func (b *Bus) Enqueue(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue = append(b.queue, event)
}

// ProcessQueue drains up to max queued events (0 means unlimited) in FIFO
// order, dispatching each exactly as Publish would.
func (b *Bus) ProcessQueue(max int) int {
	processed := 0
	for {
		if max > 0 && processed >= max {
			return processed
		}
		b.mu.Lock()
		if len(b.queue) == 0 {
			b.mu.Unlock()
			return processed
		}
		event := b.queue[0]
		b.queue = b.queue[1:]
		b.mu.Unlock()

		b.Publish(event)
		processed++
	}
}

// QueueLen returns the number of events currently queued.
func (b *Bus) QueueLen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// ProcessedCount returns the number of Publish dispatches (queued events
// count once they are drained through ProcessQueue, which calls Publish).
func (b *Bus) ProcessedCount() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dispatch
}

// Clear removes all subscriptions and queued events and resets the counter.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[Category][]subscription)
	b.queue = nil
	b.dispatch = 0
}
