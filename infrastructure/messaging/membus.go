// Package messaging provides the in-process event bus that fans
// domain events out to subscribers: the SSE change feed, the drift
// watcher and tests.
package messaging

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"atelier/domain/events"
)

// MemoryEventBus implements ports.EventBus. Delivery is non-blocking:
// a subscriber that falls behind drops events instead of stalling the
// write path.
type MemoryEventBus struct {
	mu     sync.RWMutex
	subs   map[int]chan events.DomainEvent
	nextID int
	closed bool
	logger *zap.Logger
}

// NewMemoryEventBus creates an event bus
func NewMemoryEventBus(logger *zap.Logger) *MemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryEventBus{
		subs:   make(map[int]chan events.DomainEvent),
		logger: logger,
	}
}

// Publish delivers one event to every subscriber.
func (b *MemoryEventBus) Publish(ctx context.Context, event events.DomainEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for id, ch := range b.subs {
		select {
		case ch <- event:
		default:
			b.logger.Debug("subscriber lagging, event dropped",
				zap.Int("subscriber", id),
				zap.String("event_type", event.GetEventType()))
		}
	}
}

// PublishBatch delivers a batch of events in order.
func (b *MemoryEventBus) PublishBatch(ctx context.Context, batch []events.DomainEvent) {
	for _, event := range batch {
		b.Publish(ctx, event)
	}
}

// Subscribe returns a receive channel and a cancel function. The
// channel is closed on cancel and on bus close.
func (b *MemoryEventBus) Subscribe(buffer int) (<-chan events.DomainEvent, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan events.DomainEvent, buffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if _, exists := b.subs[id]; exists {
				delete(b.subs, id)
				close(ch)
			}
			b.mu.Unlock()
		})
	}
	return ch, cancel
}

// Close shuts the bus down, closing all subscriber channels.
func (b *MemoryEventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
