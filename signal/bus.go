package signal

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Handler consumes a delivered change signal.
type Handler func(Event)

type subscription struct {
	context string
	handler Handler
}

// Bus is an in-process change-signal broker. Subscribers register per store
// identity; Publish delivers an event to every subscriber of the event's
// store whose context differs from the event's origin, mirroring
// host-environment storage events that only fire in contexts other than the
// writer. Delivery is synchronous on the publishing goroutine and in
// unspecified order.
type Bus struct {
	subs map[string]map[string]*subscription
	mu   sync.RWMutex

	logger  *slog.Logger
	metrics *Metrics
}

// NewBus creates a Bus. A nil logger falls back to slog.Default().
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subs:    make(map[string]map[string]*subscription),
		logger:  logger,
		metrics: NewMetrics(),
	}
}

// Subscribe registers handler for events on store storeID. contextID names
// the subscriber's context; events whose origin equals contextID are not
// delivered to it. The returned cancel function is idempotent and safe to
// call multiple times.
func (b *Bus) Subscribe(storeID, contextID string, handler Handler) (cancel func()) {
	token := uuid.Must(uuid.NewV7()).String()

	b.mu.Lock()
	if b.subs[storeID] == nil {
		b.subs[storeID] = make(map[string]*subscription)
	}
	b.subs[storeID][token] = &subscription{context: contextID, handler: handler}
	b.mu.Unlock()
	b.metrics.RecordSubscriber(1)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			if subs, ok := b.subs[storeID]; ok {
				delete(subs, token)
				if len(subs) == 0 {
					delete(b.subs, storeID)
				}
			}
			b.mu.Unlock()
			b.metrics.RecordSubscriber(-1)
		})
	}
}

// Publish delivers event to matching subscribers.
func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	var handlers []Handler
	for _, sub := range b.subs[event.Store] {
		if sub.context != "" && sub.context == event.Origin {
			continue
		}
		handlers = append(handlers, sub.handler)
	}
	b.mu.RUnlock()

	b.metrics.RecordPublished(1)
	for _, h := range handlers {
		h(event)
		b.metrics.RecordDelivered(1)
	}

	b.logger.DebugContext(
		ctx,
		"change signal published",
		slog.String("store", event.Store),
		slog.String("key", event.Key),
		slog.Bool("removed", event.Removed),
		slog.Int("delivered", len(handlers)),
	)
}

// Metrics returns a snapshot of bus activity counters.
func (b *Bus) Metrics() MetricsSnapshot {
	return b.metrics.Snapshot()
}
