package event

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/storefront/widget/internal/domain/shared"
	"go.uber.org/zap"
)

// ErrBusStopped is returned when publishing to a bus that is not running
var ErrBusStopped = shared.NewDomainError("EVENT_BUS_STOPPED", "event bus is not running")

// Stats are running totals of bus activity
type Stats struct {
	Published  int64
	Dispatched int64
	Failed     int64
}

// InMemoryEventBus is a synchronous in-process pub/sub. Handlers run on the
// publisher's goroutine in subscription order, type-specific handlers first.
type InMemoryEventBus struct {
	registry   *HandlerRegistry
	logger     *zap.Logger
	running    atomic.Bool
	published  atomic.Int64
	dispatched atomic.Int64
	failed     atomic.Int64
}

// NewInMemoryEventBus creates a stopped in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger,
	}
}

// Publish delivers events to their handlers. A failing or panicking handler
// is logged and does not prevent delivery to the others.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if !b.running.Load() {
		return ErrBusStopped
	}

	for _, event := range events {
		b.published.Add(1)
		for _, handler := range b.registry.GetHandlers(event.EventType()) {
			if err := b.dispatch(ctx, handler, event); err != nil {
				b.failed.Add(1)
				b.logger.Error("handler failed to process event",
					zap.String("event_type", event.EventType()),
					zap.String("event_id", event.EventID().String()),
					zap.String("aggregate_id", event.AggregateID()),
					zap.Error(err),
				)
				continue
			}
			b.dispatched.Add(1)
		}
	}
	return nil
}

// Subscribe registers a handler. Without explicit types the handler's own
// EventTypes are used, and an empty list subscribes to every event.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler from every event type
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
	b.logger.Debug("handler unsubscribed")
}

// Start opens the bus for publishing
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	if b.running.Swap(true) {
		return nil
	}
	b.logger.Info("event bus started")
	return nil
}

// Stop closes the bus. Later publishes fail with ErrBusStopped.
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	if !b.running.Swap(false) {
		return nil
	}
	b.logger.Info("event bus stopped",
		zap.Int64("published", b.published.Load()),
		zap.Int64("failed", b.failed.Load()),
	)
	return nil
}

// Stats returns a snapshot of the bus counters
func (b *InMemoryEventBus) Stats() Stats {
	return Stats{
		Published:  b.published.Load(),
		Dispatched: b.dispatched.Load(),
		Failed:     b.failed.Load(),
	}
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler.Handle(ctx, event)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
