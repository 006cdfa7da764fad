package messaging

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"kbgraph-backend/application/ports"
	"kbgraph-backend/domain/events"
)

// EventHandlerFunc handles one domain event in process
type EventHandlerFunc func(ctx context.Context, event events.DomainEvent) error

// EventDispatcher bridges between external event publishing and local event handling.
// Every published event is handed to the local subscribers of its type, then
// to the external publisher when one is configured.
type EventDispatcher struct {
	external ports.EventPublisher
	logger   *zap.Logger

	mu       sync.RWMutex
	handlers map[string][]EventHandlerFunc
}

var _ ports.EventPublisher = (*EventDispatcher)(nil)

// NewEventDispatcher creates a new event dispatcher. external may be nil.
func NewEventDispatcher(external ports.EventPublisher, logger *zap.Logger) *EventDispatcher {
	return &EventDispatcher{
		external: external,
		logger:   logger,
		handlers: make(map[string][]EventHandlerFunc),
	}
}

// Subscribe registers a local handler for an event type
func (d *EventDispatcher) Subscribe(eventType string, handler EventHandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

// Publish dispatches locally, then forwards the event. Only the external
// publisher's error is returned.
func (d *EventDispatcher) Publish(ctx context.Context, event events.DomainEvent) error {
	d.DispatchLocal(ctx, event)

	if d.external == nil {
		d.logger.Debug("No external publisher configured, event kept local",
			zap.String("eventType", event.GetEventType()),
			zap.String("aggregateID", event.GetAggregateID()))
		return nil
	}
	return d.external.Publish(ctx, event)
}

// DispatchLocal dispatches events to local handlers
func (d *EventDispatcher) DispatchLocal(ctx context.Context, event events.DomainEvent) {
	d.mu.RLock()
	handlers := d.handlers[event.GetEventType()]
	d.mu.RUnlock()

	startTime := time.Now()
	for _, handle := range handlers {
		if err := handle(ctx, event); err != nil {
			d.logger.Error("Failed to dispatch event locally",
				zap.String("eventType", event.GetEventType()),
				zap.String("aggregateID", event.GetAggregateID()),
				zap.Error(err))
		}
	}

	if len(handlers) > 0 {
		d.logger.Debug("Event dispatched locally",
			zap.String("eventType", event.GetEventType()),
			zap.String("aggregateID", event.GetAggregateID()),
			zap.Int("handlers", len(handlers)),
			zap.Duration("duration", time.Since(startTime)))
	}
}
