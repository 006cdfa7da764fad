package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"kbgraph-backend/domain/events"
)

type recordingPublisher struct {
	published []events.DomainEvent
	err       error
}

func (p *recordingPublisher) Publish(_ context.Context, event events.DomainEvent) error {
	p.published = append(p.published, event)
	return p.err
}

func TestEventDispatcher_LocalThenExternal(t *testing.T) {
	external := &recordingPublisher{}
	d := NewEventDispatcher(external, zap.NewNop())

	var seen []string
	d.Subscribe(events.TypeLinksGenerated, func(_ context.Context, e events.DomainEvent) error {
		seen = append(seen, e.GetAggregateID())
		return nil
	})
	d.Subscribe(events.TypeLinksGenerated, func(context.Context, events.DomainEvent) error {
		return errors.New("handler failed")
	})

	err := d.Publish(context.Background(), events.NewLinksGeneratedEvent("user-1", 3, 3, 4, 6, 0))
	assert.NoError(t, err, "local handler failures are not returned")
	assert.Equal(t, []string{"user-1"}, seen)
	assert.Len(t, external.published, 1)
}

func TestEventDispatcher_ExternalError(t *testing.T) {
	external := &recordingPublisher{err: errors.New("bus unavailable")}
	d := NewEventDispatcher(external, zap.NewNop())

	err := d.Publish(context.Background(), events.NewLinksGeneratedEvent("user-1", 0, 0, 0, 0, 0))
	assert.EqualError(t, err, "bus unavailable")
}

func TestEventDispatcher_NoExternal(t *testing.T) {
	d := NewEventDispatcher(nil, zap.NewNop())
	assert.NoError(t, d.Publish(context.Background(), events.NewLinksGeneratedEvent("user-1", 0, 0, 0, 0, 0)))
}
