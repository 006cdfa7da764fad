package eventbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"kbgraph-backend/application/ports"
	"kbgraph-backend/domain/events"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"
)

// EventBridge limits PutEvents to 10 entries
const batchSize = 10

// API is the subset of the EventBridge client the publisher uses
type API interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// Publisher implements ports.EventPublisher using AWS EventBridge
type Publisher struct {
	client       API
	eventBusName string
	source       string
	maxRetries   int
	backoff      time.Duration
	logger       *zap.Logger
}

var _ ports.EventPublisher = (*Publisher)(nil)

// NewPublisher creates a new EventBridge publisher
func NewPublisher(client API, eventBusName string, logger *zap.Logger) *Publisher {
	return &Publisher{
		client:       client,
		eventBusName: eventBusName,
		source:       events.SourceLinks,
		maxRetries:   3,
		backoff:      100 * time.Millisecond,
		logger:       logger,
	}
}

// Publish sends a single event to EventBridge
func (p *Publisher) Publish(ctx context.Context, event events.DomainEvent) error {
	return p.PublishBatch(ctx, []events.DomainEvent{event})
}

// PublishBatch sends events in chunks of ten, retrying entries EventBridge
// reports as failed
func (p *Publisher) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	for i := 0; i < len(domainEvents); i += batchSize {
		end := i + batchSize
		if end > len(domainEvents) {
			end = len(domainEvents)
		}
		if err := p.publishWithRetry(ctx, domainEvents[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) publishWithRetry(ctx context.Context, domainEvents []events.DomainEvent) error {
	entries := p.toEntries(domainEvents)
	backoff := p.backoff

	for attempt := 0; attempt < p.maxRetries && len(entries) > 0; attempt++ {
		if attempt > 0 {
			p.logger.Warn("Retrying event publication",
				zap.Int("attempt", attempt+1),
				zap.Int("pending", len(entries)),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-time.After(backoff):
				backoff *= 2
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		failed, err := p.put(ctx, entries)
		if err != nil {
			return err
		}
		entries = failed
	}

	if len(entries) > 0 {
		return fmt.Errorf("%d events failed to publish after %d attempts", len(entries), p.maxRetries)
	}
	return nil
}

// put returns the entries EventBridge rejected
func (p *Publisher) put(ctx context.Context, entries []types.PutEventsRequestEntry) ([]types.PutEventsRequestEntry, error) {
	result, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
	if err != nil {
		return nil, fmt.Errorf("failed to publish events to EventBridge: %w", err)
	}

	if result.FailedEntryCount == 0 {
		p.logger.Debug("Events published to EventBridge",
			zap.Int("count", len(entries)),
			zap.String("eventBus", p.eventBusName),
		)
		return nil, nil
	}

	var failed []types.PutEventsRequestEntry
	for i, entry := range result.Entries {
		if entry.ErrorCode == nil || i >= len(entries) {
			continue
		}
		p.logger.Error("Failed to publish event",
			zap.String("detailType", aws.ToString(entries[i].DetailType)),
			zap.String("errorCode", *entry.ErrorCode),
			zap.String("errorMessage", aws.ToString(entry.ErrorMessage)),
		)
		failed = append(failed, entries[i])
	}
	return failed, nil
}

func (p *Publisher) toEntries(domainEvents []events.DomainEvent) []types.PutEventsRequestEntry {
	entries := make([]types.PutEventsRequestEntry, 0, len(domainEvents))
	for _, event := range domainEvents {
		eventData, err := json.Marshal(event)
		if err != nil {
			p.logger.Error("Failed to marshal event",
				zap.Error(err),
				zap.String("eventType", event.GetEventType()),
			)
			continue
		}

		entries = append(entries, types.PutEventsRequestEntry{
			EventBusName: aws.String(p.eventBusName),
			Source:       aws.String(p.source),
			DetailType:   aws.String(event.GetEventType()),
			Detail:       aws.String(string(eventData)),
			Time:         aws.Time(event.GetTimestamp()),
			Resources: []string{
				fmt.Sprintf("arn:aws:kbgraph::user/%s", event.GetAggregateID()),
			},
		})
	}
	return entries
}
