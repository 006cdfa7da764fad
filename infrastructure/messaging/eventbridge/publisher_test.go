package eventbridge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kbgraph-backend/domain/events"
)

type fakeEventBridge struct {
	calls []*eventbridge.PutEventsInput
	// failFirst rejects this many entries on the first call
	failFirst int
	err       error
}

func (f *fakeEventBridge) PutEvents(_ context.Context, in *eventbridge.PutEventsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	f.calls = append(f.calls, in)
	if f.err != nil {
		return nil, f.err
	}

	out := &eventbridge.PutEventsOutput{Entries: make([]types.PutEventsResultEntry, len(in.Entries))}
	if len(f.calls) == 1 {
		for i := 0; i < f.failFirst && i < len(in.Entries); i++ {
			out.Entries[i] = types.PutEventsResultEntry{
				ErrorCode:    aws.String("ThrottlingException"),
				ErrorMessage: aws.String("Rate exceeded"),
			}
			out.FailedEntryCount++
		}
	}
	return out, nil
}

func newTestPublisher(client API) *Publisher {
	p := NewPublisher(client, "kbgraph-bus", zap.NewNop())
	p.backoff = time.Millisecond
	return p
}

func TestPublish_Entry(t *testing.T) {
	fake := &fakeEventBridge{}
	p := newTestPublisher(fake)

	event := events.NewLinksGeneratedEvent("user-1", 10, 12, 5, 10, 0)
	require.NoError(t, p.Publish(context.Background(), event))

	require.Len(t, fake.calls, 1)
	entry := fake.calls[0].Entries[0]
	assert.Equal(t, "kbgraph.links", aws.ToString(entry.Source))
	assert.Equal(t, events.TypeLinksGenerated, aws.ToString(entry.DetailType))
	assert.Equal(t, "kbgraph-bus", aws.ToString(entry.EventBusName))

	var detail map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(entry.Detail)), &detail))
	assert.Equal(t, "user-1", detail["userId"])
	assert.Equal(t, float64(10), detail["linksCreated"])
}

func TestPublishBatch_ChunksOfTen(t *testing.T) {
	fake := &fakeEventBridge{}
	p := newTestPublisher(fake)

	batch := make([]events.DomainEvent, 23)
	for i := range batch {
		batch[i] = events.NewLinksGeneratedEvent("user-1", i, i, i, i, 0)
	}

	require.NoError(t, p.PublishBatch(context.Background(), batch))
	require.Len(t, fake.calls, 3)
	assert.Len(t, fake.calls[0].Entries, 10)
	assert.Len(t, fake.calls[2].Entries, 3)
}

func TestPublish_RetriesFailedEntries(t *testing.T) {
	fake := &fakeEventBridge{failFirst: 2}
	p := newTestPublisher(fake)

	batch := []events.DomainEvent{
		events.NewLinksGeneratedEvent("user-1", 1, 1, 1, 1, 0),
		events.NewLinksGeneratedEvent("user-2", 1, 1, 1, 1, 0),
		events.NewLinksGeneratedEvent("user-3", 1, 1, 1, 1, 0),
	}
	require.NoError(t, p.PublishBatch(context.Background(), batch))

	require.Len(t, fake.calls, 2)
	assert.Len(t, fake.calls[1].Entries, 2)
}

func TestPublish_ClientError(t *testing.T) {
	fake := &fakeEventBridge{err: errors.New("access denied")}
	p := newTestPublisher(fake)

	err := p.Publish(context.Background(), events.NewLinksGeneratedEvent("user-1", 0, 0, 0, 0, 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
	assert.Len(t, fake.calls, 1)
}
