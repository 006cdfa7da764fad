package ports

import (
	"context"
	"time"

	"kbgraph-backend/domain/core/entities"
	"kbgraph-backend/domain/events"
)

// EntryRepository reads knowledge base entries.
// This is a port in hexagonal architecture - the domain doesn't know about the implementation
type EntryRepository interface {
	// ListByOwner returns every entry that belongs to the owner
	ListByOwner(ctx context.Context, ownerID string) ([]entities.KnowledgeEntry, error)
}

// LinkRepository persists generated links
type LinkRepository interface {
	// UpsertLinks writes links keyed on (owner, source, target), replacing
	// strength and shared keywords on conflict. It returns the number of rows
	// actually written, which may be non-zero alongside an error.
	UpsertLinks(ctx context.Context, ownerID string, links []entities.GraphLink) (int, error)

	// ListByOwner returns every stored link of the owner
	ListByOwner(ctx context.Context, ownerID string) ([]entities.GraphLink, error)
}

// EventPublisher publishes domain events to the outside world
type EventPublisher interface {
	Publish(ctx context.Context, event events.DomainEvent) error
}

// LinkMetrics records the outcome of generation runs
type LinkMetrics interface {
	RecordRun(status string, duration time.Duration, entries, comparisons, candidates, written int)
	RecordBatch(status string, size int, duration time.Duration)
}

// NoopMetrics discards every measurement
type NoopMetrics struct{}

func (NoopMetrics) RecordRun(string, time.Duration, int, int, int, int) {}
func (NoopMetrics) RecordBatch(string, int, time.Duration)              {}

// IdempotencyStore remembers which deliveries have already been processed
type IdempotencyStore interface {
	// Claim marks key as in progress for ttl. It returns false when the key
	// is already claimed.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release drops a claim so a retried delivery can run again
	Release(ctx context.Context, key string) error
}
