// Package mocks provides testify mocks of the application ports.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"kbgraph-backend/domain/core/entities"
	"kbgraph-backend/domain/events"
)

// MockEntryRepository is a mock of ports.EntryRepository
type MockEntryRepository struct {
	mock.Mock
}

func (m *MockEntryRepository) ListByOwner(ctx context.Context, ownerID string) ([]entities.KnowledgeEntry, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.KnowledgeEntry), args.Error(1)
}

// MockLinkRepository is a mock of ports.LinkRepository
type MockLinkRepository struct {
	mock.Mock
}

func (m *MockLinkRepository) UpsertLinks(ctx context.Context, ownerID string, links []entities.GraphLink) (int, error) {
	args := m.Called(ctx, ownerID, links)
	return args.Int(0), args.Error(1)
}

func (m *MockLinkRepository) ListByOwner(ctx context.Context, ownerID string) ([]entities.GraphLink, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.GraphLink), args.Error(1)
}

// MockEventPublisher is a mock of ports.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockLinkMetrics is a mock of ports.LinkMetrics
type MockLinkMetrics struct {
	mock.Mock
}

func (m *MockLinkMetrics) RecordRun(status string, duration time.Duration, entries, comparisons, candidates, written int) {
	m.Called(status, duration, entries, comparisons, candidates, written)
}

func (m *MockLinkMetrics) RecordBatch(status string, size int, duration time.Duration) {
	m.Called(status, size, duration)
}
