package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kbgraph-backend/application/ports/mocks"
	"kbgraph-backend/domain/core/entities"
	pkgerrors "kbgraph-backend/pkg/errors"
)

func testConfig() ResilienceConfig {
	cfg := DefaultResilienceConfig("test")
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = time.Millisecond
	return cfg
}

func noSleep(r *ResilientLinkRepository) {
	r.guard.sleep = func(context.Context, time.Duration) error { return nil }
}

func TestResilientLinkRepository_RetriesTransient(t *testing.T) {
	inner := new(mocks.MockLinkRepository)
	links := []entities.GraphLink{{OwnerID: "user-1", SourceEntryID: "A", TargetEntryID: "B"}}

	inner.On("UpsertLinks", mock.Anything, "user-1", links).
		Return(0, pkgerrors.NewDatabase("upsert links", errors.New("connection reset"))).Twice()
	inner.On("UpsertLinks", mock.Anything, "user-1", links).Return(1, nil).Once()

	repo := NewResilientLinkRepository(inner, testConfig(), zap.NewNop())
	noSleep(repo)

	n, err := repo.UpsertLinks(context.Background(), "user-1", links)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	inner.AssertNumberOfCalls(t, "UpsertLinks", 3)
}

func TestResilientLinkRepository_DoesNotRetrySchemaMissing(t *testing.T) {
	inner := new(mocks.MockLinkRepository)
	inner.On("UpsertLinks", mock.Anything, "user-1", mock.Anything).
		Return(0, pkgerrors.NewSchemaMissing("knowledge_links", errors.New("no such table")))

	repo := NewResilientLinkRepository(inner, testConfig(), zap.NewNop())
	noSleep(repo)

	_, err := repo.UpsertLinks(context.Background(), "user-1", nil)
	assert.True(t, pkgerrors.IsSchemaMissing(err))
	inner.AssertNumberOfCalls(t, "UpsertLinks", 1)
}

func TestResilientLinkRepository_GivesUp(t *testing.T) {
	inner := new(mocks.MockLinkRepository)
	cause := pkgerrors.NewDatabase("list links", errors.New("timeout"))
	inner.On("ListByOwner", mock.Anything, "user-1").Return(nil, cause)

	cfg := testConfig()
	cfg.MaxRetries = 2
	cfg.MinRequests = 100
	repo := NewResilientLinkRepository(inner, cfg, zap.NewNop())
	noSleep(repo)

	_, err := repo.ListByOwner(context.Background(), "user-1")
	assert.ErrorIs(t, err, cause)
	inner.AssertNumberOfCalls(t, "ListByOwner", 3)
}

func TestResilientLinkRepository_BreakerOpens(t *testing.T) {
	inner := new(mocks.MockLinkRepository)
	inner.On("ListByOwner", mock.Anything, "user-1").Return(nil, errors.New("connection refused"))

	cfg := testConfig()
	cfg.MaxRetries = 0
	repo := NewResilientLinkRepository(inner, cfg, zap.NewNop())

	for i := 0; i < int(cfg.MinRequests); i++ {
		_, err := repo.ListByOwner(context.Background(), "user-1")
		require.Error(t, err)
	}

	_, err := repo.ListByOwner(context.Background(), "user-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store unavailable")
	inner.AssertNumberOfCalls(t, "ListByOwner", int(cfg.MinRequests))
}

func TestResilientLinkRepository_CancelledWhileWaiting(t *testing.T) {
	inner := new(mocks.MockLinkRepository)
	inner.On("ListByOwner", mock.Anything, "user-1").Return(nil, errors.New("timeout"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := NewResilientLinkRepository(inner, testConfig(), zap.NewNop())
	_, err := repo.ListByOwner(ctx, "user-1")

	assert.ErrorIs(t, err, context.Canceled)
	inner.AssertNumberOfCalls(t, "ListByOwner", 1)
}

func TestResilientEntryRepository_PassesThrough(t *testing.T) {
	inner := new(mocks.MockEntryRepository)
	entries := []entities.KnowledgeEntry{{ID: "A", OwnerID: "user-1"}}
	inner.On("ListByOwner", mock.Anything, "user-1").Return(entries, nil)

	repo := NewResilientEntryRepository(inner, testConfig(), zap.NewNop())
	got, err := repo.ListByOwner(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestGuardDelay(t *testing.T) {
	g := newGuard(ResilienceConfig{
		Name:          "delay",
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      300 * time.Millisecond,
		BackoffFactor: 2,
	}, zap.NewNop())

	assert.Equal(t, 100*time.Millisecond, g.delay(1))
	assert.Equal(t, 200*time.Millisecond, g.delay(2))
	assert.Equal(t, 300*time.Millisecond, g.delay(3))
}
