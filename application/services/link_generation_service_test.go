package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kbgraph-backend/application/commands"
	"kbgraph-backend/application/ports/mocks"
	"kbgraph-backend/domain/core/entities"
	domainservices "kbgraph-backend/domain/services"
	pkgerrors "kbgraph-backend/pkg/errors"
)

func entry(t *testing.T, id, owner, category string, keyPoints ...string) entities.KnowledgeEntry {
	t.Helper()
	raw, err := json.Marshal(map[string][]string{"keyPoints": keyPoints})
	require.NoError(t, err)
	return entities.KnowledgeEntry{ID: id, OwnerID: owner, Title: id, Category: category, RawSummary: raw}
}

// clustered returns n entries that all share "alpha" and "betas", giving
// n*(n-1)/2 candidate links.
func clustered(t *testing.T, owner string, n int) []entities.KnowledgeEntry {
	entries := make([]entities.KnowledgeEntry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, entry(t, fmt.Sprintf("E%02d", i), owner, "Tech", fmt.Sprintf("alpha betas extra%02d", i)))
	}
	return entries
}

// fakeLinkRepo records every batch and fails the calls listed in failOn,
// keyed by the zero-based call number.
type fakeLinkRepo struct {
	mu      sync.Mutex
	calls   int
	written int
	failOn  map[int]error
}

func (f *fakeLinkRepo) UpsertLinks(_ context.Context, _ string, links []entities.GraphLink) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.calls
	f.calls++
	if err, ok := f.failOn[call]; ok {
		return 0, err
	}
	f.written += len(links)
	return len(links), nil
}

func (f *fakeLinkRepo) ListByOwner(context.Context, string) ([]entities.GraphLink, error) {
	return nil, nil
}

func newService(entries *mocks.MockEntryRepository, links *fakeLinkRepo, batchSize, parallelism int) *LinkGenerationService {
	config := DefaultLinkGenerationConfig()
	config.BatchSize = batchSize
	config.Parallelism = parallelism
	return NewLinkGenerationService(entries, links, nil, nil, config, zap.NewNop())
}

func entryRepoWith(entries []entities.KnowledgeEntry) *mocks.MockEntryRepository {
	repo := new(mocks.MockEntryRepository)
	repo.On("ListByOwner", mock.Anything, "user-1").Return(entries, nil)
	return repo
}

func TestGenerateLinks_NoEntries(t *testing.T) {
	ctx := context.Background()
	entryRepo := entryRepoWith([]entities.KnowledgeEntry{})
	linkRepo := new(mocks.MockLinkRepository)

	svc := NewLinkGenerationService(entryRepo, linkRepo, nil, nil, DefaultLinkGenerationConfig(), zap.NewNop())
	result, err := svc.GenerateLinks(ctx, commands.GenerateLinksCommand{UserID: "user-1"})

	require.NoError(t, err)
	assert.Equal(t, &commands.GenerateLinksResult{Success: true, Message: NoEntriesMessage}, result)
	linkRepo.AssertNotCalled(t, "UpsertLinks", mock.Anything, mock.Anything, mock.Anything)
	entryRepo.AssertExpectations(t)
}

func TestGenerateLinks_MachineLearningExample(t *testing.T) {
	ctx := context.Background()
	entryRepo := entryRepoWith([]entities.KnowledgeEntry{
		entry(t, "A", "user-1", "Technology", "Machine learning models require training"),
		entry(t, "B", "user-1", "Technology", "Training machine learning systems needs data"),
	})
	linkRepo := new(mocks.MockLinkRepository)
	publisher := new(mocks.MockEventPublisher)
	metrics := new(mocks.MockLinkMetrics)

	var captured []entities.GraphLink
	linkRepo.On("UpsertLinks", mock.Anything, "user-1", mock.AnythingOfType("[]entities.GraphLink")).
		Run(func(args mock.Arguments) {
			captured = args.Get(2).([]entities.GraphLink)
		}).
		Return(1, nil).Once()
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()
	metrics.On("RecordBatch", "success", 1, mock.Anything).Once()
	metrics.On("RecordRun", "success", mock.Anything, 2, 1, 1, 1).Once()

	svc := NewLinkGenerationService(entryRepo, linkRepo, publisher, metrics, DefaultLinkGenerationConfig(), zap.NewNop())
	result, err := svc.GenerateLinks(ctx, commands.GenerateLinksCommand{UserID: "user-1"})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.LinksCreated)
	assert.Equal(t, 2, result.TotalEntries)
	assert.Equal(t, 1, result.Comparisons)
	assert.Equal(t, 1, result.Candidates)

	require.Len(t, captured, 1)
	assert.Equal(t, "A", captured[0].SourceEntryID)
	assert.Equal(t, "B", captured[0].TargetEntryID)
	assert.Equal(t, entities.LinkTypeAuto, captured[0].LinkType)
	assert.Equal(t, []string{"machine", "learning", "training"}, captured[0].SharedKeywords)
	assert.InDelta(t, 0.5286, captured[0].Strength, 1e-4)

	linkRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
	metrics.AssertExpectations(t)
}

func TestGenerateLinks_PartialBatchFailure(t *testing.T) {
	ctx := context.Background()
	entryRepo := entryRepoWith(clustered(t, "user-1", 5))

	// 10 candidates in batches of 3, 3, 3 and 1; the second batch fails
	links := &fakeLinkRepo{failOn: map[int]error{
		1: pkgerrors.NewDatabase("connection reset", errors.New("EOF")),
	}}
	svc := newService(entryRepo, links, 3, 1)

	result, err := svc.GenerateLinks(ctx, commands.GenerateLinksCommand{UserID: "user-1"})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 10, result.Candidates)
	assert.Equal(t, 7, result.LinksCreated)
	assert.Equal(t, 1, result.FailedBatches)
	assert.Equal(t, 4, links.calls)
	assert.Contains(t, result.Message, "7 of 10")
}

func TestGenerateLinks_ParallelFailureDoesNotCancelOthers(t *testing.T) {
	ctx := context.Background()
	entryRepo := entryRepoWith(clustered(t, "user-1", 6))

	// 15 candidates in 8 batches of 2; two of them fail
	links := &fakeLinkRepo{failOn: map[int]error{
		0: errors.New("timeout"),
		5: errors.New("timeout"),
	}}
	svc := newService(entryRepo, links, 2, 4)

	result, err := svc.GenerateLinks(ctx, commands.GenerateLinksCommand{UserID: "user-1"})

	require.NoError(t, err)
	assert.Equal(t, 15, result.Candidates)
	assert.Equal(t, 8, links.calls)
	assert.Equal(t, 2, result.FailedBatches)
	assert.Equal(t, links.written, result.LinksCreated)
	assert.Less(t, result.LinksCreated, result.Candidates)
}

func TestGenerateLinks_SchemaMissingIsFatal(t *testing.T) {
	ctx := context.Background()
	entryRepo := entryRepoWith(clustered(t, "user-1", 5))
	links := &fakeLinkRepo{failOn: map[int]error{
		0: pkgerrors.NewSchemaMissing("knowledge_links", errors.New("42P01")),
	}}
	svc := newService(entryRepo, links, 3, 1)

	result, err := svc.GenerateLinks(ctx, commands.GenerateLinksCommand{UserID: "user-1"})

	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsSchemaMissing(err))
	assert.Equal(t, 1, links.calls)

	appErr, ok := pkgerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, pkgerrors.SchemaMissingHint, appErr.Hint)
}

func TestGenerateLinks_SchemaMissingParallel(t *testing.T) {
	ctx := context.Background()
	entryRepo := entryRepoWith(clustered(t, "user-1", 5))
	links := &fakeLinkRepo{failOn: map[int]error{
		2: pkgerrors.NewSchemaMissing("knowledge_links", nil),
	}}
	svc := newService(entryRepo, links, 2, 3)

	_, err := svc.GenerateLinks(ctx, commands.GenerateLinksCommand{UserID: "user-1"})

	assert.True(t, pkgerrors.IsSchemaMissing(err))
	assert.Equal(t, 5, links.calls)
}

func TestGenerateLinks_IgnoresOtherOwnersEntries(t *testing.T) {
	ctx := context.Background()
	entries := clustered(t, "user-1", 3)
	entries = append(entries, entry(t, "foreign", "user-2", "Tech", "alpha betas intruder"))
	links := &fakeLinkRepo{}
	svc := newService(entryRepoWith(entries), links, 100, 1)

	result, err := svc.GenerateLinks(ctx, commands.GenerateLinksCommand{UserID: "user-1"})

	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalEntries)
	assert.Equal(t, 3, result.Comparisons)
	assert.Equal(t, 3, result.LinksCreated)
}

func TestGenerateLinks_MalformedSummaryDegrades(t *testing.T) {
	ctx := context.Background()
	entries := clustered(t, "user-1", 2)
	entries = append(entries, entities.KnowledgeEntry{ID: "broken", OwnerID: "user-1", RawSummary: json.RawMessage(`"just text"`)})
	entries = append(entries, entities.KnowledgeEntry{ID: "empty", OwnerID: "user-1"})
	links := &fakeLinkRepo{}
	svc := newService(entryRepoWith(entries), links, 100, 1)

	result, err := svc.GenerateLinks(ctx, commands.GenerateLinksCommand{UserID: "user-1"})

	require.NoError(t, err)
	assert.Equal(t, 4, result.TotalEntries)
	assert.Equal(t, 6, result.Comparisons)
	assert.Equal(t, 1, result.LinksCreated)
}

func TestGenerateLinks_CommandOverridesDefaults(t *testing.T) {
	ctx := context.Background()
	links := &fakeLinkRepo{}
	svc := newService(entryRepoWith(clustered(t, "user-1", 5)), links, 100, 1)

	maxLinks := 4
	result, err := svc.GenerateLinks(ctx, commands.GenerateLinksCommand{UserID: "user-1", MaxLinks: &maxLinks})
	require.NoError(t, err)
	assert.Equal(t, 4, result.LinksCreated)
	assert.True(t, result.Truncated)

	threshold := 0.9
	result, err = svc.GenerateLinks(ctx, commands.GenerateLinksCommand{UserID: "user-1", MinSimilarity: &threshold})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Candidates)
	assert.Equal(t, 10, result.Comparisons)
}

func TestGenerateLinks_Idempotent(t *testing.T) {
	ctx := context.Background()
	links := &fakeLinkRepo{}
	svc := newService(entryRepoWith(clustered(t, "user-1", 4)), links, 100, 1)

	first, err := svc.GenerateLinks(ctx, commands.GenerateLinksCommand{UserID: "user-1"})
	require.NoError(t, err)
	second, err := svc.GenerateLinks(ctx, commands.GenerateLinksCommand{UserID: "user-1"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestGenerateLinks_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid command", func(t *testing.T) {
		svc := newService(new(mocks.MockEntryRepository), &fakeLinkRepo{}, 100, 1)
		_, err := svc.GenerateLinks(ctx, commands.GenerateLinksCommand{})
		assert.True(t, pkgerrors.IsValidation(err))
	})

	t.Run("entry store unavailable", func(t *testing.T) {
		entryRepo := new(mocks.MockEntryRepository)
		entryRepo.On("ListByOwner", mock.Anything, "user-1").Return(nil, errors.New("dial tcp: refused"))
		svc := newService(entryRepo, &fakeLinkRepo{}, 100, 1)

		_, err := svc.GenerateLinks(ctx, commands.GenerateLinksCommand{UserID: "user-1"})
		require.Error(t, err)
		assert.False(t, pkgerrors.IsSchemaMissing(err))
		assert.Contains(t, err.Error(), "failed to load knowledge base entries")
	})

	t.Run("entry table missing", func(t *testing.T) {
		entryRepo := new(mocks.MockEntryRepository)
		entryRepo.On("ListByOwner", mock.Anything, "user-1").Return(nil, pkgerrors.NewSchemaMissing("knowledge_base", nil))
		svc := newService(entryRepo, &fakeLinkRepo{}, 100, 1)

		_, err := svc.GenerateLinks(ctx, commands.GenerateLinksCommand{UserID: "user-1"})
		assert.True(t, pkgerrors.IsSchemaMissing(err))
	})
}

func TestGenerateLinks_PublishFailureIsIgnored(t *testing.T) {
	ctx := context.Background()
	publisher := new(mocks.MockEventPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("throttled"))

	svc := NewLinkGenerationService(entryRepoWith(clustered(t, "user-1", 2)), &fakeLinkRepo{}, publisher, nil, DefaultLinkGenerationConfig(), zap.NewNop())
	result, err := svc.GenerateLinks(ctx, commands.GenerateLinksCommand{UserID: "user-1"})

	require.NoError(t, err)
	assert.Equal(t, 1, result.LinksCreated)
	publisher.AssertExpectations(t)
}

func TestUpdateConfig(t *testing.T) {
	ctx := context.Background()
	svc := newService(entryRepoWith(clustered(t, "user-1", 4)), &fakeLinkRepo{}, 100, 1)

	config := DefaultLinkGenerationConfig()
	config.Builder = domainservices.DefaultLinkBuilderConfig()
	config.Builder.MaxLinks = 2
	svc.UpdateConfig(config)

	result, err := svc.GenerateLinks(ctx, commands.GenerateLinksCommand{UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.LinksCreated)
}
