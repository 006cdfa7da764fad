package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbgraph-backend/domain/core/entities"
)

func link(owner, source, target string, strength float64, shared ...string) entities.GraphLink {
	return entities.GraphLink{
		OwnerID:        owner,
		SourceEntryID:  source,
		TargetEntryID:  target,
		LinkType:       entities.LinkTypeAuto,
		Strength:       strength,
		SharedKeywords: shared,
	}
}

func TestInMemoryStore_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	links := store.Links()

	n, err := links.UpsertLinks(ctx, "user-1", []entities.GraphLink{
		link("user-1", "A", "B", 0.4, "alpha", "betas"),
		link("user-1", "A", "C", 0.3, "alpha", "gamma"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	first, err := links.ListByOwner(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, first, 2)

	_, err = links.UpsertLinks(ctx, "user-1", []entities.GraphLink{
		link("user-1", "A", "B", 0.9, "alpha", "betas", "delta"),
	})
	require.NoError(t, err)

	second, err := links.ListByOwner(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, 0.9, second[0].Strength)
	assert.Equal(t, []string{"alpha", "betas", "delta"}, second[0].SharedKeywords)
	assert.Equal(t, first[1], second[1])
}

func TestInMemoryStore_ScopedByOwner(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	store.AddEntries(
		entities.KnowledgeEntry{ID: "A", OwnerID: "user-1"},
		entities.KnowledgeEntry{ID: "B", OwnerID: "user-2"},
	)

	entries, err := store.ListByOwner(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "A", entries[0].ID)

	_, err = store.Links().UpsertLinks(ctx, "user-1", []entities.GraphLink{link("user-2", "A", "B", 0.5)})
	assert.Error(t, err)

	other, err := store.Links().ListByOwner(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestInMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := NewInMemoryStore().Links().UpsertLinks(ctx, "user-1", []entities.GraphLink{link("user-1", "A", "B", 0.5)})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
}
