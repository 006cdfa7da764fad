package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyStore(t *testing.T) {
	store := NewIdempotencyStore()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	ok, err := store.Claim(ctx, "event-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = store.Claim(ctx, "event-1", time.Minute)
	assert.False(t, ok)

	ok, _ = store.Claim(ctx, "event-2", time.Minute)
	assert.True(t, ok)

	require.NoError(t, store.Release(ctx, "event-1"))
	ok, _ = store.Claim(ctx, "event-1", time.Minute)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = store.Claim(ctx, "event-2", time.Minute)
	assert.True(t, ok)
	assert.Len(t, store.claims, 1, "expired claims are swept")
}
