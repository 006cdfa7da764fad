package memory

import (
	"context"
	"sync"
	"time"

	"kbgraph-backend/application/ports"
)

// IdempotencyStore keeps claims in process. It only deduplicates deliveries
// that reach the same instance.
type IdempotencyStore struct {
	mu     sync.Mutex
	claims map[string]time.Time
	now    func() time.Time
}

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

// NewIdempotencyStore creates an empty store
func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{claims: make(map[string]time.Time), now: time.Now}
}

// Claim implements ports.IdempotencyStore
func (s *IdempotencyStore) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if expires, ok := s.claims[key]; ok && now.Before(expires) {
		return false, nil
	}
	s.claims[key] = now.Add(ttl)

	for k, expires := range s.claims {
		if !now.Before(expires) {
			delete(s.claims, k)
		}
	}
	return true, nil
}

// Release implements ports.IdempotencyStore
func (s *IdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claims, key)
	return nil
}
