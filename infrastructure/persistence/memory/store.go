package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"kbgraph-backend/domain/core/entities"
)

// InMemoryStore keeps entries and links in process memory. It serves local
// development and tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]entities.KnowledgeEntry
	links   map[entities.LinkKey]entities.GraphLink
	now     func() time.Time
}

// NewInMemoryStore creates an empty in-memory store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[string][]entities.KnowledgeEntry),
		links:   make(map[entities.LinkKey]entities.GraphLink),
		now:     time.Now,
	}
}

// AddEntries seeds entries for their owners
func (s *InMemoryStore) AddEntries(entries ...entities.KnowledgeEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.entries[e.OwnerID] = append(s.entries[e.OwnerID], e)
	}
}

// ListByOwner returns a copy of the owner's entries in insertion order
func (s *InMemoryStore) ListByOwner(ctx context.Context, ownerID string) ([]entities.KnowledgeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entities.KnowledgeEntry, len(s.entries[ownerID]))
	copy(out, s.entries[ownerID])
	return out, nil
}

// Links exposes the link side of the store as a ports.LinkRepository
func (s *InMemoryStore) Links() *InMemoryLinkRepository {
	return &InMemoryLinkRepository{store: s}
}

// InMemoryLinkRepository is the link half of InMemoryStore
type InMemoryLinkRepository struct {
	store *InMemoryStore
}

// UpsertLinks inserts or replaces links keyed on (owner, source, target)
func (r *InMemoryLinkRepository) UpsertLinks(ctx context.Context, ownerID string, links []entities.GraphLink) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, link := range links {
		if link.OwnerID != ownerID {
			return 0, fmt.Errorf("link %s->%s belongs to %q, not %q", link.SourceEntryID, link.TargetEntryID, link.OwnerID, ownerID)
		}
	}
	for _, link := range links {
		key := link.Key()
		if existing, ok := s.links[key]; ok {
			link.ID = existing.ID
			link.CreatedAt = existing.CreatedAt
		} else {
			link.ID = uuid.NewString()
			link.CreatedAt = now
		}
		link.UpdatedAt = now
		link.SharedKeywords = append([]string(nil), link.SharedKeywords...)
		s.links[key] = link
	}
	return len(links), nil
}

// ListByOwner returns the owner's links ordered by source then target
func (r *InMemoryLinkRepository) ListByOwner(ctx context.Context, ownerID string) ([]entities.GraphLink, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entities.GraphLink, 0)
	for key, link := range s.links {
		if key.OwnerID == ownerID {
			out = append(out, link)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SourceEntryID != out[j].SourceEntryID {
			return out[i].SourceEntryID < out[j].SourceEntryID
		}
		return out[i].TargetEntryID < out[j].TargetEntryID
	})
	return out, nil
}
