// Package queries contains the read side of the link graph.
package queries

import (
	"context"
	"sort"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"kbgraph-backend/application/ports"
	"kbgraph-backend/domain/events"
	pkgerrors "kbgraph-backend/pkg/errors"
	"kbgraph-backend/pkg/utils"
)

// GetGraphDataQuery represents a request to retrieve the link graph of a user
type GetGraphDataQuery struct {
	UserID string `json:"userId" validate:"required"`
}

// GraphNode is one entry in the graph
type GraphNode struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
}

// GraphEdge is one stored link in the graph
type GraphEdge struct {
	ID             string   `json:"id"`
	Source         string   `json:"source"`
	Target         string   `json:"target"`
	Strength       float64  `json:"strength"`
	SharedKeywords []string `json:"sharedKeywords"`
	Type           string   `json:"type"`
}

// GraphData is the node/edge view served to visualizations
type GraphData struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// GraphQueryService joins entries with their stored links
type GraphQueryService struct {
	entries ports.EntryRepository
	links   ports.LinkRepository
	cache   *expirable.LRU[string, *GraphData]
	logger  *zap.Logger
}

// NewGraphQueryService creates the service. A zero ttl disables caching.
func NewGraphQueryService(entries ports.EntryRepository, links ports.LinkRepository, cacheSize int, ttl time.Duration, logger *zap.Logger) *GraphQueryService {
	s := &GraphQueryService{entries: entries, links: links, logger: logger}
	if ttl > 0 && cacheSize > 0 {
		s.cache = expirable.NewLRU[string, *GraphData](cacheSize, nil, ttl)
	}
	return s
}

// GetGraphData returns the owner's entries as nodes and stored links as
// edges. Edges whose endpoints are not among the owner's entries are dropped.
func (s *GraphQueryService) GetGraphData(ctx context.Context, query GetGraphDataQuery) (*GraphData, error) {
	if err := utils.ValidateStruct(query); err != nil {
		return nil, pkgerrors.NewValidation(err.Error())
	}

	if s.cache != nil {
		if cached, ok := s.cache.Get(query.UserID); ok {
			return cached, nil
		}
	}

	entries, err := s.entries.ListByOwner(ctx, query.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load knowledge base entries")
	}
	links, err := s.links.ListByOwner(ctx, query.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load knowledge links")
	}

	result := &GraphData{
		Nodes: make([]GraphNode, 0, len(entries)),
		Edges: make([]GraphEdge, 0, len(links)),
	}
	known := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.OwnerID != query.UserID || known[e.ID] {
			continue
		}
		known[e.ID] = true
		result.Nodes = append(result.Nodes, GraphNode{ID: e.ID, Title: e.Title, Category: e.Category})
	}

	dropped := 0
	for _, l := range links {
		if !known[l.SourceEntryID] || !known[l.TargetEntryID] {
			dropped++
			continue
		}
		shared := l.SharedKeywords
		if shared == nil {
			shared = []string{}
		}
		result.Edges = append(result.Edges, GraphEdge{
			ID:             l.ID,
			Source:         l.SourceEntryID,
			Target:         l.TargetEntryID,
			Strength:       l.Strength,
			SharedKeywords: shared,
			Type:           l.LinkType.String(),
		})
	}
	if dropped > 0 {
		s.logger.Debug("Dropped dangling links",
			zap.String("userID", query.UserID),
			zap.Int("dropped", dropped),
		)
	}

	sort.SliceStable(result.Edges, func(i, j int) bool {
		if result.Edges[i].Source != result.Edges[j].Source {
			return result.Edges[i].Source < result.Edges[j].Source
		}
		return result.Edges[i].Target < result.Edges[j].Target
	})

	if s.cache != nil {
		s.cache.Add(query.UserID, result)
	}
	return result, nil
}

// Invalidate drops the cached graph of an owner
func (s *GraphQueryService) Invalidate(ownerID string) {
	if s.cache != nil {
		s.cache.Remove(ownerID)
	}
}

// OnLinksGenerated drops the cached graph of the run's owner
func (s *GraphQueryService) OnLinksGenerated(_ context.Context, event events.DomainEvent) error {
	s.Invalidate(event.GetAggregateID())
	return nil
}
