package services

import (
	"fmt"
	"sort"

	"kbgraph-backend/domain/core/entities"
)

// LinkOrdering selects which candidates survive the MaxLinks cap
type LinkOrdering string

const (
	// OrderingDiscovery stops at the cap in comparison order (i, then j). This
	// is the historical behavior and the default.
	OrderingDiscovery LinkOrdering = "discovery"

	// OrderingStrength compares every pair and keeps the strongest links.
	OrderingStrength LinkOrdering = "strength"
)

// IsValid checks if the ordering is known
func (o LinkOrdering) IsValid() bool {
	return o == OrderingDiscovery || o == OrderingStrength
}

// LinkBuilderConfig contains the tunables for pairwise link discovery
type LinkBuilderConfig struct {
	MinSimilarity     float64
	MaxLinks          int
	CategoryBonus     float64
	MinSharedKeywords int
	Ordering          LinkOrdering
}

// DefaultLinkBuilderConfig returns the default link discovery settings
func DefaultLinkBuilderConfig() LinkBuilderConfig {
	return LinkBuilderConfig{
		MinSimilarity:     0.15,
		MaxLinks:          1000,
		CategoryBonus:     0.10,
		MinSharedKeywords: 2,
		Ordering:          OrderingDiscovery,
	}
}

// Validate checks the configuration for values the builder cannot use
func (c LinkBuilderConfig) Validate() error {
	if !inUnitInterval(c.MinSimilarity) {
		return fmt.Errorf("min similarity must be within [0, 1], got %v", c.MinSimilarity)
	}
	if !inUnitInterval(c.CategoryBonus) {
		return fmt.Errorf("category bonus must be within [0, 1], got %v", c.CategoryBonus)
	}
	if c.MaxLinks < 1 {
		return fmt.Errorf("max links must be positive, got %d", c.MaxLinks)
	}
	if c.MinSharedKeywords < 1 {
		return fmt.Errorf("min shared keywords must be positive, got %d", c.MinSharedKeywords)
	}
	if !c.Ordering.IsValid() {
		return fmt.Errorf("unknown ordering %q", c.Ordering)
	}
	return nil
}

// inUnitInterval is false for NaN
func inUnitInterval(v float64) bool {
	return v >= 0 && v <= 1
}

// KeywordedEntry pairs an entry with its extracted keywords
type KeywordedEntry struct {
	Entry    entities.KnowledgeEntry
	Keywords []string
}

// LinkBuildResult is the output of a pairwise pass
type LinkBuildResult struct {
	Links       []entities.GraphLink
	Comparisons int
	Candidates  int
	// Truncated is set when the cap stopped discovery or dropped candidates.
	Truncated bool
}

// LinkBuilder compares every pair of an owner's entries
type LinkBuilder struct {
	config LinkBuilderConfig
}

// NewLinkBuilder creates a builder with the given configuration
func NewLinkBuilder(config LinkBuilderConfig) *LinkBuilder {
	if config.Ordering == "" {
		config.Ordering = OrderingDiscovery
	}
	if config.MinSharedKeywords <= 0 {
		config.MinSharedKeywords = DefaultLinkBuilderConfig().MinSharedKeywords
	}
	return &LinkBuilder{config: config}
}

// Config returns the active configuration
func (lb *LinkBuilder) Config() LinkBuilderConfig {
	return lb.config
}

// Build emits a link for every pair i < j whose pre-bonus Jaccard similarity
// reaches MinSimilarity and that shares at least MinSharedKeywords keywords.
func (lb *LinkBuilder) Build(ownerID string, entries []KeywordedEntry) LinkBuildResult {
	result := LinkBuildResult{Links: make([]entities.GraphLink, 0)}
	capAtDiscovery := lb.config.Ordering == OrderingDiscovery

outer:
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			if capAtDiscovery && len(result.Links) >= lb.config.MaxLinks {
				result.Truncated = true
				break outer
			}

			source, target := entries[i], entries[j]
			if source.Entry.ID == target.Entry.ID {
				continue
			}

			result.Comparisons++
			link, ok := lb.evaluate(ownerID, source, target)
			if ok {
				result.Links = append(result.Links, link)
			}
		}
	}

	if !capAtDiscovery {
		sort.SliceStable(result.Links, func(a, b int) bool {
			return result.Links[a].Strength > result.Links[b].Strength
		})
		if len(result.Links) > lb.config.MaxLinks {
			result.Links = result.Links[:lb.config.MaxLinks]
			result.Truncated = true
		}
	}

	result.Candidates = len(result.Links)
	return result
}

func (lb *LinkBuilder) evaluate(ownerID string, source, target KeywordedEntry) (entities.GraphLink, bool) {
	shared := SharedKeywords(source.Keywords, target.Keywords)
	if len(shared) < lb.config.MinSharedKeywords {
		return entities.GraphLink{}, false
	}

	similarity := jaccardFromShared(source.Keywords, target.Keywords, len(shared))
	if similarity < lb.config.MinSimilarity {
		return entities.GraphLink{}, false
	}

	strength := similarity
	if source.Entry.SameCategory(target.Entry) {
		strength += lb.config.CategoryBonus
	}

	return entities.GraphLink{
		OwnerID:        ownerID,
		SourceEntryID:  source.Entry.ID,
		TargetEntryID:  target.Entry.ID,
		LinkType:       entities.LinkTypeAuto,
		Strength:       entities.ClampStrength(strength),
		SharedKeywords: shared,
	}, true
}
