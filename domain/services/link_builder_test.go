package services

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbgraph-backend/domain/core/entities"
)

func keyworded(id, category string, keywords ...string) KeywordedEntry {
	return KeywordedEntry{
		Entry:    entities.KnowledgeEntry{ID: id, OwnerID: "user-1", Category: category},
		Keywords: keywords,
	}
}

func TestJaccardSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want float64
	}{
		{"both empty", nil, nil, 0},
		{"one empty", []string{"alpha"}, nil, 0},
		{"identical", []string{"alpha", "betas"}, []string{"betas", "alpha"}, 1},
		{"disjoint", []string{"alpha"}, []string{"betas"}, 0},
		{"partial", []string{"alpha", "betas", "gamma"}, []string{"betas", "gamma", "delta"}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, JaccardSimilarity(tt.a, tt.b), 1e-9)
			assert.InDelta(t, JaccardSimilarity(tt.a, tt.b), JaccardSimilarity(tt.b, tt.a), 1e-12)
		})
	}
}

func TestSharedKeywords_SourceOrder(t *testing.T) {
	got := SharedKeywords([]string{"gamma", "alpha", "betas"}, []string{"alpha", "betas", "gamma"})
	assert.Equal(t, []string{"gamma", "alpha", "betas"}, got)
}

func TestLinkBuilder_MachineLearningExample(t *testing.T) {
	extractor := NewKeywordExtractor(DefaultKeywordExtractorConfig())
	a := KeywordedEntry{
		Entry: entities.KnowledgeEntry{ID: "A", Category: "Technology"},
		Keywords: extractor.Extract(&entities.StructuredSummary{
			KeyPoints: []string{"Machine learning models require training"},
		}),
	}
	b := KeywordedEntry{
		Entry: entities.KnowledgeEntry{ID: "B", Category: "Technology"},
		Keywords: extractor.Extract(&entities.StructuredSummary{
			KeyPoints: []string{"Training machine learning systems needs data"},
		}),
	}

	result := NewLinkBuilder(DefaultLinkBuilderConfig()).Build("user-1", []KeywordedEntry{a, b})

	require.Len(t, result.Links, 1)
	link := result.Links[0]
	assert.Equal(t, "A", link.SourceEntryID)
	assert.Equal(t, "B", link.TargetEntryID)
	assert.Equal(t, "user-1", link.OwnerID)
	assert.Equal(t, entities.LinkTypeAuto, link.LinkType)
	assert.Equal(t, []string{"machine", "learning", "training"}, link.SharedKeywords)
	assert.InDelta(t, 3.0/7.0+0.10, link.Strength, 1e-9)
	assert.Equal(t, 1, result.Comparisons)
	assert.Equal(t, 1, result.Candidates)
	assert.False(t, result.Truncated)
}

func TestLinkBuilder_NoLinkForDisjointEntries(t *testing.T) {
	entries := []KeywordedEntry{
		keyworded("A", "Cooking", "pasta", "tomato", "basil"),
		keyworded("B", "Physics", "quark", "boson", "lepton"),
	}

	result := NewLinkBuilder(DefaultLinkBuilderConfig()).Build("user-1", entries)

	assert.Empty(t, result.Links)
	assert.Equal(t, 1, result.Comparisons)
	assert.Equal(t, 0, result.Candidates)
}

func TestLinkBuilder_Gates(t *testing.T) {
	tests := []struct {
		name          string
		minSimilarity float64
		a, b          KeywordedEntry
		wantLink      bool
	}{
		{
			name:          "single shared keyword is not enough",
			minSimilarity: 0.15,
			a:             keyworded("A", "Same", "alpha", "betas"),
			b:             keyworded("B", "Same", "alpha", "gamma"),
		},
		{
			// 2 shared of 14 is 0.1428, below 0.15 even though the category
			// bonus would lift the strength above it.
			name:          "gate uses similarity before bonus",
			minSimilarity: 0.15,
			a:             keyworded("A", "Same", "k01", "k02", "k03", "k04", "k05", "k06", "k07", "k08"),
			b:             keyworded("B", "Same", "k01", "k02", "k09", "k10", "k11", "k12", "k13", "k14"),
		},
		{
			name:          "threshold is inclusive",
			minSimilarity: 2.0 / 13.0,
			a:             keyworded("A", "", "k01", "k02", "k03", "k04", "k05", "k06", "k07"),
			b:             keyworded("B", "", "k01", "k02", "k08", "k09", "k10", "k11", "k12", "k13"),
			wantLink:      true,
		},
		{
			name:          "same id is never linked",
			minSimilarity: 0.15,
			a:             keyworded("A", "Same", "alpha", "betas"),
			b:             keyworded("A", "Same", "alpha", "betas"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultLinkBuilderConfig()
			config.MinSimilarity = tt.minSimilarity
			result := NewLinkBuilder(config).Build("user-1", []KeywordedEntry{tt.a, tt.b})
			assert.Equal(t, tt.wantLink, len(result.Links) == 1)
		})
	}
}

func TestLinkBuilder_ClampsStrength(t *testing.T) {
	entries := []KeywordedEntry{
		keyworded("A", "Tech", "alpha", "betas", "gamma"),
		keyworded("B", "Tech", "alpha", "betas", "gamma"),
	}

	result := NewLinkBuilder(DefaultLinkBuilderConfig()).Build("user-1", entries)

	require.Len(t, result.Links, 1)
	assert.Equal(t, 1.0, result.Links[0].Strength)
}

func TestLinkBuilder_UnknownCategoryGetsNoBonus(t *testing.T) {
	entries := []KeywordedEntry{
		keyworded("A", "", "alpha", "betas", "gamma", "delta"),
		keyworded("B", "", "alpha", "betas", "omega", "sigma"),
	}

	result := NewLinkBuilder(DefaultLinkBuilderConfig()).Build("user-1", entries)

	require.Len(t, result.Links, 1)
	assert.InDelta(t, 2.0/6.0, result.Links[0].Strength, 1e-9)
}

func clusteredEntries(n int) []KeywordedEntry {
	entries := make([]KeywordedEntry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, keyworded(fmt.Sprintf("E%02d", i), "Tech", "alpha", "betas", fmt.Sprintf("extra%02d", i)))
	}
	return entries
}

func TestLinkBuilder_CapStopsInDiscoveryOrder(t *testing.T) {
	entries := clusteredEntries(5)
	config := DefaultLinkBuilderConfig()
	config.MaxLinks = 3

	result := NewLinkBuilder(config).Build("user-1", entries)

	require.Len(t, result.Links, 3)
	assert.Equal(t, 3, result.Comparisons)
	assert.True(t, result.Truncated)
	for i, link := range result.Links {
		assert.Equal(t, "E00", link.SourceEntryID)
		assert.Equal(t, fmt.Sprintf("E%02d", i+1), link.TargetEntryID)
	}
}

func TestLinkBuilder_StrengthOrderingKeepsStrongest(t *testing.T) {
	entries := []KeywordedEntry{
		keyworded("A", "", "alpha", "betas", "gamma", "delta", "omega"),
		keyworded("B", "", "alpha", "betas", "sigma", "kappa", "theta"),
		keyworded("C", "", "sigma", "kappa", "theta", "lambd", "zetas"),
	}

	discovery := DefaultLinkBuilderConfig()
	discovery.MaxLinks = 1
	first := NewLinkBuilder(discovery).Build("user-1", entries)
	require.Len(t, first.Links, 1)
	assert.Equal(t, "A", first.Links[0].SourceEntryID)

	strength := discovery
	strength.Ordering = OrderingStrength
	best := NewLinkBuilder(strength).Build("user-1", entries)
	require.Len(t, best.Links, 1)
	assert.Equal(t, "B", best.Links[0].SourceEntryID)
	assert.Equal(t, "C", best.Links[0].TargetEntryID)
	assert.Equal(t, 3, best.Comparisons)
	assert.True(t, best.Truncated)
}

func TestLinkBuilder_Deterministic(t *testing.T) {
	entries := clusteredEntries(8)
	builder := NewLinkBuilder(DefaultLinkBuilderConfig())

	first := builder.Build("user-1", entries)
	second := builder.Build("user-1", entries)
	assert.Equal(t, first, second)
	assert.Equal(t, 28, first.Comparisons)

	for _, link := range first.Links {
		assert.NotEqual(t, link.SourceEntryID, link.TargetEntryID)
		assert.GreaterOrEqual(t, link.Strength, 0.0)
		assert.LessOrEqual(t, link.Strength, 1.0)
		assert.GreaterOrEqual(t, len(link.SharedKeywords), 2)
	}
}

func TestLinkBuilderConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultLinkBuilderConfig().Validate())

	bad := DefaultLinkBuilderConfig()
	bad.MinSimilarity = 1.5
	assert.Error(t, bad.Validate())

	bad = DefaultLinkBuilderConfig()
	bad.MaxLinks = 0
	assert.Error(t, bad.Validate())

	bad = DefaultLinkBuilderConfig()
	bad.Ordering = "random"
	assert.Error(t, bad.Validate())

	bad = DefaultLinkBuilderConfig()
	bad.MinSimilarity = math.NaN()
	assert.Error(t, bad.Validate())

	bad = DefaultLinkBuilderConfig()
	bad.CategoryBonus = math.NaN()
	assert.Error(t, bad.Validate())
}
