package services

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"kbgraph-backend/domain/core/entities"
)

// KeywordExtractorConfig controls how keywords are pulled out of summaries
type KeywordExtractorConfig struct {
	StopWords        map[string]bool
	MinKeywordLength int // in runes, inclusive
	MaxKeywords      int
	Fields           []entities.SummaryField
}

// DefaultKeywordExtractorConfig returns the production extraction settings
func DefaultKeywordExtractorConfig() KeywordExtractorConfig {
	return KeywordExtractorConfig{
		StopWords:        DefaultStopWords(),
		MinKeywordLength: 5,
		MaxKeywords:      15,
		Fields:           entities.DefaultSummaryFields,
	}
}

// KeywordExtractor turns a structured summary into an ordered keyword set
type KeywordExtractor struct {
	config KeywordExtractorConfig
}

// NewKeywordExtractor creates an extractor. Zero values fall back to defaults.
func NewKeywordExtractor(config KeywordExtractorConfig) *KeywordExtractor {
	defaults := DefaultKeywordExtractorConfig()
	if config.StopWords == nil {
		config.StopWords = defaults.StopWords
	}
	if config.MinKeywordLength <= 0 {
		config.MinKeywordLength = defaults.MinKeywordLength
	}
	if config.MaxKeywords <= 0 {
		config.MaxKeywords = defaults.MaxKeywords
	}
	if len(config.Fields) == 0 {
		config.Fields = defaults.Fields
	}
	return &KeywordExtractor{config: config}
}

// Extract returns at most MaxKeywords distinct tokens in first-occurrence
// order. A nil summary yields an empty, non-nil slice.
func (ke *KeywordExtractor) Extract(summary *entities.StructuredSummary) []string {
	keywords := make([]string, 0, ke.config.MaxKeywords)
	if summary.IsEmpty() {
		return keywords
	}

	seen := make(map[string]bool)
	for _, field := range ke.config.Fields {
		for _, text := range summary.Field(field) {
			for _, token := range Tokenize(text) {
				if utf8.RuneCountInString(token) < ke.config.MinKeywordLength {
					continue
				}
				if ke.config.StopWords[token] || seen[token] {
					continue
				}
				seen[token] = true
				keywords = append(keywords, token)
				if len(keywords) == ke.config.MaxKeywords {
					return keywords
				}
			}
		}
	}
	return keywords
}

// Tokenize lowercases text, replaces every rune that is not a letter, digit
// or whitespace with a space and splits on whitespace.
func Tokenize(text string) []string {
	normalized := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, strings.ToLower(text))
	return strings.Fields(normalized)
}
