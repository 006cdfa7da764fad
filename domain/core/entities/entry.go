package entities

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// KnowledgeEntry is a note owned by a single user. Entries are read-only to
// the link generator.
type KnowledgeEntry struct {
	ID       string
	OwnerID  string
	Title    string
	Category string

	// RawSummary is the structured summary exactly as stored. It may be
	// empty or malformed.
	RawSummary json.RawMessage

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SameCategory reports whether both entries carry the same non-empty category.
func (e KnowledgeEntry) SameCategory(other KnowledgeEntry) bool {
	return e.Category != "" && e.Category == other.Category
}

// SummaryField names one list inside a structured summary.
type SummaryField string

const (
	FieldKeyPoints SummaryField = "keyPoints"
	FieldMainIdeas SummaryField = "mainIdeas"
	FieldInsights  SummaryField = "insights"
)

// DefaultSummaryFields is the order keywords are collected in.
var DefaultSummaryFields = []SummaryField{FieldKeyPoints, FieldMainIdeas, FieldInsights}

var summaryFieldAliases = map[string]SummaryField{
	"keypoints":  FieldKeyPoints,
	"key_points": FieldKeyPoints,
	"key points": FieldKeyPoints,
	"mainideas":  FieldMainIdeas,
	"main_ideas": FieldMainIdeas,
	"main ideas": FieldMainIdeas,
	"insights":   FieldInsights,
}

// StructuredSummary is the AI-generated digest of an entry. Every field is
// optional.
type StructuredSummary struct {
	KeyPoints []string
	MainIdeas []string
	Insights  []string
}

// Field returns the list stored under the given field.
func (s *StructuredSummary) Field(f SummaryField) []string {
	if s == nil {
		return nil
	}
	switch f {
	case FieldKeyPoints:
		return s.KeyPoints
	case FieldMainIdeas:
		return s.MainIdeas
	case FieldInsights:
		return s.Insights
	}
	return nil
}

// IsEmpty reports whether the summary carries no text at all.
func (s *StructuredSummary) IsEmpty() bool {
	return s == nil || len(s.KeyPoints)+len(s.MainIdeas)+len(s.Insights) == 0
}

// ParseStructuredSummary decodes a stored summary. Empty or null input yields
// an empty summary without error. Input that is not a JSON object is an
// error. Unknown fields are ignored, a field that is not an array is treated
// as absent and non-string elements are skipped.
func ParseStructuredSummary(raw []byte) (*StructuredSummary, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return &StructuredSummary{}, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		return &StructuredSummary{}, fmt.Errorf("structured summary is not an object: %w", err)
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	summary := &StructuredSummary{}
	for _, name := range names {
		field, ok := summaryFieldAliases[strings.ToLower(name)]
		if !ok {
			continue
		}
		items := decodeStrings(fields[name])
		switch field {
		case FieldKeyPoints:
			summary.KeyPoints = append(summary.KeyPoints, items...)
		case FieldMainIdeas:
			summary.MainIdeas = append(summary.MainIdeas, items...)
		case FieldInsights:
			summary.Insights = append(summary.Insights, items...)
		}
	}
	return summary, nil
}

func decodeStrings(value json.RawMessage) []string {
	var elems []json.RawMessage
	if err := json.Unmarshal(value, &elems); err != nil {
		return nil
	}
	out := make([]string, 0, len(elems))
	for _, elem := range elems {
		var s *string
		if err := json.Unmarshal(elem, &s); err != nil || s == nil {
			continue
		}
		out = append(out, *s)
	}
	return out
}
