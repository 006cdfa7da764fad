package entities

import (
	"time"
)

// LinkType represents how a link between two entries came to exist
type LinkType string

const (
	// LinkTypeAuto marks links produced by keyword similarity
	LinkTypeAuto LinkType = "auto"

	// LinkTypeManual marks links drawn by the user. The generator never
	// produces them.
	LinkTypeManual LinkType = "manual"
)

// IsValid checks if the link type is valid
func (t LinkType) IsValid() bool {
	switch t {
	case LinkTypeAuto, LinkTypeManual:
		return true
	default:
		return false
	}
}

// String returns the string representation of the link type
func (t LinkType) String() string {
	return string(t)
}

// GraphLink is an undirected similarity edge between two entries of the same
// owner. Source is always the entry that came first in the comparison order.
type GraphLink struct {
	ID             string
	OwnerID        string
	SourceEntryID  string
	TargetEntryID  string
	LinkType       LinkType
	Strength       float64
	SharedKeywords []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// LinkKey is the upsert identity of a link.
type LinkKey struct {
	OwnerID       string
	SourceEntryID string
	TargetEntryID string
}

// Key returns the identity used to deduplicate the link.
func (l GraphLink) Key() LinkKey {
	return LinkKey{OwnerID: l.OwnerID, SourceEntryID: l.SourceEntryID, TargetEntryID: l.TargetEntryID}
}

// ClampStrength limits a strength value to [0, 1].
func ClampStrength(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
