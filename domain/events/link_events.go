package events

import (
	"time"
)

// DomainEvent is implemented by every event the service publishes
type DomainEvent interface {
	GetEventType() string
	GetAggregateID() string
	GetTimestamp() time.Time
}

// LinksGeneratedEvent is emitted after a generation run finishes
type LinksGeneratedEvent struct {
	UserID        string    `json:"userId"`
	LinksCreated  int       `json:"linksCreated"`
	Candidates    int       `json:"candidates"`
	TotalEntries  int       `json:"totalEntries"`
	Comparisons   int       `json:"comparisons"`
	FailedBatches int       `json:"failedBatches"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// NewLinksGeneratedEvent creates a new links generated event
func NewLinksGeneratedEvent(userID string, linksCreated, candidates, totalEntries, comparisons, failedBatches int) *LinksGeneratedEvent {
	return &LinksGeneratedEvent{
		UserID:        userID,
		LinksCreated:  linksCreated,
		Candidates:    candidates,
		TotalEntries:  totalEntries,
		Comparisons:   comparisons,
		FailedBatches: failedBatches,
		OccurredAt:    time.Now().UTC(),
	}
}

// GetEventType returns the event type
func (e *LinksGeneratedEvent) GetEventType() string { return TypeLinksGenerated }

// GetAggregateID returns the owner the run belonged to
func (e *LinksGeneratedEvent) GetAggregateID() string { return e.UserID }

// GetTimestamp returns when the run finished
func (e *LinksGeneratedEvent) GetTimestamp() time.Time { return e.OccurredAt }

// GenerateLinksRequestedDetail is the EventBridge detail consumed by the
// generation worker. Omitted fields use the configured default.
type GenerateLinksRequestedDetail struct {
	UserID        string   `json:"userId"`
	MinSimilarity *float64 `json:"minSimilarity,omitempty"`
	MaxLinks      *int     `json:"maxLinks,omitempty"`
	Ordering      string   `json:"ordering,omitempty"`
}
