package commands

import (
	"kbgraph-backend/domain/services"
	"kbgraph-backend/pkg/utils"
)

// GenerateLinksCommand rebuilds the similarity links of one owner.
// Nil parameters fall back to the configured defaults.
type GenerateLinksCommand struct {
	UserID        string   `json:"userId" validate:"required"`
	MinSimilarity *float64 `json:"minSimilarity,omitempty" validate:"omitempty,gte=0,lte=1"`
	MaxLinks      *int     `json:"maxLinks,omitempty" validate:"omitempty,gte=1,lte=10000"`
	Ordering      string   `json:"ordering,omitempty" validate:"omitempty,oneof=discovery strength"`
}

// Validate validates the command
func (c GenerateLinksCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// Apply overlays the command parameters on the given builder config.
func (c GenerateLinksCommand) Apply(config services.LinkBuilderConfig) services.LinkBuilderConfig {
	if c.MinSimilarity != nil {
		config.MinSimilarity = *c.MinSimilarity
	}
	if c.MaxLinks != nil {
		config.MaxLinks = *c.MaxLinks
	}
	if c.Ordering != "" {
		config.Ordering = services.LinkOrdering(c.Ordering)
	}
	return config
}

// GenerateLinksResult is returned to callers of a generation run
type GenerateLinksResult struct {
	Success       bool   `json:"success"`
	LinksCreated  int    `json:"linksCreated"`
	TotalEntries  int    `json:"totalEntries"`
	Comparisons   int    `json:"comparisons"`
	Candidates    int    `json:"candidates"`
	FailedBatches int    `json:"failedBatches"`
	Truncated     bool   `json:"truncated"`
	Message       string `json:"message"`
}
