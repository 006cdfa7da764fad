package docs

// GenerateLinksRequest represents the optional body of a generation call
// @Description Overrides of the configured link generation defaults
type GenerateLinksRequest struct {
	// Minimum Jaccard similarity before the category bonus (0 to 1)
	MinSimilarity float64 `json:"minSimilarity,omitempty" example:"0.15" minimum:"0" maximum:"1"`

	// Maximum number of links produced by one run
	MaxLinks int `json:"maxLinks,omitempty" example:"1000" minimum:"1" maximum:"10000"`

	// Which links survive the cap
	Ordering string `json:"ordering,omitempty" example:"discovery" enums:"discovery,strength"`
}

// GenerateLinksResponse represents the outcome of a generation run
type GenerateLinksResponse struct {
	Success       bool   `json:"success" example:"true"`
	LinksCreated  int    `json:"linksCreated" example:"42"`
	TotalEntries  int    `json:"totalEntries" example:"120"`
	Comparisons   int    `json:"comparisons" example:"7140"`
	Candidates    int    `json:"candidates" example:"42"`
	FailedBatches int    `json:"failedBatches" example:"0"`
	Truncated     bool   `json:"truncated" example:"false"`
	Message       string `json:"message" example:"Created 42 links across 120 entries"`
}

// ErrorResponse represents a failed request
type ErrorResponse struct {
	Success bool   `json:"success" example:"false"`
	Error   string `json:"error" example:"Failed to generate links"`
}

// SchemaMissingResponse is returned when the link table does not exist
type SchemaMissingResponse struct {
	Success bool   `json:"success" example:"false"`
	Error   string `json:"error" example:"table \"knowledge_links\" does not exist"`
	Code    string `json:"code" example:"SCHEMA_MISSING"`
	Hint    string `json:"hint" example:"Run the knowledge_links migration first"`
}

// GraphNode is one entry of the graph
type GraphNode struct {
	ID       string `json:"id" example:"5f0c1d2e-entry"`
	Title    string `json:"title" example:"Attention Is All You Need"`
	Category string `json:"category" example:"AI"`
}

// GraphEdge is one stored link of the graph
type GraphEdge struct {
	ID             string   `json:"id"`
	Source         string   `json:"source"`
	Target         string   `json:"target"`
	Strength       float64  `json:"strength" example:"0.52"`
	SharedKeywords []string `json:"sharedKeywords"`
	Type           string   `json:"type" example:"auto"`
}

// GraphResponse represents the graph of one user
type GraphResponse struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}
