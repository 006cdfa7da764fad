package handlers

// This file contains OpenAPI/Swagger documentation for LinkHandler endpoints

// GenerateLinks rebuilds the caller's automatic links
// @Summary Generate knowledge links
// @Description Extracts keywords from every entry of the caller, links entries whose keyword sets are similar and upserts the links
// @Tags knowledge-links
// @Accept json
// @Produce json
// @Param request body docs.GenerateLinksRequest false "Optional overrides of the configured defaults"
// @Success 200 {object} docs.GenerateLinksResponse "Generation finished"
// @Failure 400 {object} docs.ErrorResponse "Invalid parameters"
// @Failure 401 {object} docs.ErrorResponse "Unauthorized"
// @Failure 429 {object} docs.ErrorResponse "Rate limit exceeded"
// @Failure 500 {object} docs.SchemaMissingResponse "Link table missing or generation failed"
// @Security BearerAuth
// @Router /knowledge-links/generate [post]

// GetGraph returns the caller's entries and stored links
// @Summary Get knowledge graph
// @Description Returns the caller's entries as nodes and stored links as edges. Links whose endpoints no longer exist are omitted.
// @Tags knowledge-links
// @Produce json
// @Success 200 {object} docs.GraphResponse "Graph data"
// @Failure 401 {object} docs.ErrorResponse "Unauthorized"
// @Failure 500 {object} docs.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /knowledge-links/graph [get]
