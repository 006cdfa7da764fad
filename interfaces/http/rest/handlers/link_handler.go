package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"kbgraph-backend/application/commands"
	"kbgraph-backend/application/queries"
	"kbgraph-backend/pkg/auth"
	pkgerrors "kbgraph-backend/pkg/errors"
)

// maxBodyBytes bounds the generate request body
const maxBodyBytes = 1 << 16

// LinkGenerator runs a link generation for one owner
type LinkGenerator interface {
	GenerateLinks(ctx context.Context, cmd commands.GenerateLinksCommand) (*commands.GenerateLinksResult, error)
}

// GraphReader serves the stored graph of one owner
type GraphReader interface {
	GetGraphData(ctx context.Context, query queries.GetGraphDataQuery) (*queries.GraphData, error)
}

// GenerateLinksRequest is the optional body of a generate call
type GenerateLinksRequest struct {
	MinSimilarity *float64 `json:"minSimilarity,omitempty"`
	MaxLinks      *int     `json:"maxLinks,omitempty"`
	Ordering      string   `json:"ordering,omitempty"`
}

// LinkHandler handles knowledge link HTTP requests
type LinkHandler struct {
	generator LinkGenerator
	graph     GraphReader
	logger    *zap.Logger
}

// NewLinkHandler creates a new link handler
func NewLinkHandler(generator LinkGenerator, graph GraphReader, logger *zap.Logger) *LinkHandler {
	return &LinkHandler{
		generator: generator,
		graph:     graph,
		logger:    logger,
	}
}

// GenerateLinks handles POST /api/v1/knowledge-links/generate
func (h *LinkHandler) GenerateLinks(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req GenerateLinksRequest
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cmd := commands.GenerateLinksCommand{
		UserID:        userCtx.UserID,
		MinSimilarity: req.MinSimilarity,
		MaxLinks:      req.MaxLinks,
		Ordering:      req.Ordering,
	}

	result, err := h.generator.GenerateLinks(r.Context(), cmd)
	if err != nil {
		h.handleGenerateError(w, userCtx.UserID, err)
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// GetGraph handles GET /api/v1/knowledge-links/graph
func (h *LinkHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	graph, err := h.graph.GetGraphData(r.Context(), queries.GetGraphDataQuery{UserID: userCtx.UserID})
	if err != nil {
		if pkgerrors.IsSchemaMissing(err) {
			h.respondSchemaMissing(w, err)
			return
		}
		h.logger.Error("Failed to load graph",
			zap.String("userID", userCtx.UserID),
			zap.Error(err),
		)
		h.respondError(w, http.StatusInternalServerError, "Failed to load graph")
		return
	}
	h.respondJSON(w, http.StatusOK, graph)
}

func (h *LinkHandler) handleGenerateError(w http.ResponseWriter, userID string, err error) {
	switch {
	case pkgerrors.IsValidation(err):
		appErr, _ := pkgerrors.As(err)
		h.respondError(w, http.StatusBadRequest, appErr.Message)
	case pkgerrors.IsSchemaMissing(err):
		h.logger.Error("Link generation failed: link table missing",
			zap.String("userID", userID),
			zap.Error(err),
		)
		h.respondSchemaMissing(w, err)
	default:
		h.logger.Error("Link generation failed",
			zap.String("userID", userID),
			zap.Error(err),
		)
		h.respondError(w, http.StatusInternalServerError, "Failed to generate links")
	}
}

// Helper methods

func (h *LinkHandler) respondSchemaMissing(w http.ResponseWriter, err error) {
	appErr, _ := pkgerrors.As(err)
	h.respondJSON(w, http.StatusInternalServerError, map[string]interface{}{
		"success": false,
		"error":   appErr.Message,
		"code":    appErr.Code(),
		"hint":    appErr.Hint,
	})
}

func (h *LinkHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *LinkHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
