package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kbgraph-backend/application/queries"
	"kbgraph-backend/application/services"
	"kbgraph-backend/domain/core/entities"
	"kbgraph-backend/domain/events"
	"kbgraph-backend/infrastructure/messaging"
	"kbgraph-backend/infrastructure/observability"
	"kbgraph-backend/infrastructure/persistence/memory"
	"kbgraph-backend/interfaces/http/rest/handlers"
	"kbgraph-backend/pkg/auth"
)

func summary(points ...string) json.RawMessage {
	raw, _ := json.Marshal(map[string][]string{"keyPoints": points})
	return raw
}

type testServer struct {
	handler http.Handler
	store   *memory.InMemoryStore
	metrics *observability.Collector
}

func newTestServer(t *testing.T, limit int, ready ReadinessCheck) *testServer {
	t.Helper()
	store := memory.NewInMemoryStore()
	store.AddEntries(
		entities.KnowledgeEntry{ID: "A", OwnerID: "user-1", Title: "Transformers", Category: "AI",
			RawSummary: summary("Transformers replaced recurrent networks", "Attention weights every token")},
		entities.KnowledgeEntry{ID: "B", OwnerID: "user-1", Title: "Attention", Category: "AI",
			RawSummary: summary("Attention weights every token", "Recurrent networks struggled")},
	)

	logger := zap.NewNop()
	metrics := observability.NewCollector("kbgraph_test")
	graph := queries.NewGraphQueryService(store, store.Links(), 16, time.Minute, logger)
	dispatcher := messaging.NewEventDispatcher(nil, logger)
	dispatcher.Subscribe(events.TypeLinksGenerated, graph.OnLinksGenerated)
	svc := services.NewLinkGenerationService(store, store.Links(), dispatcher, metrics, services.DefaultLinkGenerationConfig(), logger)
	limiter, err := auth.NewMemoryRateLimiter(limit, time.Minute, 100)
	require.NoError(t, err)

	router := NewRouter(
		handlers.NewLinkHandler(svc, graph, logger),
		auth.StaticVerifier{},
		limiter,
		metrics,
		ready,
		RouterConfig{CORSOrigins: []string{"http://localhost:3000"}, Version: "test"},
		logger,
	)
	return &testServer{handler: router.Setup(), store: store, metrics: metrics}
}

func (s *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func TestRouter_GenerateThenGraph(t *testing.T) {
	srv := newTestServer(t, 10, nil)

	// prime the graph cache so generation has to invalidate it
	rec := srv.do(http.MethodGet, "/api/v1/knowledge-links/graph", "user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(http.MethodPost, "/api/v1/knowledge-links/generate", "user-1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, true, result["success"])
	assert.Equal(t, float64(1), result["linksCreated"])
	assert.Equal(t, float64(2), result["totalEntries"])
	assert.Equal(t, float64(1), result["comparisons"])
	assert.Equal(t, "test", rec.Header().Get("X-Service-Version"))

	rec = srv.do(http.MethodGet, "/api/v1/knowledge-links/graph", "user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var graph queries.GraphData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &graph))
	assert.Len(t, graph.Nodes, 2)
	require.Len(t, graph.Edges, 1)
	assert.Equal(t, "A", graph.Edges[0].Source)
	assert.Equal(t, "B", graph.Edges[0].Target)
}

func TestRouter_RequiresToken(t *testing.T) {
	srv := newTestServer(t, 10, nil)

	rec := srv.do(http.MethodPost, "/api/v1/knowledge-links/generate", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(http.MethodGet, "/api/v1/knowledge-links/graph", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_InvalidParameters(t *testing.T) {
	srv := newTestServer(t, 10, nil)

	rec := srv.do(http.MethodPost, "/api/v1/knowledge-links/generate", "user-1", `{"minSimilarity":1.5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(http.MethodPost, "/api/v1/knowledge-links/generate", "user-1", `{"ordering":"random"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_RateLimit(t *testing.T) {
	srv := newTestServer(t, 1, nil)

	rec := srv.do(http.MethodPost, "/api/v1/knowledge-links/generate", "user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(http.MethodPost, "/api/v1/knowledge-links/generate", "user-1", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// the read path is not limited
	rec = srv.do(http.MethodGet, "/api/v1/knowledge-links/graph", "user-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// other owners have their own budget
	rec = srv.do(http.MethodPost, "/api/v1/knowledge-links/generate", "user-2", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_HealthAndReady(t *testing.T) {
	srv := newTestServer(t, 10, nil)
	rec := srv.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	rec = srv.do(http.MethodGet, "/ready", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	down := newTestServer(t, 10, func(context.Context) error { return errors.New("store unreachable") })
	rec = down.do(http.MethodGet, "/ready", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_MetricsAndDocs(t *testing.T) {
	srv := newTestServer(t, 10, nil)
	srv.do(http.MethodPost, "/api/v1/knowledge-links/generate", "user-1", "")

	rec := srv.do(http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "kbgraph_test_link_generation_runs_total")
	assert.Contains(t, rec.Body.String(), `route="/api/v1/knowledge-links/generate"`)

	rec = srv.do(http.MethodGet, "/swagger/doc.json", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Contains(t, doc["paths"], "/knowledge-links/generate")
}
