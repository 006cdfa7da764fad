package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/swaggo/swag"
	"go.uber.org/zap"

	_ "kbgraph-backend/docs/swagger"
	"kbgraph-backend/infrastructure/observability"
	"kbgraph-backend/interfaces/http/rest/handlers"
	"kbgraph-backend/interfaces/http/rest/middleware"
	"kbgraph-backend/pkg/auth"
)

// ReadinessCheck reports whether the dependencies of the service are usable
type ReadinessCheck func(ctx context.Context) error

// RouterConfig holds the HTTP edge settings
type RouterConfig struct {
	CORSOrigins  []string
	Version      string
	ReadyTimeout time.Duration
}

// Router creates and configures the HTTP router
type Router struct {
	links    *handlers.LinkHandler
	verifier auth.TokenVerifier
	limiter  auth.RateLimiter
	metrics  *observability.Collector
	ready    ReadinessCheck
	config   RouterConfig
	logger   *zap.Logger
}

// NewRouter creates a new router instance. limiter, metrics and ready may be nil.
func NewRouter(
	links *handlers.LinkHandler,
	verifier auth.TokenVerifier,
	limiter auth.RateLimiter,
	metrics *observability.Collector,
	ready ReadinessCheck,
	config RouterConfig,
	logger *zap.Logger,
) *Router {
	if config.ReadyTimeout <= 0 {
		config.ReadyTimeout = 2 * time.Second
	}
	return &Router{
		links:    links,
		verifier: verifier,
		limiter:  limiter,
		metrics:  metrics,
		ready:    ready,
		config:   config,
		logger:   logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	if rt.metrics != nil {
		router.Use(rt.metrics.Middleware)
	}
	if rt.config.Version != "" {
		router.Use(rt.versionHeader)
	}

	// CORS configuration
	origins := rt.config.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	router.Get("/swagger/doc.json", rt.swaggerDoc)
	if rt.metrics != nil {
		router.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.verifier, rt.logger))

		r.Route("/knowledge-links", func(r chi.Router) {
			r.Get("/graph", rt.links.GetGraph)
			r.Group(func(r chi.Router) {
				if rt.limiter != nil {
					r.Use(middleware.RateLimit(rt.limiter, rt.logger))
				}
				r.Post("/generate", rt.links.GenerateLinks)
			})
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck reports 503 while the store cannot be reached
func (rt *Router) readinessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if rt.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), rt.config.ReadyTimeout)
		defer cancel()
		if err := rt.ready(ctx); err != nil {
			rt.logger.Warn("Readiness check failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}

func (rt *Router) swaggerDoc(w http.ResponseWriter, _ *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		rt.logger.Error("Failed to read API documentation", zap.Error(err))
		http.Error(w, "documentation unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(doc))
}

// versionHeader adds the service version to all responses
func (rt *Router) versionHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Service-Version", rt.config.Version)
		next.ServeHTTP(w, r)
	})
}
