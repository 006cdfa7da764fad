package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kbgraph-backend/application/ports"
)

// Collector holds all Prometheus metrics for the application
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Generation metrics
	Runs          *prometheus.CounterVec
	RunDuration   *prometheus.HistogramVec
	EntriesLoaded prometheus.Histogram
	Comparisons   prometheus.Counter
	Candidates    prometheus.Counter
	LinksWritten  prometheus.Counter

	// Persistence metrics
	Batches       *prometheus.CounterVec
	BatchDuration *prometheus.HistogramVec
	BatchSize     prometheus.Histogram
}

var _ ports.LinkMetrics = (*Collector)(nil)

// NewCollector creates a collector with its own registry, so tests can build
// as many as they like
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "link_generation_runs_total",
				Help:      "Link generation runs by outcome",
			},
			[]string{"status"},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "link_generation_duration_seconds",
				Help:      "Duration of link generation runs in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"status"},
		),
		EntriesLoaded: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "link_generation_entries",
				Help:      "Entries loaded per generation run",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
		Comparisons: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "link_comparisons_total",
				Help:      "Total number of entry pairs compared",
			},
		),
		Candidates: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "link_candidates_total",
				Help:      "Total number of pairs that passed the similarity gates",
			},
		),
		LinksWritten: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "links_written_total",
				Help:      "Total number of links persisted",
			},
		),
		Batches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "link_batches_total",
				Help:      "Persistence batches by outcome",
			},
			[]string{"status"},
		),
		BatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "link_batch_duration_seconds",
				Help:      "Persistence batch duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		BatchSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "link_batch_size",
				Help:      "Links per persistence batch",
				Buckets:   []float64{1, 10, 25, 50, 100, 250, 500},
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.HTTPRequests,
		c.HTTPDuration,
		c.Runs,
		c.RunDuration,
		c.EntriesLoaded,
		c.Comparisons,
		c.Candidates,
		c.LinksWritten,
		c.Batches,
		c.BatchDuration,
		c.BatchSize,
	)
	return c
}

// RecordRun records the outcome of one generation run
func (c *Collector) RecordRun(status string, duration time.Duration, entries, comparisons, candidates, written int) {
	c.Runs.WithLabelValues(status).Inc()
	c.RunDuration.WithLabelValues(status).Observe(duration.Seconds())
	c.EntriesLoaded.Observe(float64(entries))
	c.Comparisons.Add(float64(comparisons))
	c.Candidates.Add(float64(candidates))
	c.LinksWritten.Add(float64(written))
}

// RecordBatch records one persistence batch
func (c *Collector) RecordBatch(status string, size int, duration time.Duration) {
	c.Batches.WithLabelValues(status).Inc()
	c.BatchDuration.WithLabelValues(status).Observe(duration.Seconds())
	c.BatchSize.Observe(float64(size))
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency by chi route pattern
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		c.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		c.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
