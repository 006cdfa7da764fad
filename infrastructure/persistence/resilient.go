// Package persistence wraps the store backends with retry and circuit breaking.
package persistence

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"kbgraph-backend/application/ports"
	"kbgraph-backend/domain/core/entities"
	pkgerrors "kbgraph-backend/pkg/errors"
)

// ResilienceConfig configures retries and the circuit breaker around a store
type ResilienceConfig struct {
	Name          string
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	JitterFactor  float64

	// Circuit breaker
	MaxRequests      uint32        // requests allowed while half-open
	Interval         time.Duration // window after which closed counts reset
	Timeout          time.Duration // time spent open before probing
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultResilienceConfig returns the defaults used by the API and worker
func DefaultResilienceConfig(name string) ResilienceConfig {
	return ResilienceConfig{
		Name:             name,
		MaxRetries:       3,
		InitialDelay:     100 * time.Millisecond,
		MaxDelay:         2 * time.Second,
		BackoffFactor:    2.0,
		JitterFactor:     0.1,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// guard runs store calls through the breaker and retries transient failures.
// Validation and schema errors are neither retried nor counted against the
// breaker.
type guard struct {
	cb     *gobreaker.CircuitBreaker
	config ResilienceConfig
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func newGuard(config ResilienceConfig, logger *zap.Logger) *guard {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !pkgerrors.IsRetryable(err)
		},
	})

	return &guard{
		cb:     cb,
		config: config,
		logger: logger,
		sleep:  sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (g *guard) do(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= g.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := g.sleep(ctx, g.delay(attempt)); err != nil {
				return pkgerrors.NewDatabase(op+" cancelled", err)
			}
		}

		_, err := g.cb.Execute(func() (interface{}, error) {
			return nil, fn()
		})
		if err == nil {
			return nil
		}

		switch err {
		case gobreaker.ErrOpenState, gobreaker.ErrTooManyRequests:
			return pkgerrors.NewDatabase(op+" rejected: store unavailable", err)
		}

		lastErr = err
		if !pkgerrors.IsRetryable(err) {
			return err
		}
		g.logger.Debug("Retrying store operation",
			zap.String("operation", op),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return lastErr
}

func (g *guard) delay(attempt int) time.Duration {
	d := float64(g.config.InitialDelay) * math.Pow(g.config.BackoffFactor, float64(attempt-1))
	if ceiling := float64(g.config.MaxDelay); g.config.MaxDelay > 0 && d > ceiling {
		d = ceiling
	}
	if g.config.JitterFactor > 0 {
		d += d * g.config.JitterFactor * (rand.Float64()*2 - 1)
	}
	return time.Duration(d)
}

// ResilientEntryRepository decorates an EntryRepository
type ResilientEntryRepository struct {
	inner ports.EntryRepository
	guard *guard
}

// NewResilientEntryRepository wraps inner with retries and a circuit breaker
func NewResilientEntryRepository(inner ports.EntryRepository, config ResilienceConfig, logger *zap.Logger) *ResilientEntryRepository {
	return &ResilientEntryRepository{inner: inner, guard: newGuard(config, logger)}
}

func (r *ResilientEntryRepository) ListByOwner(ctx context.Context, ownerID string) ([]entities.KnowledgeEntry, error) {
	var out []entities.KnowledgeEntry
	err := r.guard.do(ctx, "list entries", func() error {
		var err error
		out, err = r.inner.ListByOwner(ctx, ownerID)
		return err
	})
	return out, err
}

// ResilientLinkRepository decorates a LinkRepository. Upserts are keyed on
// the pair, so replaying a batch is safe.
type ResilientLinkRepository struct {
	inner ports.LinkRepository
	guard *guard
}

// NewResilientLinkRepository wraps inner with retries and a circuit breaker
func NewResilientLinkRepository(inner ports.LinkRepository, config ResilienceConfig, logger *zap.Logger) *ResilientLinkRepository {
	return &ResilientLinkRepository{inner: inner, guard: newGuard(config, logger)}
}

// UpsertLinks reports the count of the last attempt
func (r *ResilientLinkRepository) UpsertLinks(ctx context.Context, ownerID string, links []entities.GraphLink) (int, error) {
	written := 0
	err := r.guard.do(ctx, "upsert links", func() error {
		var err error
		written, err = r.inner.UpsertLinks(ctx, ownerID, links)
		return err
	})
	return written, err
}

func (r *ResilientLinkRepository) ListByOwner(ctx context.Context, ownerID string) ([]entities.GraphLink, error) {
	var out []entities.GraphLink
	err := r.guard.do(ctx, "list links", func() error {
		var err error
		out, err = r.inner.ListByOwner(ctx, ownerID)
		return err
	})
	return out, err
}

var (
	_ ports.EntryRepository = (*ResilientEntryRepository)(nil)
	_ ports.LinkRepository  = (*ResilientLinkRepository)(nil)
)
