package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"kbgraph-backend/application/ports"
	"kbgraph-backend/domain/core/entities"
	pkgerrors "kbgraph-backend/pkg/errors"
)

const (
	DefaultBatchSize = 100
	MaxBatchSize     = 500
)

// BatchOutcome is the result of writing one batch
type BatchOutcome struct {
	Index    int
	Size     int
	Written  int
	Err      error
	Duration time.Duration
}

// BatchResult accumulates the outcome of every batch of a run
type BatchResult struct {
	Outcomes     []BatchOutcome
	Written      int
	FailedCount  int
	SkippedCount int
	// Fatal is set when the destination table is missing. It stops the run.
	Fatal error
}

// BatchWriter splits links into fixed-size batches and upserts them
type BatchWriter struct {
	repo        ports.LinkRepository
	metrics     ports.LinkMetrics
	batchSize   int
	parallelism int
	logger      *zap.Logger
}

// NewBatchWriter creates a batch writer. Parallelism 1 writes sequentially.
func NewBatchWriter(repo ports.LinkRepository, metrics ports.LinkMetrics, batchSize, parallelism int, logger *zap.Logger) *BatchWriter {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}
	if parallelism <= 0 {
		parallelism = 1
	}
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchWriter{
		repo:        repo,
		metrics:     metrics,
		batchSize:   batchSize,
		parallelism: parallelism,
		logger:      logger,
	}
}

// Split divides links into consecutive batches of at most size elements
func Split(links []entities.GraphLink, size int) [][]entities.GraphLink {
	if size <= 0 {
		size = DefaultBatchSize
	}
	batches := make([][]entities.GraphLink, 0, (len(links)+size-1)/size)
	for start := 0; start < len(links); start += size {
		end := start + size
		if end > len(links) {
			end = len(links)
		}
		batches = append(batches, links[start:end])
	}
	return batches
}

// Write upserts every batch. A failed batch is logged and counted, the
// remaining batches are still attempted. Only a missing table stops the run.
func (w *BatchWriter) Write(ctx context.Context, ownerID string, links []entities.GraphLink) *BatchResult {
	batches := Split(links, w.batchSize)
	outcomes := make([]BatchOutcome, len(batches))

	if w.parallelism == 1 {
		for i, batch := range batches {
			outcomes[i] = w.writeBatch(ctx, ownerID, i, batch)
			if pkgerrors.IsSchemaMissing(outcomes[i].Err) {
				outcomes = outcomes[:i+1]
				break
			}
		}
	} else {
		// The group functions never return an error, so one failed batch
		// cannot cancel the others.
		var g errgroup.Group
		g.SetLimit(w.parallelism)
		for i, batch := range batches {
			i, batch := i, batch
			g.Go(func() error {
				outcomes[i] = w.writeBatch(ctx, ownerID, i, batch)
				return nil
			})
		}
		_ = g.Wait()
	}

	result := &BatchResult{Outcomes: outcomes}
	for _, o := range outcomes {
		result.Written += o.Written
		if o.Err == nil {
			continue
		}
		result.FailedCount++
		if result.Fatal == nil && pkgerrors.IsSchemaMissing(o.Err) {
			result.Fatal = o.Err
		}
	}
	result.SkippedCount = len(batches) - len(outcomes)
	return result
}

func (w *BatchWriter) writeBatch(ctx context.Context, ownerID string, index int, batch []entities.GraphLink) BatchOutcome {
	start := time.Now()
	written, err := w.repo.UpsertLinks(ctx, ownerID, batch)
	outcome := BatchOutcome{
		Index:    index,
		Size:     len(batch),
		Written:  written,
		Duration: time.Since(start),
	}

	if err != nil {
		outcome.Err = fmt.Errorf("batch %d: %w", index, err)
		w.metrics.RecordBatch("failed", len(batch), outcome.Duration)
		w.logger.Error("Failed to upsert link batch",
			zap.String("userID", ownerID),
			zap.Int("batch", index),
			zap.Int("size", len(batch)),
			zap.Int("written", written),
			zap.Error(err),
		)
		return outcome
	}

	w.metrics.RecordBatch("success", len(batch), outcome.Duration)
	w.logger.Debug("Upserted link batch",
		zap.String("userID", ownerID),
		zap.Int("batch", index),
		zap.Int("written", written),
	)
	return outcome
}
