package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"kbgraph-backend/application/commands"
	"kbgraph-backend/application/ports"
	"kbgraph-backend/domain/core/entities"
	"kbgraph-backend/domain/events"
	domainservices "kbgraph-backend/domain/services"
	pkgerrors "kbgraph-backend/pkg/errors"
)

// NoEntriesMessage is reported when the owner has nothing to link
const NoEntriesMessage = "No knowledge base entries found"

// LinkGenerationConfig holds the defaults of a generation run
type LinkGenerationConfig struct {
	Extractor   domainservices.KeywordExtractorConfig
	Builder     domainservices.LinkBuilderConfig
	BatchSize   int
	Parallelism int
}

// DefaultLinkGenerationConfig returns the production defaults
func DefaultLinkGenerationConfig() LinkGenerationConfig {
	return LinkGenerationConfig{
		Extractor:   domainservices.DefaultKeywordExtractorConfig(),
		Builder:     domainservices.DefaultLinkBuilderConfig(),
		BatchSize:   DefaultBatchSize,
		Parallelism: 1,
	}
}

// LinkGenerationService runs the extract, compare and persist pipeline for
// one owner at a time
type LinkGenerationService struct {
	entries   ports.EntryRepository
	links     ports.LinkRepository
	publisher ports.EventPublisher
	metrics   ports.LinkMetrics
	logger    *zap.Logger
	tracer    trace.Tracer

	mu        sync.RWMutex
	config    LinkGenerationConfig
	extractor *domainservices.KeywordExtractor
}

// NewLinkGenerationService creates a new link generation service
func NewLinkGenerationService(
	entries ports.EntryRepository,
	links ports.LinkRepository,
	publisher ports.EventPublisher,
	metrics ports.LinkMetrics,
	config LinkGenerationConfig,
	logger *zap.Logger,
) *LinkGenerationService {
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LinkGenerationService{
		entries:   entries,
		links:     links,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		tracer:    otel.Tracer("kbgraph-backend/application/services"),
		config:    config,
		extractor: domainservices.NewKeywordExtractor(config.Extractor),
	}
}

// UpdateConfig swaps the defaults used by runs that start afterwards
func (s *LinkGenerationService) UpdateConfig(config LinkGenerationConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = config
	s.extractor = domainservices.NewKeywordExtractor(config.Extractor)
	s.logger.Info("Link generation defaults updated",
		zap.Float64("minSimilarity", config.Builder.MinSimilarity),
		zap.Int("maxLinks", config.Builder.MaxLinks),
		zap.Int("batchSize", config.BatchSize),
	)
}

func (s *LinkGenerationService) snapshot() (LinkGenerationConfig, *domainservices.KeywordExtractor) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config, s.extractor
}

// GenerateLinks recomputes and upserts every auto link of the command's owner.
// Per-batch storage failures are reported in the result, a missing link table
// is returned as a schema-missing error.
func (s *LinkGenerationService) GenerateLinks(ctx context.Context, cmd commands.GenerateLinksCommand) (result *commands.GenerateLinksResult, err error) {
	start := time.Now()
	if err := cmd.Validate(); err != nil {
		return nil, pkgerrors.NewValidation(err.Error())
	}

	config, extractor := s.snapshot()
	builderConfig := cmd.Apply(config.Builder)
	if err := builderConfig.Validate(); err != nil {
		return nil, pkgerrors.NewValidation(err.Error())
	}

	ctx, span := s.tracer.Start(ctx, "LinkGenerationService.GenerateLinks",
		trace.WithAttributes(
			attribute.String("user.id", cmd.UserID),
			attribute.Float64("links.min_similarity", builderConfig.MinSimilarity),
			attribute.Int("links.max_links", builderConfig.MaxLinks),
			attribute.String("links.ordering", string(builderConfig.Ordering)),
		),
	)
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else if result.FailedBatches > 0 {
			status = "partial"
		}
		if result != nil {
			span.SetAttributes(
				attribute.Int("links.created", result.LinksCreated),
				attribute.Int("links.comparisons", result.Comparisons),
			)
			s.metrics.RecordRun(status, time.Since(start), result.TotalEntries, result.Comparisons, result.Candidates, result.LinksCreated)
		} else {
			s.metrics.RecordRun(status, time.Since(start), 0, 0, 0, 0)
		}
		span.End()
	}()

	entries, err := s.entries.ListByOwner(ctx, cmd.UserID)
	if err != nil {
		if pkgerrors.IsSchemaMissing(err) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(err, "failed to load knowledge base entries")
	}
	entries = s.ownedBy(cmd.UserID, entries)

	if len(entries) == 0 {
		s.logger.Info("No entries to link", zap.String("userID", cmd.UserID))
		return &commands.GenerateLinksResult{
			Success: true,
			Message: NoEntriesMessage,
		}, nil
	}

	keyworded := s.extractKeywords(extractor, entries)
	built := domainservices.NewLinkBuilder(builderConfig).Build(cmd.UserID, keyworded)

	s.logger.Info("Link candidates computed",
		zap.String("userID", cmd.UserID),
		zap.Int("entries", len(entries)),
		zap.Int("comparisons", built.Comparisons),
		zap.Int("candidates", built.Candidates),
		zap.Bool("truncated", built.Truncated),
	)

	writer := NewBatchWriter(s.links, s.metrics, config.BatchSize, config.Parallelism, s.logger)
	written := writer.Write(ctx, cmd.UserID, built.Links)
	if written.Fatal != nil {
		s.logger.Error("Link table is missing",
			zap.String("userID", cmd.UserID),
			zap.Int("linksWritten", written.Written),
			zap.Error(written.Fatal),
		)
		return nil, written.Fatal
	}

	result = &commands.GenerateLinksResult{
		Success:       true,
		LinksCreated:  written.Written,
		TotalEntries:  len(entries),
		Comparisons:   built.Comparisons,
		Candidates:    built.Candidates,
		FailedBatches: written.FailedCount,
		Truncated:     built.Truncated,
		Message:       resultMessage(written.Written, built.Candidates, len(entries)),
	}

	s.publish(ctx, result, cmd.UserID)

	s.logger.Info("Link generation finished",
		zap.String("userID", cmd.UserID),
		zap.Int("linksCreated", result.LinksCreated),
		zap.Int("failedBatches", result.FailedBatches),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

func (s *LinkGenerationService) ownedBy(ownerID string, entries []entities.KnowledgeEntry) []entities.KnowledgeEntry {
	owned := entries[:0:0]
	for _, e := range entries {
		if e.OwnerID != "" && e.OwnerID != ownerID {
			s.logger.Warn("Dropping entry of another owner",
				zap.String("userID", ownerID),
				zap.String("entryID", e.ID),
			)
			continue
		}
		owned = append(owned, e)
	}
	return owned
}

func (s *LinkGenerationService) extractKeywords(extractor *domainservices.KeywordExtractor, entries []entities.KnowledgeEntry) []domainservices.KeywordedEntry {
	keyworded := make([]domainservices.KeywordedEntry, 0, len(entries))
	for _, entry := range entries {
		summary, err := entities.ParseStructuredSummary(entry.RawSummary)
		if err != nil {
			s.logger.Warn("Ignoring malformed structured summary",
				zap.String("entryID", entry.ID),
				zap.Error(err),
			)
		}
		keyworded = append(keyworded, domainservices.KeywordedEntry{
			Entry:    entry,
			Keywords: extractor.Extract(summary),
		})
	}
	return keyworded
}

func (s *LinkGenerationService) publish(ctx context.Context, result *commands.GenerateLinksResult, ownerID string) {
	if s.publisher == nil {
		return
	}
	event := events.NewLinksGeneratedEvent(ownerID, result.LinksCreated, result.Candidates, result.TotalEntries, result.Comparisons, result.FailedBatches)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish links generated event",
			zap.String("userID", ownerID),
			zap.Error(err),
		)
	}
}

func resultMessage(written, candidates, entries int) string {
	if candidates == 0 {
		return fmt.Sprintf("No links met the similarity threshold across %d entries", entries)
	}
	if written < candidates {
		return fmt.Sprintf("Created %d of %d links across %d entries, some batches failed", written, candidates, entries)
	}
	return fmt.Sprintf("Created %d links across %d entries", written, entries)
}
