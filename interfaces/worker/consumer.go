// Package worker turns GenerateLinksRequested events into generation runs.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"kbgraph-backend/application/commands"
	"kbgraph-backend/application/ports"
	"kbgraph-backend/domain/events"
	pkgerrors "kbgraph-backend/pkg/errors"
)

const defaultClaimTTL = 24 * time.Hour

// LinkGenerator runs a link generation for one owner
type LinkGenerator interface {
	GenerateLinks(ctx context.Context, cmd commands.GenerateLinksCommand) (*commands.GenerateLinksResult, error)
}

// GenerateLinksConsumer handles GenerateLinksRequested events
type GenerateLinksConsumer struct {
	generator   LinkGenerator
	idempotency ports.IdempotencyStore
	claimTTL    time.Duration
	logger      *zap.Logger
}

// NewGenerateLinksConsumer creates a new consumer. A nil idempotency store
// processes every delivery.
func NewGenerateLinksConsumer(generator LinkGenerator, idempotency ports.IdempotencyStore, claimTTL time.Duration, logger *zap.Logger) *GenerateLinksConsumer {
	if claimTTL <= 0 {
		claimTTL = defaultClaimTTL
	}
	return &GenerateLinksConsumer{
		generator:   generator,
		idempotency: idempotency,
		claimTTL:    claimTTL,
		logger:      logger,
	}
}

// Handle runs one generation. Only failures that may pass on a retry are
// returned; malformed events and a missing link table are logged and dropped.
func (c *GenerateLinksConsumer) Handle(ctx context.Context, eventID, detailType string, detail json.RawMessage) error {
	if detailType != events.TypeGenerateLinksRequested {
		c.logger.Warn("Ignoring unexpected event", zap.String("detailType", detailType))
		return nil
	}

	var req events.GenerateLinksRequestedDetail
	if err := json.Unmarshal(detail, &req); err != nil {
		c.logger.Error("Could not unmarshal event detail", zap.String("eventID", eventID), zap.Error(err))
		return nil
	}

	key := "generate-links#" + eventID
	if c.idempotency != nil && eventID != "" {
		claimed, err := c.idempotency.Claim(ctx, key, c.claimTTL)
		if err != nil {
			return fmt.Errorf("failed to claim event: %w", err)
		}
		if !claimed {
			c.logger.Info("Skipping duplicate delivery", zap.String("eventID", eventID))
			return nil
		}
	}

	result, err := c.generator.GenerateLinks(ctx, commands.GenerateLinksCommand{
		UserID:        req.UserID,
		MinSimilarity: req.MinSimilarity,
		MaxLinks:      req.MaxLinks,
		Ordering:      req.Ordering,
	})
	if err != nil {
		if !pkgerrors.IsRetryable(err) {
			c.logger.Error("Dropping generation request",
				zap.String("eventID", eventID),
				zap.String("userID", req.UserID),
				zap.Error(err),
			)
			return nil
		}
		c.release(ctx, key, eventID)
		return fmt.Errorf("link generation failed: %w", err)
	}

	c.logger.Info("Generation request processed",
		zap.String("eventID", eventID),
		zap.String("userID", req.UserID),
		zap.Int("linksCreated", result.LinksCreated),
		zap.Int("failedBatches", result.FailedBatches),
	)
	return nil
}

// release frees the claim so the retried delivery is not skipped
func (c *GenerateLinksConsumer) release(ctx context.Context, key, eventID string) {
	if c.idempotency == nil || eventID == "" {
		return
	}
	if err := c.idempotency.Release(ctx, key); err != nil {
		c.logger.Warn("Failed to release event claim", zap.String("eventID", eventID), zap.Error(err))
	}
}
