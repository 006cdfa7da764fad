package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"kbgraph-backend/infrastructure/di"
	"kbgraph-backend/interfaces/worker"
)

var consumer *worker.GenerateLinksConsumer

func init() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	container, _, err := di.InitializeContainer(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	consumer = worker.NewGenerateLinksConsumer(
		container.LinkService,
		container.Idempotency,
		container.Config.Events.IdempotencyTTL,
		container.Logger,
	)
	container.Logger.Info("Link generation worker ready")
}

// Returning an error lets EventBridge retry the invocation
func handler(ctx context.Context, event events.EventBridgeEvent) error {
	if err := consumer.Handle(ctx, event.ID, event.DetailType, event.Detail); err != nil {
		return fmt.Errorf("event %s: %w", event.ID, err)
	}
	return nil
}

func main() {
	lambda.Start(handler)
}
