package di

import (
	"net/http"

	"go.uber.org/zap"

	"kbgraph-backend/application/ports"
	"kbgraph-backend/application/queries"
	"kbgraph-backend/application/services"
	"kbgraph-backend/infrastructure/config"
	"kbgraph-backend/infrastructure/messaging"
	"kbgraph-backend/infrastructure/observability"
)

// Container holds all application dependencies
type Container struct {
	Config        *config.Config
	Logger        *zap.Logger
	Stores        *Stores
	LinkService   *services.LinkGenerationService
	GraphQuery    *queries.GraphQueryService
	Dispatcher    *messaging.EventDispatcher
	Idempotency   ports.IdempotencyStore
	Metrics       *observability.Collector
	Watcher       *config.Watcher
	TraceShutdown observability.ShutdownFunc
	HTTPHandler   http.Handler
}
