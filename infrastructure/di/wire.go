//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideConfig,
	ProvideLogger,
	ProvideAWSConfig,
	ProvideStores,
	ProvideIdempotencyStore,
	ProvideTracing,
	ProvideMetrics,
	ProvideLinkMetrics,
	ProvideExternalPublisher,
	ProvideEventDispatcher,
	ProvideGraphQueryService,
	ProvideLinkGenerationService,
	ProvideConfigWatcher,
	ProvideTokenVerifier,
	ProvideRateLimiter,
	ProvideLinkHandler,
	ProvideRouter,
	ProvideHTTPHandler,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer wires the whole application
func InitializeContainer(ctx context.Context) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil
}
