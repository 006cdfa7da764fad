package di

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"kbgraph-backend/application/ports"
	"kbgraph-backend/application/queries"
	"kbgraph-backend/application/services"
	"kbgraph-backend/domain/core/entities"
	"kbgraph-backend/domain/events"
	domainservices "kbgraph-backend/domain/services"
	"kbgraph-backend/infrastructure/config"
	"kbgraph-backend/infrastructure/messaging"
	"kbgraph-backend/infrastructure/messaging/eventbridge"
	"kbgraph-backend/infrastructure/observability"
	"kbgraph-backend/infrastructure/persistence"
	"kbgraph-backend/infrastructure/persistence/dynamodb"
	"kbgraph-backend/infrastructure/persistence/memory"
	"kbgraph-backend/infrastructure/persistence/postgres"
	supabasestore "kbgraph-backend/infrastructure/persistence/supabase"
	"kbgraph-backend/interfaces/http/rest"
	"kbgraph-backend/interfaces/http/rest/handlers"
	"kbgraph-backend/pkg/auth"
)

const (
	graphCacheSize = 1024
	graphCacheTTL  = 5 * time.Minute
)

// Stores groups the repositories of the selected backend
type Stores struct {
	Entries ports.EntryRepository
	Links   ports.LinkRepository
	Ready   rest.ReadinessCheck
}

// ProvideConfig loads the configuration from files and the environment
func ProvideConfig() (*config.Config, error) {
	return config.Load()
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Environment == config.Production {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	if cfg.LogLevel != "" {
		level, err := zap.ParseAtomicLevel(strings.ToLower(cfg.LogLevel))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
		}
		zapCfg.Level = level
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(
		zap.String("service", cfg.ServiceName),
		zap.String("environment", string(cfg.Environment)),
	), nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Store.AWSRegion),
	)
}

// ProvideStores opens the configured entry/link store
func ProvideStores(ctx context.Context, cfg *config.Config, awsCfg aws.Config, logger *zap.Logger) (*Stores, func(), error) {
	stores, cleanup, err := openStores(ctx, cfg, awsCfg, logger)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Store.Resilient {
		stores.Entries = persistence.NewResilientEntryRepository(stores.Entries,
			persistence.DefaultResilienceConfig(cfg.Store.Backend+"-entries"), logger)
		stores.Links = persistence.NewResilientLinkRepository(stores.Links,
			persistence.DefaultResilienceConfig(cfg.Store.Backend+"-links"), logger)
	}

	logger.Info("Store initialized",
		zap.String("backend", cfg.Store.Backend),
		zap.Bool("resilient", cfg.Store.Resilient),
	)
	return stores, cleanup, nil
}

func openStores(ctx context.Context, cfg *config.Config, awsCfg aws.Config, logger *zap.Logger) (*Stores, func(), error) {
	noop := func() {}

	switch cfg.Store.Backend {
	case config.StoreMemory:
		store := memory.NewInMemoryStore()
		return &Stores{Entries: store, Links: store.Links()}, noop, nil

	case config.StorePostgres:
		db, err := postgres.Open(postgres.Config{
			DSN:             cfg.Store.PostgresDSN,
			MaxOpenConns:    cfg.Store.MaxOpenConns,
			MaxIdleConns:    cfg.Store.MaxIdleConns,
			ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
			AutoMigrate:     cfg.Store.AutoMigrate,
		})
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to access connection pool: %w", err)
		}
		return &Stores{
				Entries: postgres.NewEntryRepository(db, logger),
				Links:   postgres.NewLinkRepository(db, logger),
				Ready:   sqlDB.PingContext,
			}, func() {
				if err := sqlDB.Close(); err != nil {
					logger.Warn("Failed to close database", zap.Error(err))
				}
			}, nil

	case config.StoreSupabase:
		client, err := supabasestore.NewClient(cfg.Store.SupabaseURL, cfg.Store.SupabaseServiceKey)
		if err != nil {
			return nil, nil, err
		}
		store := supabasestore.NewStore(client, logger)
		return &Stores{Entries: store, Links: store.Links()}, noop, nil

	case config.StoreDynamoDB:
		client := awsdynamodb.NewFromConfig(awsCfg)
		store := dynamodb.NewStore(client, cfg.Store.DynamoDBTable, logger)
		table := cfg.Store.DynamoDBTable
		return &Stores{
			Entries: store,
			Links:   store.Links(),
			Ready: func(ctx context.Context) error {
				_, err := client.DescribeTable(ctx, &awsdynamodb.DescribeTableInput{TableName: aws.String(table)})
				return err
			},
		}, noop, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

// ProvideIdempotencyStore selects where the worker records delivered events.
// Only DynamoDB shares claims between invocations.
func ProvideIdempotencyStore(cfg *config.Config, awsCfg aws.Config) ports.IdempotencyStore {
	if cfg.Store.Backend == config.StoreDynamoDB {
		return dynamodb.NewIdempotencyStore(awsdynamodb.NewFromConfig(awsCfg), cfg.Store.DynamoDBTable)
	}
	return memory.NewIdempotencyStore()
}

// ProvideExternalPublisher creates the EventBridge publisher, or nil when
// events are disabled
func ProvideExternalPublisher(cfg *config.Config, awsCfg aws.Config, logger *zap.Logger) ports.EventPublisher {
	if !cfg.Events.Enabled {
		return nil
	}
	return eventbridge.NewPublisher(awseventbridge.NewFromConfig(awsCfg), cfg.Events.EventBusName, logger)
}

// ProvideEventDispatcher fans domain events out to local subscribers and the
// external publisher
func ProvideEventDispatcher(external ports.EventPublisher, graph *queries.GraphQueryService, logger *zap.Logger) *messaging.EventDispatcher {
	dispatcher := messaging.NewEventDispatcher(external, logger)
	dispatcher.Subscribe(events.TypeLinksGenerated, graph.OnLinksGenerated)
	return dispatcher
}

// ProvideMetrics creates the Prometheus collector, or nil when metrics are disabled
func ProvideMetrics(cfg *config.Config) *observability.Collector {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return observability.NewCollector("kbgraph")
}

// ProvideLinkMetrics combines the Prometheus collector with the CloudWatch
// sink when a namespace is configured
func ProvideLinkMetrics(cfg *config.Config, collector *observability.Collector, awsCfg aws.Config, logger *zap.Logger) ports.LinkMetrics {
	var sinks []ports.LinkMetrics
	if collector != nil {
		sinks = append(sinks, collector)
	}
	if ns := cfg.Metrics.CloudWatchNamespace; ns != "" {
		sinks = append(sinks, observability.NewCloudWatchMetrics(ns, cloudwatch.NewFromConfig(awsCfg), logger))
	}
	return observability.CombineMetrics(sinks...)
}

// ProvideTracing installs the global tracer provider
func ProvideTracing(ctx context.Context, cfg *config.Config, logger *zap.Logger) (observability.ShutdownFunc, func(), error) {
	shutdown, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    cfg.ServiceName,
		ServiceVersion: cfg.Version,
		Environment:    string(cfg.Environment),
		Endpoint:       cfg.Tracing.Endpoint,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}
	return shutdown, cleanup, nil
}

// LinkGenerationConfigFrom maps the linking section onto the service defaults
func LinkGenerationConfigFrom(l config.LinkingConfig) services.LinkGenerationConfig {
	return services.LinkGenerationConfig{
		Extractor: domainservices.KeywordExtractorConfig{
			StopWords:        domainservices.DefaultStopWords(),
			MinKeywordLength: l.MinKeywordLength,
			MaxKeywords:      l.MaxKeywords,
			Fields:           entities.DefaultSummaryFields,
		},
		Builder: domainservices.LinkBuilderConfig{
			MinSimilarity:     l.MinSimilarity,
			MaxLinks:          l.MaxLinks,
			CategoryBonus:     l.CategoryBonus,
			MinSharedKeywords: l.MinSharedKeywords,
			Ordering:          domainservices.LinkOrdering(l.Ordering),
		},
		BatchSize:   l.BatchSize,
		Parallelism: l.Parallelism,
	}
}

// ProvideLinkGenerationService creates the link generation service
func ProvideLinkGenerationService(
	stores *Stores,
	dispatcher *messaging.EventDispatcher,
	metrics ports.LinkMetrics,
	cfg *config.Config,
	logger *zap.Logger,
) *services.LinkGenerationService {
	return services.NewLinkGenerationService(
		stores.Entries,
		stores.Links,
		dispatcher,
		metrics,
		LinkGenerationConfigFrom(cfg.Linking),
		logger,
	)
}

// ProvideGraphQueryService creates the cached graph read service
func ProvideGraphQueryService(stores *Stores, logger *zap.Logger) *queries.GraphQueryService {
	return queries.NewGraphQueryService(stores.Entries, stores.Links, graphCacheSize, graphCacheTTL, logger)
}

// ProvideConfigWatcher hot-reloads the linking defaults in development. It
// returns nil when there is no file to watch.
func ProvideConfigWatcher(cfg *config.Config, svc *services.LinkGenerationService, logger *zap.Logger) (*config.Watcher, func(), error) {
	path := cfg.ConfigFile()
	if cfg.Environment != config.Development || path == "" {
		return nil, func() {}, nil
	}

	watcher, err := config.NewWatcher(path, cfg.Linking, logger)
	if err != nil {
		return nil, nil, err
	}
	watcher.OnChange(func(linking config.LinkingConfig) {
		svc.UpdateConfig(LinkGenerationConfigFrom(linking))
	})
	watcher.Start()
	return watcher, watcher.Stop, nil
}

// ProvideTokenVerifier creates the bearer token verifier for the configured auth mode
func ProvideTokenVerifier(cfg *config.Config) (auth.TokenVerifier, error) {
	switch cfg.Auth.Mode {
	case config.AuthSupabase:
		client, err := supabasestore.NewClient(cfg.Store.SupabaseURL, cfg.Store.SupabaseServiceKey)
		if err != nil {
			return nil, err
		}
		return auth.NewSupabaseVerifier(client), nil
	case config.AuthJWT:
		var audience []string
		if cfg.Auth.Audience != "" {
			audience = []string{cfg.Auth.Audience}
		}
		return auth.NewJWTVerifier(auth.JWTConfig{
			SigningMethod: "HS256",
			SecretKey:     cfg.Auth.JWTSecret,
			Issuer:        cfg.Auth.JWTIssuer,
			Audience:      audience,
		})
	case config.AuthNone:
		return auth.StaticVerifier{}, nil
	}
	return nil, fmt.Errorf("unknown auth mode %q", cfg.Auth.Mode)
}

// ProvideRateLimiter creates the per-owner limiter of the generate endpoint,
// or nil when rate limiting is disabled
func ProvideRateLimiter(cfg *config.Config, logger *zap.Logger) (auth.RateLimiter, func(), error) {
	rl := cfg.RateLimit
	if !rl.Enabled {
		return nil, func() {}, nil
	}

	if rl.Backend == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     rl.RedisAddr,
			Password: rl.RedisPassword,
			DB:       rl.RedisDB,
		})
		cleanup := func() {
			if err := client.Close(); err != nil {
				logger.Warn("Failed to close redis client", zap.Error(err))
			}
		}
		return auth.NewRedisRateLimiter(client, rl.Requests, rl.Window), cleanup, nil
	}

	limiter, err := auth.NewMemoryRateLimiter(rl.Requests, rl.Window, rl.CacheSize)
	if err != nil {
		return nil, nil, err
	}
	return limiter, func() {}, nil
}

// ProvideLinkHandler creates the knowledge link handler
func ProvideLinkHandler(svc *services.LinkGenerationService, graph *queries.GraphQueryService, logger *zap.Logger) *handlers.LinkHandler {
	return handlers.NewLinkHandler(svc, graph, logger)
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	links *handlers.LinkHandler,
	verifier auth.TokenVerifier,
	limiter auth.RateLimiter,
	metrics *observability.Collector,
	stores *Stores,
	cfg *config.Config,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(links, verifier, limiter, metrics, stores.Ready, rest.RouterConfig{
		CORSOrigins: cfg.Server.CORSOrigins,
		Version:     cfg.Version,
	}, logger)
}

// ProvideHTTPHandler builds the HTTP handler tree
func ProvideHTTPHandler(router *rest.Router) http.Handler {
	return router.Setup()
}
