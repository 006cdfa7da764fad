package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment represents the deployment environment
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Store backends
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSupabase = "supabase"
	StoreDynamoDB = "dynamodb"
)

// Auth modes
const (
	AuthSupabase = "supabase"
	AuthJWT      = "jwt"
	AuthNone     = "none"
)

// Config holds all application configuration
type Config struct {
	Environment Environment `yaml:"environment"`
	ServiceName string      `yaml:"serviceName"`
	Version     string      `yaml:"version"`
	LogLevel    string      `yaml:"logLevel"`

	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Events    EventsConfig    `yaml:"events"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Linking   LinkingConfig   `yaml:"linking"`

	// LoadedFrom lists the sources applied, lowest priority first
	LoadedFrom []string `yaml:"-"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Address         string        `yaml:"address"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	CORSOrigins     []string      `yaml:"corsOrigins"`
}

// StoreConfig selects and configures the entry/link store
type StoreConfig struct {
	Backend string `yaml:"backend"`

	// postgres
	PostgresDSN     string        `yaml:"postgresDsn"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	AutoMigrate     bool          `yaml:"autoMigrate"`

	// supabase
	SupabaseURL        string `yaml:"supabaseUrl"`
	SupabaseServiceKey string `yaml:"-"`

	// dynamodb
	DynamoDBTable string `yaml:"dynamodbTable"`
	AWSRegion     string `yaml:"awsRegion"`

	Resilient bool `yaml:"resilient"`
}

// EventsConfig configures the EventBridge publisher
type EventsConfig struct {
	Enabled      bool   `yaml:"enabled"`
	EventBusName string `yaml:"eventBusName"`

	// IdempotencyTTL is how long the worker remembers a delivered event ID
	IdempotencyTTL time.Duration `yaml:"idempotencyTtl"`
}

// AuthConfig configures bearer token verification
type AuthConfig struct {
	Mode      string `yaml:"mode"`
	JWTSecret string `yaml:"-"`
	JWTIssuer string `yaml:"jwtIssuer"`
	Audience  string `yaml:"audience"`
}

// RateLimitConfig configures the per-owner limit on generation requests
type RateLimitConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Requests      int           `yaml:"requests"`
	Window        time.Duration `yaml:"window"`
	Backend       string        `yaml:"backend"` // memory or redis
	CacheSize     int           `yaml:"cacheSize"`
	RedisAddr     string        `yaml:"redisAddr"`
	RedisPassword string        `yaml:"-"`
	RedisDB       int           `yaml:"redisDb"`
}

// TracingConfig configures OpenTelemetry export
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint"`
	SampleRate float64 `yaml:"sampleRate"`
}

// MetricsConfig configures the Prometheus endpoint and the optional
// CloudWatch sink
type MetricsConfig struct {
	Enabled             bool   `yaml:"enabled"`
	CloudWatchNamespace string `yaml:"cloudwatchNamespace"`
}

// LinkingConfig holds the generation defaults. This is the section the
// watcher hot-reloads.
type LinkingConfig struct {
	MinSimilarity     float64 `yaml:"minSimilarity"`
	MaxLinks          int     `yaml:"maxLinks"`
	CategoryBonus     float64 `yaml:"categoryBonus"`
	MinSharedKeywords int     `yaml:"minSharedKeywords"`
	MinKeywordLength  int     `yaml:"minKeywordLength"`
	MaxKeywords       int     `yaml:"maxKeywords"`
	Ordering          string  `yaml:"ordering"`
	BatchSize         int     `yaml:"batchSize"`
	Parallelism       int     `yaml:"parallelism"`
}

// Default returns the configuration used before any file or env overlay
func Default() *Config {
	return &Config{
		Environment: Development,
		ServiceName: "kbgraph-backend",
		Version:     "1.0.0",
		LogLevel:    "info",
		Server: ServerConfig{
			Address:         ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			CORSOrigins:     []string{"http://localhost:3000"},
		},
		Store: StoreConfig{
			Backend:         StoreMemory,
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			DynamoDBTable:   "kbgraph",
			AWSRegion:       "us-west-2",
			Resilient:       true,
		},
		Events: EventsConfig{
			EventBusName:   "kbgraph-events",
			IdempotencyTTL: 24 * time.Hour,
		},
		Auth: AuthConfig{
			Mode:     AuthNone,
			Audience: "authenticated",
		},
		RateLimit: RateLimitConfig{
			Enabled:   true,
			Requests:  10,
			Window:    time.Minute,
			Backend:   "memory",
			CacheSize: 10000,
		},
		Tracing: TracingConfig{
			Endpoint:   "localhost:4317",
			SampleRate: 1.0,
		},
		Metrics: MetricsConfig{Enabled: true},
		Linking: LinkingConfig{
			MinSimilarity:     0.15,
			MaxLinks:          1000,
			CategoryBonus:     0.10,
			MinSharedKeywords: 2,
			MinKeywordLength:  5,
			MaxKeywords:       15,
			Ordering:          "discovery",
			BatchSize:         100,
			Parallelism:       1,
		},
	}
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.Environment {
	case Development, Staging, Production:
	default:
		return fmt.Errorf("unknown environment %q", c.Environment)
	}

	switch c.Store.Backend {
	case StoreMemory:
	case StorePostgres:
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	case StoreSupabase:
		if c.Store.SupabaseURL == "" || c.Store.SupabaseServiceKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required for the supabase store")
		}
	case StoreDynamoDB:
		if c.Store.DynamoDBTable == "" {
			return fmt.Errorf("TABLE_NAME is required for the dynamodb store")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	switch c.Auth.Mode {
	case AuthNone:
		if c.IsProduction() {
			return fmt.Errorf("auth mode %q is not allowed in production", AuthNone)
		}
	case AuthJWT:
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("SUPABASE_JWT_SECRET is required for jwt auth")
		}
	case AuthSupabase:
		if c.Store.SupabaseURL == "" || c.Store.SupabaseServiceKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required for supabase auth")
		}
	default:
		return fmt.Errorf("unknown auth mode %q", c.Auth.Mode)
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit requests and window must be positive")
		}
		switch c.RateLimit.Backend {
		case "memory":
		case "redis":
			if c.RateLimit.RedisAddr == "" {
				return fmt.Errorf("REDIS_ADDR is required for the redis rate limiter")
			}
		default:
			return fmt.Errorf("unknown rate limit backend %q", c.RateLimit.Backend)
		}
	}

	if c.Events.Enabled && c.Events.EventBusName == "" {
		return fmt.Errorf("EVENT_BUS_NAME is required when events are enabled")
	}

	return c.Linking.Validate()
}

// Validate checks the generation defaults
func (l LinkingConfig) Validate() error {
	if !(l.MinSimilarity >= 0 && l.MinSimilarity <= 1) {
		return fmt.Errorf("linking.minSimilarity must be between 0 and 1")
	}
	if l.MaxLinks < 1 || l.MaxLinks > 10000 {
		return fmt.Errorf("linking.maxLinks must be between 1 and 10000")
	}
	if !(l.CategoryBonus >= 0 && l.CategoryBonus <= 1) {
		return fmt.Errorf("linking.categoryBonus must be between 0 and 1")
	}
	if l.MinSharedKeywords < 1 {
		return fmt.Errorf("linking.minSharedKeywords must be positive")
	}
	if l.MinKeywordLength < 1 {
		return fmt.Errorf("linking.minKeywordLength must be positive")
	}
	if l.MaxKeywords < 1 {
		return fmt.Errorf("linking.maxKeywords must be positive")
	}
	if l.Ordering != "discovery" && l.Ordering != "strength" {
		return fmt.Errorf("linking.ordering must be discovery or strength")
	}
	if l.BatchSize < 1 || l.BatchSize > 500 {
		return fmt.Errorf("linking.batchSize must be between 1 and 500")
	}
	if l.Parallelism < 1 || l.Parallelism > 32 {
		return fmt.Errorf("linking.parallelism must be between 1 and 32")
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

func applyEnv(cfg *Config) {
	if v := getEnv("ENVIRONMENT", ""); v != "" {
		cfg.Environment = Environment(strings.ToLower(v))
	}
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.Version = getEnv("SERVICE_VERSION", cfg.Version)

	cfg.Server.Address = getEnv("SERVER_ADDRESS", cfg.Server.Address)
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}

	cfg.Store.Backend = getEnv("STORE_BACKEND", cfg.Store.Backend)
	cfg.Store.PostgresDSN = getEnv("DATABASE_URL", cfg.Store.PostgresDSN)
	cfg.Store.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", cfg.Store.MaxOpenConns)
	cfg.Store.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", cfg.Store.MaxIdleConns)
	cfg.Store.AutoMigrate = getEnvBool("DB_AUTO_MIGRATE", cfg.Store.AutoMigrate)
	cfg.Store.SupabaseURL = getEnv("SUPABASE_URL", cfg.Store.SupabaseURL)
	cfg.Store.SupabaseServiceKey = getEnv("SUPABASE_SERVICE_ROLE_KEY", cfg.Store.SupabaseServiceKey)
	cfg.Store.DynamoDBTable = getEnv("TABLE_NAME", cfg.Store.DynamoDBTable)
	cfg.Store.AWSRegion = getEnv("AWS_REGION", cfg.Store.AWSRegion)
	cfg.Store.Resilient = getEnvBool("STORE_RESILIENT", cfg.Store.Resilient)

	cfg.Events.Enabled = getEnvBool("ENABLE_EVENTS", cfg.Events.Enabled)
	cfg.Events.EventBusName = getEnv("EVENT_BUS_NAME", cfg.Events.EventBusName)

	cfg.Auth.Mode = getEnv("AUTH_MODE", cfg.Auth.Mode)
	cfg.Auth.JWTSecret = getEnv("SUPABASE_JWT_SECRET", getEnv("JWT_SECRET", cfg.Auth.JWTSecret))
	cfg.Auth.JWTIssuer = getEnv("JWT_ISSUER", cfg.Auth.JWTIssuer)

	cfg.RateLimit.Enabled = getEnvBool("RATE_LIMIT_ENABLED", cfg.RateLimit.Enabled)
	cfg.RateLimit.Requests = getEnvInt("RATE_LIMIT_REQUESTS", cfg.RateLimit.Requests)
	cfg.RateLimit.Window = getEnvDuration("RATE_LIMIT_WINDOW", cfg.RateLimit.Window)
	cfg.RateLimit.Backend = getEnv("RATE_LIMIT_BACKEND", cfg.RateLimit.Backend)
	cfg.RateLimit.RedisAddr = getEnv("REDIS_ADDR", cfg.RateLimit.RedisAddr)
	cfg.RateLimit.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RateLimit.RedisPassword)
	cfg.RateLimit.RedisDB = getEnvInt("REDIS_DB", cfg.RateLimit.RedisDB)

	cfg.Tracing.Enabled = getEnvBool("ENABLE_TRACING", cfg.Tracing.Enabled)
	cfg.Tracing.Endpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Tracing.Endpoint)
	cfg.Tracing.SampleRate = getEnvFloat("TRACE_SAMPLE_RATE", cfg.Tracing.SampleRate)
	cfg.Metrics.Enabled = getEnvBool("ENABLE_METRICS", cfg.Metrics.Enabled)
	cfg.Metrics.CloudWatchNamespace = getEnv("CLOUDWATCH_NAMESPACE", cfg.Metrics.CloudWatchNamespace)

	cfg.Linking.MinSimilarity = getEnvFloat("LINK_MIN_SIMILARITY", cfg.Linking.MinSimilarity)
	cfg.Linking.MaxLinks = getEnvInt("LINK_MAX_LINKS", cfg.Linking.MaxLinks)
	cfg.Linking.CategoryBonus = getEnvFloat("LINK_CATEGORY_BONUS", cfg.Linking.CategoryBonus)
	cfg.Linking.Ordering = getEnv("LINK_ORDERING", cfg.Linking.Ordering)
	cfg.Linking.BatchSize = getEnvInt("LINK_BATCH_SIZE", cfg.Linking.BatchSize)
	cfg.Linking.Parallelism = getEnvInt("LINK_PARALLELISM", cfg.Linking.Parallelism)
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
