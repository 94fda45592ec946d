// Package bootstrap initializes the process-wide runtime shared by the
// commands: logging, tracing, the database and Redis.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/digitalmaniak/sidewidth/internal/cache"
	"github.com/digitalmaniak/sidewidth/internal/config"
	"github.com/digitalmaniak/sidewidth/internal/database"
	"github.com/digitalmaniak/sidewidth/internal/middleware"
	"github.com/digitalmaniak/sidewidth/internal/observability"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const serviceName = "sidewidth-api"

// Options control runtime initialization behavior.
type Options struct {
	// Migrate applies pending SQL migrations after connecting.
	Migrate bool
	// SkipRedis leaves the cache disabled, for commands that never read it.
	SkipRedis bool
}

// Runtime holds the initialized connections.
type Runtime struct {
	DB    *gorm.DB
	Redis *redis.Client
	// ShutdownTracing flushes pending spans.
	ShutdownTracing func(context.Context) error
}

// LogOptions maps configuration onto logger options.
func LogOptions(cfg *config.Config) middleware.LogOptions {
	return middleware.LogOptions{
		Env:        cfg.Env,
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	}
}

// TracingConfig maps configuration onto tracer options.
func TracingConfig(cfg *config.Config) observability.TracingConfig {
	return observability.TracingConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampleRatio,
	}
}

// InitRuntime configures logging and tracing, connects to the database and
// Redis, and optionally migrates the schema. Redis is optional: when it is
// unreachable the cache stays disabled and Redis is nil.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	middleware.ConfigureLogger(LogOptions(cfg))

	shutdown, err := observability.InitTracing(TracingConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("tracing init failed: %w", err)
	}

	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	if opts.Migrate {
		if err := database.RunMigrations(ctx, db); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
	}

	rt := &Runtime{DB: db, ShutdownTracing: shutdown}
	if !opts.SkipRedis {
		cache.InitRedis(cfg.RedisURL)
		rt.Redis = cache.GetClient()
	}
	return rt, nil
}
