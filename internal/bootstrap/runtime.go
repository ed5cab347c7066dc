// Package bootstrap wires the process-level dependencies shared by the commands.
package bootstrap

import (
	"context"
	"fmt"

	"postboard/internal/config"
	"postboard/internal/database"
	"postboard/internal/notifications"
	"postboard/internal/observability"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Runtime holds the connections a command needs plus the tracer shutdown hook.
type Runtime struct {
	DB              *gorm.DB
	Redis           *redis.Client
	ShutdownTracing func(context.Context) error
}

// InitRuntime connects to the database and Redis and starts tracing.
// Redis is optional: Runtime.Redis is nil when it is unreachable.
func InitRuntime(cfg *config.Config, serviceName string) (*Runtime, error) {
	shutdownTracing, err := observability.InitTracing(TracingConfig(cfg, serviceName))
	if err != nil {
		return nil, fmt.Errorf("tracing init failed: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		_ = shutdownTracing(context.Background())
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	return &Runtime{
		DB:              db,
		Redis:           notifications.InitRedis(cfg.RedisURL),
		ShutdownTracing: shutdownTracing,
	}, nil
}

// TracingConfig maps application config onto the tracer settings.
func TracingConfig(cfg *config.Config, serviceName string) observability.TracingConfig {
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
