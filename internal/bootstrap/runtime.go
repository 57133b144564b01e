// Package bootstrap wires process-level dependencies shared by the binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/middleware"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/seed"
	"inkwell/internal/service"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedCategories upserts the built-in categories.
	SeedCategories bool
	// WithoutRedis skips the Redis connection entirely.
	WithoutRedis bool
}

// InitRuntime connects to DB and Redis and applies the startup bootstrap steps.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// A nil client disables caching, distributed rate limits and cross-instance events.
	var r *redis.Client
	if !opts.WithoutRedis {
		r = cache.InitRedis(cfg.RedisURL)
	}

	if err := EnsureSuperuser(ctx, cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap superuser: %w", err)
	}

	if opts.SeedCategories {
		if _, err := seed.Categories(ctx, db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed built-in categories: %w", err)
		}
	}

	return db, r, nil
}

// EnsureSuperuser creates or promotes SUPERUSER_EMAIL when both superuser settings are present.
func EnsureSuperuser(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	email := strings.TrimSpace(cfg.SuperuserEmail)
	if email == "" {
		return nil
	}
	if cfg.SuperuserPassword == "" {
		return fmt.Errorf("SUPERUSER_PASSWORD must be set when SUPERUSER_EMAIL is")
	}

	users := service.NewUserService(repository.NewUserRepository(db))
	user, created, err := users.CreateSuperuser(ctx, email, cfg.SuperuserPassword)
	if err != nil {
		return err
	}
	middleware.Logger.InfoContext(ctx, "superuser bootstrap ensured",
		slog.String("email", user.Email), slog.Bool("created", created))
	return nil
}

// InitTracing starts the configured exporter and returns its shutdown hook.
func InitTracing(ctx context.Context, cfg *config.Config, name string) (func(context.Context) error, error) {
	return observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName:    name,
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampleRatio,
	})
}

// ShutdownTimeout bounds graceful shutdown of the binaries.
const ShutdownTimeout = 10 * time.Second
