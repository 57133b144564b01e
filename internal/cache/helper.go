package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"inkwell/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// GetJSON decodes the value at key into dest and reports whether it was there.
func GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if client == nil {
		return false, nil
	}
	raw, err := client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON stores v at key as JSON for ttl.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return client.Set(ctx, key, raw, ttl).Err()
}

// Aside serves dest from the cache, or fills it with load and caches the
// result for ttl. Only load's error is returned; Redis trouble is logged and
// the request carries on against the database.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, load func() error) error {
	hit, err := GetJSON(ctx, key, dest)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "cache get", slog.String("key", key), slog.Any("error", err))
	}
	if hit {
		return nil
	}
	if err := load(); err != nil {
		return err
	}
	if err := SetJSON(ctx, key, dest, ttl); err != nil {
		middleware.Logger.WarnContext(ctx, "cache set", slog.String("key", key), slog.Any("error", err))
	}
	return nil
}
