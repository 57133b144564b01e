package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy decides what happens to a request when Redis cannot be reached.
type FailPolicy int

const (
	// FailOpen lets the request through.
	FailOpen FailPolicy = iota
	// FailClosed answers 503.
	FailClosed
)

var errNoLimiterStore = errors.New("rate limit store not configured")

// unlimitedEnvs never enforce limits; an unset APP_ENV counts as development.
var unlimitedEnvs = []string{"", "development", "test", "stress"}

func rateLimitKey(resource, id string) string {
	return "rl:" + resource + ":" + id
}

// CheckRateLimit counts one hit against resource/id in a fixed window and
// reports whether the caller is still within limit.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (bool, error) {
	if slices.Contains(unlimitedEnvs, os.Getenv("APP_ENV")) {
		return true, nil
	}
	if rdb == nil {
		return false, errNoLimiterStore
	}

	key := rateLimitKey(resource, id)
	hits, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit incr %s: %w", key, err)
	}
	// The first hit opens the window.
	if hits == 1 {
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, fmt.Errorf("rate limit expire %s: %w", key, err)
		}
	}
	return hits <= int64(limit), nil
}

// RateLimit allows limit requests per window for each caller, failing open.
// The optional name groups routes under one bucket; the path is used otherwise.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, name ...string) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, window, FailOpen, name...)
}

// RateLimitWithPolicy is RateLimit with an explicit FailPolicy.
func RateLimitWithPolicy(rdb *redis.Client, limit int, window time.Duration, policy FailPolicy, name ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		bucket := c.Path()
		if len(name) > 0 && name[0] != "" {
			bucket = name[0]
		}

		allowed, err := CheckRateLimit(c.UserContext(), rdb, bucket, callerID(c), limit, window)
		switch {
		case err != nil && policy == FailClosed:
			Logger.WarnContext(c.UserContext(), "rate limiter unavailable, rejecting",
				slog.String("bucket", bucket), slog.Any("error", err))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"detail": "Service temporarily unavailable."})
		case err != nil:
			return c.Next()
		case !allowed:
			RateLimitRejections.WithLabelValues(bucket).Inc()
			c.Set(fiber.HeaderRetryAfter, fmt.Sprint(int(window.Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"detail": "Request was throttled."})
		}
		return c.Next()
	}
}

// callerID prefers the authenticated user over the remote address.
func callerID(c *fiber.Ctx) string {
	if uid := c.Locals("userID"); uid != nil {
		return fmt.Sprintf("user:%v", uid)
	}
	return "ip:" + c.IP()
}
