package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Blacklist remembers revoked token ids until they would have expired anyway.
type Blacklist interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// BlacklistKey is the Redis key for a revoked jti.
func BlacklistKey(jti string) string {
	return "blacklist:" + jti
}

type redisBlacklist struct {
	rdb *redis.Client
}

// NewRedisBlacklist stores revocations as expiring Redis keys.
func NewRedisBlacklist(rdb *redis.Client) Blacklist {
	return &redisBlacklist{rdb: rdb}
}

func (b *redisBlacklist) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return b.rdb.Set(ctx, BlacklistKey(jti), "1", ttl).Err()
}

func (b *redisBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := b.rdb.Get(ctx, BlacklistKey(jti)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

type memoryBlacklist struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

// NewMemoryBlacklist keeps revocations in process memory. It backs single-instance
// deployments and tests that run without Redis.
func NewMemoryBlacklist() Blacklist {
	return &memoryBlacklist{entries: make(map[string]time.Time)}
}

func (b *memoryBlacklist) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	for k, exp := range b.entries {
		if now.After(exp) {
			delete(b.entries, k)
		}
	}
	if expiresAt.After(now) {
		b.entries[jti] = expiresAt
	}
	return nil
}

func (b *memoryBlacklist) IsRevoked(_ context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	exp, ok := b.entries[jti]
	return ok && time.Now().Before(exp), nil
}
