package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisGuard implements Guard on a shared Redis, so the lock holds
// across processes. SET NX EX is atomic: exactly one claimant wins.
type RedisGuard struct {
	client *redis.Client
}

// NewRedisGuard creates a Redis-backed guard.
func NewRedisGuard(client *redis.Client) *RedisGuard {
	return &RedisGuard{client: client}
}

// Acquire claims the key with SET NX and the TTL as expiry, so a
// crashed holder never wedges the task permanently.
func (g *RedisGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	acquired, err := g.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire dedup lock %s: %w", key, err)
	}
	return acquired, nil
}

// Release deletes the key.
func (g *RedisGuard) Release(ctx context.Context, key string) error {
	if err := g.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to release dedup lock %s: %w", key, err)
	}
	return nil
}
