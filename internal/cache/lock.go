// Package cache wraps the Redis client the platform already uses for
// caching and repurposes it here as a distributed lock: the rankings
// engine uses it to enforce that at most one rebuild runs at a time across
// every server instance, not just within one process.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"rankingsengine/internal/config"
)

// ErrLockHeld is returned by RebuildLock.Acquire when another instance
// already holds the lock.
var ErrLockHeld = errors.New("rebuild lock is already held")

const lockKey = "rankingsengine:rebuild-lock"

// RebuildLock enforces single-rebuild-at-a-time across every process
// sharing the same Redis instance.
type RebuildLock struct {
	client  *redis.Client
	ttl     time.Duration
	enabled bool
}

// NewRebuildLock builds a lock client from cfg. If caching is disabled,
// the returned lock always succeeds — callers fall back to the
// controller's in-process guard (a single Go process is still the common
// deployment, and a no-op lock must never block it).
func NewRebuildLock(cfg config.CacheConfig) *RebuildLock {
	if !cfg.Enabled {
		return &RebuildLock{enabled: false}
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Address,
		Password:    cfg.Password,
		DB:          cfg.Database,
		DialTimeout: cfg.DialTimeout,
	})
	return &RebuildLock{client: client, ttl: cfg.LockTTL, enabled: true}
}

// Acquire attempts to take the rebuild lock, returning a token to release
// it with and ErrLockHeld if another instance already holds it. The lock
// expires after its configured TTL even if never released, so a crashed
// holder cannot wedge every future rebuild.
func (l *RebuildLock) Acquire(ctx context.Context) (token string, err error) {
	if !l.enabled {
		return "", nil
	}
	token = uuid.NewString()
	ok, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrLockHeld
	}
	return token, nil
}

// Release gives up the lock, but only if token still matches the current
// holder — this prevents a lock holder whose TTL already expired from
// releasing a different instance's subsequently-acquired lock.
func (l *RebuildLock) Release(ctx context.Context, token string) error {
	if !l.enabled || token == "" {
		return nil
	}
	current, err := l.client.Get(ctx, lockKey).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	if current != token {
		return nil
	}
	return l.client.Del(ctx, lockKey).Err()
}
