package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainErrors "github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/cassiomorais/gateway/pkg/retry"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Lua script for safe lock release (only owner can release)
var releaseLockScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// DistributedLock represents a distributed lock using Redis
type DistributedLock struct {
	client   *redis.Client
	key      string
	value    string
	ttl      time.Duration
	acquired bool
}

// NewDistributedLock creates a new distributed lock
func NewDistributedLock(client *redis.Client, key string, ttl time.Duration) *DistributedLock {
	return &DistributedLock{
		client: client,
		key:    fmt.Sprintf("lock:%s", key),
		value:  uuid.New().String(),
		ttl:    ttl,
	}
}

// Acquire attempts to acquire the lock
func (l *DistributedLock) Acquire(ctx context.Context) (bool, error) {
	// SET NX EX atomically sets the lock only if it doesn't exist
	success, err := l.client.SetNX(ctx, l.key, l.value, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}

	l.acquired = success
	return success, nil
}

// AcquireWithRetry attempts to acquire the lock with backoff retries.
func (l *DistributedLock) AcquireWithRetry(ctx context.Context, cfg retry.Config) error {
	return retry.Do(ctx, cfg, func() error {
		acquired, err := l.Acquire(ctx)
		if err != nil {
			return err
		}
		if !acquired {
			return domainErrors.ErrLockAcquisitionFailed
		}
		return nil
	})
}

// Release releases the lock
func (l *DistributedLock) Release(ctx context.Context) error {
	if !l.acquired {
		return nil
	}

	result, err := releaseLockScript.Run(ctx, l.client, []string{l.key}, l.value).Result()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}

	val, ok := result.(int64)
	if !ok || val == 0 {
		return errors.New("lock not held or already released")
	}

	l.acquired = false
	return nil
}

// Locker serializes per-transaction work across instances. It satisfies
// the notification.Locker contract.
type Locker struct {
	client *redis.Client
	ttl    time.Duration
	retry  retry.Config
}

// NewLocker creates a Locker with the given lock TTL.
func NewLocker(client *redis.Client, ttl time.Duration) *Locker {
	return &Locker{
		client: client,
		ttl:    ttl,
		retry: retry.Config{
			MaxAttempts:  10,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     time.Second,
			Multiplier:   2.0,
		},
	}
}

// WithLock runs fn while holding the named lock.
func (lk *Locker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	lock := NewDistributedLock(lk.client, key, lk.ttl)
	if err := lock.AcquireWithRetry(ctx, lk.retry); err != nil {
		return fmt.Errorf("%w: %s", domainErrors.ErrLockAcquisitionFailed, key)
	}
	defer lock.Release(ctx)
	return fn(ctx)
}
