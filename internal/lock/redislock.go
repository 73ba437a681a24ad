package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned by TryWithLock when another holder owns the key.
var ErrNotAcquired = errors.New("lock: not acquired")

var releaseScript = redis.NewScript(`if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`)

// Locker provides a Redis-backed distributed lock. Invoice mutations hold it
// per invoice id; the fx warmer holds it per replica set.
type Locker struct {
	R            *redis.Client
	RetryBackoff time.Duration
}

// WithLock executes fn while holding a lock for the provided key. It waits
// until the lock is free or ctx is done. The lock is released even when fn
// returns an error.
func (l Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if err := l.check(fn); err != nil {
		return err
	}
	retry := l.RetryBackoff
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	for {
		token, ok, err := l.acquire(ctx, key, ttl)
		if err != nil {
			return err
		}
		if ok {
			defer l.release(key, token)
			return fn(ctx)
		}
		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// TryWithLock runs fn only when the lock is free right now.
func (l Locker) TryWithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if err := l.check(fn); err != nil {
		return err
	}
	token, ok, err := l.acquire(ctx, key, ttl)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAcquired
	}
	defer l.release(key, token)
	return fn(ctx)
}

func (l Locker) check(fn func(context.Context) error) error {
	if l.R == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	return nil
}

func (l Locker) acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	token := uuid.NewString()
	ok, err := l.R.SetNX(ctx, key, token, ttl).Result()
	return token, ok, err
}

func (l Locker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = releaseScript.Run(ctx, l.R, []string{key}, token).Err()
}
