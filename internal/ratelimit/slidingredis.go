package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// SlidingWindow is a Redis sorted-set limiter. Each request is one member
// scored by its timestamp; members older than the window are trimmed first.
type SlidingWindow struct {
	Client *redis.Client
	Prefix string
	Now    func() time.Time
}

func (l SlidingWindow) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// Allow records a hit for key and reports whether it fits in max per window.
// A nil client or non-positive limits allow everything.
func (l SlidingWindow) Allow(ctx context.Context, key string, window time.Duration, max int) (Decision, error) {
	now := l.now()
	d := Decision{Allowed: true, Limit: max, Remaining: max, ResetAt: now.Add(window)}
	if l.Client == nil || max <= 0 || window <= 0 {
		return d, nil
	}

	redisKey := l.Prefix + key
	cutoff := now.Add(-window).UnixNano()

	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", "("+strconv.FormatInt(cutoff, 10))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: fmt.Sprintf("%d:%s", now.UnixNano(), uuid.NewString())})
	count := pipe.ZCard(ctx, redisKey)
	oldest := pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
	pipe.PExpire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return d, fmt.Errorf("ratelimit %s: %w", key, err)
	}

	current := int(count.Val())
	if first := oldest.Val(); len(first) == 1 {
		d.ResetAt = time.Unix(0, int64(first[0].Score)).Add(window)
	}
	d.Remaining = max - current
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	d.Allowed = current <= max
	return d, nil
}
