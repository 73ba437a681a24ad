package ratelimit

import (
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// NewRedisStore wires a ulule/limiter store backed by Redis.
func NewRedisStore(rdb *redis.Client) (limiter.Store, error) {
	return limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: "invoice:limiter"})
}

// Fixed applies a ulule/limiter fixed window per client IP.
type Fixed struct {
	Limiter *limiter.Limiter
	Key     func(*http.Request) string
	OnError func(error)
}

// NewFixed builds a Fixed limiter allowing perMinute requests per key.
func NewFixed(store limiter.Store, perMinute int) Fixed {
	rate := limiter.Rate{Period: time.Minute, Limit: int64(perMinute)}
	return Fixed{Limiter: limiter.New(store, rate), Key: ByClientIP}
}

// Middleware enforces the configured rate.
func (f Fixed) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f.Limiter == nil || f.Limiter.Rate.Limit <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		key := ByClientIP
		if f.Key != nil {
			key = f.Key
		}
		lctx, err := f.Limiter.Get(r.Context(), key(r))
		if err != nil {
			if f.OnError != nil {
				f.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}
		reset := time.Unix(lctx.Reset, 0)
		writeHeaders(w, lctx.Limit, lctx.Remaining, reset)
		if lctx.Reached {
			reject(w, reset)
			return
		}
		next.ServeHTTP(w, r)
	})
}
