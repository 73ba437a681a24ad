package currency

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// TryLocker runs fn only when the named lock is free.
type TryLocker interface {
	TryWithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Warmer keeps the fresh and stale rate copies populated ahead of requests.
type Warmer struct {
	Service  *Service
	Locker   TryLocker
	LockKey  string
	LockTTL  time.Duration
	Bases    []string
	Interval time.Duration
	Logger   zerolog.Logger
}

// Run refreshes once immediately and then on every tick until ctx ends.
func (w Warmer) Run(ctx context.Context) error {
	interval := w.Interval
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := w.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.Logger.Warn().Err(err).Msg("fx_warm_skipped")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce refreshes every base under the warm lock. It returns the lock
// error when another replica holds it. Per-base failures are logged.
func (w Warmer) RunOnce(ctx context.Context) error {
	warm := func(ctx context.Context) error {
		refreshed := 0
		for _, raw := range w.Bases {
			base, err := Normalize(raw)
			if err != nil {
				w.Logger.Warn().Err(err).Str("base", raw).Msg("fx_warm_invalid_base")
				continue
			}
			if _, err := w.Service.Refresh(ctx, base); err != nil {
				w.Logger.Warn().Err(err).Str("base", base).Msg("fx_warm_failed")
				continue
			}
			refreshed++
		}
		w.Logger.Info().Int("refreshed", refreshed).Int("bases", len(w.Bases)).Msg("fx_warm_done")
		return nil
	}
	if w.Locker == nil {
		return warm(ctx)
	}
	ttl := w.LockTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return w.Locker.TryWithLock(ctx, w.LockKey, ttl, warm)
}
