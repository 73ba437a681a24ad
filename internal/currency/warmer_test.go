package currency

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-invoice/internal/cache"
	"github.com/noah-isme/backend-invoice/internal/lock"
)

func TestWarmerRefreshesBases(t *testing.T) {
	mr, client := newRedis(t)
	provider := &stubProvider{rates: map[string]float64{"USD": 1, "INR": 84, "EUR": 0.9}}
	svc := &Service{Provider: provider, Cache: cache.NewJSON(client, time.Hour)}
	w := Warmer{
		Service: svc,
		Locker:  lock.Locker{R: client},
		LockKey: cache.KeyFXWarmLock,
		Bases:   []string{"usd", "EUR", "nope"},
	}

	require.NoError(t, w.RunOnce(context.Background()))
	require.EqualValues(t, 2, provider.calls)
	require.True(t, mr.Exists(cache.KeyFXRates("USD")))
	require.True(t, mr.Exists(cache.KeyFXStale("EUR")))
	require.False(t, mr.Exists(cache.KeyFXWarmLock))
}

func TestWarmerSkipsWhenLocked(t *testing.T) {
	mr, client := newRedis(t)
	provider := &stubProvider{rates: map[string]float64{"USD": 1}}
	w := Warmer{
		Service: &Service{Provider: provider, Cache: cache.NewJSON(client, time.Hour)},
		Locker:  lock.Locker{R: client},
		LockKey: cache.KeyFXWarmLock,
		Bases:   []string{"USD"},
	}
	require.NoError(t, mr.Set(cache.KeyFXWarmLock, "other-replica"))

	err := w.RunOnce(context.Background())
	require.ErrorIs(t, err, lock.ErrNotAcquired)
	require.EqualValues(t, 0, provider.calls)
}

func TestWarmerRunStopsOnCancel(t *testing.T) {
	_, client := newRedis(t)
	provider := &stubProvider{rates: map[string]float64{"USD": 1}}
	w := Warmer{
		Service:  &Service{Provider: provider, Cache: cache.NewJSON(client, time.Hour)},
		Bases:    []string{"USD"},
		Interval: time.Hour,
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&provider.calls) >= 1 }, time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("warmer did not stop")
	}
}
