package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

func ok(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func TestSlidingWindowAllow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	l := SlidingWindow{Client: client, Prefix: "rl:", Now: func() time.Time { return now }}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := l.Allow(ctx, "key", 2*time.Second, 2)
		require.NoError(t, err)
		require.True(t, d.Allowed)
		require.Equal(t, 1-i, d.Remaining)
		now = now.Add(500 * time.Millisecond)
	}

	d, err := l.Allow(ctx, "key", 2*time.Second, 2)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, 0, d.Remaining)
	require.Equal(t, time.Date(2026, 5, 10, 12, 0, 2, 0, time.UTC), d.ResetAt.UTC())

	// The first two hits have left the window.
	now = now.Add(2 * time.Second)
	d, err = l.Allow(ctx, "key", 2*time.Second, 2)
	require.NoError(t, err)
	require.True(t, d.Allowed)
}

func TestSlidingWindowWithoutRedis(t *testing.T) {
	d, err := SlidingWindow{}.Allow(context.Background(), "k", time.Minute, 3)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Equal(t, 3, d.Remaining)
}

func TestHandlerMiddlewareEnforcesLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	h := Handler{
		Limiter: SlidingWindow{Client: client, Prefix: "rl:"},
		Config:  Config{Key: ByRouteAndIP, Window: time.Minute, Max: 1},
	}
	r := chi.NewRouter()
	r.With(h.Middleware).Get("/invoices/{id}/export.pdf", ok)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/invoices/a/export.pdf", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))

	// A different id shares the route pattern key.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/invoices/b/export.pdf", nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Contains(t, rec.Body.String(), "RATE_LIMITED")
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestHandlerMiddlewareOnError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	var called bool
	h := Handler{
		Limiter: SlidingWindow{Client: client},
		Config:  Config{Key: ByClientIP, Window: time.Second, Max: 1},
		OnError: func(error) { called = true },
	}
	rec := httptest.NewRecorder()
	h.Middleware(http.HandlerFunc(ok)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, called)
}

func TestFixedMiddleware(t *testing.T) {
	f := NewFixed(memory.NewStore(), 2)
	handler := f.Middleware(http.HandlerFunc(ok))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/fx/rates", nil)
		req.RemoteAddr = "203.0.113.7:5000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/fx/rates", nil)
	req.RemoteAddr = "198.51.100.1:5000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestNewRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, err := NewRedisStore(client)
	require.NoError(t, err)
	f := NewFixed(store, 1)
	rec := httptest.NewRecorder()
	f.Middleware(http.HandlerFunc(ok)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
}
