package app

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-invoice/internal/config"
	"github.com/noah-isme/backend-invoice/internal/invoice"
)

func TestOpenMemoryStore(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg, err := config.LoadForTests(map[string]string{
		"STORE":     "memory",
		"REDIS_URL": "redis://" + mr.Addr(),
	})
	require.NoError(t, err)

	deps, err := Open(context.Background(), cfg, zerolog.Nop(), Options{Component: "test"})
	require.NoError(t, err)
	t.Cleanup(deps.Close)

	require.Nil(t, deps.DB)
	require.NotNil(t, deps.LimiterStore)
	require.NoError(t, deps.PingDB(context.Background(), time.Second))
	require.NoError(t, deps.PingRedis(context.Background(), time.Second))

	store := deps.InvoiceStore(cfg)
	cached, ok := store.(invoice.CachedStore)
	require.True(t, ok)
	_, isMemory := cached.Next.(*invoice.MemoryStore)
	require.True(t, isMemory)
}

func TestOpenRedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	cfg, err := config.LoadForTests(map[string]string{"STORE": "memory", "REDIS_URL": "redis://" + addr})
	require.NoError(t, err)

	_, err = Open(context.Background(), cfg, zerolog.Nop(), Options{ConnectTimeout: time.Second})
	require.ErrorContains(t, err, "ping redis")
}

func TestOutbound(t *testing.T) {
	cl := Outbound("fx", 0, zerolog.Nop())
	require.Equal(t, "fx", cl.Breaker.Target())
	require.Equal(t, 5*time.Second, cl.Timeout)
	require.Equal(t, 3, cl.MaxAttempts)
	require.Equal(t, "invoice-worker", applicationName("worker"))
}
