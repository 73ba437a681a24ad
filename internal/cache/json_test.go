package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestJSONRoundTripAndExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := NewJSON(client, time.Minute)
	ctx := context.Background()
	key := KeyFXRates("usd")
	require.Equal(t, "fx:rates:USD", key)

	require.NoError(t, c.Set(ctx, key, map[string]float64{"INR": 83.12}))
	var got map[string]float64
	ok, err := c.Get(ctx, key, &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 83.12, got["INR"])

	mr.FastForward(2 * time.Minute)
	ok, err = c.Get(ctx, key, &got)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestJSONDisabledAlwaysMisses(t *testing.T) {
	c := NewJSON(nil, time.Minute)
	require.False(t, c.Enabled())
	require.NoError(t, c.Set(context.Background(), "k", 1))
	var v int
	ok, err := c.Get(context.Background(), "k", &v)
	require.NoError(t, err)
	require.False(t, ok)
}
