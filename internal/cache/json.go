package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// JSON wraps Redis helpers for JSON payloads.
type JSON struct {
	client *redis.Client
	ttl    time.Duration
}

// NewJSON constructs a cache helper. A nil client yields a cache that always misses.
func NewJSON(client *redis.Client, ttl time.Duration) *JSON {
	return &JSON{client: client, ttl: ttl}
}

// Enabled reports whether a Redis client is configured.
func (c *JSON) Enabled() bool {
	return c != nil && c.client != nil
}

// Get unmarshals a cached JSON payload into dst. It reports whether the key existed.
func (c *JSON) Get(ctx context.Context, key string, dst any) (bool, error) {
	if !c.Enabled() || key == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores v with the default TTL.
func (c *JSON) Set(ctx context.Context, key string, v any) error {
	return c.SetTTL(ctx, key, v, c.ttl)
}

// SetTTL stores v with an explicit TTL. A zero TTL keeps the key until deleted.
func (c *JSON) SetTTL(ctx context.Context, key string, v any, ttl time.Duration) error {
	if !c.Enabled() || key == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

// SetIfAbsent stores v with the default TTL unless the key already exists.
// It reports whether v was written.
func (c *JSON) SetIfAbsent(ctx context.Context, key string, v any) (bool, error) {
	if !c.Enabled() || key == "" {
		return false, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return false, err
	}
	return c.client.SetNX(ctx, key, data, c.ttl).Result()
}

// Delete removes keys.
func (c *JSON) Delete(ctx context.Context, keys ...string) error {
	if !c.Enabled() || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
