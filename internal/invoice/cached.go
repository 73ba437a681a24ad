package invoice

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-invoice/internal/cache"
)

// CachedStore decorates a Store with a Redis read-through snapshot cache.
// Save writes the new snapshot through; a miss only fills an empty key, so a
// slow reader cannot put back a copy older than the last save. Cache
// failures are logged and never fail the request.
type CachedStore struct {
	Next   Store
	Cache  *cache.JSON
	Logger zerolog.Logger
}

func (c CachedStore) Save(ctx context.Context, rec Record) error {
	if err := c.Next.Save(ctx, rec); err != nil {
		return err
	}
	if err := c.Cache.Set(ctx, cache.KeyInvoiceSnapshot(rec.ID), rec); err != nil {
		c.Logger.Warn().Err(err).Str("invoice_id", rec.ID).Msg("invoice_cache_write_failed")
		c.invalidate(ctx, rec.ID)
	}
	return nil
}

func (c CachedStore) Load(ctx context.Context, id string) (Record, error) {
	var rec Record
	hit, err := c.Cache.Get(ctx, cache.KeyInvoiceSnapshot(id), &rec)
	if err != nil {
		c.Logger.Warn().Err(err).Str("invoice_id", id).Msg("invoice_cache_read_failed")
	}
	if hit {
		return rec, nil
	}
	rec, err = c.Next.Load(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if _, err := c.Cache.SetIfAbsent(ctx, cache.KeyInvoiceSnapshot(id), rec); err != nil {
		c.Logger.Warn().Err(err).Str("invoice_id", id).Msg("invoice_cache_write_failed")
	}
	return rec, nil
}

// Primary returns the backing store, for reads that must not see the cache.
func (c CachedStore) Primary() Store { return c.Next }

func (c CachedStore) Delete(ctx context.Context, id string) error {
	if err := c.Next.Delete(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

// List is not cached; pages shift on every create.
func (c CachedStore) List(ctx context.Context, kind Kind, limit, offset int) ([]Record, int, error) {
	return c.Next.List(ctx, kind, limit, offset)
}

func (c CachedStore) invalidate(ctx context.Context, id string) {
	if err := c.Cache.Delete(ctx, cache.KeyInvoiceSnapshot(id)); err != nil {
		c.Logger.Warn().Err(err).Str("invoice_id", id).Msg("invoice_cache_invalidate_failed")
	}
}
