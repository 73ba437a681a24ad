package country

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-invoice/internal/cache"
	"github.com/noah-isme/backend-invoice/internal/obs"
)

// sequenceTTL keeps a month counter around past the end of its month.
const sequenceTTL = 40 * 24 * time.Hour

// Numberer issues invoice numbers of the form PREFIX-YYYY-MM-NNN. With Redis
// the suffix is a per-prefix monthly sequence; without it, or when Redis
// fails, the suffix is random.
type Numberer struct {
	R      *redis.Client
	Logger zerolog.Logger
	Rand   func(n int) int
}

// Next allocates a number for prefix in the month of at.
func (n Numberer) Next(ctx context.Context, prefix string, at time.Time) (string, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = "INV"
	}
	if n.R != nil {
		key := cache.KeyInvoiceSequence(prefix, at.Format("200601"))
		seq, err := n.R.Incr(ctx, key).Result()
		if err == nil {
			if seq == 1 {
				if err := n.R.Expire(ctx, key, sequenceTTL).Err(); err != nil {
					n.Logger.Warn().Err(err).Str("key", key).Msg("invoice_sequence_expire_failed")
				}
			}
			obs.ObserveInvoiceNumber("sequence")
			return format(prefix, at, int(seq)), nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		n.Logger.Warn().Err(err).Str("prefix", prefix).Msg("invoice_sequence_unavailable")
	}
	obs.ObserveInvoiceNumber("random")
	return format(prefix, at, n.random(1000)), nil
}

func (n Numberer) random(max int) int {
	if n.Rand != nil {
		return n.Rand(max)
	}
	return rand.Intn(max)
}

func format(prefix string, at time.Time, seq int) string {
	return fmt.Sprintf("%s-%04d-%02d-%03d", prefix, at.Year(), int(at.Month()), seq)
}
