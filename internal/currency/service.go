package currency

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	xcurrency "golang.org/x/text/currency"

	"github.com/noah-isme/backend-invoice/internal/cache"
	"github.com/noah-isme/backend-invoice/internal/obs"
)

// Source tells where a rate table came from.
type Source string

const (
	SourceCache    Source = "cache"
	SourceLive     Source = "live"
	SourceStale    Source = "stale"
	SourceStatic   Source = "static"
	SourceIdentity Source = "identity"
)

// Result is a rate table for one base currency.
type Result struct {
	Base      string             `json:"base"`
	Rates     map[string]float64 `json:"rates"`
	Source    Source             `json:"source"`
	FetchedAt time.Time          `json:"fetchedAt"`
}

// Conversion is the outcome of Convert.
type Conversion struct {
	Amount    float64 `json:"amount"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	Rate      float64 `json:"rate"`
	Converted float64 `json:"converted"`
	Source    Source  `json:"source"`
}

var staticRates = map[string]map[string]float64{
	"USD": {"INR": 83.12, "EUR": 0.85, "GBP": 0.73, "JPY": 110.0, "CNY": 6.45},
	"INR": {"USD": 0.012, "EUR": 0.010, "GBP": 0.009, "JPY": 1.32, "CNY": 0.078},
	"EUR": {"USD": 1.18, "INR": 98.5, "GBP": 0.86, "JPY": 129.5, "CNY": 7.6},
}

// Service resolves rate tables. Lookups try the fresh cache, then the
// provider, then the last good table, then the static table.
type Service struct {
	Provider Provider
	Cache    *cache.JSON
	Logger   zerolog.Logger
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Normalize upper-cases code and checks it is an ISO 4217 currency.
func Normalize(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if _, err := xcurrency.ParseISO(code); err != nil {
		return "", &Error{Kind: KindUnknownCurrency, Op: "normalize", Err: err}
	}
	return code, nil
}

// Rates returns the rate table for base.
func (s *Service) Rates(ctx context.Context, base string) (Result, error) {
	base, err := Normalize(base)
	if err != nil {
		return Result{}, err
	}

	var cached Result
	if hit, err := s.Cache.Get(ctx, cache.KeyFXRates(base), &cached); err != nil {
		s.Logger.Warn().Err(err).Str("base", base).Msg("fx_cache_read_failed")
	} else if hit {
		cached.Source = SourceCache
		return s.done(cached), nil
	}

	live, liveErr := s.Refresh(ctx, base)
	if liveErr == nil {
		return s.done(live), nil
	}
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}
	s.Logger.Warn().Err(liveErr).Str("base", base).Msg("fx_live_fetch_failed")

	var stale Result
	if hit, err := s.Cache.Get(ctx, cache.KeyFXStale(base), &stale); err == nil && hit {
		stale.Source = SourceStale
		return s.done(stale), nil
	}
	if table, ok := staticRates[base]; ok {
		rates := make(map[string]float64, len(table)+1)
		for k, v := range table {
			rates[k] = v
		}
		rates[base] = 1
		return s.done(Result{Base: base, Rates: rates, Source: SourceStatic, FetchedAt: s.now()}), nil
	}
	return Result{}, &Error{Kind: KindUnavailable, Op: "rates", Err: liveErr}
}

// Refresh fetches base from the provider and stores it as both the fresh
// and the stale copy.
func (s *Service) Refresh(ctx context.Context, base string) (Result, error) {
	if s.Provider == nil {
		return Result{}, &Error{Kind: KindUnavailable, Op: "refresh", Err: errors.New("provider not configured")}
	}
	rates, err := s.Provider.Latest(ctx, base)
	if err != nil {
		return Result{}, err
	}
	res := Result{Base: base, Rates: rates, Source: SourceLive, FetchedAt: s.now()}
	if err := s.Cache.Set(ctx, cache.KeyFXRates(base), res); err != nil {
		s.Logger.Warn().Err(err).Str("base", base).Msg("fx_cache_write_failed")
	}
	if err := s.Cache.SetTTL(ctx, cache.KeyFXStale(base), res, 0); err != nil {
		s.Logger.Warn().Err(err).Str("base", base).Msg("fx_stale_write_failed")
	}
	return res, nil
}

// Rate returns the multiplier from one currency to another.
func (s *Service) Rate(ctx context.Context, from, to string) (float64, Source, error) {
	from, err := Normalize(from)
	if err != nil {
		return 0, "", err
	}
	to, err = Normalize(to)
	if err != nil {
		return 0, "", err
	}
	if from == to {
		return 1, SourceIdentity, nil
	}
	res, err := s.Rates(ctx, from)
	if err != nil {
		return 0, "", err
	}
	rate, ok := res.Rates[to]
	if !ok || rate == 0 {
		return 0, "", &Error{Kind: KindUnknownCurrency, Op: "rate", Err: errors.New("no rate from " + from + " to " + to)}
	}
	return rate, res.Source, nil
}

// Convert multiplies amount by the from->to rate.
func (s *Service) Convert(ctx context.Context, amount float64, from, to string) (Conversion, error) {
	rate, source, err := s.Rate(ctx, from, to)
	if err != nil {
		return Conversion{}, err
	}
	return Conversion{
		Amount:    amount,
		From:      strings.ToUpper(strings.TrimSpace(from)),
		To:        strings.ToUpper(strings.TrimSpace(to)),
		Rate:      rate,
		Converted: amount * rate,
		Source:    source,
	}, nil
}

func (s *Service) done(res Result) Result {
	obs.ObserveFX(res.Base, string(res.Source))
	s.Logger.Debug().Str("base", res.Base).Str("source", string(res.Source)).Msg("fx_rates_resolved")
	return res
}
