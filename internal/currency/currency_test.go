package currency

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-invoice/internal/cache"
	"github.com/noah-isme/backend-invoice/internal/resilience"
)

type stubProvider struct {
	calls int32
	rates map[string]float64
	err   error
}

func (s *stubProvider) Latest(context.Context, string) (map[string]float64, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.err != nil {
		return nil, s.err
	}
	return s.rates, nil
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRatesCachesLiveAnswer(t *testing.T) {
	mr, client := newRedis(t)
	provider := &stubProvider{rates: map[string]float64{"USD": 1, "INR": 84}}
	svc := &Service{Provider: provider, Cache: cache.NewJSON(client, time.Hour)}
	ctx := context.Background()

	res, err := svc.Rates(ctx, "usd")
	require.NoError(t, err)
	require.Equal(t, SourceLive, res.Source)
	require.Equal(t, 84.0, res.Rates["INR"])

	res, err = svc.Rates(ctx, "USD")
	require.NoError(t, err)
	require.Equal(t, SourceCache, res.Source)
	require.EqualValues(t, 1, provider.calls)

	mr.FastForward(2 * time.Hour)
	require.False(t, mr.Exists(cache.KeyFXRates("USD")))
	require.True(t, mr.Exists(cache.KeyFXStale("USD")))
}

func TestRatesFallsBackToStaleThenStatic(t *testing.T) {
	mr, client := newRedis(t)
	provider := &stubProvider{rates: map[string]float64{"GBP": 0.8}}
	svc := &Service{Provider: provider, Cache: cache.NewJSON(client, time.Hour)}
	ctx := context.Background()

	_, err := svc.Rates(ctx, "SGD")
	require.NoError(t, err)
	mr.FastForward(2 * time.Hour)

	provider.err = errors.New("boom")
	res, err := svc.Rates(ctx, "SGD")
	require.NoError(t, err)
	require.Equal(t, SourceStale, res.Source)
	require.Equal(t, 0.8, res.Rates["GBP"])

	res, err = svc.Rates(ctx, "INR")
	require.NoError(t, err)
	require.Equal(t, SourceStatic, res.Source)
	require.Equal(t, 0.012, res.Rates["USD"])

	_, err = svc.Rates(ctx, "JPY")
	require.True(t, IsKind(err, KindUnavailable), "got %v", err)
}

func TestRatesWithoutRedisOrProvider(t *testing.T) {
	svc := &Service{}
	res, err := svc.Rates(context.Background(), "EUR")
	require.NoError(t, err)
	require.Equal(t, SourceStatic, res.Source)
	require.Equal(t, 98.5, res.Rates["INR"])
	require.Equal(t, 1.0, res.Rates["EUR"])

	_, err = svc.Rates(context.Background(), "ZZZ")
	require.True(t, IsKind(err, KindUnknownCurrency))
}

func TestConvert(t *testing.T) {
	svc := &Service{Provider: &stubProvider{rates: map[string]float64{"INR": 83}}}
	ctx := context.Background()

	same, err := svc.Convert(ctx, 12.5, "usd", "USD")
	require.NoError(t, err)
	require.Equal(t, 12.5, same.Converted)
	require.Equal(t, SourceIdentity, same.Source)

	conv, err := svc.Convert(ctx, 10, "USD", "INR")
	require.NoError(t, err)
	require.Equal(t, 830.0, conv.Converted)
	require.Equal(t, SourceLive, conv.Source)

	_, err = svc.Convert(ctx, 10, "USD", "EUR")
	require.True(t, IsKind(err, KindUnknownCurrency))
}

func TestExchangeRateAPI(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if r.URL.Path == "/v6/key/latest/XXX" {
			_ = json.NewEncoder(w).Encode(map[string]any{"result": "error", "error-type": "unsupported-code"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result":           "success",
			"conversion_rates": map[string]float64{"USD": 1, "EUR": 0.9},
		})
	}))
	t.Cleanup(srv.Close)

	api := ExchangeRateAPI{BaseURL: srv.URL, Key: "key", Client: resilience.HTTPClient{Client: srv.Client()}}
	rates, err := api.Latest(context.Background(), "usd")
	require.NoError(t, err)
	require.Equal(t, "/v6/key/latest/USD", path)
	require.Equal(t, 0.9, rates["EUR"])

	_, err = api.Latest(context.Background(), "XXX")
	require.True(t, IsKind(err, KindUpstream))
	require.Contains(t, err.Error(), "unsupported-code")
}

func TestFormat(t *testing.T) {
	require.Equal(t, "₹1,234.50", Format(1234.5, "INR"))
	require.Equal(t, "-$10.00", Format(-10, "usd"))
	require.Equal(t, "BRL5.00", Format(5, "BRL"))
	require.Equal(t, "$0.00", Format(-0.001, "USD"))
	require.Equal(t, "-$0.01", Format(-0.005, "USD"))
	require.Equal(t, "USD 0.00", FormatCode(-0.004, "usd"))
	require.Equal(t, "-EUR 1,234.57", FormatCode(-1234.565, "EUR"))
	require.Equal(t, "kr", Symbol("NOK"))
}

func TestHandlers(t *testing.T) {
	h := &Handler{Service: &Service{}}
	r := chi.NewRouter()
	h.Routes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fx/convert?amount=2&from=EUR&to=USD", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data      Conversion `json:"data"`
		Formatted string     `json:"formatted"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 2.36, body.Data.Converted)
	require.Equal(t, "$2.36", body.Formatted)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fx/convert?amount=abc&from=EUR&to=USD", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fx/rates?base=CHF", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
