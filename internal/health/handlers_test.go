package health_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-invoice/internal/health"
)

type stubChecker struct {
	dbErr    error
	redisErr error
}

func (s stubChecker) PingDB(context.Context, time.Duration) error    { return s.dbErr }
func (s stubChecker) PingRedis(context.Context, time.Duration) error { return s.redisErr }

type stubUpstream struct{ target, state string }

func (s stubUpstream) Target() string    { return s.target }
func (s stubUpstream) StateName() string { return s.state }

func TestLive(t *testing.T) {
	rr := httptest.NewRecorder()
	health.Handler{}.Live(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", rr.Body.String())
}

func TestReady(t *testing.T) {
	cases := []struct {
		name    string
		checker stubChecker
		code    int
		db      string
		redis   string
	}{
		{"all up", stubChecker{}, http.StatusOK, "ok", "ok"},
		{"db down", stubChecker{dbErr: errors.New("db down")}, http.StatusServiceUnavailable, "db down", "ok"},
		{"redis down", stubChecker{redisErr: errors.New("dial tcp: refused")}, http.StatusServiceUnavailable, "ok", "dial tcp: refused"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := health.Handler{Checker: tc.checker, DBTimeout: 10 * time.Millisecond, RedisTimeout: 10 * time.Millisecond}
			code, body := readyStatus(t, h)
			require.Equal(t, tc.code, code)
			require.Equal(t, tc.db, body["db"])
			require.Equal(t, tc.redis, body["redis"])
		})
	}
}

func TestReadyOpenUpstreamDoesNotFail(t *testing.T) {
	h := health.Handler{
		Checker:   stubChecker{},
		Upstreams: []health.Upstream{stubUpstream{target: "exchange_rates", state: "open"}},
	}
	code, body := readyStatus(t, h)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "open", body["upstream_exchange_rates"])
}
