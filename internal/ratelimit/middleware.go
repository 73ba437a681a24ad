// Package ratelimit guards HTTP routes with two limiters: a Redis sliding
// window for expensive routes and ulule/limiter fixed windows for the API.
package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-invoice/internal/common"
)

// Allower is satisfied by SlidingWindow.
type Allower interface {
	Allow(ctx context.Context, key string, window time.Duration, max int) (Decision, error)
}

// Config describes how to derive a rate limit key and thresholds.
type Config struct {
	Key    func(*http.Request) string
	Window time.Duration
	Max    int
}

// ByClientIP keys requests by caller address.
func ByClientIP(r *http.Request) string {
	return common.ClientIP(r)
}

// ByRouteAndIP keys requests by matched chi route pattern and caller address.
func ByRouteAndIP(r *http.Request) string {
	pattern := r.URL.Path
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			pattern = p
		}
	}
	return pattern + "|" + common.ClientIP(r)
}

// Handler enforces rate limits before delegating to the next handler.
// Limiter failures let the request through.
type Handler struct {
	Limiter Allower
	Config  Config
	OnError func(error)
}

// Middleware implements the http.Handler middleware interface.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Limiter == nil || h.Config.Key == nil {
			next.ServeHTTP(w, r)
			return
		}
		d, err := h.Limiter.Allow(r.Context(), h.Config.Key(r), h.Config.Window, h.Config.Max)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}
		writeHeaders(w, int64(d.Limit), int64(d.Remaining), d.ResetAt)
		if !d.Allowed {
			reject(w, d.ResetAt)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeHeaders(w http.ResponseWriter, limit, remaining int64, reset time.Time) {
	if limit < 0 {
		limit = 0
	}
	headers := w.Header()
	headers.Set("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
	headers.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
	headers.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
}

func reject(w http.ResponseWriter, reset time.Time) {
	retryAfter := int(time.Until(reset).Seconds())
	if retryAfter < 0 {
		retryAfter = 0
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	common.JSONError(w, http.StatusTooManyRequests, common.CodeRateLimited, "rate limit exceeded", nil)
}
