package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-invoice/internal/app"
	"github.com/noah-isme/backend-invoice/internal/cache"
	"github.com/noah-isme/backend-invoice/internal/common"
	"github.com/noah-isme/backend-invoice/internal/config"
	"github.com/noah-isme/backend-invoice/internal/country"
	"github.com/noah-isme/backend-invoice/internal/currency"
	"github.com/noah-isme/backend-invoice/internal/export"
	"github.com/noah-isme/backend-invoice/internal/health"
	"github.com/noah-isme/backend-invoice/internal/invoice"
	"github.com/noah-isme/backend-invoice/internal/lock"
	"github.com/noah-isme/backend-invoice/internal/obs"
	"github.com/noah-isme/backend-invoice/internal/ratelimit"
	"github.com/noah-isme/backend-invoice/internal/security"
)

func main() {
	cfg := config.MustLoad()

	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().Str("env", cfg.AppEnv).Logger()
	obs.MustRegisterDomainMetrics(cfg.Obs.Namespace, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracingEnabled := cfg.Obs.TracingEnabled
	if tracingEnabled {
		shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName:   cfg.Obs.ServiceName,
			Endpoint:      cfg.Obs.TracingEndpoint,
			Exporter:      cfg.Obs.TracingExporter,
			SamplingRatio: cfg.Obs.SamplingRatio,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	deps, err := app.Open(ctx, cfg, logger, app.Options{
		Component:     "api",
		RedisMetrics:  cfg.Obs.MetricsEnabled,
		RunMigrations: cfg.MigrateOnStart,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("open dependencies")
	}
	defer deps.Close()

	locker := lock.Locker{R: deps.Redis}
	numberer := country.Numberer{R: deps.Redis, Logger: logger}

	invoiceSvc := &invoice.Service{
		Store:    deps.InvoiceStore(cfg),
		Locker:   locker,
		Numberer: numberer,
		LockTTL:  cfg.LockTTL,
		Logger:   logger,
	}
	invoiceHandler := invoice.NewHandler(invoice.HandlerConfig{Service: invoiceSvc, Logger: logger})

	fxClient := app.Outbound("exchangerate-api", 0, logger)
	fxSvc := &currency.Service{
		Cache:  cache.NewJSON(deps.Redis, cfg.FX.CacheTTL),
		Logger: logger,
	}
	if cfg.FX.APIKey != "" {
		fxSvc.Provider = currency.ExchangeRateAPI{BaseURL: cfg.FX.BaseURL, Key: cfg.FX.APIKey, Client: fxClient}
	} else {
		logger.Warn().Msg("FX_API_KEY not set, serving cached and static rates only")
	}
	fxHandler := &currency.Handler{Service: fxSvc}

	geoClient := app.Outbound("ipapi", cfg.Geo.Timeout, logger)
	countryHandler := &country.Handler{
		Locator: country.IPAPI{BaseURL: cfg.Geo.BaseURL, Client: geoClient},
		Logger:  logger,
	}

	onLimitError := func(err error) { logger.Warn().Err(err).Msg("ratelimit_unavailable") }
	exportLimit := ratelimit.Handler{
		Limiter: ratelimit.SlidingWindow{Client: deps.Redis, Prefix: "invoice:rl:export:"},
		Config:  ratelimit.Config{Key: ratelimit.ByRouteAndIP, Window: time.Minute, Max: cfg.HTTP.ExportPerMinute},
		OnError: onLimitError,
	}
	exportHandler := &export.Handler{
		Reader:     invoiceSvc,
		Premium:    cfg.Export.Premium,
		Logger:     logger,
		Middleware: []func(http.Handler) http.Handler{exportLimit.Middleware, security.DocumentPolicy},
	}

	apiLimit := ratelimit.NewFixed(deps.LimiterStore, cfg.HTTP.RateLimitPerMinute)
	apiLimit.OnError = onLimitError
	idem := common.Idem{R: deps.Redis, TTL: cfg.IdempotencyTTL, Prefix: cache.PrefixIdempotency}

	var httpMetrics *obs.HTTPMetrics
	if cfg.Obs.MetricsEnabled {
		httpMetrics = obs.NewHTTPMetrics(cfg.Obs.Namespace, obs.ParseBucketsCSV(cfg.Obs.Buckets), nil)
	}

	r := chi.NewRouter()
	r.Use(obs.RequestInfoMiddleware)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: cfg.HTTP.SecurityHeaders, EnableHSTS: cfg.HTTP.HSTS}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Idempotency-Key", "If-None-Match", "X-Request-ID"},
		ExposedHeaders: []string{"ETag", "Content-Disposition", "X-Total-Count", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:         300,
	}))

	if cfg.Obs.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if cfg.Obs.PprofEnabled {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		if user == "" && cfg.IsProduction() {
			logger.Warn().Msg("pprof disabled: production requires SECURE_PPROF_BASIC_AUTH_USER")
		} else {
			r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
		}
	}

	healthHandler := health.Handler{
		Checker:   deps,
		Upstreams: []health.Upstream{fxClient.Breaker, geoClient.Breaker},
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(apiLimit.Middleware)
		v.Use(security.BodyLimit{Max: cfg.HTTP.BodyLimitBytes}.Middleware)
		v.Use(idempotentPosts(idem))

		invoiceHandler.Routes(v, exportHandler.Mount)
		v.Get("/themes", exportHandler.Themes)
		fxHandler.Routes(v)
		countryHandler.Routes(v)
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("store", cfg.Store).Msg("server starting")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	case <-ctx.Done():
		shutdownServer(srv, logger)
	}
}

// shutdownServer stops taking traffic, drains in-flight requests and returns.
func shutdownServer(srv *http.Server, logger zerolog.Logger) {
	logger.Info().Msg("shutting down")
	health.SetReady(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
}

func idempotentPosts(idem common.Idem) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		guarded := idem.Middleware(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				guarded.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		if trimmed := strings.TrimSpace(val); trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
