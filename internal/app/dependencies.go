// Package app assembles the shared infrastructure used by the API and the worker.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-invoice/internal/cache"
	"github.com/noah-isme/backend-invoice/internal/config"
	"github.com/noah-isme/backend-invoice/internal/db"
	"github.com/noah-isme/backend-invoice/internal/invoice"
	"github.com/noah-isme/backend-invoice/internal/obs"
	"github.com/noah-isme/backend-invoice/internal/ratelimit"
	"github.com/noah-isme/backend-invoice/internal/resilience"
)

// Dependencies enumerates the connections shared across modules.
type Dependencies struct {
	DB           *pgxpool.Pool
	Redis        *redis.Client
	LimiterStore limiter.Store
	Logger       zerolog.Logger
}

// Options tune Open.
type Options struct {
	Component      string
	RedisMetrics   bool
	RunMigrations  bool
	ConnectTimeout time.Duration
}

// Open connects Redis and, for the postgres store, the database pool.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts Options) (*Dependencies, error) {
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	deps := &Dependencies{Logger: logger}

	rdb, err := NewRedis(ctx, cfg.RedisURL, opts.RedisMetrics, logger)
	if err != nil {
		return nil, err
	}
	deps.Redis = rdb

	store, err := ratelimit.NewRedisStore(rdb)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("limiter store: %w", err)
	}
	deps.LimiterStore = store

	if cfg.Store == config.StorePostgres {
		if opts.RunMigrations {
			if err := db.Migrate(cfg.DatabaseURL); err != nil {
				deps.Close()
				return nil, err
			}
			logger.Info().Msg("migrations applied")
		}
		pool, err := NewPool(ctx, cfg.DatabaseURL, applicationName(opts.Component))
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.DB = pool
	}
	return deps, nil
}

func applicationName(component string) string {
	if component == "" {
		return "invoice-api"
	}
	return "invoice-" + component
}

// NewPool opens a pgx pool traced through obs.PGXTracer.
func NewPool(ctx context.Context, databaseURL, appName string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = appName

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// NewRedis opens a Redis client instrumented with redisotel.
func NewRedis(ctx context.Context, url string, metrics bool, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// InvoiceStore picks the configured backend and fronts it with the snapshot cache.
func (d *Dependencies) InvoiceStore(cfg *config.Config) invoice.Store {
	var next invoice.Store
	if d.DB != nil {
		next = invoice.PGStore{DB: d.DB}
	} else {
		next = invoice.NewMemoryStore()
	}
	return invoice.CachedStore{
		Next:   next,
		Cache:  cache.NewJSON(d.Redis, cfg.InvoiceCacheTTL),
		Logger: d.Logger,
	}
}

// Close releases every open connection.
func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("close redis")
		}
	}
}

// PingDB satisfies health.Checker. Memory stores have nothing to ping.
func (d *Dependencies) PingDB(ctx context.Context, timeout time.Duration) error {
	if d.DB == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.DB.Ping(ctx)
}

// PingRedis satisfies health.Checker.
func (d *Dependencies) PingRedis(ctx context.Context, timeout time.Duration) error {
	if d.Redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.Redis.Ping(ctx).Err()
}

// Outbound builds a traced, retried and breaker-guarded client for one upstream.
func Outbound(target string, timeout time.Duration, logger zerolog.Logger) resilience.HTTPClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return resilience.HTTPClient{
		Client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport, otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return target + " " + r.Method
			})),
		},
		Breaker:     resilience.NewBreaker(5, 0.5, 30*time.Second).WithTarget(target).WithLogger(logger),
		BaseBackoff: 200 * time.Millisecond,
		MaxAttempts: 3,
		Jitter:      0.2,
		Timeout:     timeout,
	}
}
