package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/noah-isme/backend-invoice/internal/app"
	"github.com/noah-isme/backend-invoice/internal/cache"
	"github.com/noah-isme/backend-invoice/internal/config"
	"github.com/noah-isme/backend-invoice/internal/currency"
	"github.com/noah-isme/backend-invoice/internal/lock"
	"github.com/noah-isme/backend-invoice/internal/obs"
)

func main() {
	cfg := config.MustLoad()

	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().Str("component", "worker").Logger()
	obs.MustRegisterDomainMetrics(cfg.Obs.Namespace, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Obs.TracingEnabled {
		shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName:   cfg.Obs.ServiceName + "-worker",
			Endpoint:      cfg.Obs.TracingEndpoint,
			Exporter:      cfg.Obs.TracingExporter,
			SamplingRatio: cfg.Obs.SamplingRatio,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	// The warmer only needs Redis; skip the pool regardless of STORE.
	workerCfg := *cfg
	workerCfg.Store = config.StoreMemory
	deps, err := app.Open(ctx, &workerCfg, logger, app.Options{Component: "worker"})
	if err != nil {
		logger.Fatal().Err(err).Msg("open dependencies")
	}
	defer deps.Close()

	if cfg.FX.APIKey == "" {
		logger.Fatal().Msg("FX_API_KEY is required for the fx warmer")
	}
	svc := &currency.Service{
		Provider: currency.ExchangeRateAPI{
			BaseURL: cfg.FX.BaseURL,
			Key:     cfg.FX.APIKey,
			Client:  app.Outbound("exchangerate-api", 0, logger),
		},
		Cache:  cache.NewJSON(deps.Redis, cfg.FX.CacheTTL),
		Logger: logger,
	}
	warmer := currency.Warmer{
		Service:  svc,
		Locker:   lock.Locker{R: deps.Redis},
		LockKey:  cache.KeyFXWarmLock,
		LockTTL:  cfg.FX.WarmInterval / 2,
		Bases:    cfg.FX.WarmBases,
		Interval: cfg.FX.WarmInterval,
		Logger:   logger,
	}

	logger.Info().Strs("bases", cfg.FX.WarmBases).Dur("interval", cfg.FX.WarmInterval).Msg("worker starting")
	if err := warmer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("worker stopped with error")
		return
	}
	logger.Info().Msg("worker shutdown complete")
}
