package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	Store              string
	MigrateOnStart     bool
	CORSAllowedOrigins []string

	InvoiceCacheTTL time.Duration
	LockTTL         time.Duration
	IdempotencyTTL  time.Duration

	FX     FXConfig
	Geo    GeoConfig
	Export ExportConfig
	HTTP   HTTPConfig
	Obs    ObsConfig
}

// FXConfig configures the exchange-rate collaborator and its warmer.
type FXConfig struct {
	APIKey       string
	BaseURL      string
	CacheTTL     time.Duration
	WarmBases    []string
	WarmInterval time.Duration
}

// GeoConfig configures IP based country detection.
type GeoConfig struct {
	BaseURL string
	Timeout time.Duration
}

// ExportConfig configures document rendering.
type ExportConfig struct {
	Premium bool
}

// HTTPConfig groups request guards.
type HTTPConfig struct {
	RateLimitPerMinute int
	ExportPerMinute    int
	BodyLimitBytes     int64
	SecurityHeaders    bool
	HSTS               bool
}

// ObsConfig configures logging, metrics and tracing.
type ObsConfig struct {
	LogFormat       string
	LogLevel        string
	MetricsEnabled  bool
	Namespace       string
	Buckets         string
	TracingEnabled  bool
	TracingExporter string
	TracingEndpoint string
	SamplingRatio   float64
	ServiceName     string
	PprofEnabled    bool
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		Store:              strings.ToLower(valueOrDefault(k.String("STORE"), StorePostgres)),
		MigrateOnStart:     parseBool(k.String("MIGRATE_ON_START")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		InvoiceCacheTTL:    parseDuration(k.String("INVOICE_CACHE_TTL"), "10m"),
		LockTTL:            parseDuration(k.String("LOCK_TTL"), "5s"),
		IdempotencyTTL:     parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		FX: FXConfig{
			APIKey:       strings.TrimSpace(k.String("FX_API_KEY")),
			BaseURL:      valueOrDefault(k.String("FX_BASE_URL"), "https://v6.exchangerate-api.com"),
			CacheTTL:     parseDuration(k.String("FX_CACHE_TTL"), "1h"),
			WarmBases:    upper(splitAndTrim(valueOrDefault(k.String("FX_WARM_BASES"), "USD,INR,EUR"))),
			WarmInterval: parseDuration(k.String("FX_WARM_INTERVAL"), "30m"),
		},
		Geo: GeoConfig{
			BaseURL: valueOrDefault(k.String("GEO_BASE_URL"), "https://ipapi.co"),
			Timeout: parseDuration(k.String("GEO_TIMEOUT"), "5s"),
		},
		Export: ExportConfig{
			Premium: parseBool(k.String("EXPORT_PREMIUM")),
		},
		HTTP: HTTPConfig{
			RateLimitPerMinute: parseInt(k.String("RATE_LIMIT_PER_MINUTE"), 120),
			ExportPerMinute:    parseInt(k.String("EXPORT_RATE_LIMIT_PER_MINUTE"), 20),
			BodyLimitBytes:     int64(parseInt(k.String("BODY_LIMIT_BYTES"), 1<<20)),
			SecurityHeaders:    parseBoolDefault(k.String("SECURITY_HEADERS"), true),
			HSTS:               parseBool(k.String("SECURITY_HSTS")),
		},
		Obs: ObsConfig{
			LogFormat:       valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
			LogLevel:        valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
			MetricsEnabled:  parseBoolDefault(k.String("OBS_METRICS_ENABLED"), true),
			Namespace:       valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "invoice"),
			Buckets:         k.String("OBS_METRICS_BUCKETS"),
			TracingEnabled:  parseBool(k.String("OBS_TRACING_ENABLED")),
			TracingExporter: valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp"),
			TracingEndpoint: k.String("OBS_TRACING_ENDPOINT"),
			SamplingRatio:   parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1),
			ServiceName:     valueOrDefault(k.String("OBS_SERVICE_NAME"), "invoice-api"),
			PprofEnabled:    parseBool(k.String("OBS_PPROF_ENABLED")),
		},
	}

	switch cfg.Store {
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required")
		}
	case StoreMemory:
	default:
		return nil, fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, cfg.Store)
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// IsProduction reports whether APP_ENV selects production behavior.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func upper(values []string) []string {
	for i, v := range values {
		values[i] = strings.ToUpper(v)
	}
	return values
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func parseFloat(value string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return v
}

func parseBool(value string) bool {
	return parseBoolDefault(value, false)
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
