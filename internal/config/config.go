package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string

	DefaultPage  int
	DefaultLimit int
	MaxLimit     int

	UniversityCacheTTL time.Duration
	IdempotencyTTL     time.Duration

	MediaBaseURL      string
	MediaAPIKey       string
	MediaTimeout      time.Duration
	MediaMaxBytes     int64
	MediaPurgeEnabled bool

	CurrencyCode string

	RateLimitWindow time.Duration
	RateLimitMax    int
	UploadRateLimit string

	WorkerConcurrency int

	MigrateOnStart bool
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
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		DefaultPage:        parseInt(k.String("LIST_DEFAULT_PAGE"), 1),
		DefaultLimit:       parseInt(k.String("LIST_DEFAULT_LIMIT"), 20),
		MaxLimit:           parseInt(k.String("LIST_MAX_LIMIT"), 100),
		UniversityCacheTTL: parseDuration(k.String("UNIVERSITY_CACHE_TTL"), "5m"),
		IdempotencyTTL:     parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		MediaBaseURL:       k.String("MEDIA_BASE_URL"),
		MediaAPIKey:        k.String("MEDIA_API_KEY"),
		MediaTimeout:       parseDuration(k.String("MEDIA_TIMEOUT"), "10s"),
		MediaMaxBytes:      parseInt64(k.String("MEDIA_MAX_BYTES"), 5<<20),
		MediaPurgeEnabled:  parseBool(k.String("MEDIA_PURGE_ENABLED"), true),
		CurrencyCode:       valueOrDefault(k.String("CURRENCY_CODE"), "USD"),
		RateLimitWindow:    parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		RateLimitMax:       parseInt(k.String("RATE_LIMIT_MAX"), 120),
		UploadRateLimit:    valueOrDefault(k.String("UPLOAD_RATE_LIMIT"), "30-M"),
		WorkerConcurrency:  parseInt(k.String("WORKER_CONCURRENCY"), 5),
		MigrateOnStart:     parseBool(k.String("MIGRATE_ON_START"), true),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.DefaultLimit > cfg.MaxLimit {
		cfg.DefaultLimit = cfg.MaxLimit
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

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}

func parseDuration(value, fallback string) time.Duration {
	if strings.TrimSpace(value) == "" {
		value = fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func parseInt64(value string, fallback int64) int64 {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
