package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/univbase/backend-univ/internal/admission"
	"github.com/univbase/backend-univ/internal/aid"
	"github.com/univbase/backend-univ/internal/app"
	"github.com/univbase/backend-univ/internal/common"
	"github.com/univbase/backend-univ/internal/config"
	"github.com/univbase/backend-univ/internal/db"
	"github.com/univbase/backend-univ/internal/events"
	"github.com/univbase/backend-univ/internal/fees"
	"github.com/univbase/backend-univ/internal/health"
	"github.com/univbase/backend-univ/internal/media"
	"github.com/univbase/backend-univ/internal/obs"
	"github.com/univbase/backend-univ/internal/program"
	"github.com/univbase/backend-univ/internal/ratelimit"
	"github.com/univbase/backend-univ/internal/security"
	"github.com/univbase/backend-univ/internal/tuition"
	"github.com/univbase/backend-univ/internal/university"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName:   "univ-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			SamplingRatio: 1.0,
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

	if cfg.MigrateOnStart {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
		logger.Info().Msg("migrations applied")
	}

	pool := mustInitDatabase(ctx, cfg, logger)
	defer pool.Close()

	redisClient := mustInitRedis(ctx, cfg, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	validate := app.NewValidator()

	bus := &events.Bus{
		Store:     events.NewPgStore(pool),
		Notifiers: []events.Notifier{events.LogNotifier{Logger: logger}},
	}

	var provider media.Provider
	if strings.TrimSpace(cfg.MediaBaseURL) == "" {
		logger.Warn().Msg("MEDIA_BASE_URL not set, using in-memory media provider")
		provider = &media.Mock{}
	} else {
		provider = media.NewHTTPProvider(cfg.MediaBaseURL, cfg.MediaAPIKey, cfg.MediaTimeout)
	}

	var purger media.Purger
	if cfg.MediaPurgeEnabled {
		taskClient, err := app.NewTaskClient(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("initialise task client")
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close task client")
			}
		}()
		purger = taskClient
	}

	uploadLimiter, err := app.NewUploadLimiter(redisClient, cfg.UploadRateLimit)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise upload limiter")
	}

	universityHandler := &university.Handler{
		Service: &university.Service{
			Store:    university.NewStore(pool),
			Cache:    university.NewCache(redisClient, cfg.UniversityCacheTTL),
			Validate: validate,
			Bus:      bus,
			Media:    provider,
			Purger:   purger,
		},
		DefaultLimit:  cfg.DefaultLimit,
		MaxLimit:      cfg.MaxLimit,
		UploadLimiter: uploadLimiter,
	}
	programHandler := &program.Handler{
		Service:      &program.Service{Store: program.NewStore(pool), Validate: validate},
		DefaultLimit: cfg.DefaultLimit,
		MaxLimit:     cfg.MaxLimit,
	}
	admissionHandler := &admission.Handler{
		Service:      &admission.Service{Store: admission.NewStore(pool), Validate: validate},
		DefaultLimit: cfg.DefaultLimit,
		MaxLimit:     cfg.MaxLimit,
	}
	tuitionHandler := &tuition.Handler{
		Service: &tuition.Service{
			Store:           tuition.NewStore(pool),
			Validate:        validate,
			Bus:             bus,
			DefaultCurrency: cfg.CurrencyCode,
		},
		DefaultLimit: cfg.DefaultLimit,
		MaxLimit:     cfg.MaxLimit,
	}
	feesHandler := &fees.Handler{
		Service: &fees.Service{
			Store:           fees.NewStore(pool),
			Validate:        validate,
			Bus:             bus,
			DefaultCurrency: cfg.CurrencyCode,
		},
		DefaultLimit: cfg.DefaultLimit,
		MaxLimit:     cfg.MaxLimit,
	}
	aidHandler := &aid.Handler{
		Service:      &aid.Service{Store: aid.NewStore(pool), Validate: validate, Bus: bus},
		DefaultLimit: cfg.DefaultLimit,
		MaxLimit:     cfg.MaxLimit,
	}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}
	limit := ratelimit.Handler{
		Limiter: ratelimit.SlidingWindow{Client: redisClient, Prefix: "univ:ratelimit:"},
		Policy: ratelimit.Policy{
			KeyFor: common.ClientIP,
			Window: cfg.RateLimitWindow,
			Max:    cfg.RateLimitMax,
		},
		OnError: func(err error) {
			logger.Error().Err(err).Msg("rate limiter")
		},
	}

	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics("univ", buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: true}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.MediaMaxBytes + 1<<20}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", cfg.AppEnv != "production") {
		r.Mount("/debug", middleware.Profiler())
	}

	healthHandler := health.Handler{
		Checker:      readinessChecker{db: pool, redis: redisClient},
		DBTimeout:    500 * time.Millisecond,
		RedisTimeout: 300 * time.Millisecond,
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(limit.Middleware)
		v.Use(idem.Middleware)
		v.Route("/universities", func(r chi.Router) {
			universityHandler.Routes(r, func(r chi.Router) {
				r.Route("/programs", programHandler.Routes)
				r.Route("/admissions", admissionHandler.Routes)
				r.Route("/tuition", tuitionHandler.Routes)
				r.Route("/fees", feesHandler.Routes)
				r.Route("/scholarships", aidHandler.ScholarshipRoutes)
				r.Route("/financial-aid", aidHandler.AidRoutes)
			})
		})
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown server")
		}
		logger.Info().Msg("server shutdown complete")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}
}

func mustInitDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *pgxpool.Pool {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "univ-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
}

func mustInitRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *redis.Client {
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisotel.InstrumentMetrics(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis metrics")
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return redisClient
}

type readinessChecker struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func (c readinessChecker) PingDB(ctx context.Context, timeout time.Duration) error {
	if c.db == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.Ping(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}
