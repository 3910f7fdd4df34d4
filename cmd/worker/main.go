package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/univbase/backend-univ/internal/app"
	"github.com/univbase/backend-univ/internal/config"
	"github.com/univbase/backend-univ/internal/media"
	"github.com/univbase/backend-univ/internal/obs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var provider media.Provider
	if strings.TrimSpace(cfg.MediaBaseURL) == "" {
		logger.Warn().Msg("MEDIA_BASE_URL not set, using in-memory media provider")
		provider = &media.Mock{}
	} else {
		provider = media.NewHTTPProvider(cfg.MediaBaseURL, cfg.MediaAPIKey, cfg.MediaTimeout)
	}

	srv, err := app.NewTaskServer(cfg.RedisURL, cfg.WorkerConcurrency)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise task server")
	}

	mux := asynq.NewServeMux()
	mux.Handle(media.TypePurge, media.PurgeHandler{Provider: provider, Logger: logger})

	go func() {
		<-ctx.Done()
		logger.Info().Msg("worker stopping")
		srv.Shutdown()
	}()

	logger.Info().Msg("worker starting")
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker stopped with error")
	}
	logger.Info().Msg("worker shutdown complete")
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
