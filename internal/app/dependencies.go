package app

import (
	"fmt"
	"net/http"

	validator "github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterstdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// NewValidator returns the shared struct validator instance.
func NewValidator() *validator.Validate {
	return validator.New()
}

// NewUploadLimiter builds a Redis-backed quota middleware for expensive
// upload endpoints. The rate uses limiter's formatted syntax, e.g. "30-M"
// for thirty requests per minute per client.
func NewUploadLimiter(rdb *redis.Client, formatted string) (func(http.Handler) http.Handler, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("parse upload rate %q: %w", formatted, err)
	}
	store, err := limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: "univ:uploadlimit"})
	if err != nil {
		return nil, fmt.Errorf("init upload limiter store: %w", err)
	}
	mw := limiterstdlib.NewMiddleware(limiter.New(store, rate))
	return mw.Handler, nil
}

// NewTaskClient constructs an asynq client for enqueueing background tasks.
func NewTaskClient(redisURL string) (*asynq.Client, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis uri: %w", err)
	}
	return asynq.NewClient(opt), nil
}

// NewTaskServer constructs an asynq server for processing background tasks.
func NewTaskServer(redisURL string, concurrency int) (*asynq.Server, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis uri: %w", err)
	}
	if concurrency <= 0 {
		concurrency = 5
	}
	return asynq.NewServer(opt, asynq.Config{Concurrency: concurrency}), nil
}
