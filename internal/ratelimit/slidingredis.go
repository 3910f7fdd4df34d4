package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SlidingWindow counts events per key in a Redis sorted set scored by
// nanosecond timestamps, trimming entries older than the window on every
// admission check.
type SlidingWindow struct {
	Client *redis.Client
	Prefix string
}

// Verdict is the outcome of one admission check.
type Verdict struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Admit registers an event under key and reports whether it fits the
// window. A nil client or non-positive limit disables limiting entirely.
func (s SlidingWindow) Admit(ctx context.Context, key string, window time.Duration, max int) (Verdict, error) {
	resetAt := time.Now().Add(window)
	if s.Client == nil || max <= 0 || window <= 0 {
		return Verdict{Allowed: true, Remaining: max, ResetAt: resetAt}, nil
	}

	now := time.Now()
	cutoff := strconv.FormatInt(now.Add(-window).UnixNano(), 10)
	bucket := s.Prefix + key

	pipe := s.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, bucket, "-inf", cutoff)
	pipe.ZAdd(ctx, bucket, redis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	countCmd := pipe.ZCard(ctx, bucket)
	pipe.Expire(ctx, bucket, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Verdict{ResetAt: resetAt}, err
	}

	current := int(countCmd.Val())
	remaining := max - current
	if remaining < 0 {
		remaining = 0
	}
	return Verdict{Allowed: current <= max, Remaining: remaining, ResetAt: resetAt}, nil
}
