package media

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/univbase/backend-univ/internal/obs"
)

// TypePurge identifies the deferred asset purge task.
const TypePurge = "media:purge"

// PurgePayload carries the asset URL scheduled for deletion from the host.
type PurgePayload struct {
	URL string `json:"url"`
}

// NewPurgeTask builds an asynq task that removes a hosted asset after the
// owning record is gone. Retries are left to asynq's backoff.
func NewPurgeTask(assetURL string) (*asynq.Task, error) {
	payload, err := json.Marshal(PurgePayload{URL: assetURL})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePurge, payload,
		asynq.MaxRetry(5),
		asynq.Timeout(time.Minute),
	), nil
}

// Purger schedules purge tasks; satisfied by *asynq.Client.
type Purger interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// SchedulePurge enqueues the purge of an asset URL. A nil purger means purges
// are disabled and the call is a no-op.
func SchedulePurge(ctx context.Context, purger Purger, assetURL string) error {
	if purger == nil || assetURL == "" {
		return nil
	}
	task, err := NewPurgeTask(assetURL)
	if err != nil {
		return err
	}
	if _, err := purger.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("media: enqueue purge: %w", err)
	}
	return nil
}

// PurgeHandler processes purge tasks against the configured provider.
type PurgeHandler struct {
	Provider Provider
	Logger   zerolog.Logger
}

// ProcessTask implements asynq.Handler.
func (h PurgeHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload PurgePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		// Malformed payloads never succeed; skip retries.
		return fmt.Errorf("media: decode purge payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := h.Provider.Delete(ctx, payload.URL); err != nil {
		obs.MediaPurgeTotal.WithLabelValues("error").Inc()
		h.Logger.Error().Err(err).Str("url", payload.URL).Msg("media purge failed")
		return err
	}
	obs.MediaPurgeTotal.WithLabelValues("ok").Inc()
	h.Logger.Info().Str("url", payload.URL).Msg("media purged")
	return nil
}
