package resilience_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/univbase/backend-univ/internal/resilience"
)

// Walks the breaker guarding the image host through a full
// closed -> open -> half-open -> closed cycle and checks every metric
// the dashboards alert on.
func TestBreakerMetricsFollowLifecycle(t *testing.T) {
	resilience.BreakerState.Reset()
	resilience.BreakerTransitions.Reset()
	resilience.BreakerOpenedTotal.Reset()

	breaker := resilience.NewBreaker(1, 0.5, 20*time.Millisecond).WithTarget("media-host")
	ctx := context.Background()

	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)

	state := testutil.ToFloat64(resilience.BreakerState.WithLabelValues("media-host"))
	require.Equal(t, 1.0, state, "gauge should read open")

	require.Eventually(t, func() bool {
		return breaker.Allow(ctx)
	}, 100*time.Millisecond, 5*time.Millisecond)

	state = testutil.ToFloat64(resilience.BreakerState.WithLabelValues("media-host"))
	require.Equal(t, 2.0, state, "gauge should read half-open")

	breaker.Report(ctx, true)

	state = testutil.ToFloat64(resilience.BreakerState.WithLabelValues("media-host"))
	require.Equal(t, 0.0, state, "gauge should read closed")

	require.Equal(t, 1.0, testutil.ToFloat64(resilience.BreakerOpenedTotal.WithLabelValues("media-host")))
	require.Equal(t, 1.0, testutil.ToFloat64(resilience.BreakerTransitions.WithLabelValues("media-host", "closed", "open")))
	require.Equal(t, 1.0, testutil.ToFloat64(resilience.BreakerTransitions.WithLabelValues("media-host", "open", "half_open")))
	require.Equal(t, 1.0, testutil.ToFloat64(resilience.BreakerTransitions.WithLabelValues("media-host", "half_open", "closed")))
}
