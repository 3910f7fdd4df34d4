package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

var nopLogger = zerolog.Nop()

// ErrOpenCircuit is returned when the breaker refuses a request outright.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State is the breaker's position in its lifecycle.
type State int

const (
	// Closed lets everything through while tallying outcomes.
	Closed State = iota
	// Open refuses requests until the cool-off elapses.
	Open
	// HalfOpen admits a single probe to test the dependency.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Breaker trips once the failure share of recent requests crosses a
// threshold, shielding the media host and other outbound dependencies
// from hammering while they are down.
type Breaker struct {
	mu         sync.Mutex
	state      State
	failures   int
	successes  int
	minSamples int
	tripRatio  float64
	openedAt   time.Time
	coolOff    time.Duration
	target     string
	logger     *zerolog.Logger
}

// NewBreaker constructs a breaker. It opens when at least minSamples
// outcomes are recorded and the failure share reaches tripRatio, then
// stays open for coolOff before sampling again.
func NewBreaker(minSamples int, tripRatio float64, coolOff time.Duration) *Breaker {
	if minSamples <= 0 {
		minSamples = 1
	}
	if tripRatio <= 0 {
		tripRatio = 0.5
	}
	if tripRatio > 1 {
		tripRatio = 1
	}
	if coolOff <= 0 {
		coolOff = 30 * time.Second
	}
	return &Breaker{
		state:      Closed,
		minSamples: minSamples,
		tripRatio:  tripRatio,
		coolOff:    coolOff,
	}
}

// Allow reports whether a request may proceed. An open breaker holds
// everything back until the cool-off elapses, then flips to half-open and
// lets one probe through.
func (b *Breaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Open {
		return true
	}
	if time.Since(b.openedAt) < b.coolOff {
		return false
	}
	b.transitionLocked(ctx, HalfOpen)
	return true
}

// Report feeds one request outcome into the state machine.
func (b *Breaker) Report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		// Outcomes that raced the trip are not interesting.
		return
	case HalfOpen:
		if success {
			b.transitionLocked(ctx, Closed)
		} else {
			b.transitionLocked(ctx, Open)
		}
		return
	}

	if success {
		b.successes++
	} else {
		b.failures++
	}

	total := b.failures + b.successes
	if total < b.minSamples {
		return
	}
	if float64(b.failures)/float64(total) >= b.tripRatio {
		b.transitionLocked(ctx, Open)
		return
	}
	if total > b.minSamples*2 {
		b.decayLocked()
	}
}

// decayLocked halves both tallies so old traffic stops dominating the ratio.
func (b *Breaker) decayLocked() {
	b.successes = int(math.Ceil(float64(b.successes) * 0.5))
	b.failures = int(math.Ceil(float64(b.failures) * 0.5))
}

// Backoff returns the exponential delay for the given retry attempt.
// jitterPct spreads the result by up to that fraction in either direction.
func Backoff(base time.Duration, attempt int, jitterPct float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	d := base * time.Duration(1<<uint(attempt-1))
	if jitterPct <= 0 {
		return d
	}
	delta := (rand.Float64()*2 - 1) * float64(d) * jitterPct
	return d + time.Duration(delta)
}

// WithTarget names the guarded dependency for metric and log labels.
func (b *Breaker) WithTarget(target string) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.target = strings.TrimSpace(target)
	b.gaugeLocked()
	return b
}

// WithLogger configures the logger used for transition events.
func (b *Breaker) WithLogger(logger zerolog.Logger) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = &logger
	return b
}

func (b *Breaker) transitionLocked(ctx context.Context, next State) {
	prev := b.state
	if prev == next {
		b.gaugeLocked()
		return
	}
	b.state = next
	switch next {
	case Open:
		b.openedAt = time.Now()
	case Closed:
		b.openedAt = time.Time{}
	}
	b.failures = 0
	b.successes = 0
	b.gaugeLocked()
	b.announce(ctx, prev, next)
}

func (b *Breaker) gaugeLocked() {
	if BreakerState == nil {
		return
	}
	BreakerState.WithLabelValues(b.targetLabel()).Set(stateGaugeValue(b.state))
}

func (b *Breaker) announce(ctx context.Context, from, to State) {
	label := b.targetLabel()
	if BreakerTransitions != nil {
		BreakerTransitions.WithLabelValues(label, from.String(), to.String()).Inc()
	}
	if to == Open && BreakerOpenedTotal != nil {
		BreakerOpenedTotal.WithLabelValues(label).Inc()
	}
	evt := b.loggerFor(ctx).Info().
		Str("target", label).
		Str("from_state", from.String()).
		Str("to_state", to.String())
	if traceID := traceIDFromContext(ctx); traceID != "" {
		evt = evt.Str("trace_id", traceID)
	}
	evt.Msg("breaker_transition")
}

func (b *Breaker) targetLabel() string {
	if trimmed := strings.TrimSpace(b.target); trimmed != "" {
		return trimmed
	}
	return "default"
}

func (b *Breaker) loggerFor(ctx context.Context) *zerolog.Logger {
	if ctxLogger := zerolog.Ctx(ctx); ctxLogger != nil {
		logger := ctxLogger.With().Logger()
		return &logger
	}
	if b.logger == nil {
		return &nopLogger
	}
	return b.logger
}

func stateGaugeValue(state State) float64 {
	switch state {
	case Closed:
		return 0
	case Open:
		return 1
	case HalfOpen:
		return 2
	default:
		return -1
	}
}

func traceIDFromContext(ctx context.Context) string {
	if span := trace.SpanContextFromContext(ctx); span.IsValid() {
		return span.TraceID().String()
	}
	return ""
}
