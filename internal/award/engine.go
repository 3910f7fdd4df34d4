package award

import (
	"errors"

	"github.com/univbase/backend-univ/internal/finance"
)

// ErrInvalidBaseCost is returned when a caller resolves an award against a
// negative base cost. That indicates an upstream bug, not a correctable
// form error, so it is never silently coerced.
var ErrInvalidBaseCost = errors.New("award: base cost must not be negative")

// Spec captures the three mutually-alternative ways a scholarship or aid
// award may be sized. A fixed amount wins outright; otherwise a percentage
// of the base cost applies, optionally capped.
type Spec struct {
	Amount     *finance.Money
	PercentBps *int32
	MaxAmount  *finance.Money
}

// Resolve reconciles a spec into one effective award against the given
// base cost. A fixed amount applies only when present and non-negative;
// a negative amount falls through to the percentage branch. The result
// is never negative and never exceeds MaxAmount when a cap is set.
func Resolve(spec Spec, baseCost finance.Money) (finance.Money, error) {
	if baseCost < 0 {
		return 0, ErrInvalidBaseCost
	}
	if spec.Amount != nil && *spec.Amount >= 0 {
		return *spec.Amount, nil
	}
	if spec.PercentBps == nil {
		return 0, nil
	}
	bps := clampBps(*spec.PercentBps)
	raw := (baseCost * finance.Money(bps)) / 10000
	if spec.MaxAmount != nil && raw > *spec.MaxAmount {
		raw = *spec.MaxAmount
	}
	if raw < 0 {
		return 0, nil
	}
	return raw, nil
}

// PercentToBps converts a user-facing percentage (0..100) into basis
// points, clamping out-of-range values. All internal arithmetic runs on
// basis points to stay exact.
func PercentToBps(percent float64) int32 {
	if percent <= 0 {
		return 0
	}
	if percent >= 100 {
		return 10000
	}
	return int32(percent*100 + 0.5)
}

// BpsToPercent converts stored basis points back to a display percentage.
func BpsToPercent(bps int32) float64 {
	return float64(clampBps(bps)) / 100
}

func clampBps(bps int32) int32 {
	if bps < 0 {
		return 0
	}
	if bps > 10000 {
		return 10000
	}
	return bps
}
