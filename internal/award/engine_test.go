package award

import (
	"errors"
	"testing"

	"github.com/univbase/backend-univ/internal/finance"
)

func money(v finance.Money) *finance.Money { return &v }
func bps(v int32) *int32                   { return &v }

func TestFixedAmountWins(t *testing.T) {
	spec := Spec{Amount: money(3000), PercentBps: bps(5000), MaxAmount: money(100)}
	got, err := Resolve(spec, 1_000_000)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != 3000 {
		t.Fatalf("expected fixed amount 3000 to win, got %d", got)
	}
}

func TestPercentWithCap(t *testing.T) {
	// 25% of 30000 is 7500, capped at 5000.
	spec := Spec{PercentBps: bps(2500), MaxAmount: money(5000)}
	got, err := Resolve(spec, 30000)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != 5000 {
		t.Fatalf("expected capped award 5000, got %d", got)
	}
}

func TestPercentWithoutCap(t *testing.T) {
	spec := Spec{PercentBps: bps(2500)}
	got, err := Resolve(spec, 30000)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != 7500 {
		t.Fatalf("expected award 7500, got %d", got)
	}
}

func TestNegativeAmountFallsThroughToPercent(t *testing.T) {
	spec := Spec{Amount: money(-100), PercentBps: bps(2500)}
	got, err := Resolve(spec, 30000)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != 7500 {
		t.Fatalf("expected percentage branch to apply, got %d", got)
	}
}

func TestNegativeAmountWithoutPercentIsZero(t *testing.T) {
	got, err := Resolve(Spec{Amount: money(-100)}, 30000)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != 0 {
		t.Fatalf("expected zero award, got %d", got)
	}
}

func TestEmptySpecResolvesToZero(t *testing.T) {
	got, err := Resolve(Spec{}, 50000)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != 0 {
		t.Fatalf("expected zero award, got %d", got)
	}
}

func TestNegativeBaseCostRejected(t *testing.T) {
	_, err := Resolve(Spec{PercentBps: bps(1000)}, -1)
	if !errors.Is(err, ErrInvalidBaseCost) {
		t.Fatalf("expected ErrInvalidBaseCost, got %v", err)
	}
}

func TestPercentClamped(t *testing.T) {
	spec := Spec{PercentBps: bps(25000)}
	got, err := Resolve(spec, 4000)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != 4000 {
		t.Fatalf("expected clamp to 100%% (4000), got %d", got)
	}
}

func TestMonotonicUpToCapThenFlat(t *testing.T) {
	spec := Spec{PercentBps: bps(2500), MaxAmount: money(5000)}
	prev := finance.Money(-1)
	capped := false
	for base := finance.Money(0); base <= 40000; base += 500 {
		got, err := Resolve(spec, base)
		if err != nil {
			t.Fatalf("resolve at %d: %v", base, err)
		}
		if got < prev {
			t.Fatalf("award decreased at base %d: %d < %d", base, got, prev)
		}
		if got > 5000 {
			t.Fatalf("award exceeded cap at base %d: %d", base, got)
		}
		if capped && got != 5000 {
			t.Fatalf("award left the cap at base %d: %d", base, got)
		}
		if got == 5000 {
			capped = true
		}
		prev = got
	}
	if !capped {
		t.Fatal("cap never bound over the tested range")
	}
}

func TestPercentConversionRoundTrip(t *testing.T) {
	if got := PercentToBps(25); got != 2500 {
		t.Fatalf("expected 2500 bps, got %d", got)
	}
	if got := PercentToBps(150); got != 10000 {
		t.Fatalf("expected clamp to 10000 bps, got %d", got)
	}
	if got := BpsToPercent(2500); got != 25 {
		t.Fatalf("expected 25%%, got %v", got)
	}
}
