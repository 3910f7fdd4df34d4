package finance

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Money represents a monetary value stored in minor units.
type Money = int64

// RawItems carries fee line items exactly as decoded from a JSON payload.
// Values may be numbers, numeric strings, null, or garbage; Normalize is
// the only way they enter the system.
type RawItems map[string]any

// LineItems maps declared fee categories to normalized non-negative amounts.
type LineItems map[string]Money

// Schema partitions the categories of one record kind into its two summary
// groups. The partition is fixed per kind and never configurable per record.
type Schema struct {
	Mandatory []string
	Optional  []string
}

// Totals aggregates the derived summary figures for a line item set.
type Totals struct {
	Mandatory Money
	Optional  Money
	Grand     Money
}

// Categories returns every category the schema declares.
func (s Schema) Categories() []string {
	out := make([]string, 0, len(s.Mandatory)+len(s.Optional))
	out = append(out, s.Mandatory...)
	out = append(out, s.Optional...)
	return out
}

// Declares reports whether the schema knows the given category.
func (s Schema) Declares(category string) bool {
	for _, c := range s.Mandatory {
		if c == category {
			return true
		}
	}
	for _, c := range s.Optional {
		if c == category {
			return true
		}
	}
	return false
}

// Coerce converts a raw line item value into a Money amount. Missing,
// null, non-numeric, zero, and negative inputs all resolve to 0; callers
// treat an absent fee and a junk fee identically.
func Coerce(v any) Money {
	switch n := v.(type) {
	case nil:
		return 0
	case Money:
		if n < 0 {
			return 0
		}
		return n
	case int:
		if n < 0 {
			return 0
		}
		return Money(n)
	case int32:
		if n < 0 {
			return 0
		}
		return Money(n)
	case float64:
		return coerceFloat(n)
	case float32:
		return coerceFloat(float64(n))
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return coerceFloat(f)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return coerceFloat(f)
	default:
		return 0
	}
}

func coerceFloat(f float64) Money {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0
	}
	return Money(math.Round(f))
}

// Normalize resolves a raw payload against a schema. Every declared
// category is present in the result (defaulting to 0); categories the
// schema does not declare are dropped, not errored.
func Normalize(raw RawItems, schema Schema) LineItems {
	items := make(LineItems, len(schema.Mandatory)+len(schema.Optional))
	for _, category := range schema.Categories() {
		items[category] = Coerce(raw[category])
	}
	return items
}

// ComputeTotals sums normalized line items into the schema's two summary
// groups and a grand total. Integer arithmetic throughout keeps the
// invariant Grand == Mandatory + Optional exact to the minor unit.
func ComputeTotals(items LineItems, schema Schema) Totals {
	var t Totals
	for _, category := range schema.Mandatory {
		t.Mandatory += items[category]
	}
	for _, category := range schema.Optional {
		t.Optional += items[category]
	}
	t.Grand = t.Mandatory + t.Optional
	return t
}

// Compute normalizes a raw payload and derives its totals in one step.
// This is the single routine shared by preview endpoints and the write
// path, so a client preview and the persisted record can never drift.
func Compute(raw RawItems, schema Schema) (LineItems, Totals) {
	items := Normalize(raw, schema)
	return items, ComputeTotals(items, schema)
}
