package finance

import "testing"

var tuitionSchema = Schema{
	Mandatory: []string{"baseTuition"},
	Optional:  []string{"labFees", "libraryFees", "technologyFees", "activityFees"},
}

func TestComputeNormalizesJunkToZero(t *testing.T) {
	raw := RawItems{
		"baseTuition":    float64(25000),
		"labFees":        float64(1200),
		"libraryFees":    float64(800),
		"technologyFees": "abc",
	}
	_, totals := Compute(raw, tuitionSchema)
	if totals.Mandatory != 25000 {
		t.Fatalf("expected mandatory total 25000, got %d", totals.Mandatory)
	}
	if totals.Optional != 2000 {
		t.Fatalf("expected optional total 2000, got %d", totals.Optional)
	}
	if totals.Grand != 27000 {
		t.Fatalf("expected grand total 27000, got %d", totals.Grand)
	}
}

func TestCoerce(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want Money
	}{
		{"nil", nil, 0},
		{"negative", float64(-50), 0},
		{"zero", float64(0), 0},
		{"positive", float64(1500), 1500},
		{"numeric string", "250", 250},
		{"garbage string", "abc", 0},
		{"bool", true, 0},
		{"int", 42, 42},
	}
	for _, tc := range cases {
		if got := Coerce(tc.in); got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}

func TestUndeclaredCategoriesIgnored(t *testing.T) {
	raw := RawItems{
		"baseTuition": float64(100),
		"bribes":      float64(99999),
	}
	items, totals := Compute(raw, tuitionSchema)
	if _, ok := items["bribes"]; ok {
		t.Fatal("undeclared category must be dropped")
	}
	if totals.Grand != 100 {
		t.Fatalf("expected grand total 100, got %d", totals.Grand)
	}
}

func TestEmptyAndAllZeroSets(t *testing.T) {
	_, totals := Compute(RawItems{}, tuitionSchema)
	if totals.Mandatory != 0 || totals.Optional != 0 || totals.Grand != 0 {
		t.Fatalf("empty set should yield zero totals, got %+v", totals)
	}
	raw := RawItems{"baseTuition": float64(0), "labFees": float64(0)}
	_, totals = Compute(raw, tuitionSchema)
	if totals.Grand != 0 {
		t.Fatalf("all-zero set should yield zero grand total, got %d", totals.Grand)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	raw := RawItems{
		"baseTuition": float64(987),
		"labFees":     float64(-3),
		"libraryFees": "12",
	}
	once := Normalize(raw, tuitionSchema)
	asRaw := make(RawItems, len(once))
	for k, v := range once {
		asRaw[k] = v
	}
	twice := Normalize(asRaw, tuitionSchema)
	for k, v := range once {
		if twice[k] != v {
			t.Fatalf("category %s changed on second pass: %d != %d", k, twice[k], v)
		}
	}
}

func TestGrandTotalExactOverManySmallItems(t *testing.T) {
	// 10,000 one-cent fees per group; float accumulation would drift here.
	schema := Schema{Mandatory: []string{"a"}, Optional: []string{"b"}}
	var sumA, sumB Money
	items := LineItems{"a": 0, "b": 0}
	for i := 0; i < 10000; i++ {
		items["a"]++
		items["b"]++
		sumA++
		sumB++
	}
	totals := ComputeTotals(items, schema)
	if totals.Mandatory != sumA || totals.Optional != sumB {
		t.Fatalf("group totals drifted: %+v", totals)
	}
	if totals.Grand != totals.Mandatory+totals.Optional {
		t.Fatalf("grand total invariant broken: %+v", totals)
	}
}

func TestComputeTotalsOrderIndependent(t *testing.T) {
	schema := Schema{
		Mandatory: []string{"x", "y", "z"},
		Optional:  []string{"p", "q"},
	}
	items := LineItems{"x": 101, "y": 203, "z": 305, "p": 11, "q": 13}
	first := ComputeTotals(items, schema)
	reversed := Schema{
		Mandatory: []string{"z", "y", "x"},
		Optional:  []string{"q", "p"},
	}
	second := ComputeTotals(items, reversed)
	if first != second {
		t.Fatalf("summation must be order independent: %+v vs %+v", first, second)
	}
}
