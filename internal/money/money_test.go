package money

import (
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{"$1,234.56", 1234.56},
		{"", 0},
		{"abc", 0},
		{"-12.3", -12.3},
		{"USD 99.90", 99.9},
		{" 1 000.50 ", 1000.50},
		{"Rp2.500", 2.5},
		{"100%", 100},
		{"1.2.3", 0},
		{"--5", 0},
		{"-", 0},
		{".5", 0.5},
		{"-.5", -0.5},
		{"5.", 5},
		{"(100)", 100},
		{"N/A", 0},
	}
	for _, tc := range cases {
		if got := Normalize(tc.raw); got != tc.want {
			t.Errorf("Normalize(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestNormalizePtr(t *testing.T) {
	if got := NormalizePtr(nil); got != 0 {
		t.Fatalf("nil input must normalize to 0, got %v", got)
	}
	raw := "$42.10"
	if got := NormalizePtr(&raw); got != 42.1 {
		t.Fatalf("got %v, want 42.1", got)
	}
}

// The store-side expression and the in-process function implement one rule.
// This is the shared property test guarding both execution contexts.
func TestStoreRuleMatchesNormalize(t *testing.T) {
	corpus := []string{
		"$1,234.56", "", "abc", "-12.3", "USD 99.90", "Rp2.500",
		"1.2.3", "--5", "-", ".", "..", ".5", "-.5", "5.", "-5.",
		"(100)", "€ 10,50", "100%", "N/A", "0", "-0", "00123",
		"12-31", "1 2 3", "£-7.25", "7,", ",7", "~!@#$%^&*()",
		"9999999.99", "-0.001", "  \t 55 \n", "12.", ".-5", "5-",
	}
	for _, raw := range corpus {
		inProcess := Normalize(raw)
		storeSide := StoreRule(raw)
		if inProcess != storeSide {
			t.Errorf("rule divergence on %q: in-process %v, store %v", raw, inProcess, storeSide)
		}
	}
}

func TestSQLExpr(t *testing.T) {
	expr, ok := SQLExpr(DialectPostgres, "expedia_amount_collectable")
	if !ok {
		t.Fatal("postgres expression expected")
	}
	if expr == "" {
		t.Fatal("empty expression")
	}

	if _, ok := SQLExpr(DialectMySQL, "booking_amount_confirmed"); !ok {
		t.Fatal("mysql expression expected")
	}

	if _, ok := SQLExpr(Dialect("sqlite"), "agoda_amount_collectable"); ok {
		t.Fatal("sqlite has no regexp support, expected fallback signal")
	}
}

func TestRound2(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{1234.5649, 1234.56},
		{1234.565, 1234.57},
		{100, 100},
		{-12.345, -12.35},
		{0, 0},
	}
	for _, tc := range cases {
		if got := Round2(tc.in); got != tc.want {
			t.Errorf("Round2(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
