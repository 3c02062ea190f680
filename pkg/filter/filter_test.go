package filter

import (
	"testing"
	"time"
)

func TestToSQLComposition(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	expr := NewAnd(
		NewOr(
			Equals{Field: "expedia_channel_id", Value: "12345"},
			Equals{Field: "booking_channel_id", Value: "12345"},
		),
		In{Field: "portfolio_id", Values: []any{"1", "2"}},
		RangeOverlap{StartField: "from_date", EndField: "to_date", From: from, To: to},
	)

	sql, args := ToSQL(expr)
	want := "((expedia_channel_id = ? OR booking_channel_id = ?) AND portfolio_id IN (?, ?) AND (from_date <= ? AND to_date >= ?))"
	if sql != want {
		t.Fatalf("unexpected sql:\n got: %s\nwant: %s", sql, want)
	}
	if len(args) != 6 {
		t.Fatalf("expected 6 args, got %d", len(args))
	}
	if !args[4].(time.Time).Equal(to) || !args[5].(time.Time).Equal(from) {
		t.Fatalf("overlap args must be (filterEnd, filterStart), got %v", args[4:])
	}
}

func TestToSQLEmptyIn(t *testing.T) {
	sql, args := ToSQL(In{Field: "property_id"})
	if sql != "1 = 0" {
		t.Fatalf("empty IN must match nothing, got %q", sql)
	}
	if len(args) != 0 {
		t.Fatalf("expected no args, got %v", args)
	}
}

func TestToSQLNil(t *testing.T) {
	sql, args := ToSQL(nil)
	if sql != "" || args != nil {
		t.Fatalf("nil expr must lower to no condition, got %q %v", sql, args)
	}
}

func TestToSQLContainsEscapesWildcards(t *testing.T) {
	sql, args := ToSQL(Contains{Field: "name", Term: "50%_Off"})
	if sql != `LOWER(name) LIKE ? ESCAPE '\'` {
		t.Fatalf("unexpected sql %q", sql)
	}
	if args[0] != `%50\%\_off%` {
		t.Fatalf("unexpected pattern %q", args[0])
	}
}

func TestNewAndCollapses(t *testing.T) {
	only := Equals{Field: "id", Value: "1"}
	if got := NewAnd(nil, only, And{}); got != Expr(only) {
		t.Fatalf("single-child AND should collapse, got %#v", got)
	}
	if got := NewAnd(nil, And{}); got != nil {
		t.Fatalf("empty AND should collapse to nil, got %#v", got)
	}
}

func TestMatchOverlapSemantics(t *testing.T) {
	from := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	overlap := RangeOverlap{StartField: "from_date", EndField: "to_date", From: from, To: to}

	cases := []struct {
		name  string
		start time.Time
		end   time.Time
		want  bool
	}{
		{"fully inside", from.AddDate(0, 0, 2), to.AddDate(0, 0, -2), true},
		{"straddles start", from.AddDate(0, 0, -5), from.AddDate(0, 0, 1), true},
		{"straddles end", to.AddDate(0, 0, -1), to.AddDate(0, 0, 5), true},
		{"covers window", from.AddDate(0, -1, 0), to.AddDate(0, 1, 0), true},
		{"touches start boundary", from.AddDate(0, 0, -3), from, true},
		{"touches end boundary", to, to.AddDate(0, 0, 3), true},
		{"entirely before", from.AddDate(0, 0, -10), from.AddDate(0, 0, -1), false},
		{"entirely after", to.AddDate(0, 0, 1), to.AddDate(0, 0, 10), false},
	}
	for _, tc := range cases {
		doc := Doc{"from_date": tc.start, "to_date": tc.end}
		if got := Match(overlap, doc); got != tc.want {
			t.Errorf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}

	// Records missing either bound never match a range filter.
	if Match(overlap, Doc{"from_date": from}) {
		t.Error("missing end bound must not match")
	}
	if Match(overlap, Doc{"from_date": (*time.Time)(nil), "to_date": to}) {
		t.Error("nil start bound must not match")
	}
}

func TestMatchMirrorsComposition(t *testing.T) {
	expr := NewAnd(
		NewOr(
			In{Field: "portfolio_id", Values: []any{"10", "11"}},
			In{Field: "property_id", Values: []any{"77"}},
		),
		Equals{Field: "posting_type", Value: "commission"},
	)

	hit := Doc{"portfolio_id": "11", "posting_type": "commission"}
	if !Match(expr, hit) {
		t.Fatal("expected document to match")
	}
	miss := Doc{"portfolio_id": "11", "posting_type": "refund"}
	if Match(expr, miss) {
		t.Fatal("posting type mismatch must not match")
	}
	outOfScope := Doc{"property_id": "99", "posting_type": "commission"}
	if Match(expr, outOfScope) {
		t.Fatal("document outside both id sets must not match")
	}
}

func TestMatchContainsCaseInsensitive(t *testing.T) {
	expr := Contains{Field: "name", Term: "OCEAN"}
	if !Match(expr, Doc{"name": "Grand oceanview"}) {
		t.Fatal("substring match must ignore case")
	}
	if Match(expr, Doc{"name": "Hillside"}) {
		t.Fatal("unexpected match")
	}
}
