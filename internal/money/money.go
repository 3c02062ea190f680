// Package money normalizes the raw amount strings carried on audit records.
//
// Source spreadsheets deliver amounts with currency symbols, thousands
// separators and stray whitespace, so amounts are stored verbatim and
// normalized on read. The same sanitization rule exists twice: Normalize for
// in-process use and SQLExpr for store-side aggregation. Both must produce
// the same number for the same raw string; money_test.go holds the shared
// property test.
package money

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// validNumber accepts exactly the strings strconv.ParseFloat accepts over the
// post-strip alphabet [0-9.-]: an optional leading minus, then either digits
// with an optional fraction or a bare fraction.
var validNumber = regexp.MustCompile(`^-?([0-9]+(\.[0-9]*)?|\.[0-9]+)$`)

// Normalize converts an arbitrary-format monetary string to a number.
// Empty input, input with no numeric characters, and unparseable input all
// normalize to zero. No rounding happens here.
func Normalize(raw string) float64 {
	stripped := Strip(raw)
	if stripped == "" {
		return 0
	}
	value, err := strconv.ParseFloat(stripped, 64)
	if err != nil {
		return 0
	}
	return value
}

// NormalizePtr is Normalize for optional input.
func NormalizePtr(raw *string) float64 {
	if raw == nil {
		return 0
	}
	return Normalize(*raw)
}

// Strip removes every character that is not a digit, decimal point or minus.
func Strip(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// StoreRule applies the sanitization rule the way SQLExpr expresses it:
// strip, validate against the explicit number pattern, cast. It exists so the
// parity between the two execution contexts is testable without a database.
func StoreRule(raw string) float64 {
	stripped := Strip(raw)
	if !validNumber.MatchString(stripped) {
		return 0
	}
	value, err := strconv.ParseFloat(stripped, 64)
	if err != nil {
		return 0
	}
	return value
}

// Dialect selects the store-side expression flavor.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

const numberPattern = `^-?([0-9]+(\.[0-9]*)?|\.[0-9]+)$`

// SQLExpr renders the normalization of a raw amount column as a store-side
// expression: strip everything outside [0-9.-], guard with the validity
// pattern, cast, default to zero. The column name must be a trusted
// identifier. Dialects without regexp support (sqlite) are not rendered;
// callers fall back to the in-process path.
func SQLExpr(dialect Dialect, column string) (string, bool) {
	switch dialect {
	case DialectPostgres:
		stripped := fmt.Sprintf(`regexp_replace(COALESCE(%s, ''), '[^0-9.-]', '', 'g')`, column)
		return fmt.Sprintf(
			`(CASE WHEN %s ~ '%s' THEN CAST(%s AS double precision) ELSE 0 END)`,
			stripped, numberPattern, stripped,
		), true
	case DialectMySQL:
		stripped := fmt.Sprintf(`REGEXP_REPLACE(COALESCE(%s, ''), '[^0-9.-]', '')`, column)
		return fmt.Sprintf(
			`(CASE WHEN %s REGEXP '%s' THEN CAST(%s AS DOUBLE) ELSE 0 END)`,
			stripped, numberPattern, stripped,
		), true
	default:
		return "", false
	}
}

// Round2 rounds a normalized amount to two decimals for presentation.
// Storage and intermediate sums stay unrounded.
func Round2(value float64) float64 {
	rounded, _ := decimal.NewFromFloat(value).Round(2).Float64()
	return rounded
}
