package filter

import (
	"strings"
	"time"
)

// Doc is a flat column-to-value view of a row, used by Match.
type Doc map[string]any

// Match evaluates the expression against an in-memory document. It mirrors
// the SQL lowering: comparisons against a missing or nil column are false,
// so tests can assert both execution paths agree.
func Match(e Expr, doc Doc) bool {
	if e == nil {
		return true
	}
	switch node := e.(type) {
	case Equals:
		v, ok := doc[node.Field]
		return ok && v != nil && equalValues(v, node.Value)
	case GreaterThan:
		v, ok := doc[node.Field]
		if !ok || v == nil {
			return false
		}
		return compareValues(v, node.Value) > 0
	case In:
		v, ok := doc[node.Field]
		if !ok || v == nil {
			return false
		}
		for _, candidate := range node.Values {
			if equalValues(v, candidate) {
				return true
			}
		}
		return false
	case Contains:
		v, ok := doc[node.Field].(string)
		if !ok {
			return false
		}
		return strings.Contains(strings.ToLower(v), strings.ToLower(node.Term))
	case RangeOverlap:
		start, okStart := timeValue(doc[node.StartField])
		end, okEnd := timeValue(doc[node.EndField])
		if !okStart || !okEnd {
			return false
		}
		return !start.After(node.To) && !end.Before(node.From)
	case And:
		for _, child := range node.Exprs {
			if !Match(child, doc) {
				return false
			}
		}
		return true
	case Or:
		for _, child := range node.Exprs {
			if Match(child, doc) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func equalValues(a, b any) bool {
	if ta, ok := timeValue(a); ok {
		tb, ok := timeValue(b)
		return ok && ta.Equal(tb)
	}
	return a == b
}

func compareValues(a, b any) int {
	if ta, ok := timeValue(a); ok {
		if tb, ok := timeValue(b); ok {
			switch {
			case ta.After(tb):
				return 1
			case ta.Before(tb):
				return -1
			default:
				return 0
			}
		}
	}
	fa, okA := floatValue(a)
	fb, okB := floatValue(b)
	if okA && okB {
		switch {
		case fa > fb:
			return 1
		case fa < fb:
			return -1
		default:
			return 0
		}
	}
	sa, okA := a.(string)
	sb, okB := b.(string)
	if okA && okB {
		return strings.Compare(sa, sb)
	}
	return 0
}

func timeValue(v any) (time.Time, bool) {
	switch typed := v.(type) {
	case time.Time:
		return typed, true
	case *time.Time:
		if typed == nil {
			return time.Time{}, false
		}
		return *typed, true
	default:
		return time.Time{}, false
	}
}

func floatValue(v any) (float64, bool) {
	switch typed := v.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	default:
		return 0, false
	}
}
