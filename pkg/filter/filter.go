// Package filter models store queries as an explicit expression tree.
//
// Services compose Expr values (role scope, search, explicit filters) and a
// single translator lowers the tree to SQL. Field names always come from the
// caller's own column constants, never from request input.
package filter

import (
	"strings"
	"time"
)

// Expr is a node in the query expression tree.
type Expr interface {
	isExpr()
}

// Equals matches a column against an exact value.
type Equals struct {
	Field string
	Value any
}

// In matches a column against any of the given values. An empty value set
// matches nothing.
type In struct {
	Field  string
	Values []any
}

// Contains matches a column by case-insensitive substring.
type Contains struct {
	Field string
	Term  string
}

// RangeOverlap matches rows whose [StartField, EndField] window intersects
// the requested [From, To] window: start <= To AND end >= From. Rows with a
// NULL bound never match.
type RangeOverlap struct {
	StartField string
	EndField   string
	From       time.Time
	To         time.Time
}

// GreaterThan matches a column strictly greater than a value.
type GreaterThan struct {
	Field string
	Value any
}

// And matches rows satisfying every child. An empty And matches everything.
type And struct {
	Exprs []Expr
}

// Or matches rows satisfying at least one child. An empty Or matches nothing.
type Or struct {
	Exprs []Expr
}

func (Equals) isExpr()       {}
func (In) isExpr()           {}
func (Contains) isExpr()     {}
func (RangeOverlap) isExpr() {}
func (GreaterThan) isExpr()  {}
func (And) isExpr()          {}
func (Or) isExpr()           {}

// NewAnd combines the non-nil expressions into a single conjunction,
// collapsing to the sole child when only one remains and to nil when none do.
func NewAnd(exprs ...Expr) Expr {
	kept := make([]Expr, 0, len(exprs))
	for _, e := range exprs {
		if e == nil {
			continue
		}
		if and, ok := e.(And); ok && len(and.Exprs) == 0 {
			continue
		}
		kept = append(kept, e)
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return And{Exprs: kept}
	}
}

// NewOr combines the non-nil expressions into a single disjunction.
func NewOr(exprs ...Expr) Expr {
	kept := make([]Expr, 0, len(exprs))
	for _, e := range exprs {
		if e != nil {
			kept = append(kept, e)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return Or{Exprs: kept}
	}
}

// ToSQL lowers the expression to a SQL condition with ? placeholders. A nil
// expression lowers to an empty condition, meaning no restriction.
func ToSQL(e Expr) (string, []any) {
	if e == nil {
		return "", nil
	}
	var b strings.Builder
	args := lower(&b, e, nil)
	return b.String(), args
}

func lower(b *strings.Builder, e Expr, args []any) []any {
	switch node := e.(type) {
	case Equals:
		b.WriteString(node.Field)
		b.WriteString(" = ?")
		return append(args, node.Value)
	case GreaterThan:
		b.WriteString(node.Field)
		b.WriteString(" > ?")
		return append(args, node.Value)
	case In:
		if len(node.Values) == 0 {
			b.WriteString("1 = 0")
			return args
		}
		b.WriteString(node.Field)
		b.WriteString(" IN (")
		for i, v := range node.Values {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString("?")
			args = append(args, v)
		}
		b.WriteString(")")
		return args
	case Contains:
		b.WriteString("LOWER(")
		b.WriteString(node.Field)
		b.WriteString(") LIKE ? ESCAPE '\\'")
		return append(args, "%"+escapeLike(strings.ToLower(node.Term))+"%")
	case RangeOverlap:
		b.WriteString("(")
		b.WriteString(node.StartField)
		b.WriteString(" <= ? AND ")
		b.WriteString(node.EndField)
		b.WriteString(" >= ?)")
		return append(args, node.To, node.From)
	case And:
		if len(node.Exprs) == 0 {
			b.WriteString("1 = 1")
			return args
		}
		return lowerList(b, node.Exprs, " AND ", args)
	case Or:
		if len(node.Exprs) == 0 {
			b.WriteString("1 = 0")
			return args
		}
		return lowerList(b, node.Exprs, " OR ", args)
	default:
		b.WriteString("1 = 0")
		return args
	}
}

func lowerList(b *strings.Builder, exprs []Expr, sep string, args []any) []any {
	b.WriteString("(")
	for i, child := range exprs {
		if i > 0 {
			b.WriteString(sep)
		}
		args = lower(b, child, args)
	}
	b.WriteString(")")
	return args
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
