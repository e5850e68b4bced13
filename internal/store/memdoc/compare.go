package memdoc

import (
	"strings"

	"bookquery/internal/book"
)

// typeRank brackets values the way a document store orders mixed types:
// null < numbers < strings < booleans.
func typeRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case int, int32, int64, float32, float64:
		return 1
	case string:
		return 2
	case bool:
		return 3
	}
	return 4
}

// compareValues returns -1, 0 or 1. Values of different type brackets order
// by bracket.
func compareValues(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch x := a.(type) {
	case string:
		return strings.Compare(x, b.(string))
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	case nil:
		return 0
	}
	fa, _ := toFloat(a)
	fb, _ := toFloat(b)
	switch {
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	}
	return 0
}

func toFloat(v any) (float64, bool) {
	switch i := v.(type) {
	case float64:
		return i, true
	case float32:
		return float64(i), true
	case int:
		return float64(i), true
	case int32:
		return float64(i), true
	case int64:
		return float64(i), true
	}
	return 0, false
}

// matches reports whether doc satisfies every condition. Conditions only match
// values of the same type bracket.
func matches(doc book.Document, f book.Filter) bool {
	for _, c := range f {
		v, ok := doc[c.Field]
		if !ok || typeRank(v) != typeRank(c.Value) {
			return false
		}
		cmp := compareValues(v, c.Value)
		var hit bool
		switch c.Op {
		case book.OpEq:
			hit = cmp == 0
		case book.OpGt:
			hit = cmp > 0
		case book.OpGte:
			hit = cmp >= 0
		case book.OpLt:
			hit = cmp < 0
		case book.OpLte:
			hit = cmp <= 0
		}
		if !hit {
			return false
		}
	}
	return true
}
