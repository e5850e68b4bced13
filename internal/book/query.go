package book

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Op is a comparison operator in the document-store spelling.
type Op string

const (
	OpEq  Op = "$eq"
	OpGt  Op = "$gt"
	OpGte Op = "$gte"
	OpLt  Op = "$lt"
	OpLte Op = "$lte"
)

// Range reports whether op orders values rather than matching them exactly.
func (op Op) Range() bool {
	switch op {
	case OpGt, OpGte, OpLt, OpLte:
		return true
	}
	return false
}

// Symbol returns the infix form of op, e.g. ">=".
func (op Op) Symbol() string {
	switch op {
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	default:
		return "="
	}
}

// ParseOp accepts infix comparators (">", ">=", "<", "<=", "=") as well as the
// "$gt" and bare "gt" spellings.
func ParseOp(s string) (Op, error) {
	switch strings.TrimPrefix(strings.TrimSpace(s), "$") {
	case ">", "gt":
		return OpGt, nil
	case ">=", "gte":
		return OpGte, nil
	case "<", "lt":
		return OpLt, nil
	case "<=", "lte":
		return OpLte, nil
	case "=", "==", "eq":
		return OpEq, nil
	}
	return "", badRequestf("unknown comparator %q", s)
}

// Cond is a single field predicate.
type Cond struct {
	Field string
	Op    Op
	Value any
}

// Eq builds an exact-match condition.
func Eq(field string, value any) Cond { return Cond{Field: field, Op: OpEq, Value: value} }

// Gt builds a strictly-greater condition.
func Gt(field string, value any) Cond { return Cond{Field: field, Op: OpGt, Value: value} }

// Gte builds a greater-or-equal condition.
func Gte(field string, value any) Cond { return Cond{Field: field, Op: OpGte, Value: value} }

// Lt builds a strictly-less condition.
func Lt(field string, value any) Cond { return Cond{Field: field, Op: OpLt, Value: value} }

// Lte builds a less-or-equal condition.
func Lte(field string, value any) Cond { return Cond{Field: field, Op: OpLte, Value: value} }

// Filter is a conjunction of conditions. An empty filter selects every record.
type Filter []Cond

// Direction orders a sort or index key.
type Direction int

const (
	Asc  Direction = 1
	Desc Direction = -1
)

func (d Direction) valid() bool { return d == Asc || d == Desc }

// SortKey orders results by one field.
type SortKey struct {
	Field string
	Dir   Direction
}

// Projection is a field allow-list. The identifier is returned unless
// ExcludeID is set.
type Projection struct {
	Fields    []string
	ExcludeID bool
}

// Apply keeps only the fields p allows.
func (p Projection) Apply(doc Document) Document {
	out := make(Document, len(p.Fields)+1)
	for _, f := range p.Fields {
		if v, ok := doc[f]; ok {
			out[f] = v
		}
	}
	if !p.ExcludeID {
		if v, ok := doc[FieldID]; ok {
			out[FieldID] = v
		}
	}
	return out
}

// FindOptions shapes a find request. A zero Limit means no limit.
type FindOptions struct {
	Projection *Projection
	Sort       *SortKey
	Skip       int64
	Limit      int64
}

// Page is the optional ordering and windowing of a projected find.
type Page struct {
	Sort  *SortKey
	Skip  int64
	Limit int64
}

// ParseValue converts raw text into the kind declared for field. Fields outside
// the schema become numbers or booleans when the text parses as one.
func ParseValue(field, raw string) (any, error) {
	switch KindOf(field) {
	case KindString:
		return raw, nil
	case KindInt:
		// A fractional bound is still a valid range on an integer field.
		text := strings.TrimSpace(raw)
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, badRequestf("%s must be a number, got %q", field, raw)
		}
		return f, nil
	case KindFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, badRequestf("%s must be a number, got %q", field, raw)
		}
		return f, nil
	case KindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, badRequestf("%s must be true or false, got %q", field, raw)
		}
		return b, nil
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n, nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f, nil
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b, nil
	}
	return raw, nil
}

// Scalar converts v to one of string, bool, int64 or float64 and reports its
// kind. Anything else, including NaN and infinities, is a bad request.
func Scalar(v any) (any, Kind, error) {
	switch x := v.(type) {
	case string:
		return x, KindString, nil
	case bool:
		return x, KindBool, nil
	case int:
		return int64(x), KindInt, nil
	case int8:
		return int64(x), KindInt, nil
	case int16:
		return int64(x), KindInt, nil
	case int32:
		return int64(x), KindInt, nil
	case int64:
		return x, KindInt, nil
	case uint:
		return uintScalar(uint64(x))
	case uint8:
		return int64(x), KindInt, nil
	case uint16:
		return int64(x), KindInt, nil
	case uint32:
		return int64(x), KindInt, nil
	case uint64:
		return uintScalar(x)
	case float32:
		return floatScalar(float64(x))
	case float64:
		return floatScalar(x)
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, KindInt, nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, KindUnknown, badRequestf("invalid number %q", x.String())
		}
		return floatScalar(f)
	case nil:
		return nil, KindUnknown, badRequestf("value must not be null")
	}
	return nil, KindUnknown, badRequestf("unsupported value type %T", v)
}

func uintScalar(u uint64) (any, Kind, error) {
	if u > math.MaxInt64 {
		return float64(u), KindFloat, nil
	}
	return int64(u), KindInt, nil
}

func floatScalar(f float64) (any, Kind, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, KindUnknown, badRequestf("value must be a finite number")
	}
	return f, KindFloat, nil
}

// compatible reports whether a value of kind vk can ever equal or order against
// a field declared as fk.
func compatible(fk, vk Kind) bool {
	switch fk {
	case KindUnknown:
		return true
	case KindString:
		return vk == KindString
	case KindInt, KindFloat:
		return vk.Numeric()
	case KindBool:
		return vk == KindBool
	}
	return false
}

// normalize validates f and converts its values to scalars. It reports false
// when a condition can never match because the value kind does not fit the
// field, so the caller can answer with an empty result.
func (f Filter) normalize() (Filter, bool, error) {
	out := make(Filter, 0, len(f))
	satisfiable := true
	for _, c := range f {
		if err := ValidateField(c.Field); err != nil {
			return nil, false, err
		}
		switch c.Op {
		case OpEq, OpGt, OpGte, OpLt, OpLte:
		default:
			return nil, false, badRequestf("unknown comparator %q", c.Op)
		}
		v, vk, err := Scalar(c.Value)
		if err != nil {
			return nil, false, err
		}
		if c.Op.Range() && vk == KindBool {
			return nil, false, badRequestf("comparator %s needs an orderable value for %s", c.Op.Symbol(), c.Field)
		}
		if !compatible(KindOf(c.Field), vk) {
			satisfiable = false
		}
		out = append(out, Cond{Field: c.Field, Op: c.Op, Value: v})
	}
	return out, satisfiable, nil
}

func (p Projection) validate() error {
	if len(p.Fields) == 0 {
		return badRequestf("projection needs at least one field")
	}
	for _, f := range p.Fields {
		if err := ValidateField(f); err != nil {
			return err
		}
		if f == FieldID && p.ExcludeID {
			return badRequestf("projection both includes and excludes %s", FieldID)
		}
	}
	return nil
}

func (pg Page) validate() error {
	if pg.Sort != nil {
		if err := ValidateField(pg.Sort.Field); err != nil {
			return err
		}
		if !pg.Sort.Dir.valid() {
			return badRequestf("sort direction must be 1 or -1, got %d", pg.Sort.Dir)
		}
	}
	if pg.Skip < 0 {
		return badRequestf("skip must not be negative")
	}
	if pg.Limit < 0 {
		return badRequestf("limit must not be negative")
	}
	return nil
}

// ParseCond reads a condition written as field, comparator and value with no
// separators, e.g. "published_year>=2010" or "author=George Orwell".
func ParseCond(expr string) (Cond, error) {
	i := strings.IndexAny(expr, "<>=")
	if i <= 0 {
		return Cond{}, badRequestf("condition %q needs a field and one of =, >, >=, <, <=", expr)
	}
	field := strings.TrimSpace(expr[:i])
	rest := expr[i:]
	n := 1
	if len(rest) > 1 && rest[1] == '=' {
		n = 2
	}
	op, err := ParseOp(rest[:n])
	if err != nil {
		return Cond{}, err
	}
	if err := ValidateField(field); err != nil {
		return Cond{}, err
	}
	value, err := ParseValue(field, strings.TrimSpace(rest[n:]))
	if err != nil {
		return Cond{}, err
	}
	return Cond{Field: field, Op: op, Value: value}, nil
}

// ParseFilter reads each expression with ParseCond.
func ParseFilter(exprs []string) (Filter, error) {
	f := make(Filter, 0, len(exprs))
	for _, e := range exprs {
		c, err := ParseCond(e)
		if err != nil {
			return nil, err
		}
		f = append(f, c)
	}
	return f, nil
}
