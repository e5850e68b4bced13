package pgdoc

import (
	"fmt"
	"strconv"
	"strings"

	"bookquery/internal/book"

	"github.com/jackc/pgx/v5"
)

// statement accumulates positional arguments while SQL text is built. Values
// are always bound, never interpolated; field names are interpolated only
// after book.ValidateField accepted them.
type statement struct {
	args []any
}

func (s *statement) bind(v any) string {
	s.args = append(s.args, v)
	return "$" + strconv.Itoa(len(s.args))
}

// fieldExpr returns the SQL expression reading field from the doc column,
// cast for kind. Indexes are built on the same expressions so the planner can
// match them against filters.
func fieldExpr(field string, kind book.Kind) string {
	if field == book.FieldID {
		return "id::text"
	}
	switch kind {
	case book.KindInt, book.KindFloat:
		return fmt.Sprintf("((doc->>'%s')::numeric)", field)
	case book.KindBool:
		return fmt.Sprintf("((doc->>'%s')::boolean)", field)
	default:
		return fmt.Sprintf("(doc->>'%s')", field)
	}
}

// jsonType is the jsonb_typeof result that matches kind.
func jsonType(kind book.Kind) string {
	switch kind {
	case book.KindInt, book.KindFloat:
		return "number"
	case book.KindBool:
		return "boolean"
	default:
		return "string"
	}
}

func valueKind(v any) book.Kind {
	switch v.(type) {
	case string:
		return book.KindString
	case bool:
		return book.KindBool
	case int64, int, int32:
		return book.KindInt
	case float64, float32:
		return book.KindFloat
	}
	return book.KindUnknown
}

func sqlOp(op book.Op) (string, error) {
	switch op {
	case book.OpEq:
		return "=", nil
	case book.OpGt:
		return ">", nil
	case book.OpGte:
		return ">=", nil
	case book.OpLt:
		return "<", nil
	case book.OpLte:
		return "<=", nil
	}
	return "", fmt.Errorf("%w: unknown comparator %q", book.ErrBadRequest, op)
}

// where compiles a conjunction. Fields outside the book schema take their kind
// from the value and are guarded by jsonb_typeof so casts never fail on
// records holding another type.
func (s *statement) where(f book.Filter) (string, error) {
	clauses := []string{"1=1"}
	for _, c := range f {
		if err := book.ValidateField(c.Field); err != nil {
			return "", err
		}
		op, err := sqlOp(c.Op)
		if err != nil {
			return "", err
		}
		kind := book.KindOf(c.Field)
		if kind == book.KindUnknown {
			kind = valueKind(c.Value)
			clauses = append(clauses, fmt.Sprintf("jsonb_typeof(doc->'%s') = '%s'", c.Field, jsonType(kind)))
		}
		clauses = append(clauses, fmt.Sprintf("%s %s %s", fieldExpr(c.Field, kind), op, s.bind(c.Value)))
	}
	return "WHERE " + strings.Join(clauses, " AND "), nil
}

// groupKind reads undeclared fields as text so group keys decode as strings.
func groupKind(field string) book.Kind {
	if k := book.KindOf(field); k != book.KindUnknown {
		return k
	}
	return book.KindString
}

// orderExpr is the sort and index expression for field. Undeclared fields
// order on the raw jsonb value, which compares numbers numerically.
func orderExpr(field string) string {
	if k := book.KindOf(field); k != book.KindUnknown || field == book.FieldID {
		return fieldExpr(field, k)
	}
	return fmt.Sprintf("(doc->'%s')", field)
}

func direction(d book.Direction) string {
	if d == book.Desc {
		return "DESC NULLS LAST"
	}
	return "ASC NULLS FIRST"
}

// findSQL selects id and document. Ties on the sort key fall back to id so a
// page boundary is stable within a call.
func findSQL(f book.Filter, opts book.FindOptions) (string, []any, error) {
	var st statement
	where, err := st.where(f)
	if err != nil {
		return "", nil, err
	}
	order := "id"
	if opts.Sort != nil {
		if err := book.ValidateField(opts.Sort.Field); err != nil {
			return "", nil, err
		}
		order = orderExpr(opts.Sort.Field) + " " + direction(opts.Sort.Dir) + ", id"
	}
	sql := fmt.Sprintf("SELECT id::text, doc FROM %s %s ORDER BY %s", book.Collection, where, order)
	if opts.Skip > 0 {
		sql += " OFFSET " + st.bind(opts.Skip)
	}
	if opts.Limit > 0 {
		sql += " LIMIT " + st.bind(opts.Limit)
	}
	return sql, st.args, nil
}

// updateSQL locks one matching row and merges set into it. The row only counts
// as modified when its document did not already contain set.
func updateSQL(f book.Filter, setJSON []byte) (string, []any, error) {
	var st statement
	where, err := st.where(f)
	if err != nil {
		return "", nil, err
	}
	patch := st.bind(string(setJSON))
	sql := fmt.Sprintf(`
		WITH target AS (
			SELECT id, doc FROM %[1]s %[2]s LIMIT 1 FOR UPDATE
		), updated AS (
			UPDATE %[1]s b SET doc = b.doc || %[3]s::jsonb
			FROM target
			WHERE b.id = target.id AND NOT target.doc @> %[3]s::jsonb
			RETURNING b.id
		)
		SELECT (SELECT count(*) FROM target), (SELECT count(*) FROM updated)`,
		book.Collection, where, patch)
	return sql, st.args, nil
}

func deleteSQL(f book.Filter) (string, []any, error) {
	var st statement
	where, err := st.where(f)
	if err != nil {
		return "", nil, err
	}
	sql := fmt.Sprintf("DELETE FROM %[1]s WHERE id IN (SELECT id FROM %[1]s %[2]s LIMIT 1 FOR UPDATE)", book.Collection, where)
	return sql, st.args, nil
}

func explainSQL(f book.Filter) (string, []any, error) {
	var st statement
	where, err := st.where(f)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("EXPLAIN (ANALYZE, BUFFERS, FORMAT JSON) SELECT id FROM %s %s", book.Collection, where), st.args, nil
}

func indexName(spec book.IndexSpec) string {
	return book.Collection + "_" + spec.Name()
}

func indexSQL(spec book.IndexSpec) (string, error) {
	cols := make([]string, 0, len(spec))
	for _, k := range spec {
		if err := book.ValidateField(k.Field); err != nil {
			return "", err
		}
		dir := "ASC"
		if k.Dir == book.Desc {
			dir = "DESC"
		}
		cols = append(cols, orderExpr(k.Field)+" "+dir)
	}
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
		pgx.Identifier{indexName(spec)}.Sanitize(), book.Collection, strings.Join(cols, ", ")), nil
}

func groupKeyExpr(e book.Expr) (string, error) {
	switch e := e.(type) {
	case book.FieldRef:
		if err := book.ValidateField(string(e)); err != nil {
			return "", err
		}
		return fieldExpr(string(e), groupKind(string(e))), nil
	case book.DecadeOf:
		if err := book.ValidateField(string(e)); err != nil {
			return "", err
		}
		year := fieldExpr(string(e), book.KindInt)
		return fmt.Sprintf("(%[1]s - mod(%[1]s, 10))::bigint", year), nil
	}
	return "", fmt.Errorf("%w: unsupported group key %T", book.ErrBadRequest, e)
}

// aggregateSQL compiles a pipeline of one Group followed by an optional sort
// and an optional limit into a single GROUP BY statement.
func aggregateSQL(p book.Pipeline) (string, []any, error) {
	if len(p) == 0 {
		return "", nil, fmt.Errorf("%w: empty pipeline", book.ErrBadRequest)
	}
	g, ok := p[0].(book.Group)
	if !ok {
		return "", nil, fmt.Errorf("%w: pipeline must start with a group stage", book.ErrBadRequest)
	}
	key, err := groupKeyExpr(g.Key)
	if err != nil {
		return "", nil, err
	}
	cols := []string{key + " AS " + pgx.Identifier{book.GroupKey}.Sanitize()}
	for _, acc := range g.Accumulators {
		if err := book.ValidateField(acc.As); err != nil {
			return "", nil, err
		}
		alias := pgx.Identifier{acc.As}.Sanitize()
		switch acc.Op {
		case book.AccCount:
			cols = append(cols, "count(*) AS "+alias)
		case book.AccAvg:
			if err := book.ValidateField(acc.Field); err != nil {
				return "", nil, err
			}
			cols = append(cols, fmt.Sprintf("avg(%s)::float8 AS %s", fieldExpr(acc.Field, book.KindFloat), alias))
		default:
			return "", nil, fmt.Errorf("%w: unsupported accumulator %q", book.ErrBadRequest, acc.Op)
		}
	}

	var st statement
	sql := fmt.Sprintf("SELECT %s FROM %s GROUP BY 1", strings.Join(cols, ", "), book.Collection)
	var sorted, limited bool
	for _, stage := range p[1:] {
		switch stage := stage.(type) {
		case book.SortStage:
			if sorted || limited {
				return "", nil, fmt.Errorf("%w: sort must come once, before limit", book.ErrBadRequest)
			}
			keys := make([]string, 0, len(stage))
			for _, k := range stage {
				keys = append(keys, pgx.Identifier{k.Field}.Sanitize()+" "+direction(k.Dir))
			}
			sql += " ORDER BY " + strings.Join(keys, ", ")
			sorted = true
		case book.Limit:
			if limited {
				return "", nil, fmt.Errorf("%w: limit must come once", book.ErrBadRequest)
			}
			sql += " LIMIT " + st.bind(int64(stage))
			limited = true
		default:
			return "", nil, fmt.Errorf("%w: unsupported pipeline stage %T", book.ErrBadRequest, stage)
		}
	}
	return sql, st.args, nil
}
