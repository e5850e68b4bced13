package memdoc

import (
	"context"
	"fmt"
	"maps"
	"math"
	"sort"

	"bookquery/internal/book"
)

func (s *Store) Aggregate(ctx context.Context, p book.Pipeline) (book.Cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	rows := make([]book.Document, len(s.docs))
	for i, d := range s.docs {
		rows[i] = maps.Clone(d)
	}
	s.mu.RUnlock()

	for _, st := range p {
		switch st := st.(type) {
		case book.Group:
			out, err := group(rows, st)
			if err != nil {
				return nil, err
			}
			rows = out
		case book.SortStage:
			sort.SliceStable(rows, func(i, j int) bool {
				for _, k := range st {
					if c := compareValues(rows[i][k.Field], rows[j][k.Field]) * int(k.Dir); c != 0 {
						return c < 0
					}
				}
				return false
			})
		case book.Limit:
			if int64(st) < int64(len(rows)) {
				rows = rows[:st]
			}
		default:
			return nil, fmt.Errorf("%w: unsupported pipeline stage %T", book.ErrBadRequest, st)
		}
	}
	return NewCursor(rows), nil
}

type bucket struct {
	key   any
	count int64
	sums  map[string]float64
	ns    map[string]int64
}

func group(rows []book.Document, g book.Group) ([]book.Document, error) {
	var order []*bucket
	byKey := make(map[any]*bucket)
	for _, d := range rows {
		key, err := groupKey(d, g.Key)
		if err != nil {
			return nil, err
		}
		b, ok := byKey[key]
		if !ok {
			b = &bucket{key: key, sums: map[string]float64{}, ns: map[string]int64{}}
			byKey[key] = b
			order = append(order, b)
		}
		b.count++
		for _, acc := range g.Accumulators {
			if acc.Op != book.AccAvg {
				continue
			}
			if v, ok := toFloat(d[acc.Field]); ok && !math.IsNaN(v) {
				b.sums[acc.As] += v
				b.ns[acc.As]++
			}
		}
	}

	out := make([]book.Document, 0, len(order))
	for _, b := range order {
		doc := book.Document{book.GroupKey: b.key}
		for _, acc := range g.Accumulators {
			switch acc.Op {
			case book.AccCount:
				doc[acc.As] = b.count
			case book.AccAvg:
				if n := b.ns[acc.As]; n > 0 {
					doc[acc.As] = b.sums[acc.As] / float64(n)
				} else {
					doc[acc.As] = nil
				}
			default:
				return nil, fmt.Errorf("%w: unsupported accumulator %q", book.ErrBadRequest, acc.Op)
			}
		}
		out = append(out, doc)
	}
	return out, nil
}

func groupKey(d book.Document, e book.Expr) (any, error) {
	switch e := e.(type) {
	case book.FieldRef:
		return d[string(e)], nil
	case book.DecadeOf:
		switch y := d[string(e)].(type) {
		case int64:
			return book.Decade(y), nil
		case int:
			return book.Decade(int64(y)), nil
		case int32:
			return book.Decade(int64(y)), nil
		case float64:
			if y == math.Trunc(y) {
				return book.Decade(int64(y)), nil
			}
		}
		return nil, nil
	}
	return nil, fmt.Errorf("%w: unsupported group key %T", book.ErrBadRequest, e)
}
