package mongodoc

import (
	"fmt"

	"bookquery/internal/book"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// idValue turns a hex identifier back into the ObjectID it was rendered from.
func idValue(v any) any {
	if s, ok := v.(string); ok {
		if oid, err := primitive.ObjectIDFromHex(s); err == nil {
			return oid
		}
	}
	return v
}

// filterDoc compiles a conjunction. Several conditions on one field merge into
// a single operator document, since a repeated key would shadow the first.
func filterDoc(f book.Filter) bson.D {
	out := bson.D{}
	pos := make(map[string]int, len(f))
	for _, c := range f {
		v := c.Value
		if c.Field == book.FieldID {
			v = idValue(v)
		}
		i, seen := pos[c.Field]
		if !seen {
			if c.Op == book.OpEq {
				out = append(out, bson.E{Key: c.Field, Value: v})
			} else {
				out = append(out, bson.E{Key: c.Field, Value: bson.D{{Key: string(c.Op), Value: v}}})
			}
			pos[c.Field] = len(out) - 1
			continue
		}
		ops, ok := out[i].Value.(bson.D)
		if !ok {
			ops = bson.D{{Key: string(book.OpEq), Value: out[i].Value}}
		}
		out[i].Value = append(ops, bson.E{Key: string(c.Op), Value: v})
	}
	return out
}

func projectionDoc(p *book.Projection) bson.D {
	if p == nil {
		return nil
	}
	out := make(bson.D, 0, len(p.Fields)+1)
	for _, f := range p.Fields {
		out = append(out, bson.E{Key: f, Value: 1})
	}
	if p.ExcludeID {
		out = append(out, bson.E{Key: book.FieldID, Value: 0})
	}
	return out
}

// sortDoc orders by the key and then by _id, keeping ties in a stable order.
func sortDoc(k *book.SortKey) bson.D {
	if k == nil {
		return nil
	}
	out := bson.D{{Key: k.Field, Value: int(k.Dir)}}
	if k.Field != book.FieldID {
		out = append(out, bson.E{Key: book.FieldID, Value: 1})
	}
	return out
}

func keysDoc(spec book.IndexSpec) bson.D {
	out := make(bson.D, 0, len(spec))
	for _, k := range spec {
		out = append(out, bson.E{Key: k.Field, Value: int(k.Dir)})
	}
	return out
}

func keyExpr(e book.Expr) (any, error) {
	switch e := e.(type) {
	case book.FieldRef:
		return "$" + string(e), nil
	case book.DecadeOf:
		year := "$" + string(e)
		return bson.D{{Key: "$subtract", Value: bson.A{
			year,
			bson.D{{Key: "$mod", Value: bson.A{year, 10}}},
		}}}, nil
	}
	return nil, fmt.Errorf("%w: unsupported group key %T", book.ErrBadRequest, e)
}

func pipelineDoc(p book.Pipeline) (mongo.Pipeline, error) {
	out := make(mongo.Pipeline, 0, len(p))
	for _, stage := range p {
		switch st := stage.(type) {
		case book.Group:
			key, err := keyExpr(st.Key)
			if err != nil {
				return nil, err
			}
			g := bson.D{{Key: book.GroupKey, Value: key}}
			for _, acc := range st.Accumulators {
				switch acc.Op {
				case book.AccAvg:
					g = append(g, bson.E{Key: acc.As, Value: bson.D{{Key: "$avg", Value: "$" + acc.Field}}})
				case book.AccCount:
					g = append(g, bson.E{Key: acc.As, Value: bson.D{{Key: "$sum", Value: 1}}})
				default:
					return nil, fmt.Errorf("%w: unsupported accumulator %q", book.ErrBadRequest, acc.Op)
				}
			}
			out = append(out, bson.D{{Key: "$group", Value: g}})
		case book.SortStage:
			keys := make(bson.D, 0, len(st))
			for _, k := range st {
				keys = append(keys, bson.E{Key: k.Field, Value: int(k.Dir)})
			}
			out = append(out, bson.D{{Key: "$sort", Value: keys}})
		case book.Limit:
			out = append(out, bson.D{{Key: "$limit", Value: int64(st)}})
		default:
			return nil, fmt.Errorf("%w: unsupported pipeline stage %T", book.ErrBadRequest, stage)
		}
	}
	return out, nil
}

func explainCmd(collection string, f book.Filter) bson.D {
	return bson.D{
		{Key: "explain", Value: bson.D{
			{Key: "find", Value: collection},
			{Key: "filter", Value: filterDoc(f)},
		}},
		{Key: "verbosity", Value: "executionStats"},
	}
}
