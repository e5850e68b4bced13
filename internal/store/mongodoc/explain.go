package mongodoc

import (
	"time"

	"bookquery/internal/book"

	"go.mongodb.org/mongo-driver/bson"
)

// parsePlan reads an explain reply at executionStats verbosity. The reported
// stage is the innermost one of the winning plan (IXSCAN, COLLSCAN, ...).
func parsePlan(raw bson.M) book.Plan {
	stats := subDoc(raw, "executionStats")
	plan := book.Plan{
		Returned:      asInt64(stats["nReturned"]),
		KeysExamined:  asInt64(stats["totalKeysExamined"]),
		DocsExamined:  asInt64(stats["totalDocsExamined"]),
		ExecutionTime: time.Duration(asInt64(stats["executionTimeMillis"])) * time.Millisecond,
		Raw:           toDocument(raw),
	}

	winning := subDoc(subDoc(raw, "queryPlanner"), "winningPlan")
	if qp := subDoc(winning, "queryPlan"); len(qp) > 0 {
		winning = qp
	}
	for stage := winning; len(stage) > 0; stage = subDoc(stage, "inputStage") {
		if name, ok := stage["stage"].(string); ok {
			plan.Stage = name
		}
		if idx, ok := stage["indexName"].(string); ok && plan.IndexName == "" {
			plan.IndexName = idx
		}
	}
	return plan
}

func subDoc(m bson.M, key string) bson.M {
	switch v := m[key].(type) {
	case bson.M:
		return v
	case bson.D:
		out := make(bson.M, len(v))
		for _, e := range v {
			out[e.Key] = e.Value
		}
		return out
	}
	return nil
}

func asInt64(v any) int64 {
	switch x := v.(type) {
	case int32:
		return int64(x)
	case int64:
		return x
	case float64:
		return int64(x)
	case int:
		return int64(x)
	}
	return 0
}
