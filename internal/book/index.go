package book

import (
	"strconv"
	"strings"
	"time"
)

// IndexKey is one field of an index in key order.
type IndexKey struct {
	Field string    `json:"field" validate:"required"`
	Dir   Direction `json:"direction" validate:"oneof=1 -1"`
}

// IndexSpec is an ordered single-field or compound index definition.
type IndexSpec []IndexKey

// Name returns the conventional index name, e.g. "author_1_published_year_1".
func (s IndexSpec) Name() string {
	parts := make([]string, 0, len(s)*2)
	for _, k := range s {
		parts = append(parts, k.Field, strconv.Itoa(int(k.Dir)))
	}
	return strings.Join(parts, "_")
}

func (s IndexSpec) validate() error {
	if len(s) == 0 {
		return badRequestf("index needs at least one key")
	}
	seen := make(map[string]bool, len(s))
	for _, k := range s {
		if err := ValidateField(k.Field); err != nil {
			return err
		}
		if !k.Dir.valid() {
			return badRequestf("index direction for %s must be 1 or -1", k.Field)
		}
		if seen[k.Field] {
			return badRequestf("index repeats field %s", k.Field)
		}
		seen[k.Field] = true
	}
	return nil
}

// Plan is the store's report on how it executed a filter.
type Plan struct {
	Stage         string        `json:"stage"`
	IndexName     string        `json:"index_name,omitempty"`
	Returned      int64         `json:"returned"`
	KeysExamined  int64         `json:"keys_examined"`
	DocsExamined  int64         `json:"docs_examined"`
	ExecutionTime time.Duration `json:"execution_time_ns"`
	Raw           Document      `json:"raw,omitempty"`
}

// UsedIndex reports whether the winning plan read an index.
func (p Plan) UsedIndex() bool {
	return p.IndexName != ""
}
