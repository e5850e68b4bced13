package pgdoc

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"bookquery/internal/book"
)

type planNode struct {
	NodeType             string     `json:"Node Type"`
	IndexName            string     `json:"Index Name"`
	ActualRows           float64    `json:"Actual Rows"`
	ActualLoops          float64    `json:"Actual Loops"`
	RowsRemovedByFilter  float64    `json:"Rows Removed by Filter"`
	RowsRemovedByRecheck float64    `json:"Rows Removed by Index Recheck"`
	Plans                []planNode `json:"Plans"`
}

type explainOutput struct {
	Plan          planNode `json:"Plan"`
	ExecutionTime float64  `json:"Execution Time"`
}

// parsePlan reads the output of EXPLAIN (ANALYZE, FORMAT JSON). Index nodes
// count toward keys examined; heap and sequential scans count rows read,
// including those the filter discarded.
func parsePlan(raw []byte) (book.Plan, error) {
	var out []explainOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return book.Plan{}, fmt.Errorf("decode explain output: %w", err)
	}
	if len(out) == 0 {
		return book.Plan{}, fmt.Errorf("empty explain output")
	}
	root := out[0]
	plan := book.Plan{
		Stage:         root.Plan.NodeType,
		Returned:      int64(root.Plan.ActualRows * loops(root.Plan)),
		ExecutionTime: time.Duration(root.ExecutionTime * float64(time.Millisecond)),
	}
	walk(root.Plan, &plan)

	var rawDocs []book.Document
	if err := json.Unmarshal(raw, &rawDocs); err == nil && len(rawDocs) > 0 {
		plan.Raw = rawDocs[0]
	}
	return plan, nil
}

func loops(n planNode) float64 {
	if n.ActualLoops <= 0 {
		return 1
	}
	return n.ActualLoops
}

func walk(n planNode, plan *book.Plan) {
	rows := n.ActualRows * loops(n)
	switch {
	case n.NodeType == "Bitmap Index Scan":
		plan.KeysExamined += int64(rows)
	case n.NodeType == "Index Scan" || n.NodeType == "Index Only Scan":
		plan.KeysExamined += int64(rows)
		plan.DocsExamined += int64(rows + n.RowsRemovedByFilter)
	case strings.HasSuffix(n.NodeType, "Scan"):
		plan.DocsExamined += int64(rows + n.RowsRemovedByFilter + n.RowsRemovedByRecheck)
	}
	if plan.IndexName == "" && n.IndexName != "" {
		plan.IndexName = strings.TrimPrefix(n.IndexName, book.Collection+"_")
	}
	for _, child := range n.Plans {
		walk(child, plan)
	}
}
