package pgdoc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlan_SeqScan(t *testing.T) {
	raw := []byte(`[{
		"Plan": {
			"Node Type": "Seq Scan",
			"Relation Name": "books",
			"Actual Rows": 1,
			"Actual Loops": 1,
			"Rows Removed by Filter": 17
		},
		"Planning Time": 0.1,
		"Execution Time": 0.25
	}]`)

	plan, err := parsePlan(raw)
	require.NoError(t, err)
	assert.Equal(t, "Seq Scan", plan.Stage)
	assert.Equal(t, int64(1), plan.Returned)
	assert.Equal(t, int64(18), plan.DocsExamined)
	assert.Zero(t, plan.KeysExamined)
	assert.False(t, plan.UsedIndex())
	assert.Equal(t, 250*time.Microsecond, plan.ExecutionTime)
	assert.Equal(t, "books", plan.Raw["Plan"].(map[string]any)["Relation Name"])
}

func TestParsePlan_BitmapIndexScan(t *testing.T) {
	raw := []byte(`[{
		"Plan": {
			"Node Type": "Bitmap Heap Scan",
			"Actual Rows": 1,
			"Actual Loops": 1,
			"Rows Removed by Index Recheck": 0,
			"Plans": [{
				"Node Type": "Bitmap Index Scan",
				"Index Name": "books_title_1",
				"Actual Rows": 1,
				"Actual Loops": 1
			}]
		},
		"Execution Time": 0.05
	}]`)

	plan, err := parsePlan(raw)
	require.NoError(t, err)
	assert.Equal(t, "Bitmap Heap Scan", plan.Stage)
	assert.Equal(t, "title_1", plan.IndexName)
	assert.True(t, plan.UsedIndex())
	assert.Equal(t, int64(1), plan.KeysExamined)
	assert.Equal(t, int64(1), plan.DocsExamined)
}

func TestParsePlan_IndexScan(t *testing.T) {
	raw := []byte(`[{
		"Plan": {
			"Node Type": "Index Scan",
			"Index Name": "books_author_1_published_year_1",
			"Actual Rows": 2,
			"Actual Loops": 1,
			"Rows Removed by Filter": 1
		},
		"Execution Time": 0.04
	}]`)

	plan, err := parsePlan(raw)
	require.NoError(t, err)
	assert.Equal(t, "author_1_published_year_1", plan.IndexName)
	assert.Equal(t, int64(2), plan.KeysExamined)
	assert.Equal(t, int64(3), plan.DocsExamined)
	assert.Equal(t, int64(2), plan.Returned)
}

func TestParsePlan_Invalid(t *testing.T) {
	_, err := parsePlan([]byte(`{}`))
	assert.Error(t, err)

	_, err = parsePlan([]byte(`[]`))
	assert.Error(t, err)
}
