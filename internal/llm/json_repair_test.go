package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairJSON_ValidJSON(t *testing.T) {
	valid := `{"subqueries": [{"query": "fusion", "priority": 1}]}`

	repaired, stats, err := RepairJSON(valid)

	require.NoError(t, err)
	assert.False(t, stats.WasRepaired)
	assert.Equal(t, valid, repaired)
	assert.Equal(t, len(valid), stats.OriginalBytes)
	assert.Equal(t, len(valid), stats.RepairedBytes)
}

func TestRepairJSON_TrailingCommas(t *testing.T) {
	repaired, stats, err := RepairJSON(`{"subqueries": [{"query": "fusion", "priority": 1,},]}`)

	require.NoError(t, err)
	assert.True(t, stats.WasRepaired)
	assert.Equal(t, `{"subqueries": [{"query": "fusion", "priority": 1}]}`, repaired)
	assert.Equal(t, []string{"trailing_commas"}, stats.RepairStrategies)
	assert.Equal(t, 1, stats.ErrorsFixed)
}

func TestRepairJSON_IncompleteObject(t *testing.T) {
	repaired, stats, err := RepairJSON(`{"subqueries": [{"query": "fusion", "priority": 1}`)

	require.NoError(t, err)
	assert.Contains(t, stats.RepairStrategies, "completion")
	assert.Equal(t, `{"subqueries": [{"query": "fusion", "priority": 1}]}`, repaired)
}

func TestRepairJSON_TruncatedString(t *testing.T) {
	repaired, _, err := RepairJSON(`{"summary": "tokamak records were bro`)

	require.NoError(t, err)
	var out map[string]string
	require.NoError(t, json.Unmarshal([]byte(repaired), &out))
	assert.Equal(t, "tokamak records were bro", out["summary"])
}

func TestRepairJSON_Comments(t *testing.T) {
	input := `{
  // planner note
  "subqueries": [] /* none */
}`
	repaired, stats, err := RepairJSON(input)

	require.NoError(t, err)
	assert.Equal(t, 2, stats.CommentsLost)
	assert.True(t, json.Valid([]byte(repaired)))
}

func TestRepairJSON_UnquotedKeys(t *testing.T) {
	repaired, stats, err := RepairJSON(`{subqueries: [{query: "fusion", priority: 2}]}`)

	require.NoError(t, err)
	assert.Contains(t, stats.RepairStrategies, "key_quotes")

	var out struct {
		Subqueries []struct {
			Query    string `json:"query"`
			Priority int    `json:"priority"`
		} `json:"subqueries"`
	}
	require.NoError(t, json.Unmarshal([]byte(repaired), &out))
	require.Len(t, out.Subqueries, 1)
	assert.Equal(t, 2, out.Subqueries[0].Priority)
}

func TestRepairJSON_SingleQuotesUseLibrary(t *testing.T) {
	repaired, stats, err := RepairJSON(`{'summary': 'ok'}`)

	require.NoError(t, err)
	assert.Contains(t, stats.RepairStrategies, "jsonrepair_library")
	assert.JSONEq(t, `{"summary":"ok"}`, repaired)
}

func TestCloseOpenStructures(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"balanced", `{"a": [1]}`, `{"a": [1]}`},
		{"nested", `{"a": [{"b": 1}`, `{"a": [{"b": 1}]}`},
		{"brace in string", `{"a": "x}"`, `{"a": "x}"}`},
		{"dangling comma", `{"a": [1, 2,`, `{"a": [1, 2]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, closeOpenStructures(tt.input))
		})
	}
}
