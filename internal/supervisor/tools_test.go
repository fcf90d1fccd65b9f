package supervisor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepresearch/pkg/models"
)

type fakePlanner struct {
	query, focus string
	out          []models.SubQuery
}

func (p *fakePlanner) PlanWithFocus(ctx context.Context, query, focus string) ([]models.SubQuery, error) {
	p.query, p.focus = query, focus
	return p.out, nil
}

type fakeRetriever struct {
	got    []models.SubQuery
	digest *models.FindingsDigest
	err    error
}

func (r *fakeRetriever) Retrieve(ctx context.Context, query string, subqueries []models.SubQuery) (*models.FindingsDigest, error) {
	r.got = subqueries
	return r.digest, r.err
}

func TestResearchToolSpec(t *testing.T) {
	spec := NewResearchTool(nil, nil).Spec()

	assert.Equal(t, ResearchToolName, spec.Name)
	assert.NotEmpty(t, spec.Description)
	assert.Equal(t, []string{"research_query"}, spec.InputSchema["required"])

	props, ok := spec.InputSchema["properties"].(map[string]any)
	require.True(t, ok)
	query := props["research_query"].(map[string]any)
	assert.Equal(t, "string", query["type"])
	assert.NotEmpty(t, query["description"])
	assert.Contains(t, props, "focus")
}

func TestResearchToolExecute(t *testing.T) {
	subqueries := []models.SubQuery{models.FallbackSubQuery("fusion")}
	planner := &fakePlanner{out: subqueries}
	retriever := &fakeRetriever{digest: &models.FindingsDigest{
		Query:   "fusion",
		Entries: []models.DigestEntry{{SubQuery: subqueries[0], Results: []models.SearchResult{{URL: "https://a.com", Title: "A"}}}},
		Sources: []models.Source{{URL: "https://a.com", Title: "A"}},
	}}

	out, err := NewResearchTool(planner, retriever).Execute(context.Background(), json.RawMessage(`{"research_query":" fusion ","focus":"costs"}`))
	require.NoError(t, err)

	assert.Equal(t, "fusion", planner.query)
	assert.Equal(t, "costs", planner.focus)
	assert.Equal(t, subqueries, retriever.got)
	assert.Contains(t, out.Content, "https://a.com")
	assert.Equal(t, []models.Source{{URL: "https://a.com", Title: "A"}}, out.Sources)
}

func TestResearchToolRejectsBadInput(t *testing.T) {
	tool := NewResearchTool(&fakePlanner{}, &fakeRetriever{})

	_, err := tool.Execute(context.Background(), json.RawMessage(`{"research_query": 3}`))
	assert.Error(t, err)

	_, err = tool.Execute(context.Background(), json.RawMessage(`{"focus":"x"}`))
	assert.EqualError(t, err, "research_query is required")
}

func TestErrorResultMentionsMissingSources(t *testing.T) {
	total := &models.RetrievalError{Failed: 2, Total: 2, Errs: []error{errors.New("down"), errors.New("down")}}
	assert.Contains(t, errorResult(total), "No sources found")

	assert.NotContains(t, errorResult(errors.New("planning failed")), "No sources found")
}
