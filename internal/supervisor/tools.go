package supervisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/rs/zerolog/log"

	"github.com/deepresearch/pkg/models"
)

// ResearchToolName is the tool exposed to the reasoning model
const ResearchToolName = "research_search"

// ToolOutput is the result of one tool execution
type ToolOutput struct {
	Content string
	Sources []models.Source
}

// Tool is a capability the reasoning model can invoke
type Tool interface {
	Spec() ToolSpec
	Execute(ctx context.Context, input json.RawMessage) (*ToolOutput, error)
}

// Planner decomposes a research query into sub-queries
type Planner interface {
	PlanWithFocus(ctx context.Context, query, focus string) ([]models.SubQuery, error)
}

// Retriever turns sub-queries into a findings digest
type Retriever interface {
	Retrieve(ctx context.Context, query string, subqueries []models.SubQuery) (*models.FindingsDigest, error)
}

// ResearchInput is the input accepted by research_search
type ResearchInput struct {
	ResearchQuery string `json:"research_query" jsonschema_description:"The research question or angle to investigate in this round"`
	Focus         string `json:"focus,omitempty" jsonschema_description:"Optional narrower focus, e.g. recent statistics or criticism"`
}

// ResearchTool runs the planner and the retriever for one tool call
type ResearchTool struct {
	planner   Planner
	retriever Retriever
	spec      ToolSpec
}

// NewResearchTool creates the research_search tool
func NewResearchTool(planner Planner, retriever Retriever) *ResearchTool {
	return &ResearchTool{
		planner:   planner,
		retriever: retriever,
		spec: ToolSpec{
			Name: ResearchToolName,
			Description: "Plans focused sub-queries for a research question, searches the web, " +
				"and returns findings grouped by sub-query with highlights and source URLs.",
			InputSchema: inputSchema(&ResearchInput{}),
		},
	}
}

// Spec returns the tool declaration sent to the model
func (t *ResearchTool) Spec() ToolSpec {
	return t.spec
}

// Execute plans and retrieves. A total retrieval failure is returned as an
// error; the caller reports it to the model as an error tool result.
func (t *ResearchTool) Execute(ctx context.Context, input json.RawMessage) (*ToolOutput, error) {
	var in ResearchInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid %s input: %w", ResearchToolName, err)
	}
	query := strings.TrimSpace(in.ResearchQuery)
	if query == "" {
		return nil, errors.New("research_query is required")
	}

	subqueries, err := t.planner.PlanWithFocus(ctx, query, in.Focus)
	if err != nil {
		return nil, fmt.Errorf("planning failed: %w", err)
	}

	digest, err := t.retriever.Retrieve(ctx, query, subqueries)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}
	if digest.Degraded() {
		log.Warn().Str("query", query).Msg("Research round returned a degraded digest")
	}

	return &ToolOutput{
		Content: digest.Render(),
		Sources: digest.Sources,
	}, nil
}

// errorResult is the tool result text for a failed call
func errorResult(err error) string {
	var rerr *models.RetrievalError
	if errors.As(err, &rerr) && rerr.AllFailed() {
		return fmt.Sprintf("research_search failed: every sub-query search failed (%v). No sources found for this round.", err)
	}
	return fmt.Sprintf("research_search failed: %v", err)
}

// inputSchema reflects v into a flat object schema
func inputSchema(v any) map[string]any {
	r := &jsonschema.Reflector{ExpandedStruct: true, DoNotReference: true}
	schema := r.Reflect(v)

	out := map[string]any{"type": "object", "required": append([]string(nil), schema.Required...)}
	b, err := json.Marshal(schema.Properties)
	if err != nil {
		panic(err) // reflected schemas always marshal
	}
	var props map[string]any
	if err := json.Unmarshal(b, &props); err != nil {
		panic(err)
	}
	out["properties"] = props
	return out
}
