// Package planner decomposes a research question into tagged sub-queries.
package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/deepresearch/internal/llm"
	"github.com/deepresearch/internal/prompts"
	"github.com/deepresearch/pkg/models"
)

// ErrEmptyQuery is returned when Plan is called without a question
var ErrEmptyQuery = errors.New("research query is empty")

// Options bound the number of sub-queries accepted from the model
type Options struct {
	MinQueries int
	MaxQueries int
}

// DefaultOptions returns the standard 3 to 5 sub-query window
func DefaultOptions() Options {
	return Options{MinQueries: 3, MaxQueries: 5}
}

// Planner asks a lightweight model for a structured decomposition of a query
type Planner struct {
	completer llm.Completer
	builder   *prompts.PromptBuilder
	opts      Options
}

// New creates a planner. Zero-valued bounds fall back to DefaultOptions.
func New(completer llm.Completer, opts Options) *Planner {
	def := DefaultOptions()
	if opts.MinQueries <= 0 {
		opts.MinQueries = def.MinQueries
	}
	if opts.MaxQueries < opts.MinQueries {
		opts.MaxQueries = def.MaxQueries
		if opts.MaxQueries < opts.MinQueries {
			opts.MaxQueries = opts.MinQueries
		}
	}
	return &Planner{
		completer: completer,
		builder:   prompts.NewPromptBuilder(),
		opts:      opts,
	}
}

// Plan returns between MinQueries and MaxQueries sub-queries, or exactly one
// fallback sub-query built from the verbatim query when the model call fails
// or its output does not validate. Only a blank query is an error.
func (p *Planner) Plan(ctx context.Context, query string) ([]models.SubQuery, error) {
	return p.PlanWithFocus(ctx, query, "")
}

// PlanWithFocus is Plan with an optional angle for this research round
func (p *Planner) PlanWithFocus(ctx context.Context, query, focus string) ([]models.SubQuery, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	prompt := p.builder.BuildPlannerPrompt(query, strings.TrimSpace(focus), p.opts.MinQueries, p.opts.MaxQueries)
	raw, err := p.completer.Call(ctx, prompt)
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("Planner call failed; using single sub-query fallback")
		return []models.SubQuery{models.FallbackSubQuery(query)}, nil
	}

	subqueries, err := p.Parse(raw)
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("Planner output rejected; using single sub-query fallback")
		return []models.SubQuery{models.FallbackSubQuery(query)}, nil
	}

	log.Debug().Int("subqueries", len(subqueries)).Str("query", query).Msg("Planned sub-queries")
	return subqueries, nil
}

type planResponse struct {
	Subqueries []struct {
		Query    string `json:"query"`
		Type     string `json:"type"`
		Period   string `json:"time_period"`
		Priority int    `json:"priority"`
	} `json:"subqueries"`
}

// Parse validates raw model output. It returns a *models.PlanningParseError
// when the structure, field types, enum values or count are wrong.
func (p *Planner) Parse(raw string) ([]models.SubQuery, error) {
	var resp planResponse
	if _, err := llm.DecodeJSON(raw, &resp); err != nil {
		return nil, &models.PlanningParseError{Raw: raw, Reason: err.Error()}
	}

	n := len(resp.Subqueries)
	if n < p.opts.MinQueries || n > p.opts.MaxQueries {
		return nil, &models.PlanningParseError{
			Raw:    raw,
			Reason: fmt.Sprintf("expected %d-%d sub-queries, got %d", p.opts.MinQueries, p.opts.MaxQueries, n),
		}
	}

	out := make([]models.SubQuery, 0, n)
	for i, sq := range resp.Subqueries {
		text := strings.TrimSpace(sq.Query)
		ct := models.ContentType(strings.ToLower(strings.TrimSpace(sq.Type)))
		tp := models.TimePeriod(strings.ToLower(strings.TrimSpace(sq.Period)))

		var reason string
		switch {
		case text == "":
			reason = "empty query text"
		case !ct.Valid():
			reason = fmt.Sprintf("unknown type %q", sq.Type)
		case !tp.Valid():
			reason = fmt.Sprintf("unknown time_period %q", sq.Period)
		case sq.Priority < 1:
			reason = fmt.Sprintf("priority %d is not positive", sq.Priority)
		}
		if reason != "" {
			return nil, &models.PlanningParseError{Raw: raw, Reason: fmt.Sprintf("sub-query %d: %s", i+1, reason)}
		}

		out = append(out, models.SubQuery{Text: text, Type: ct, Period: tp, Priority: sq.Priority})
	}
	return out, nil
}
