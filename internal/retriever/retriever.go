// Package retriever fans sub-queries out to the search provider and digests
// the merged results with a lightweight model.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/deepresearch/internal/batch"
	"github.com/deepresearch/internal/config"
	"github.com/deepresearch/internal/llm"
	"github.com/deepresearch/internal/prompts"
	"github.com/deepresearch/internal/search"
	"github.com/deepresearch/pkg/models"
)

// ErrNoSubQueries is returned when Retrieve is called with nothing to search
var ErrNoSubQueries = errors.New("no sub-queries to retrieve")

// Options tune the fan-out of one retrieval
type Options struct {
	NumResults        int
	SimilarResults    int
	PriorityThreshold int
	MaxHighlights     int
	Concurrency       int
}

// OptionsFromConfig maps the search configuration onto retriever options
func OptionsFromConfig(cfg config.SearchConfig) Options {
	return Options{
		NumResults:        cfg.NumResults,
		SimilarResults:    cfg.SimilarResults,
		PriorityThreshold: cfg.PriorityThreshold,
		MaxHighlights:     cfg.MaxHighlights,
		Concurrency:       cfg.Concurrency,
	}
}

// Retriever drives the search client for a set of sub-queries
type Retriever struct {
	search    search.Client
	completer llm.Completer
	builder   *prompts.PromptBuilder
	opts      Options
}

// New creates a retriever
func New(client search.Client, completer llm.Completer, opts Options) *Retriever {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.SimilarResults <= 0 {
		opts.SimilarResults = opts.NumResults
	}
	return &Retriever{
		search:    client,
		completer: completer,
		builder:   prompts.NewPromptBuilder(),
		opts:      opts,
	}
}

// Retrieve searches every sub-query concurrently, expands high-priority ones
// with one similarity search, dedupes by URL and digests the result.
//
// A failed sub-query is recorded on its digest entry and contributes nothing.
// When every sub-query fails, Retrieve returns a *models.RetrievalError for
// which AllFailed reports true, and no digest.
func (r *Retriever) Retrieve(ctx context.Context, query string, subqueries []models.SubQuery) (*models.FindingsDigest, error) {
	if len(subqueries) == 0 {
		return nil, ErrNoSubQueries
	}
	start := time.Now()

	queue := batch.ConfigureTaskQueue(batch.Config{MaxWorkers: r.opts.Concurrency})
	for i, sq := range subqueries {
		i, sq := i, sq
		queue.AddTask(batch.NewFuncTask(taskID(i), func(ctx context.Context) (interface{}, error) {
			return r.searchOne(ctx, i, sq)
		}))
	}
	results := queue.ProcessAll(ctx)

	entries := make([]models.DigestEntry, len(subqueries))
	var raw []models.SearchResult
	var errs []error
	for i, sq := range subqueries {
		entries[i].SubQuery = sq
		res := results[taskID(i)]
		if res == nil {
			entries[i].Err = fmt.Errorf("sub-query %d produced no result", i+1)
		} else if res.Error != nil {
			entries[i].Err = res.Error
		}
		if entries[i].Err != nil {
			errs = append(errs, fmt.Errorf("sub-query %d (%s): %w", i+1, sq.Text, entries[i].Err))
			log.Warn().Err(entries[i].Err).Int("subquery", i+1).Str("text", sq.Text).Msg("Sub-query search failed")
			continue
		}
		raw = append(raw, res.Result.([]models.SearchResult)...)
	}

	if len(errs) == len(subqueries) {
		return nil, &models.RetrievalError{Failed: len(errs), Total: len(subqueries), Errs: errs}
	}

	unique := Dedupe(byPriority(raw, subqueries))
	for _, res := range unique {
		entries[res.SubQueryIndex].Results = append(entries[res.SubQueryIndex].Results, res)
	}

	digest := &models.FindingsDigest{
		Query:   query,
		Entries: entries,
		Sources: sourcesOf(unique),
	}
	if len(unique) > 0 {
		r.summarize(ctx, digest)
	}

	log.Info().
		Int("subqueries", len(subqueries)).
		Int("failed", len(errs)).
		Int("raw_results", len(raw)).
		Int("unique_results", len(unique)).
		Dur("duration", time.Since(start)).
		Msg("Retrieval completed")

	return digest, nil
}

func taskID(i int) string {
	return fmt.Sprintf("subquery-%d", i)
}

// searchOne runs the primary search for one sub-query and, for high-priority
// sub-queries, a single similarity expansion on the best-scoring hit.
func (r *Retriever) searchOne(ctx context.Context, index int, sq models.SubQuery) ([]models.SearchResult, error) {
	primary, err := r.search.Search(ctx, sq.Text, search.Options{
		NumResults:    r.opts.NumResults,
		Period:        sq.Period,
		Type:          sq.Type,
		MaxHighlights: r.opts.MaxHighlights,
	})
	if err != nil {
		return nil, err
	}
	for i := range primary {
		primary[i].SubQueryIndex = index
	}

	if sq.Priority > r.opts.PriorityThreshold || len(primary) == 0 {
		return primary, nil
	}

	best := primary[0]
	for _, res := range primary[1:] {
		if res.Score > best.Score {
			best = res
		}
	}

	similar, err := r.search.FindSimilar(ctx, best.URL, search.Options{
		NumResults:    r.opts.SimilarResults,
		MaxHighlights: r.opts.MaxHighlights,
	})
	if err != nil {
		log.Warn().Err(err).Str("url", best.URL).Int("subquery", index+1).Msg("Similarity expansion failed")
		return primary, nil
	}
	for i := range similar {
		similar[i].SubQueryIndex = index
	}
	return append(primary, similar...), nil
}

// byPriority orders results so that those of more important sub-queries come
// first; ties keep planner order. Dedupe then credits a shared URL to the
// highest-priority sub-query that found it.
func byPriority(results []models.SearchResult, subqueries []models.SubQuery) []models.SearchResult {
	out := make([]models.SearchResult, len(results))
	copy(out, results)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := subqueries[out[i].SubQueryIndex], subqueries[out[j].SubQueryIndex]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return out[i].SubQueryIndex < out[j].SubQueryIndex
	})
	return out
}

func sourcesOf(results []models.SearchResult) []models.Source {
	sources := make([]models.Source, 0, len(results))
	for _, res := range results {
		sources = append(sources, models.Source{URL: res.URL, Title: res.Title})
	}
	return sources
}

type digestResponse struct {
	Summary string `json:"summary"`
	Notes   []struct {
		Index int    `json:"index"`
		Note  string `json:"note"`
	} `json:"notes"`
}

// summarize fills in the digest summary and per-entry notes. A failed model
// call leaves the digest with highlights only.
func (r *Retriever) summarize(ctx context.Context, digest *models.FindingsDigest) {
	if r.completer == nil {
		return
	}

	raw, err := r.completer.Call(ctx, r.builder.BuildDigestPrompt(digest.Query, digest.Entries))
	if err != nil {
		log.Warn().Err(err).Msg("Digest call failed; returning highlights only")
		return
	}

	var resp digestResponse
	if _, err := llm.DecodeJSON(raw, &resp); err != nil {
		log.Warn().Err(err).Msg("Digest output unusable; returning highlights only")
		return
	}

	digest.Summary = strings.TrimSpace(resp.Summary)
	for _, n := range resp.Notes {
		i := n.Index - 1
		if i < 0 || i >= len(digest.Entries) || digest.Entries[i].Err != nil {
			continue
		}
		digest.Entries[i].Note = strings.TrimSpace(n.Note)
	}
}
