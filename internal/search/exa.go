package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/deepresearch/internal/capture"
	"github.com/deepresearch/internal/config"
	"github.com/deepresearch/pkg/models"
)

const providerName = "exa"

// Exa calls the Exa neural search API
type Exa struct {
	apiKey      string
	baseURL     string
	client      *http.Client
	limiter     *rate.Limiter
	callTimeout time.Duration
	now         func() time.Time
}

// NewExa constructs an Exa client. The API key is checked here, once, rather than per call.
func NewExa(cfg config.SearchConfig) (*Exa, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &models.ConfigError{Missing: []string{config.EnvSearchKey}}
	}
	return NewExaWithClient(cfg, &http.Client{}), nil
}

// NewExaWithClient constructs an Exa client using the supplied HTTP client
func NewExaWithClient(cfg config.SearchConfig, client *http.Client) *Exa {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.exa.ai"
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerSecond > 0 {
		burst := int(cfg.RatePerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	return &Exa{
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		client:      client,
		limiter:     limiter,
		callTimeout: cfg.CallTimeout,
		now:         time.Now,
	}
}

type exaContents struct {
	Highlights exaHighlights `json:"highlights"`
}

type exaHighlights struct {
	NumSentences     int `json:"numSentences"`
	HighlightsPerURL int `json:"highlightsPerUrl"`
}

type exaSearchRequest struct {
	Query              string      `json:"query"`
	Type               string      `json:"type"`
	NumResults         int         `json:"numResults"`
	Category           string      `json:"category,omitempty"`
	StartPublishedDate string      `json:"startPublishedDate,omitempty"`
	Contents           exaContents `json:"contents"`
}

type exaSimilarRequest struct {
	URL                 string      `json:"url"`
	NumResults          int         `json:"numResults"`
	ExcludeSourceDomain bool        `json:"excludeSourceDomain"`
	Contents            exaContents `json:"contents"`
}

type exaResponse struct {
	Results []struct {
		URL           string   `json:"url"`
		Title         string   `json:"title"`
		Score         float64  `json:"score"`
		PublishedDate string   `json:"publishedDate"`
		Author        string   `json:"author"`
		Highlights    []string `json:"highlights"`
	} `json:"results"`
}

// category maps a content type onto Exa's category filter; auto and general leave it unset
func category(t models.ContentType) string {
	switch t {
	case models.ContentNews:
		return "news"
	case models.ContentResearchPaper:
		return "research paper"
	case models.ContentPDF:
		return "pdf"
	}
	return ""
}

func contents(opts Options) exaContents {
	perURL := opts.MaxHighlights
	if perURL <= 0 {
		perURL = 3
	}
	return exaContents{Highlights: exaHighlights{NumSentences: 3, HighlightsPerURL: perURL}}
}

func numResults(opts Options) int {
	if opts.NumResults <= 0 {
		return 8
	}
	return opts.NumResults
}

// Search runs a neural search for query
func (e *Exa) Search(ctx context.Context, query string, opts Options) ([]models.SearchResult, error) {
	body := exaSearchRequest{
		Query:      query,
		Type:       "auto",
		NumResults: numResults(opts),
		Category:   category(opts.Type),
		Contents:   contents(opts),
	}
	if start := opts.Period.StartDate(e.now()); !start.IsZero() {
		body.StartPublishedDate = start.UTC().Format("2006-01-02T15:04:05.000Z")
	}
	return e.post(ctx, "/search", body)
}

// FindSimilar returns pages similar to url, excluding url's own domain
func (e *Exa) FindSimilar(ctx context.Context, url string, opts Options) ([]models.SearchResult, error) {
	body := exaSimilarRequest{
		URL:                 url,
		NumResults:          numResults(opts),
		ExcludeSourceDomain: true,
		Contents:            contents(opts),
	}
	return e.post(ctx, "/findSimilar", body)
}

func (e *Exa) post(ctx context.Context, path string, body interface{}) ([]models.SearchResult, error) {
	if e.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.callTimeout)
		defer cancel()
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, e.transportError(path, err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", e.apiKey)

	label := "exa" + strings.ReplaceAll(path, "/", "-")
	capture.WriteJSON(label+"-request", body)

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, e.transportError(path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		capture.WriteBlob(label+"-response-error", "txt", msg)
		return nil, &models.ProviderError{
			Provider: providerName,
			Status:   resp.StatusCode,
			Message:  strings.TrimSpace(string(msg)),
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, e.transportError(path, err)
	}

	var decoded exaResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		capture.WriteBlob(label+"-response-malformed", "txt", raw)
		return nil, &models.ProviderError{Provider: providerName, Status: resp.StatusCode, Message: "malformed response", Err: err}
	}
	capture.WriteBlob(label+"-response", "json", raw)

	results := make([]models.SearchResult, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		if r.URL == "" {
			continue
		}
		results = append(results, models.SearchResult{
			URL:           r.URL,
			Title:         strings.TrimSpace(r.Title),
			Highlights:    r.Highlights,
			Score:         r.Score,
			PublishedDate: r.PublishedDate,
			Author:        r.Author,
		})
	}

	log.Debug().
		Str("endpoint", path).
		Int("results", len(results)).
		Dur("duration", time.Since(start)).
		Msg("Search call completed")
	return results, nil
}

func (e *Exa) transportError(path string, err error) error {
	msg := "request failed"
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "request timed out"
	}
	return &models.ProviderError{Provider: providerName, Message: fmt.Sprintf("%s %s", path, msg), Err: err}
}
