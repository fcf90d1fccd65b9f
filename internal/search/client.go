// Package search wraps the external neural search provider.
package search

import (
	"context"

	"github.com/deepresearch/pkg/models"
)

// Options narrow a single search call
type Options struct {
	NumResults    int
	Period        models.TimePeriod
	Type          models.ContentType
	MaxHighlights int
}

// Client is a search provider. Implementations do not retry; callers own that policy.
type Client interface {
	Search(ctx context.Context, query string, opts Options) ([]models.SearchResult, error)
	FindSimilar(ctx context.Context, url string, opts Options) ([]models.SearchResult, error)
}
