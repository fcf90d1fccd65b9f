package retriever

import (
	"net/url"
	"strings"

	"github.com/deepresearch/pkg/models"
)

// NormalizeURL returns the key used to detect duplicate results: scheme and
// host are lowercased, a leading "www." is dropped, and the fragment and any
// trailing slash are removed.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(strings.ToLower(raw), "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawPath = ""
	return u.String()
}

// Dedupe drops results whose normalized URL was already seen. The first
// occurrence wins and relative order is kept, so Dedupe(Dedupe(x)) == Dedupe(x).
func Dedupe(results []models.SearchResult) []models.SearchResult {
	seen := make(map[string]struct{}, len(results))
	out := make([]models.SearchResult, 0, len(results))
	for _, r := range results {
		key := NormalizeURL(r.URL)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}
