package retriever

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/deepresearch/pkg/models"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://Example.com/Path/", "https://example.com/Path"},
		{"https://www.example.com/a#section", "https://example.com/a"},
		{" HTTP://example.com ", "http://example.com"},
		{"https://example.com/a?b=1", "https://example.com/a?b=1"},
		{"not a url/", "not a url"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeURL(tt.in), tt.in)
	}
}

func TestDedupeFirstOccurrenceWins(t *testing.T) {
	in := []models.SearchResult{
		{URL: "https://a.example", Title: "first", SubQueryIndex: 0},
		{URL: "https://b.example"},
		{URL: "https://www.a.example/", Title: "second", SubQueryIndex: 2},
		{URL: ""},
	}

	out := Dedupe(in)

	assert.Len(t, out, 2)
	assert.Equal(t, "first", out[0].Title)
	assert.Equal(t, "https://b.example", out[1].URL)
}

func TestDedupeIsIdempotent(t *testing.T) {
	in := []models.SearchResult{
		{URL: "https://a.example/x"}, {URL: "https://a.example/x/"}, {URL: "https://b.example"},
		{URL: "https://B.example#top"}, {URL: "https://c.example"}, {URL: "https://a.example/x"},
	}

	once := Dedupe(in)
	twice := Dedupe(once)

	assert.Equal(t, once, twice)
	assert.Len(t, once, 3)
}
