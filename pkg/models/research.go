package models

import (
	"fmt"
	"strings"
	"time"
)

// ContentType narrows a sub-query to a category of documents
type ContentType string

const (
	ContentNews          ContentType = "news"
	ContentResearchPaper ContentType = "research_paper"
	ContentPDF           ContentType = "pdf"
	ContentGeneral       ContentType = "general"
	ContentAuto          ContentType = "auto"
)

// Valid reports whether c is one of the known content types
func (c ContentType) Valid() bool {
	switch c {
	case ContentNews, ContentResearchPaper, ContentPDF, ContentGeneral, ContentAuto:
		return true
	}
	return false
}

// TimePeriod expresses a recency preference for a sub-query
type TimePeriod string

const (
	PeriodRecent    TimePeriod = "recent"
	PeriodPastWeek  TimePeriod = "past_week"
	PeriodPastMonth TimePeriod = "past_month"
	PeriodPastYear  TimePeriod = "past_year"
	PeriodAny       TimePeriod = "any"
)

// Valid reports whether p is one of the known time periods
func (p TimePeriod) Valid() bool {
	switch p {
	case PeriodRecent, PeriodPastWeek, PeriodPastMonth, PeriodPastYear, PeriodAny:
		return true
	}
	return false
}

// StartDate returns the earliest publication date allowed by p, relative to now.
// The zero time means no lower bound.
func (p TimePeriod) StartDate(now time.Time) time.Time {
	switch p {
	case PeriodRecent:
		return now.AddDate(0, 0, -3)
	case PeriodPastWeek:
		return now.AddDate(0, 0, -7)
	case PeriodPastMonth:
		return now.AddDate(0, -1, 0)
	case PeriodPastYear:
		return now.AddDate(-1, 0, 0)
	default:
		return time.Time{}
	}
}

// SubQuery is one decomposed search query derived from the user's question.
// Lower Priority values are more important.
type SubQuery struct {
	Text     string      `json:"query"`
	Type     ContentType `json:"type"`
	Period   TimePeriod  `json:"time_period"`
	Priority int         `json:"priority"`
}

// FallbackSubQuery builds the single sub-query used when planning output is unusable
func FallbackSubQuery(query string) SubQuery {
	return SubQuery{
		Text:     strings.TrimSpace(query),
		Type:     ContentAuto,
		Period:   PeriodAny,
		Priority: 1,
	}
}

// SearchResult is a single ranked hit returned by the search provider.
// SubQueryIndex points back at the originating sub-query for lookup only.
type SearchResult struct {
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	Highlights    []string `json:"highlights,omitempty"`
	Score         float64  `json:"score"`
	PublishedDate string   `json:"published_date,omitempty"`
	Author        string   `json:"author,omitempty"`
	SubQueryIndex int      `json:"-"`
}

// Source is a cited document in a digest or a report
type Source struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// DigestEntry holds the findings for a single sub-query
type DigestEntry struct {
	SubQuery SubQuery
	Results  []SearchResult
	Note     string
	Err      error
}

// FindingsDigest is the deduplicated summary of one research round
type FindingsDigest struct {
	Query   string
	Summary string
	Entries []DigestEntry
	Sources []Source
}

// Degraded reports whether at least one sub-query contributed nothing because it failed
func (d *FindingsDigest) Degraded() bool {
	for _, e := range d.Entries {
		if e.Err != nil {
			return true
		}
	}
	return false
}

// Render formats the digest as the text handed back to the reasoning model
func (d *FindingsDigest) Render() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("# Research findings for: %s\n\n", d.Query))
	if strings.TrimSpace(d.Summary) != "" {
		b.WriteString("## Overview\n")
		b.WriteString(strings.TrimSpace(d.Summary))
		b.WriteString("\n\n")
	}

	for i, e := range d.Entries {
		b.WriteString(fmt.Sprintf("## Sub-query %d: %s\n", i+1, e.SubQuery.Text))
		b.WriteString(fmt.Sprintf("(type: %s, period: %s, priority: %d)\n", e.SubQuery.Type, e.SubQuery.Period, e.SubQuery.Priority))
		if e.Err != nil {
			b.WriteString("Search failed for this sub-query; no findings.\n\n")
			continue
		}
		if e.Note != "" {
			b.WriteString("Note: ")
			b.WriteString(e.Note)
			b.WriteString("\n")
		}
		if len(e.Results) == 0 {
			b.WriteString("No results.\n\n")
			continue
		}
		for _, r := range e.Results {
			b.WriteString(fmt.Sprintf("- [%s](%s)", displayTitle(r.Title, r.URL), r.URL))
			if r.PublishedDate != "" {
				b.WriteString(fmt.Sprintf(" (%s)", r.PublishedDate))
			}
			b.WriteString("\n")
			for _, h := range r.Highlights {
				h = strings.TrimSpace(h)
				if h == "" {
					continue
				}
				b.WriteString("  > ")
				b.WriteString(strings.ReplaceAll(h, "\n", " "))
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("## Sources\n")
	if len(d.Sources) == 0 {
		b.WriteString("No sources found.\n")
	}
	for _, s := range d.Sources {
		b.WriteString(fmt.Sprintf("- %s: %s\n", displayTitle(s.Title, s.URL), s.URL))
	}
	return b.String()
}

func displayTitle(title, url string) string {
	if strings.TrimSpace(title) == "" {
		return url
	}
	return title
}

// ReportSection is one themed section of the final report
type ReportSection struct {
	Heading string
	Body    string
}

// ResearchReport is the finished output of one research session
type ResearchReport struct {
	Query            string
	Title            string
	ExecutiveSummary string
	Sections         []ReportSection
	Body             string
	Sources          []Source
	Elapsed          time.Duration
	Rounds           int
	ModelCalls       int
	BudgetExhausted  bool
	// Thinking is only populated in verbose mode
	Thinking []string
}
