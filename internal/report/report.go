// Package report assembles the final research report and saves it to disk.
package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/deepresearch/internal/retriever"
	"github.com/deepresearch/pkg/models"
)

// NoSourcesNote is appended to reports that cite nothing
const NoSourcesNote = "No sources found."

// Meta carries session counters copied onto the report
type Meta struct {
	Elapsed         time.Duration
	Rounds          int
	ModelCalls      int
	BudgetExhausted bool
	Thinking        []string
}

type heading struct {
	level     int
	title     string
	lineStart int
	bodyStart int
}

// Assemble builds a ResearchReport from the model's final markdown and every
// source seen during the session. Sources are deduplicated by URL in first-seen
// order.
func Assemble(query, finalText string, sources []models.Source, meta Meta) *models.ResearchReport {
	body := strings.TrimSpace(finalText)
	if body == "" {
		body = "The research session ended without report text."
	}

	rep := &models.ResearchReport{
		Query:           query,
		Sources:         uniqueSources(sources),
		Elapsed:         meta.Elapsed,
		Rounds:          meta.Rounds,
		ModelCalls:      meta.ModelCalls,
		BudgetExhausted: meta.BudgetExhausted,
		Thinking:        meta.Thinking,
	}

	if len(rep.Sources) == 0 && !strings.Contains(body, NoSourcesNote) {
		body += "\n\n## Sources\n\n" + NoSourcesNote + "\n"
	}
	rep.Body = body

	src := []byte(body)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	headings := collectHeadings(doc, src)

	for _, h := range headings {
		if h.level == 1 {
			rep.Title = h.title
			break
		}
	}
	if rep.Title == "" {
		for _, h := range headings {
			if h.level == 2 && !strings.EqualFold(h.title, "Sources") {
				rep.Title = h.title
				break
			}
		}
	}
	if rep.Title == "" {
		rep.Title = "Research Report: " + query
	}

	for i, h := range headings {
		if h.level != 2 {
			continue
		}
		end := len(src)
		for _, next := range headings[i+1:] {
			if next.level <= 2 {
				end = next.lineStart
				break
			}
		}
		section := models.ReportSection{
			Heading: h.title,
			Body:    strings.TrimSpace(string(src[h.bodyStart:end])),
		}
		rep.Sections = append(rep.Sections, section)
		if rep.ExecutiveSummary == "" && strings.EqualFold(h.title, "Executive Summary") {
			rep.ExecutiveSummary = section.Body
		}
	}

	if rep.ExecutiveSummary == "" {
		rep.ExecutiveSummary = firstParagraph(doc, src)
	}
	return rep
}

func collectHeadings(doc ast.Node, src []byte) []heading {
	var out []heading
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Lines().Len() == 0 {
			continue
		}
		first := h.Lines().At(0)
		last := h.Lines().At(h.Lines().Len() - 1)

		lineStart := bytes.LastIndexByte(src[:first.Start], '\n') + 1
		bodyStart := len(src)
		if nl := bytes.IndexByte(src[last.Stop:], '\n'); nl >= 0 {
			bodyStart = last.Stop + nl + 1
		}

		out = append(out, heading{
			level:     h.Level,
			title:     strings.TrimSpace(string(first.Value(src))),
			lineStart: lineStart,
			bodyStart: bodyStart,
		})
	}
	return out
}

func firstParagraph(doc ast.Node, src []byte) string {
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if n.Kind() != ast.KindParagraph {
			continue
		}
		var parts []string
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			parts = append(parts, strings.TrimSpace(string(seg.Value(src))))
		}
		return strings.Join(parts, " ")
	}
	return ""
}

func uniqueSources(sources []models.Source) []models.Source {
	seen := make(map[string]bool, len(sources))
	var out []models.Source
	for _, s := range sources {
		if strings.TrimSpace(s.URL) == "" {
			continue
		}
		key := retriever.NormalizeURL(s.URL)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// Markdown returns the report body followed by a Sources list, unless the
// body already cites every collected URL.
func Markdown(rep *models.ResearchReport) string {
	body := strings.TrimRight(rep.Body, "\n")
	missing := false
	for _, src := range rep.Sources {
		if !strings.Contains(body, src.URL) {
			missing = true
			break
		}
	}
	if !missing {
		return body + "\n"
	}

	var b strings.Builder
	b.WriteString(body)
	b.WriteString("\n\n## Sources\n\n")
	for _, src := range rep.Sources {
		if title := strings.TrimSpace(src.Title); title != "" {
			b.WriteString(fmt.Sprintf("- %s: %s\n", title, src.URL))
		} else {
			b.WriteString(fmt.Sprintf("- %s\n", src.URL))
		}
	}
	return b.String()
}

// Save writes the report to dir as research_report_<query>_<timestamp>.md and
// returns the file path.
func Save(dir string, rep *models.ResearchReport) (string, error) {
	return saveAt(dir, rep, time.Now())
}

func saveAt(dir string, rep *models.ResearchReport, now time.Time) (string, error) {
	if dir == "" {
		dir = "reports"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	filename := fmt.Sprintf("research_report_%s_%s.md", SafeName(rep.Query), now.Format("20060102_150405"))
	path := filepath.Join(dir, filename)

	var b strings.Builder
	b.WriteString("# Research Report\n\n")
	b.WriteString(fmt.Sprintf("**Query:** %s\n\n", rep.Query))
	b.WriteString(fmt.Sprintf("**Generated:** %s\n\n", now.Format("2006-01-02 15:04:05")))
	b.WriteString("---\n\n")
	b.WriteString(Markdown(rep))

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	log.Info().Str("path", path).Msg("Report saved")
	return path, nil
}

// SafeName keeps letters, digits, spaces, dashes and underscores of the query,
// trimmed and cut to 50 characters.
func SafeName(query string) string {
	var b strings.Builder
	for _, r := range query {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	runes := []rune(strings.TrimSpace(b.String()))
	if len(runes) > 50 {
		runes = runes[:50]
	}
	return string(runes)
}
