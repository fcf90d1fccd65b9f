package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepresearch/pkg/models"
)

const sampleReport = `# Fusion Energy in 2025

### Key Takeaways
> - Net gain was repeated

## Executive Summary
Ignition has now been repeated several times.

Private funding keeps growing.

## Key Findings
### Laser fusion
NIF repeated ignition [per LLNL](https://llnl.gov/news).

## Sources
- [LLNL](https://llnl.gov/news)
`

func TestAssembleParsesStructure(t *testing.T) {
	sources := []models.Source{
		{URL: "https://llnl.gov/news", Title: "LLNL"},
		{URL: "https://www.llnl.gov/news/", Title: "LLNL again"},
		{URL: "https://iter.org", Title: "ITER"},
	}

	rep := Assemble("fusion energy", sampleReport, sources, Meta{Rounds: 1, ModelCalls: 2, Elapsed: time.Second})

	assert.Equal(t, "Fusion Energy in 2025", rep.Title)
	assert.Equal(t, "Ignition has now been repeated several times.\n\nPrivate funding keeps growing.", rep.ExecutiveSummary)

	require.Len(t, rep.Sections, 3)
	assert.Equal(t, "Executive Summary", rep.Sections[0].Heading)
	assert.Equal(t, "Key Findings", rep.Sections[1].Heading)
	assert.True(t, strings.HasPrefix(rep.Sections[1].Body, "### Laser fusion"))
	assert.Equal(t, "Sources", rep.Sections[2].Heading)

	require.Len(t, rep.Sources, 2)
	assert.Equal(t, "LLNL", rep.Sources[0].Title)
	assert.Equal(t, "https://iter.org", rep.Sources[1].URL)

	assert.Equal(t, 1, rep.Rounds)
	assert.Equal(t, 2, rep.ModelCalls)
	assert.NotContains(t, rep.Body, NoSourcesNote)
}

func TestAssembleFallbacks(t *testing.T) {
	rep := Assemble("quantum batteries", "Quantum batteries are still theoretical.\n\nMore text.", nil, Meta{})

	assert.Equal(t, "Research Report: quantum batteries", rep.Title)
	assert.Equal(t, "Quantum batteries are still theoretical.", rep.ExecutiveSummary)
	assert.Empty(t, rep.Sources)
	assert.Contains(t, rep.Body, NoSourcesNote)
	require.Len(t, rep.Sections, 1)
	assert.Equal(t, "Sources", rep.Sections[0].Heading)
	assert.Equal(t, NoSourcesNote, rep.Sections[0].Body)
}

func TestAssembleUsesFirstH2WithoutH1(t *testing.T) {
	rep := Assemble("q", "## Overview\nSome text.\n", []models.Source{{URL: "https://a.com"}}, Meta{})
	assert.Equal(t, "Overview", rep.Title)
}

func TestAssembleEmptyText(t *testing.T) {
	rep := Assemble("q", "   ", nil, Meta{BudgetExhausted: true})
	assert.NotEmpty(t, rep.Body)
	assert.True(t, rep.BudgetExhausted)
	assert.Contains(t, rep.Body, NoSourcesNote)
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "Whats new in AI 2025", SafeName("  What's new in AI? (2025)  "))
	assert.Len(t, []rune(SafeName(strings.Repeat("a", 80))), 50)
}

func TestSaveWritesHeaderAndBody(t *testing.T) {
	dir := t.TempDir()
	rep := &models.ResearchReport{Query: "fusion energy", Body: "# Title\n\nBody"}
	now := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

	path, err := saveAt(dir, rep, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "research_report_fusion energy_20250304_050607.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.HasPrefix(content, "# Research Report\n\n**Query:** fusion energy\n\n**Generated:** 2025-03-04 05:06:07\n\n---\n\n# Title"))
	assert.True(t, strings.HasSuffix(content, "Body\n"))
}

func TestMarkdownListsCollectedSources(t *testing.T) {
	rep := Assemble("fusion", "# Fusion\n\nIgnition was repeated [1].", []models.Source{
		{URL: "https://llnl.gov/ignition", Title: "LLNL ignition"},
		{URL: "https://iter.org/news"},
	}, Meta{})

	md := Markdown(rep)
	assert.Contains(t, md, "## Sources\n\n- LLNL ignition: https://llnl.gov/ignition\n- https://iter.org/news\n")
	assert.True(t, strings.HasPrefix(md, "# Fusion\n\nIgnition was repeated [1]."))
}

func TestMarkdownKeepsBodyThatCitesEverySource(t *testing.T) {
	body := "# Fusion\n\nSee https://llnl.gov/ignition.\n\n## Sources\n\n1. https://llnl.gov/ignition"
	rep := Assemble("fusion", body, []models.Source{{URL: "https://llnl.gov/ignition"}}, Meta{})

	assert.Equal(t, body+"\n", Markdown(rep))
	assert.Equal(t, 1, strings.Count(Markdown(rep), "## Sources"))
}

func TestSaveIncludesSourceList(t *testing.T) {
	dir := t.TempDir()
	rep := Assemble("fusion", "# Fusion\n\nBody", []models.Source{{URL: "https://llnl.gov/ignition", Title: "LLNL"}}, Meta{})

	path, err := Save(dir, rep)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "- LLNL: https://llnl.gov/ignition")
}
