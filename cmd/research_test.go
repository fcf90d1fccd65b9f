package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepresearch/internal/config"
	"github.com/deepresearch/internal/conversation"
	"github.com/deepresearch/internal/report"
	"github.com/deepresearch/internal/retry"
	"github.com/deepresearch/internal/supervisor"
	"github.com/deepresearch/pkg/models"
)

func TestParseReplInput(t *testing.T) {
	tests := []struct {
		line string
		want replCommand
		ok   bool
	}{
		{"", replCommand{}, false},
		{"   ", replCommand{}, false},
		{"exit", replCommand{exit: true}, true},
		{"QUIT", replCommand{exit: true}, true},
		{"q", replCommand{exit: true}, true},
		{"/help", replCommand{help: true}, true},
		{"/save  fusion energy ", replCommand{query: "fusion energy", save: true}, true},
		{"/verbose quantum computing", replCommand{query: "quantum computing", verbose: true}, true},
		{"what is new in AI", replCommand{query: "what is new in AI"}, true},
	}

	for _, tt := range tests {
		got, ok := parseReplInput(tt.line)
		assert.Equal(t, tt.ok, ok, tt.line)
		assert.Equal(t, tt.want, got, tt.line)
	}
}

func newTestApp(t *testing.T, out *bytes.Buffer) (*researchApp, *int) {
	t.Helper()
	calls := 0
	reasoner := supervisor.ReasonerFunc(func(ctx context.Context, req supervisor.Request) (*supervisor.Response, error) {
		calls++
		return &supervisor.Response{Blocks: []conversation.Block{
			conversation.ThinkingBlock("short answer", "sig"),
			conversation.TextBlock("# Report\n\n## Executive Summary\nAll good."),
		}}, nil
	})
	sup := supervisor.New(reasoner, supervisor.Options{
		Model:      "m",
		TurnBudget: 2,
		LogDir:     t.TempDir(),
		Retry:      retry.RetryConfig{BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1},
	})
	cfg := &config.Config{Report: config.ReportConfig{Dir: t.TempDir()}}
	return &researchApp{cfg: cfg, sup: sup, display: &Display{out: out}}, &calls
}

func TestInteractiveLoop(t *testing.T) {
	var out bytes.Buffer
	app, calls := newTestApp(t, &out)

	in := strings.NewReader("\n/help\nfusion energy\n/verbose fusion costs\nexit\nnever reached\n")
	require.NoError(t, app.interactive(context.Background(), in))

	assert.Equal(t, 2, *calls)
	text := out.String()
	assert.Contains(t, text, "/save <query>")
	assert.Contains(t, text, "RESEARCH REPORT")
	assert.Contains(t, text, "CONVERSATION HISTORY (VERBOSE)")
	assert.Contains(t, text, "short answer")
	assert.Contains(t, text, "Goodbye!")
}

func TestRunSavesReport(t *testing.T) {
	var out bytes.Buffer
	app, _ := newTestApp(t, &out)

	require.NoError(t, app.run(context.Background(), "fusion energy", true, false))
	assert.Contains(t, out.String(), "Report saved to:")
	assert.NotContains(t, out.String(), "CONVERSATION HISTORY")
}

func TestDisplayReportMentionsExhaustedBudget(t *testing.T) {
	var out bytes.Buffer
	d := &Display{out: &out}

	d.Report(&models.ResearchReport{Body: "# T\n\nbody", Rounds: 5, ModelCalls: 6, BudgetExhausted: true})
	assert.Contains(t, out.String(), "6 model calls")
	assert.Contains(t, out.String(), "budget was exhausted")
}

func TestDisplayReportListsSources(t *testing.T) {
	var out bytes.Buffer
	d := &Display{out: &out}

	rep := report.Assemble("fusion", "# Fusion\n\nIgnition repeated.", []models.Source{
		{URL: "https://llnl.gov/ignition", Title: "LLNL"},
	}, report.Meta{})
	d.Report(rep)

	assert.Contains(t, out.String(), "https://llnl.gov/ignition")
}
