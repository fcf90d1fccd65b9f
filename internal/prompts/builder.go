package prompts

import (
	"strconv"
	"time"

	"github.com/deepresearch/pkg/models"
)

// PromptBuilder provides methods for building the prompts of a research session
type PromptBuilder struct {
	now func() time.Time
}

// NewPromptBuilder creates a new prompt builder instance
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{now: time.Now}
}

func (pb *PromptBuilder) today() string {
	return pb.now().Format("2006-01-02")
}

func (pb *PromptBuilder) render(promptKey string, vars map[string]string) string {
	out, err := Render(promptKey, vars)
	if err != nil {
		return ""
	}
	return out
}

// BuildSupervisorSystemPrompt returns the system prompt of the reasoning model
func (pb *PromptBuilder) BuildSupervisorSystemPrompt(turnBudget int) string {
	return pb.render(KeySupervisorSystem, map[string]string{
		"turn_budget": strconv.Itoa(turnBudget),
		"today":       pb.today(),
	})
}

// BuildResearchRequestPrompt wraps the user's question as the opening turn
func (pb *PromptBuilder) BuildResearchRequestPrompt(query string) string {
	return pb.render(KeyResearchRequest, map[string]string{"query": query})
}

// BuildFinalSynthesisPrompt returns the instruction sent once the tool budget is spent
func (pb *PromptBuilder) BuildFinalSynthesisPrompt(query string) string {
	return pb.render(KeyFinalSynthesis, map[string]string{"query": query})
}

// BuildPlannerPrompt asks for between minQueries and maxQueries sub-queries
func (pb *PromptBuilder) BuildPlannerPrompt(query, focus string, minQueries, maxQueries int) string {
	vars := map[string]string{
		"query":       query,
		"today":       pb.today(),
		"min_queries": strconv.Itoa(minQueries),
		"max_queries": strconv.Itoa(maxQueries),
	}
	if focus != "" {
		vars["focus"] = "Focus for this round: " + focus
	}
	return pb.render(KeyPlanner, vars)
}

// BuildDigestPrompt asks for per-sub-query notes over the deduplicated results
func (pb *PromptBuilder) BuildDigestPrompt(query string, entries []models.DigestEntry) string {
	return pb.render(KeyDigest, map[string]string{
		"query":    query,
		"findings": BuildFindingsSection(entries),
	})
}
