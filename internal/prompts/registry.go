package prompts

// Prompt keys
const (
	KeySupervisorSystem = "supervisor_system"
	KeyResearchRequest  = "research_request"
	KeyFinalSynthesis   = "final_synthesis"
	KeyPlanner          = "planner"
	KeyDigest           = "digest"
)

// Template is a named prompt body with {{VAR:...}} placeholders
type Template struct {
	PromptKey string
	Body      string
}

// Templates returns the registry of prompt templates
func Templates() []Template {
	return []Template{
		{PromptKey: KeySupervisorSystem, Body: SupervisorRole + "\n\n" +
			ToolUsage + "\n\n" +
			ToolFailureGuidance + "\n\n" +
			ReportStructure + "\n\n" +
			FormattingGuidelines + "\n\n" +
			CitationFormat + "\n\n" +
			ToneGuidelines + "\n\n" +
			"Today's date: {{VAR:today}}"},
		{PromptKey: KeyResearchRequest, Body: ResearchRequest},
		{PromptKey: KeyFinalSynthesis, Body: FinalSynthesisInstruction},
		{PromptKey: KeyPlanner, Body: PlannerRole + "\n\n" + PlannerInstructions + "\n\n" + PlannerJSONStructure},
		{PromptKey: KeyDigest, Body: DigestWriterRole + "\n\n" + DigestInstructions + "\n\n" + DigestJSONStructure},
	}
}

func lookup(promptKey string) (string, bool) {
	for _, t := range Templates() {
		if t.PromptKey == promptKey {
			return t.Body, true
		}
	}
	return "", false
}
