package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/deepresearch/internal/conversation"
	"github.com/deepresearch/internal/report"
	"github.com/deepresearch/pkg/models"
)

// previewChars is how much of each block the verbose view shows
const previewChars = 200

var (
	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("14")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("12")).
			Padding(0, 2)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("11"))

	ruleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	dimStyle = lipgloss.NewStyle().Faint(true)
)

// Display renders CLI output
type Display struct {
	out      io.Writer
	renderer *glamour.TermRenderer
}

// NewDisplay creates a display writing to out. Markdown rendering falls back
// to plain text when no renderer can be built.
func NewDisplay(out io.Writer) *Display {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		r = nil
	}
	return &Display{out: out, renderer: r}
}

// Banner prints the application banner
func (d *Display) Banner() {
	fmt.Fprintln(d.out, bannerStyle.Render("Deep Research Agent\nInterleaved-thinking supervisor with neural web search"))
}

// Section prints a titled divider
func (d *Display) Section(title string) {
	rule := ruleStyle.Render(strings.Repeat("=", 80))
	fmt.Fprintf(d.out, "\n%s\n %s\n%s\n", rule, sectionStyle.Render(title), rule)
}

// Query echoes the query being researched
func (d *Display) Query(query string) {
	fmt.Fprintf(d.out, "%s %s\n\n", color.New(color.Bold).Sprint("Query:"), color.CyanString(query))
}

// Progress prints a dim status line
func (d *Display) Progress(msg string) {
	fmt.Fprintln(d.out, dimStyle.Render("→ "+msg))
}

// Success prints a green status line
func (d *Display) Success(format string, args ...interface{}) {
	fmt.Fprintf(d.out, "%s %s\n", color.GreenString("✓"), fmt.Sprintf(format, args...))
}

// Warn prints a yellow status line
func (d *Display) Warn(format string, args ...interface{}) {
	fmt.Fprintf(d.out, "%s %s\n", color.YellowString("⚠"), fmt.Sprintf(format, args...))
}

// Error prints a red status line
func (d *Display) Error(err error) {
	fmt.Fprintf(d.out, "%s %v\n", color.RedString("✗ Error:"), err)
}

// Report prints the finished report and its session counters
func (d *Display) Report(rep *models.ResearchReport) {
	d.Section("RESEARCH REPORT")
	fmt.Fprintln(d.out, d.markdown(report.Markdown(rep)))

	fmt.Fprintln(d.out, ruleStyle.Render(strings.Repeat("=", 80)))
	fmt.Fprintf(d.out, "%s sources, %d search rounds, %d model calls, %s\n",
		color.CyanString("%d", len(rep.Sources)), rep.Rounds, rep.ModelCalls, rep.Elapsed.Round(time.Millisecond))
	if rep.BudgetExhausted {
		d.Warn("Search budget was exhausted; the report was synthesized from gathered material")
	}
}

// Thinking prints the thinking transcript of a verbose run
func (d *Display) Thinking(thinking []string) {
	if len(thinking) == 0 {
		return
	}
	d.Section("THINKING")
	for i, t := range thinking {
		fmt.Fprintf(d.out, "\n%s\n%s\n", color.MagentaString("--- Thinking %d ---", i+1), dimStyle.Render(t))
	}
}

// Conversation prints the read-only projection of a conversation
func (d *Display) Conversation(views []conversation.TurnView) {
	d.Section("CONVERSATION HISTORY (VERBOSE)")
	for _, v := range views {
		fmt.Fprintf(d.out, "\n%s\n", color.MagentaString("--- Message %d (%s) ---", v.Index, v.Role))
		for _, b := range v.Blocks {
			fmt.Fprintf(d.out, "%s\n", color.CyanString("  Block type: %s", b.Kind))
			switch b.Kind {
			case conversation.KindThinking, conversation.KindRedactedThinking:
				fmt.Fprintln(d.out, dimStyle.Render("  Thinking: "+b.Preview))
			case conversation.KindText:
				fmt.Fprintf(d.out, "  Text: %s\n", b.Preview)
			default:
				fmt.Fprintf(d.out, "  %s\n", b.Preview)
			}
		}
	}
}

func (d *Display) markdown(md string) string {
	if d.renderer == nil {
		return md
	}
	out, err := d.renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}
