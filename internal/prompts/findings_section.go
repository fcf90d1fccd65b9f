package prompts

import (
	"fmt"
	"strings"

	"github.com/deepresearch/pkg/models"
)

const (
	maxHighlightChars = 600
	maxResultsPerItem = 8
)

// BuildFindingsSection formats the search results of each sub-query as
// numbered groups for the digest prompt. Failed sub-queries are skipped but
// keep their number so notes map back to entries by index.
func BuildFindingsSection(entries []models.DigestEntry) string {
	var b strings.Builder
	for i, e := range entries {
		if e.Err != nil {
			continue
		}
		b.WriteString(fmt.Sprintf("### Group %d: %s\n", i+1, e.SubQuery.Text))
		if len(e.Results) == 0 {
			b.WriteString("(no results)\n\n")
			continue
		}
		for j, r := range e.Results {
			if j >= maxResultsPerItem {
				break
			}
			b.WriteString(fmt.Sprintf("- %s <%s>", r.Title, r.URL))
			if r.PublishedDate != "" {
				b.WriteString(" published " + r.PublishedDate)
			}
			b.WriteString("\n")
			for _, h := range r.Highlights {
				h = strings.Join(strings.Fields(h), " ")
				if len(h) > maxHighlightChars {
					h = h[:maxHighlightChars] + "..."
				}
				if h != "" {
					b.WriteString("  * " + h + "\n")
				}
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
