package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
)

// JsonRepairStats tracks what RepairJSON had to do to a payload
type JsonRepairStats struct {
	OriginalBytes    int           `json:"original_bytes"`
	RepairedBytes    int           `json:"repaired_bytes"`
	CommentsLost     int           `json:"comments_lost"`
	ErrorsFixed      int           `json:"errors_fixed"`
	RepairTime       time.Duration `json:"repair_time"`
	RepairStrategies []string      `json:"repair_strategies"`
	WasRepaired      bool          `json:"was_repaired"`
}

type repairStrategy struct {
	name  string
	apply func(string, *JsonRepairStats) string
}

var (
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	lineCommentRe   = regexp.MustCompile(`(?m)^\s*//.*$`)
	blockCommentRe  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	bareKeyRe       = regexp.MustCompile(`([{,]\s*)([a-zA-Z_][a-zA-Z0-9_]*)(\s*:)`)
	smartQuoteRe    = regexp.MustCompile("[“”]")
)

// Strategies run in order; each one only counts when it changed the payload.
var repairStrategies = []repairStrategy{
	{"smart_quotes", func(s string, _ *JsonRepairStats) string {
		return smartQuoteRe.ReplaceAllString(s, `"`)
	}},
	{"comments_removed", func(s string, stats *JsonRepairStats) string {
		stats.CommentsLost += len(lineCommentRe.FindAllString(s, -1)) + len(blockCommentRe.FindAllString(s, -1))
		s = blockCommentRe.ReplaceAllString(s, "")
		return lineCommentRe.ReplaceAllString(s, "")
	}},
	{"trailing_commas", func(s string, _ *JsonRepairStats) string {
		return trailingCommaRe.ReplaceAllString(s, "$1")
	}},
	{"key_quotes", func(s string, _ *JsonRepairStats) string {
		return bareKeyRe.ReplaceAllString(s, `$1"$2"$3`)
	}},
	{"completion", func(s string, _ *JsonRepairStats) string {
		return closeOpenStructures(s)
	}},
}

// RepairJSON returns raw unchanged when it already parses. Otherwise it applies
// the cheap textual fixes above and, if the result still does not parse, hands
// it to jsonrepair.
func RepairJSON(raw string) (string, JsonRepairStats, error) {
	start := time.Now()
	stats := JsonRepairStats{OriginalBytes: len(raw)}

	finish := func(out string, err error) (string, JsonRepairStats, error) {
		stats.RepairedBytes = len(out)
		stats.RepairTime = time.Since(start)
		return out, stats, err
	}

	if json.Valid([]byte(raw)) {
		return finish(raw, nil)
	}

	stats.WasRepaired = true
	repaired := raw
	for _, strategy := range repairStrategies {
		next := strategy.apply(repaired, &stats)
		if next == repaired {
			continue
		}
		repaired = next
		stats.RepairStrategies = append(stats.RepairStrategies, strategy.name)
		stats.ErrorsFixed++
		if json.Valid([]byte(repaired)) {
			return finish(repaired, nil)
		}
	}

	fixed, err := jsonrepair.JSONRepair(repaired)
	if err == nil && json.Valid([]byte(fixed)) {
		if fixed != repaired {
			stats.RepairStrategies = append(stats.RepairStrategies, "jsonrepair_library")
			stats.ErrorsFixed++
		}
		return finish(fixed, nil)
	}

	return finish(repaired, fmt.Errorf("JSON repair failed after %d strategies", len(stats.RepairStrategies)))
}

// closeOpenStructures appends the closers for any object, array or string left
// open at the end of s, innermost first.
func closeOpenStructures(s string) string {
	s = strings.TrimRight(s, " \t\r\n")
	var stack []byte
	inString, escaped := false, false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}

	var b strings.Builder
	b.WriteString(s)
	if inString {
		b.WriteByte('"')
	}
	if len(stack) > 0 {
		// a dangling comma would make the closed structure invalid again
		trimmed := strings.TrimRight(b.String(), " \t\r\n,")
		b.Reset()
		b.WriteString(trimmed)
	}
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String()
}
