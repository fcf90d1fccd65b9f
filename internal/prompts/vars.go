package prompts

import (
	"fmt"
	"regexp"
	"strings"
)

// Placeholder is a single {{VAR:...}} occurrence with its parsed options
type Placeholder struct {
	Raw     string
	Name    string
	Options map[string]string
}

var (
	// {{VAR:name|key=value|key2="quoted value"}}
	varPattern = regexp.MustCompile(`\{\{VAR:([a-zA-Z0-9_\-]+)((?:\|[^}]+)?)}}`)
	optPattern = regexp.MustCompile(`\|([^=|]+)=([^|]+)`)
)

// ParsePlaceholders returns every placeholder in body, in order of appearance
func ParsePlaceholders(body string) []Placeholder {
	var out []Placeholder
	for _, m := range varPattern.FindAllStringSubmatch(body, -1) {
		out = append(out, Placeholder{Raw: m[0], Name: m[1], Options: parseOptions(m[2])})
	}
	return out
}

func parseOptions(raw string) map[string]string {
	opts := map[string]string{}
	for _, seg := range optPattern.FindAllStringSubmatch(raw, -1) {
		val := strings.TrimSpace(seg[2])
		if len(val) >= 2 && (val[0] == '"' || val[0] == '\'') && val[len(val)-1] == val[0] {
			val = val[1 : len(val)-1]
		}
		opts[strings.ToLower(strings.TrimSpace(seg[1]))] = val
	}
	return opts
}

// Render resolves the template registered under promptKey. Placeholders take
// their value from vars, then from their default option, then render empty.
func Render(promptKey string, vars map[string]string) (string, error) {
	body, ok := lookup(promptKey)
	if !ok {
		return "", fmt.Errorf("prompts: template %q not found", promptKey)
	}
	return Substitute(body, vars), nil
}

// Substitute replaces every placeholder in body
func Substitute(body string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(body, func(raw string) string {
		m := varPattern.FindStringSubmatch(raw)
		if v, ok := vars[m[1]]; ok && v != "" {
			return v
		}
		return parseOptions(m[2])["default"]
	})
}
