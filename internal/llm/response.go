package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrNoJSON is returned when a model response contains no JSON object or array
var ErrNoJSON = errors.New("no JSON found in model response")

// DecodeJSON extracts the JSON payload from raw, repairs it when needed and
// unmarshals it into target.
func DecodeJSON(raw string, target interface{}) (JsonRepairStats, error) {
	payload := ExtractJSON(raw)
	if payload == "" {
		log.Debug().Str("response", truncateForLog(raw, 200)).Msg("No JSON found in model response")
		return JsonRepairStats{}, ErrNoJSON
	}

	repaired, stats, err := RepairJSON(payload)
	if stats.WasRepaired {
		log.Debug().
			Strs("strategies", stats.RepairStrategies).
			Int("errors_fixed", stats.ErrorsFixed).
			Int("comments_lost", stats.CommentsLost).
			Dur("repair_time", stats.RepairTime).
			Msg("Repaired model JSON")
	}
	if err != nil {
		return stats, err
	}

	if err := json.Unmarshal([]byte(repaired), target); err != nil {
		return stats, fmt.Errorf("JSON parsing failed after repair: %w", err)
	}
	return stats, nil
}

// ExtractJSON returns the first JSON object or array in raw. Fenced code
// blocks are preferred; otherwise the first balanced {...} or [...] is used.
// An unterminated structure is returned as-is so RepairJSON can close it.
func ExtractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	if fenced := fencedBlock(raw); fenced != "" {
		raw = fenced
	}

	start := strings.IndexAny(raw, "{[")
	if start == -1 {
		return ""
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(raw); i++ {
		c := raw[i]
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
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return raw[start:]
}

func fencedBlock(raw string) string {
	open := strings.Index(raw, "```")
	if open == -1 {
		return ""
	}
	body := raw[open+3:]
	// skip the info string, e.g. ```json
	if nl := strings.IndexByte(body, '\n'); nl != -1 {
		body = body[nl+1:]
	}
	if end := strings.Index(body, "```"); end != -1 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

func truncateForLog(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen] + "..."
}
