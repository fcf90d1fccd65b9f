package models

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ConfigError is raised before any session starts when credentials or settings are unusable
type ConfigError struct {
	Missing []string
	Reason  string
}

func (e *ConfigError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("invalid configuration: %s", e.Reason)
}

// ProviderError is a failed call to a remote model or search provider
type ProviderError struct {
	Provider string
	Status   int
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: http %d: %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the call may succeed
func (e *ProviderError) Retryable() bool {
	switch {
	case e.Status == http.StatusTooManyRequests, e.Status >= 500:
		return true
	case e.Status == 0:
		// transport failures and timeouts carry no status
		return true
	}
	return false
}

// PlanningParseError means the planner output failed structural validation
type PlanningParseError struct {
	Raw    string
	Reason string
}

func (e *PlanningParseError) Error() string {
	return fmt.Sprintf("planning output rejected: %s", e.Reason)
}

// RetrievalError reports sub-query search failures within one retrieval
type RetrievalError struct {
	Failed int
	Total  int
	Errs   []error
}

func (e *RetrievalError) Error() string {
	msg := fmt.Sprintf("%d of %d sub-query searches failed", e.Failed, e.Total)
	if len(e.Errs) > 0 {
		msg += ": " + e.Errs[0].Error()
	}
	return msg
}

func (e *RetrievalError) Unwrap() []error {
	return e.Errs
}

// AllFailed reports whether the failure escalated to a total failure
func (e *RetrievalError) AllFailed() bool {
	return e.Total > 0 && e.Failed >= e.Total
}

// ErrLoopBudgetExceeded marks a session whose tool rounds hit the configured budget
var ErrLoopBudgetExceeded = errors.New("tool round budget exceeded; forcing final synthesis")

// TerminalFailure means no reasoning-model response could be obtained
type TerminalFailure struct {
	Round int
	Err   error
}

func (e *TerminalFailure) Error() string {
	return fmt.Sprintf("reasoning model unavailable at round %d: %v", e.Round, e.Err)
}

func (e *TerminalFailure) Unwrap() error {
	return e.Err
}
