package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/deepresearch/internal/config"
)

// ConfigCheckResult holds the result of configuration validation
type ConfigCheckResult struct {
	Missing  []string          // Required credentials that are missing
	Present  map[string]string // Settings that are set (secrets masked)
	Warnings []string          // Non-fatal warnings
}

// CheckRequiredConfig reports which credentials and settings a loaded config carries
func CheckRequiredConfig(cfg *config.Config) *ConfigCheckResult {
	result := &ConfigCheckResult{
		Missing:  []string{},
		Present:  make(map[string]string),
		Warnings: []string{},
	}

	credentials := []struct {
		env, value string
		optional   bool
	}{
		{config.EnvSupervisorKey, cfg.Supervisor.APIKey, false},
		{config.EnvSubagentKey, cfg.Subagent.APIKey, cfg.Subagent.Provider == "ollama"},
		{config.EnvSearchKey, cfg.Search.APIKey, false},
	}
	for _, c := range credentials {
		switch {
		case c.value != "":
			result.Present[c.env] = maskSecret(c.value)
		case !c.optional:
			result.Missing = append(result.Missing, c.env)
		}
	}

	result.Present["supervisor.model"] = cfg.Supervisor.Model
	result.Present["supervisor.base_url"] = cfg.Supervisor.BaseURL
	result.Present["supervisor.turn_budget"] = fmt.Sprint(cfg.Supervisor.TurnBudget)
	result.Present["subagent.provider"] = cfg.Subagent.Provider
	result.Present["subagent.model"] = cfg.Subagent.Model
	result.Present["search.base_url"] = cfg.Search.BaseURL

	if cfg.Supervisor.TurnBudget > 10 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("turn_budget %d may make sessions slow and expensive", cfg.Supervisor.TurnBudget))
	}
	if cfg.Search.PriorityThreshold < 1 {
		result.Warnings = append(result.Warnings, "search.priority_threshold below 1 disables similarity expansion")
	}

	return result
}

// PrintConfigCheck prints the configuration check results
func PrintConfigCheck(w io.Writer, result *ConfigCheckResult) {
	fmt.Fprintln(w, "=== Configuration Check ===")
	fmt.Fprintln(w, "")

	if len(result.Missing) > 0 {
		fmt.Fprintln(w, color.RedString("✗ Missing required credentials:"))
		for _, v := range result.Missing {
			fmt.Fprintf(w, "   - %s\n", v)
		}
		fmt.Fprintln(w, "")
	}

	if len(result.Present) > 0 {
		fmt.Fprintln(w, color.GreenString("✓ Configured:"))
		keys := make([]string, 0, len(result.Present))
		for k := range result.Present {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "   - %s = %s\n", k, result.Present[k])
		}
		fmt.Fprintln(w, "")
	}

	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "%s %s\n", color.YellowString("⚠ Warning:"), warn)
	}

	if len(result.Missing) == 0 {
		fmt.Fprintln(w, color.GreenString("✓ All required configuration is present"))
	}

	fmt.Fprintln(w, "============================")
}

// maskSecret masks a secret value for display, showing only first and last 2 chars
func maskSecret(value string) string {
	if len(value) <= 8 {
		return "****"
	}
	return value[:2] + "****" + value[len(value)-2:]
}

// LoadEnvFile loads KEY=VALUE lines from a file into the environment.
// Variables already set are kept unless override is true.
func LoadEnvFile(filename string, override bool) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		if len(value) >= 2 && ((value[0] == '"' && value[len(value)-1] == '"') || (value[0] == '\'' && value[len(value)-1] == '\'')) {
			value = value[1 : len(value)-1]
		}

		if _, exists := os.LookupEnv(key); exists && !override {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("failed to set env var %s: %w", key, err)
		}
	}

	return scanner.Err()
}
