package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/deepresearch/pkg/models"
)

// Credential environment variables read without the DEEPRESEARCH_ prefix
const (
	EnvSupervisorKey = "MINIMAX_API_KEY"
	EnvSubagentKey   = "OPENROUTER_API_KEY"
	EnvSearchKey     = "EXA_API_KEY"
)

// SupervisorConfig configures the primary reasoning model
type SupervisorConfig struct {
	APIKey         string        `koanf:"api_key"`
	BaseURL        string        `koanf:"base_url"`
	Model          string        `koanf:"model"`
	MaxTokens      int           `koanf:"max_tokens"`
	ThinkingBudget int           `koanf:"thinking_budget"`
	TurnBudget     int           `koanf:"turn_budget"`
	CallTimeout    time.Duration `koanf:"call_timeout"`
	MaxRetries     int           `koanf:"max_retries"`
}

// SubagentConfig configures the lightweight model used for planning and digests
type SubagentConfig struct {
	Provider    string        `koanf:"provider"`
	APIKey      string        `koanf:"api_key"`
	BaseURL     string        `koanf:"base_url"`
	Model       string        `koanf:"model"`
	MaxTokens   int           `koanf:"max_tokens"`
	Temperature float64       `koanf:"temperature"`
	CallTimeout time.Duration `koanf:"call_timeout"`
	MaxRetries  int           `koanf:"max_retries"`
}

// SearchConfig configures the search provider and retrieval fan-out
type SearchConfig struct {
	APIKey            string        `koanf:"api_key"`
	BaseURL           string        `koanf:"base_url"`
	NumResults        int           `koanf:"num_results"`
	SimilarResults    int           `koanf:"similar_results"`
	PriorityThreshold int           `koanf:"priority_threshold"`
	MaxHighlights     int           `koanf:"max_highlights"`
	RatePerSecond     float64       `koanf:"rate_per_second"`
	Concurrency       int           `koanf:"concurrency"`
	CallTimeout       time.Duration `koanf:"call_timeout"`
}

// ReportConfig configures report persistence
type ReportConfig struct {
	Dir    string `koanf:"dir"`
	LogDir string `koanf:"log_dir"`
}

// Config represents the application configuration. It is built once at
// startup and treated as read-only afterwards.
type Config struct {
	Supervisor SupervisorConfig `koanf:"supervisor"`
	Subagent   SubagentConfig   `koanf:"subagent"`
	Search     SearchConfig     `koanf:"search"`
	Report     ReportConfig     `koanf:"report"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"supervisor.base_url":        "https://api.minimax.io/anthropic",
		"supervisor.model":           "MiniMax-M2.1",
		"supervisor.max_tokens":      32000,
		"supervisor.thinking_budget": 0,
		"supervisor.turn_budget":     5,
		"supervisor.call_timeout":    "5m",
		"supervisor.max_retries":     2,

		"subagent.provider":     "openai",
		"subagent.base_url":     "https://openrouter.ai/api/v1",
		"subagent.model":        "google/gemini-2.5-flash",
		"subagent.max_tokens":   4096,
		"subagent.temperature":  0.2,
		"subagent.call_timeout": "2m",
		"subagent.max_retries":  2,

		"search.base_url":           "https://api.exa.ai",
		"search.num_results":        8,
		"search.similar_results":    5,
		"search.priority_threshold": 1,
		"search.max_highlights":     3,
		"search.rate_per_second":    5.0,
		"search.concurrency":        4,
		"search.call_timeout":       "30s",

		"report.dir":     "reports",
		"report.log_dir": "research_logs",
	}
}

// LoadConfig loads the configuration from defaults, an optional TOML file and the environment
func LoadConfig(configPath string) (*Config, error) {
	var k = koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("error loading defaults: %w", err)
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
				return nil, fmt.Errorf("error loading config: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		defaultPaths := []string{"./deepresearch.toml", "$HOME/.deepresearch.toml"}
		for _, path := range defaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	// DEEPRESEARCH_SEARCH__NUM_RESULTS -> search.num_results
	if err := k.Load(env.Provider("DEEPRESEARCH_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "DEEPRESEARCH_"))
		return strings.Replace(s, "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("error loading environment: %w", err)
	}

	credentials := map[string]interface{}{}
	for envVar, key := range map[string]string{
		EnvSupervisorKey: "supervisor.api_key",
		EnvSubagentKey:   "subagent.api_key",
		EnvSearchKey:     "search.api_key",
	} {
		if val := os.Getenv(envVar); val != "" {
			credentials[key] = val
		}
	}
	if err := k.Load(confmap.Provider(credentials, "."), nil); err != nil {
		return nil, fmt.Errorf("error loading credentials: %w", err)
	}

	var config Config
	if err := k.UnmarshalWithConf("", &config, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &config, nil
}

// Validate checks credentials and limits; it returns a *models.ConfigError
func Validate(config *Config) error {
	var missing []string
	if strings.TrimSpace(config.Supervisor.APIKey) == "" {
		missing = append(missing, EnvSupervisorKey)
	}
	if strings.TrimSpace(config.Subagent.APIKey) == "" && config.Subagent.Provider != "ollama" {
		missing = append(missing, EnvSubagentKey)
	}
	if strings.TrimSpace(config.Search.APIKey) == "" {
		missing = append(missing, EnvSearchKey)
	}
	if len(missing) > 0 {
		return &models.ConfigError{Missing: missing}
	}

	switch {
	case config.Supervisor.Model == "":
		return &models.ConfigError{Reason: "supervisor.model is required"}
	case config.Supervisor.TurnBudget < 1:
		return &models.ConfigError{Reason: "supervisor.turn_budget must be at least 1"}
	case config.Supervisor.MaxTokens < 1:
		return &models.ConfigError{Reason: "supervisor.max_tokens must be positive"}
	case config.Subagent.Model == "":
		return &models.ConfigError{Reason: "subagent.model is required"}
	case config.Search.NumResults < 1:
		return &models.ConfigError{Reason: "search.num_results must be positive"}
	case config.Search.Concurrency < 1:
		return &models.ConfigError{Reason: "search.concurrency must be positive"}
	}

	return nil
}

// InitConfig writes a sample configuration file
func InitConfig(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	sampleConfig := `# Deep Research configuration
# Credentials are usually supplied through MINIMAX_API_KEY, OPENROUTER_API_KEY and EXA_API_KEY.

[supervisor]
base_url = "https://api.minimax.io/anthropic"
model = "MiniMax-M2.1"
max_tokens = 32000
turn_budget = 5
call_timeout = "5m"
max_retries = 2

[subagent]
provider = "openai"
base_url = "https://openrouter.ai/api/v1"
model = "google/gemini-2.5-flash"
max_tokens = 4096
temperature = 0.2

[search]
base_url = "https://api.exa.ai"
num_results = 8
similar_results = 5
priority_threshold = 1
max_highlights = 3
rate_per_second = 5.0
concurrency = 4
call_timeout = "30s"

[report]
dir = "reports"
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0644)
}
