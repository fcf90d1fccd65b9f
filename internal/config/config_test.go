package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepresearch/pkg/models"
)

func clearCredentials(t *testing.T) {
	t.Setenv(EnvSupervisorKey, "")
	t.Setenv(EnvSubagentKey, "")
	t.Setenv(EnvSearchKey, "")
}

func TestLoadConfigDefaults(t *testing.T) {
	clearCredentials(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, "MiniMax-M2.1", cfg.Supervisor.Model)
	assert.Equal(t, 5, cfg.Supervisor.TurnBudget)
	assert.Equal(t, 5*time.Minute, cfg.Supervisor.CallTimeout)
	assert.Equal(t, "openai", cfg.Subagent.Provider)
	assert.Equal(t, 8, cfg.Search.NumResults)
	assert.Equal(t, 1, cfg.Search.PriorityThreshold)
	assert.Equal(t, 30*time.Second, cfg.Search.CallTimeout)
	assert.Equal(t, "reports", cfg.Report.Dir)
}

func TestLoadConfigFileAndEnvironment(t *testing.T) {
	clearCredentials(t)
	path := filepath.Join(t.TempDir(), "deepresearch.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[supervisor]
turn_budget = 3

[search]
num_results = 4
`), 0644))

	t.Setenv(EnvSupervisorKey, "mm-key")
	t.Setenv(EnvSubagentKey, "or-key")
	t.Setenv(EnvSearchKey, "exa-key")
	t.Setenv("DEEPRESEARCH_SEARCH__CONCURRENCY", "2")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Supervisor.TurnBudget)
	assert.Equal(t, 4, cfg.Search.NumResults)
	assert.Equal(t, 2, cfg.Search.Concurrency)
	assert.Equal(t, "mm-key", cfg.Supervisor.APIKey)
	assert.Equal(t, "or-key", cfg.Subagent.APIKey)
	assert.Equal(t, "exa-key", cfg.Search.APIKey)
	assert.NoError(t, Validate(cfg))
}

func TestValidateListsEveryMissingCredential(t *testing.T) {
	clearCredentials(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	err = Validate(cfg)
	var cfgErr *models.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, []string{EnvSupervisorKey, EnvSubagentKey, EnvSearchKey}, cfgErr.Missing)
}

func TestValidateRejectsBadLimits(t *testing.T) {
	cfg := &Config{}
	cfg.Supervisor = SupervisorConfig{APIKey: "a", Model: "m", MaxTokens: 10, TurnBudget: 0}
	cfg.Subagent = SubagentConfig{APIKey: "b", Model: "m"}
	cfg.Search = SearchConfig{APIKey: "c", NumResults: 5, Concurrency: 1}

	err := Validate(cfg)
	var cfgErr *models.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Reason, "turn_budget")
}

func TestInitConfigRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deepresearch.toml")

	require.NoError(t, InitConfig(path))
	assert.Error(t, InitConfig(path))

	clearCredentials(t)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Supervisor.TurnBudget)
}
