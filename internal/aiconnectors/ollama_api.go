package aiconnectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/deepresearch/pkg/models"
)

// ollamaTagsResponse is the body of Ollama's /api/tags endpoint
type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// FetchOllamaModels lists the models served by an Ollama instance
func FetchOllamaModels(ctx context.Context, baseURL string) ([]string, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	apiURL := strings.TrimSuffix(baseURL, "/") + "/api/tags"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &models.ProviderError{Provider: string(ProviderOllama), Message: "failed to connect to " + baseURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &models.ProviderError{Provider: string(ProviderOllama), Status: resp.StatusCode, Message: resp.Status}
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("failed to parse Ollama response: %w", err)
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// ValidateOllamaModel checks that the instance at baseURL serves model
func ValidateOllamaModel(ctx context.Context, baseURL, model string) error {
	names, err := FetchOllamaModels(ctx, baseURL)
	if err != nil {
		return err
	}
	for _, name := range names {
		if name == model || strings.TrimSuffix(name, ":latest") == model {
			return nil
		}
	}
	return fmt.Errorf("model %q not found in Ollama instance at %s", model, baseURL)
}
