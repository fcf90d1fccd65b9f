package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepresearch/internal/retry"
	"github.com/deepresearch/pkg/models"
)

// mockCompleter returns scripted responses and errors in call order
type mockCompleter struct {
	mu        sync.Mutex
	responses []string
	errors    []error
	prompts   []string
}

func (m *mockCompleter) Call(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.prompts)
	m.prompts = append(m.prompts, prompt)
	if n < len(m.errors) && m.errors[n] != nil {
		return "", m.errors[n]
	}
	if n < len(m.responses) {
		return m.responses[n], nil
	}
	return "default response", nil
}

// slowCompleter blocks until its delay elapses or the context ends
type slowCompleter struct {
	delay time.Duration
}

func (s *slowCompleter) Call(ctx context.Context, prompt string) (string, error) {
	select {
	case <-time.After(s.delay):
		return "late", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func fastRetryConfig(maxRetries int) retry.RetryConfig {
	return retry.RetryConfig{
		MaxRetries:      maxRetries,
		BaseDelay:       time.Millisecond,
		MaxDelay:        5 * time.Millisecond,
		Multiplier:      2.0,
		StopOnPermanent: true,
	}
}

func TestResilientClient_Success(t *testing.T) {
	mock := &mockCompleter{responses: []string{"hello"}}
	client := NewResilientClient("test", mock, fastRetryConfig(2), time.Second)

	out, err := client.Call(context.Background(), "prompt")

	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Equal(t, []string{"prompt"}, mock.prompts)

	stats := client.Stats()
	assert.Equal(t, 1, stats.Calls)
	assert.Equal(t, 1, stats.Successful)
	assert.Equal(t, 0, stats.Retries)
	assert.Equal(t, stats.TotalLatency, stats.AvgLatency())
	assert.Zero(t, CallStats{}.AvgLatency())
}

func TestResilientClient_RetriesTransientErrors(t *testing.T) {
	mock := &mockCompleter{
		errors:    []error{&models.ProviderError{Provider: "openrouter", Status: 503, Message: "unavailable"}, nil},
		responses: []string{"", "recovered"},
	}
	client := NewResilientClient("test", mock, fastRetryConfig(2), time.Second)

	out, err := client.Call(context.Background(), "prompt")

	require.NoError(t, err)
	assert.Equal(t, "recovered", out)
	assert.Len(t, mock.prompts, 2)
	assert.Equal(t, 1, client.Stats().Retries)
}

func TestResilientClient_StopsOnPermanentError(t *testing.T) {
	permanent := &models.ProviderError{Provider: "openrouter", Status: 401, Message: "bad key"}
	mock := &mockCompleter{errors: []error{permanent, permanent, permanent}}
	client := NewResilientClient("test", mock, fastRetryConfig(2), time.Second)

	_, err := client.Call(context.Background(), "prompt")

	var perr *models.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 401, perr.Status)
	assert.Len(t, mock.prompts, 1)
}

func TestResilientClient_Timeout(t *testing.T) {
	client := NewResilientClient("test", &slowCompleter{delay: time.Second}, fastRetryConfig(1), 20*time.Millisecond)

	start := time.Now()
	_, err := client.Call(context.Background(), "prompt")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, 2, client.Stats().Timeouts)
}

func TestResilientClient_ParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewResilientClient("test", &slowCompleter{delay: time.Second}, fastRetryConfig(3), time.Second)
	_, err := client.Call(ctx, "prompt")

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, client.Stats().Timeouts)
}

func TestCompleterFunc(t *testing.T) {
	var c Completer = CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		return "echo: " + prompt, nil
	})

	out, err := c.Call(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "echo: x", out)
}
