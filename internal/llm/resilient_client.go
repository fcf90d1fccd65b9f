package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/deepresearch/internal/retry"
)

// Completer sends a single prompt to a model and returns its text output
type Completer interface {
	Call(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to the Completer interface
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Call(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// CallStats accumulates counters across every call made through a ResilientClient
type CallStats struct {
	Calls        int
	Successful   int
	Retries      int
	Timeouts     int
	TotalLatency time.Duration
}

// AvgLatency returns the mean wall time per call
func (s CallStats) AvgLatency() time.Duration {
	if s.Calls == 0 {
		return 0
	}
	return s.TotalLatency / time.Duration(s.Calls)
}

// ResilientClient wraps a Completer with a per-call timeout and retry with backoff
type ResilientClient struct {
	client      Completer
	name        string
	retryConfig retry.RetryConfig
	timeout     time.Duration

	mu    sync.Mutex
	stats CallStats
}

// NewResilientClient creates a resilient wrapper. A zero timeout disables the per-call deadline.
func NewResilientClient(name string, client Completer, config retry.RetryConfig, timeout time.Duration) *ResilientClient {
	return &ResilientClient{
		client:      client,
		name:        name,
		retryConfig: config,
		timeout:     timeout,
	}
}

// Call runs the prompt, retrying retryable failures. Each attempt gets its own timeout.
func (rc *ResilientClient) Call(ctx context.Context, prompt string) (string, error) {
	var output string
	timeouts := 0

	logger := log.With().Str("client", rc.name).Logger()
	result := retry.RetryWithBackoffAndReason(ctx, rc.retryConfig, func() (error, string) {
		attemptCtx := ctx
		if rc.timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, rc.timeout)
			defer cancel()
		}

		out, err := rc.client.Call(attemptCtx, prompt)
		if err != nil {
			if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
				timeouts++
				return fmt.Errorf("call timed out after %v: %w", rc.timeout, err), "timeout"
			}
			return err, err.Error()
		}
		output = out
		return nil, "success"
	}, &logger)

	rc.mu.Lock()
	rc.stats.Calls++
	rc.stats.Retries += result.Attempts - 1
	rc.stats.Timeouts += timeouts
	rc.stats.TotalLatency += result.TotalDuration
	if result.Success {
		rc.stats.Successful++
	}
	rc.mu.Unlock()

	if !result.Success {
		return "", result.LastError
	}
	return output, nil
}

// Stats returns a snapshot of the accumulated call counters
func (rc *ResilientClient) Stats() CallStats {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.stats
}
