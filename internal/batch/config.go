package batch

import (
	"runtime"
	"time"
)

// Config holds configuration for a task queue
type Config struct {
	MaxWorkers int           // Maximum number of concurrent workers
	MaxRetries int           // Default retries per task
	RetryDelay time.Duration // Delay between retries
}

// DefaultConfig returns a default configuration. Retries are off: callers that
// talk to remote providers own their retry policy.
func DefaultConfig() Config {
	return Config{
		MaxWorkers: runtime.NumCPU(),
		MaxRetries: 0,
		RetryDelay: 2 * time.Second,
	}
}

// ConfigureTaskQueue configures a TaskQueue based on Config
func ConfigureTaskQueue(config Config) *TaskQueue {
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = DefaultConfig().MaxWorkers
	}
	queue := NewTaskQueue(config.MaxWorkers)
	queue.SetMaxRetries(config.MaxRetries)
	queue.SetRetryDelay(config.RetryDelay)
	return queue
}
