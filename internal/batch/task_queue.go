// Package batch runs independent tasks on a bounded worker pool.
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Task represents a unit of work to be processed
type Task interface {
	Execute(ctx context.Context) (interface{}, error)
	ID() string
	// MaxRetries overrides the queue default when it is zero or more; negative means "use the queue default"
	MaxRetries() int
}

// TaskResult represents the result of a task execution
type TaskResult struct {
	TaskID   string
	Result   interface{}
	Error    error
	Retries  int
	Duration time.Duration
}

// TaskQueue is a queue for processing tasks with retry capabilities
type TaskQueue struct {
	tasks      []Task
	results    map[string]*TaskResult
	maxWorkers int
	maxRetries int
	retryDelay time.Duration
	mu         sync.Mutex
}

// NewTaskQueue creates a new task queue. Tasks are not retried unless SetMaxRetries is called.
func NewTaskQueue(maxWorkers int) *TaskQueue {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &TaskQueue{
		tasks:      make([]Task, 0),
		results:    make(map[string]*TaskResult),
		maxWorkers: maxWorkers,
		retryDelay: 2 * time.Second,
	}
}

// AddTask adds a task to the queue
func (q *TaskQueue) AddTask(task Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
}

// SetMaxRetries sets the default maximum number of retries for tasks
func (q *TaskQueue) SetMaxRetries(maxRetries int) {
	if maxRetries < 0 {
		maxRetries = 0
	}
	q.maxRetries = maxRetries
}

// SetRetryDelay sets the delay between retries
func (q *TaskQueue) SetRetryDelay(delay time.Duration) {
	q.retryDelay = delay
}

// ProcessAll processes every queued task and returns the results keyed by task ID.
// Completion order does not matter to callers; they reassemble by ID.
func (q *TaskQueue) ProcessAll(ctx context.Context) map[string]*TaskResult {
	q.mu.Lock()
	tasksCopy := make([]Task, len(q.tasks))
	copy(tasksCopy, q.tasks)
	q.mu.Unlock()

	taskCh := make(chan Task, len(tasksCopy))
	resultCh := make(chan *TaskResult, len(tasksCopy))

	var wg sync.WaitGroup
	workerCount := q.maxWorkers
	if workerCount > len(tasksCopy) {
		workerCount = len(tasksCopy)
	}

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskCh {
				resultCh <- q.run(ctx, task)
			}
		}()
	}

	for _, task := range tasksCopy {
		taskCh <- task
	}
	close(taskCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make(map[string]*TaskResult, len(tasksCopy))
	for result := range resultCh {
		results[result.TaskID] = result
	}

	q.mu.Lock()
	q.results = results
	q.mu.Unlock()

	return results
}

func (q *TaskQueue) run(ctx context.Context, task Task) *TaskResult {
	maxRetries := task.MaxRetries()
	if maxRetries < 0 {
		maxRetries = q.maxRetries
	}

	start := time.Now()
	var result interface{}
	var err error
	retries := 0

	for {
		result, err = task.Execute(ctx)
		if err == nil || retries >= maxRetries {
			break
		}
		retries++

		select {
		case <-time.After(q.retryDelay):
			continue
		case <-ctx.Done():
			err = fmt.Errorf("task cancelled: %w", ctx.Err())
		}
		break
	}

	return &TaskResult{
		TaskID:   task.ID(),
		Result:   result,
		Error:    err,
		Retries:  retries,
		Duration: time.Since(start),
	}
}

// GetResults returns the results of the last ProcessAll
func (q *TaskQueue) GetResults() map[string]*TaskResult {
	q.mu.Lock()
	defer q.mu.Unlock()

	resultsCopy := make(map[string]*TaskResult, len(q.results))
	for k, v := range q.results {
		resultsCopy[k] = v
	}
	return resultsCopy
}

// FuncTask adapts a function to the Task interface
type FuncTask struct {
	id         string
	fn         func(context.Context) (interface{}, error)
	maxRetries int
}

// NewFuncTask creates a task that uses the queue's retry default
func NewFuncTask(id string, fn func(context.Context) (interface{}, error)) *FuncTask {
	return &FuncTask{id: id, fn: fn, maxRetries: -1}
}

// Execute runs the wrapped function
func (t *FuncTask) Execute(ctx context.Context) (interface{}, error) {
	return t.fn(ctx)
}

// ID returns the task ID
func (t *FuncTask) ID() string {
	return t.id
}

// MaxRetries returns the maximum number of retries for this task
func (t *FuncTask) MaxRetries() int {
	return t.maxRetries
}

// SetMaxRetries sets the maximum number of retries for this task
func (t *FuncTask) SetMaxRetries(maxRetries int) {
	t.maxRetries = maxRetries
}
