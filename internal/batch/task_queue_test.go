package batch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessAllKeysResultsByID(t *testing.T) {
	queue := ConfigureTaskQueue(Config{MaxWorkers: 3})
	for i := 0; i < 10; i++ {
		i := i
		queue.AddTask(NewFuncTask(fmt.Sprintf("task-%d", i), func(ctx context.Context) (interface{}, error) {
			// later tasks finish first
			time.Sleep(time.Duration(10-i) * time.Millisecond)
			return i * i, nil
		}))
	}

	results := queue.ProcessAll(context.Background())

	require.Len(t, results, 10)
	for i := 0; i < 10; i++ {
		r := results[fmt.Sprintf("task-%d", i)]
		require.NotNil(t, r)
		assert.NoError(t, r.Error)
		assert.Equal(t, i*i, r.Result)
	}
	assert.Len(t, queue.GetResults(), 10)
}

func TestProcessAllBoundsConcurrency(t *testing.T) {
	var active, peak int32
	queue := NewTaskQueue(2)
	for i := 0; i < 6; i++ {
		queue.AddTask(NewFuncTask(fmt.Sprintf("t%d", i), func(ctx context.Context) (interface{}, error) {
			n := atomic.AddInt32(&active, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			return nil, nil
		}))
	}

	queue.ProcessAll(context.Background())

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestNoRetriesByDefault(t *testing.T) {
	var calls int32
	queue := NewTaskQueue(1)
	queue.AddTask(NewFuncTask("fail", func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("search failed")
	}))

	results := queue.ProcessAll(context.Background())

	assert.EqualError(t, results["fail"].Error, "search failed")
	assert.Equal(t, 0, results["fail"].Retries)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestTaskRetriesOverride(t *testing.T) {
	var calls int32
	queue := NewTaskQueue(1)
	queue.SetRetryDelay(time.Millisecond)

	task := NewFuncTask("flaky", func(ctx context.Context) (interface{}, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return nil, errors.New("transient")
		}
		return "ok", nil
	})
	task.SetMaxRetries(2)
	queue.AddTask(task)

	results := queue.ProcessAll(context.Background())

	assert.NoError(t, results["flaky"].Error)
	assert.Equal(t, "ok", results["flaky"].Result)
	assert.Equal(t, 2, results["flaky"].Retries)
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	queue := NewTaskQueue(1)
	queue.SetMaxRetries(5)
	queue.SetRetryDelay(time.Hour)
	queue.AddTask(NewFuncTask("cancelled", func(ctx context.Context) (interface{}, error) {
		cancel()
		return nil, errors.New("boom")
	}))

	results := queue.ProcessAll(ctx)

	assert.True(t, errors.Is(results["cancelled"].Error, context.Canceled))
}

func TestProcessAllEmpty(t *testing.T) {
	assert.Empty(t, NewTaskQueue(4).ProcessAll(context.Background()))
}
