package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorkerPool(t *testing.T) {
	t.Parallel()

	queue := NewTaskQueue(10, setupTestLogger())

	pool := NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: 5}, setupTestLogger())
	assert.Equal(t, 5, pool.workerCount)
	assert.Nil(t, pool.errorHandler)

	for _, n := range []int{0, -5} {
		pool = NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: n}, setupTestLogger())
		assert.Equal(t, 1, pool.workerCount)
	}
	assert.Equal(t, 2, DefaultWorkerPoolConfig().WorkerCount)
}

func TestWorkerPool_ProcessTask_Success(t *testing.T) {
	t.Parallel()

	queue := NewTaskQueue(10, setupTestLogger())
	pool := NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: 1}, setupTestLogger())
	pool.Start()
	defer pool.Stop()

	completed := make(chan struct{})
	task := newMockTask()
	task.execFn = func(context.Context) error {
		close(completed)
		return nil
	}
	require.NoError(t, queue.Enqueue(task))

	select {
	case <-completed:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for task to complete")
	}
	require.Eventually(t, func() bool {
		done, _ := pool.Stats()
		return done == 1
	}, time.Second, 5*time.Millisecond)
}

func TestWorkerPool_ProcessTask_ErrorAndPanic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		exec  func(context.Context) error
		check func(t *testing.T, err error)
	}{
		{
			name: "error",
			exec: func(context.Context) error { return errors.New("test error") },
			check: func(t *testing.T, err error) {
				assert.EqualError(t, err, "test error")
			},
		},
		{
			name: "panic",
			exec: func(context.Context) error { panic("test panic") },
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "panic")
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			queue := NewTaskQueue(10, setupTestLogger())
			pool := NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: 1}, setupTestLogger())
			handled := make(chan error, 1)
			pool.SetErrorHandler(func(_ Task, err error) { handled <- err })
			pool.Start()
			defer pool.Stop()

			task := newMockTask()
			task.execFn = tc.exec
			require.NoError(t, queue.Enqueue(task))

			select {
			case err := <-handled:
				tc.check(t, err)
			case <-time.After(time.Second):
				t.Fatal("timed out waiting for error handler")
			}
			_, failed := pool.Stats()
			assert.Equal(t, int64(1), failed)

			// The worker survives a failing task.
			next := make(chan struct{})
			follow := newMockTask()
			follow.execFn = func(context.Context) error { close(next); return nil }
			require.NoError(t, queue.Enqueue(follow))
			select {
			case <-next:
			case <-time.After(time.Second):
				t.Fatal("worker did not pick up the next task")
			}
		})
	}
}

func TestWorkerPool_StopCancelsRunningTask(t *testing.T) {
	t.Parallel()

	queue := NewTaskQueue(10, setupTestLogger())
	pool := NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: 1}, setupTestLogger())
	pool.Start()

	started := make(chan struct{})
	cancelled := make(chan struct{})
	task := newMockTask()
	task.execFn = func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	}
	require.NoError(t, queue.Enqueue(task))

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for task to start")
	}

	stopped := make(chan struct{})
	go func() {
		pool.Stop()
		close(stopped)
	}()

	for _, ch := range []chan struct{}{cancelled, stopped} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for shutdown")
		}
	}
}

func TestWorkerPool_StopsWhenQueueCloses(t *testing.T) {
	t.Parallel()

	queue := NewTaskQueue(1, setupTestLogger())
	pool := NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: 2}, setupTestLogger())
	pool.Start()
	queue.Close()

	done := make(chan struct{})
	go func() {
		pool.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("workers did not exit after the queue closed")
	}
	pool.Stop()
}
