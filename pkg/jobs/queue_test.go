package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRunsTask(t *testing.T) {
	done := make(chan Task, 1)
	q := NewQueue("exports", func(ctx context.Context, task Task) error {
		done <- task
		return nil
	}, Options{Workers: 1})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Task{JobID: "job-1", Kind: "announcements"}))

	select {
	case task := <-done:
		assert.Equal(t, "job-1", task.JobID)
		assert.Equal(t, "announcements", task.Kind)
		assert.False(t, task.Queued.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}
}

func TestQueueRetriesFailedTask(t *testing.T) {
	var attempts int32
	done := make(chan Task, 1)
	q := NewQueue("exports", func(ctx context.Context, task Task) error {
		if atomic.AddInt32(&attempts, 1) == 1 {
			return errors.New("transient")
		}
		done <- task
		return nil
	}, Options{Workers: 1, MaxRetries: 2, RetryDelay: 10 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Task{JobID: "job-1"}))

	select {
	case task := <-done:
		assert.Equal(t, 1, task.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("task was not retried")
	}
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("exports", func(ctx context.Context, task Task) error { return nil }, Options{})
	require.Error(t, q.Enqueue(Task{JobID: "job-1"}))
}
