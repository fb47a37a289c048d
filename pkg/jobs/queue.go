// Package jobs dispatches export generation to a pool of background
// workers.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task points a worker at a persisted export job. JobID is the row to
// process; Kind carries the recap type so log lines do not need a
// lookup.
type Task struct {
	JobID   string
	Kind    string
	Attempt int
	Queued  time.Time
}

// Runner executes one task. A non-nil error schedules a retry until
// the attempt budget runs out.
type Runner func(context.Context, Task) error

// Options tunes the worker pool. Zero values fall back to defaults
// sized for a single export queue.
type Options struct {
	Workers    int
	Backlog    int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.Backlog <= 0 {
		o.Backlog = o.Workers * 4
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = time.Second
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Queue feeds tasks to a fixed set of worker goroutines over a
// buffered channel. Failed tasks are requeued after RetryDelay.
type Queue struct {
	name string
	run  Runner
	opts Options

	tasks   chan Task
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewQueue builds a stopped queue. Call Start before enqueueing.
func NewQueue(name string, run Runner, opts Options) *Queue {
	opts = opts.withDefaults()
	return &Queue{
		name:  name,
		run:   run,
		opts:  opts,
		tasks: make(chan Task, opts.Backlog),
	}
}

// Start spins up the workers. Calling Start twice is a no-op.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.opts.Workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
	q.started = true
	q.opts.Logger.Sugar().Infow("queue started", "queue", q.name, "workers", q.opts.Workers)
}

// Stop cancels the workers and blocks until they drain.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.opts.Logger.Sugar().Infow("queue stopped", "queue", q.name)
}

// Enqueue hands a task to the pool, blocking while the backlog is
// full. It fails once the queue is stopped or never started.
func (q *Queue) Enqueue(task Task) error {
	q.mu.Lock()
	ctx := q.ctx
	started := q.started
	q.mu.Unlock()

	if !started {
		return fmt.Errorf("queue %s not started", q.name)
	}
	if task.Queued.IsZero() {
		task.Queued = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("queue %s stopped: %w", q.name, ctx.Err())
	case q.tasks <- task:
		return nil
	}
}

func (q *Queue) work() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case task := <-q.tasks:
			if err := q.run(q.ctx, task); err != nil {
				q.retry(task, err)
			}
		}
	}
}

func (q *Queue) retry(task Task, cause error) {
	log := q.opts.Logger.Sugar()
	task.Attempt++
	if task.Attempt > q.opts.MaxRetries {
		log.Errorw("task exceeded retries", "queue", q.name, "job_id", task.JobID, "kind", task.Kind, "error", cause)
		return
	}
	log.Warnw("task failed, will retry", "queue", q.name, "job_id", task.JobID, "kind", task.Kind, "attempt", task.Attempt, "error", cause)

	go func() {
		timer := time.NewTimer(q.opts.RetryDelay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
		case <-timer.C:
			if err := q.Enqueue(task); err != nil {
				log.Errorw("failed to requeue task", "queue", q.name, "job_id", task.JobID, "error", err)
			}
		}
	}()
}
