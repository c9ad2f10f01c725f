// Package workq runs deferred work outside interrupt context. A Queue holds
// at most one queued instance of its task: scheduling while an instance is
// already queued is dropped, so callers never block.
package workq

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Task is deferred work. It may block and sleep.
type Task func(ctx context.Context)

// Stats counts queue activity.
type Stats struct {
	Scheduled uint64
	Dropped   uint64
	Runs      uint64
}

// Queue is a single-slot deferred task queue with one runner goroutine.
type Queue struct {
	name string
	task Task
	slot chan struct{}

	mu          sync.Mutex
	idle        *sync.Cond
	outstanding atomic.Int32 // queued + running

	cancel  context.CancelFunc
	stopped chan struct{}
	started atomic.Bool

	scheduled atomic.Uint64
	dropped   atomic.Uint64
	runs      atomic.Uint64
}

// New creates a queue for task. Call Start before scheduling work that
// should run.
func New(name string, task Task) *Queue {
	q := &Queue{
		name:    name,
		task:    task,
		slot:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	q.idle = sync.NewCond(&q.mu)
	return q
}

// Start launches the runner goroutine. Subsequent calls are no-ops.
func (q *Queue) Start(ctx context.Context) {
	if q.started.Swap(true) {
		return
	}
	ctx, q.cancel = context.WithCancel(ctx)
	go func() {
		defer close(q.stopped)
		for {
			select {
			case <-ctx.Done():
				return
			case <-q.slot:
				q.task(ctx)
				q.runs.Add(1)
				q.done()
			}
		}
	}()
}

// Schedule queues one run of the task without blocking. It returns false
// when an instance is already queued; that request is dropped.
// Safe to call from interrupt context.
func (q *Queue) Schedule() bool {
	q.outstanding.Add(1)
	select {
	case q.slot <- struct{}{}:
		q.scheduled.Add(1)
		return true
	default:
		q.dropped.Add(1)
		q.done()
		return false
	}
}

func (q *Queue) done() {
	if q.outstanding.Add(-1) == 0 {
		q.mu.Lock()
		q.idle.Broadcast()
		q.mu.Unlock()
	}
}

// Pending reports whether an instance is queued or running.
func (q *Queue) Pending() bool { return q.outstanding.Load() > 0 }

// Flush blocks until no instance is queued or running. The queue must be
// started, or Flush waits forever on queued work.
func (q *Queue) Flush() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.outstanding.Load() > 0 {
		q.idle.Wait()
	}
}

// Stop terminates the runner after the current task, if any, returns.
// Queued work that has not started is discarded.
func (q *Queue) Stop() {
	if !q.started.Load() {
		return
	}
	q.cancel()
	<-q.stopped
	select {
	case <-q.slot:
		q.done()
		slog.Debug("workq: discarded queued work on stop", "queue", q.name)
	default:
	}
}

// Stats returns a snapshot of the queue counters.
func (q *Queue) Stats() Stats {
	return Stats{
		Scheduled: q.scheduled.Load(),
		Dropped:   q.dropped.Load(),
		Runs:      q.runs.Load(),
	}
}
