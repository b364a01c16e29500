// Package taskqueue runs best-effort side effects (notification appends,
// audit writes) through an explicit in-process queue instead of unobserved
// goroutines. Delivery is at-least-once: a failing task is retried with
// backoff, so handlers must be idempotent.
package taskqueue

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Task is one unit of deferred work. Kind only labels log lines.
type Task struct {
	ID   string
	Kind string
	Run  func(ctx context.Context) error
}

var ErrClosed = errors.New("task queue closed")

type Queue struct {
	tasks    chan Task
	retries  int
	backoff  time.Duration
	inflight sync.WaitGroup

	mu     sync.Mutex
	closed bool

	g      *errgroup.Group
	cancel context.CancelFunc
}

// Option tweaks queue behavior; the zero configuration retries three times
// with a short backoff.
type Option func(*Queue)

func WithRetries(n int) Option {
	return func(q *Queue) { q.retries = n }
}

func WithBackoff(d time.Duration) Option {
	return func(q *Queue) { q.backoff = d }
}

func New(workers int, opts ...Option) *Queue {
	if workers < 1 {
		workers = 1
	}
	q := &Queue{
		tasks:   make(chan Task, 64),
		retries: 3,
		backoff: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(q)
	}

	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	g, ctx := errgroup.WithContext(ctx)
	q.g = g
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for task := range q.tasks {
				q.run(ctx, task)
				q.inflight.Done()
			}
			return nil
		})
	}
	return q
}

func (q *Queue) run(ctx context.Context, task Task) {
	var err error
	for attempt := 1; attempt <= q.retries; attempt++ {
		if err = task.Run(ctx); err == nil {
			return
		}
		if attempt < q.retries {
			select {
			case <-time.After(q.backoff * time.Duration(attempt)):
			case <-ctx.Done():
				return
			}
		}
	}
	// exhausted: the side channel stays best-effort, the originating
	// operation has already committed
	log.Printf("taskqueue: %s task %s dropped after %d attempts: %v", task.Kind, task.ID, q.retries, err)
}

// Enqueue hands a task to the workers. It blocks only while the buffer is
// full and returns ErrClosed after Close.
func (q *Queue) Enqueue(task Task) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.inflight.Add(1)
	q.mu.Unlock()

	q.tasks <- task
	return nil
}

// Drain blocks until every enqueued task has finished (success or exhausted
// retries). The queue stays usable afterwards.
func (q *Queue) Drain() {
	q.inflight.Wait()
}

// Close drains outstanding tasks and stops the workers.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.inflight.Wait()
	close(q.tasks)
	_ = q.g.Wait()
	q.cancel()
}
