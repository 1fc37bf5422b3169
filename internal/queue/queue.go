// Package queue serializes mutation requests through a single consumer so
// at most one task runs at a time, in submit order.
package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("queue closed")

type task struct {
	ctx  context.Context
	fn   func(ctx context.Context) error
	done chan error
}

// Runner owns a bounded task channel and one consumer goroutine.
type Runner struct {
	tasks chan task

	// mu guards closed and is held (shared) across every send so Close
	// cannot close the channel while a Submit is mid-send. Any task that
	// lands in the channel is therefore guaranteed to run before drain.
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	drained   chan struct{}
}

// NewRunner starts the consumer. depth bounds how many tasks may wait.
func NewRunner(depth int) *Runner {
	if depth <= 0 {
		depth = 16
	}
	r := &Runner{
		tasks:   make(chan task, depth),
		drained: make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Runner) run() {
	for t := range r.tasks {
		t.done <- t.fn(t.ctx)
	}
	close(r.drained)
}

// Submit enqueues fn and waits for its result. The context bounds both the
// wait for a queue slot and the wait for completion; fn itself receives the
// same context and is responsible for honoring it.
func (r *Runner) Submit(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return ErrClosed
	}
	t := task{ctx: ctx, fn: fn, done: make(chan error, 1)}
	select {
	case r.tasks <- t:
		r.mu.RUnlock()
	case <-ctx.Done():
		r.mu.RUnlock()
		return ctx.Err()
	}
	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting tasks and waits for everything already accepted to
// finish.
func (r *Runner) Close() {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		close(r.tasks)
	})
	<-r.drained
}
