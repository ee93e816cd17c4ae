package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
)

// Action is the body of a task. tick is the tick the task runs on.
type Action func(tick uint64)

type task struct {
	action     Action
	handle     *Handle
	name       string
	target     uint64
	window     uint64 // candidate ticks for balanced placement; 1 for fixed
	seq        uint64 // enqueue order
	weight     int
	mainThread bool
	wait       bool
}

// TaskOption configures a single Enqueue call.
type TaskOption func(*task)

// MainThread runs the task on the goroutine calling Step, after every
// background task of the tick has been dispatched.
func MainThread() TaskOption {
	return func(t *task) { t.mainThread = true }
}

// Weight sets the load the task adds to its tick. Balanced placement avoids
// heavy ticks.
func Weight(w int) TaskOption {
	return func(t *task) { t.weight = w }
}

// WaitForComplete makes Step wait for this background task before
// returning.
func WaitForComplete() TaskOption {
	return func(t *task) { t.wait = true }
}

// Handle tracks a task until it completes. A task completes exactly once,
// whether it returns, panics, or is dropped by Close.
type Handle struct {
	done      chan struct{}
	once      sync.Once
	name      string
	scheduled atomic.Uint64
	ran       atomic.Uint64
	dropped   atomic.Bool
}

func newHandle(name string) *Handle {
	return &Handle{name: name, done: make(chan struct{})}
}

func (h *Handle) complete(tick uint64, dropped bool) {
	h.once.Do(func() {
		h.ran.Store(tick)
		h.dropped.Store(dropped)
		close(h.done)
	})
}

// Name returns the task name.
func (h *Handle) Name() string { return h.name }

// Done is closed when the task completes.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the task completes.
func (h *Handle) Wait() { <-h.done }

// WaitContext blocks until the task completes or ctx ends.
func (h *Handle) WaitContext(ctx context.Context) error {
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Completed reports whether the task has completed.
func (h *Handle) Completed() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Scheduled returns the tick the task was placed on, or 0 while it is still
// deferred or queued for immediate execution.
func (h *Handle) Scheduled() uint64 { return h.scheduled.Load() }

// Tick returns the tick the task ran on. Valid once completed.
func (h *Handle) Tick() uint64 { return h.ran.Load() }

// Dropped reports whether the task was discarded by Close without running.
func (h *Handle) Dropped() bool { return h.dropped.Load() }
