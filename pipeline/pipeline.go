// Package pipeline implements a fixed-tick scheduler. Tasks are placed on a
// ring buffer of upcoming ticks, either on an exact tick or on the lightest
// tick of a window, and run on a fixed worker pool or on the goroutine that
// drives the pipeline.
package pipeline

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"runtime"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Defaults used by New when the matching option is not given.
const (
	// DefaultHorizon is the number of upcoming ticks held in the ring buffer.
	DefaultHorizon = 64
	// DefaultWeight is the load a task adds to its tick without Weight.
	DefaultWeight = 1
	// DefaultBalanceWindow is the candidate window of EnqueueBalanced calls
	// made with a zero maxTickDelay.
	DefaultBalanceWindow = 8
)

type slot struct {
	tasks  []*task
	tick   uint64
	weight int
}

// TickInfo describes one upcoming tick of the ring buffer.
type TickInfo struct {
	Tick   uint64
	Weight int
	Tasks  int
}

// Pipeline is a fixed-tick scheduler with a ring buffer of horizon ticks.
//
// Each Step advances the current tick by one and runs what is due: the tasks
// placed on the new current tick and everything in the immediate queue.
// A task targeted at Current()+n therefore runs on the n-th Step, observing
// Current() == original+n. Targets at or before the current tick go to the
// immediate queue; targets beyond the horizon wait in a deferred list until
// they come into range.
type Pipeline struct {
	mu        sync.Mutex
	ring      []slot
	immediate []*task
	deferred  []*task
	current   uint64
	seq       uint64
	paused    bool
	closed    bool

	stepMu   sync.Mutex // held by Step and WaitForEmptyAndExecute
	inflight sync.WaitGroup

	pool          *WorkerPool
	log           *zap.Logger
	horizon       uint64
	defaultWeight int
	balanceWindow uint64
}

type options struct {
	log           *zap.Logger
	horizon       int
	workers       int
	defaultWeight int
	balanceWindow int
	start         uint64
}

// Option configures New.
type Option func(*options)

// WithLogger sets the logger for recovered panics and deferred placements.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithHorizon sets the number of ticks held in the ring buffer.
func WithHorizon(n int) Option {
	return func(o *options) { o.horizon = n }
}

// WithWorkers sets the size of the background worker pool.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithDefaultWeight sets the weight of tasks enqueued without Weight.
func WithDefaultWeight(w int) Option {
	return func(o *options) { o.defaultWeight = w }
}

// WithBalanceWindow sets the window EnqueueBalanced uses when given a zero
// maxTickDelay.
func WithBalanceWindow(n int) Option {
	return func(o *options) { o.balanceWindow = n }
}

// WithStartTick sets the initial current tick.
func WithStartTick(tick uint64) Option {
	return func(o *options) { o.start = tick }
}

// New creates a pipeline and starts its worker pool.
func New(opts ...Option) *Pipeline {
	o := options{
		horizon:       DefaultHorizon,
		workers:       runtime.GOMAXPROCS(0),
		defaultWeight: DefaultWeight,
		balanceWindow: DefaultBalanceWindow,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	o.horizon = max(o.horizon, 1)
	o.balanceWindow = max(o.balanceWindow, 1)

	p := &Pipeline{
		ring:          make([]slot, o.horizon),
		current:       o.start,
		pool:          NewWorkerPool(o.workers, o.workers*4),
		log:           o.log,
		horizon:       uint64(o.horizon),
		defaultWeight: o.defaultWeight,
		balanceWindow: uint64(o.balanceWindow),
	}
	for t := o.start + 1; t <= o.start+p.horizon; t++ {
		p.ring[t%p.horizon].tick = t
	}
	return p
}

// Current returns the current tick.
func (p *Pipeline) Current() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Horizon returns the ring buffer size.
func (p *Pipeline) Horizon() int { return int(p.horizon) }

// Enqueue schedules action on target. Targets at or before the current tick
// run on the next Step.
func (p *Pipeline) Enqueue(name string, action Action, target uint64, opts ...TaskOption) *Handle {
	t := p.newTask(name, action, opts)
	return p.add(t, func(uint64) uint64 { return target }, 1)
}

// EnqueueAfter schedules action delay ticks after the current tick. A zero
// delay runs it on the next Step.
func (p *Pipeline) EnqueueAfter(name string, action Action, delay uint64, opts ...TaskOption) *Handle {
	t := p.newTask(name, action, opts)
	return p.add(t, func(cur uint64) uint64 { return cur + delay }, 1)
}

// EnqueueBalanced schedules action on the least loaded tick of
// [target, target+maxTickDelay). A candidate's load is its accumulated weight
// scaled by 1 + (2/maxTickDelay)*offset, so later ticks must be clearly
// lighter to win; ties go to the earliest tick. A zero maxTickDelay selects
// the pipeline's default window.
func (p *Pipeline) EnqueueBalanced(name string, action Action, target, maxTickDelay uint64, opts ...TaskOption) *Handle {
	if maxTickDelay == 0 {
		maxTickDelay = p.balanceWindow
	}
	t := p.newTask(name, action, opts)
	return p.add(t, func(uint64) uint64 { return target }, maxTickDelay)
}

func (p *Pipeline) newTask(name string, action Action, opts []TaskOption) *task {
	t := &task{
		action: action,
		name:   name,
		handle: newHandle(name),
		weight: p.defaultWeight,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (p *Pipeline) add(t *task, target func(current uint64) uint64, window uint64) *Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		t.handle.complete(p.current, true)
		return t.handle
	}
	t.target = target(p.current)
	t.window = window
	t.seq = p.seq
	p.seq++
	p.placeLocked(t)
	return t.handle
}

// placeLocked puts t in the immediate queue, on a ring slot, or in the
// deferred list.
func (p *Pipeline) placeLocked(t *task) {
	switch {
	case t.target <= p.current:
		p.immediate = append(p.immediate, t)
	case t.target > p.current+p.horizon:
		p.deferred = append(p.deferred, t)
	default:
		tick := t.target
		if t.window > 1 {
			tick = p.balanceLocked(t.target, t.window)
		}
		s := &p.ring[tick%p.horizon]
		s.tasks = append(s.tasks, t)
		s.weight += t.weight
		t.handle.scheduled.Store(tick)
	}
}

// balanceLocked picks the tick with the lowest penalized weight among the
// candidates that are inside the horizon.
func (p *Pipeline) balanceLocked(target, window uint64) uint64 {
	last := min(target+window-1, p.current+p.horizon)
	best, bestScore := target, math.Inf(1)
	for tick := target; tick <= last; tick++ {
		offset := float64(tick - target)
		score := float64(p.ring[tick%p.horizon].weight) * (1 + (2/float64(window))*offset)
		if score < bestScore {
			best, bestScore = tick, score
		}
	}
	return best
}

// promoteLocked moves deferred tasks whose candidate window has come into
// range onto the ring. Balanced tasks wait until their whole window (capped
// at the horizon) is visible, so they are balanced over every candidate.
func (p *Pipeline) promoteLocked() {
	if len(p.deferred) == 0 {
		return
	}
	edge := p.current + p.horizon
	var ready []*task
	kept := p.deferred[:0]
	for _, t := range p.deferred {
		if t.target+min(t.window, p.horizon)-1 <= edge {
			ready = append(ready, t)
		} else {
			kept = append(kept, t)
		}
	}
	clear(p.deferred[len(kept):])
	p.deferred = kept
	for _, t := range ready {
		p.placeLocked(t)
		p.log.Debug("deferred task scheduled",
			zap.String("task", t.name),
			zap.Uint64("target", t.target),
			zap.Uint64("tick", t.handle.Scheduled()))
	}
}

// Step advances one tick (unless paused) and runs the due tasks. Background
// tasks are handed to the worker pool first; main-thread tasks then run on
// the calling goroutine in enqueue order. Step returns once every main-thread
// task and every WaitForComplete background task of the tick has finished.
//
// Step must not be called from inside a task.
func (p *Pipeline) Step() {
	p.stepMu.Lock()
	defer p.stepMu.Unlock()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	due := p.immediate
	p.immediate = nil
	if !p.paused {
		p.current++
		s := &p.ring[p.current%p.horizon]
		due = append(due, s.tasks...)
		s.tasks = nil
		s.weight = 0
		s.tick = p.current + p.horizon
		p.promoteLocked()
	}
	tick := p.current
	p.mu.Unlock()

	p.execute(tick, due)
}

func (p *Pipeline) execute(tick uint64, due []*task) {
	var (
		wait sync.WaitGroup
		main []*task
	)
	for _, t := range due {
		if t.mainThread {
			main = append(main, t)
			continue
		}
		p.inflight.Add(1)
		if t.wait {
			wait.Add(1)
		}
		p.pool.Submit(func() {
			defer p.inflight.Done()
			if t.wait {
				defer wait.Done()
			}
			p.run(t, tick)
		})
	}
	slices.SortFunc(main, func(a, b *task) int {
		return cmp.Compare(a.seq, b.seq)
	})
	for _, t := range main {
		p.run(t, tick)
	}
	wait.Wait()
}

// run executes t and completes its handle. A panic is logged and the task
// still completes.
func (p *Pipeline) run(t *task, tick uint64) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("task panicked",
				zap.String("task", t.name),
				zap.Uint64("tick", tick),
				zap.Any("panic", r))
		}
		t.handle.complete(tick, false)
	}()
	t.action(tick)
}

// Pause stops tick advancement. Immediate work still drains on Step.
func (p *Pipeline) Pause() {
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()
}

// Resume restarts tick advancement.
func (p *Pipeline) Resume() {
	p.mu.Lock()
	p.paused = false
	p.mu.Unlock()
}

// Paused reports whether tick advancement is stopped.
func (p *Pipeline) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// WaitForEmptyAndExecute blocks until no tick is in progress and every
// background task already dispatched has finished, then runs action before
// the next Step can start. Use it to apply structural changes between ticks.
//
// WaitForEmptyAndExecute must not be called from inside a task: it would
// wait for the Step running that task and never return.
func (p *Pipeline) WaitForEmptyAndExecute(action func()) {
	p.stepMu.Lock()
	defer p.stepMu.Unlock()
	p.inflight.Wait()
	action()
}

// GetRingBuffer returns the upcoming ticks, nearest first.
func (p *Pipeline) GetRingBuffer() []TickInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]TickInfo, 0, p.horizon)
	for tick := p.current + 1; tick <= p.current+p.horizon; tick++ {
		s := &p.ring[tick%p.horizon]
		out = append(out, TickInfo{Tick: s.tick, Weight: s.weight, Tasks: len(s.tasks)})
	}
	return out
}

// Pending returns the number of tasks waiting in the ring and the immediate
// queue.
func (p *Pipeline) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.immediate)
	for i := range p.ring {
		n += len(p.ring[i].tasks)
	}
	return n
}

// Deferred returns the number of tasks beyond the horizon.
func (p *Pipeline) Deferred() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.deferred)
}

// Run steps the pipeline every interval until ctx is done.
func (p *Pipeline) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("pipeline: invalid tick interval %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.Step()
		}
	}
}

// Close waits for running tasks, stops the worker pool and drops every task
// that has not run. Dropped handles complete with Dropped() == true.
func (p *Pipeline) Close() error {
	p.stepMu.Lock()
	defer p.stepMu.Unlock()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	dropped := append([]*task(nil), p.immediate...)
	for i := range p.ring {
		dropped = append(dropped, p.ring[i].tasks...)
		p.ring[i].tasks = nil
		p.ring[i].weight = 0
	}
	dropped = append(dropped, p.deferred...)
	p.immediate, p.deferred = nil, nil
	tick := p.current
	p.mu.Unlock()

	p.inflight.Wait()
	for _, t := range dropped {
		t.handle.complete(tick, true)
	}
	if len(dropped) > 0 {
		p.log.Warn("pipeline closed with pending tasks", zap.Int("dropped", len(dropped)))
	}
	return p.pool.Close()
}
