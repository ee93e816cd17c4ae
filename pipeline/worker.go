package pipeline

import (
	"golang.org/x/sync/errgroup"
)

// WorkerPool is a fixed set of goroutines draining a shared job queue.
type WorkerPool struct {
	jobs    chan func()
	g       errgroup.Group
	workers int
}

// NewWorkerPool starts workers goroutines. queue is the job buffer size.
func NewWorkerPool(workers, queue int) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	p := &WorkerPool{
		jobs:    make(chan func(), max(queue, 0)),
		workers: workers,
	}
	for range workers {
		p.g.Go(func() error {
			for job := range p.jobs {
				job()
			}
			return nil
		})
	}
	return p
}

// Workers returns the number of goroutines in the pool.
func (p *WorkerPool) Workers() int { return p.workers }

// Submit queues job, blocking while the queue is full. Submit must not be
// called after Close.
func (p *WorkerPool) Submit(job func()) {
	p.jobs <- job
}

// Close stops accepting jobs and waits for the queued ones to finish.
func (p *WorkerPool) Close() error {
	close(p.jobs)
	return p.g.Wait()
}
