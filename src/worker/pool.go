package worker

import (
	"context"
	"log"
	"runtime"
	"sync"
)

// Job is one unit of backend work. It runs on a pool goroutine and must
// report results through its own channel (for windows, the router).
type Job func(ctx context.Context)

// Pool is a fixed-size worker pool with a bounded input queue (strict back-pressure).
type Pool struct {
	mu     sync.Mutex
	jobs   chan task
	wg     sync.WaitGroup
	closed bool
}

type task struct {
	ctx context.Context
	run Job
}

// New creates a worker pool. Size defaults to NumCPU when size<=0 and the
// queue holds at least one job.
func New(size, queue int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	if queue <= 0 {
		queue = 1
	}
	p := &Pool{jobs: make(chan task, queue)}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for t := range p.jobs {
				if err := t.ctx.Err(); err != nil {
					log.Printf("Worker %d: skipping job, %v", id, err)
					continue
				}
				p.run(id, t)
			}
		}(i)
	}
}

func (p *Pool) run(id int, t task) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Worker %d: job panicked: %v", id, r)
		}
	}()
	t.run(t.ctx)
}

// Submit enqueues a job if the queue has room. Returns false if dropped.
func (p *Pool) Submit(ctx context.Context, job Job) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	select {
	case p.jobs <- task{ctx: ctx, run: job}:
		return true
	default:
		log.Printf("Worker: queue full, dropping job")
		return false
	}
}

// Close stops the pool after draining queued work.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}
