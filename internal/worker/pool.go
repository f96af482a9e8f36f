package worker

import (
	"context"
	"sync"
)

// Job is a unit of work run by the pool
type Job interface {
	Run(ctx context.Context) Result
}

// Result is the outcome of a job
type Result interface {
	Err() error
}

type queued struct {
	seq int
	job Job
}

type finished struct {
	seq    int
	result Result
}

// Pool runs jobs on a fixed number of goroutines and returns results in
// submission order
type Pool struct {
	workers   int
	queue     chan queued
	results   chan finished
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	collected chan []finished

	mu        sync.Mutex
	submitted int
	closed    bool
}

// NewPool creates a pool bound to ctx; cancelling ctx stops the workers
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	return &Pool{
		workers:   workers,
		queue:     make(chan queued, workers*2),
		results:   make(chan finished, workers*2),
		ctx:       ctx,
		cancel:    cancel,
		collected: make(chan []finished, 1),
	}
}

// Start launches the workers and the result collector
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.work()
	}
	go p.collect()
}

func (p *Pool) collect() {
	var all []finished
	for f := range p.results {
		all = append(all, f)
	}
	p.collected <- all
}

func (p *Pool) work() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case q, ok := <-p.queue:
			if !ok {
				return
			}
			res := q.job.Run(p.ctx)
			select {
			case p.results <- finished{seq: q.seq, result: res}:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues job and reports whether it was accepted. Jobs submitted after
// Wait or Shutdown, or after the context is done, are dropped.
func (p *Pool) Submit(job Job) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}

	select {
	case <-p.ctx.Done():
		return false
	case p.queue <- queued{seq: p.submitted, job: job}:
		p.submitted++
		return true
	}
}

// Wait closes the queue, waits for every accepted job and returns their
// results in submission order. Slots of jobs that never ran are nil.
func (p *Pool) Wait() []Result {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	total := p.submitted
	p.mu.Unlock()

	p.wg.Wait()
	p.closeResults()

	out := make([]Result, total)
	for _, f := range <-p.collected {
		out[f.seq] = f.result
	}
	p.cancel()
	return out
}

// Shutdown cancels in-flight jobs and stops the workers
func (p *Pool) Shutdown() {
	p.cancel()

	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
	p.closeResults()
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}
