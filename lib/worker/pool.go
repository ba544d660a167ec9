// Package worker provides a small fixed pool of background goroutines
// consuming a FIFO task queue. The server uses it to move the teardown
// of large containers off the event loop: a task owns whatever it
// captures, nothing is shared with the producer after Submit returns.
package worker

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

const defaultWorkers = 4

// Pool is a fire-and-forget work queue served by a fixed set of
// workers. There is no result channel and no shutdown: workers run for
// the process lifetime.
type Pool struct {
	mu    sync.Mutex
	cond  *sync.Cond
	queue []func()

	// task counters, readable from any goroutine (metrics endpoint)
	submitted *xsync.Counter
	completed *xsync.Counter
}

// NewPool creates a pool with the given number of workers and starts
// them. A size of 0 or less selects the default of 4.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = defaultWorkers
	}
	p := &Pool{
		submitted: xsync.NewCounter(),
		completed: xsync.NewCounter(),
	}
	p.cond = sync.NewCond(&p.mu)
	for i := 0; i < size; i++ {
		go p.run()
	}
	return p
}

// Submit appends a task and wakes one worker.
//
// Thread-safety: This method is thread-safe, though the server only
// ever calls it from the event loop.
func (p *Pool) Submit(task func()) {
	p.mu.Lock()
	p.queue = append(p.queue, task)
	p.mu.Unlock()
	p.submitted.Inc()
	p.cond.Signal()
}

// Submitted returns the number of tasks handed to the pool so far.
func (p *Pool) Submitted() int64 { return p.submitted.Value() }

// Completed returns the number of tasks that finished running.
func (p *Pool) Completed() int64 { return p.completed.Value() }

// run is the worker main loop: block while the queue is empty, pop the
// head, execute.
func (p *Pool) run() {
	for {
		p.mu.Lock()
		for len(p.queue) == 0 {
			p.cond.Wait()
		}
		task := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		task()
		p.completed.Inc()
	}
}
