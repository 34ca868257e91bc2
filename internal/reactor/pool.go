package reactor

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
	"go.uber.org/zap"

	"github.com/muurk/tlsprobe/internal/logging"
)

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("reactor: pool closed")

// Task is a unit of work.
type Task func()

// Pool is a fixed-size set of worker goroutines sharing one task queue.
type Pool struct {
	mu     sync.Mutex
	cond   *sync.Cond
	tasks  *queue.Queue
	closed bool
	size   int
	wg     sync.WaitGroup

	submitted atomic.Int64
	completed atomic.Int64
	panics    atomic.Int64
}

// Stats is a snapshot of pool counters.
type Stats struct {
	Workers   int
	Submitted int64
	Completed int64
	Pending   int64
	Panics    int64
}

// NewPool starts size workers. A size below 1 uses DefaultSize.
func NewPool(size int) *Pool {
	if size < 1 {
		size = DefaultSize()
	}
	p := &Pool{
		tasks: queue.New(),
		size:  size,
	}
	p.cond = sync.NewCond(&p.mu)

	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker(i)
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.size
}

// Submit queues t for execution by some worker.
func (p *Pool) Submit(t Task) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.tasks.Add(t)
	p.submitted.Add(1)
	p.mu.Unlock()

	p.cond.Signal()
	return nil
}

// Close stops accepting tasks, lets the workers drain what is queued and waits
// for them to exit. It must not be called from a pool task.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.cond.Broadcast()
	p.wg.Wait()
}

// Stats returns current counters.
func (p *Pool) Stats() Stats {
	submitted := p.submitted.Load()
	completed := p.completed.Load()
	return Stats{
		Workers:   p.size,
		Submitted: submitted,
		Completed: completed,
		Pending:   submitted - completed,
		Panics:    p.panics.Load(),
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		for p.tasks.Length() == 0 && !p.closed {
			p.cond.Wait()
		}
		if p.tasks.Length() == 0 {
			p.mu.Unlock()
			return
		}
		t := p.tasks.Remove().(Task)
		p.mu.Unlock()

		p.run(id, t)
	}
}

// run executes t, keeping the worker alive if it panics.
func (p *Pool) run(id int, t Task) {
	defer func() {
		if r := recover(); r != nil {
			p.panics.Add(1)
			logging.Error("Recovered panic in pool task",
				zap.Int("worker", id),
				zap.String("panic", fmt.Sprint(r)),
				zap.Stack("stack"),
			)
		}
		p.completed.Add(1)
	}()
	t()
}
