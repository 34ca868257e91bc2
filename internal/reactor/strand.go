package reactor

import (
	"sync"

	"github.com/eapache/queue"
	"go.uber.org/zap"

	"github.com/muurk/tlsprobe/internal/logging"
)

// Strand serializes tasks on top of a Pool. Tasks posted to one strand run in
// FIFO order and never concurrently with each other.
type Strand struct {
	pool *Pool

	mu      sync.Mutex
	tasks   *queue.Queue
	running bool
}

// NewStrand returns a strand executing on p.
func NewStrand(p *Pool) *Strand {
	return &Strand{
		pool:  p,
		tasks: queue.New(),
	}
}

// Post queues t behind every task already posted to s. It never runs t
// inline, so it is safe to call from inside a strand task.
func (s *Strand) Post(t Task) error {
	s.mu.Lock()
	s.tasks.Add(t)
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	if err := s.pool.Submit(s.drain); err != nil {
		s.mu.Lock()
		s.running = false
		s.tasks = queue.New()
		s.mu.Unlock()
		logging.Debug("Dropped strand task", zap.Error(err))
		return err
	}
	return nil
}

// drain runs queued tasks until the strand is empty. Only one drain per
// strand is ever submitted at a time.
func (s *Strand) drain() {
	for {
		s.mu.Lock()
		if s.tasks.Length() == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}
		t := s.tasks.Remove().(Task)
		s.mu.Unlock()

		s.run(t)
	}
}

func (s *Strand) run(t Task) {
	defer func() {
		if r := recover(); r != nil {
			s.pool.panics.Add(1)
			logging.Error("Recovered panic in strand task",
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
		}
	}()
	t()
}
