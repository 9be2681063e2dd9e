// Package timer provides cancellable deferred callbacks for screens that
// must not act after they are torn down.
package timer

import (
	"sync"
	"time"
)

// Cancel stops one scheduled callback. Calling it more than once, or after
// the callback ran, is a no-op.
type Cancel func()

// Scheduler owns a set of pending callbacks. Stop defuses all of them: a
// callback that has not started by the time Stop returns never runs, and
// After on a stopped scheduler schedules nothing.
type Scheduler struct {
	mu      sync.Mutex
	stopped bool
	next    uint64
	pending map[uint64]*time.Timer
}

// New creates an empty scheduler.
func New() *Scheduler {
	return &Scheduler{pending: make(map[uint64]*time.Timer)}
}

// After runs fn on its own goroutine once d has elapsed.
func (s *Scheduler) After(d time.Duration, fn func()) Cancel {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return func() {}
	}

	id := s.next
	s.next++
	s.pending[id] = time.AfterFunc(d, func() {
		s.mu.Lock()
		_, ok := s.pending[id]
		if s.stopped || !ok {
			s.mu.Unlock()
			return
		}
		delete(s.pending, id)
		s.mu.Unlock()
		fn()
	})

	return func() { s.cancel(id) }
}

func (s *Scheduler) cancel(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.pending[id]; ok {
		t.Stop()
		delete(s.pending, id)
	}
}

// Stop cancels every pending callback and refuses new ones.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	for id, t := range s.pending {
		t.Stop()
		delete(s.pending, id)
	}
}

// Stopped reports whether Stop has been called.
func (s *Scheduler) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Pending returns the number of callbacks that have not fired yet.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
