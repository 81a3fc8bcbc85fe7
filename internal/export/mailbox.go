package export

import "sync"

// progressSlot is a single-slot mailbox: publish overwrites any unconsumed
// snapshot, next blocks until a snapshot is pending or the slot is closed.
// A snapshot pending at close time is still handed out once.
type progressSlot struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending *Progress
	closed  bool
	drops   uint64
}

func newProgressSlot() *progressSlot {
	s := &progressSlot{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *progressSlot) publish(p Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if s.pending != nil {
		s.drops++
	}
	s.pending = &p
	s.cond.Signal()
}

func (s *progressSlot) next() (Progress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.pending == nil && !s.closed {
		s.cond.Wait()
	}
	if s.pending == nil {
		return Progress{}, false
	}

	p := *s.pending
	s.pending = nil
	return p, true
}

func (s *progressSlot) close() {
	s.mu.Lock()
	s.closed = true
	s.cond.Signal()
	s.mu.Unlock()
}

func (s *progressSlot) dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drops
}
