//go:build race

package opt

import "sync"

// Sema is the race-detector friendly variant of the runtime semaphore.
// The detector cannot see the happens-before edges created by
// runtime_Semacquire, so under -race permits are tracked by a mutex and
// condition variable instead.
//
// The zero value has no permits.
type Sema struct {
	mu      sync.Mutex
	cond    *sync.Cond
	permits uint32
}

// Acquire blocks until a permit is available and takes it.
func (s *Sema) Acquire() {
	s.mu.Lock()
	if s.cond == nil {
		s.cond = sync.NewCond(&s.mu)
	}
	for s.permits == 0 {
		s.cond.Wait()
	}
	s.permits--
	s.mu.Unlock()
}

// Release adds one permit, waking one parked goroutine if any.
func (s *Sema) Release() {
	s.mu.Lock()
	s.permits++
	if s.cond != nil {
		s.cond.Signal()
	}
	s.mu.Unlock()
}
