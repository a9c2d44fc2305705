//go:build linux && !rtos

package osal

type semaphoreState struct {
	c       cond
	count   uint32
	max     uint32
	deleted bool
}

// Semaphore is a counting semaphore.
type Semaphore struct {
	s ref[semaphoreState]
}

// NewSemaphore creates a semaphore counting up to max, starting at initial.
func NewSemaphore(max, initial uint32) (*Semaphore, error) {
	if max == 0 || initial > max {
		return nil, Unhandled("semaphore initial count above its maximum")
	}
	s := &Semaphore{}
	s.s.set(&semaphoreState{count: initial, max: max})
	return s, nil
}

// NewSemaphoreWithCount creates an unbounded semaphore starting at
// initial.
func NewSemaphoreWithCount(initial uint32) (*Semaphore, error) {
	return NewSemaphore(SemaphoreMaxCount, initial)
}

// Wait takes the semaphore, waiting up to timeout. It reports false on
// timeout or when the semaphore was deleted.
func (s *Semaphore) Wait(timeout Tick) bool {
	st, err := s.s.get()
	if err != nil {
		return false
	}
	st.c.mu.Lock()
	defer st.c.mu.Unlock()
	st.c.waitUntilLocked(timeout, func() bool { return st.deleted || st.count > 0 })
	if st.deleted || st.count == 0 {
		return false
	}
	st.count--
	return true
}

// WaitFromISR takes the semaphore without blocking.
func (s *Semaphore) WaitFromISR() (ok, woken bool) {
	return s.Wait(0), false
}

// Signal gives the semaphore. It reports false when the count is at its
// maximum.
func (s *Semaphore) Signal() bool {
	ok, _ := s.SignalFromISR()
	return ok
}

// SignalFromISR gives the semaphore and reports whether a waiter was woken.
func (s *Semaphore) SignalFromISR() (ok, woken bool) {
	st, err := s.s.get()
	if err != nil {
		return false, false
	}
	st.c.mu.Lock()
	defer st.c.mu.Unlock()
	if st.deleted || st.count == st.max {
		return false, false
	}
	st.count++
	woken = st.c.hasWaitersLocked()
	st.c.broadcastLocked()
	return true, woken
}

// Count returns the current count.
func (s *Semaphore) Count() uint32 {
	st, err := s.s.get()
	if err != nil {
		return 0
	}
	st.c.mu.Lock()
	defer st.c.mu.Unlock()
	return st.count
}

// Delete deletes the semaphore; blocked waiters fail.
func (s *Semaphore) Delete() {
	st := s.s.take()
	if st == nil {
		return
	}
	st.c.mu.Lock()
	st.deleted = true
	st.c.broadcastLocked()
	st.c.mu.Unlock()
}
