//go:build rtos

package osal

// Semaphore is a counting semaphore.
type Semaphore struct {
	h handle
}

// NewSemaphore creates a semaphore counting up to max, starting at initial.
func NewSemaphore(max, initial uint32) (*Semaphore, error) {
	if max == 0 || initial > max {
		return nil, Unhandled("semaphore initial count above its maximum")
	}
	h := sys().SemaphoreCreateCounting(max, initial)
	if h == 0 {
		return nil, ErrOutOfMemory
	}
	s := &Semaphore{}
	s.h.set(h)
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
	h, err := s.h.get()
	return err == nil && sys().SemaphoreTake(h, timeout)
}

// WaitFromISR takes the semaphore without blocking.
func (s *Semaphore) WaitFromISR() (ok, woken bool) {
	h, err := s.h.get()
	if err != nil {
		return false, false
	}
	return sys().SemaphoreTakeFromISR(h)
}

// Signal gives the semaphore. It reports false when the count is at its
// maximum.
func (s *Semaphore) Signal() bool {
	h, err := s.h.get()
	return err == nil && sys().SemaphoreGive(h)
}

// SignalFromISR gives the semaphore from interrupt context.
func (s *Semaphore) SignalFromISR() (ok, woken bool) {
	h, err := s.h.get()
	if err != nil {
		return false, false
	}
	return sys().SemaphoreGiveFromISR(h)
}

// Count returns the current count.
func (s *Semaphore) Count() uint32 {
	h, err := s.h.get()
	if err != nil {
		return 0
	}
	return sys().SemaphoreGetCount(h)
}

// Delete deletes the semaphore; blocked waiters fail.
func (s *Semaphore) Delete() {
	if h := s.h.take(); h != 0 {
		sys().SemaphoreDelete(h)
	}
}
