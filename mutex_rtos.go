//go:build rtos

package osal

// RawMutex is a recursive mutex: the holder may lock it again, and every
// Lock needs its own Unlock.
type RawMutex struct {
	h handle
}

// NewRawMutex creates an unlocked mutex.
func NewRawMutex() (*RawMutex, error) {
	h := sys().SemaphoreCreateRecursiveMutex()
	if h == 0 {
		return nil, ErrOutOfMemory
	}
	m := &RawMutex{}
	m.h.set(h)
	return m, nil
}

// Lock waits for the mutex without a timeout.
func (m *RawMutex) Lock() error {
	h, err := m.h.get()
	if err != nil {
		return err
	}
	if !sys().SemaphoreTake(h, WaitForever) {
		return ErrMutexLockFailed
	}
	return nil
}

// LockFromISR takes the mutex from interrupt context, failing if it is
// held.
func (m *RawMutex) LockFromISR() (woken bool, err error) {
	h, err := m.h.get()
	if err != nil {
		return false, err
	}
	ok, woken := sys().SemaphoreTakeFromISR(h)
	if !ok {
		return false, ErrMutexLockFailed
	}
	return woken, nil
}

// Unlock undoes one Lock. It fails when the caller does not hold the
// mutex.
func (m *RawMutex) Unlock() error {
	h, err := m.h.get()
	if err != nil {
		return err
	}
	if !sys().SemaphoreGive(h) {
		return ErrMutexLockFailed
	}
	return nil
}

// UnlockFromISR undoes one LockFromISR.
func (m *RawMutex) UnlockFromISR() (woken bool, err error) {
	h, err := m.h.get()
	if err != nil {
		return false, err
	}
	ok, woken := sys().SemaphoreGiveFromISR(h)
	if !ok {
		return false, ErrMutexLockFailed
	}
	return woken, nil
}

// Delete deletes the mutex.
func (m *RawMutex) Delete() {
	if h := m.h.take(); h != 0 {
		sys().SemaphoreDelete(h)
	}
}
