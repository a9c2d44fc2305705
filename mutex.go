package osal

// Mutex guards a value of type T with a RawMutex.
type Mutex[T any] struct {
	raw  *RawMutex
	data T
}

// NewMutex returns a Mutex guarding v.
func NewMutex[T any](v T) (*Mutex[T], error) {
	raw, err := NewRawMutex()
	if err != nil {
		return nil, err
	}
	return &Mutex[T]{raw: raw, data: v}, nil
}

// MutexGuard grants access to the guarded value until Unlock.
type MutexGuard[T any] struct {
	m        *Mutex[T]
	released bool
}

// Lock waits for the mutex. The holder may lock again; every Lock needs its
// own Unlock.
func (m *Mutex[T]) Lock() (*MutexGuard[T], error) {
	if err := m.raw.Lock(); err != nil {
		return nil, err
	}
	return &MutexGuard[T]{m: m}, nil
}

// With runs fn on the guarded value and unlocks on every way out of fn,
// including a panic.
func (m *Mutex[T]) With(fn func(*T) error) error {
	g, err := m.Lock()
	if err != nil {
		return err
	}
	defer g.Unlock()
	return fn(g.Get())
}

// Delete deletes the underlying RawMutex.
func (m *Mutex[T]) Delete() {
	m.raw.Delete()
}

// Get returns the guarded value.
func (g *MutexGuard[T]) Get() *T {
	return &g.m.data
}

// Unlock releases the mutex. Later calls do nothing.
func (g *MutexGuard[T]) Unlock() error {
	if g.released {
		return nil
	}
	g.released = true
	return g.m.raw.Unlock()
}
