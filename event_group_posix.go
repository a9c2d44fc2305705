//go:build linux && !rtos

package osal

type eventGroupState struct {
	c       cond
	bits    EventBits
	deleted bool
}

// EventGroup is a word of event flags that threads can wait on.
type EventGroup struct {
	s ref[eventGroupState]
}

// NewEventGroup creates an event group with no bits set.
func NewEventGroup() (*EventGroup, error) {
	g := &EventGroup{}
	g.s.set(&eventGroupState{})
	return g, nil
}

// Set sets bits and returns the bits after the set.
func (g *EventGroup) Set(bits EventBits) EventBits {
	v, _, _ := g.set(bits)
	return v
}

func (g *EventGroup) set(bits EventBits) (EventBits, bool, error) {
	st, err := g.s.get()
	if err != nil {
		return 0, false, err
	}
	st.c.mu.Lock()
	defer st.c.mu.Unlock()
	st.bits |= bits
	woken := st.c.hasWaitersLocked()
	st.c.broadcastLocked()
	return st.bits, woken, nil
}

// SetFromISR sets bits from interrupt context.
func (g *EventGroup) SetFromISR(bits EventBits) (woken bool, err error) {
	_, woken, err = g.set(bits)
	return woken, err
}

// Clear clears bits and returns the bits before the clear.
func (g *EventGroup) Clear(bits EventBits) EventBits {
	st, err := g.s.get()
	if err != nil {
		return 0
	}
	st.c.mu.Lock()
	defer st.c.mu.Unlock()
	prev := st.bits
	st.bits &^= bits
	return prev
}

// ClearFromISR clears bits from interrupt context.
func (g *EventGroup) ClearFromISR(bits EventBits) error {
	if _, err := g.s.get(); err != nil {
		return err
	}
	g.Clear(bits)
	return nil
}

// Get returns the bits.
func (g *EventGroup) Get() EventBits {
	st, err := g.s.get()
	if err != nil {
		return 0
	}
	st.c.mu.Lock()
	defer st.c.mu.Unlock()
	return st.bits
}

// GetFromISR returns the bits from interrupt context.
func (g *EventGroup) GetFromISR() EventBits {
	return g.Get()
}

// Wait waits up to timeout for any bit of mask and returns the bits of
// mask that were set, none on timeout. The bits stay set.
func (g *EventGroup) Wait(mask EventBits, timeout Tick) EventBits {
	st, err := g.s.get()
	if err != nil {
		return 0
	}
	st.c.mu.Lock()
	defer st.c.mu.Unlock()
	st.c.waitUntilLocked(timeout, func() bool { return st.deleted || st.bits&mask != 0 })
	if st.deleted {
		return 0
	}
	return st.bits & mask
}

// Delete deletes the event group; waiters return.
func (g *EventGroup) Delete() {
	st := g.s.take()
	if st == nil {
		return
	}
	st.c.mu.Lock()
	st.deleted = true
	st.c.broadcastLocked()
	st.c.mu.Unlock()
}
