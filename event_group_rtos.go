//go:build rtos

package osal

// EventGroup is a word of event flags that threads can wait on.
type EventGroup struct {
	h handle
}

// NewEventGroup creates an event group with no bits set.
func NewEventGroup() (*EventGroup, error) {
	h := sys().EventGroupCreate()
	if h == 0 {
		return nil, ErrOutOfMemory
	}
	g := &EventGroup{}
	g.h.set(h)
	return g, nil
}

// Set sets bits and returns the bits after the set.
func (g *EventGroup) Set(bits EventBits) EventBits {
	h, err := g.h.get()
	if err != nil {
		return 0
	}
	return sys().EventGroupSetBits(h, bits)
}

// SetFromISR sets bits from interrupt context.
func (g *EventGroup) SetFromISR(bits EventBits) (woken bool, err error) {
	h, err := g.h.get()
	if err != nil {
		return false, err
	}
	_, woken = sys().EventGroupSetBitsFromISR(h, bits)
	return woken, nil
}

// Clear clears bits and returns the bits before the clear.
func (g *EventGroup) Clear(bits EventBits) EventBits {
	h, err := g.h.get()
	if err != nil {
		return 0
	}
	return sys().EventGroupClearBits(h, bits)
}

// ClearFromISR clears bits from interrupt context.
func (g *EventGroup) ClearFromISR(bits EventBits) error {
	h, err := g.h.get()
	if err != nil {
		return err
	}
	sys().EventGroupClearBitsFromISR(h, bits)
	return nil
}

// Get returns the bits.
func (g *EventGroup) Get() EventBits {
	h, err := g.h.get()
	if err != nil {
		return 0
	}
	return sys().EventGroupGetBits(h)
}

// GetFromISR returns the bits from interrupt context.
func (g *EventGroup) GetFromISR() EventBits {
	return g.Get()
}

// Wait waits up to timeout for any bit of mask and returns the bits of
// mask that were set, none on timeout. The bits stay set.
func (g *EventGroup) Wait(mask EventBits, timeout Tick) EventBits {
	h, err := g.h.get()
	if err != nil {
		return 0
	}
	return sys().EventGroupWaitBits(h, mask, false, false, timeout) & mask
}

// Delete deletes the event group; waiters return.
func (g *EventGroup) Delete() {
	if h := g.h.take(); h != 0 {
		sys().EventGroupDelete(h)
	}
}
