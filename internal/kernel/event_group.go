package kernel

// eventBitsControl are the top bits of the event word, reserved by the
// kernel and never set or waited for.
const eventBitsControl EventBits = 0xff000000

type eventGroup struct {
	bits    EventBits
	deleted bool
	waiters waitList
}

// EventGroupCreate creates an event group with every bit clear.
func (k *Kernel) EventGroupCreate() Handle {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.allocLocked(eventGroupSize) {
		return 0
	}
	return k.register(&eventGroup{})
}

// EventGroupSetBits sets bits and returns the resulting bits.
func (k *Kernel) EventGroupSetBits(h Handle, bits EventBits) EventBits {
	g := lookup[eventGroup](k, h)
	if g == nil {
		return 0
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	g.bits |= bits &^ eventBitsControl
	g.waiters.wakeAll()
	return g.bits
}

// EventGroupSetBitsFromISR sets bits from interrupt context.
func (k *Kernel) EventGroupSetBitsFromISR(h Handle, bits EventBits) (ok, woken bool) {
	g := lookup[eventGroup](k, h)
	if g == nil {
		return false, false
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	g.bits |= bits &^ eventBitsControl
	g.waiters.wakeAll()
	return true, g.waiters.outranks(k.interruptedPriority())
}

// EventGroupClearBits clears bits and returns the bits before the clear.
func (k *Kernel) EventGroupClearBits(h Handle, bits EventBits) EventBits {
	g := lookup[eventGroup](k, h)
	if g == nil {
		return 0
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	prev := g.bits
	g.bits &^= bits
	return prev
}

// EventGroupClearBitsFromISR clears bits from interrupt context.
func (k *Kernel) EventGroupClearBitsFromISR(h Handle, bits EventBits) bool {
	g := lookup[eventGroup](k, h)
	if g == nil {
		return false
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	g.bits &^= bits
	return true
}

// EventGroupGetBits returns the current bits.
func (k *Kernel) EventGroupGetBits(h Handle) EventBits {
	g := lookup[eventGroup](k, h)
	if g == nil {
		return 0
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	return g.bits
}

// EventGroupWaitBits waits until any bit of waitFor is set, or every bit
// when all is true, for up to timeout ticks. It returns the bits at the time
// the wait ended; on timeout the condition does not hold for them. With
// clearOnExit the awaited bits are cleared when the condition was met.
func (k *Kernel) EventGroupWaitBits(h Handle, waitFor EventBits, clearOnExit, all bool, timeout Tick) EventBits {
	t := k.current()
	g := lookup[eventGroup](k, h)
	if g == nil {
		return 0
	}
	waitFor &^= eventBitsControl
	met := func() bool {
		if all {
			return g.bits&waitFor == waitFor
		}
		return g.bits&waitFor != 0
	}
	k.mu.Lock()
	k.checkpointLocked(t)
	ok := waitFor != 0 && k.block(t, &g.waiters, timeout, func() bool { return g.deleted || met() })
	bits := g.bits
	if ok && !g.deleted && clearOnExit {
		g.bits &^= waitFor
	}
	k.mu.Unlock()
	return bits
}

// EventGroupDelete deletes an event group. Tasks waiting on it return.
func (k *Kernel) EventGroupDelete(h Handle) bool {
	g := lookup[eventGroup](k, h)
	if g == nil {
		return false
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if g.deleted {
		return false
	}
	g.deleted = true
	g.waiters.wakeAll()
	k.unregister(h)
	k.freeLocked(eventGroupSize)
	return true
}
