package kernel

// NotifyAction selects how a notification updates the notification value of
// the receiving task.
type NotifyAction uint8

const (
	NotifyNoAction NotifyAction = iota
	NotifySetBits
	NotifyIncrement
	NotifySetValueWithOverwrite
	NotifySetValueWithoutOverwrite
)

// notifyLocked fails only for NotifySetValueWithoutOverwrite on a task that
// has a notification pending already.
func (t *tcb) notifyLocked(value uint32, action NotifyAction) bool {
	switch action {
	case NotifySetBits:
		t.notifyValue |= value
	case NotifyIncrement:
		t.notifyValue++
	case NotifySetValueWithOverwrite:
		t.notifyValue = value
	case NotifySetValueWithoutOverwrite:
		if t.notifyPending {
			return false
		}
		t.notifyValue = value
	}
	t.notifyPending = true
	t.notifyWaiters.wakeAll()
	return true
}

// TaskNotify sends a notification to a task.
func (k *Kernel) TaskNotify(h Handle, value uint32, action NotifyAction) bool {
	t := lookup[tcb](k, h)
	if t == nil {
		return false
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if t.deleted {
		return false
	}
	return t.notifyLocked(value, action)
}

// TaskNotifyFromISR sends a notification from interrupt context. woken
// reports that the notified task outranks the interrupted one.
func (k *Kernel) TaskNotifyFromISR(h Handle, value uint32, action NotifyAction) (ok, woken bool) {
	t := lookup[tcb](k, h)
	if t == nil {
		return false, false
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if t.deleted {
		return false, false
	}
	waiting := t.notifyWaiters.len() > 0
	if !t.notifyLocked(value, action) {
		return false, false
	}
	return true, waiting && t.priority > k.interruptedPriority()
}

// TaskNotifyWait waits for a notification to the calling task. Bits in
// clearOnEntry are cleared before waiting when nothing is pending; bits in
// clearOnExit are cleared from the value once received. The value is
// returned as it was before the exit clear.
func (k *Kernel) TaskNotifyWait(clearOnEntry, clearOnExit uint32, timeout Tick) (uint32, bool) {
	t := k.current()
	k.mu.Lock()
	k.checkpointLocked(t)
	if !t.notifyPending {
		t.notifyValue &^= clearOnEntry
	}
	if !k.block(t, &t.notifyWaiters, timeout, func() bool { return t.notifyPending }) {
		k.mu.Unlock()
		return 0, false
	}
	v := t.notifyValue
	t.notifyValue &^= clearOnExit
	t.notifyPending = false
	k.mu.Unlock()
	return v, true
}
