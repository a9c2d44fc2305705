//go:build rtos

package osal

import "github.com/llxisdsh/osal/internal/kernel"

// Timer is a software timer. Its callback runs on the kernel timer service
// task.
type Timer struct {
	h    handle
	name string
	tok  rawToken
}

// NewTimer creates a timer that is not running. period is in ticks and
// must not be zero.
func NewTimer(name string, period Tick, autoReload bool, param ThreadParam, callback TimerFunc) (*Timer, error) {
	t := &Timer{name: name}
	tok, err := newTimerBox(t, period, param, callback)
	if err != nil {
		return nil, err
	}
	h := sys().TimerCreate(name, period, autoReload, uintptr(tok), timerEntry)
	if h == 0 {
		dropTimerBox(tok)
		return nil, ErrOutOfMemory
	}
	t.h.set(h)
	t.tok = tok
	return t, nil
}

func timerEntry(h kernel.Handle) {
	if b, ok := peekRaw[timerBox](rawToken(sys().TimerGetID(h))); ok {
		b.fire()
	}
}

// Start starts the timer; the period counts from now. ticksToWait bounds
// the wait for room in the timer command queue.
func (t *Timer) Start(ticksToWait Tick) bool {
	h, err := t.h.get()
	return err == nil && sys().TimerStart(h, ticksToWait)
}

// Stop stops the timer.
func (t *Timer) Stop(ticksToWait Tick) bool {
	h, err := t.h.get()
	return err == nil && sys().TimerStop(h, ticksToWait)
}

// Reset restarts the timer; the period counts from now.
func (t *Timer) Reset(ticksToWait Tick) bool {
	h, err := t.h.get()
	return err == nil && sys().TimerReset(h, ticksToWait)
}

// ChangePeriod sets a new period and starts the timer.
func (t *Timer) ChangePeriod(period, ticksToWait Tick) bool {
	h, err := t.h.get()
	return err == nil && sys().TimerChangePeriod(h, period, ticksToWait)
}

// IsActive reports whether the timer is running.
func (t *Timer) IsActive() bool {
	h, err := t.h.get()
	return err == nil && sys().TimerIsActive(h)
}

// ExpiryTime returns the tick at which the timer fires next. It is only
// meaningful while the timer is active, and zero once it is deleted.
func (t *Timer) ExpiryTime() Tick {
	h, err := t.h.get()
	if err != nil {
		return 0
	}
	return sys().TimerGetExpiryTime(h)
}

// Delete deletes the timer. The timer is unusable afterwards even when the
// command could not be queued, in which case Delete reports false. Later
// calls do nothing and report true.
func (t *Timer) Delete(ticksToWait Tick) bool {
	h := t.h.take()
	if h == 0 {
		return true
	}
	dropTimerBox(t.tok)
	return sys().TimerDelete(h, ticksToWait)
}
