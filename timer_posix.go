//go:build linux && !rtos

package osal

import "time"

type timerState struct {
	tok        rawToken
	autoReload bool

	// Guarded by the timer service.
	period   Tick
	deadline time.Time
	deleted  bool
}

// Timer is a software timer. Its callback runs on the timer service thread.
type Timer struct {
	s    ref[timerState]
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
	t.tok = tok
	t.s.set(&timerState{tok: tok, autoReload: autoReload, period: period})
	return t, nil
}

func (t *Timer) command(op timerOp, period Tick, ticksToWait Tick) bool {
	st, err := t.s.get()
	if err != nil {
		return false
	}
	return timerSvc().send(timerCommand{op: op, st: st, period: period, at: time.Now()}, ticksToWait)
}

// Start starts the timer; the period counts from now. ticksToWait bounds
// the wait for room in the timer command queue.
func (t *Timer) Start(ticksToWait Tick) bool {
	return t.command(timerStart, 0, ticksToWait)
}

// Stop stops the timer.
func (t *Timer) Stop(ticksToWait Tick) bool {
	return t.command(timerStop, 0, ticksToWait)
}

// Reset restarts the timer; the period counts from now.
func (t *Timer) Reset(ticksToWait Tick) bool {
	return t.command(timerReset, 0, ticksToWait)
}

// ChangePeriod sets a new period and starts the timer.
func (t *Timer) ChangePeriod(period, ticksToWait Tick) bool {
	return period != 0 && t.command(timerChangePeriod, period, ticksToWait)
}

// IsActive reports whether the timer is running.
func (t *Timer) IsActive() bool {
	st, err := t.s.get()
	return err == nil && timerSvc().isActive(st)
}

// ExpiryTime returns the tick at which the timer fires next. It is only
// meaningful while the timer is active, and zero before the first start
// and once the timer is deleted.
func (t *Timer) ExpiryTime() Tick {
	st, err := t.s.get()
	if err != nil {
		return 0
	}
	at := timerSvc().deadline(st)
	if at.IsZero() {
		return 0
	}
	return Tick(CurrentConfig().InitialTick) + DurationToTicks(at.Sub(tickEpoch))
}

// Delete deletes the timer. The timer is unusable afterwards even when the
// command could not be queued, in which case Delete reports false. Later
// calls do nothing and report true.
func (t *Timer) Delete(ticksToWait Tick) bool {
	st := t.s.take()
	if st == nil {
		return true
	}
	dropTimerBox(t.tok)
	return timerSvc().send(timerCommand{op: timerDelete, st: st}, ticksToWait)
}
