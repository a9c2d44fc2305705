package kernel

import (
	"encoding/binary"
	"fmt"
)

// softTimer is a software timer run by the timer service task.
type softTimer struct {
	handle     Handle
	name       string
	period     Tick
	autoReload bool
	id         uintptr
	callback   func(Handle)
	active     bool
	start      Tick // reference tick of the running period
}

type timerCommand uint32

const (
	timerStart timerCommand = iota + 1
	timerReset
	timerStop
	timerChangePeriod
	timerDelete
)

// timerCommandSize is the queue item size of the timer command queue:
// command, value and handle, little endian.
const timerCommandSize = 16

func encodeTimerCommand(cmd timerCommand, value uint32, h Handle) []byte {
	b := make([]byte, timerCommandSize)
	binary.LittleEndian.PutUint32(b[0:], uint32(cmd))
	binary.LittleEndian.PutUint32(b[4:], value)
	binary.LittleEndian.PutUint64(b[8:], uint64(h))
	return b
}

func decodeTimerCommand(b []byte) (timerCommand, uint32, Handle) {
	return timerCommand(binary.LittleEndian.Uint32(b[0:])),
		binary.LittleEndian.Uint32(b[4:]),
		Handle(binary.LittleEndian.Uint64(b[8:]))
}

// TimerCreate creates a dormant timer. It returns the zero handle when
// period is zero, callback is nil or the heap is exhausted.
func (k *Kernel) TimerCreate(name string, period Tick, autoReload bool, id uintptr, callback func(Handle)) Handle {
	if period == 0 || callback == nil {
		return 0
	}
	tm := &softTimer{
		name:       name,
		period:     period,
		autoReload: autoReload,
		id:         id,
		callback:   callback,
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.allocLocked(timerSize) {
		return 0
	}
	tm.handle = k.register(tm)
	k.timers[tm.handle] = tm
	return tm.handle
}

func (k *Kernel) sendTimerCommand(h Handle, cmd timerCommand, value uint32, wait Tick) bool {
	if lookup[softTimer](k, h) == nil {
		return false
	}
	return k.QueueSend(k.timerQueue, encodeTimerCommand(cmd, value, h), wait)
}

// TimerStart starts a timer; its period counts from now. A running timer is
// restarted. wait bounds the time spent waiting for room in the command
// queue.
func (k *Kernel) TimerStart(h Handle, wait Tick) bool {
	return k.sendTimerCommand(h, timerStart, k.TickCount(), wait)
}

// TimerReset restarts a timer; its period counts from now.
func (k *Kernel) TimerReset(h Handle, wait Tick) bool {
	return k.sendTimerCommand(h, timerReset, k.TickCount(), wait)
}

// TimerStop stops a timer.
func (k *Kernel) TimerStop(h Handle, wait Tick) bool {
	return k.sendTimerCommand(h, timerStop, 0, wait)
}

// TimerChangePeriod sets a new period and starts the timer.
func (k *Kernel) TimerChangePeriod(h Handle, period Tick, wait Tick) bool {
	if period == 0 {
		return false
	}
	return k.sendTimerCommand(h, timerChangePeriod, period, wait)
}

// TimerDelete deletes a timer once the service task processes the command.
func (k *Kernel) TimerDelete(h Handle, wait Tick) bool {
	return k.sendTimerCommand(h, timerDelete, 0, wait)
}

// TimerIsActive reports whether a timer is running.
func (k *Kernel) TimerIsActive(h Handle) bool {
	tm := lookup[softTimer](k, h)
	if tm == nil {
		return false
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	return tm.active
}

// TimerGetID returns the id given at creation.
func (k *Kernel) TimerGetID(h Handle) uintptr {
	if tm := lookup[softTimer](k, h); tm != nil {
		return tm.id
	}
	return 0
}

// TimerGetName returns the name given at creation.
func (k *Kernel) TimerGetName(h Handle) string {
	if tm := lookup[softTimer](k, h); tm != nil {
		return tm.name
	}
	return ""
}

// TimerGetPeriod returns the period of a timer.
func (k *Kernel) TimerGetPeriod(h Handle) Tick {
	tm := lookup[softTimer](k, h)
	if tm == nil {
		return 0
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	return tm.period
}

// TimerGetExpiryTime returns the tick at which a running timer fires next.
func (k *Kernel) TimerGetExpiryTime(h Handle) Tick {
	tm := lookup[softTimer](k, h)
	if tm == nil {
		return 0
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	return tm.start + tm.period
}

// timerService is the entry of the timer service task. It processes timer
// commands and runs the callbacks of expired timers, one at a time.
func (k *Kernel) timerService(uintptr) {
	msg := make([]byte, timerCommandSize)
	for {
		if k.QueueReceive(k.timerQueue, msg, k.nextExpiry()) {
			k.applyTimerCommand(decodeTimerCommand(msg))
		}
		k.fireExpired()
	}
}

// nextExpiry returns the ticks until the earliest running timer expires.
func (k *Kernel) nextExpiry() Tick {
	k.mu.Lock()
	defer k.mu.Unlock()
	now := k.TickCount()
	wait := MaxDelay
	for _, tm := range k.timers {
		if !tm.active {
			continue
		}
		elapsed := now - tm.start
		if elapsed >= tm.period {
			return 0
		}
		wait = min(wait, tm.period-elapsed)
	}
	return wait
}

func (k *Kernel) applyTimerCommand(cmd timerCommand, value uint32, h Handle) {
	k.mu.Lock()
	defer k.mu.Unlock()
	tm, ok := k.timers[h]
	if !ok {
		return
	}
	switch cmd {
	case timerStart, timerReset:
		tm.active = true
		tm.start = value
	case timerStop:
		tm.active = false
	case timerChangePeriod:
		tm.period = value
		tm.active = true
		tm.start = k.TickCount()
	case timerDelete:
		tm.active = false
		delete(k.timers, h)
		k.unregister(h)
		k.freeLocked(timerSize)
	}
}

func (k *Kernel) fireExpired() {
	var due []*softTimer
	k.mu.Lock()
	now := k.TickCount()
	for _, tm := range k.timers {
		if !tm.active || now-tm.start < tm.period {
			continue
		}
		due = append(due, tm)
		if !tm.autoReload {
			tm.active = false
			continue
		}
		tm.start += tm.period
		if now-tm.start >= tm.period {
			// Missed periods are dropped.
			tm.start = now
		}
	}
	k.mu.Unlock()
	for _, tm := range due {
		k.runTimerCallback(tm)
	}
}

func (k *Kernel) runTimerCallback(tm *softTimer) {
	defer func() {
		if r := recover(); r != nil {
			k.log.Error("timer callback panicked", "timer", tm.name, "err", fmt.Sprint(r))
		}
	}()
	tm.callback(tm.handle)
}
