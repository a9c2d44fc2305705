package osal

import "fmt"

// TimerFunc is the callback of a Timer. It runs on the timer service, never
// on the caller of Start. A returned parameter is released and an error is
// logged.
type TimerFunc func(t *Timer, param ThreadParam) (ThreadParam, error)

// timerBox lives as long as its timer and is looked up on every expiry.
type timerBox struct {
	timer    *Timer
	callback TimerFunc
	param    ThreadParam
}

func (b *timerBox) fire() {
	defer func() {
		if r := recover(); r != nil {
			logger().Error("osal: timer callback panicked", "timer", b.timer.name, "panic", fmt.Sprint(r))
		}
	}()
	res, err := b.callback(b.timer, b.param)
	res.Release()
	if err != nil {
		logger().Debug("osal: timer callback failed", "timer", b.timer.name, "err", err)
	}
}

func (b *timerBox) release() {
	b.param.Release()
}

func newTimerBox(t *Timer, period Tick, param ThreadParam, callback TimerFunc) (rawToken, error) {
	if callback == nil {
		return 0, ErrNullPtr
	}
	if period == 0 {
		return 0, Unhandled("timer period of zero ticks")
	}
	return intoRaw(&timerBox{timer: t, callback: callback, param: param.Clone()}), nil
}

func dropTimerBox(tok rawToken) {
	if b, ok := fromRaw[timerBox](tok); ok {
		b.release()
	}
}

// Name returns the timer name.
func (t *Timer) Name() string {
	return t.name
}
