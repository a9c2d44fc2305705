//go:build linux && !rtos

package osal

import (
	"runtime"
	"slices"
	"sync"
	"time"
)

type timerOp uint8

const (
	timerStart timerOp = iota + 1
	timerReset
	timerStop
	timerChangePeriod
	timerDelete
)

type timerCommand struct {
	op     timerOp
	st     *timerState
	period Tick
	at     time.Time
}

// timerService runs timer callbacks one at a time on its own OS thread, in
// the order their deadlines pass.
type timerService struct {
	cmds chan timerCommand

	mu     sync.Mutex
	active map[*timerState]struct{}
}

var timerSvc = sync.OnceValue(func() *timerService {
	cfg := CurrentConfig()
	s := &timerService{
		cmds:   make(chan timerCommand, cfg.TimerQueueLength),
		active: make(map[*timerState]struct{}),
	}
	p := newPosixThread("Tmr Svc", cfg.TimerTaskStackDepth, cfg.TimerTaskPriority)
	ready := make(chan struct{})
	go func() {
		runtime.LockOSThread()
		p.attach()
		close(ready)
		s.run()
	}()
	<-ready
	return s
})

// send queues cmd, waiting up to wait ticks for room in the command queue.
func (s *timerService) send(cmd timerCommand, wait Tick) bool {
	select {
	case s.cmds <- cmd:
		return true
	default:
	}
	switch wait {
	case 0:
		return false
	case WaitForever:
		s.cmds <- cmd
		return true
	}
	t := time.NewTimer(TicksToDuration(wait))
	defer t.Stop()
	select {
	case s.cmds <- cmd:
		return true
	case <-t.C:
		return false
	}
}

func (s *timerService) run() {
	wake := time.NewTimer(time.Hour)
	wake.Stop()
	for {
		var expiry <-chan time.Time
		if next, ok := s.nextDeadline(); ok {
			wake.Reset(time.Until(next))
			expiry = wake.C
		}
		select {
		case cmd := <-s.cmds:
			s.apply(cmd)
		case <-expiry:
		}
		wake.Stop()
		s.fireExpired()
	}
}

func (s *timerService) nextDeadline() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var next time.Time
	for st := range s.active {
		if next.IsZero() || st.deadline.Before(next) {
			next = st.deadline
		}
	}
	return next, !next.IsZero()
}

func (s *timerService) apply(cmd timerCommand) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := cmd.st
	if st.deleted {
		return
	}
	switch cmd.op {
	case timerStart, timerReset:
		st.deadline = cmd.at.Add(TicksToDuration(st.period))
		s.active[st] = struct{}{}
	case timerStop:
		delete(s.active, st)
	case timerChangePeriod:
		st.period = cmd.period
		st.deadline = cmd.at.Add(TicksToDuration(st.period))
		s.active[st] = struct{}{}
	case timerDelete:
		st.deleted = true
		delete(s.active, st)
	}
}

func (s *timerService) fireExpired() {
	for _, st := range s.collectDue(time.Now()) {
		if b, ok := peekRaw[timerBox](st.tok); ok {
			b.fire()
		}
	}
}

// collectDue returns the timers whose deadline is not after now, earliest
// deadline first, and moves auto-reload timers to their next period.
func (s *timerService) collectDue(now time.Time) []*timerState {
	type dueTimer struct {
		st *timerState
		at time.Time
	}
	var due []dueTimer
	s.mu.Lock()
	for st := range s.active {
		if now.Before(st.deadline) {
			continue
		}
		due = append(due, dueTimer{st, st.deadline})
		if !st.autoReload {
			delete(s.active, st)
			continue
		}
		period := TicksToDuration(st.period)
		st.deadline = st.deadline.Add(period)
		if !now.Before(st.deadline) {
			// Missed periods are dropped.
			st.deadline = now.Add(period)
		}
	}
	s.mu.Unlock()
	slices.SortStableFunc(due, func(a, b dueTimer) int {
		return a.at.Compare(b.at)
	})
	out := make([]*timerState, len(due))
	for i, d := range due {
		out[i] = d.st
	}
	return out
}

// deadline returns when st fires next, as set by its last start.
func (s *timerService) deadline(st *timerState) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return st.deadline
}

func (s *timerService) isActive(st *timerState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[st]
	return ok
}
