package kernel

import (
	"runtime"
	"slices"
)

// waiter is one blocked task on one wait list.
type waiter struct {
	t       *tcb
	ch      chan struct{}
	start   Tick
	timeout Tick
	expired bool // set by the tick under k.mu
}

func (w *waiter) signal() {
	select {
	case w.ch <- struct{}{}:
	default:
	}
}

// waitList is the set of tasks blocked on one kernel object.
type waitList struct {
	ws []*waiter
}

func (l *waitList) add(w *waiter) {
	l.ws = append(l.ws, w)
}

func (l *waitList) remove(w *waiter) {
	if i := slices.Index(l.ws, w); i >= 0 {
		l.ws = slices.Delete(l.ws, i, i+1)
	}
}

func (l *waitList) wakeAll() {
	for _, w := range l.ws {
		w.signal()
	}
}

func (l *waitList) len() int {
	return len(l.ws)
}

// outranks reports whether a blocked task has a priority above prio.
func (l *waitList) outranks(prio uint32) bool {
	for _, w := range l.ws {
		if w.t.priority > prio {
			return true
		}
	}
	return false
}

// block parks t on l until ready holds or timeout ticks elapse. It is called
// and returns with k.mu held. A task deleted while parked never returns.
func (k *Kernel) block(t *tcb, l *waitList, timeout Tick, ready func() bool) bool {
	if ready() {
		return true
	}
	if timeout == 0 {
		return false
	}
	w := &waiter{t: t, ch: make(chan struct{}, 1), start: k.TickCount(), timeout: timeout}
	for {
		l.add(w)
		if timeout != MaxDelay {
			k.delayed[w] = struct{}{}
		}
		t.wait = w
		k.mu.Unlock()

		<-w.ch

		k.mu.Lock()
		l.remove(w)
		delete(k.delayed, w)
		t.wait = nil
		if t.deleted {
			k.exitLocked()
		}
		if ready() {
			return true
		}
		if w.expired {
			return false
		}
	}
}

// checkpointLocked is where another task's suspend or delete catches up
// with t. It is called and returns with k.mu held.
func (k *Kernel) checkpointLocked(t *tcb) {
	if t.deleted {
		k.exitLocked()
	}
	if t.suspended {
		k.block(t, &t.resumers, MaxDelay, func() bool { return !t.suspended || t.deleted })
	}
}

// exitLocked ends the calling task goroutine. Its control block has been
// released already.
func (k *Kernel) exitLocked() {
	k.mu.Unlock()
	runtime.Goexit()
}

// interruptedPriority is the priority of the task an ISR would have
// interrupted. A goroutine that is not a task counts as the idle task.
func (k *Kernel) interruptedPriority() uint32 {
	if t, ok := k.tasks.Load(currentID()); ok {
		return t.priority
	}
	return 0
}
