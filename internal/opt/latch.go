package opt

import "sync/atomic"

// Latch is a one-way door: once Open is called, every current and future
// Wait returns immediately.
//
// It is zero-value usable (starts closed).
type Latch struct {
	// state 32-bit:
	//   bit 0: open flag (1 = open)
	//   bits 1-31: waiter count
	state atomic.Uint32
	sema  Sema
}

const (
	latchOpenFlag  = 1
	latchOneWaiter = 2 // 1 << 1
)

// Open opens the door and wakes every blocked waiter.
// Open is idempotent.
func (l *Latch) Open() {
	for {
		s := l.state.Load()
		if s&latchOpenFlag != 0 {
			return
		}
		if l.state.CompareAndSwap(s, s|latchOpenFlag) {
			waiters := s >> 1
			for range waiters {
				l.sema.Release()
			}
			return
		}
	}
}

// Wait blocks until Open is called.
// If Open has already been called, it returns immediately.
func (l *Latch) Wait() {
	for {
		s := l.state.Load()
		if s&latchOpenFlag != 0 {
			return
		}
		if l.state.CompareAndSwap(s, s+latchOneWaiter) {
			l.sema.Acquire()
			return
		}
	}
}

// IsOpen reports whether Open has been called.
func (l *Latch) IsOpen() bool {
	return l.state.Load()&latchOpenFlag != 0
}
