//go:build linux && !rtos

package osal

import (
	"sync"
	"sync/atomic"
	"time"
)

// cond is a mutex with a condition variable that supports timed waits.
// Waiters are grouped in generations: broadcast releases the current
// generation, and waiters arriving later wait for the next one.
type cond struct {
	mu      sync.Mutex
	gen     chan struct{}
	waiters int
}

// broadcastLocked wakes every waiter. c.mu must be held.
func (c *cond) broadcastLocked() {
	if c.gen != nil {
		close(c.gen)
		c.gen = nil
	}
}

// hasWaitersLocked reports whether a thread is blocked. c.mu must be held.
func (c *cond) hasWaitersLocked() bool {
	return c.waiters > 0
}

// waitLocked waits for the next broadcast or the deadline, a zero deadline
// meaning none. It is called and returns with c.mu held, and reports false
// once the deadline passed.
func (c *cond) waitLocked(deadline time.Time) bool {
	if c.gen == nil {
		c.gen = make(chan struct{})
	}
	gen := c.gen
	c.waiters++
	c.mu.Unlock()

	ok := true
	if deadline.IsZero() {
		<-gen
	} else if d := time.Until(deadline); d <= 0 {
		ok = false
	} else {
		t := time.NewTimer(d)
		select {
		case <-gen:
		case <-t.C:
			ok = false
		}
		t.Stop()
	}

	c.mu.Lock()
	c.waiters--
	return ok
}

// waitUntilLocked waits until ready holds, for at most timeout ticks. The
// deadline is fixed before the first wait so that wakeups do not extend it.
func (c *cond) waitUntilLocked(timeout Tick, ready func() bool) bool {
	if ready() {
		return true
	}
	if timeout == 0 {
		return false
	}
	deadline := deadlineAfter(timeout)
	for !ready() {
		if !c.waitLocked(deadline) {
			return ready()
		}
	}
	return true
}

func deadlineAfter(timeout Tick) time.Time {
	if timeout == WaitForever {
		return time.Time{}
	}
	return time.Now().Add(TicksToDuration(timeout))
}

// ref owns the state of one primitive. The zero value is absent.
type ref[T any] struct {
	p atomic.Pointer[T]
}

func (r *ref[T]) get() (*T, error) {
	if p := r.p.Load(); p != nil {
		return p, nil
	}
	return nil, ErrNullPtr
}

func (r *ref[T]) set(p *T) {
	r.p.Store(p)
}

// take clears the reference and returns what it held, so that exactly one
// caller deletes the primitive.
func (r *ref[T]) take() *T {
	return r.p.Swap(nil)
}
