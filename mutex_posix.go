//go:build linux && !rtos

package osal

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// isrOwner holds a mutex taken from interrupt context.
const isrOwner = -1

type mutexState struct {
	c       cond
	owner   int
	depth   int
	deleted bool
}

// RawMutex is a recursive mutex owned by an OS thread: the holder may lock
// it again, and every Lock needs its own Unlock. The locking goroutine stays
// on its OS thread until the last Unlock.
type RawMutex struct {
	s ref[mutexState]
}

// NewRawMutex creates an unlocked mutex.
func NewRawMutex() (*RawMutex, error) {
	m := &RawMutex{}
	m.s.set(&mutexState{})
	return m, nil
}

// Lock waits for the mutex without a timeout.
func (m *RawMutex) Lock() error {
	st, err := m.s.get()
	if err != nil {
		return err
	}
	runtime.LockOSThread()
	tid := unix.Gettid()

	st.c.mu.Lock()
	defer st.c.mu.Unlock()
	if st.depth > 0 && st.owner == tid {
		st.depth++
		return nil
	}
	st.c.waitUntilLocked(WaitForever, func() bool { return st.deleted || st.depth == 0 })
	if st.deleted {
		runtime.UnlockOSThread()
		return ErrMutexLockFailed
	}
	st.owner, st.depth = tid, 1
	return nil
}

// LockFromISR takes the mutex from interrupt context, failing if a thread
// holds it.
func (m *RawMutex) LockFromISR() (woken bool, err error) {
	st, err := m.s.get()
	if err != nil {
		return false, err
	}
	st.c.mu.Lock()
	defer st.c.mu.Unlock()
	if st.deleted || (st.depth > 0 && st.owner != isrOwner) {
		return false, ErrMutexLockFailed
	}
	st.owner = isrOwner
	st.depth++
	return false, nil
}

// Unlock undoes one Lock. It fails when the calling thread does not hold
// the mutex.
func (m *RawMutex) Unlock() error {
	st, err := m.s.get()
	if err != nil {
		return err
	}
	tid := callerTID()
	st.c.mu.Lock()
	defer st.c.mu.Unlock()
	if st.depth == 0 || st.owner != tid {
		return ErrMutexLockFailed
	}
	st.releaseLocked()
	runtime.UnlockOSThread()
	return nil
}

// UnlockFromISR undoes one LockFromISR.
func (m *RawMutex) UnlockFromISR() (woken bool, err error) {
	st, err := m.s.get()
	if err != nil {
		return false, err
	}
	st.c.mu.Lock()
	defer st.c.mu.Unlock()
	if st.depth == 0 || st.owner != isrOwner {
		return false, ErrMutexLockFailed
	}
	return st.releaseLocked(), nil
}

// releaseLocked drops one level and reports whether a waiter was woken.
func (st *mutexState) releaseLocked() bool {
	st.depth--
	if st.depth > 0 {
		return false
	}
	st.owner = 0
	woken := st.c.hasWaitersLocked()
	st.c.broadcastLocked()
	return woken
}

// Delete deletes the mutex; blocked Lock calls fail.
func (m *RawMutex) Delete() {
	st := m.s.take()
	if st == nil {
		return
	}
	st.c.mu.Lock()
	st.deleted = true
	st.c.broadcastLocked()
	st.c.mu.Unlock()
}
