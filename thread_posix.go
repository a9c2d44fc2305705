//go:build linux && !rtos

package osal

import (
	"fmt"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sys/unix"
)

// minStackSize is PTHREAD_STACK_MIN.
const minStackSize = 16384

type threadHandle struct {
	p ref[posixThread]
}

func (t *Thread) spawned() bool {
	return t.p.p.Load() != nil
}

// threadLimit returns the number of spawned threads allowed at once, zero
// for no limit.
var threadLimit = func() int { return CurrentConfig().MaxThreads }

func (t *Thread) spawn(tok rawToken) error {
	if t.stackSize != 0 && t.stackSize < minStackSize {
		return unhandledCode(fmt.Sprintf("stack of %d bytes below %d", t.stackSize, minStackSize), int(unix.EINVAL))
	}
	if limit := threadLimit(); limit > 0 {
		if int(spawnedN.Add(1)) > limit {
			spawnedN.Add(-1)
			return fmt.Errorf("%w: %d threads running", ErrOutOfResources, limit)
		}
	} else {
		spawnedN.Add(1)
	}
	p := newPosixThread(t.name, t.stackSize, t.priority)
	t.p.set(p)
	go threadMain(p, tok)
	return nil
}

// threadMain runs on the new OS thread. The goroutine never unlocks, so the
// OS thread and its nice value end with it.
func threadMain(p *posixThread, tok rawToken) {
	runtime.LockOSThread()
	p.attach()
	defer func() {
		p.detach()
		spawnedN.Add(-1)
		close(p.done)
		if p.detached.Load() && p.joined.CompareAndSwap(false, true) {
			p.result.Release()
		}
	}()

	b, ok := fromRaw[threadBox](tok)
	if !ok {
		logger().Error("osal: thread started without its descriptor", "tid", p.tid)
		return
	}
	p.result, p.err = b.run(b.thread.ref())
	if p.err != nil {
		logger().Debug("osal: thread callback failed", "thread", p.name, "err", p.err)
	}
}

// ref returns a lightweight Thread referring to the same OS thread.
func (t *Thread) ref() *Thread {
	r := &Thread{name: t.name, stackSize: t.stackSize, priority: t.priority}
	r.p.set(t.p.p.Load())
	return r
}

// callerTID returns the OS thread of the caller. Only a goroutine locked to
// its thread can be a spawned thread, so the answer is stable for those.
func callerTID() int {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	return unix.Gettid()
}

func (p *posixThread) isCaller() bool {
	return p.started.IsOpen() && p.tid == callerTID()
}

// GetCurrent returns the running thread. A goroutine the backend did not
// start is adopted and locked to its OS thread.
func GetCurrent() *Thread {
	p := currentThread()
	t := &Thread{name: p.name, stackSize: p.stackSize, priority: p.priority()}
	t.p.set(p)
	return t
}

// Suspend does nothing; POSIX threads cannot be suspended.
func (t *Thread) Suspend() {}

// Resume does nothing; POSIX threads cannot be suspended.
func (t *Thread) Resume() {}

// ResumeFromISR does nothing and reports no woken thread.
func (t *Thread) ResumeFromISR() (woken bool) { return false }

// SetPriority changes the nice value of the thread. Raising it above the
// nice value the process started with needs privileges; without them the
// thread keeps its nice value, but Priority and Metadata report the new
// priority as the base priority.
func (t *Thread) SetPriority(priority ThreadDefaultPriority) error {
	p, err := t.p.get()
	if err != nil {
		return err
	}
	if p.finished() {
		return fmt.Errorf("%w: thread %q", ErrNotFound, t.name)
	}
	p.started.Wait()
	p.setPriority(priority)
	t.priority = priority
	return nil
}

// Join waits for the thread to finish and returns the result and error of
// its callback. A thread can be joined once, and not by itself.
func (t *Thread) Join() (ThreadParam, error) {
	p, err := t.p.get()
	if err != nil {
		return ThreadParam{}, err
	}
	switch {
	case p.adopted || p.detached.Load():
		return ThreadParam{}, unhandledCode("thread is not joinable", int(unix.EINVAL))
	case p.isCaller():
		return ThreadParam{}, unhandledCode("thread joins itself", int(unix.EDEADLK))
	case !p.joined.CompareAndSwap(false, true):
		return ThreadParam{}, unhandledCode("thread already joined", int(unix.ESRCH))
	}
	<-p.done
	return p.result, p.err
}

// Delete detaches the thread, which runs to completion. Its result is
// released when it finishes.
func (t *Thread) Delete() {
	p := t.p.take()
	if p == nil || p.adopted {
		return
	}
	p.detached.Store(true)
	if p.finished() && p.joined.CompareAndSwap(false, true) {
		p.result.Release()
	}
}

// Notify sends n to the thread. NotifySetValueWithoutOverwrite fails with
// ErrQueueFull while a notification is pending.
func (t *Thread) Notify(n ThreadNotification) error {
	_, err := t.NotifyFromISR(n)
	return err
}

// NotifyFromISR sends n and reports whether the thread was waiting for it.
func (t *Thread) NotifyFromISR(n ThreadNotification) (woken bool, err error) {
	p, err := t.p.get()
	if err != nil {
		return false, err
	}
	if p.finished() {
		return false, fmt.Errorf("%w: thread %q", ErrNotFound, t.name)
	}
	ok, woken := p.notify(n)
	if !ok {
		return false, ErrQueueFull
	}
	return woken, nil
}

// WaitNotification waits up to timeout for a notification to the thread,
// which must be the calling thread. Bits in clearOnEntry are cleared first
// when nothing is pending and bits in clearOnExit once the value is read.
func (t *Thread) WaitNotification(clearOnEntry, clearOnExit uint32, timeout Tick) (uint32, error) {
	p, err := t.p.get()
	if err != nil {
		return 0, err
	}
	if !p.isCaller() {
		return 0, Unhandled("waiting on the notification of another thread")
	}
	v, ok := p.waitNotification(clearOnEntry, clearOnExit, timeout)
	if !ok {
		return 0, ErrTimeout
	}
	return v, nil
}

// Metadata returns a snapshot of the thread read from /proc.
func (t *Thread) Metadata() (ThreadMetadata, error) {
	p, err := t.p.get()
	if err != nil {
		return ThreadMetadata{}, err
	}
	p.started.Wait()
	return p.metadata(), nil
}

func (p *posixThread) metadata() ThreadMetadata {
	md := ThreadMetadata{
		Handle:       uintptr(p.tid),
		Name:         p.name,
		StackDepth:   p.stackSize,
		Priority:     p.priority(),
		BasePriority: p.priority(),
		State:        ThreadDeleted,
		ThreadNumber: p.number,
	}
	if p.finished() {
		md.CurrentPriority = p.priority()
		return md
	}
	md.CurrentPriority = priorityFromNice(niceOf(p.tid))
	proc := &process.Process{Pid: int32(p.tid)}
	if st, err := proc.Status(); err == nil && len(st) > 0 {
		md.State = threadStateOf(st[0])
	} else {
		md.State = ThreadReady
	}
	if times, err := proc.Times(); err == nil {
		md.RunTimeCounter = uint64(DurationToTicks(cpuSeconds(times.User + times.System)))
	}
	return md
}

func threadStateOf(status string) ThreadState {
	switch status {
	case process.Running:
		return ThreadRunning
	case process.Sleep, process.Idle, process.Wait, process.Lock, process.Blocked:
		return ThreadBlocked
	case process.Stop:
		return ThreadSuspended
	case process.Zombie:
		return ThreadDeleted
	}
	return ThreadReady
}

func cpuSeconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
