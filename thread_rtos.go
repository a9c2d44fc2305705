//go:build rtos

package osal

import (
	"fmt"

	"github.com/llxisdsh/osal/internal/kernel"
)

type threadHandle struct {
	h handle
}

func (t *Thread) spawned() bool {
	return t.h.v.Load() != 0
}

func (t *Thread) spawn(tok rawToken) error {
	h, err := sys().TaskCreate(threadEntry, t.name, t.stackSize, uintptr(tok), t.priority.native())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOutOfMemory, err)
	}
	t.h.set(h)
	return nil
}

// threadEntry runs on the new task. It is the only place a thread box is
// taken back, and the task deletes itself whatever the body did.
func threadEntry(arg uintptr) {
	k := sys()
	b, ok := fromRaw[threadBox](rawToken(arg))
	if !ok {
		logger().Error("osal: thread started without its descriptor")
		k.TaskDelete(0)
		return
	}
	self := k.TaskGetCurrent()
	b.thread.h.set(self)
	res, err := b.run(b.thread.ref())
	res.Release()
	if err != nil {
		logger().Debug("osal: thread callback failed", "thread", b.thread.name, "err", err)
	}
	k.TaskDelete(0)
}

// ref returns a lightweight Thread referring to the same task.
func (t *Thread) ref() *Thread {
	r := &Thread{name: t.name, stackSize: t.stackSize, priority: t.priority}
	r.h.v.Store(t.h.v.Load())
	return r
}

// GetCurrent returns the running thread. Goroutines the kernel did not
// create are adopted as tasks of the lowest priority.
func GetCurrent() *Thread {
	k := sys()
	h := k.TaskGetCurrent()
	name, _ := k.TaskGetName(h)
	prio, _ := k.TaskPriorityGet(h)
	t := &Thread{name: name, priority: priorityFromNative(prio)}
	if info, ok := k.TaskGetInfo(h); ok {
		t.stackSize = info.StackDepth
	}
	t.h.set(h)
	return t
}

// Suspend suspends the thread. It does nothing before Spawn. Another task
// stops at its next kernel call; the calling task stops at once.
func (t *Thread) Suspend() {
	if h, err := t.h.get(); err == nil {
		sys().TaskSuspend(h)
	}
}

// Resume resumes a suspended thread. It does nothing before Spawn.
func (t *Thread) Resume() {
	if h, err := t.h.get(); err == nil {
		sys().TaskResume(h)
	}
}

// ResumeFromISR resumes a suspended thread from interrupt context and
// reports whether a more urgent task was woken.
func (t *Thread) ResumeFromISR() (woken bool) {
	h, err := t.h.get()
	return err == nil && sys().TaskResumeFromISR(h)
}

// SetPriority changes the priority of the thread.
func (t *Thread) SetPriority(priority ThreadDefaultPriority) error {
	h, err := t.h.get()
	if err != nil {
		return err
	}
	if !sys().TaskPrioritySet(h, priority.native()) {
		return fmt.Errorf("%w: thread %q", ErrNotFound, t.name)
	}
	t.priority = priority
	return nil
}

// Join deletes the task. The kernel keeps no result, so the returned
// parameter is always empty.
func (t *Thread) Join() (ThreadParam, error) {
	h, err := t.h.get()
	if err != nil {
		return ThreadParam{}, err
	}
	if h == sys().TaskGetCurrent() {
		return ThreadParam{}, Unhandled("thread joins itself")
	}
	t.Delete()
	return ThreadParam{}, nil
}

// Delete deletes the task. Deleting the calling thread does not return.
func (t *Thread) Delete() {
	if h := t.h.take(); h != 0 {
		sys().TaskDelete(h)
	}
}

// Notify sends n to the thread. NotifySetValueWithoutOverwrite fails with
// ErrQueueFull while a notification is pending.
func (t *Thread) Notify(n ThreadNotification) error {
	h, err := t.h.get()
	if err != nil {
		return err
	}
	if !sys().TaskNotify(h, n.Value, kernel.NotifyAction(n.Action)) {
		return t.notifyError(h)
	}
	return nil
}

// NotifyFromISR sends n from interrupt context.
func (t *Thread) NotifyFromISR(n ThreadNotification) (woken bool, err error) {
	h, err := t.h.get()
	if err != nil {
		return false, err
	}
	ok, woken := sys().TaskNotifyFromISR(h, n.Value, kernel.NotifyAction(n.Action))
	if !ok {
		return false, t.notifyError(h)
	}
	return woken, nil
}

func (t *Thread) notifyError(h kernel.Handle) error {
	if sys().TaskGetState(h) == kernel.StateDeleted {
		return fmt.Errorf("%w: thread %q", ErrNotFound, t.name)
	}
	return ErrQueueFull
}

// WaitNotification waits up to timeout for a notification to the thread,
// which must be the calling thread. Bits in clearOnEntry are cleared first
// when nothing is pending and bits in clearOnExit once the value is read.
func (t *Thread) WaitNotification(clearOnEntry, clearOnExit uint32, timeout Tick) (uint32, error) {
	h, err := t.h.get()
	if err != nil {
		return 0, err
	}
	k := sys()
	if h != k.TaskGetCurrent() {
		return 0, Unhandled("waiting on the notification of another thread")
	}
	v, ok := k.TaskNotifyWait(clearOnEntry, clearOnExit, timeout)
	if !ok {
		return 0, ErrTimeout
	}
	return v, nil
}

// Metadata returns a snapshot of the thread.
func (t *Thread) Metadata() (ThreadMetadata, error) {
	h, err := t.h.get()
	if err != nil {
		return ThreadMetadata{}, err
	}
	info, ok := sys().TaskGetInfo(h)
	if !ok {
		return ThreadMetadata{}, fmt.Errorf("%w: thread %q", ErrNotFound, t.name)
	}
	md := metadataFrom(info)
	md.Priority = t.priority
	return md, nil
}

func metadataFrom(info kernel.TaskStatus) ThreadMetadata {
	return ThreadMetadata{
		Handle:             uintptr(info.Handle),
		Name:               info.Name,
		StackDepth:         info.StackDepth,
		Priority:           priorityFromNative(info.BasePriority),
		CurrentPriority:    priorityFromNative(info.Priority),
		BasePriority:       priorityFromNative(info.BasePriority),
		State:              ThreadState(info.State),
		RunTimeCounter:     info.RunTime,
		StackHighWaterMark: info.StackHighWaterMark,
		ThreadNumber:       info.Number,
	}
}
