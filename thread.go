package osal

import (
	"fmt"
)

// ThreadFunc is the body of a thread. self is a handle to the running
// thread and param the parameter given to Spawn. The parameter is released
// when the function returns; keep a Clone to use it longer.
type ThreadFunc func(self *Thread, param ThreadParam) (ThreadParam, error)

// ThreadState is the scheduling state of a thread.
type ThreadState int32

const (
	ThreadRunning ThreadState = iota
	ThreadReady
	ThreadBlocked
	ThreadSuspended
	ThreadDeleted
	ThreadInvalid
)

func (s ThreadState) String() string {
	switch s {
	case ThreadRunning:
		return "running"
	case ThreadReady:
		return "ready"
	case ThreadBlocked:
		return "blocked"
	case ThreadSuspended:
		return "suspended"
	case ThreadDeleted:
		return "deleted"
	}
	return "invalid"
}

// NotifyAction selects how a notification changes the mailbox of the
// receiving thread.
type NotifyAction uint8

const (
	NotifyNoAction NotifyAction = iota
	NotifySetBits
	NotifyIncrement
	NotifySetValueWithOverwrite
	NotifySetValueWithoutOverwrite
)

// ThreadNotification is one notification sent to a thread.
type ThreadNotification struct {
	Action NotifyAction
	Value  uint32
}

// ThreadMetadata is a snapshot of a thread taken from the native layer.
type ThreadMetadata struct {
	Handle             uintptr
	Name               string
	StackDepth         uint32
	Priority           ThreadDefaultPriority
	CurrentPriority    ThreadDefaultPriority
	BasePriority       ThreadDefaultPriority
	State              ThreadState
	RunTimeCounter     uint64
	StackHighWaterMark uint32
	ThreadNumber       uint32
}

// SystemState lists every thread and the total run time, both in ticks.
type SystemState struct {
	Threads      []ThreadMetadata
	TotalRunTime uint64
}

// Thread describes a thread and, once spawned, refers to it.
type Thread struct {
	threadHandle
	name      string
	stackSize uint32
	priority  ThreadDefaultPriority
	callback  ThreadFunc
}

// NewThread describes a thread without creating it. stackSize is in the
// native unit, words on rtos and bytes on posix; zero picks the default.
// Names longer than the configured maximum are truncated.
func NewThread(name string, stackSize uint32, priority ThreadDefaultPriority, callback ThreadFunc) *Thread {
	return &Thread{
		name:      truncateName(name),
		stackSize: stackSize,
		priority:  priority,
		callback:  callback,
	}
}

// NewThreadSimple describes a thread running fn.
func NewThreadSimple(name string, stackSize uint32, priority ThreadDefaultPriority, fn func()) *Thread {
	return NewThread(name, stackSize, priority, func(*Thread, ThreadParam) (ThreadParam, error) {
		fn()
		return ThreadParam{}, nil
	})
}

// Name returns the thread name.
func (t *Thread) Name() string { return t.name }

// Priority returns the priority the thread was described with.
func (t *Thread) Priority() ThreadDefaultPriority { return t.priority }

// StackSize returns the stack size the thread was described with.
func (t *Thread) StackSize() uint32 { return t.stackSize }

// threadBox is what crosses the native create call.
type threadBox struct {
	thread *Thread
	param  ThreadParam
}

// Spawn creates the native thread and starts it with param, of which the
// thread keeps its own clone. On failure nothing stays allocated.
func (t *Thread) Spawn(param ThreadParam) (*Thread, error) {
	if t.callback == nil {
		return nil, ErrNullPtr
	}
	if t.spawned() {
		return nil, Unhandled("thread already spawned")
	}
	tok := intoRaw(&threadBox{thread: t, param: param.Clone()})
	if err := t.spawn(tok); err != nil {
		if b, ok := fromRaw[threadBox](tok); ok {
			b.param.Release()
		}
		return nil, err
	}
	return t, nil
}

// run calls the thread body on the new thread and releases the parameter.
func (b *threadBox) run(self *Thread) (result ThreadParam, err error) {
	defer b.param.Release()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("osal: thread %q panicked: %v", b.thread.name, r)
		}
	}()
	return b.thread.callback(self, b.param)
}
