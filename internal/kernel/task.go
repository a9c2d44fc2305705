package kernel

import (
	"cmp"
	"fmt"
	"slices"
)

// State is the scheduling state of a task.
type State int32

const (
	StateRunning State = iota
	StateReady
	StateBlocked
	StateSuspended
	StateDeleted
	StateInvalid
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateReady:
		return "ready"
	case StateBlocked:
		return "blocked"
	case StateSuspended:
		return "suspended"
	case StateDeleted:
		return "deleted"
	}
	return "invalid"
}

// TaskStatus is a snapshot of one task.
type TaskStatus struct {
	Handle       Handle
	Name         string
	Number       uint32
	State        State
	Priority     uint32
	BasePriority uint32
	RunTime      uint64
	StackDepth   uint32
	// StackHighWaterMark is the stack never touched, in words. A host task
	// never touches the stack it was charged for.
	StackHighWaterMark uint32
}

// tcb is the task control block.
type tcb struct {
	handle       Handle
	gid          int64
	name         string
	number       uint32
	stackDepth   uint32
	priority     uint32
	basePriority uint32
	heap         uint64
	runTime      uint64
	adopted      bool
	suspended    bool
	deleted      bool
	wait         *waiter
	resumers     waitList

	notifyValue   uint32
	notifyPending bool
	notifyWaiters waitList
}

func (k *Kernel) clampPriority(p uint32) uint32 {
	return min(p, k.cfg.MaxPriorities-1)
}

func (k *Kernel) truncateName(name string) string {
	if n := k.cfg.MaxTaskNameLen - 1; len(name) > n {
		return name[:n]
	}
	return name
}

// TaskCreate creates a task running entry(arg). The task starts once the
// scheduler is started. The stack depth, in words, is charged to the kernel
// heap.
func (k *Kernel) TaskCreate(entry func(arg uintptr), name string, stackDepth uint32, arg uintptr, priority uint32) (Handle, error) {
	if stackDepth == 0 {
		stackDepth = k.cfg.MinimalStackSize
	}
	size := tcbSize + uint64(stackDepth)*stackWordSize
	t := &tcb{
		name:       k.truncateName(name),
		number:     k.taskSeq.Add(1),
		stackDepth: stackDepth,
		priority:   k.clampPriority(priority),
		heap:       size,
	}
	t.basePriority = t.priority

	k.mu.Lock()
	if !k.allocLocked(size) {
		k.mu.Unlock()
		return 0, fmt.Errorf("%w: task %q needs %d bytes", ErrCouldNotAllocate, name, size)
	}
	t.handle = k.register(t)
	k.live[t] = struct{}{}
	k.mu.Unlock()

	k.log.Debug("task created", "name", t.name, "handle", t.handle, "priority", t.priority)
	go k.run(t, entry, arg)
	return t.handle, nil
}

func (k *Kernel) run(t *tcb, entry func(uintptr), arg uintptr) {
	k.mu.Lock()
	if t.deleted {
		k.mu.Unlock()
		return
	}
	t.gid = currentID()
	k.tasks.Store(t.gid, t)
	k.mu.Unlock()

	k.started.Wait()

	k.mu.Lock()
	k.checkpointLocked(t)
	k.mu.Unlock()

	entry(arg)
	k.TaskDelete(0)
}

// current returns the task of the calling goroutine, adopting goroutines the
// kernel did not create as tasks of priority zero. Adopted tasks are
// released once their goroutine exits.
func (k *Kernel) current() *tcb {
	id := currentID()
	if t, ok := k.tasks.Load(id); ok {
		return t
	}
	t := &tcb{
		gid:     id,
		name:    k.truncateName(fmt.Sprintf("g%d", id)),
		number:  k.taskSeq.Add(1),
		adopted: true,
	}
	k.mu.Lock()
	k.adoptLocked(t)
	k.mu.Unlock()
	return t
}

func (k *Kernel) task(h Handle) *tcb {
	if h == 0 {
		return k.current()
	}
	return lookup[tcb](k, h)
}

// TaskDelete deletes a task; the zero handle deletes the calling task, in
// which case TaskDelete does not return. Another task stops at its next
// kernel call. Goroutines adopted by the kernel cannot be deleted.
func (k *Kernel) TaskDelete(h Handle) bool {
	t := k.task(h)
	if t == nil {
		return false
	}
	k.mu.Lock()
	if t.deleted || t.adopted {
		k.mu.Unlock()
		return false
	}
	t.deleted = true
	k.releaseLocked(t)
	if t.gid == currentID() {
		k.exitLocked()
	}
	if t.wait != nil {
		t.wait.signal()
	}
	k.mu.Unlock()
	k.log.Debug("task deleted", "name", t.name, "handle", t.handle)
	return true
}

func (k *Kernel) releaseLocked(t *tcb) {
	delete(k.live, t)
	k.unregister(t.handle)
	if t.gid != 0 {
		k.tasks.Delete(t.gid)
	}
	k.freeLocked(t.heap)
	t.resumers.wakeAll()
	t.notifyWaiters.wakeAll()
}

// TaskSuspend suspends a task; the zero handle suspends the caller, which
// parks until resumed.
func (k *Kernel) TaskSuspend(h Handle) bool {
	t := k.task(h)
	if t == nil {
		return false
	}
	k.mu.Lock()
	if t.deleted {
		k.mu.Unlock()
		return false
	}
	t.suspended = true
	if t.gid == currentID() {
		k.checkpointLocked(t)
	}
	k.mu.Unlock()
	return true
}

// TaskResume resumes a suspended task.
func (k *Kernel) TaskResume(h Handle) bool {
	t := lookup[tcb](k, h)
	if t == nil {
		return false
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if !t.suspended {
		return false
	}
	t.suspended = false
	t.resumers.wakeAll()
	return true
}

// TaskResumeFromISR resumes a task from interrupt context and reports
// whether a context switch is owed.
func (k *Kernel) TaskResumeFromISR(h Handle) bool {
	t := lookup[tcb](k, h)
	if t == nil {
		return false
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if !t.suspended {
		return false
	}
	t.suspended = false
	t.resumers.wakeAll()
	return t.priority > k.interruptedPriority()
}

// TaskGetCurrent returns the handle of the calling task.
func (k *Kernel) TaskGetCurrent() Handle {
	return k.current().handle
}

// TaskPrioritySet changes the priority of a task, clamped to the top
// priority.
func (k *Kernel) TaskPrioritySet(h Handle, priority uint32) bool {
	t := k.task(h)
	if t == nil {
		return false
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	t.priority = k.clampPriority(priority)
	t.basePriority = t.priority
	return true
}

// TaskPriorityGet returns the priority of a task.
func (k *Kernel) TaskPriorityGet(h Handle) (uint32, bool) {
	t := k.task(h)
	if t == nil {
		return 0, false
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	return t.priority, true
}

// TaskGetName returns the name of a task.
func (k *Kernel) TaskGetName(h Handle) (string, bool) {
	t := k.task(h)
	if t == nil {
		return "", false
	}
	return t.name, true
}

// TaskGetState returns the state of a task. Handles that were deleted
// report StateDeleted, handles never issued StateInvalid.
func (k *Kernel) TaskGetState(h Handle) State {
	t := k.task(h)
	if t == nil {
		if k.issued(h) {
			return StateDeleted
		}
		return StateInvalid
	}
	self := currentID()
	k.mu.Lock()
	defer k.mu.Unlock()
	return t.stateLocked(self)
}

// TaskGetInfo returns a snapshot of a task.
func (k *Kernel) TaskGetInfo(h Handle) (TaskStatus, bool) {
	t := k.task(h)
	if t == nil {
		return TaskStatus{}, false
	}
	self := currentID()
	k.mu.Lock()
	defer k.mu.Unlock()
	return t.statusLocked(self), true
}

func (t *tcb) stateLocked(self int64) State {
	switch {
	case t.deleted:
		return StateDeleted
	case t.suspended && (t.wait == nil || t.wait.timeout == MaxDelay):
		return StateSuspended
	case t.wait != nil:
		return StateBlocked
	case t.gid == self:
		return StateRunning
	}
	return StateReady
}

func (t *tcb) statusLocked(self int64) TaskStatus {
	return TaskStatus{
		Handle:             t.handle,
		Name:               t.name,
		Number:             t.number,
		State:              t.stateLocked(self),
		Priority:           t.priority,
		BasePriority:       t.basePriority,
		RunTime:            t.runTime,
		StackDepth:         t.stackDepth,
		StackHighWaterMark: t.stackDepth,
	}
}

// NumberOfTasks returns the number of tasks created and not deleted.
func (k *Kernel) NumberOfTasks() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	n := 0
	for t := range k.live {
		if !t.adopted {
			n++
		}
	}
	return n
}

// SystemState returns a snapshot of every task, in creation order, and the
// total run time in ticks.
func (k *Kernel) SystemState() ([]TaskStatus, uint64) {
	self := currentID()
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]TaskStatus, 0, len(k.live))
	for t := range k.live {
		if !t.adopted {
			out = append(out, t.statusLocked(self))
		}
	}
	slices.SortFunc(out, func(a, b TaskStatus) int {
		return cmp.Compare(a.Number, b.Number)
	})
	return out, k.runTotal
}

// Delay blocks the calling task for ticks ticks.
func (k *Kernel) Delay(ticks Tick) {
	t := k.current()
	k.mu.Lock()
	k.checkpointLocked(t)
	if ticks > 0 {
		var nobody waitList
		k.block(t, &nobody, ticks, func() bool { return false })
	}
	k.mu.Unlock()
}

// DelayUntil blocks until *prev+increment and advances *prev by increment,
// for fixed-frequency loops. It reports whether the task actually blocked;
// a deadline already passed returns at once.
func (k *Kernel) DelayUntil(prev *Tick, increment Tick) bool {
	t := k.current()
	k.mu.Lock()
	k.checkpointLocked(t)
	now := k.TickCount()
	wake := *prev + increment
	var should bool
	if now < *prev {
		// The tick wrapped since prev.
		should = wake < *prev && wake > now
	} else {
		should = wake < *prev || wake > now
	}
	*prev = wake
	if should {
		var nobody waitList
		k.block(t, &nobody, wake-now, func() bool { return false })
	}
	k.mu.Unlock()
	return should
}
