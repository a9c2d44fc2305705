//go:build linux && !rtos

package osal

import (
	"errors"
	"os"
	"runtime"
	"sync/atomic"

	"github.com/llxisdsh/pb"
	"github.com/petermattis/goid"
	"github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sys/unix"

	"github.com/llxisdsh/osal/internal/opt"
)

// posixThread is an OS thread known to the backend: one spawned by Spawn,
// the timer service, or one adopted by GetCurrent.
type posixThread struct {
	tid       int
	name      string
	stackSize uint32
	prio      atomic.Uint32 // ThreadDefaultPriority
	number    uint32
	adopted   bool
	gid       int64 // adopting goroutine
	created   int64 // thread start, ms since the epoch; 0 when unknown

	started opt.Latch // tid is valid
	done    chan struct{}
	result  ThreadParam
	err     error

	detached atomic.Bool
	joined   atomic.Bool

	mail    cond
	value   uint32
	pending bool
}

var (
	threads   pb.MapOf[int, *posixThread]
	threadSeq atomic.Uint32
	spawnedN  atomic.Int32
)

func newPosixThread(name string, stackSize uint32, priority ThreadDefaultPriority) *posixThread {
	p := &posixThread{
		name:      name,
		stackSize: stackSize,
		number:    threadSeq.Add(1),
		done:      make(chan struct{}),
	}
	p.prio.Store(uint32(priority))
	return p
}

func (p *posixThread) priority() ThreadDefaultPriority {
	return ThreadDefaultPriority(p.prio.Load())
}

// setPriority records a new priority and applies it to the OS thread.
func (p *posixThread) setPriority(priority ThreadDefaultPriority) {
	p.prio.Store(uint32(priority))
	setNice(p.tid, priority.nice())
}

// attach binds p to the calling goroutine, which must be locked to its OS
// thread, and applies the priority.
func (p *posixThread) attach() {
	p.tid = unix.Gettid()
	threads.Store(p.tid, p)
	setNice(p.tid, p.priority().nice())
	p.started.Open()
}

func (p *posixThread) detach() {
	threads.Delete(p.tid)
}

func (p *posixThread) finished() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// currentThread returns the thread of the calling goroutine. A goroutine
// the backend did not start is adopted and stays locked to its OS thread,
// so that later calls see the same thread. The thread ends with that
// goroutine; an entry left by an earlier adopter of a reused TID is
// replaced.
func currentThread() *posixThread {
	runtime.LockOSThread()
	tid := unix.Gettid()
	gid := goid.Get()
	old, ok := threads.Load(tid)
	if ok && !(old.adopted && old.gid != gid) {
		runtime.UnlockOSThread()
		return old
	}
	p := newPosixThread(truncateName("adopted"), 0, priorityFromNice(niceOf(tid)))
	p.adopted = true
	p.tid = tid
	p.gid = gid
	p.created = threadCreated(tid)
	p.started.Open()
	if ok {
		threads.CompareAndSwap(tid, old, p)
		return p
	}
	p, _ = threads.LoadOrStore(tid, p)
	return p
}

// pruneThreads forgets adopted threads that have exited.
func pruneThreads() {
	var gone []*posixThread
	threads.Range(func(_ int, p *posixThread) bool {
		if p.adopted && !p.alive() {
			gone = append(gone, p)
		}
		return true
	})
	for _, p := range gone {
		threads.CompareAndDelete(p.tid, p)
	}
}

// alive reports whether the OS thread p was adopted on still runs.
func (p *posixThread) alive() bool {
	if err := unix.Tgkill(os.Getpid(), p.tid, 0); errors.Is(err, unix.ESRCH) {
		return false
	}
	return p.created == 0 || threadCreated(p.tid) == p.created
}

// threadCreated returns the start time of an OS thread of this process, 0
// when unknown.
func threadCreated(tid int) int64 {
	created, err := (&process.Process{Pid: int32(tid)}).CreateTime()
	if err != nil {
		return 0
	}
	return created
}

// niceOf returns the nice value of an OS thread, zero when unknown.
func niceOf(tid int) int {
	prio, err := unix.Getpriority(unix.PRIO_PROCESS, tid)
	if err != nil {
		return 0
	}
	// The raw system call returns 20 - nice.
	return 20 - prio
}

// setNice applies a nice value to an OS thread. Raising priority needs
// privileges; a refusal is logged and the thread keeps its nice value.
func setNice(tid, nice int) {
	err := unix.Setpriority(unix.PRIO_PROCESS, tid, nice)
	if err == nil {
		return
	}
	if errors.Is(err, unix.EPERM) || errors.Is(err, unix.EACCES) {
		logger().Debug("osal: setpriority refused", "tid", tid, "nice", nice, "err", err)
		return
	}
	logger().Warn("osal: setpriority failed", "tid", tid, "nice", nice, "err", err)
}

// notify applies a notification to the mailbox. It fails only for
// NotifySetValueWithoutOverwrite while a notification is pending.
func (p *posixThread) notify(n ThreadNotification) (ok, woken bool) {
	p.mail.mu.Lock()
	defer p.mail.mu.Unlock()
	switch n.Action {
	case NotifySetBits:
		p.value |= n.Value
	case NotifyIncrement:
		p.value++
	case NotifySetValueWithOverwrite:
		p.value = n.Value
	case NotifySetValueWithoutOverwrite:
		if p.pending {
			return false, false
		}
		p.value = n.Value
	}
	p.pending = true
	woken = p.mail.hasWaitersLocked()
	p.mail.broadcastLocked()
	return true, woken
}

func (p *posixThread) waitNotification(clearOnEntry, clearOnExit uint32, timeout Tick) (uint32, bool) {
	p.mail.mu.Lock()
	defer p.mail.mu.Unlock()
	if !p.pending {
		p.value &^= clearOnEntry
	}
	if !p.mail.waitUntilLocked(timeout, func() bool { return p.pending }) {
		return 0, false
	}
	v := p.value
	p.value &^= clearOnExit
	p.pending = false
	return v, true
}
