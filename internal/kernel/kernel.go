// Package kernel is a host port of a tick-driven real-time kernel.
//
// It provides the native primitives the rtos backend of osal is written
// against: tasks with notifications, counting semaphores and recursive
// mutexes, fixed-size queues, event groups, stream buffers and software
// timers run by a dedicated timer-service task.
//
// Tasks are goroutines. Blocking parks the calling task on the wait list of
// the object it waits for; the tick interrupt (a goroutine driven by a
// ticker, or IncrementTick in tests) expires timed waits. A single kernel
// lock plays the role of disabling interrupts on a microcontroller port.
//
// Unlike a target port, tasks are not preempted: suspension and deletion of
// another task take effect the next time that task enters the kernel.
package kernel

import (
	"errors"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/llxisdsh/osal/internal/opt"
	"github.com/llxisdsh/pb"
)

// Handle identifies a kernel object. The zero Handle is never valid.
type Handle uintptr

// Tick is the kernel tick counter. It wraps at its maximum value.
type Tick = uint32

// EventBits is the event group word, as wide as Tick.
type EventBits = uint32

// MaxDelay blocks without a timeout.
const MaxDelay Tick = math.MaxUint32

// ErrCouldNotAllocate is returned when the kernel heap cannot hold a new
// object.
var ErrCouldNotAllocate = errors.New("kernel: could not allocate required memory")

// SchedulerState reports whether the scheduler runs.
type SchedulerState int32

const (
	SchedulerNotStarted SchedulerState = iota
	SchedulerRunning
	SchedulerSuspended
)

func (s SchedulerState) String() string {
	switch s {
	case SchedulerNotStarted:
		return "not-started"
	case SchedulerRunning:
		return "running"
	case SchedulerSuspended:
		return "suspended"
	}
	return "unknown"
}

// Config holds the port constants. They are read once by New.
type Config struct {
	TickRateHz          uint32
	MaxPriorities       uint32
	MinimalStackSize    uint32
	MaxTaskNameLen      int
	TotalHeapSize       uint64
	TimerQueueLength    uint32
	TimerTaskPriority   uint32
	TimerTaskStackDepth uint32
	// InitialTick seeds the tick counter, so wraparound can be reached
	// quickly.
	InitialTick Tick
	Logger      *slog.Logger
}

// DefaultConfig returns the constants of a typical 32-bit port.
func DefaultConfig() Config {
	return Config{
		TickRateHz:          1000,
		MaxPriorities:       9,
		MinimalStackSize:    128,
		MaxTaskNameLen:      16,
		TotalHeapSize:       1 << 20,
		TimerQueueLength:    10,
		TimerTaskPriority:   8,
		TimerTaskStackDepth: 256,
	}
}

// Object sizes charged to the kernel heap.
const (
	tcbSize          = 96
	stackWordSize    = 4
	queueSize        = 80
	semaphoreSize    = queueSize
	eventGroupSize   = 32
	timerSize        = 48
	streamBufferSize = 48
)

// Kernel is one instance of the host port.
type Kernel struct {
	cfg Config
	log *slog.Logger

	tick opt.PaddedUint32

	// mu guards every kernel object and the fields below.
	mu        sync.Mutex
	live      map[*tcb]struct{}
	delayed   map[*waiter]struct{}
	timers    map[Handle]*softTimer
	heapFree  uint64
	heapMin   uint64
	suspended int
	adoptedN  int
	adoptMark int
	pended    Tick
	runTotal  uint64
	running   bool
	stopCh    chan struct{}
	tickDone  chan struct{}

	lifecycle  sync.Mutex
	timerQueue Handle
	timerTask  Handle

	started  opt.Latch
	critical criticalLock
	objects  pb.MapOf[Handle, any]
	tasks    pb.MapOf[int64, *tcb]
	next     atomic.Uintptr
	taskSeq  atomic.Uint32
	yields   atomic.Uint64
}

// New creates a kernel that is not started yet. Tasks created before Start
// wait for it; tests may also drive the tick by hand with IncrementTick.
func New(cfg Config) *Kernel {
	def := DefaultConfig()
	if cfg.TickRateHz == 0 {
		cfg.TickRateHz = def.TickRateHz
	}
	if cfg.MaxPriorities == 0 {
		cfg.MaxPriorities = def.MaxPriorities
	}
	if cfg.MinimalStackSize == 0 {
		cfg.MinimalStackSize = def.MinimalStackSize
	}
	if cfg.MaxTaskNameLen < 2 {
		cfg.MaxTaskNameLen = def.MaxTaskNameLen
	}
	if cfg.TotalHeapSize == 0 {
		cfg.TotalHeapSize = def.TotalHeapSize
	}
	if cfg.TimerQueueLength == 0 {
		cfg.TimerQueueLength = def.TimerQueueLength
	}
	if cfg.TimerTaskPriority == 0 || cfg.TimerTaskPriority >= cfg.MaxPriorities {
		cfg.TimerTaskPriority = cfg.MaxPriorities - 1
	}
	if cfg.TimerTaskStackDepth == 0 {
		cfg.TimerTaskStackDepth = def.TimerTaskStackDepth
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	k := &Kernel{
		cfg:      cfg,
		log:      log.With("component", "kernel"),
		live:     make(map[*tcb]struct{}),
		delayed:  make(map[*waiter]struct{}),
		timers:   make(map[Handle]*softTimer),
		heapFree: cfg.TotalHeapSize,
		heapMin:  cfg.TotalHeapSize,
	}
	k.tick.V.Store(cfg.InitialTick)
	k.timerQueue = k.QueueCreate(cfg.TimerQueueLength, timerCommandSize)
	return k
}

// Config returns the constants the kernel was built with.
func (k *Kernel) Config() Config {
	return k.cfg
}

// Start starts the tick interrupt and the timer service task and releases
// every task created so far. Start after Stop resumes ticking.
func (k *Kernel) Start() {
	k.lifecycle.Lock()
	defer k.lifecycle.Unlock()

	k.mu.Lock()
	if k.running {
		k.mu.Unlock()
		return
	}
	k.running = true
	stop := make(chan struct{})
	done := make(chan struct{})
	k.stopCh, k.tickDone = stop, done
	k.mu.Unlock()

	if k.timerTask == 0 {
		h, err := k.TaskCreate(k.timerService, "Tmr Svc", k.cfg.TimerTaskStackDepth, 0, k.cfg.TimerTaskPriority)
		if err != nil {
			k.log.Error("timer service task not created", "err", err)
		}
		k.timerTask = h
	}
	go k.tickInterrupt(stop, done)
	k.started.Open()
	k.log.Debug("scheduler started", "tick_rate_hz", k.cfg.TickRateHz)
}

// Stop stops the tick interrupt. Timed waits stop expiring and timers stop
// firing until Start is called again.
func (k *Kernel) Stop() {
	k.lifecycle.Lock()
	defer k.lifecycle.Unlock()

	k.mu.Lock()
	if !k.running {
		k.mu.Unlock()
		return
	}
	k.running = false
	close(k.stopCh)
	done := k.tickDone
	k.mu.Unlock()
	<-done
	k.log.Debug("scheduler stopped")
}

// SchedulerState reports whether the scheduler is running or suspended.
func (k *Kernel) SchedulerState() SchedulerState {
	k.mu.Lock()
	defer k.mu.Unlock()
	switch {
	case !k.running:
		return SchedulerNotStarted
	case k.suspended > 0:
		return SchedulerSuspended
	}
	return SchedulerRunning
}

func (k *Kernel) tickInterrupt(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	t := time.NewTicker(time.Second / time.Duration(k.cfg.TickRateHz))
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			k.IncrementTick()
		}
	}
}

// TickCount returns the current tick count.
func (k *Kernel) TickCount() Tick {
	return k.tick.V.Load()
}

// IncrementTick advances the tick by one, expiring timed waits. While the
// scheduler is suspended or a critical section is held the tick is pended
// and replayed later. It reports whether a blocked task was released.
func (k *Kernel) IncrementTick() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.suspended > 0 || k.critical.held() {
		k.pended++
		return false
	}
	n := k.pended + 1
	k.pended = 0
	return k.advanceLocked(n)
}

func (k *Kernel) advanceLocked(n Tick) bool {
	released := false
	for range n {
		now := k.tick.V.Add(1)
		k.runTotal++
		for t := range k.live {
			if !t.suspended && t.wait == nil && !t.deleted {
				t.runTime++
			}
		}
		for w := range k.delayed {
			if now-w.start >= w.timeout {
				w.expired = true
				delete(k.delayed, w)
				w.signal()
				released = true
			}
		}
	}
	return released
}

// flushPendedLocked replays ticks that arrived while ticking was held off.
func (k *Kernel) flushPendedLocked() bool {
	if k.suspended > 0 || k.critical.held() || k.pended == 0 {
		return false
	}
	n := k.pended
	k.pended = 0
	return k.advanceLocked(n)
}

// SuspendAll holds off the tick and context switches until ResumeAll.
// Calls nest.
func (k *Kernel) SuspendAll() {
	k.mu.Lock()
	k.suspended++
	k.mu.Unlock()
}

// ResumeAll undoes one SuspendAll and reports whether replaying the pended
// ticks released a blocked task.
func (k *Kernel) ResumeAll() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.suspended == 0 {
		return false
	}
	k.suspended--
	return k.flushPendedLocked()
}

// TotalRunTime returns the number of ticks processed since New.
func (k *Kernel) TotalRunTime() uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.runTotal
}

// FreeHeapSize returns the bytes left in the kernel heap.
func (k *Kernel) FreeHeapSize() uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.heapFree
}

// MinimumEverFreeHeapSize returns the low-water mark of the kernel heap.
func (k *Kernel) MinimumEverFreeHeapSize() uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.heapMin
}

func (k *Kernel) allocLocked(n uint64) bool {
	if n > k.heapFree {
		return false
	}
	k.heapFree -= n
	k.heapMin = min(k.heapMin, k.heapFree)
	return true
}

func (k *Kernel) freeLocked(n uint64) {
	k.heapFree = min(k.heapFree+n, k.cfg.TotalHeapSize)
}

// register publishes obj under a fresh handle. Handles are never reused.
func (k *Kernel) register(obj any) Handle {
	h := Handle(k.next.Add(1))
	k.objects.Store(h, obj)
	return h
}

func (k *Kernel) unregister(h Handle) {
	k.objects.Delete(h)
}

// issued reports whether h was handed out by this kernel at some point.
func (k *Kernel) issued(h Handle) bool {
	return h != 0 && uintptr(h) <= k.next.Load()
}

func lookup[T any](k *Kernel, h Handle) *T {
	if h == 0 {
		return nil
	}
	v, ok := k.objects.Load(h)
	if !ok {
		return nil
	}
	p, _ := v.(*T)
	return p
}

// Yield gives other goroutines a chance to run.
func (k *Kernel) Yield() {
	k.yields.Add(1)
	yield()
}

// YieldFromISR requests the context switch an ISR epilogue owes when a
// higher priority task was woken.
func (k *Kernel) YieldFromISR(woken bool) {
	if woken {
		k.Yield()
	}
}

// Yields returns how many context switches were requested so far.
func (k *Kernel) Yields() uint64 {
	return k.yields.Load()
}

// EnterCritical enters a critical section. Calls nest per task. The tick is
// held off until the outermost ExitCritical.
func (k *Kernel) EnterCritical() {
	k.critical.enter(currentID())
}

// ExitCritical leaves a critical section entered by the calling task.
func (k *Kernel) ExitCritical() {
	if k.critical.exit(currentID()) {
		k.mu.Lock()
		k.flushPendedLocked()
		k.mu.Unlock()
	}
}
