//go:build linux && !rtos

package osal

import (
	"cmp"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sys/unix"
)

var schedulerRunning atomic.Bool

func startScheduler() {
	schedulerRunning.Store(true)
}

func stopScheduler() {
	schedulerRunning.Store(false)
}

// GetSchedulerState reports whether StartScheduler is running. The OS
// scheduler itself always runs.
func GetSchedulerState() SchedulerState {
	if !schedulerRunning.Load() {
		return SchedulerNotStarted
	}
	if suspended.Load() > 0 {
		return SchedulerSuspended
	}
	return SchedulerRunning
}

// CurrentState returns the state of the calling thread, which is running.
func CurrentState() ThreadState {
	return ThreadRunning
}

// critical is the process-wide lock behind critical sections and
// SuspendAll.
var (
	critical  = sync.OnceValue(func() *RawMutex { m, _ := NewRawMutex(); return m })
	suspended atomic.Int32
)

// SuspendAll holds the process-wide critical lock until ResumeAll. Other
// threads only stop when they enter a critical section.
func SuspendAll() {
	critical().Lock()
	suspended.Add(1)
}

// ResumeAll undoes SuspendAll. It never reports a released thread. A call
// without a matching SuspendAll on the calling thread does nothing.
func ResumeAll() bool {
	for {
		n := suspended.Load()
		if n == 0 {
			return false
		}
		if suspended.CompareAndSwap(n, n-1) {
			break
		}
	}
	if err := critical().Unlock(); err != nil {
		suspended.Add(1)
		logger().Debug("osal: resume without suspend", "err", err)
	}
	return false
}

// CriticalSectionEnter enters a critical section. Sections nest per thread.
func CriticalSectionEnter() {
	critical().Lock()
}

// CriticalSectionExit leaves a critical section.
func CriticalSectionExit() {
	critical().Unlock()
}

// CountThreads returns the number of threads the backend started, the
// timer service included.
func CountThreads() int {
	pruneThreads()
	n := 0
	threads.Range(func(_ int, p *posixThread) bool {
		if !p.adopted {
			n++
		}
		return true
	})
	return n
}

// AllThreads returns a snapshot of every known thread in creation order.
func AllThreads() SystemState {
	pruneThreads()
	var st SystemState
	threads.Range(func(_ int, p *posixThread) bool {
		st.Threads = append(st.Threads, p.metadata())
		return true
	})
	slices.SortFunc(st.Threads, func(a, b ThreadMetadata) int {
		return cmp.Compare(a.ThreadNumber, b.ThreadNumber)
	})
	proc := &process.Process{Pid: int32(os.Getpid())}
	if times, err := proc.Times(); err == nil {
		st.TotalRunTime = uint64(DurationToTicks(cpuSeconds(times.User + times.System)))
	}
	return st
}

// Delay blocks the calling thread for ticks.
func Delay(ticks Tick) {
	time.Sleep(TicksToDuration(ticks))
}

// DelayUntil blocks until *prev+increment and advances *prev, for loops
// that run at a fixed rate. It returns at once when that tick has passed.
func DelayUntil(prev *Tick, increment Tick) {
	*prev += increment
	if now := TickCount(); *prev > now {
		time.Sleep(TicksToDuration(*prev - now))
	}
}

// YieldFromISR yields the processor when woken is set.
func YieldFromISR(woken bool) {
	if woken {
		_, _, _ = unix.Syscall(unix.SYS_SCHED_YIELD, 0, 0, 0)
	}
}

var (
	heapMu      sync.Mutex
	heapMinFree uint64
)

// FreeHeapSize returns the memory available to the process.
func FreeHeapSize() uint64 {
	vm, err := mem.VirtualMemory()
	if err != nil {
		logger().Debug("osal: virtual memory unavailable", "err", err)
		return 0
	}
	heapMu.Lock()
	if heapMinFree == 0 || vm.Available < heapMinFree {
		heapMinFree = vm.Available
	}
	heapMu.Unlock()
	return vm.Available
}

// MinimumEverFreeHeapSize returns the lowest FreeHeapSize seen.
func MinimumEverFreeHeapSize() uint64 {
	FreeHeapSize()
	heapMu.Lock()
	defer heapMu.Unlock()
	return heapMinFree
}

// OSVersion names the backend and the host kernel.
func OSVersion() string {
	v, err := host.KernelVersion()
	if err != nil {
		return "POSIX"
	}
	return "POSIX " + v
}
