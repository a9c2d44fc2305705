//go:build rtos

package osal

func startScheduler() {
	sys().Start()
}

// The host port keeps ticking after StopScheduler so that objects created
// before stay usable.
func stopScheduler() {}

// GetSchedulerState reports whether the kernel scheduler runs.
func GetSchedulerState() SchedulerState {
	return SchedulerState(sys().SchedulerState())
}

// CurrentState returns the state of the calling thread.
func CurrentState() ThreadState {
	k := sys()
	return ThreadState(k.TaskGetState(k.TaskGetCurrent()))
}

// SuspendAll holds off context switches and the tick until ResumeAll.
func SuspendAll() {
	sys().SuspendAll()
}

// ResumeAll undoes SuspendAll and reports whether a blocked thread was
// released meanwhile.
func ResumeAll() bool {
	return sys().ResumeAll()
}

// CountThreads returns the number of kernel tasks, the timer service
// included.
func CountThreads() int {
	return sys().NumberOfTasks()
}

// AllThreads returns a snapshot of every task.
func AllThreads() SystemState {
	tasks, total := sys().SystemState()
	st := SystemState{Threads: make([]ThreadMetadata, len(tasks)), TotalRunTime: total}
	for i, ts := range tasks {
		st.Threads[i] = metadataFrom(ts)
	}
	return st
}

// Delay blocks the calling thread for ticks.
func Delay(ticks Tick) {
	sys().Delay(ticks)
}

// DelayUntil blocks until *prev+increment and advances *prev, for loops
// that run at a fixed rate.
func DelayUntil(prev *Tick, increment Tick) {
	sys().DelayUntil(prev, increment)
}

// CriticalSectionEnter enters a critical section. Sections nest per thread
// and must stay short and must not block.
func CriticalSectionEnter() {
	sys().EnterCritical()
}

// CriticalSectionExit leaves a critical section.
func CriticalSectionExit() {
	sys().ExitCritical()
}

// YieldFromISR performs the context switch an ISR owes when woken is set.
func YieldFromISR(woken bool) {
	sys().YieldFromISR(woken)
}

// FreeHeapSize returns the free bytes of the kernel heap.
func FreeHeapSize() uint64 {
	return sys().FreeHeapSize()
}

// MinimumEverFreeHeapSize returns the low-water mark of the kernel heap.
func MinimumEverFreeHeapSize() uint64 {
	return sys().MinimumEverFreeHeapSize()
}

// OSVersion names the backend.
func OSVersion() string {
	return "RTOS kernel host port"
}
