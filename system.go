package osal

import (
	"sync"

	"github.com/shirou/gopsutil/v4/cpu"
)

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

var schedulerGate struct {
	mu   sync.Mutex
	stop chan struct{}
}

// StartScheduler starts the scheduler and blocks until StopScheduler.
func StartScheduler() {
	schedulerGate.mu.Lock()
	if schedulerGate.stop == nil {
		schedulerGate.stop = make(chan struct{})
	}
	stop := schedulerGate.stop
	schedulerGate.mu.Unlock()
	startScheduler()
	<-stop
}

// StopScheduler makes StartScheduler return.
func StopScheduler() {
	schedulerGate.mu.Lock()
	if schedulerGate.stop != nil {
		close(schedulerGate.stop)
		schedulerGate.stop = nil
	}
	schedulerGate.mu.Unlock()
	stopScheduler()
}

// EndSwitchingISR requests a context switch at the end of an ISR when
// required is set.
func EndSwitchingISR(required bool) {
	YieldFromISR(required)
}

// CPUClockHz returns the configured CPU clock, or the clock the host
// reports when none is configured.
func CPUClockHz() uint64 {
	if hz := CurrentConfig().CPUClockHz; hz != 0 {
		return hz
	}
	return hostCPUClockHz()
}

var hostCPUClockHz = sync.OnceValue(func() uint64 {
	infos, err := cpu.Info()
	if err != nil || len(infos) == 0 {
		logger().Debug("osal: cpu clock unavailable", "err", err)
		return 0
	}
	return uint64(infos[0].Mhz * 1e6)
})
