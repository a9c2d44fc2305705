//go:build rtos

package osal

import (
	"sync"
	"sync/atomic"

	"github.com/llxisdsh/osal/internal/kernel"
)

// sys returns the kernel, created and started on first use so that
// primitives block and time out before StartScheduler is called.
var sys = sync.OnceValue(func() *kernel.Kernel {
	cfg := CurrentConfig()
	k := kernel.New(kernel.Config{
		TickRateHz:          cfg.TickRateHz,
		MaxPriorities:       cfg.MaxPriorities,
		MinimalStackSize:    cfg.MinimalStackSize,
		MaxTaskNameLen:      cfg.MaxTaskNameLen,
		TotalHeapSize:       cfg.TotalHeapSize,
		TimerQueueLength:    cfg.TimerQueueLength,
		TimerTaskPriority:   cfg.TimerTaskPriority.native(),
		TimerTaskStackDepth: cfg.TimerTaskStackDepth,
		InitialTick:         kernel.Tick(cfg.InitialTick),
		Logger:              logger(),
	})
	k.Start()
	return k
})

// handle owns one kernel handle. The zero value is absent.
type handle struct {
	v atomic.Uintptr
}

func (h *handle) get() (kernel.Handle, error) {
	if v := h.v.Load(); v != 0 {
		return kernel.Handle(v), nil
	}
	return 0, ErrNullPtr
}

func (h *handle) set(k kernel.Handle) {
	h.v.Store(uintptr(k))
}

// take clears the handle and returns what it held, so that exactly one
// caller deletes the native object.
func (h *handle) take() kernel.Handle {
	return kernel.Handle(h.v.Swap(0))
}
