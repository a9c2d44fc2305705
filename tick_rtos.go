//go:build rtos

package osal

import "github.com/llxisdsh/osal/internal/kernel"

// Tick is the kernel tick count. It is 32 bits wide and wraps.
type Tick = kernel.Tick

// EventBits is the event group word. The top 8 bits belong to the kernel.
type EventBits = kernel.EventBits

// WaitForever as a timeout blocks until the operation succeeds.
const WaitForever Tick = kernel.MaxDelay

// TickCount returns the kernel tick count.
func TickCount() Tick {
	return sys().TickCount()
}

// TickCountFromISR returns the kernel tick count from interrupt context.
func TickCountFromISR() Tick {
	return sys().TickCount()
}
