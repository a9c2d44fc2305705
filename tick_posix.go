//go:build linux && !rtos

package osal

import (
	"math"
	"time"
)

// Tick counts at the configured rate from process start. It is 64 bits
// wide.
type Tick = uint64

// EventBits is the event group word.
type EventBits = uint64

// WaitForever as a timeout blocks until the operation succeeds.
const WaitForever Tick = math.MaxUint64

var tickEpoch = time.Now()

// TickCount returns the tick count, from the monotonic clock.
func TickCount() Tick {
	return Tick(CurrentConfig().InitialTick) + DurationToTicks(time.Since(tickEpoch))
}

// TickCountFromISR returns the tick count from interrupt context.
func TickCountFromISR() Tick {
	return TickCount()
}
