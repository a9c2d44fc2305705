package osal

import (
	"math"
	"math/bits"
	"time"
)

// durationToTicks converts d at rateHz ticks per second, rounding down and
// saturating at limit. Negative durations convert to zero ticks.
func durationToTicks(d time.Duration, rateHz uint32, limit uint64) uint64 {
	if d <= 0 {
		return 0
	}
	hi, lo := bits.Mul64(uint64(d), uint64(rateHz))
	if hi >= uint64(time.Second) {
		return limit
	}
	q, _ := bits.Div64(hi, lo, uint64(time.Second))
	return min(q, limit)
}

// ticksToDuration converts ticks at rateHz ticks per second, saturating at
// the longest time.Duration.
func ticksToDuration(ticks uint64, rateHz uint32) time.Duration {
	hi, lo := bits.Mul64(ticks, uint64(time.Second))
	if hi >= uint64(rateHz) {
		return math.MaxInt64
	}
	q, _ := bits.Div64(hi, lo, uint64(rateHz))
	if q > math.MaxInt64 {
		return math.MaxInt64
	}
	return time.Duration(q)
}

// DurationToTicks converts d to ticks at the configured tick rate. The
// result rounds down and saturates at WaitForever.
func DurationToTicks(d time.Duration) Tick {
	return Tick(durationToTicks(d, CurrentConfig().TickRateHz, uint64(WaitForever)))
}

// TicksToDuration converts ticks to wall-clock time at the configured tick
// rate, saturating at the longest time.Duration.
func TicksToDuration(ticks Tick) time.Duration {
	return ticksToDuration(uint64(ticks), CurrentConfig().TickRateHz)
}

// Elapsed returns the ticks from start to now. It is correct across one
// wrap of the tick counter.
func Elapsed(start, now Tick) Tick {
	return now - start
}

// CheckTimer reports whether at least interval has passed since start, a
// tick count taken earlier. The tick counter may have wrapped in between.
func CheckTimer(start Tick, interval time.Duration) bool {
	return Elapsed(start, TickCount()) >= DurationToTicks(interval)
}

// CurrentTime returns the tick count as time since the tick started.
func CurrentTime() time.Duration {
	return TicksToDuration(TickCount())
}
