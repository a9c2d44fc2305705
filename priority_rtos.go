//go:build rtos

package osal

// native maps p to a kernel priority, higher is more urgent, clamped to the
// configured number of priorities.
func (p ThreadDefaultPriority) native() uint32 {
	return min(uint32(p), CurrentConfig().MaxPriorities-1)
}

func priorityFromNative(n uint32) ThreadDefaultPriority {
	return ThreadDefaultPriority(min(n, uint32(PriorityISR)))
}
