package osal

import "math"

// SemaphoreMaxCount is the maximum of a semaphore made by
// NewSemaphoreWithCount.
const SemaphoreMaxCount = math.MaxUint32
