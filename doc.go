// Package osal is an operating-system abstraction layer for portable
// control code. The same API for threads, mutexes, semaphores, event
// groups, queues, stream buffers, software timers and tick-based timing is
// implemented twice, and the backend is chosen when building:
//
//   - go build -tags rtos selects the real-time kernel backend. Threads are
//     kernel tasks, Tick is 32 bits wide and wraps, and the kernel is the
//     host port in internal/kernel.
//   - A plain Linux build selects the POSIX backend. Every thread owns an OS
//     thread, priorities are nice values, Tick is 64 bits wide, and blocking
//     primitives are a mutex with a condition variable.
//
// Every primitive is created explicitly and deleted exactly once with
// Delete; a second Delete is a no-op and any other call on a deleted
// primitive fails with ErrNullPtr. Operations with a FromISR suffix never
// block. They report whether a higher priority waiter was woken, and the
// caller passes that flag to YieldFromISR once before returning from the
// interrupt.
package osal
