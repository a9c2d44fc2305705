package kernel

import (
	"errors"
	"math"
	"testing"
	"time"
)

func newStarted(t *testing.T, cfg Config) *Kernel {
	t.Helper()
	k := New(cfg)
	k.Start()
	t.Cleanup(k.Stop)
	return k
}

// eventually polls cond until it holds or a second passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func (k *Kernel) delayedWaiters() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.delayed)
}

func TestTickWraps(t *testing.T) {
	k := New(Config{InitialTick: math.MaxUint32 - 2})
	for range 5 {
		k.IncrementTick()
	}
	if got := k.TickCount(); got != 2 {
		t.Fatalf("TickCount() = %d, want 2", got)
	}
	if got := k.TotalRunTime(); got != 5 {
		t.Fatalf("TotalRunTime() = %d, want 5", got)
	}
}

func TestTimedWaitAcrossWrap(t *testing.T) {
	k := New(Config{InitialTick: math.MaxUint32 - 1})
	sem := k.SemaphoreCreateBinary()
	done := make(chan bool, 1)
	go func() {
		done <- k.SemaphoreTake(sem, 5)
	}()
	eventually(t, "waiter to block", func() bool { return k.delayedWaiters() == 1 })

	for range 4 {
		k.IncrementTick()
	}
	select {
	case <-done:
		t.Fatal("wait expired early")
	case <-time.After(20 * time.Millisecond):
	}
	k.IncrementTick()
	select {
	case ok := <-done:
		if ok {
			t.Fatal("take succeeded on an empty semaphore")
		}
	case <-time.After(time.Second):
		t.Fatal("wait did not expire")
	}
}

func TestSuspendAllPendsTicks(t *testing.T) {
	k := New(Config{})
	k.SuspendAll()
	k.SuspendAll()
	for range 3 {
		k.IncrementTick()
	}
	if got := k.TickCount(); got != 0 {
		t.Fatalf("tick advanced while suspended: %d", got)
	}
	k.ResumeAll()
	if got := k.TickCount(); got != 0 {
		t.Fatalf("tick advanced while still suspended: %d", got)
	}
	k.ResumeAll()
	if got := k.TickCount(); got != 3 {
		t.Fatalf("TickCount() = %d after resume, want 3", got)
	}
	if k.ResumeAll() {
		t.Fatal("unbalanced ResumeAll reported a release")
	}
}

func TestCriticalSectionNestsAndPendsTicks(t *testing.T) {
	k := New(Config{})
	k.EnterCritical()
	k.EnterCritical()
	k.IncrementTick()

	entered := make(chan struct{})
	go func() {
		k.EnterCritical()
		k.ExitCritical()
		close(entered)
	}()

	k.ExitCritical()
	select {
	case <-entered:
		t.Fatal("critical section released by inner exit")
	case <-time.After(20 * time.Millisecond):
	}
	if got := k.TickCount(); got != 0 {
		t.Fatalf("tick advanced inside critical section: %d", got)
	}
	k.ExitCritical()
	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("critical section not released")
	}
	if got := k.TickCount(); got != 1 {
		t.Fatalf("pended tick not replayed: %d", got)
	}
}

func TestHeapAccounting(t *testing.T) {
	k := New(Config{TotalHeapSize: 1000})
	base := k.FreeHeapSize()
	if base != 1000-(queueSize+10*timerCommandSize) {
		t.Fatalf("FreeHeapSize() = %d after timer queue", base)
	}

	if _, err := k.TaskCreate(func(uintptr) {}, "big", 256, 0, 1); !errors.Is(err, ErrCouldNotAllocate) {
		t.Fatalf("TaskCreate err = %v, want ErrCouldNotAllocate", err)
	}
	q := k.QueueCreate(4, 8)
	if q == 0 {
		t.Fatal("QueueCreate failed")
	}
	if got := k.FreeHeapSize(); got != base-(queueSize+32) {
		t.Fatalf("FreeHeapSize() = %d after queue", got)
	}
	if k.QueueCreate(100, 100) != 0 {
		t.Fatal("QueueCreate beyond heap succeeded")
	}
	k.QueueDelete(q)
	if got := k.FreeHeapSize(); got != base {
		t.Fatalf("FreeHeapSize() = %d after delete, want %d", got, base)
	}
	if got := k.MinimumEverFreeHeapSize(); got != base-(queueSize+32) {
		t.Fatalf("MinimumEverFreeHeapSize() = %d", got)
	}
}

func TestSchedulerState(t *testing.T) {
	k := New(Config{})
	if got := k.SchedulerState(); got != SchedulerNotStarted {
		t.Fatalf("state = %v", got)
	}
	k.Start()
	k.Start()
	if got := k.SchedulerState(); got != SchedulerRunning {
		t.Fatalf("state = %v", got)
	}
	k.SuspendAll()
	if got := k.SchedulerState(); got != SchedulerSuspended {
		t.Fatalf("state = %v", got)
	}
	k.ResumeAll()
	k.Stop()
	k.Stop()
	if got := k.SchedulerState(); got != SchedulerNotStarted {
		t.Fatalf("state = %v", got)
	}
	before := k.TickCount()
	time.Sleep(10 * time.Millisecond)
	if k.TickCount() != before {
		t.Fatal("tick advanced after Stop")
	}
	k.Start()
	defer k.Stop()
	eventually(t, "tick after restart", func() bool { return k.TickCount() != before })
}

func TestYieldFromISR(t *testing.T) {
	k := New(Config{})
	k.YieldFromISR(false)
	if k.Yields() != 0 {
		t.Fatal("yield requested without a woken task")
	}
	k.YieldFromISR(true)
	k.Yield()
	if k.Yields() != 2 {
		t.Fatalf("Yields() = %d, want 2", k.Yields())
	}
}
