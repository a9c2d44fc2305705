package kernel

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTaskLifecycle(t *testing.T) {
	k := newStarted(t, Config{})
	before := k.NumberOfTasks()

	done := make(chan uint32, 1)
	h, err := k.TaskCreate(func(arg uintptr) {
		v, _ := k.TaskNotifyWait(0, ^uint32(0), MaxDelay)
		done <- v + uint32(arg)
	}, "worker", 0, 7, 3)
	if err != nil {
		t.Fatal(err)
	}
	if got := k.NumberOfTasks(); got != before+1 {
		t.Fatalf("NumberOfTasks() = %d, want %d", got, before+1)
	}
	eventually(t, "worker to block", func() bool { return k.TaskGetState(h) == StateBlocked })

	if name, _ := k.TaskGetName(h); name != "worker" {
		t.Fatalf("name = %q", name)
	}
	info, ok := k.TaskGetInfo(h)
	if !ok || info.Priority != 3 || info.StackDepth != k.Config().MinimalStackSize {
		t.Fatalf("info = %+v", info)
	}

	k.TaskNotify(h, 35, NotifySetValueWithOverwrite)
	select {
	case v := <-done:
		if v != 42 {
			t.Fatalf("got %d, want 42", v)
		}
	case <-time.After(time.Second):
		t.Fatal("worker never woke")
	}
	eventually(t, "worker to exit", func() bool { return k.TaskGetState(h) == StateDeleted })
	if got := k.NumberOfTasks(); got != before {
		t.Fatalf("NumberOfTasks() = %d after exit, want %d", got, before)
	}
	if k.TaskGetState(Handle(1<<40)) != StateInvalid {
		t.Fatal("never issued handle not invalid")
	}
}

func TestTaskNameTruncated(t *testing.T) {
	k := New(Config{MaxTaskNameLen: 8})
	h, err := k.TaskCreate(func(uintptr) {}, "a-very-long-name", 0, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if name, _ := k.TaskGetName(h); name != "a-very-" {
		t.Fatalf("name = %q", name)
	}
}

func TestTaskPriorityClamped(t *testing.T) {
	k := New(Config{MaxPriorities: 5})
	h, _ := k.TaskCreate(func(uintptr) {}, "p", 0, 0, 99)
	if p, _ := k.TaskPriorityGet(h); p != 4 {
		t.Fatalf("priority = %d, want 4", p)
	}
	k.TaskPrioritySet(h, 2)
	if p, _ := k.TaskPriorityGet(h); p != 2 {
		t.Fatalf("priority = %d, want 2", p)
	}
	if p, _ := k.TaskPriorityGet(0); p != 0 {
		t.Fatalf("adopted goroutine priority = %d", p)
	}
}

func TestTaskSuspendResume(t *testing.T) {
	k := newStarted(t, Config{})
	var n atomic.Int32
	h, _ := k.TaskCreate(func(uintptr) {
		for {
			n.Add(1)
			k.Delay(1)
		}
	}, "spin", 0, 0, 1)
	eventually(t, "task to run", func() bool { return n.Load() > 2 })

	k.TaskSuspend(h)
	eventually(t, "task to park", func() bool { return k.TaskGetState(h) == StateSuspended })
	parked := n.Load()
	time.Sleep(20 * time.Millisecond)
	if n.Load() != parked {
		t.Fatal("suspended task kept running")
	}
	if !k.TaskResume(h) {
		t.Fatal("resume failed")
	}
	if k.TaskResume(h) {
		t.Fatal("resuming a running task succeeded")
	}
	eventually(t, "task to run again", func() bool { return n.Load() > parked })
	k.TaskDelete(h)
}

func TestTaskDeleteBlocked(t *testing.T) {
	k := newStarted(t, Config{})
	sem := k.SemaphoreCreateBinary()
	exited := make(chan struct{})
	h, _ := k.TaskCreate(func(uintptr) {
		defer close(exited)
		k.SemaphoreTake(sem, MaxDelay)
		t.Error("take returned after delete")
	}, "victim", 0, 0, 1)
	eventually(t, "victim to block", func() bool { return k.TaskGetState(h) == StateBlocked })

	free := k.FreeHeapSize()
	if !k.TaskDelete(h) {
		t.Fatal("delete failed")
	}
	select {
	case <-exited:
	case <-time.After(time.Second):
		t.Fatal("victim did not exit")
	}
	if k.FreeHeapSize() <= free {
		t.Fatal("task memory not returned")
	}
	if k.TaskDelete(h) {
		t.Fatal("second delete succeeded")
	}
	if k.TaskDelete(0) {
		t.Fatal("adopted goroutine deleted")
	}
}

func TestDelayUntil(t *testing.T) {
	k := newStarted(t, Config{})
	prev := k.TickCount()
	start := prev
	for range 3 {
		k.DelayUntil(&prev, 5)
	}
	if prev != start+15 {
		t.Fatalf("prev = %d, want %d", prev, start+15)
	}
	if now := k.TickCount(); now-start < 15 {
		t.Fatalf("returned after %d ticks", now-start)
	}

	prev = k.TickCount() - 100
	if k.DelayUntil(&prev, 10) {
		t.Fatal("blocked for a deadline in the past")
	}
}

func TestSystemState(t *testing.T) {
	k := newStarted(t, Config{})
	stop := k.SemaphoreCreateBinary()
	for _, name := range []string{"alpha", "beta"} {
		k.TaskCreate(func(uintptr) { k.SemaphoreTake(stop, MaxDelay) }, name, 0, 0, 1)
	}
	eventually(t, "ticks", func() bool { return k.TotalRunTime() > 5 })

	tasks, total := k.SystemState()
	if total == 0 {
		t.Fatal("zero total run time")
	}
	var names []string
	for i, ts := range tasks {
		names = append(names, ts.Name)
		if i > 0 && tasks[i-1].Number >= ts.Number {
			t.Fatal("tasks not in creation order")
		}
	}
	if got := strings.Join(names, ","); got != "Tmr Svc,alpha,beta" {
		t.Fatalf("tasks = %s", got)
	}
}

func TestNotifyActions(t *testing.T) {
	k := New(Config{})
	self := k.TaskGetCurrent()

	k.TaskNotify(self, 0b0101, NotifySetBits)
	k.TaskNotify(self, 0b0010, NotifySetBits)
	if v, ok := k.TaskNotifyWait(0, ^uint32(0), 0); !ok || v != 0b0111 {
		t.Fatalf("set bits: %b %v", v, ok)
	}

	k.TaskNotify(self, 0, NotifyIncrement)
	k.TaskNotify(self, 0, NotifyIncrement)
	if v, _ := k.TaskNotifyWait(0, 0, 0); v != 2 {
		t.Fatalf("increment: %d", v)
	}

	k.TaskNotify(self, 9, NotifySetValueWithoutOverwrite)
	if k.TaskNotify(self, 10, NotifySetValueWithoutOverwrite) {
		t.Fatal("overwrote a pending notification")
	}
	if v, _ := k.TaskNotifyWait(0, 0, 0); v != 9 {
		t.Fatalf("without overwrite: %d", v)
	}
	if _, ok := k.TaskNotifyWait(0, 0, 0); ok {
		t.Fatal("no notification pending, yet wait succeeded")
	}
}

func TestNotifyFromISRWoken(t *testing.T) {
	k := newStarted(t, Config{})
	got := make(chan uint32, 1)
	h, _ := k.TaskCreate(func(uintptr) {
		v, _ := k.TaskNotifyWait(0, 0, MaxDelay)
		got <- v
	}, "isr", 0, 0, 6)
	eventually(t, "task to block", func() bool { return k.TaskGetState(h) == StateBlocked })

	ok, woken := k.TaskNotifyFromISR(h, 5, NotifySetValueWithOverwrite)
	if !ok || !woken {
		t.Fatalf("ok=%v woken=%v", ok, woken)
	}
	if v := <-got; v != 5 {
		t.Fatalf("got %d", v)
	}
}

func (k *Kernel) liveTasks() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.live)
}

func TestAdoptedTasksReleased(t *testing.T) {
	k := newStarted(t, Config{})
	sem := k.SemaphoreCreateCounting(^uint32(0), 0)
	before, tasks := k.liveTasks(), k.NumberOfTasks()

	for range 100 {
		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				k.SemaphoreGive(sem)
			}()
		}
		wg.Wait()
	}
	if got := k.SemaphoreGetCount(sem); got != 1000 {
		t.Fatalf("count = %d, want 1000", got)
	}
	if got := k.liveTasks(); got > before+minAdoptMark {
		t.Fatalf("%d live tasks after 1000 short-lived callers, want at most %d", got, before+minAdoptMark)
	}
	if got := k.NumberOfTasks(); got != tasks {
		t.Fatalf("NumberOfTasks() = %d, want %d", got, tasks)
	}
}

func TestAdoptedTaskDeletedAfterExit(t *testing.T) {
	k := newStarted(t, Config{})
	hc := make(chan Handle)
	go func() {
		hc <- k.TaskGetCurrent()
	}()
	h := <-hc
	if got := k.TaskGetState(h); got == StateDeleted || got == StateInvalid {
		t.Fatalf("state right after adoption = %v", got)
	}
	eventually(t, "adopted task to be released", func() bool {
		k.mu.Lock()
		k.pruneAdoptedLocked()
		k.mu.Unlock()
		return k.TaskGetState(h) == StateDeleted
	})
	if k.TaskNotify(h, 1, NotifySetBits) {
		t.Fatal("notify reached a released task")
	}
}
