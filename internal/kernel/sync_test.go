package kernel

import (
	"bytes"
	"testing"
	"time"
)

func TestCountingSemaphore(t *testing.T) {
	k := New(Config{})
	if k.SemaphoreCreateCounting(0, 0) != 0 || k.SemaphoreCreateCounting(2, 3) != 0 {
		t.Fatal("invalid counting semaphore created")
	}
	s := k.SemaphoreCreateCounting(3, 3)
	for i := range 3 {
		if !k.SemaphoreTake(s, 0) {
			t.Fatalf("take %d failed", i)
		}
	}
	if k.SemaphoreTake(s, 0) {
		t.Fatal("take on empty semaphore succeeded")
	}
	for i := range 3 {
		if !k.SemaphoreGive(s) {
			t.Fatalf("give %d failed", i)
		}
	}
	if k.SemaphoreGive(s) {
		t.Fatal("give beyond max succeeded")
	}
	if got := k.SemaphoreGetCount(s); got != 3 {
		t.Fatalf("count = %d", got)
	}
	k.SemaphoreDelete(s)
	if k.SemaphoreTake(s, 0) || k.SemaphoreDelete(s) {
		t.Fatal("deleted semaphore still usable")
	}
}

func TestRecursiveMutex(t *testing.T) {
	k := newStarted(t, Config{})
	m := k.SemaphoreCreateRecursiveMutex()
	if !k.SemaphoreTake(m, 0) || !k.SemaphoreTake(m, 0) {
		t.Fatal("holder could not take twice")
	}
	if k.SemaphoreGetCount(m) != 0 {
		t.Fatal("held mutex counts as free")
	}

	other := func(timeout Tick) bool {
		r := make(chan bool)
		go func() {
			ok := k.SemaphoreTake(m, timeout)
			if ok {
				k.SemaphoreGive(m)
			}
			r <- ok
		}()
		return <-r
	}
	if other(10) {
		t.Fatal("mutex taken while held")
	}
	gave := make(chan bool)
	go func() { gave <- k.SemaphoreGive(m) }()
	if <-gave {
		t.Fatal("non-holder gave the mutex")
	}

	k.SemaphoreGive(m)
	if other(0) {
		t.Fatal("mutex released before the outermost give")
	}
	k.SemaphoreGive(m)
	if !other(10) {
		t.Fatal("mutex not released")
	}
}

func TestSemaphoreGiveFromISR(t *testing.T) {
	k := newStarted(t, Config{})
	s := k.SemaphoreCreateBinary()
	taken := make(chan struct{})
	h, _ := k.TaskCreate(func(uintptr) {
		k.SemaphoreTake(s, MaxDelay)
		close(taken)
	}, "taker", 0, 0, 4)
	eventually(t, "taker to block", func() bool { return k.TaskGetState(h) == StateBlocked })

	ok, woken := k.SemaphoreGiveFromISR(s)
	if !ok || !woken {
		t.Fatalf("ok=%v woken=%v", ok, woken)
	}
	select {
	case <-taken:
	case <-time.After(time.Second):
		t.Fatal("taker not released")
	}
	if ok, _ := k.SemaphoreTakeFromISR(s); ok {
		t.Fatal("took an empty semaphore from ISR")
	}
}

func TestQueueFIFO(t *testing.T) {
	k := New(Config{})
	if k.QueueCreate(0, 4) != 0 {
		t.Fatal("zero length queue created")
	}
	q := k.QueueCreate(3, 4)
	for _, item := range [][]byte{{1, 1, 1, 1}, {2}, {3, 3, 3, 3, 3}} {
		if !k.QueueSend(q, item, 0) {
			t.Fatalf("send %v failed", item)
		}
	}
	if k.QueueSend(q, []byte{4}, 0) {
		t.Fatal("send to full queue succeeded")
	}
	if k.QueueSpacesAvailable(q) != 0 || k.QueueMessagesWaiting(q) != 3 {
		t.Fatal("bad occupancy")
	}
	want := [][]byte{{1, 1, 1, 1}, {2, 0, 0, 0}, {3, 3, 3, 3}}
	buf := make([]byte, 4)
	for _, w := range want {
		if !k.QueueReceive(q, buf, 0) {
			t.Fatal("receive failed")
		}
		if !bytes.Equal(buf, w) {
			t.Fatalf("got %v, want %v", buf, w)
		}
	}
	if k.QueueReceive(q, buf, 0) {
		t.Fatal("receive from empty queue succeeded")
	}
}

func TestQueueBlockingHandoff(t *testing.T) {
	k := newStarted(t, Config{})
	q := k.QueueCreate(1, 1)
	got := make(chan byte, 2)
	go func() {
		buf := make([]byte, 1)
		for range 2 {
			if k.QueueReceive(q, buf, MaxDelay) {
				got <- buf[0]
			}
		}
	}()
	time.Sleep(10 * time.Millisecond)
	k.QueueSend(q, []byte{7}, MaxDelay)
	k.QueueSend(q, []byte{8}, MaxDelay)
	for _, w := range []byte{7, 8} {
		select {
		case b := <-got:
			if b != w {
				t.Fatalf("got %d, want %d", b, w)
			}
		case <-time.After(time.Second):
			t.Fatal("receiver starved")
		}
	}
}

func TestQueueDeleteReleasesWaiters(t *testing.T) {
	k := newStarted(t, Config{})
	q := k.QueueCreate(1, 1)
	r := make(chan bool)
	go func() { r <- k.QueueReceive(q, make([]byte, 1), MaxDelay) }()
	time.Sleep(10 * time.Millisecond)
	k.QueueDelete(q)
	select {
	case ok := <-r:
		if ok {
			t.Fatal("receive succeeded on deleted queue")
		}
	case <-time.After(time.Second):
		t.Fatal("receiver not released")
	}
}

func TestQueueISR(t *testing.T) {
	k := New(Config{})
	q := k.QueueCreate(1, 2)
	if ok, _ := k.QueueSendFromISR(q, []byte{1, 2}); !ok {
		t.Fatal("send from ISR failed")
	}
	if ok, _ := k.QueueSendFromISR(q, []byte{3}); ok {
		t.Fatal("send from ISR to full queue succeeded")
	}
	buf := make([]byte, 2)
	if ok, _ := k.QueueReceiveFromISR(q, buf); !ok || buf[1] != 2 {
		t.Fatalf("receive from ISR: %v %v", ok, buf)
	}
}

func TestEventGroupBits(t *testing.T) {
	k := New(Config{})
	g := k.EventGroupCreate()
	if got := k.EventGroupSetBits(g, 0xff000001); got != 1 {
		t.Fatalf("control bits not masked: %#x", got)
	}
	k.EventGroupSetBits(g, 0b100)
	if got := k.EventGroupClearBits(g, 0b1); got != 0b101 {
		t.Fatalf("ClearBits returned %#b, want bits before clear", got)
	}
	if got := k.EventGroupGetBits(g); got != 0b100 {
		t.Fatalf("bits = %#b", got)
	}
	if got := k.EventGroupWaitBits(g, 0b110, false, true, 0); got&0b110 == 0b110 {
		t.Fatalf("all-wait met with %#b", got)
	}
	if got := k.EventGroupWaitBits(g, 0b110, true, false, 0); got != 0b100 {
		t.Fatalf("any-wait = %#b", got)
	}
	if got := k.EventGroupGetBits(g); got != 0 {
		t.Fatalf("clear on exit left %#b", got)
	}
}

func TestEventGroupWaitAll(t *testing.T) {
	k := newStarted(t, Config{})
	g := k.EventGroupCreate()
	r := make(chan EventBits)
	go func() { r <- k.EventGroupWaitBits(g, 0b11, false, true, MaxDelay) }()

	k.EventGroupSetBits(g, 0b01)
	select {
	case <-r:
		t.Fatal("all-wait released by one bit")
	case <-time.After(20 * time.Millisecond):
	}
	k.EventGroupSetBits(g, 0b10)
	select {
	case got := <-r:
		if got != 0b11 {
			t.Fatalf("got %#b", got)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter not released")
	}
	if k.EventGroupGetBits(g) != 0b11 {
		t.Fatal("bits cleared without clearOnExit")
	}
}

func TestStreamBuffer(t *testing.T) {
	k := newStarted(t, Config{})
	if k.StreamBufferCreate(0, 1) != 0 {
		t.Fatal("empty stream buffer created")
	}
	sb := k.StreamBufferCreate(8, 4)

	if n := k.StreamBufferSend(sb, []byte("abc"), 0); n != 3 {
		t.Fatalf("sent %d", n)
	}
	buf := make([]byte, 8)
	if n := k.StreamBufferReceive(sb, buf, MaxDelay); n != 3 || string(buf[:n]) != "abc" {
		t.Fatalf("received %q", buf[:n])
	}

	r := make(chan string)
	go func() {
		p := make([]byte, 8)
		n := k.StreamBufferReceive(sb, p, MaxDelay)
		r <- string(p[:n])
	}()
	time.Sleep(10 * time.Millisecond)
	if k.StreamBufferReset(sb) {
		t.Fatal("reset succeeded with a blocked reader")
	}
	k.StreamBufferSend(sb, []byte("de"), 0)
	select {
	case <-r:
		t.Fatal("reader released below trigger level")
	case <-time.After(20 * time.Millisecond):
	}
	k.StreamBufferSend(sb, []byte("fg"), 0)
	select {
	case got := <-r:
		if got != "defg" {
			t.Fatalf("got %q", got)
		}
	case <-time.After(time.Second):
		t.Fatal("reader not released at trigger level")
	}

	if n := k.StreamBufferSend(sb, []byte("0123456789"), 0); n != 8 {
		t.Fatalf("partial send wrote %d, want 8", n)
	}
	if k.StreamBufferSpacesAvailable(sb) != 0 || k.StreamBufferBytesAvailable(sb) != 8 {
		t.Fatal("bad occupancy")
	}
	if !k.StreamBufferReset(sb) || k.StreamBufferBytesAvailable(sb) != 0 {
		t.Fatal("reset failed")
	}
}
