package osal

import (
	"testing"
	"time"
)

func TestSemaphore_Counting(t *testing.T) {
	for _, k := range []int{0, 1, 3, 5} {
		s, err := NewSemaphoreWithCount(0)
		if err != nil {
			t.Fatal(err)
		}
		for range k {
			if !s.Signal() {
				t.Fatal("signal failed")
			}
		}
		for j := 0; j <= k; j++ {
			ok := s.Wait(0)
			if want := k-j > 0; ok != want {
				t.Fatalf("k=%d j=%d: Wait(0) = %v, want %v", k, j, ok, want)
			}
		}
		s.Delete()
	}
}

func TestSemaphore_Bounds(t *testing.T) {
	if _, err := NewSemaphore(0, 0); err == nil {
		t.Fatal("zero maximum accepted")
	}
	if _, err := NewSemaphore(2, 3); err == nil {
		t.Fatal("initial above maximum accepted")
	}
	s, err := NewSemaphore(2, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Delete()
	if s.Signal() {
		t.Fatal("signal beyond maximum succeeded")
	}
	if s.Count() != 2 {
		t.Fatalf("count = %d", s.Count())
	}
	if ok, _ := s.WaitFromISR(); !ok || s.Count() != 1 {
		t.Fatal("WaitFromISR failed")
	}
	if ok, _ := s.SignalFromISR(); !ok || s.Count() != 2 {
		t.Fatal("SignalFromISR failed")
	}
}

func TestSemaphore_WaitTimesOut(t *testing.T) {
	s, _ := NewSemaphoreWithCount(0)
	defer s.Delete()
	start := time.Now()
	if s.Wait(ms(30)) {
		t.Fatal("wait on an empty semaphore succeeded")
	}
	if d := time.Since(start); d < 20*time.Millisecond {
		t.Fatalf("returned after %v", d)
	}
}

func TestSemaphore_SignalWakes(t *testing.T) {
	s, _ := NewSemaphoreWithCount(0)
	defer s.Delete()
	done := make(chan bool)
	go func() { done <- s.Wait(WaitForever) }()

	select {
	case <-done:
		t.Fatal("Wait returned early")
	case <-time.After(20 * time.Millisecond):
	}
	s.Signal()
	select {
	case ok := <-done:
		if !ok {
			t.Fatal("Wait failed")
		}
	case <-time.After(time.Second):
		t.Fatal("waiter not released")
	}
}

func TestSemaphore_DeleteReleasesWaiters(t *testing.T) {
	s, _ := NewSemaphoreWithCount(0)
	done := make(chan bool)
	go func() { done <- s.Wait(WaitForever) }()
	time.Sleep(20 * time.Millisecond)

	s.Delete()
	select {
	case ok := <-done:
		if ok {
			t.Fatal("wait on a deleted semaphore succeeded")
		}
	case <-time.After(time.Second):
		t.Fatal("waiter not released by Delete")
	}
	if s.Wait(0) || s.Signal() || s.Count() != 0 {
		t.Fatal("deleted semaphore still usable")
	}
}
