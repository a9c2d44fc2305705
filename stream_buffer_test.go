package osal

import (
	"errors"
	"testing"
	"time"
)

func TestStreamBuffer_TriggerLevel(t *testing.T) {
	sb, err := NewStreamBuffer(16, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer sb.Delete()

	got := make(chan string)
	go func() {
		buf := make([]byte, 16)
		n, _ := sb.Receive(buf, WaitForever)
		got <- string(buf[:n])
	}()
	time.Sleep(10 * time.Millisecond)
	if err := sb.Reset(); err == nil {
		t.Fatal("reset with a blocked reader succeeded")
	}
	sb.Send([]byte("ab"), 0)
	select {
	case s := <-got:
		t.Fatalf("reader released below the trigger level with %q", s)
	case <-time.After(20 * time.Millisecond):
	}
	sb.Send([]byte("cd"), 0)
	select {
	case s := <-got:
		if s != "abcd" {
			t.Fatalf("got %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("reader not released at the trigger level")
	}
}

func TestStreamBuffer_Wrap(t *testing.T) {
	sb, _ := NewStreamBuffer(8, 1)
	defer sb.Delete()
	buf := make([]byte, 8)
	for _, chunk := range []string{"hello", "world", "wraps", "again"} {
		if n, err := sb.Send([]byte(chunk), 0); err != nil || n != len(chunk) {
			t.Fatalf("send %q: %d %v", chunk, n, err)
		}
		n, err := sb.Receive(buf, 0)
		if err != nil || string(buf[:n]) != chunk {
			t.Fatalf("receive %q: %q %v", chunk, buf[:n], err)
		}
	}
}

func TestStreamBuffer_Limits(t *testing.T) {
	if _, err := NewStreamBuffer(0, 1); err == nil {
		t.Fatal("zero size accepted")
	}
	sb, _ := NewStreamBuffer(8, 1)
	defer sb.Delete()

	if n, err := sb.Send([]byte("0123456789"), 0); err != nil || n != 8 {
		t.Fatalf("oversized send wrote %d, %v", n, err)
	}
	if sb.BytesAvailable() != 8 || sb.SpacesAvailable() != 0 {
		t.Fatal("bad occupancy")
	}
	if _, err := sb.Send([]byte("x"), ms(10)); !errors.Is(err, ErrTimeout) {
		t.Fatalf("send to a full buffer: %v", err)
	}
	if n, _, err := sb.SendFromISR([]byte("x")); err != nil || n != 0 {
		t.Fatalf("ISR send to a full buffer: %d %v", n, err)
	}
	if err := sb.Reset(); err != nil || sb.BytesAvailable() != 0 {
		t.Fatalf("reset: %v", err)
	}
	if _, err := sb.Receive(make([]byte, 4), ms(10)); !errors.Is(err, ErrTimeout) {
		t.Fatalf("receive from an empty buffer: %v", err)
	}
	if n, _, err := sb.SendFromISR([]byte("isr")); err != nil || n != 3 {
		t.Fatalf("ISR send: %d %v", n, err)
	}
	buf := make([]byte, 2)
	if n, _, err := sb.ReceiveFromISR(buf); err != nil || string(buf[:n]) != "is" {
		t.Fatalf("ISR receive: %q %v", buf[:n], err)
	}
}

func TestStreamBuffer_SendWaitsForRoom(t *testing.T) {
	sb, _ := NewStreamBuffer(4, 1)
	defer sb.Delete()
	sb.Send([]byte("abcd"), 0)

	sent := make(chan int)
	go func() {
		n, _ := sb.Send([]byte("ef"), WaitForever)
		sent <- n
	}()
	buf := make([]byte, 1)
	time.Sleep(10 * time.Millisecond)
	sb.Receive(buf, 0)
	select {
	case <-sent:
		t.Fatal("send wrote before there was room for all of it")
	case <-time.After(20 * time.Millisecond):
	}
	sb.Receive(buf, 0)
	select {
	case n := <-sent:
		if n != 2 {
			t.Fatalf("sent %d", n)
		}
	case <-time.After(time.Second):
		t.Fatal("sender not released")
	}
}
