package osal

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestThreadParam_ReleaseOnce(t *testing.T) {
	var released atomic.Int32
	p := NewThreadParamWithRelease("payload", func(v any) {
		if v != "payload" {
			t.Errorf("release got %v", v)
		}
		released.Add(1)
	})

	var wg sync.WaitGroup
	for range 8 {
		c := p.Clone()
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Release()
		}()
	}
	wg.Wait()
	if released.Load() != 0 {
		t.Fatal("released while a holder remains")
	}
	p.Release()
	if released.Load() != 1 {
		t.Fatalf("release ran %d times", released.Load())
	}
}

func TestThreadParam_None(t *testing.T) {
	var p ThreadParam
	if !p.IsNone() || p.Value() != nil {
		t.Fatal("zero param carries a value")
	}
	p.Clone().Release()
	if _, err := ParamAs[int](p); !errors.Is(err, ErrNullPtr) {
		t.Fatalf("err = %v", err)
	}
}

func TestParamAs(t *testing.T) {
	p := NewThreadParam(42)
	defer p.Release()
	if v, err := ParamAs[int](p); err != nil || v != 42 {
		t.Fatalf("got %v, %v", v, err)
	}
	if _, err := ParamAs[string](p); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("err = %v, want ErrInvalidType", err)
	}
}
