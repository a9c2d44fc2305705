package osal

import (
	"fmt"
	"sync/atomic"
)

// ThreadParam is a shared, dynamically typed payload handed to thread and
// timer callbacks. Holders share one value; Clone adds a holder and Release
// drops one. The release hook, if any, runs once when the last holder
// releases. The zero ThreadParam carries nothing.
type ThreadParam struct {
	b *paramBox
}

type paramBox struct {
	v       any
	refs    atomic.Int32
	release func(any)
}

// NewThreadParam wraps v with one holder.
func NewThreadParam(v any) ThreadParam {
	return NewThreadParamWithRelease(v, nil)
}

// NewThreadParamWithRelease wraps v with one holder; release runs with v
// once the last holder releases.
func NewThreadParamWithRelease(v any, release func(any)) ThreadParam {
	b := &paramBox{v: v, release: release}
	b.refs.Store(1)
	return ThreadParam{b: b}
}

// IsNone reports whether p carries nothing.
func (p ThreadParam) IsNone() bool {
	return p.b == nil
}

// Value returns the wrapped value.
func (p ThreadParam) Value() any {
	if p.b == nil {
		return nil
	}
	return p.b.v
}

// Clone adds a holder.
func (p ThreadParam) Clone() ThreadParam {
	if p.b != nil {
		p.b.refs.Add(1)
	}
	return p
}

// Release drops a holder.
func (p ThreadParam) Release() {
	if p.b == nil {
		return
	}
	if p.b.refs.Add(-1) == 0 && p.b.release != nil {
		p.b.release(p.b.v)
	}
}

// ParamAs returns the value of p as a T. It fails with ErrNullPtr when p is
// empty and ErrInvalidType when the value is not a T.
func ParamAs[T any](p ThreadParam) (T, error) {
	var zero T
	if p.b == nil {
		return zero, ErrNullPtr
	}
	v, ok := p.b.v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: have %T, want %T", ErrInvalidType, p.b.v, zero)
	}
	return v, nil
}
