package osal

import (
	"sync/atomic"

	"github.com/llxisdsh/pb"
)

// rawToken stands for a boxed value while it crosses a native create call
// as an untyped argument.
type rawToken uintptr

var (
	boxes     pb.MapOf[rawToken, any]
	nextToken atomic.Uintptr
)

// intoRaw moves v into the box table and returns its token.
func intoRaw[T any](v *T) rawToken {
	tok := rawToken(nextToken.Add(1))
	boxes.Store(tok, v)
	return tok
}

// fromRaw takes the value back out. Only the first call for a token
// succeeds.
func fromRaw[T any](tok rawToken) (*T, bool) {
	v, ok := boxes.LoadAndDelete(tok)
	if !ok {
		return nil, false
	}
	p, ok := v.(*T)
	return p, ok
}

// peekRaw returns the value without taking it, for tokens that are used for
// as long as their owner lives.
func peekRaw[T any](tok rawToken) (*T, bool) {
	v, ok := boxes.Load(tok)
	if !ok {
		return nil, false
	}
	p, ok := v.(*T)
	return p, ok
}

func boxedCount() int {
	return boxes.Size()
}
