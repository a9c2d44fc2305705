package opt

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/cpu"
)

// cacheLineSize is the cache line size of the target, from
// golang.org/x/sys/cpu.
const cacheLineSize = unsafe.Sizeof(cpu.CacheLinePad{})

// PaddedUint32 keeps a hot 32-bit counter on its own cache line, so that
// the tick interrupt bumping it does not invalidate the line holding the
// state that tasks read on every kernel call.
type PaddedUint32 struct {
	_ cpu.CacheLinePad
	V atomic.Uint32
	_ [cacheLineSize - 4]byte
}
