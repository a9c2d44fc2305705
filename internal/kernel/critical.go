package kernel

import (
	"runtime"
	"sync/atomic"
	"time"
	_ "unsafe"

	"github.com/petermattis/goid"
)

// ticketLock is a fair FIFO spin lock. Tasks enter critical sections in the
// order they asked, as they would queue on a single-core port.
type ticketLock struct {
	_       noCopy
	next    atomic.Uint32
	serving atomic.Uint32
}

func (m *ticketLock) lock() {
	my := m.next.Add(1) - 1
	var spins int
	for m.serving.Load() != my {
		delay(&spins)
	}
}

func (m *ticketLock) unlock() {
	m.serving.Add(1)
}

// criticalLock is a ticket lock that its owner may re-enter.
type criticalLock struct {
	ticket  ticketLock
	owner   atomic.Int64
	nesting int32 // owner only
}

func (c *criticalLock) enter(id int64) {
	if c.owner.Load() == id {
		c.nesting++
		return
	}
	c.ticket.lock()
	c.owner.Store(id)
	c.nesting = 1
}

// exit reports whether the outermost section was left.
func (c *criticalLock) exit(id int64) bool {
	if c.owner.Load() != id {
		return false
	}
	if c.nesting--; c.nesting > 0 {
		return false
	}
	c.owner.Store(0)
	c.ticket.unlock()
	return true
}

func (c *criticalLock) held() bool {
	return c.owner.Load() != 0
}

func currentID() int64 {
	return goid.Get()
}

func yield() {
	runtime.Gosched()
}

// noCopy may be added to structs which must not be copied
// after the first use.
//
// See https://golang.org/issues/8005#issuecomment-190753527
// for details.
type noCopy struct{}

// Lock is a no-op used by -copylocks checker from `go vet`.
func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

func trySpin(spins *int) bool {
	if runtime_canSpin(*spins) {
		*spins++
		runtime_doSpin()
		return true
	}
	return false
}

func delay(spins *int) {
	if trySpin(spins) {
		return
	}
	*spins = 0
	time.Sleep(500 * time.Microsecond)
}

//go:linkname runtime_canSpin sync.runtime_canSpin
func runtime_canSpin(i int) bool

//go:linkname runtime_doSpin sync.runtime_doSpin
func runtime_doSpin()
