package kernel

import (
	"bytes"
	"runtime"
	"strconv"
)

// minAdoptMark is the number of adopted goroutines tolerated before the
// kernel first looks for ones that exited.
const minAdoptMark = 64

// adoptLocked records t as the task of a goroutine the kernel did not
// create. Once the number of adopted tasks reaches the mark, those whose
// goroutine has exited are released and the mark is set to twice the
// survivors, so the scan stays amortized.
func (k *Kernel) adoptLocked(t *tcb) {
	t.handle = k.register(t)
	k.live[t] = struct{}{}
	k.tasks.Store(t.gid, t)
	k.adoptedN++
	if k.adoptedN < max(k.adoptMark, minAdoptMark) {
		return
	}
	k.pruneAdoptedLocked()
	k.adoptMark = 2 * k.adoptedN
}

func (k *Kernel) pruneAdoptedLocked() {
	alive := liveGoroutines()
	for t := range k.live {
		if !t.adopted || t.wait != nil {
			continue
		}
		if _, ok := alive[t.gid]; ok {
			continue
		}
		delete(k.live, t)
		k.unregister(t.handle)
		k.tasks.Delete(t.gid)
		t.deleted = true
		t.notifyWaiters.wakeAll()
		k.adoptedN--
	}
}

// liveGoroutines returns the IDs of every goroutine that has not exited.
func liveGoroutines() map[int64]struct{} {
	buf := make([]byte, 64<<10)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) {
			buf = buf[:n]
			break
		}
		buf = make([]byte, 2*len(buf))
	}
	ids := make(map[int64]struct{})
	prefix := []byte("goroutine ")
	for line := range bytes.Lines(buf) {
		rest, ok := bytes.CutPrefix(line, prefix)
		if !ok {
			continue
		}
		end := bytes.IndexByte(rest, ' ')
		if end < 0 {
			continue
		}
		if id, err := strconv.ParseInt(string(rest[:end]), 10, 64); err == nil {
			ids[id] = struct{}{}
		}
	}
	return ids
}
