//go:build linux && !rtos

package osal

type streamBufferState struct {
	c       cond
	data    []byte
	head    int
	count   int
	trigger int
	deleted bool
}

func (st *streamBufferState) writeLocked(p []byte) int {
	n := min(len(p), len(st.data)-st.count)
	tail := (st.head + st.count) % len(st.data)
	k := copy(st.data[tail:], p[:n])
	copy(st.data, p[k:n])
	st.count += n
	return n
}

func (st *streamBufferState) readLocked(p []byte) int {
	n := min(len(p), st.count)
	k := copy(p[:n], st.data[st.head:])
	copy(p[k:n], st.data)
	st.head = (st.head + n) % len(st.data)
	st.count -= n
	return n
}

// StreamBuffer is a byte stream from one writer to one reader.
type StreamBuffer struct {
	s ref[streamBufferState]
}

// NewStreamBuffer creates a stream buffer of size bytes. A reader waiting
// on an empty buffer is released once triggerLevel bytes are available.
func NewStreamBuffer(size, triggerLevel int) (*StreamBuffer, error) {
	if size <= 0 {
		return nil, Unhandled("stream buffer of zero bytes")
	}
	sb := &StreamBuffer{}
	sb.s.set(&streamBufferState{
		data:    make([]byte, size),
		trigger: min(max(triggerLevel, 1), size),
	})
	return sb, nil
}

// Send waits up to timeout for room for all of data, then writes as much
// as fits. It fails with ErrTimeout only when nothing was written.
func (sb *StreamBuffer) Send(data []byte, timeout Tick) (int, error) {
	st, err := sb.s.get()
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, nil
	}
	st.c.mu.Lock()
	defer st.c.mu.Unlock()
	want := min(len(data), len(st.data))
	st.c.waitUntilLocked(timeout, func() bool { return st.deleted || len(st.data)-st.count >= want })
	if st.deleted {
		return 0, ErrNullPtr
	}
	n := st.writeLocked(data)
	if n == 0 {
		return 0, ErrTimeout
	}
	st.c.broadcastLocked()
	return n, nil
}

// SendFromISR writes as much of data as fits without blocking.
func (sb *StreamBuffer) SendFromISR(data []byte) (n int, woken bool, err error) {
	st, err := sb.s.get()
	if err != nil {
		return 0, false, err
	}
	st.c.mu.Lock()
	defer st.c.mu.Unlock()
	if st.deleted {
		return 0, false, ErrNullPtr
	}
	if n = st.writeLocked(data); n > 0 {
		woken = st.c.hasWaitersLocked()
		st.c.broadcastLocked()
	}
	return n, woken, nil
}

// Receive reads into buf. On an empty buffer it waits up to timeout for the
// trigger level, then returns what arrived; ErrTimeout means nothing did.
func (sb *StreamBuffer) Receive(buf []byte, timeout Tick) (int, error) {
	st, err := sb.s.get()
	if err != nil {
		return 0, err
	}
	if len(buf) == 0 {
		return 0, nil
	}
	st.c.mu.Lock()
	defer st.c.mu.Unlock()
	if st.count == 0 {
		st.c.waitUntilLocked(timeout, func() bool { return st.deleted || st.count >= st.trigger })
	}
	if st.deleted {
		return 0, ErrNullPtr
	}
	n := st.readLocked(buf)
	if n == 0 {
		return 0, ErrTimeout
	}
	st.c.broadcastLocked()
	return n, nil
}

// ReceiveFromISR reads what is available without blocking.
func (sb *StreamBuffer) ReceiveFromISR(buf []byte) (n int, woken bool, err error) {
	st, err := sb.s.get()
	if err != nil {
		return 0, false, err
	}
	st.c.mu.Lock()
	defer st.c.mu.Unlock()
	if st.deleted {
		return 0, false, ErrNullPtr
	}
	if n = st.readLocked(buf); n > 0 {
		woken = st.c.hasWaitersLocked()
		st.c.broadcastLocked()
	}
	return n, woken, nil
}

// BytesAvailable returns the number of buffered bytes.
func (sb *StreamBuffer) BytesAvailable() int {
	st, err := sb.s.get()
	if err != nil {
		return 0
	}
	st.c.mu.Lock()
	defer st.c.mu.Unlock()
	return st.count
}

// SpacesAvailable returns the number of free bytes.
func (sb *StreamBuffer) SpacesAvailable() int {
	st, err := sb.s.get()
	if err != nil {
		return 0
	}
	st.c.mu.Lock()
	defer st.c.mu.Unlock()
	return len(st.data) - st.count
}

// Reset empties the buffer. It fails while a thread is blocked on it.
func (sb *StreamBuffer) Reset() error {
	st, err := sb.s.get()
	if err != nil {
		return err
	}
	st.c.mu.Lock()
	defer st.c.mu.Unlock()
	if st.c.hasWaitersLocked() {
		return Unhandled("stream buffer reset while in use")
	}
	st.head, st.count = 0, 0
	return nil
}

// Delete deletes the stream buffer.
func (sb *StreamBuffer) Delete() {
	st := sb.s.take()
	if st == nil {
		return
	}
	st.c.mu.Lock()
	st.deleted = true
	st.c.broadcastLocked()
	st.c.mu.Unlock()
}
