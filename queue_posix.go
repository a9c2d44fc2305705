//go:build linux && !rtos

package osal

import "fmt"

type queueState struct {
	c        cond
	data     []byte
	size     uint32
	capacity uint32
	head     uint32
	count    uint32
	deleted  bool
}

func (st *queueState) pushLocked(item []byte) {
	slot := (st.head + st.count) % st.capacity
	dst := st.data[slot*st.size : (slot+1)*st.size]
	clear(dst[copy(dst, item):])
	st.count++
}

func (st *queueState) popLocked(buf []byte) {
	copy(buf, st.data[st.head*st.size:(st.head+1)*st.size])
	st.head = (st.head + 1) % st.capacity
	st.count--
}

// Queue is a FIFO of fixed-size messages, copied in and out by value.
type Queue struct {
	s    ref[queueState]
	size uint32
}

// NewQueue creates a queue of capacity messages of messageSize bytes.
func NewQueue(capacity, messageSize uint32) (*Queue, error) {
	if capacity == 0 {
		return nil, Unhandled("queue capacity of zero")
	}
	total := uint64(capacity) * uint64(messageSize)
	if total > uint64(^uint(0)>>1) {
		return nil, fmt.Errorf("%w: queue of %d bytes", ErrOutOfMemory, total)
	}
	q := &Queue{size: messageSize}
	q.s.set(&queueState{
		data:     make([]byte, total),
		size:     messageSize,
		capacity: capacity,
	})
	return q, nil
}

// MessageSize returns the size of one message.
func (q *Queue) MessageSize() uint32 {
	return q.size
}

// Post copies item to the back of the queue, waiting up to timeout for
// room. Items shorter than the message size are zero padded.
func (q *Queue) Post(item []byte, timeout Tick) error {
	st, err := q.s.get()
	if err != nil {
		return err
	}
	if err := checkItem(item, q.size); err != nil {
		return err
	}
	st.c.mu.Lock()
	defer st.c.mu.Unlock()
	st.c.waitUntilLocked(timeout, func() bool { return st.deleted || st.count < st.capacity })
	switch {
	case st.deleted:
		return ErrNullPtr
	case st.count == st.capacity:
		return errPostTimeout
	}
	st.pushLocked(item)
	st.c.broadcastLocked()
	return nil
}

// PostFromISR posts item without blocking.
func (q *Queue) PostFromISR(item []byte) (woken bool, err error) {
	st, err := q.s.get()
	if err != nil {
		return false, err
	}
	if err := checkItem(item, q.size); err != nil {
		return false, err
	}
	st.c.mu.Lock()
	defer st.c.mu.Unlock()
	if st.deleted || st.count == st.capacity {
		return false, ErrQueueFull
	}
	st.pushLocked(item)
	woken = st.c.hasWaitersLocked()
	st.c.broadcastLocked()
	return woken, nil
}

// Fetch moves the front message into buf, waiting up to timeout for one.
func (q *Queue) Fetch(buf []byte, timeout Tick) error {
	st, err := q.s.get()
	if err != nil {
		return err
	}
	if err := checkBuffer(buf, q.size); err != nil {
		return err
	}
	st.c.mu.Lock()
	defer st.c.mu.Unlock()
	st.c.waitUntilLocked(timeout, func() bool { return st.deleted || st.count > 0 })
	switch {
	case st.deleted:
		return ErrNullPtr
	case st.count == 0:
		return errFetchTimeout
	}
	st.popLocked(buf)
	st.c.broadcastLocked()
	return nil
}

// FetchFromISR fetches the front message without blocking.
func (q *Queue) FetchFromISR(buf []byte) (woken bool, err error) {
	st, err := q.s.get()
	if err != nil {
		return false, err
	}
	if err := checkBuffer(buf, q.size); err != nil {
		return false, err
	}
	st.c.mu.Lock()
	defer st.c.mu.Unlock()
	if st.deleted || st.count == 0 {
		return false, errQueueEmpty
	}
	st.popLocked(buf)
	woken = st.c.hasWaitersLocked()
	st.c.broadcastLocked()
	return woken, nil
}

// MessagesWaiting returns the number of queued messages.
func (q *Queue) MessagesWaiting() uint32 {
	st, err := q.s.get()
	if err != nil {
		return 0
	}
	st.c.mu.Lock()
	defer st.c.mu.Unlock()
	return st.count
}

// SpacesAvailable returns the number of free slots.
func (q *Queue) SpacesAvailable() uint32 {
	st, err := q.s.get()
	if err != nil {
		return 0
	}
	st.c.mu.Lock()
	defer st.c.mu.Unlock()
	return st.capacity - st.count
}

// Delete deletes the queue; blocked callers fail.
func (q *Queue) Delete() {
	st := q.s.take()
	if st == nil {
		return
	}
	st.c.mu.Lock()
	st.deleted = true
	st.c.broadcastLocked()
	st.c.mu.Unlock()
}
