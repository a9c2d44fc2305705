//go:build rtos

package osal

// Queue is a FIFO of fixed-size messages, copied in and out by value.
type Queue struct {
	h    handle
	size uint32
}

// NewQueue creates a queue of capacity messages of messageSize bytes.
func NewQueue(capacity, messageSize uint32) (*Queue, error) {
	if capacity == 0 {
		return nil, Unhandled("queue capacity of zero")
	}
	h := sys().QueueCreate(capacity, messageSize)
	if h == 0 {
		return nil, ErrOutOfMemory
	}
	q := &Queue{size: messageSize}
	q.h.set(h)
	return q, nil
}

// MessageSize returns the size of one message.
func (q *Queue) MessageSize() uint32 {
	return q.size
}

// Post copies item to the back of the queue, waiting up to timeout for
// room. Items shorter than the message size are zero padded.
func (q *Queue) Post(item []byte, timeout Tick) error {
	h, err := q.h.get()
	if err != nil {
		return err
	}
	if err := checkItem(item, q.size); err != nil {
		return err
	}
	if !sys().QueueSend(h, item, timeout) {
		return errPostTimeout
	}
	return nil
}

// PostFromISR posts item without blocking.
func (q *Queue) PostFromISR(item []byte) (woken bool, err error) {
	h, err := q.h.get()
	if err != nil {
		return false, err
	}
	if err := checkItem(item, q.size); err != nil {
		return false, err
	}
	ok, woken := sys().QueueSendFromISR(h, item)
	if !ok {
		return false, ErrQueueFull
	}
	return woken, nil
}

// Fetch moves the front message into buf, waiting up to timeout for one.
func (q *Queue) Fetch(buf []byte, timeout Tick) error {
	h, err := q.h.get()
	if err != nil {
		return err
	}
	if err := checkBuffer(buf, q.size); err != nil {
		return err
	}
	if !sys().QueueReceive(h, buf, timeout) {
		return errFetchTimeout
	}
	return nil
}

// FetchFromISR fetches the front message without blocking.
func (q *Queue) FetchFromISR(buf []byte) (woken bool, err error) {
	h, err := q.h.get()
	if err != nil {
		return false, err
	}
	if err := checkBuffer(buf, q.size); err != nil {
		return false, err
	}
	ok, woken := sys().QueueReceiveFromISR(h, buf)
	if !ok {
		return false, errQueueEmpty
	}
	return woken, nil
}

// MessagesWaiting returns the number of queued messages.
func (q *Queue) MessagesWaiting() uint32 {
	h, err := q.h.get()
	if err != nil {
		return 0
	}
	return sys().QueueMessagesWaiting(h)
}

// SpacesAvailable returns the number of free slots.
func (q *Queue) SpacesAvailable() uint32 {
	h, err := q.h.get()
	if err != nil {
		return 0
	}
	return sys().QueueSpacesAvailable(h)
}

// Delete deletes the queue; blocked callers fail.
func (q *Queue) Delete() {
	if h := q.h.take(); h != 0 {
		sys().QueueDelete(h)
	}
}
