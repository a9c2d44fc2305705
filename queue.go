package osal

import (
	"encoding"
	"fmt"
)

var (
	errPostTimeout  = fmt.Errorf("%w: %w", ErrTimeout, ErrQueueSendTimeout)
	errFetchTimeout = fmt.Errorf("%w: %w", ErrTimeout, ErrQueueReceiveTimeout)
	errQueueEmpty   = fmt.Errorf("%w: queue empty", ErrTimeout)
)

func checkItem(item []byte, size uint32) error {
	if uint32(len(item)) > size {
		return Unhandled(fmt.Sprintf("item of %d bytes exceeds message size %d", len(item), size))
	}
	return nil
}

func checkBuffer(buf []byte, size uint32) error {
	if uint32(len(buf)) < size {
		return Unhandled(fmt.Sprintf("buffer of %d bytes is shorter than message size %d", len(buf), size))
	}
	return nil
}

// Streamable is a message type that QueueStreamed can carry. Len returns
// the encoded size, the same for every value of the type.
type Streamable[T any] interface {
	*T
	Len() int
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

// QueueStreamed is a Queue of values of T, encoded to fixed-size messages.
type QueueStreamed[T any, PT Streamable[T]] struct {
	q *Queue
}

// NewQueueStreamed creates a queue of capacity values of T.
func NewQueueStreamed[T any, PT Streamable[T]](capacity uint32) (*QueueStreamed[T, PT], error) {
	size := PT(new(T)).Len()
	if size <= 0 {
		return nil, Unhandled(fmt.Sprintf("message size %d", size))
	}
	q, err := NewQueue(capacity, uint32(size))
	if err != nil {
		return nil, err
	}
	return &QueueStreamed[T, PT]{q: q}, nil
}

func (s *QueueStreamed[T, PT]) encode(v *T) ([]byte, error) {
	b, err := PT(v).MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConversion, err)
	}
	if uint32(len(b)) > s.q.MessageSize() {
		return nil, fmt.Errorf("%w: encoded %d bytes, message size %d", ErrConversion, len(b), s.q.MessageSize())
	}
	return b, nil
}

func (s *QueueStreamed[T, PT]) decode(b []byte) (T, error) {
	var v T
	if err := PT(&v).UnmarshalBinary(b); err != nil {
		return v, fmt.Errorf("%w: %v", ErrConversion, err)
	}
	return v, nil
}

// Post encodes v and posts it, waiting up to timeout for room.
func (s *QueueStreamed[T, PT]) Post(v *T, timeout Tick) error {
	b, err := s.encode(v)
	if err != nil {
		return err
	}
	return s.q.Post(b, timeout)
}

// PostFromISR encodes v and posts it without blocking.
func (s *QueueStreamed[T, PT]) PostFromISR(v *T) (woken bool, err error) {
	b, err := s.encode(v)
	if err != nil {
		return false, err
	}
	return s.q.PostFromISR(b)
}

// Fetch waits up to timeout for a message and decodes it.
func (s *QueueStreamed[T, PT]) Fetch(timeout Tick) (T, error) {
	buf := make([]byte, s.q.MessageSize())
	if err := s.q.Fetch(buf, timeout); err != nil {
		var zero T
		return zero, err
	}
	return s.decode(buf)
}

// FetchFromISR fetches and decodes a message without blocking.
func (s *QueueStreamed[T, PT]) FetchFromISR() (v T, woken bool, err error) {
	buf := make([]byte, s.q.MessageSize())
	if woken, err = s.q.FetchFromISR(buf); err != nil {
		return v, false, err
	}
	v, err = s.decode(buf)
	return v, woken, err
}

// MessagesWaiting returns the number of queued values.
func (s *QueueStreamed[T, PT]) MessagesWaiting() uint32 {
	return s.q.MessagesWaiting()
}

// Delete deletes the queue.
func (s *QueueStreamed[T, PT]) Delete() {
	s.q.Delete()
}
