//go:build rtos

package osal

// StreamBuffer is a byte stream from one writer to one reader.
type StreamBuffer struct {
	h handle
}

// NewStreamBuffer creates a stream buffer of size bytes. A reader waiting
// on an empty buffer is released once triggerLevel bytes are available.
func NewStreamBuffer(size, triggerLevel int) (*StreamBuffer, error) {
	if size <= 0 {
		return nil, Unhandled("stream buffer of zero bytes")
	}
	h := sys().StreamBufferCreate(size, triggerLevel)
	if h == 0 {
		return nil, ErrOutOfMemory
	}
	sb := &StreamBuffer{}
	sb.h.set(h)
	return sb, nil
}

// Send waits up to timeout for room for all of data, then writes as much
// as fits. It fails with ErrTimeout only when nothing was written.
func (sb *StreamBuffer) Send(data []byte, timeout Tick) (int, error) {
	h, err := sb.h.get()
	if err != nil {
		return 0, err
	}
	n := sys().StreamBufferSend(h, data, timeout)
	if n == 0 && len(data) > 0 {
		return 0, ErrTimeout
	}
	return n, nil
}

// SendFromISR writes as much of data as fits without blocking.
func (sb *StreamBuffer) SendFromISR(data []byte) (n int, woken bool, err error) {
	h, err := sb.h.get()
	if err != nil {
		return 0, false, err
	}
	n, woken = sys().StreamBufferSendFromISR(h, data)
	return n, woken, nil
}

// Receive reads into buf. On an empty buffer it waits up to timeout for the
// trigger level, then returns what arrived; ErrTimeout means nothing did.
func (sb *StreamBuffer) Receive(buf []byte, timeout Tick) (int, error) {
	h, err := sb.h.get()
	if err != nil {
		return 0, err
	}
	n := sys().StreamBufferReceive(h, buf, timeout)
	if n == 0 && len(buf) > 0 {
		return 0, ErrTimeout
	}
	return n, nil
}

// ReceiveFromISR reads what is available without blocking.
func (sb *StreamBuffer) ReceiveFromISR(buf []byte) (n int, woken bool, err error) {
	h, err := sb.h.get()
	if err != nil {
		return 0, false, err
	}
	n, woken = sys().StreamBufferReceiveFromISR(h, buf)
	return n, woken, nil
}

// BytesAvailable returns the number of buffered bytes.
func (sb *StreamBuffer) BytesAvailable() int {
	h, err := sb.h.get()
	if err != nil {
		return 0
	}
	return sys().StreamBufferBytesAvailable(h)
}

// SpacesAvailable returns the number of free bytes.
func (sb *StreamBuffer) SpacesAvailable() int {
	h, err := sb.h.get()
	if err != nil {
		return 0
	}
	return sys().StreamBufferSpacesAvailable(h)
}

// Reset empties the buffer. It fails while a thread is blocked on it.
func (sb *StreamBuffer) Reset() error {
	h, err := sb.h.get()
	if err != nil {
		return err
	}
	if !sys().StreamBufferReset(h) {
		return Unhandled("stream buffer reset while in use")
	}
	return nil
}

// Delete deletes the stream buffer.
func (sb *StreamBuffer) Delete() {
	if h := sb.h.take(); h != 0 {
		sys().StreamBufferDelete(h)
	}
}
