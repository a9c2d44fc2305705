package kernel

// streamBuffer is a byte ring for one writer and one reader.
type streamBuffer struct {
	buf       []byte
	head      int
	count     int
	trigger   int
	deleted   bool
	senders   waitList
	receivers waitList
}

func (sb *streamBuffer) space() int {
	return len(sb.buf) - sb.count
}

func (sb *streamBuffer) writeLocked(p []byte) int {
	n := min(len(p), sb.space())
	for i := range n {
		sb.buf[(sb.head+sb.count+i)%len(sb.buf)] = p[i]
	}
	sb.count += n
	if n > 0 {
		sb.receivers.wakeAll()
	}
	return n
}

func (sb *streamBuffer) readLocked(p []byte) int {
	n := min(len(p), sb.count)
	for i := range n {
		p[i] = sb.buf[(sb.head+i)%len(sb.buf)]
	}
	sb.head = (sb.head + n) % len(sb.buf)
	sb.count -= n
	if n > 0 {
		sb.senders.wakeAll()
	}
	return n
}

// StreamBufferCreate creates a stream buffer of size bytes. A blocked
// reader is released once trigger bytes are available; trigger is clamped
// to 1..size.
func (k *Kernel) StreamBufferCreate(size, trigger int) Handle {
	if size <= 0 {
		return 0
	}
	trigger = max(1, min(trigger, size))
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.allocLocked(streamBufferSize + uint64(size) + 1) {
		return 0
	}
	return k.register(&streamBuffer{buf: make([]byte, size), trigger: trigger})
}

// StreamBufferSend waits up to timeout ticks for room for all of data, or
// for an empty buffer when data is larger than the buffer, then writes as
// many bytes as fit. It returns the number written.
func (k *Kernel) StreamBufferSend(h Handle, data []byte, timeout Tick) int {
	t := k.current()
	sb := lookup[streamBuffer](k, h)
	if sb == nil || len(data) == 0 {
		return 0
	}
	need := min(len(data), len(sb.buf))
	k.mu.Lock()
	k.checkpointLocked(t)
	k.block(t, &sb.senders, timeout, func() bool { return sb.deleted || sb.space() >= need })
	n := 0
	if !sb.deleted {
		n = sb.writeLocked(data)
	}
	k.mu.Unlock()
	return n
}

// StreamBufferSendFromISR writes as many bytes of data as fit.
func (k *Kernel) StreamBufferSendFromISR(h Handle, data []byte) (n int, woken bool) {
	sb := lookup[streamBuffer](k, h)
	if sb == nil {
		return 0, false
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if sb.deleted {
		return 0, false
	}
	n = sb.writeLocked(data)
	return n, sb.count >= sb.trigger && sb.receivers.outranks(k.interruptedPriority())
}

// StreamBufferReceive reads up to len(p) bytes. When the buffer is empty it
// waits up to timeout ticks for the trigger level to be reached, then reads
// whatever arrived.
func (k *Kernel) StreamBufferReceive(h Handle, p []byte, timeout Tick) int {
	t := k.current()
	sb := lookup[streamBuffer](k, h)
	if sb == nil || len(p) == 0 {
		return 0
	}
	k.mu.Lock()
	k.checkpointLocked(t)
	if sb.count == 0 {
		k.block(t, &sb.receivers, timeout, func() bool { return sb.deleted || sb.count >= sb.trigger })
	}
	n := 0
	if !sb.deleted {
		n = sb.readLocked(p)
	}
	k.mu.Unlock()
	return n
}

// StreamBufferReceiveFromISR reads up to len(p) bytes without blocking.
func (k *Kernel) StreamBufferReceiveFromISR(h Handle, p []byte) (n int, woken bool) {
	sb := lookup[streamBuffer](k, h)
	if sb == nil {
		return 0, false
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if sb.deleted {
		return 0, false
	}
	n = sb.readLocked(p)
	return n, n > 0 && sb.senders.outranks(k.interruptedPriority())
}

// StreamBufferBytesAvailable returns the number of bytes buffered.
func (k *Kernel) StreamBufferBytesAvailable(h Handle) int {
	sb := lookup[streamBuffer](k, h)
	if sb == nil {
		return 0
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	return sb.count
}

// StreamBufferSpacesAvailable returns the number of free bytes.
func (k *Kernel) StreamBufferSpacesAvailable(h Handle) int {
	sb := lookup[streamBuffer](k, h)
	if sb == nil {
		return 0
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	return sb.space()
}

// StreamBufferReset empties the buffer. It fails while a task is blocked on
// the buffer.
func (k *Kernel) StreamBufferReset(h Handle) bool {
	sb := lookup[streamBuffer](k, h)
	if sb == nil {
		return false
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if sb.senders.len() > 0 || sb.receivers.len() > 0 {
		return false
	}
	sb.head, sb.count = 0, 0
	return true
}

// StreamBufferDelete deletes a stream buffer.
func (k *Kernel) StreamBufferDelete(h Handle) bool {
	sb := lookup[streamBuffer](k, h)
	if sb == nil {
		return false
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if sb.deleted {
		return false
	}
	sb.deleted = true
	sb.senders.wakeAll()
	sb.receivers.wakeAll()
	k.unregister(h)
	k.freeLocked(streamBufferSize + uint64(len(sb.buf)) + 1)
	return true
}
