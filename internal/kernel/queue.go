package kernel

// queue is a FIFO ring of fixed-size items copied by value.
type queue struct {
	length    uint32
	itemSize  uint32
	storage   []byte
	head      uint32
	count     uint32
	deleted   bool
	senders   waitList
	receivers waitList
}

func (q *queue) slot(i uint32) []byte {
	off := ((q.head + i) % q.length) * q.itemSize
	return q.storage[off : off+q.itemSize]
}

// pushLocked copies item into the tail slot. Short items are zero padded,
// long ones truncated.
func (q *queue) pushLocked(item []byte) {
	s := q.slot(q.count)
	clear(s)
	copy(s, item)
	q.count++
	q.receivers.wakeAll()
}

func (q *queue) popLocked(buf []byte) {
	copy(buf, q.slot(0))
	q.head = (q.head + 1) % q.length
	q.count--
	q.senders.wakeAll()
}

// QueueCreate creates a queue of length items of itemSize bytes. It returns
// the zero handle when length is zero or the heap is exhausted.
func (k *Kernel) QueueCreate(length, itemSize uint32) Handle {
	if length == 0 {
		return 0
	}
	size := queueSize + uint64(length)*uint64(itemSize)
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.allocLocked(size) {
		return 0
	}
	return k.register(&queue{
		length:   length,
		itemSize: itemSize,
		storage:  make([]byte, int(length)*int(itemSize)),
	})
}

// QueueSend copies item to the back of the queue, waiting up to timeout
// ticks for a free slot.
func (k *Kernel) QueueSend(h Handle, item []byte, timeout Tick) bool {
	t := k.current()
	q := lookup[queue](k, h)
	if q == nil {
		return false
	}
	k.mu.Lock()
	k.checkpointLocked(t)
	if !k.block(t, &q.senders, timeout, func() bool { return q.deleted || q.count < q.length }) || q.deleted {
		k.mu.Unlock()
		return false
	}
	q.pushLocked(item)
	k.mu.Unlock()
	return true
}

// QueueSendFromISR copies item to the back of the queue without blocking.
func (k *Kernel) QueueSendFromISR(h Handle, item []byte) (ok, woken bool) {
	q := lookup[queue](k, h)
	if q == nil {
		return false, false
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if q.deleted || q.count == q.length {
		return false, false
	}
	woken = q.receivers.outranks(k.interruptedPriority())
	q.pushLocked(item)
	return true, woken
}

// QueueReceive copies the front item into buf and removes it, waiting up to
// timeout ticks for one to arrive.
func (k *Kernel) QueueReceive(h Handle, buf []byte, timeout Tick) bool {
	t := k.current()
	q := lookup[queue](k, h)
	if q == nil {
		return false
	}
	k.mu.Lock()
	k.checkpointLocked(t)
	if !k.block(t, &q.receivers, timeout, func() bool { return q.deleted || q.count > 0 }) || q.deleted {
		k.mu.Unlock()
		return false
	}
	q.popLocked(buf)
	k.mu.Unlock()
	return true
}

// QueueReceiveFromISR receives the front item without blocking.
func (k *Kernel) QueueReceiveFromISR(h Handle, buf []byte) (ok, woken bool) {
	q := lookup[queue](k, h)
	if q == nil {
		return false, false
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if q.deleted || q.count == 0 {
		return false, false
	}
	woken = q.senders.outranks(k.interruptedPriority())
	q.popLocked(buf)
	return true, woken
}

// QueueMessagesWaiting returns the number of items queued.
func (k *Kernel) QueueMessagesWaiting(h Handle) uint32 {
	q := lookup[queue](k, h)
	if q == nil {
		return 0
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	return q.count
}

// QueueSpacesAvailable returns the number of free slots.
func (k *Kernel) QueueSpacesAvailable(h Handle) uint32 {
	q := lookup[queue](k, h)
	if q == nil {
		return 0
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	return q.length - q.count
}

// QueueReset empties the queue and releases blocked senders.
func (k *Kernel) QueueReset(h Handle) bool {
	q := lookup[queue](k, h)
	if q == nil {
		return false
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	q.head, q.count = 0, 0
	q.senders.wakeAll()
	return true
}

// QueueDelete deletes a queue. Tasks blocked on it fail.
func (k *Kernel) QueueDelete(h Handle) bool {
	q := lookup[queue](k, h)
	if q == nil {
		return false
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if q.deleted {
		return false
	}
	q.deleted = true
	q.senders.wakeAll()
	q.receivers.wakeAll()
	k.unregister(h)
	k.freeLocked(queueSize + uint64(q.length)*uint64(q.itemSize))
	return true
}
