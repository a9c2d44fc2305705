package kernel

// semaphore is a counting semaphore, or a recursive mutex when mutex is set.
type semaphore struct {
	mutex   bool
	count   uint32
	max     uint32
	holder  *tcb
	depth   uint32
	deleted bool
	takers  waitList
}

// isrHolder holds mutexes taken from interrupt context.
var isrHolder = &tcb{name: "ISR"}

func (k *Kernel) semaphoreCreate(s *semaphore) Handle {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.allocLocked(semaphoreSize) {
		return 0
	}
	return k.register(s)
}

// SemaphoreCreateCounting creates a counting semaphore. It returns the zero
// handle when max is zero, initial exceeds max, or the heap is exhausted.
func (k *Kernel) SemaphoreCreateCounting(max, initial uint32) Handle {
	if max == 0 || initial > max {
		return 0
	}
	return k.semaphoreCreate(&semaphore{count: initial, max: max})
}

// SemaphoreCreateBinary creates a binary semaphore, initially empty.
func (k *Kernel) SemaphoreCreateBinary() Handle {
	return k.semaphoreCreate(&semaphore{max: 1})
}

// SemaphoreCreateRecursiveMutex creates a mutex its holder may take again.
// Each take must be matched by a give.
func (k *Kernel) SemaphoreCreateRecursiveMutex() Handle {
	return k.semaphoreCreate(&semaphore{mutex: true, max: 1})
}

// SemaphoreTake takes a semaphore, or a mutex for the calling task, waiting
// up to timeout ticks.
func (k *Kernel) SemaphoreTake(h Handle, timeout Tick) bool {
	t := k.current()
	s := lookup[semaphore](k, h)
	if s == nil {
		return false
	}
	k.mu.Lock()
	k.checkpointLocked(t)
	ok := s.takeLocked(k, t, timeout)
	k.mu.Unlock()
	return ok
}

func (s *semaphore) takeLocked(k *Kernel, t *tcb, timeout Tick) bool {
	if s.mutex {
		if s.holder == t {
			s.depth++
			return true
		}
		if !k.block(t, &s.takers, timeout, func() bool { return s.deleted || s.holder == nil }) || s.deleted {
			return false
		}
		s.holder, s.depth = t, 1
		return true
	}
	if !k.block(t, &s.takers, timeout, func() bool { return s.deleted || s.count > 0 }) || s.deleted {
		return false
	}
	s.count--
	return true
}

// SemaphoreGive gives a semaphore back. For a mutex only the holder may
// give, and the mutex is released when the outermost take is matched.
func (k *Kernel) SemaphoreGive(h Handle) bool {
	t := k.current()
	s := lookup[semaphore](k, h)
	if s == nil {
		return false
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	return s.giveLocked(t)
}

func (s *semaphore) giveLocked(t *tcb) bool {
	if s.deleted {
		return false
	}
	if s.mutex {
		if s.holder != t {
			return false
		}
		if s.depth--; s.depth == 0 {
			s.holder = nil
			s.takers.wakeAll()
		}
		return true
	}
	if s.count >= s.max {
		return false
	}
	s.count++
	s.takers.wakeAll()
	return true
}

// SemaphoreTakeFromISR takes a semaphore without blocking.
func (k *Kernel) SemaphoreTakeFromISR(h Handle) (ok, woken bool) {
	s := lookup[semaphore](k, h)
	if s == nil {
		return false, false
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if s.deleted {
		return false, false
	}
	if s.mutex {
		if s.holder != nil && s.holder != isrHolder {
			return false, false
		}
		s.holder = isrHolder
		s.depth++
		return true, false
	}
	if s.count == 0 {
		return false, false
	}
	s.count--
	return true, false
}

// SemaphoreGiveFromISR gives a semaphore from interrupt context. woken
// reports that a task waiting on it outranks the interrupted task.
func (k *Kernel) SemaphoreGiveFromISR(h Handle) (ok, woken bool) {
	s := lookup[semaphore](k, h)
	if s == nil {
		return false, false
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if !s.giveLocked(isrHolder) {
		return false, false
	}
	return true, s.takers.outranks(k.interruptedPriority())
}

// SemaphoreGetCount returns the count of a semaphore. A mutex counts one
// while free.
func (k *Kernel) SemaphoreGetCount(h Handle) uint32 {
	s := lookup[semaphore](k, h)
	if s == nil {
		return 0
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if s.mutex {
		if s.holder == nil {
			return 1
		}
		return 0
	}
	return s.count
}

// SemaphoreDelete deletes a semaphore. Tasks blocked on it fail their take.
func (k *Kernel) SemaphoreDelete(h Handle) bool {
	s := lookup[semaphore](k, h)
	if s == nil {
		return false
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if s.deleted {
		return false
	}
	s.deleted = true
	s.takers.wakeAll()
	k.unregister(h)
	k.freeLocked(semaphoreSize)
	return true
}
