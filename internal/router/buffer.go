package router

import (
	"context"
	"sync"
)

// growthPercent is the fill level at which a buffer below its limit doubles.
const growthPercent = 70

// GrowableBuffer is a thread-safe FIFO ring that doubles its storage when it
// reaches 70% full, up to a fixed limit. Once at the limit a Send is dropped
// and counted rather than blocking the producer.
type GrowableBuffer[T any] struct {
	mu     sync.Mutex
	ring   []T
	head   int // next read
	size   int
	limit  int
	closed bool

	notify chan struct{} // at most one pending wakeup
	done   chan struct{} // closed by Close

	sent    int64
	taken   int64
	dropped int64
	resizes int
}

// NewGrowableBuffer returns a buffer with initial slots that may grow to limit.
// A limit below initial is raised to initial.
func NewGrowableBuffer[T any](initial, limit int) *GrowableBuffer[T] {
	initial = max(initial, 1)
	limit = max(limit, initial)
	return &GrowableBuffer[T]{
		ring:   make([]T, initial),
		limit:  limit,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Send appends item. It reports false when the buffer is closed, or full at
// its limit, in which case the item is counted as dropped.
func (b *GrowableBuffer[T]) Send(item T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}
	if b.size+1 >= max(len(b.ring)*growthPercent/100, 1) && len(b.ring) < b.limit {
		b.resize(min(len(b.ring)*2, b.limit))
	}
	if b.size == len(b.ring) {
		b.dropped++
		return false
	}

	b.ring[(b.head+b.size)%len(b.ring)] = item
	b.size++
	b.sent++

	select {
	case b.notify <- struct{}{}:
	default:
	}
	return true
}

// Wait blocks until the buffer holds an item. It returns false once the
// buffer is closed and empty, or ctx is done.
func (b *GrowableBuffer[T]) Wait(ctx context.Context) bool {
	for {
		b.mu.Lock()
		size, closed := b.size, b.closed
		b.mu.Unlock()

		if size > 0 {
			return true
		}
		if closed {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-b.notify:
		case <-b.done:
		}
	}
}

// Receive blocks for the oldest item. ok is false when the buffer is closed
// and empty, or ctx is done.
func (b *GrowableBuffer[T]) Receive(ctx context.Context) (item T, ok bool) {
	for b.Wait(ctx) {
		if item, ok = b.TryReceive(); ok {
			return item, true
		}
	}
	return item, false
}

// TryReceive pops the oldest item without blocking.
func (b *GrowableBuffer[T]) TryReceive() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var zero T
	if b.size == 0 {
		return zero, false
	}
	item := b.pop()
	return item, true
}

// DrainTo removes up to n items, oldest first. n <= 0 drains everything.
func (b *GrowableBuffer[T]) DrainTo(n int) []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n <= 0 || n > b.size {
		n = b.size
	}
	if n == 0 {
		return nil
	}
	out := make([]T, n)
	for i := range out {
		out[i] = b.pop()
	}
	return out
}

// Close stops intake. Queued items stay readable.
func (b *GrowableBuffer[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.done)
	}
}

func (b *GrowableBuffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Cap returns the current number of slots, which never exceeds the limit.
func (b *GrowableBuffer[T]) Cap() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ring)
}

func (b *GrowableBuffer[T]) Stats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BufferStats{
		Count:    b.size,
		Capacity: len(b.ring),
		Limit:    b.limit,
		Sent:     b.sent,
		Taken:    b.taken,
		Dropped:  b.dropped,
		Resizes:  b.resizes,
	}
}

// BufferStats is a point-in-time view of a GrowableBuffer.
type BufferStats struct {
	Count    int
	Capacity int
	Limit    int
	Sent     int64
	Taken    int64
	Dropped  int64
	Resizes  int
}

// pop removes the head item. Must be called with mu held and size > 0.
func (b *GrowableBuffer[T]) pop() T {
	var zero T
	item := b.ring[b.head]
	b.ring[b.head] = zero
	b.head = (b.head + 1) % len(b.ring)
	b.size--
	b.taken++
	return item
}

// resize moves the queued items to a ring of n slots. Must be called with mu held.
func (b *GrowableBuffer[T]) resize(n int) {
	ring := make([]T, n)
	first := copy(ring, b.ring[b.head:min(b.head+b.size, len(b.ring))])
	copy(ring[first:], b.ring[:b.size-first])
	b.ring = ring
	b.head = 0
	b.resizes++
}
