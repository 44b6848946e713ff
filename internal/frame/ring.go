package frame

import "sync/atomic"

// cacheLine is the typical x86-64 cache line size used for padding.
const cacheLine = 64

// Ring is a lock-free single-producer single-consumer ring buffer.
// Size is a power of two for fast bitwise modulo. Push must only be called
// from one goroutine and Pop from one (possibly different) goroutine.
type Ring[T any] struct {
	buf  []T
	mask uint64

	// Separate cache lines to prevent false sharing between producer and consumer.
	_pad0 [cacheLine]byte
	head  atomic.Uint64 // written by producer
	_pad1 [cacheLine]byte
	tail  atomic.Uint64 // written by consumer
	_pad2 [cacheLine]byte

	overflow atomic.Uint64
}

// NewRing creates a ring buffer. capacity is rounded up to the next power of
// two, minimum 2.
func NewRing[T any](capacity int) *Ring[T] {
	n := nextPow2(capacity)
	if n < 2 {
		n = 2
	}
	return &Ring[T]{
		buf:  make([]T, n),
		mask: uint64(n - 1),
	}
}

// Push appends v. Returns false if the buffer is full (v is NOT written in
// that case). Non-blocking.
func (r *Ring[T]) Push(v T) bool {
	head := r.head.Load()
	tail := r.tail.Load()

	if head-tail >= uint64(len(r.buf)) {
		r.overflow.Add(1)
		return false
	}

	r.buf[head&r.mask] = v
	r.head.Store(head + 1)
	return true
}

// Pop retrieves the oldest value. Returns false if the buffer is empty.
// Non-blocking.
func (r *Ring[T]) Pop() (T, bool) {
	var zero T
	tail := r.tail.Load()
	head := r.head.Load()

	if tail >= head {
		return zero, false
	}

	i := tail & r.mask
	v := r.buf[i]
	r.buf[i] = zero // drop references held by the slot
	r.tail.Store(tail + 1)
	return v, true
}

// Len returns the current number of items in the buffer.
func (r *Ring[T]) Len() int {
	return int(r.head.Load() - r.tail.Load())
}

// Cap returns the buffer capacity.
func (r *Ring[T]) Cap() int {
	return len(r.buf)
}

// Overflow returns the total number of dropped pushes due to a full buffer.
func (r *Ring[T]) Overflow() uint64 {
	return r.overflow.Load()
}

// nextPow2 returns the smallest power of 2 >= n.
func nextPow2(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
