// Package rt holds the realtime plumbing of the engine: lock-free queues,
// snapshot publishing, render metrics and the render-thread discipline
// helpers (memory locking, scheduling priority, denormal control).
package rt

import "sync/atomic"

// Ring is a bounded single-producer/single-consumer queue. Push is wait-free
// for the producer, Pop for the consumer; neither ever blocks or allocates.
// One slot is kept empty to distinguish full from empty, so a Ring created
// with capacity n holds at most n elements.
type Ring[T any] struct {
	buf     []T
	head    atomic.Uint64 // next write index, owned by the producer
	tail    atomic.Uint64 // next read index, owned by the consumer
	dropped atomic.Uint64
}

func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity+1)}
}

func (r *Ring[T]) next(i uint64) uint64 {
	i++
	if i >= uint64(len(r.buf)) {
		return 0
	}
	return i
}

// Push appends v and reports whether there was room.
func (r *Ring[T]) Push(v T) bool {
	head := r.head.Load()
	n := r.next(head)
	if n == r.tail.Load() {
		return false
	}
	r.buf[head] = v
	r.head.Store(n)
	return true
}

// PushOrDrop appends v, counting the message as dropped when the ring is
// full. Overflow never blocks; the count is surfaced as telemetry.
func (r *Ring[T]) PushOrDrop(v T) bool {
	if r.Push(v) {
		return true
	}
	r.dropped.Add(1)
	return false
}

// Pop removes and returns the oldest element.
func (r *Ring[T]) Pop() (v T, ok bool) {
	tail := r.tail.Load()
	if tail == r.head.Load() {
		return v, false
	}
	v = r.buf[tail]
	var zero T
	r.buf[tail] = zero
	r.tail.Store(r.next(tail))
	return v, true
}

// Drain pops up to len(dst) elements into dst and returns the count.
func (r *Ring[T]) Drain(dst []T) int {
	n := 0
	for n < len(dst) {
		v, ok := r.Pop()
		if !ok {
			break
		}
		dst[n] = v
		n++
	}
	return n
}

// Len reports the number of buffered elements. It is only approximate when
// both sides are active.
func (r *Ring[T]) Len() int {
	head := r.head.Load()
	tail := r.tail.Load()
	if head >= tail {
		return int(head - tail)
	}
	return int(head + uint64(len(r.buf)) - tail)
}

// Dropped returns the number of messages rejected by PushOrDrop so far.
func (r *Ring[T]) Dropped() uint64 { return r.dropped.Load() }
