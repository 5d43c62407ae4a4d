package noc

import "sync/atomic"

// Ring is a fixed-capacity circular queue of words for exactly one producer
// and one consumer.
//
// One slot is always left unused so that head == tail means empty and
// (tail+1) mod size == head means full; a ring of size C therefore holds at
// most C-1 words. Each index is written only by its owner (tail by the
// producer, head by the consumer) and published with an atomic store, so the
// consumer never observes a slot before the producer has filled it.
type Ring struct {
	head atomic.Uint32 // Next slot to pop, owned by the consumer
	tail atomic.Uint32 // Next slot to fill, owned by the producer
	buf  []uint32
}

// NewRing creates a ring with size slots. size must be at least 2.
func NewRing(size int) *Ring {
	if size < 2 {
		panic("noc: ring size must be at least 2")
	}
	return &Ring{buf: make([]uint32, size)}
}

// Push appends w. It returns false without modifying the ring when full.
// Only the producer may call Push.
func (r *Ring) Push(w uint32) bool {
	tail := r.tail.Load()
	next := r.next(tail)
	if next == r.head.Load() {
		return false
	}
	r.buf[tail] = w
	r.tail.Store(next)
	return true
}

// Pop removes and returns the oldest word. ok is false when the ring is empty.
// Only the consumer may call Pop.
func (r *Ring) Pop() (w uint32, ok bool) {
	head := r.head.Load()
	if head == r.tail.Load() {
		return 0, false
	}
	w = r.buf[head]
	r.head.Store(r.next(head))
	return w, true
}

// Len returns the number of words currently queued.
func (r *Ring) Len() int {
	size := uint32(len(r.buf))
	return int((r.tail.Load() + size - r.head.Load()) % size)
}

// Cap returns the maximum number of words the ring can hold.
func (r *Ring) Cap() int {
	return len(r.buf) - 1
}

// Free returns the number of words that can be pushed before the ring is full.
func (r *Ring) Free() int {
	return r.Cap() - r.Len()
}

// IsEmpty reports whether the ring holds no words.
func (r *Ring) IsEmpty() bool {
	return r.head.Load() == r.tail.Load()
}

func (r *Ring) next(i uint32) uint32 {
	i++
	if i == uint32(len(r.buf)) {
		return 0
	}
	return i
}
