// Package buffer implements the bounded single-writer/single-reader ring
// buffer used by the subscription pipeline, ported from the coalescing
// algorithm of the original Python client's CircularBuffer.
package buffer

import "sync"

// Coalescing is a fixed-capacity ring buffer with one writer and one
// reader. Write never blocks and overwrites the oldest element once full.
// ReadLatestCoalescing additionally discards buffered elements equivalent
// to the newest one, per an equivalence function supplied at construction.
type Coalescing[T any] struct {
	mu         sync.Mutex
	notEmpty   *sync.Cond
	data       []T
	capacity   int
	writeIndex int
	size       int
	equivalent func(latest, current T) bool
	closed     bool
}

// New creates a Coalescing buffer of the given capacity, using equivalent
// to decide which older elements ReadLatestCoalescing discards relative
// to the newest element.
func New[T any](capacity int, equivalent func(latest, current T) bool) *Coalescing[T] {
	if capacity <= 0 {
		panic("buffer: capacity must be positive")
	}
	c := &Coalescing[T]{
		data:       make([]T, capacity),
		capacity:   capacity,
		equivalent: equivalent,
	}
	c.notEmpty = sync.NewCond(&c.mu)
	return c
}

// Write appends x, overwriting the oldest element if full. It never
// blocks and wakes one blocked reader.
func (c *Coalescing[T]) Write(x T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[c.writeIndex] = x
	c.writeIndex = (c.writeIndex + 1) % c.capacity
	if c.size < c.capacity {
		c.size++
	}
	c.notEmpty.Signal()
}

// ReadBlocking pops the oldest element, blocking while the buffer is
// empty. It returns false if the buffer was closed while waiting.
func (c *Coalescing[T]) ReadBlocking() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.size == 0 && !c.closed {
		c.notEmpty.Wait()
	}
	if c.size == 0 {
		var zero T
		return zero, false
	}
	readIndex := (c.writeIndex - c.size + c.capacity) % c.capacity
	v := c.data[readIndex]
	c.size--
	return v, true
}

// ReadNonBlocking pops the oldest element if present, without blocking.
func (c *Coalescing[T]) ReadNonBlocking() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.size == 0 {
		var zero T
		return zero, false
	}
	readIndex := (c.writeIndex - c.size + c.capacity) % c.capacity
	v := c.data[readIndex]
	c.size--
	return v, true
}

// ReadLatestCoalescing blocks until the buffer is non-empty, then returns
// the most recently written element and discards every other buffered
// element equivalent to it (per the constructor's equivalent function),
// compacting the remaining elements in place. It returns false if the
// buffer was closed while waiting.
func (c *Coalescing[T]) ReadLatestCoalescing() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.size == 0 && !c.closed {
		c.notEmpty.Wait()
	}
	if c.size == 0 {
		var zero T
		return zero, false
	}
	latestIndex := (c.writeIndex - 1 + c.capacity) % c.capacity
	latest := c.data[latestIndex]

	readIndex := (c.writeIndex - c.size + c.capacity) % c.capacity
	kept := make([]T, 0, c.size)
	for i := 0; i < c.size; i++ {
		idx := (readIndex + i) % c.capacity
		cur := c.data[idx]
		if idx == latestIndex {
			continue
		}
		if !c.equivalent(latest, cur) {
			kept = append(kept, cur)
		}
	}
	newSize := 0
	for _, v := range kept {
		c.data[newSize] = v
		newSize++
	}
	c.writeIndex = newSize % c.capacity
	c.size = newSize
	return latest, true
}

// Size reports the current occupancy.
func (c *Coalescing[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Capacity reports the configured capacity.
func (c *Coalescing[T]) Capacity() int { return c.capacity }

// IsEmpty reports whether the buffer currently holds no elements.
func (c *Coalescing[T]) IsEmpty() bool { return c.Size() == 0 }

// Close wakes every blocked reader; subsequent blocking reads return
// immediately with ok=false once drained. Close is idempotent.
func (c *Coalescing[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.notEmpty.Broadcast()
}
