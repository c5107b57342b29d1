// Package ringbuffer provides a fixed-capacity circular buffer that evicts
// its oldest element on overflow.
package ringbuffer

// Order selects how Slice lays out the elements
type Order int

const (
	// OldestFirst yields elements in insertion order
	OldestFirst Order = iota
	// NewestFirst yields the most recent element first
	NewestFirst
)

// Ring is not safe for concurrent use; owners guard it.
type Ring[T any] struct {
	items []T
	head  int // index of the oldest element
	size  int
	order Order
}

// New creates a ring holding at most capacity elements. It panics if
// capacity is less than one.
func New[T any](capacity int, order Order) *Ring[T] {
	if capacity < 1 {
		panic("ringbuffer: capacity must be positive")
	}
	return &Ring[T]{items: make([]T, capacity), order: order}
}

// Push appends item. When the ring is full the oldest element is evicted
// and returned with ok set.
func (r *Ring[T]) Push(item T) (evicted T, ok bool) {
	if r.size < len(r.items) {
		r.items[(r.head+r.size)%len(r.items)] = item
		r.size++
		return evicted, false
	}
	evicted = r.items[r.head]
	r.items[r.head] = item
	r.head = (r.head + 1) % len(r.items)
	return evicted, true
}

// Slice returns a copy of the contents in the ring's order
func (r *Ring[T]) Slice() []T {
	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		idx := (r.head + i) % len(r.items)
		if r.order == NewestFirst {
			out[r.size-1-i] = r.items[idx]
		} else {
			out[i] = r.items[idx]
		}
	}
	return out
}

// Newest returns the most recently pushed element
func (r *Ring[T]) Newest() (T, bool) {
	var zero T
	if r.size == 0 {
		return zero, false
	}
	return r.items[(r.head+r.size-1)%len(r.items)], true
}

func (r *Ring[T]) Len() int { return r.size }

func (r *Ring[T]) Cap() int { return len(r.items) }

func (r *Ring[T]) Order() Order { return r.order }

// Reset drops every element and releases references held by the backing array
func (r *Ring[T]) Reset() {
	clear(r.items)
	r.head = 0
	r.size = 0
}
