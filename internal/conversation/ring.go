package conversation

// Ring is a fixed-capacity FIFO ring. Pushing onto a full ring evicts the
// oldest element; input is never rejected. An optional eviction callback
// observes each evicted element, and Evictions counts total evictions so
// callers can reconcile a snapshot taken earlier with the live ring.
type Ring[T any] struct {
	buf       []T
	head      int
	size      int
	onEvict   func(T)
	evictions uint64
}

// NewRing creates a ring holding at most capacity elements. Capacity must
// be positive.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		panic("conversation: ring capacity must be positive")
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// OnEvict registers a callback invoked for every element pushed out of the
// ring. Passing nil removes the callback.
func (r *Ring[T]) OnEvict(fn func(T)) {
	r.onEvict = fn
}

// Push appends v, evicting the oldest element if the ring is full.
func (r *Ring[T]) Push(v T) {
	if r.size == len(r.buf) {
		evicted := r.buf[r.head]
		r.buf[r.head] = v
		r.head = (r.head + 1) % len(r.buf)
		r.evictions++
		if r.onEvict != nil {
			r.onEvict(evicted)
		}
		return
	}

	r.buf[(r.head+r.size)%len(r.buf)] = v
	r.size++
}

// Len returns the number of elements currently held.
func (r *Ring[T]) Len() int { return r.size }

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Evictions returns the total number of elements evicted since creation.
func (r *Ring[T]) Evictions() uint64 { return r.evictions }

// Items returns a copy of the contents in oldest-first order.
func (r *Ring[T]) Items() []T {
	out := make([]T, 0, r.size)
	for i := 0; i < r.size; i++ {
		out = append(out, r.buf[(r.head+i)%len(r.buf)])
	}
	return out
}

// Last returns a copy of the newest n elements in oldest-first order. If n
// exceeds the current length the whole contents are returned.
func (r *Ring[T]) Last(n int) []T {
	if n >= r.size {
		return r.Items()
	}
	out := make([]T, 0, n)
	for i := r.size - n; i < r.size; i++ {
		out = append(out, r.buf[(r.head+i)%len(r.buf)])
	}
	return out
}

// DropFront removes the oldest n elements without invoking the eviction
// callback. Dropping more than Len removes everything.
func (r *Ring[T]) DropFront(n int) {
	if n <= 0 {
		return
	}
	if n > r.size {
		n = r.size
	}
	var zero T
	for i := 0; i < n; i++ {
		r.buf[(r.head+i)%len(r.buf)] = zero
	}
	r.head = (r.head + n) % len(r.buf)
	r.size -= n
}

// Clear removes all elements.
func (r *Ring[T]) Clear() {
	r.DropFront(r.size)
}
