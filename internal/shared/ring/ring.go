// Package ring provides a fixed-capacity FIFO buffer. Pushing into a full buffer
// evicts the oldest element.
package ring

type Buffer[T any] struct {
	items []T
	head  int
	count int
}

func New[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{items: make([]T, capacity)}
}

func (b *Buffer[T]) Cap() int { return len(b.items) }

func (b *Buffer[T]) Len() int { return b.count }

// Push appends v and returns true if an element was evicted to make room.
func (b *Buffer[T]) Push(v T) bool {
	if b.count == len(b.items) {
		b.items[b.head] = v
		b.head = (b.head + 1) % len(b.items)
		return true
	}
	b.items[(b.head+b.count)%len(b.items)] = v
	b.count++
	return false
}

// PopFront removes the oldest element.
func (b *Buffer[T]) PopFront() (T, bool) {
	var zero T
	if b.count == 0 {
		return zero, false
	}
	v := b.items[b.head]
	b.items[b.head] = zero
	b.head = (b.head + 1) % len(b.items)
	b.count--
	return v, true
}

// At returns the i-th element counted from the oldest. It panics when out of range.
func (b *Buffer[T]) At(i int) T {
	if i < 0 || i >= b.count {
		panic("ring: index out of range")
	}
	return b.items[(b.head+i)%len(b.items)]
}

func (b *Buffer[T]) Front() (T, bool) {
	var zero T
	if b.count == 0 {
		return zero, false
	}
	return b.At(0), true
}

func (b *Buffer[T]) Back() (T, bool) {
	var zero T
	if b.count == 0 {
		return zero, false
	}
	return b.At(b.count - 1), true
}

// Values copies the contents, oldest first.
func (b *Buffer[T]) Values() []T {
	out := make([]T, b.count)
	for i := range out {
		out[i] = b.At(i)
	}
	return out
}

func (b *Buffer[T]) Reset() {
	clear(b.items)
	b.head = 0
	b.count = 0
}
