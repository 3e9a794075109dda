package cache

import "sync"

// Ring is a fixed-capacity rolling buffer. Push overwrites the oldest value
// once the buffer is full. Safe for concurrent use.
type Ring[T any] struct {
	mu    sync.RWMutex
	items []T
	next  int
	full  bool
}

func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring[T]{items: make([]T, capacity)}
}

func (r *Ring[T]) Push(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[r.next] = v
	r.next = (r.next + 1) % len(r.items)
	if r.next == 0 {
		r.full = true
	}
}

// Len reports the number of values currently held.
func (r *Ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.full {
		return len(r.items)
	}
	return r.next
}

// Recent returns up to n values, newest first. n <= 0 returns everything.
func (r *Ring[T]) Recent(n int) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	size := r.next
	if r.full {
		size = len(r.items)
	}
	if n <= 0 || n > size {
		n = size
	}

	out := make([]T, 0, n)
	for i := 1; i <= n; i++ {
		idx := (r.next - i + len(r.items)) % len(r.items)
		out = append(out, r.items[idx])
	}
	return out
}

// Latest returns the most recently pushed value.
func (r *Ring[T]) Latest() (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var zero T
	if r.next == 0 && !r.full {
		return zero, false
	}
	idx := (r.next - 1 + len(r.items)) % len(r.items)
	return r.items[idx], true
}
