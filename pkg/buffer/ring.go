package buffer

import "sync"

// Ring is a fixed-capacity sliding window over a stream of values. Writes
// past capacity overwrite the oldest values, so the window always holds the
// most recent data. The wake detector keeps its one-second sample window in
// a Ring; the status display keeps recent log lines in one. Safe for
// concurrent use.
type Ring[T any] struct {
	mu    sync.Mutex
	buf   []T
	start int
	n     int
}

// NewRing creates a ring holding at most capacity values.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Write appends p to the window, evicting the oldest values once the
// capacity is reached. It never blocks and never fails; the signature
// matches io.Writer-style callers.
func (r *Ring[T]) Write(p []T) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// A write at least as large as the window replaces it outright.
	if len(p) >= len(r.buf) {
		copy(r.buf, p[len(p)-len(r.buf):])
		r.start, r.n = 0, len(r.buf)
		return len(p), nil
	}
	for _, v := range p {
		r.push(v)
	}
	return len(p), nil
}

// Add appends a single value, evicting the oldest if the window is full.
func (r *Ring[T]) Add(v T) {
	r.mu.Lock()
	r.push(v)
	r.mu.Unlock()
}

func (r *Ring[T]) push(v T) {
	r.buf[(r.start+r.n)%len(r.buf)] = v
	if r.n < len(r.buf) {
		r.n++
	} else {
		r.start = (r.start + 1) % len(r.buf)
	}
}

// Len returns the number of values currently held.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

// Snapshot returns a copy of the window contents, oldest first.
func (r *Ring[T]) Snapshot() []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]T, r.n)
	head := r.start + r.n
	if head > len(r.buf) {
		head = len(r.buf)
	}
	k := copy(out, r.buf[r.start:head])
	copy(out[k:], r.buf[:r.n-k])
	return out
}

// Reset discards the window contents.
func (r *Ring[T]) Reset() {
	r.mu.Lock()
	r.start, r.n = 0, 0
	r.mu.Unlock()
}
