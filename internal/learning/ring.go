package learning

// Ring is a bounded FIFO log. Once full, each Push evicts the oldest item.
type Ring[T any] struct {
	buf   []T
	start int
	n     int
}

// NewRing returns an empty ring holding at most capacity items. A
// capacity below one is treated as one.
func NewRing[T any](capacity int) *Ring[T] {
	return &Ring[T]{buf: make([]T, max(1, capacity))}
}

func (r *Ring[T]) Push(v T) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = v
		r.n++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

func (r *Ring[T]) Len() int { return r.n }

func (r *Ring[T]) Cap() int { return len(r.buf) }

// Items returns a copy of the contents, oldest first.
func (r *Ring[T]) Items() []T {
	return r.Last(r.n)
}

// Last returns a copy of the k most recent items, oldest first.
func (r *Ring[T]) Last(k int) []T {
	k = min(max(k, 0), r.n)
	out := make([]T, k)
	offset := r.n - k
	for i := range k {
		out[i] = r.buf[(r.start+offset+i)%len(r.buf)]
	}
	return out
}

func (r *Ring[T]) Reset() {
	clear(r.buf)
	r.start, r.n = 0, 0
}
