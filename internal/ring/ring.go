// Package ring implements the lock-free single-writer, multi-reader ring
// buffer described by the Pipit runtime: one writer goroutine publishes
// fixed-size batches of trivially-copyable elements, and up to R reader
// goroutines each drain at their own pace from an independent tail.
//
// Ordering contract: every store that makes new data visible (head on
// write, a tail on read) is a release; every load that consumes data
// (head on read, a tail on write's slow path) is an acquire. Go's
// sync/atomic operations are sequentially consistent, which is a
// strictly stronger guarantee than acquire/release and therefore safe
// to use here — matching the same atomic.Load/Store idiom the teacher
// uses in modules/pdump/controlplane/ring.go for its shared-memory ring.
package ring

import "sync/atomic"

// cacheLinePad is the padding needed after a single uint64 atomic to fill
// a 64-byte cache line, preventing false sharing between the writer's
// head and a reader's tail (or between two readers' tails).
const cacheLinePad = 64 - 8

// paddedCounter is a cache-line-isolated atomic counter.
type paddedCounter struct {
	value atomic.Uint64
	_     [cacheLinePad]byte
}

// Ring is a single-writer, R-reader lock-free queue of fixed capacity.
// T must be a fixed-size, trivially-copyable type — the ring copies
// elements with the slice-copy builtin, never touching pointers inside T.
//
// Ring is the one implementation for every R >= 1: the slow-path tail-scan
// loop in Write, `for i := 1; i < len(r.tails); i++`, is a no-op when
// len(tails) == 1, so the single-reader case already runs the minimal
// fast path without a separate SPSC type.
type Ring[T any] struct {
	head          paddedCounter
	tails         []paddedCounter
	cachedMinTail uint64 // writer-private; never touched by readers
	capacity      uint64
	buf           []T
}

// New creates a ring of the given capacity with the given number of
// independent reader tails. capacity must be > 0 and readers must be >= 1.
func New[T any](capacity int, readers int) *Ring[T] {
	if capacity <= 0 {
		panic("ring: capacity must be > 0")
	}
	if readers <= 0 {
		panic("ring: must have at least one reader")
	}
	return &Ring[T]{
		tails:    make([]paddedCounter, readers),
		capacity: uint64(capacity),
		buf:      make([]T, capacity),
	}
}

// Write attempts to make n = len(src) elements visible atomically. It
// fails (returns false) without mutating any state if fewer than n slots
// are currently free.
func (r *Ring[T]) Write(src []T) bool {
	n := uint64(len(src))
	h := r.head.value.Load()
	used := h - r.cachedMinTail
	if used > r.capacity || r.capacity-used < n {
		// Slow path: rescan all tails with acquire ordering and refresh
		// the writer-private cache.
		mt := r.tails[0].value.Load()
		for i := 1; i < len(r.tails); i++ {
			if t := r.tails[i].value.Load(); t < mt {
				mt = t
			}
		}
		r.cachedMinTail = mt
		used = h - r.cachedMinTail
		if used > r.capacity || r.capacity-used < n {
			return false
		}
	}
	r.copyIn(h, src)
	r.head.value.Store(h + n)
	return true
}

// Read drains n = len(dst) elements for the given reader index. It fails
// (returns false) without mutating state if the identified reader has
// fewer than n elements available, or if readerIdx is out of range.
func (r *Ring[T]) Read(readerIdx int, dst []T) bool {
	if readerIdx < 0 || readerIdx >= len(r.tails) {
		return false
	}
	n := uint64(len(dst))
	t := r.tails[readerIdx].value.Load()
	h := r.head.value.Load()
	avail := h - t
	if n > avail {
		return false
	}
	r.copyOut(t, dst)
	r.tails[readerIdx].value.Store(t + n)
	return true
}

// Read0 reads from reader 0, the default reader used by single-consumer
// callers.
func (r *Ring[T]) Read0(dst []T) bool {
	return r.Read(0, dst)
}

// Available returns the number of unread elements for the given reader.
func (r *Ring[T]) Available(readerIdx int) uint64 {
	if readerIdx < 0 || readerIdx >= len(r.tails) {
		return 0
	}
	h := r.head.value.Load()
	t := r.tails[readerIdx].value.Load()
	return h - t
}

// copyIn performs the two-phase memcpy-equivalent write split at the
// wrap boundary: start + n may overrun the backing array, so the tail
// of the batch wraps to offset 0.
func (r *Ring[T]) copyIn(head uint64, src []T) {
	n := uint64(len(src))
	if n == 0 {
		return
	}
	start := head % r.capacity
	first := min(n, r.capacity-start)
	copy(r.buf[start:start+first], src[:first])
	if first < n {
		copy(r.buf[:n-first], src[first:])
	}
}

func (r *Ring[T]) copyOut(tail uint64, dst []T) {
	n := uint64(len(dst))
	if n == 0 {
		return
	}
	start := tail % r.capacity
	first := min(n, r.capacity-start)
	copy(dst[:first], r.buf[start:start+first])
	if first < n {
		copy(dst[first:], r.buf[:n-first])
	}
}
