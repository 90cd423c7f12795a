// Package affinity provides an advisory CPU-core affinity hint for task
// goroutines: a compact bitmap of core indices, generalized from the
// teacher's NUMA-node bitmap (common/go/numa.NUMAMap) to CPU cores, applied
// via sched_setaffinity. The hint never guarantees placement — Go's
// runtime scheduler is free to migrate a goroutine across OS threads
// regardless (spec §5's "Affinity" clause: "The core offers no
// guarantee.").
package affinity

import (
	"iter"
	"math/bits"

	"golang.org/x/sys/unix"
)

// Max is a CoreSet with every bit set.
const Max = CoreSet(^uint32(0))

// CoreSet is a bitmap of up to 32 CPU core indices.
type CoreSet uint32

// NewWithOneBitSet returns a CoreSet with a single bit set at idx.
// Panics if idx >= 32.
func NewWithOneBitSet(idx uint32) CoreSet {
	if idx >= 32 {
		panic("affinity: core index out of range")
	}
	return CoreSet(1 << idx)
}

// NewWithTrailingOnes returns a CoreSet with the first numOnes cores set.
func NewWithTrailingOnes(numOnes int) CoreSet {
	if numOnes <= 0 {
		return CoreSet(0)
	}
	if numOnes >= 32 {
		return Max
	}
	return CoreSet(^uint32(0) >> (32 - numOnes))
}

// IsEmpty reports whether no core is set.
func (s CoreSet) IsEmpty() bool { return s == 0 }

// Len returns the number of cores set.
func (s CoreSet) Len() int { return bits.OnesCount32(uint32(s)) }

// Intersect returns the cores present in both sets.
func (s CoreSet) Intersect(other CoreSet) CoreSet { return s & other }

// Iter yields each set core index, from least to most significant.
func (s CoreSet) Iter() iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		word := uint32(s)
		for word != 0 {
			idx := uint32(bits.TrailingZeros32(word))
			if !yield(idx) {
				return
			}
			word &= word - 1
		}
	}
}

// Apply advises the OS scheduler to prefer the cores in s for the calling
// OS thread. A no-op for an empty set. Errors are returned, never
// panicked: affinity is advisory, so a caller may reasonably choose to log
// and continue rather than abort a task on failure.
//
// Go multiplexes goroutines onto OS threads, so the affinity only sticks
// to one goroutine if its caller has pinned itself to the current thread
// with runtime.LockOSThread() first; a task goroutine wanting a durable
// hint should do that before calling Apply.
func Apply(s CoreSet) error {
	if s.IsEmpty() {
		return nil
	}
	var cpuSet unix.CPUSet
	for idx := range s.Iter() {
		cpuSet.Set(int(idx))
	}
	return unix.SchedSetaffinity(0, &cpuSet)
}
