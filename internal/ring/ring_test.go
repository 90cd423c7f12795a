package ring

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_RingWriteReadSingleReader(t *testing.T) {
	r := New[int](4, 1)

	ok := r.Write([]int{1, 2, 3})
	require.True(t, ok)

	dst := make([]int, 3)
	ok = r.Read(0, dst)
	require.True(t, ok)
	assert.Equal(t, []int{1, 2, 3}, dst)
}

func Test_RingWriteFailsWhenReaderLagsPastCapacity(t *testing.T) {
	r := New[int](4, 1)

	require.True(t, r.Write([]int{1, 2, 3, 4}))
	// reader hasn't consumed anything yet; capacity is full.
	ok := r.Write([]int{5})
	assert.False(t, ok)
}

func Test_RingWrapAround(t *testing.T) {
	r := New[int](4, 1)

	require.True(t, r.Write([]int{1, 2, 3}))
	dst := make([]int, 3)
	require.True(t, r.Read(0, dst))

	require.True(t, r.Write([]int{4, 5, 6}))
	dst = make([]int, 3)
	require.True(t, r.Read(0, dst))
	assert.Equal(t, []int{4, 5, 6}, dst)
}

func Test_RingMultiReaderIndependentProgress(t *testing.T) {
	r := New[int](4, 2)

	require.True(t, r.Write([]int{1, 2}))

	dst0 := make([]int, 2)
	require.True(t, r.Read(0, dst0))
	assert.Equal(t, []int{1, 2}, dst0)

	// reader 1 hasn't consumed yet: its lag still reflects both elements.
	assert.Equal(t, uint64(2), r.Available(1))

	dst1 := make([]int, 2)
	require.True(t, r.Read(1, dst1))
	assert.Equal(t, dst0, dst1)
}

func Test_RingConcurrentSingleWriterMultiReader(t *testing.T) {
	const n = 2000
	r := New[int](64, 2)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		i := 0
		for i < n {
			if r.Write([]int{i}) {
				i++
			}
		}
	}()

	for reader := 0; reader < 2; reader++ {
		reader := reader
		wg.Add(1)
		go func() {
			defer wg.Done()
			dst := make([]int, 1)
			seen := 0
			for seen < n {
				if r.Read(reader, dst) {
					seen++
				}
			}
		}()
	}

	wg.Wait()
}

func Test_NewPanicsOnInvalidArgs(t *testing.T) {
	assert.Panics(t, func() { New[int](0, 1) })
	assert.Panics(t, func() { New[int](4, 0) })
}
