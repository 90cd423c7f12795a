package affinity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_CoreSetConstructors(t *testing.T) {
	s := NewWithOneBitSet(3)
	assert.Equal(t, CoreSet(1<<3), s)
	assert.Equal(t, 1, s.Len())

	s = NewWithTrailingOnes(4)
	assert.Equal(t, CoreSet(0b1111), s)
	assert.Equal(t, 4, s.Len())

	assert.Equal(t, CoreSet(0), NewWithTrailingOnes(0))
	assert.Equal(t, Max, NewWithTrailingOnes(40))
}

func Test_CoreSetIntersectAndIter(t *testing.T) {
	a := NewWithOneBitSet(1).Intersect(NewWithOneBitSet(1))
	assert.Equal(t, CoreSet(1<<1), a)

	s := NewWithOneBitSet(0) | NewWithOneBitSet(2) | NewWithOneBitSet(4)
	var seen []uint32
	for idx := range s.Iter() {
		seen = append(seen, idx)
	}
	assert.Equal(t, []uint32{0, 2, 4}, seen)
}

func Test_CoreSetIsEmpty(t *testing.T) {
	assert.True(t, CoreSet(0).IsEmpty())
	assert.False(t, NewWithOneBitSet(0).IsEmpty())
}

func Test_ApplyNoOpOnEmptySet(t *testing.T) {
	assert.NoError(t, Apply(CoreSet(0)))
}

func Test_NewWithOneBitSetPanicsOutOfRange(t *testing.T) {
	assert.Panics(t, func() { NewWithOneBitSet(32) })
}
