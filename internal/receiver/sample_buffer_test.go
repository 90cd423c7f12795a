package receiver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_SampleBufferPushAndSnapshotUnderCapacity(t *testing.T) {
	b := NewSampleBuffer(4)
	b.Push([]float32{1, 2})
	out := make([]float32, 4)
	n := b.Snapshot(out, 4)
	assert.Equal(t, 2, n)
	assert.Equal(t, []float32{1, 2}, out[:n])
}

func Test_SampleBufferWrapsAndKeepsMostRecent(t *testing.T) {
	b := NewSampleBuffer(3)
	b.Push([]float32{1, 2, 3})
	b.Push([]float32{4, 5})

	out := make([]float32, 3)
	n := b.Snapshot(out, 3)
	assert.Equal(t, []float32{3, 4, 5}, out[:n])
}

func Test_SampleBufferPushLargerThanCapacityKeepsTail(t *testing.T) {
	b := NewSampleBuffer(2)
	b.Push([]float32{1, 2, 3, 4, 5})
	out := make([]float32, 2)
	n := b.Snapshot(out, 2)
	assert.Equal(t, []float32{4, 5}, out[:n])
}

func Test_SampleBufferClear(t *testing.T) {
	b := NewSampleBuffer(4)
	b.Push([]float32{1, 2})
	b.Clear()
	assert.Equal(t, 0, b.Count())
	out := make([]float32, 4)
	assert.Equal(t, 0, b.Snapshot(out, 4))
}
