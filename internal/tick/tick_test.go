package tick

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_GeneratorFixedSpinAtOneKHz(t *testing.T) {
	g := New(1000, true, 0)

	start := time.Now()
	overruns := 0
	for i := 0; i < 1000; i++ {
		g.Wait()
		if g.Overrun() {
			overruns++
		}
	}
	elapsed := time.Since(start)

	assert.InDelta(t, time.Second, elapsed, float64(150*time.Millisecond))
	assert.Less(t, overruns, 100)
}

func Test_GeneratorAdaptiveSpinStaysWithinBounds(t *testing.T) {
	g := New(2000, true, Adaptive)

	for i := 0; i < 200; i++ {
		g.Wait()
		st := g.CurrentSpinThreshold()
		assert.GreaterOrEqual(t, st, minSpin)
		assert.LessOrEqual(t, st, maxSpin)
	}
	assert.True(t, g.IsAdaptive())
}

func Test_GeneratorOverrunWhenDeadlineAlreadyPast(t *testing.T) {
	g := New(1, false, 0) // 1 Hz: first deadline is a full second out.
	g.ResetPhase()
	time.Sleep(2 * time.Millisecond)
	// Force the deadline into the past directly rather than sleeping a
	// full second in a unit test.
	g.next = time.Now().Add(-time.Millisecond)
	g.Wait()
	assert.True(t, g.Overrun())
	assert.Greater(t, g.MissedCount(), int64(-1))
}

func Test_StatsAverageLatency(t *testing.T) {
	var s Stats
	assert.Equal(t, int64(0), s.AvgLatencyNs())

	s.RecordTick(10 * time.Millisecond)
	s.RecordTick(20 * time.Millisecond)
	require.Equal(t, uint64(2), s.Ticks)
	assert.Equal(t, int64(15*time.Millisecond), s.AvgLatencyNs())
	assert.Equal(t, int64(20*time.Millisecond), s.MaxLatencyNs)

	s.RecordMiss()
	assert.Equal(t, uint64(1), s.Missed)
}
