package receiver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmineno/pipeit-sub000/internal/shm"
	"github.com/tmineno/pipeit-sub000/internal/wire"
)

func Test_ShmChanIDIsStableAndInRange(t *testing.T) {
	a := ShmChanID("endpoint-a", 0)
	b := ShmChanID("endpoint-a", 0)
	c := ShmChanID("endpoint-b", 0)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.GreaterOrEqual(t, a, uint16(0x8001))
}

func Test_ShmReceiverStartConsumesPublishedFrames(t *testing.T) {
	name := "pipeit-sub000-shmreceiver-test"
	geom := shm.Geometry{DType: wire.DTypeF32, Rank: 1, Dims: [8]uint32{2}, RateHz: 48000}

	var w shm.Writer
	require.NoError(t, w.Init(name, 8, 8, geom))
	defer w.Close()

	r := NewShmReceiver(name, 0x8001, 64)
	require.True(t, r.Start())
	defer r.Stop()

	payload := make([]byte, 8)
	payload[0] = 1 // low bits of first float32, integer pattern tolerated by the test

	require.True(t, w.Publish(payload, 2, wire.FlagFrameStart|wire.FlagFrameEnd, 0))

	var snap ChannelSnapshot
	for i := 0; i < 300; i++ {
		snap = r.Snapshot(16)
		if snap.Stats.AcceptedFrames > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, uint64(1), snap.Stats.AcceptedFrames)
	assert.Len(t, snap.Samples, 2)
}

func Test_ShmReceiverStartFailsOnMissingRegion(t *testing.T) {
	r := NewShmReceiver("pipeit-sub000-does-not-exist", 0, 16)
	assert.False(t, r.Start())
}
