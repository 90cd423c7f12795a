package receiver

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmineno/pipeit-sub000/internal/dgram"
	"github.com/tmineno/pipeit-sub000/internal/wire"
)

func sendFrameF32(t *testing.T, sender *dgram.Sender, chanID uint16, seq uint32, iter uint64, samples []float32, first, last bool) {
	t.Helper()
	hdr := wire.NewPpktHeader(wire.DTypeF32, chanID)
	hdr.Sequence = seq
	hdr.IterationIndex = iter
	hdr.SampleCount = uint32(len(samples))
	hdr.PayloadBytes = uint32(len(samples)) * 4
	hdr.SampleRateHz = 48000
	var flags uint8
	if first {
		flags |= wire.FlagFirstFrame
	}
	if last {
		flags |= wire.FlagLastFrame
	}
	hdr.Flags = flags

	payload := make([]byte, len(samples)*4)
	for i, s := range samples {
		bits := math.Float32bits(s)
		payload[i*4+0] = byte(bits)
		payload[i*4+1] = byte(bits >> 8)
		payload[i*4+2] = byte(bits >> 16)
		payload[i*4+3] = byte(bits >> 24)
	}

	pkt := make([]byte, wire.PpktHeaderLen+len(payload))
	enc := hdr.Marshal()
	copy(pkt, enc[:])
	copy(pkt[wire.PpktHeaderLen:], payload)

	require.True(t, sender.Send(pkt))
}

func Test_PpktReceiverAssemblesSingleChunkFrame(t *testing.T) {
	r := NewPpktReceiver(64)
	addr := "127.0.0.1:18601"
	require.True(t, r.Start(addr))
	defer r.Stop()

	tx := dgram.NewSender(addr)
	require.True(t, tx.Valid())
	defer tx.Close()

	sendFrameF32(t, tx, 7, 1, 0, []float32{1, 2, 3, 4}, true, true)

	waitForSnapshot(t, r, func(snaps []ChannelSnapshot) bool {
		return len(snaps) > 0 && snaps[0].Stats.AcceptedFrames == 1
	})

	snaps := r.Snapshot(16)
	require.Len(t, snaps, 1)
	assert.Equal(t, uint16(7), snaps[0].ChanID)
	assert.Equal(t, uint64(1), snaps[0].Stats.AcceptedFrames)
	assert.Equal(t, []float32{1, 2, 3, 4}, snaps[0].Samples)
}

func Test_PpktReceiverAssemblesMultiChunkFrame(t *testing.T) {
	r := NewPpktReceiver(64)
	addr := "127.0.0.1:18604"
	require.True(t, r.Start(addr))
	defer r.Stop()

	tx := dgram.NewSender(addr)
	require.True(t, tx.Valid())
	defer tx.Close()

	sendFrameF32(t, tx, 3, 100, 0, []float32{1, 2}, true, false)
	sendFrameF32(t, tx, 3, 101, 2, []float32{3, 4}, false, true)

	waitForSnapshot(t, r, func(snaps []ChannelSnapshot) bool {
		return len(snaps) > 0 && snaps[0].Stats.AcceptedFrames == 1
	})

	snaps := r.Snapshot(16)
	require.Len(t, snaps, 1)
	assert.Equal(t, []float32{1, 2, 3, 4}, snaps[0].Samples)
}

func Test_PpktReceiverDropsSequenceGap(t *testing.T) {
	r := NewPpktReceiver(64)
	addr := "127.0.0.1:18602"
	require.True(t, r.Start(addr))
	defer r.Stop()

	tx := dgram.NewSender(addr)
	require.True(t, tx.Valid())
	defer tx.Close()

	sendFrameF32(t, tx, 1, 10, 0, []float32{1, 2}, true, false)
	sendFrameF32(t, tx, 1, 12, 2, []float32{3, 4}, false, true) // sequence should have been 11

	waitForSnapshot(t, r, func(snaps []ChannelSnapshot) bool {
		return len(snaps) > 0 && snaps[0].Stats.DropSeqGap == 1
	})
}

func Test_PpktReceiverDropsMissingBoundary(t *testing.T) {
	r := NewPpktReceiver(64)
	addr := "127.0.0.1:18603"
	require.True(t, r.Start(addr))
	defer r.Stop()

	tx := dgram.NewSender(addr)
	require.True(t, tx.Valid())
	defer tx.Close()

	sendFrameF32(t, tx, 2, 0, 0, []float32{1, 2}, false, true) // no start, no pending frame active

	waitForSnapshot(t, r, func(snaps []ChannelSnapshot) bool {
		return len(snaps) > 0 && snaps[0].Stats.DropBoundary == 1
	})
}

func waitForSnapshot(t *testing.T, r *PpktReceiver, pred func([]ChannelSnapshot) bool) {
	t.Helper()
	for i := 0; i < 300; i++ {
		if pred(r.Snapshot(16)) {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for expected receiver state")
}
