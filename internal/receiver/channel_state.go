package receiver

import "github.com/tmineno/pipeit-sub000/internal/wire"

// PendingFrame accumulates one in-flight, possibly multi-chunk frame. It
// is owned exclusively by the receive goroutine for a single channel — no
// lock is needed while accumulating, only when the completed frame is
// committed to the shared ChannelState.
type PendingFrame struct {
	Active           bool
	ExpectedSequence uint32
	StartTimestampNs uint64
	NextIteration    uint64
	DType            wire.DType
	SampleRateHz     float64
	Samples          []float32
}

// Reset clears a pending frame back to inactive, discarding any
// accumulated samples.
func (p *PendingFrame) Reset() {
	p.Active = false
	p.Samples = p.Samples[:0]
}

// ChannelRecvState is per-channel state touched only by the receive
// goroutine: the in-progress frame plus inter-frame iteration tracking.
type ChannelRecvState struct {
	Pending           PendingFrame
	IterTracking      bool
	NextExpectedIter  uint64
}

// ChannelState is one channel's committed, lock-protected state: the
// accepted sample history plus integrity counters. Every read/write of a
// ChannelState must hold the owning receiver's mutex.
type ChannelState struct {
	ChanID       uint16
	SampleRateHz float64
	LastSequence uint32
	PacketCount  uint64
	Buffer       *SampleBuffer
	Stats        FrameStats
}

// NewChannelState creates channel state with a sample buffer of the given
// capacity.
func NewChannelState(chanID uint16, bufCapacity int) *ChannelState {
	return &ChannelState{ChanID: chanID, Buffer: NewSampleBuffer(bufCapacity)}
}

// DropReason identifies why a frame was rejected.
type DropReason int

const (
	DropSeqGap DropReason = iota
	DropIterGap
	DropBoundary
	DropMetaMismatch
)

// RecordDrop tallies a frame drop by reason and resets the in-progress
// pending frame. Caller must hold the owning receiver's mutex.
func RecordDrop(ch *ChannelState, rs *ChannelRecvState, reason DropReason) {
	ch.Stats.DroppedFrames++
	switch reason {
	case DropSeqGap:
		ch.Stats.DropSeqGap++
	case DropIterGap:
		ch.Stats.DropIterGap++
	case DropBoundary:
		ch.Stats.DropBoundary++
	case DropMetaMismatch:
		ch.Stats.DropMetaMismatch++
	}
	rs.Pending.Reset()
}
