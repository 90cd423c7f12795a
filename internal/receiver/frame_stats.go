package receiver

// FrameStats counts accepted/dropped frames and the specific integrity
// violation that caused each drop, for a single channel.
type FrameStats struct {
	AcceptedFrames  uint64
	DroppedFrames   uint64
	DropSeqGap      uint64 // sequence discontinuity
	DropIterGap     uint64 // iteration_index discontinuity
	DropBoundary    uint64 // missing start/end boundary
	DropMetaMismatch uint64 // dtype/sample_rate/start timestamp changed mid-frame
	InterFrameGaps  uint64 // kernel-level packet loss between frames
}

// ChannelSnapshot is a point-in-time, lock-safe copy of one channel's
// state, suitable for rendering or export.
type ChannelSnapshot struct {
	ChanID       uint16
	SampleRateHz float64
	PacketCount  uint64
	Stats        FrameStats
	Samples      []float32
	Label        string // human-readable label; empty -> "Ch %d"
}

// ReceiverMetrics are receiver-level counters, incremented with atomics so
// they can be read concurrently with the receive loop.
type ReceiverMetrics struct {
	RecvPackets uint64
	RecvBytes   uint64
}
