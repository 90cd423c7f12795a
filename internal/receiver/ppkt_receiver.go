package receiver

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/tmineno/pipeit-sub000/internal/dgram"
	"github.com/tmineno/pipeit-sub000/internal/wire"
)

const (
	maxPacketBytes      = 65536
	maxConvertedSamples = 8192
	pollSleep           = 10 * time.Microsecond
)

// PpktReceiver runs a background goroutine that receives PPKT datagrams,
// reassembles them into frames, and accumulates accepted samples per
// channel. Safe for concurrent Snapshot/Metrics calls while running.
//
// The original runtime's recv_loop has a Linux-specific poll()+recvmmsg()
// batch-drain fast path and a portable recvfrom+sleep fallback. This port
// uses the portable path unconditionally: recvmmsg needs a raw socket fd,
// which doesn't compose with net.PacketConn's portable address handling
// (see DESIGN.md).
type PpktReceiver struct {
	receiver *dgram.Receiver

	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	mu              sync.Mutex
	channels        map[uint16]*ChannelState
	bufferCapacity  int

	recvPackets atomic.Uint64
	recvBytes   atomic.Uint64

	recvStateReset atomic.Bool
}

// NewPpktReceiver creates a receiver with the given per-channel sample
// buffer capacity.
func NewPpktReceiver(bufferCapacity int) *PpktReceiver {
	return &PpktReceiver{
		channels:       make(map[uint16]*ChannelState),
		bufferCapacity: bufferCapacity,
	}
}

// Start binds addr and launches the receive goroutine. It returns false
// if the address is invalid or the socket can't be bound.
func (r *PpktReceiver) Start(addr string) bool {
	rc := dgram.NewReceiver(addr)
	if !rc.Valid() {
		return false
	}
	r.receiver = rc
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.running.Store(true)
	go r.recvLoop()
	return true
}

// Stop halts the receive goroutine and closes the socket.
func (r *PpktReceiver) Stop() {
	if !r.running.Load() {
		return
	}
	r.running.Store(false)
	close(r.stopCh)
	<-r.doneCh
	if r.receiver != nil {
		r.receiver.Close()
	}
}

// IsRunning reports whether the receive goroutine is active.
func (r *PpktReceiver) IsRunning() bool { return r.running.Load() }

// Metrics returns lock-free receiver-level packet/byte counters.
func (r *PpktReceiver) Metrics() ReceiverMetrics {
	return ReceiverMetrics{
		RecvPackets: r.recvPackets.Load(),
		RecvBytes:   r.recvBytes.Load(),
	}
}

// ClearChannels discards all accumulated channel state, used after a
// reconnect to avoid mixing stale data with a new stream.
func (r *PpktReceiver) ClearChannels() {
	r.mu.Lock()
	r.channels = make(map[uint16]*ChannelState)
	r.mu.Unlock()
	r.recvStateReset.Store(true)
}

// Snapshot returns a point-in-time copy of every channel's state, with up
// to maxSamples of its most recent samples.
func (r *PpktReceiver) Snapshot(maxSamples int) []ChannelSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ChannelSnapshot, 0, len(r.channels))
	for _, ch := range r.channels {
		samples := make([]float32, maxSamples)
		n := ch.Buffer.Snapshot(samples, maxSamples)
		out = append(out, ChannelSnapshot{
			ChanID:       ch.ChanID,
			SampleRateHz: ch.SampleRateHz,
			PacketCount:  ch.PacketCount,
			Stats:        ch.Stats,
			Samples:      samples[:n],
		})
	}
	return out
}

func (r *PpktReceiver) getOrCreateChannel(chanID uint16) *ChannelState {
	ch, ok := r.channels[chanID]
	if !ok {
		ch = NewChannelState(chanID, r.bufferCapacity)
		r.channels[chanID] = ch
	}
	return ch
}

func (r *PpktReceiver) recvLoop() {
	defer close(r.doneCh)

	buf := make([]byte, maxPacketBytes)
	convBuf := make([]float32, maxConvertedSamples)
	recvState := make(map[uint16]*ChannelRecvState)

	for {
		select {
		case <-r.stopCh:
			return
		default:
		}

		if r.recvStateReset.CompareAndSwap(true, false) {
			recvState = make(map[uint16]*ChannelRecvState)
		}

		n, err := r.receiver.Recv(buf)
		if err != nil {
			return
		}
		if n == 0 {
			time.Sleep(pollSleep)
			continue
		}

		r.processPacket(buf[:n], convBuf, recvState)
	}
}

func (r *PpktReceiver) processPacket(pkt []byte, convBuf []float32, recvState map[uint16]*ChannelRecvState) {
	r.recvPackets.Add(1)
	r.recvBytes.Add(uint64(len(pkt)))

	hdr, payload, ok := decodePacket(pkt)
	if !ok {
		return
	}

	converted := decodeSamples(payload, hdr, convBuf)
	if converted == 0 {
		return
	}

	rs, ok := recvState[hdr.ChanID]
	if !ok {
		rs = &ChannelRecvState{}
		recvState[hdr.ChanID] = rs
	}
	r.assembleFrame(hdr, convBuf[:converted], rs)
}

func decodePacket(pkt []byte) (wire.PpktHeader, []byte, bool) {
	if len(pkt) < wire.PpktHeaderLen {
		return wire.PpktHeader{}, nil, false
	}
	hdr, ok := wire.UnmarshalPpktHeader(pkt)
	if !ok || !hdr.Validate() {
		return wire.PpktHeader{}, nil, false
	}
	payloadAvail := len(pkt) - wire.PpktHeaderLen
	if uint32(payloadAvail) < hdr.PayloadBytes {
		return wire.PpktHeader{}, nil, false
	}
	return hdr, pkt[wire.PpktHeaderLen : wire.PpktHeaderLen+int(hdr.PayloadBytes)], true
}

func decodeSamples(payload []byte, hdr wire.PpktHeader, convBuf []float32) int {
	bounded := hdr.SampleCount
	if int(bounded) > len(convBuf) {
		bounded = uint32(len(convBuf))
	}
	return ConvertToFloatBounded(payload, bounded, hdr.DType, convBuf)
}

// assembleFrame ports pipscope::PpktReceiver::assemble_frame verbatim in
// logic: it accumulates chunks lock-free in rs, and briefly locks mutex
// only to touch shared ChannelState.
func (r *PpktReceiver) assembleFrame(hdr wire.PpktHeader, samples []float32, rs *ChannelRecvState) {
	isStart := hdr.Flags&flagFrameStartBit != 0
	isEnd := hdr.Flags&flagFrameEndBit != 0

	if isStart {
		if rs.Pending.Active {
			r.mu.Lock()
			ch := r.getOrCreateChannel(hdr.ChanID)
			ch.PacketCount++
			RecordDrop(ch, rs, DropBoundary)
			r.mu.Unlock()
		}

		if hdr.Flags&wire.FlagFirstFrame != 0 {
			rs.IterTracking = false
		}
		hasGap := rs.IterTracking && hdr.IterationIndex != rs.NextExpectedIter

		rs.Pending.Active = true
		rs.Pending.ExpectedSequence = hdr.Sequence + 1
		rs.Pending.StartTimestampNs = hdr.TimestampNs
		rs.Pending.NextIteration = hdr.IterationIndex + uint64(len(samples))
		rs.Pending.DType = hdr.DType
		rs.Pending.SampleRateHz = hdr.SampleRateHz
		rs.Pending.Samples = append(rs.Pending.Samples[:0], samples...)

		r.mu.Lock()
		ch := r.getOrCreateChannel(hdr.ChanID)
		ch.SampleRateHz = hdr.SampleRateHz
		ch.LastSequence = hdr.Sequence
		ch.PacketCount++
		if hasGap {
			ch.Stats.InterFrameGaps++
			ch.Buffer.Clear()
		}
		if isEnd {
			ch.Stats.AcceptedFrames++
			ch.Buffer.Push(rs.Pending.Samples)
			rs.Pending.Reset()
			rs.IterTracking = true
			rs.NextExpectedIter = hdr.IterationIndex + uint64(len(samples))
		}
		r.mu.Unlock()
		return
	}

	if !rs.Pending.Active {
		r.mu.Lock()
		ch := r.getOrCreateChannel(hdr.ChanID)
		ch.PacketCount++
		RecordDrop(ch, rs, DropBoundary)
		r.mu.Unlock()
		return
	}

	if hdr.Sequence != rs.Pending.ExpectedSequence {
		r.mu.Lock()
		ch := r.getOrCreateChannel(hdr.ChanID)
		ch.PacketCount++
		RecordDrop(ch, rs, DropSeqGap)
		r.mu.Unlock()
		return
	}

	if hdr.IterationIndex != rs.Pending.NextIteration {
		r.mu.Lock()
		ch := r.getOrCreateChannel(hdr.ChanID)
		ch.PacketCount++
		RecordDrop(ch, rs, DropIterGap)
		r.mu.Unlock()
		return
	}

	if hdr.TimestampNs != rs.Pending.StartTimestampNs || hdr.DType != rs.Pending.DType || hdr.SampleRateHz != rs.Pending.SampleRateHz {
		r.mu.Lock()
		ch := r.getOrCreateChannel(hdr.ChanID)
		ch.PacketCount++
		RecordDrop(ch, rs, DropMetaMismatch)
		r.mu.Unlock()
		return
	}

	rs.Pending.Samples = append(rs.Pending.Samples, samples...)
	rs.Pending.ExpectedSequence = hdr.Sequence + 1
	rs.Pending.NextIteration = hdr.IterationIndex + uint64(len(samples))

	if isEnd {
		r.mu.Lock()
		ch := r.getOrCreateChannel(hdr.ChanID)
		ch.SampleRateHz = hdr.SampleRateHz
		ch.LastSequence = hdr.Sequence
		ch.PacketCount++
		ch.Stats.AcceptedFrames++
		ch.Buffer.Push(rs.Pending.Samples)
		rs.IterTracking = true
		rs.NextExpectedIter = rs.Pending.NextIteration
		r.mu.Unlock()
		rs.Pending.Reset()
	} else {
		r.mu.Lock()
		ch := r.getOrCreateChannel(hdr.ChanID)
		ch.LastSequence = hdr.Sequence
		ch.PacketCount++
		r.mu.Unlock()
	}
}

// flagFrameStartBit/flagFrameEndBit alias wire.FlagFirstFrame/FlagLastFrame
// under the names used by the original frame-boundary logic: a "start of
// frame" boundary is the same bit as "first chunk of a send", and likewise
// for end/last — PPKT reuses one flag byte for both purposes.
const (
	flagFrameStartBit = wire.FlagFirstFrame
	flagFrameEndBit   = wire.FlagLastFrame
)
