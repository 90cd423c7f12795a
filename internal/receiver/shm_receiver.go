package receiver

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tmineno/pipeit-sub000/internal/shm"
)

const shmPollSleep = 10 * time.Microsecond

// ShmChanID derives a deterministic channel id from a PSHM endpoint name,
// so a SHM-backed channel gets a stable identity across runs without
// colliding with the 0..0x8000 range PPKT channel ids typically occupy.
// Mirrors pipscope::shm_chan_id (FNV-1a over the name, folded into
// 0x8001-0xFFFE).
func ShmChanID(name string, salt uint16) uint16 {
	const (
		fnvBasis = 14695981039346656037
		fnvPrime = 1099511628211
	)
	h := uint64(fnvBasis)
	for i := 0; i < len(name); i++ {
		h ^= uint64(name[i])
		h *= fnvPrime
	}
	h ^= uint64(salt)
	h *= fnvPrime
	return uint16(h%0x7ffe) + 0x8001
}

// ShmReceiver monitors one PSHM ring: it probes the region to discover its
// geometry, attaches a shm.Reader, and runs a poll goroutine that converts
// consumed slots to float samples and accumulates them in a SampleBuffer.
// Mirrors pipscope::ShmReceiver.
type ShmReceiver struct {
	name           string
	chanID         uint16
	label          string
	bufferCapacity int

	reader shm.Reader
	info   shm.ProbeInfo

	mu           sync.Mutex
	buffer       *SampleBuffer
	sampleRateHz float64
	slotCount    uint64
	stats        FrameStats

	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	recvSlots atomic.Uint64
	recvBytes atomic.Uint64
}

// NewShmReceiver creates a SHM receiver for the named endpoint with the
// given per-channel sample buffer capacity.
func NewShmReceiver(name string, chanID uint16, bufferCapacity int) *ShmReceiver {
	return &ShmReceiver{
		name:           name,
		chanID:         chanID,
		label:          fmt.Sprintf("shm:%s", name),
		bufferCapacity: bufferCapacity,
		buffer:         NewSampleBuffer(bufferCapacity),
	}
}

// Start probes the named shm region, attaches via shm.Reader, and
// launches the poll goroutine. It returns false if the probe or attach
// fails (the region doesn't exist, or its Superblock is invalid).
func (r *ShmReceiver) Start() bool {
	info, err := shm.Probe(r.name)
	if err != nil {
		return false
	}
	r.info = info

	geom := shm.Geometry{
		DType:  info.DType,
		Rank:   info.Rank,
		Dims:   info.Dims,
		RateHz: info.RateHz,
		// StableIDHash left zero: a monitoring reader doesn't know the
		// writer's compile-time stable id ahead of time, and 0 means
		// "skip that check" by convention (pipscope attaches the same way).
	}
	if err := r.reader.Attach(r.name, info.SlotCount, info.SlotPayloadBytes, geom); err != nil {
		return false
	}

	r.sampleRateHz = info.RateHz
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.running.Store(true)
	go r.pollLoop()
	return true
}

// Stop halts the poll goroutine and closes the reader.
func (r *ShmReceiver) Stop() {
	if !r.running.Load() {
		return
	}
	r.running.Store(false)
	close(r.stopCh)
	<-r.doneCh
	r.reader.Close()
}

// IsRunning reports whether the poll goroutine is active.
func (r *ShmReceiver) IsRunning() bool { return r.running.Load() }

// Name returns the shm endpoint name this receiver monitors.
func (r *ShmReceiver) Name() string { return r.name }

// ChanID returns this receiver's assigned channel id.
func (r *ShmReceiver) ChanID() uint16 { return r.chanID }

// Metrics returns lock-free slot/byte counters.
func (r *ShmReceiver) Metrics() ReceiverMetrics {
	return ReceiverMetrics{RecvPackets: r.recvSlots.Load(), RecvBytes: r.recvBytes.Load()}
}

// Clear discards all buffered samples and resets stats.
func (r *ShmReceiver) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buffer.Clear()
	r.stats = FrameStats{}
	r.slotCount = 0
}

// Snapshot returns a point-in-time copy of this channel's state, with up
// to maxSamples of its most recent samples.
func (r *ShmReceiver) Snapshot(maxSamples int) ChannelSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	samples := make([]float32, maxSamples)
	n := r.buffer.Snapshot(samples, maxSamples)
	return ChannelSnapshot{
		ChanID:       r.chanID,
		SampleRateHz: r.sampleRateHz,
		PacketCount:  r.slotCount,
		Stats:        r.stats,
		Samples:      samples[:n],
		Label:        r.label,
	}
}

func (r *ShmReceiver) pollLoop() {
	defer close(r.doneCh)

	rawBuf := make([]byte, r.info.SlotPayloadBytes)
	convBuf := make([]float32, r.info.SlotPayloadBytes)
	sampleBytes := DtypeSampleBytes(r.info.DType)

	for {
		select {
		case <-r.stopCh:
			return
		default:
		}

		n := r.reader.Consume(rawBuf)
		if n == 0 {
			time.Sleep(shmPollSleep)
			continue
		}

		r.recvSlots.Add(1)
		r.recvBytes.Add(uint64(n))

		if sampleBytes == 0 {
			continue
		}
		sampleCount := uint32(n / sampleBytes)
		if sampleCount == 0 {
			continue
		}
		floatCount := ConvertToFloat(rawBuf[:n], sampleCount, r.info.DType, convBuf)
		if floatCount == 0 {
			continue
		}

		r.mu.Lock()
		r.buffer.Push(convBuf[:floatCount])
		r.stats.AcceptedFrames++
		r.slotCount++
		r.mu.Unlock()
	}
}
