package shm

import (
	"fmt"

	"github.com/tmineno/pipeit-sub000/internal/wire"
)

// Writer is the single-writer PSHM publish path: it owns the region,
// writes the superblock once at Init, and publishes frames with a
// release-ordered two-step commit (slot.seq, then superblock.write_seq).
// Mirrors pipit::shm::ShmWriter.
type Writer struct {
	region           *Region
	slotCount        uint32
	slotPayloadBytes uint32
	nextSeq          uint64
	currentEpoch     uint32
	valid            bool
}

// Geometry describes the immutable shape contract of a PSHM endpoint,
// negotiated at compile/generation time and never renegotiated except via
// an explicit, validated rebind.
type Geometry struct {
	DType          wire.DType
	Rank           uint8
	Dims           [8]uint32
	TokensPerFrame uint32
	RateHz         float64
	StableIDHash   uint64
}

// Init creates the shm region and writes the superblock. slotPayloadBytes
// must be a multiple of 8 so every atomically-accessed slot field stays
// 8-byte aligned.
func (w *Writer) Init(name string, slotCount, slotPayloadBytes uint32, geom Geometry) error {
	if slotPayloadBytes%8 != 0 {
		return fmt.Errorf("shm writer: slot_payload_bytes=%d is not 8-byte aligned", slotPayloadBytes)
	}

	totalSize := wire.RegionSize(slotCount, slotPayloadBytes)
	region, err := Create(name, int64(totalSize))
	if err != nil {
		return err
	}

	sb := wire.Superblock{
		Version:           wire.PshmVersion,
		HeaderLen:         wire.SuperblockLen,
		DType:             geom.DType,
		Rank:              geom.Rank,
		TokensPerFrame:    geom.TokensPerFrame,
		SlotCount:         slotCount,
		SlotPayloadBytes:  slotPayloadBytes,
		RateHz:            geom.RateHz,
		StableIDHash:      geom.StableIDHash,
		WriterHeartbeatNs: nowNs(),
		Dims:              geom.Dims,
		EndpointNameHash:  wire.HashEndpointName(name),
	}
	enc := sb.Marshal()
	copy(region.Data()[:wire.SuperblockLen], enc[:])

	w.region = region
	w.slotCount = slotCount
	w.slotPayloadBytes = slotPayloadBytes
	w.nextSeq = 1
	w.currentEpoch = 0
	w.valid = true
	return nil
}

// Publish writes one frame to the ring and commits it with the
// release-ordered (slot.seq, then write_seq) two-step publish. It returns
// false if the writer isn't valid or payload exceeds the slot's capacity.
func (w *Writer) Publish(data []byte, tokenCount, flags uint32, iterationIndex uint64) bool {
	if !w.valid {
		return false
	}
	payloadBytes := uint32(len(data))
	if payloadBytes > w.slotPayloadBytes {
		return false
	}

	buf := w.region.Data()
	stride := wire.SlotStride(w.slotPayloadBytes)
	idx := w.nextSeq % uint64(w.slotCount)
	slotOff := int(uint64(wire.SuperblockLen) + idx*stride)
	payloadOff := slotOff + wire.SlotHeaderLen

	copy(buf[payloadOff:payloadOff+len(data)], data)

	hdr := wire.SlotHeader{
		Epoch:          w.currentEpoch,
		Flags:          flags,
		IterationIndex: iterationIndex,
		TimestampNs:    nowNs(),
		TokenCount:     tokenCount,
		PayloadBytes:   payloadBytes,
	}
	enc := hdr.Marshal()
	copy(buf[slotOff:slotOff+wire.SlotHeaderLen], enc[:])

	// Publish: release-store slot.seq, then release-store write_seq.
	storeRelease64(buf, slotOff /* seq is at offset 0 of SlotHeader */, w.nextSeq)
	storeRelease64(buf, wire.SuperblockWriteSeqOffset, w.nextSeq)
	storeRelease64(buf, superblockHeartbeatOffset, nowNs())

	w.nextSeq++
	return true
}

const superblockHeartbeatOffset = 56

// EmitEpochFence publishes an empty epoch-fence slot and advances the
// epoch, used before a rebind so in-flight readers resync cleanly rather
// than mixing data across endpoint generations.
func (w *Writer) EmitEpochFence(iterationIndex uint64) {
	if !w.valid {
		return
	}
	w.Publish(nil, 0, wire.FlagEpochFence, iterationIndex)
	w.currentEpoch++
	storeRelease32(w.region.Data(), wire.SuperblockEpochOffset, w.currentEpoch)
}

// IsValid reports whether the writer has an open, initialized region.
func (w *Writer) IsValid() bool { return w.valid }

// Close releases the writer's region (unlinking the backing shm object,
// since the writer owns it).
func (w *Writer) Close() error {
	w.valid = false
	if w.region == nil {
		return nil
	}
	r := w.region
	w.region = nil
	return r.Close()
}
