package shm

import (
	"fmt"

	"github.com/tmineno/pipeit-sub000/internal/wire"
)

// Reader is the multi-reader PSHM consume path: it attaches to an existing
// region, validates the geometry/dtype contract, and consumes frames with
// acquire-ordered loads, detecting overwrite races, epoch fences, and
// falling-behind readers. Mirrors pipit::shm::ShmReader.
type Reader struct {
	region           *Region
	slotCount        uint32
	slotPayloadBytes uint32
	wantSeq          uint64
	knownEpoch       uint32
	valid            bool
}

// Attach opens an existing shm region and validates it against the
// expected geometry contract. A StableIDHash mismatch is tolerated (it's
// expected for cross-process producer/consumer pairs compiled separately)
// and is left for the caller to log if desired; dtype/rank/dims/slot
// geometry mismatches are rejected.
func (r *Reader) Attach(name string, slotCount, slotPayloadBytes uint32, geom Geometry) error {
	if slotPayloadBytes%8 != 0 {
		return fmt.Errorf("shm reader: expected_slot_bytes=%d is not 8-byte aligned", slotPayloadBytes)
	}

	totalSize := wire.RegionSize(slotCount, slotPayloadBytes)
	region, err := Open(name, int64(totalSize))
	if err != nil {
		return err
	}

	sb, ok := wire.UnmarshalSuperblock(region.Data())
	if !ok {
		region.Close()
		return fmt.Errorf("shm reader: invalid magic in %q", name)
	}
	if sb.Version != wire.PshmVersion {
		region.Close()
		return fmt.Errorf("shm reader: unsupported version %d in %q", sb.Version, name)
	}
	if sb.HeaderLen != wire.SuperblockLen {
		region.Close()
		return fmt.Errorf("shm reader: unexpected header_len %d in %q", sb.HeaderLen, name)
	}
	if sb.DType != geom.DType {
		region.Close()
		return fmt.Errorf("shm reader: dtype mismatch in %q (expected %d, got %d)", name, geom.DType, sb.DType)
	}
	if sb.Rank != geom.Rank {
		region.Close()
		return fmt.Errorf("shm reader: rank mismatch in %q (expected %d, got %d)", name, geom.Rank, sb.Rank)
	}
	for i := 0; i < int(geom.Rank); i++ {
		if sb.Dims[i] != geom.Dims[i] {
			region.Close()
			return fmt.Errorf("shm reader: dim[%d] mismatch in %q (expected %d, got %d)", i, name, geom.Dims[i], sb.Dims[i])
		}
	}
	if sb.SlotCount != slotCount {
		region.Close()
		return fmt.Errorf("shm reader: slot_count mismatch in %q (expected %d, got %d)", name, slotCount, sb.SlotCount)
	}
	if sb.SlotPayloadBytes != slotPayloadBytes {
		region.Close()
		return fmt.Errorf("shm reader: slot_payload_bytes mismatch in %q (expected %d, got %d)", name, slotPayloadBytes, sb.SlotPayloadBytes)
	}

	r.region = region
	r.slotCount = slotCount
	r.slotPayloadBytes = slotPayloadBytes
	r.knownEpoch = loadAcquire32(region.Data(), wire.SuperblockEpochOffset)

	ws := loadAcquire64(region.Data(), wire.SuperblockWriteSeqOffset)
	switch {
	case ws >= uint64(slotCount):
		r.wantSeq = ws - uint64(slotCount) + 1
	default:
		r.wantSeq = 1
	}

	r.valid = true
	return nil
}

// StableIDMismatch reports whether the attached region's stable_id_hash
// differs from expected, for callers that want to log the (normal,
// cross-process) mismatch without rejecting the attach.
func (r *Reader) StableIDMismatch(expected uint64) (mismatch bool, got uint64) {
	if !r.valid || expected == 0 {
		return false, 0
	}
	sb, _ := wire.UnmarshalSuperblock(r.region.Data())
	return sb.StableIDHash != expected, sb.StableIDHash
}

// Consume copies the next available slot's payload into out and returns
// the number of bytes copied, or 0 if there is no new data, the reader
// just resynced past a race/epoch boundary, or the reader isn't valid.
func (r *Reader) Consume(out []byte) int {
	if !r.valid {
		return 0
	}

	buf := r.region.Data()
	latest := loadAcquire64(buf, wire.SuperblockWriteSeqOffset)

	if latest < r.wantSeq || r.wantSeq == 0 {
		return 0
	}

	if latest-r.wantSeq >= uint64(r.slotCount) {
		r.wantSeq = latest - uint64(r.slotCount) + 1
	}

	stride := wire.SlotStride(r.slotPayloadBytes)
	idx := r.wantSeq % uint64(r.slotCount)
	slotOff := int(uint64(wire.SuperblockLen) + idx*stride)

	seen := loadAcquire64(buf, slotOff)
	if seen != r.wantSeq {
		r.wantSeq = latest
		return 0
	}

	slot := wire.UnmarshalSlotHeader(buf[slotOff : slotOff+wire.SlotHeaderLen])

	if slot.Flags&wire.FlagEpochFence != 0 {
		r.knownEpoch = slot.Epoch
		r.wantSeq++
		newLatest := loadAcquire64(buf, wire.SuperblockWriteSeqOffset)
		if newLatest > r.wantSeq && newLatest-r.wantSeq >= uint64(r.slotCount) {
			r.wantSeq = newLatest - uint64(r.slotCount) + 1
		}
		return 0
	}

	if slot.Epoch != r.knownEpoch {
		r.knownEpoch = loadAcquire32(buf, wire.SuperblockEpochOffset)
		r.wantSeq = latest
		return 0
	}

	payloadOff := slotOff + wire.SlotHeaderLen
	copyBytes := int(slot.PayloadBytes)
	if copyBytes > len(out) {
		copyBytes = len(out)
	}
	copy(out[:copyBytes], buf[payloadOff:payloadOff+copyBytes])

	r.wantSeq++
	return copyBytes
}

// IsValid reports whether the reader is attached to a validated region.
func (r *Reader) IsValid() bool { return r.valid }

// Close releases the reader's region (a non-owning mapping: it never
// unlinks the backing shm object).
func (r *Reader) Close() error {
	r.valid = false
	if r.region == nil {
		return nil
	}
	reg := r.region
	r.region = nil
	return reg.Close()
}
