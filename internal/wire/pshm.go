package wire

import (
	"encoding/binary"
	"hash/fnv"
	"math"
)

// PSHM magic/version/layout constants.
const (
	PshmVersion              = 1
	SuperblockLen            = 128
	SlotHeaderLen            = 64
	SuperblockWriteSeqOffset = 48
	SuperblockEpochOffset    = 40
	SuperblockNameHashOffset = 96
)

// PshmMagic is the fixed 4-byte PSHM superblock magic.
var PshmMagic = [4]byte{'P', 'S', 'H', 'M'}

// Slot flag bits.
const (
	FlagFrameStart uint32 = 1 << 0
	FlagFrameEnd   uint32 = 1 << 1
	FlagEpochFence uint32 = 1 << 2
)

// Superblock is the first 128 bytes of a PSHM shared-memory region. Epoch,
// WriteSeq and WriterHeartbeatNs are the only fields mutated after Init —
// all are updated with atomic stores via the shm package, never through
// Marshal/Unmarshal directly on a live mapping.
type Superblock struct {
	Version           uint8
	HeaderLen         uint8
	Flags             uint16
	DType             DType
	Rank              uint8
	Reserved0         uint16
	TokensPerFrame    uint32
	SlotCount         uint32
	SlotPayloadBytes  uint32
	RateHz            float64
	StableIDHash      uint64
	Epoch             uint32
	Reserved1         uint32
	WriteSeq          uint64
	WriterHeartbeatNs uint64
	Dims              [8]uint32
	EndpointNameHash  uint64
}

// Marshal encodes the superblock into exactly SuperblockLen little-endian
// bytes.
func (s *Superblock) Marshal() [SuperblockLen]byte {
	var buf [SuperblockLen]byte
	copy(buf[0:4], PshmMagic[:])
	buf[4] = s.Version
	buf[5] = s.HeaderLen
	binary.LittleEndian.PutUint16(buf[6:8], s.Flags)
	buf[8] = byte(s.DType)
	buf[9] = s.Rank
	binary.LittleEndian.PutUint16(buf[10:12], s.Reserved0)
	binary.LittleEndian.PutUint32(buf[12:16], s.TokensPerFrame)
	binary.LittleEndian.PutUint32(buf[16:20], s.SlotCount)
	binary.LittleEndian.PutUint32(buf[20:24], s.SlotPayloadBytes)
	binary.LittleEndian.PutUint64(buf[24:32], math.Float64bits(s.RateHz))
	binary.LittleEndian.PutUint64(buf[32:40], s.StableIDHash)
	binary.LittleEndian.PutUint32(buf[40:44], s.Epoch)
	binary.LittleEndian.PutUint32(buf[44:48], s.Reserved1)
	binary.LittleEndian.PutUint64(buf[48:56], s.WriteSeq)
	binary.LittleEndian.PutUint64(buf[56:64], s.WriterHeartbeatNs)
	for i, d := range s.Dims {
		binary.LittleEndian.PutUint32(buf[64+i*4:68+i*4], d)
	}
	binary.LittleEndian.PutUint64(buf[96:104], s.EndpointNameHash)
	return buf
}

// UnmarshalSuperblock decodes a Superblock from buf, which must be at
// least SuperblockLen bytes.
func UnmarshalSuperblock(buf []byte) (Superblock, bool) {
	var s Superblock
	if len(buf) < SuperblockLen {
		return s, false
	}
	if buf[0] != PshmMagic[0] || buf[1] != PshmMagic[1] || buf[2] != PshmMagic[2] || buf[3] != PshmMagic[3] {
		return s, false
	}
	s.Version = buf[4]
	s.HeaderLen = buf[5]
	s.Flags = binary.LittleEndian.Uint16(buf[6:8])
	s.DType = DType(buf[8])
	s.Rank = buf[9]
	s.Reserved0 = binary.LittleEndian.Uint16(buf[10:12])
	s.TokensPerFrame = binary.LittleEndian.Uint32(buf[12:16])
	s.SlotCount = binary.LittleEndian.Uint32(buf[16:20])
	s.SlotPayloadBytes = binary.LittleEndian.Uint32(buf[20:24])
	s.RateHz = math.Float64frombits(binary.LittleEndian.Uint64(buf[24:32]))
	s.StableIDHash = binary.LittleEndian.Uint64(buf[32:40])
	s.Epoch = binary.LittleEndian.Uint32(buf[40:44])
	s.Reserved1 = binary.LittleEndian.Uint32(buf[44:48])
	s.WriteSeq = binary.LittleEndian.Uint64(buf[48:56])
	s.WriterHeartbeatNs = binary.LittleEndian.Uint64(buf[56:64])
	for i := range s.Dims {
		s.Dims[i] = binary.LittleEndian.Uint32(buf[64+i*4 : 68+i*4])
	}
	s.EndpointNameHash = binary.LittleEndian.Uint64(buf[96:104])
	return s, true
}

// SlotHeader is the 64-byte header preceding each ring slot's payload.
type SlotHeader struct {
	Seq            uint64
	Epoch          uint32
	Flags          uint32
	IterationIndex uint64
	TimestampNs    uint64
	TokenCount     uint32
	PayloadBytes   uint32
}

// Marshal encodes the slot header into exactly SlotHeaderLen little-endian
// bytes.
func (h *SlotHeader) Marshal() [SlotHeaderLen]byte {
	var buf [SlotHeaderLen]byte
	binary.LittleEndian.PutUint64(buf[0:8], h.Seq)
	binary.LittleEndian.PutUint32(buf[8:12], h.Epoch)
	binary.LittleEndian.PutUint32(buf[12:16], h.Flags)
	binary.LittleEndian.PutUint64(buf[16:24], h.IterationIndex)
	binary.LittleEndian.PutUint64(buf[24:32], h.TimestampNs)
	binary.LittleEndian.PutUint32(buf[32:36], h.TokenCount)
	binary.LittleEndian.PutUint32(buf[36:40], h.PayloadBytes)
	return buf
}

// UnmarshalSlotHeader decodes a SlotHeader from buf, which must be at
// least SlotHeaderLen bytes.
func UnmarshalSlotHeader(buf []byte) SlotHeader {
	var h SlotHeader
	h.Seq = binary.LittleEndian.Uint64(buf[0:8])
	h.Epoch = binary.LittleEndian.Uint32(buf[8:12])
	h.Flags = binary.LittleEndian.Uint32(buf[12:16])
	h.IterationIndex = binary.LittleEndian.Uint64(buf[16:24])
	h.TimestampNs = binary.LittleEndian.Uint64(buf[24:32])
	h.TokenCount = binary.LittleEndian.Uint32(buf[32:36])
	h.PayloadBytes = binary.LittleEndian.Uint32(buf[36:40])
	return h
}

// SlotStride returns the total byte size of one ring slot (header +
// payload) for the given payload size.
func SlotStride(slotPayloadBytes uint32) uint64 {
	return uint64(SlotHeaderLen) + uint64(slotPayloadBytes)
}

// RegionSize returns the total byte size of a PSHM region with the given
// geometry (superblock + slotCount slots).
func RegionSize(slotCount, slotPayloadBytes uint32) uint64 {
	return uint64(SuperblockLen) + uint64(slotCount)*SlotStride(slotPayloadBytes)
}

// HashEndpointName computes the FNV-1a 64-bit hash used for
// Superblock.EndpointNameHash. The original runtime hand-rolls FNV-1a over
// a NUL-terminated C string; Go's hash/fnv.New64a produces the identical
// basis/prime hash over the same bytes, so it's used directly rather than
// reimplemented.
func HashEndpointName(name string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return h.Sum64()
}
