// Package wire implements the Pipit runtime's binary wire formats: the PPKT
// datagram packet header and the PSHM shared-memory ring layout. Both are
// fixed-size, little-endian, byte-exact structures shared with the
// original C++ runtime, so every field is encoded/decoded explicitly with
// encoding/binary rather than relied on Go struct layout — Go gives no
// cross-platform packing guarantee the way C++'s #pragma pack(1) does.
package wire

import (
	"encoding/binary"
	"math"
)

// PpktMagic is the fixed 4-byte PPKT header magic.
var PpktMagic = [4]byte{'P', 'P', 'K', 'T'}

const (
	// PpktVersion is the only wire protocol version this package speaks.
	PpktVersion = 1
	// PpktHeaderLen is the exact on-wire header size in bytes.
	PpktHeaderLen = 48
	// PpktDefaultMTU is Ethernet 1500 minus IPv4(20)+UDP(8) headers.
	PpktDefaultMTU = 1472
)

// DType identifies the sample element type carried in a PPKT payload.
type DType uint8

const (
	DTypeF32 DType = iota
	DTypeI32
	DTypeCF32
	DTypeF64
	DTypeI16
	DTypeI8
)

// Size returns the on-wire byte size of one sample of this dtype, or 0 for
// an unrecognized dtype.
func (d DType) Size() int {
	switch d {
	case DTypeF32, DTypeI32:
		return 4
	case DTypeCF32, DTypeF64:
		return 8
	case DTypeI16:
		return 2
	case DTypeI8:
		return 1
	default:
		return 0
	}
}

// Flag bits for PpktHeader.Flags.
const (
	FlagFirstFrame uint8 = 1 << 0
	FlagLastFrame  uint8 = 1 << 1
)

// PpktHeader is the 48-byte PPKT packet header, field-for-field identical
// to the C++ runtime's pipit::net::PpktHeader.
type PpktHeader struct {
	Version        uint8
	HeaderLen      uint8
	DType          DType
	Flags          uint8
	ChanID         uint16
	Reserved       uint16
	Sequence       uint32
	SampleCount    uint32
	PayloadBytes   uint32
	SampleRateHz   float64
	TimestampNs    uint64
	IterationIndex uint64
}

// NewPpktHeader builds a header with magic/version/header_len populated
// and every other field zeroed, mirroring ppkt_make_header.
func NewPpktHeader(dtype DType, chanID uint16) PpktHeader {
	return PpktHeader{
		Version:   PpktVersion,
		HeaderLen: PpktHeaderLen,
		DType:     dtype,
		ChanID:    chanID,
	}
}

// Marshal encodes the header into exactly PpktHeaderLen little-endian
// bytes.
func (h *PpktHeader) Marshal() [PpktHeaderLen]byte {
	var buf [PpktHeaderLen]byte
	copy(buf[0:4], PpktMagic[:])
	buf[4] = h.Version
	buf[5] = h.HeaderLen
	buf[6] = byte(h.DType)
	buf[7] = h.Flags
	binary.LittleEndian.PutUint16(buf[8:10], h.ChanID)
	binary.LittleEndian.PutUint16(buf[10:12], h.Reserved)
	binary.LittleEndian.PutUint32(buf[12:16], h.Sequence)
	binary.LittleEndian.PutUint32(buf[16:20], h.SampleCount)
	binary.LittleEndian.PutUint32(buf[20:24], h.PayloadBytes)
	binary.LittleEndian.PutUint64(buf[24:32], math.Float64bits(h.SampleRateHz))
	binary.LittleEndian.PutUint64(buf[32:40], h.TimestampNs)
	binary.LittleEndian.PutUint64(buf[40:48], h.IterationIndex)
	return buf
}

// UnmarshalPpktHeader decodes a header from buf, which must be at least
// PpktHeaderLen bytes, and returns false for a short buffer or a wrong
// magic. It does not check the version — callers should call Validate on
// the result.
func UnmarshalPpktHeader(buf []byte) (PpktHeader, bool) {
	var h PpktHeader
	if len(buf) < PpktHeaderLen {
		return h, false
	}
	if buf[0] != PpktMagic[0] || buf[1] != PpktMagic[1] || buf[2] != PpktMagic[2] || buf[3] != PpktMagic[3] {
		return h, false
	}
	h.Version = buf[4]
	h.HeaderLen = buf[5]
	h.DType = DType(buf[6])
	h.Flags = buf[7]
	h.ChanID = binary.LittleEndian.Uint16(buf[8:10])
	h.Reserved = binary.LittleEndian.Uint16(buf[10:12])
	h.Sequence = binary.LittleEndian.Uint32(buf[12:16])
	h.SampleCount = binary.LittleEndian.Uint32(buf[16:20])
	h.PayloadBytes = binary.LittleEndian.Uint32(buf[20:24])
	h.SampleRateHz = math.Float64frombits(binary.LittleEndian.Uint64(buf[24:32]))
	h.TimestampNs = binary.LittleEndian.Uint64(buf[32:40])
	h.IterationIndex = binary.LittleEndian.Uint64(buf[40:48])
	return h, true
}

// Validate reports whether the header's version matches what this package
// emits. The magic has no field of its own: UnmarshalPpktHeader checks it.
func (h *PpktHeader) Validate() bool {
	return h.Version == PpktVersion
}
