package shm

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/tmineno/pipeit-sub000/internal/wire"
)

// ProbeInfo is the geometry discovered by reading an existing PSHM
// region's Superblock, for monitoring tools that don't already know
// slot_count/slot_payload_bytes ahead of time. Mirrors pipscope::ShmInfo.
type ProbeInfo struct {
	DType            wire.DType
	Rank             uint8
	Dims             [8]uint32
	SlotCount        uint32
	SlotPayloadBytes uint32
	TokensPerFrame   uint32
	RateHz           float64
	TotalSize        uint64
}

// Probe opens name read-only, maps just the Superblock, validates magic/
// version/header_len/geometry, and returns the discovered metadata. It
// never attaches a long-lived Reader. Mirrors pipscope::probe_shm.
func Probe(name string) (ProbeInfo, error) {
	normalized := normalizeName(name)
	path := shmPath(normalized)

	fd, err := unix.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		return ProbeInfo{}, fmt.Errorf("shm probe: open %q: %w", normalized, err)
	}
	defer unix.Close(fd)

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return ProbeInfo{}, fmt.Errorf("shm probe: fstat %q: %w", normalized, err)
	}
	if st.Size < int64(wire.SuperblockLen) {
		return ProbeInfo{}, fmt.Errorf("shm probe: %q too small for a superblock", normalized)
	}

	data, err := unix.Mmap(fd, 0, wire.SuperblockLen, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return ProbeInfo{}, fmt.Errorf("shm probe: mmap %q: %w", normalized, err)
	}
	defer unix.Munmap(data)

	sb, ok := wire.UnmarshalSuperblock(data)
	if !ok {
		return ProbeInfo{}, fmt.Errorf("shm probe: invalid magic in %q", normalized)
	}
	if sb.Version != wire.PshmVersion || sb.HeaderLen != wire.SuperblockLen {
		return ProbeInfo{}, fmt.Errorf("shm probe: unsupported version/header_len in %q", normalized)
	}
	if sb.SlotCount == 0 || sb.SlotPayloadBytes%8 != 0 {
		return ProbeInfo{}, fmt.Errorf("shm probe: invalid geometry in %q (slot_count=%d slot_payload_bytes=%d)", normalized, sb.SlotCount, sb.SlotPayloadBytes)
	}

	totalSize := wire.RegionSize(sb.SlotCount, sb.SlotPayloadBytes)
	if uint64(st.Size) < totalSize {
		return ProbeInfo{}, fmt.Errorf("shm probe: %q file size %d smaller than computed region size %d", normalized, st.Size, totalSize)
	}

	return ProbeInfo{
		DType:            sb.DType,
		Rank:             sb.Rank,
		Dims:             sb.Dims,
		SlotCount:        sb.SlotCount,
		SlotPayloadBytes: sb.SlotPayloadBytes,
		TokensPerFrame:   sb.TokensPerFrame,
		RateHz:           sb.RateHz,
		TotalSize:        totalSize,
	}, nil
}
