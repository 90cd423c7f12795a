package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_SuperblockRoundTrip(t *testing.T) {
	sb := Superblock{
		Version:          PshmVersion,
		HeaderLen:        SuperblockLen,
		DType:            DTypeF32,
		Rank:             2,
		TokensPerFrame:   64,
		SlotCount:        16,
		SlotPayloadBytes: 256,
		RateHz:           44100.0,
		StableIDHash:     0xdeadbeef,
		Epoch:            3,
		WriteSeq:         99,
		Dims:             [8]uint32{4, 16, 0, 0, 0, 0, 0, 0},
		EndpointNameHash: HashEndpointName("chan:foo"),
	}
	enc := sb.Marshal()
	assert.Equal(t, SuperblockLen, len(enc))

	got, ok := UnmarshalSuperblock(enc[:])
	require.True(t, ok)
	assert.Equal(t, sb, got)
}

func Test_SlotHeaderRoundTrip(t *testing.T) {
	h := SlotHeader{
		Seq:            7,
		Epoch:          1,
		Flags:          FlagFrameStart | FlagFrameEnd,
		IterationIndex: 42,
		TimestampNs:    1000,
		TokenCount:     8,
		PayloadBytes:   32,
	}
	enc := h.Marshal()
	assert.Equal(t, SlotHeaderLen, len(enc))
	got := UnmarshalSlotHeader(enc[:])
	assert.Equal(t, h, got)
}

func Test_RegionSizeAndSlotStride(t *testing.T) {
	assert.Equal(t, uint64(SlotHeaderLen+256), SlotStride(256))
	assert.Equal(t, uint64(SuperblockLen)+16*uint64(SlotHeaderLen+256), RegionSize(16, 256))
}

func Test_HashEndpointNameIsDeterministic(t *testing.T) {
	a := HashEndpointName("chan:foo")
	b := HashEndpointName("chan:foo")
	c := HashEndpointName("chan:bar")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
