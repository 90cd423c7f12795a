package shm

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmineno/pipeit-sub000/internal/wire"
)

func testRegionName(t *testing.T) string {
	return fmt.Sprintf("/pipeit-sub000-test-%s", t.Name())
}

func Test_WriterReaderPublishConsumeRoundTrip(t *testing.T) {
	name := testRegionName(t)
	geom := Geometry{DType: wire.DTypeF32, Rank: 1, Dims: [8]uint32{4}, TokensPerFrame: 4, RateHz: 48000}

	var w Writer
	require.NoError(t, w.Init(name, 8, 16, geom))
	defer w.Close()

	var r Reader
	require.NoError(t, r.Attach(name, 8, 16, geom))
	defer r.Close()

	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	require.True(t, w.Publish(payload, 2, wire.FlagFrameStart|wire.FlagFrameEnd, 1))

	out := make([]byte, 16)
	n := r.Consume(out)
	assert.Equal(t, len(payload), n)
	assert.Equal(t, payload, out[:n])

	// No new data yet.
	assert.Equal(t, 0, r.Consume(out))
}

func Test_WriterRejectsUnalignedSlotPayload(t *testing.T) {
	var w Writer
	err := w.Init(testRegionName(t), 4, 15, Geometry{})
	assert.Error(t, err)
}

func Test_ReaderRejectsGeometryMismatch(t *testing.T) {
	name := testRegionName(t)
	geom := Geometry{DType: wire.DTypeF32, Rank: 1, Dims: [8]uint32{4}}

	var w Writer
	require.NoError(t, w.Init(name, 4, 16, geom))
	defer w.Close()

	var r Reader
	err := r.Attach(name, 4, 16, Geometry{DType: wire.DTypeI32, Rank: 1, Dims: [8]uint32{4}})
	assert.Error(t, err)
}

func Test_ReaderFastForwardsWhenFallingBehind(t *testing.T) {
	name := testRegionName(t)
	geom := Geometry{DType: wire.DTypeF32, Rank: 1, Dims: [8]uint32{2}}

	var w Writer
	require.NoError(t, w.Init(name, 4, 8, geom))
	defer w.Close()

	var r Reader
	require.NoError(t, r.Attach(name, 4, 8, geom))
	defer r.Close()

	for i := 0; i < 10; i++ {
		require.True(t, w.Publish([]byte{byte(i), 0, 0, 0, 0, 0, 0, 0}, 1, 0, uint64(i)))
	}

	out := make([]byte, 8)
	n := r.Consume(out)
	require.Greater(t, n, 0)
	assert.Equal(t, byte(6), out[0])
}

func Test_ProbeDiscoversGeometry(t *testing.T) {
	name := testRegionName(t)
	geom := Geometry{DType: wire.DTypeI16, Rank: 1, Dims: [8]uint32{3}, TokensPerFrame: 3, RateHz: 16000}

	var w Writer
	require.NoError(t, w.Init(name, 6, 8, geom))
	defer w.Close()

	info, err := Probe(name)
	require.NoError(t, err)
	assert.Equal(t, wire.DTypeI16, info.DType)
	assert.Equal(t, uint32(6), info.SlotCount)
	assert.Equal(t, uint32(8), info.SlotPayloadBytes)
	assert.Equal(t, 16000.0, info.RateHz)
}

func Test_RegionOwnerCloseUnlinks(t *testing.T) {
	name := testRegionName(t)
	r, err := Create(name, 256)
	require.NoError(t, err)
	require.NoError(t, r.Close())

	_, err = Open(name, 256)
	assert.Error(t, err)
}
