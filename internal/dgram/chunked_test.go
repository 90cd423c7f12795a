package dgram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmineno/pipeit-sub000/internal/wire"
)

func Test_SendChunkedSplitsAcrossMTU(t *testing.T) {
	rx := NewReceiver("127.0.0.1:0")
	require.True(t, rx.Valid())
	defer rx.Close()
	tx := NewSender(rx.conn.LocalAddr().String())
	require.True(t, tx.Valid())
	defer tx.Close()

	hdr := wire.NewPpktHeader(wire.DTypeF32, 1)
	hdr.Sequence = 5
	data := make([]byte, 4*100) // 100 f32 samples

	mtu := wire.PpktHeaderLen + 4*40 // room for 40 samples per packet
	sent := SendChunked(tx, &hdr, data, 100, mtu)

	assert.Equal(t, 3, sent) // 40 + 40 + 20
	assert.Equal(t, uint32(8), hdr.Sequence)

	buf := make([]byte, mtu+64)
	received := 0
	for received < sent {
		n, err := rx.Recv(buf)
		require.NoError(t, err)
		if n == 0 {
			time.Sleep(time.Millisecond)
			continue
		}
		h, ok := wire.UnmarshalPpktHeader(buf[:n])
		require.True(t, ok)
		assert.Equal(t, uint32(5+received), h.Sequence)
		received++
	}
}

func Test_SendChunkedZeroSizeDTypeIsNoOp(t *testing.T) {
	rx := NewReceiver("127.0.0.1:0")
	defer rx.Close()
	tx := NewSender(rx.conn.LocalAddr().String())
	defer tx.Close()

	hdr := wire.PpktHeader{DType: wire.DType(99)}
	sent := SendChunked(tx, &hdr, nil, 10, 1472)
	assert.Equal(t, 0, sent)
}
