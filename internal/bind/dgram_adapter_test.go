package bind

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmineno/pipeit-sub000/internal/runtimectx"
	"github.com/tmineno/pipeit-sub000/internal/wire"
)

func Test_DgramAdapterSendRecvRoundTrip(t *testing.T) {
	addr := "127.0.0.1:18453"

	rxState := NewState(addr)
	rx := NewDgramAdapter("in", false, wire.DTypeF32, 1, "udp", rxState, nil)
	defer rx.Reconnect("")

	txState := NewState(addr)
	tx := NewDgramAdapter("out", true, wire.DTypeF32, 1, "udp", txState, nil)
	defer tx.Reconnect("")

	out := make([]byte, 8)
	rx.Recv(out, 2) // first Recv lazily binds the receiving socket

	ctx := runtimectx.New(1000)
	payload := []byte{1, 0, 0, 0, 2, 0, 0, 0}
	tx.Send(ctx, payload, 2)

	var n int
	for i := 0; i < 200; i++ {
		rx.Recv(out, 2)
		nonZero := false
		for _, b := range out {
			if b != 0 {
				nonZero = true
				break
			}
		}
		if nonZero {
			n = len(out)
			break
		}
		time.Sleep(time.Millisecond)
	}
	require.Greater(t, n, 0)
	assert.Equal(t, payload, out)
}

func Test_DgramAdapterRecvZeroFillsWhenIdle(t *testing.T) {
	state := NewState("127.0.0.1:18454")
	rx := NewDgramAdapter("idle", false, wire.DTypeF32, 2, "udp", state, nil)
	defer rx.Reconnect("")

	out := []byte{9, 9, 9, 9}
	rx.Recv(out, 1)
	assert.Equal(t, []byte{0, 0, 0, 0}, out)
}

func Test_DgramAdapterEmptyEndpointIsPermanentNoOp(t *testing.T) {
	state := NewState("")
	a := NewDgramAdapter("noop", true, wire.DTypeF32, 3, "udp", state, nil)
	ctx := runtimectx.New(1000)
	a.Send(ctx, []byte{1, 2, 3, 4}, 1) // must not panic
}
