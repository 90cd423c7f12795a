package dgram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_SenderReceiverLoopback(t *testing.T) {
	rx := NewReceiver("127.0.0.1:0")
	require.True(t, rx.Valid())
	defer rx.Close()

	addr := rx.conn.LocalAddr().String()
	tx := NewSender(addr)
	require.True(t, tx.Valid())
	defer tx.Close()

	require.True(t, tx.Send([]byte("hello")))

	buf := make([]byte, 64)
	var n int
	for i := 0; i < 100; i++ {
		var err error
		n, err = rx.Recv(buf)
		require.NoError(t, err)
		if n > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, "hello", string(buf[:n]))
}

func Test_SenderInvalidOnBadAddress(t *testing.T) {
	tx := NewSender("bad-address")
	assert.False(t, tx.Valid())
	assert.False(t, tx.Send([]byte("x")))
	assert.NoError(t, tx.Close())
}

func Test_ReceiverRecvReturnsZeroWhenIdle(t *testing.T) {
	rx := NewReceiver("127.0.0.1:0")
	require.True(t, rx.Valid())
	defer rx.Close()

	buf := make([]byte, 16)
	n, err := rx.Recv(buf)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
}
