package dgram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ParseAddressInet(t *testing.T) {
	pa, err := ParseAddress("localhost:9000")
	require.NoError(t, err)
	assert.Equal(t, KindInet, pa.Kind)
	assert.Equal(t, "udp", pa.Network)
	assert.Equal(t, "127.0.0.1:9000", pa.Address)
}

func Test_ParseAddressUnix(t *testing.T) {
	pa, err := ParseAddress("unix:///tmp/foo.sock")
	require.NoError(t, err)
	assert.Equal(t, KindUnix, pa.Kind)
	assert.Equal(t, "unixgram", pa.Network)
	assert.Equal(t, "/tmp/foo.sock", pa.Address)
}

func Test_ParseAddressRejectsMalformed(t *testing.T) {
	cases := []string{"noport", "host:notaport", "host:0", "host:70000", "unix://"}
	for _, c := range cases {
		_, err := ParseAddress(c)
		assert.Error(t, err, c)
	}
}
