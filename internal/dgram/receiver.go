package dgram

import (
	"errors"
	"net"
	"os"
	"time"
)

// Receiver is a non-blocking, bound datagram socket, mirroring
// pipit::net::DatagramReceiver.
type Receiver struct {
	conn  net.PacketConn
	valid bool
}

// NewReceiver opens and binds a datagram socket for addr. On failure it
// returns a Receiver with Valid() == false.
func NewReceiver(addr string) *Receiver {
	pa, err := ParseAddress(addr)
	if err != nil {
		return &Receiver{}
	}
	conn, err := net.ListenPacket(pa.Network, pa.Address)
	if err != nil {
		return &Receiver{}
	}
	return &Receiver{conn: conn, valid: true}
}

// Recv reads one datagram into buf without blocking. It returns the
// number of bytes read, or 0 if no datagram is currently available
// (the non-blocking EAGAIN case), or a non-nil error for a real failure.
func (r *Receiver) Recv(buf []byte) (int, error) {
	if !r.valid {
		return 0, errors.New("dgram: receiver not open")
	}
	if err := r.conn.SetReadDeadline(time.Now()); err != nil {
		return 0, err
	}
	n, _, err := r.conn.ReadFrom(buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return 0, nil
		}
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

// Valid reports whether the receiver has a usable socket.
func (r *Receiver) Valid() bool { return r.valid }

// Close releases the underlying socket.
func (r *Receiver) Close() error {
	if !r.valid {
		return nil
	}
	r.valid = false
	return r.conn.Close()
}
