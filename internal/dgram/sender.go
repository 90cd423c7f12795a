package dgram

import "net"

// Sender is a non-blocking datagram socket bound to one peer address,
// mirroring pipit::net::DatagramSender.
type Sender struct {
	conn  net.Conn
	valid bool
}

// NewSender opens a datagram socket connected to addr. On any failure it
// returns a Sender with Valid() == false, matching the original's silent
// open-failure contract (the bind layer above decides whether to retry).
func NewSender(addr string) *Sender {
	pa, err := ParseAddress(addr)
	if err != nil {
		return &Sender{}
	}
	conn, err := net.Dial(pa.Network, pa.Address)
	if err != nil {
		return &Sender{}
	}
	return &Sender{conn: conn, valid: true}
}

// Send writes data to the configured peer. It returns false on any error;
// per the non-blocking contract, a send that would block is treated as a
// silent drop rather than surfaced as an error.
func (s *Sender) Send(data []byte) bool {
	if !s.valid {
		return false
	}
	_, err := s.conn.Write(data)
	return err == nil
}

// Valid reports whether the sender has a usable socket.
func (s *Sender) Valid() bool { return s.valid }

// Close releases the underlying socket.
func (s *Sender) Close() error {
	if !s.valid {
		return nil
	}
	s.valid = false
	return s.conn.Close()
}
