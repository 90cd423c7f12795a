// Package bind implements the bind-endpoint I/O adapter: a uniform
// send/recv surface over either a PPKT datagram transport or a PSHM
// shared-memory ring, with lazy initialization, bounded reconnect
// retries, and thread-safe reconnect/rebind. Grounded on
// pipit::BindIoAdapter (pipit_bind_io.h) and pipit::shm::ShmIoAdapter
// (pipit_shm.h).
package bind

import (
	"strings"
	"sync"
)

// State holds the live endpoint string for one bind, mutated by an
// external control channel (e.g. a rebind RPC) and read by the adapter's
// lazy-init path.
type State struct {
	mu              sync.Mutex
	currentEndpoint string
}

// NewState creates a bind state with the given initial endpoint.
func NewState(endpoint string) *State {
	return &State{currentEndpoint: endpoint}
}

// Endpoint returns the current endpoint string.
func (s *State) Endpoint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentEndpoint
}

// SetEndpoint updates the current endpoint string.
func (s *State) SetEndpoint(ep string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentEndpoint = ep
}

// ExtractAddress pulls the raw address out of a spec-style or raw endpoint
// string: `udp("127.0.0.1:9100", chan=10)` -> `127.0.0.1:9100`; a raw
// address or empty string passes through unchanged. Free function for
// direct testability, mirroring pipit::extract_address.
func ExtractAddress(ep string) string {
	q1 := strings.Index(ep, `"`)
	if q1 < 0 {
		return ep
	}
	q2 := strings.Index(ep[q1+1:], `"`)
	if q2 < 0 {
		return ep
	}
	return ep[q1+1 : q1+1+q2]
}
