package bind

import "github.com/tmineno/pipeit-sub000/internal/runtimectx"

// Adapter is the uniform bind I/O surface generated code drives: send
// bytes out, or fill a buffer in, without caring whether the endpoint is
// backed by datagrams or shared memory. Go has no tagged-union type the
// way a sum type would model "datagram or shm", so the two concrete
// transports (DgramAdapter, ShmAdapter) are kept as distinct types behind
// this common interface rather than folded into one struct with an
// enum discriminant — per spec's allowance for this polymorphism choice.
type Adapter interface {
	// Send publishes nTokens of data tagged with ctx's iteration index.
	Send(ctx *runtimectx.Context, data []byte, nTokens uint32)
	// Recv zero-fills out, then overwrites it with the latest available
	// frame if one exists.
	Recv(out []byte, nTokens uint32)
}

// dgramAsAdapter and shmAsAdapter close the small signature
// gap between ShmAdapter.Recv (which doesn't need nTokens, since a PSHM
// frame carries its own token count) and the common Adapter interface.

type dgramAsAdapter struct{ *DgramAdapter }

func (d dgramAsAdapter) Recv(out []byte, nTokens uint32) { d.DgramAdapter.Recv(out, nTokens) }

type shmAsAdapter struct{ *ShmAdapter }

func (s shmAsAdapter) Recv(out []byte, _ uint32) { s.ShmAdapter.Recv(out) }

// AsAdapter wraps a DgramAdapter to satisfy Adapter.
func (a *DgramAdapter) AsAdapter() Adapter { return dgramAsAdapter{a} }

// AsAdapter wraps a ShmAdapter to satisfy Adapter.
func (a *ShmAdapter) AsAdapter() Adapter { return shmAsAdapter{a} }
