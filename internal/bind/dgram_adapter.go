package bind

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/tmineno/pipeit-sub000/internal/dgram"
	"github.com/tmineno/pipeit-sub000/internal/runtimectx"
	"github.com/tmineno/pipeit-sub000/internal/wire"
)

const maxInitRetries = 3

// DgramAdapter is a bind backed by PPKT datagrams (UDP or Unix datagram
// socket). It is safe for concurrent Send/Recv/Reconnect calls. Mirrors
// pipit::BindIoAdapter.
type DgramAdapter struct {
	name      string
	dtype     wire.DType
	chanID    uint16
	isOut     bool
	transport string // "udp" or "unix_dgram"
	state     *State
	log       *zap.SugaredLogger

	mu             sync.Mutex
	sender         *dgram.Sender
	receiver       *dgram.Receiver
	hdr            wire.PpktHeader
	initialized    bool
	initFailCount  int
	endpoint       string
	recvBuf        [65536]byte
}

// NewDgramAdapter creates a datagram-backed bind adapter. transport should
// be "udp" or "unix_dgram"; for "unix_dgram" a raw address lacking the
// unix:// prefix is given one automatically.
func NewDgramAdapter(name string, isOut bool, dtype wire.DType, chanID uint16, transport string, state *State, log *zap.SugaredLogger) *DgramAdapter {
	hdr := wire.NewPpktHeader(dtype, chanID)
	hdr.Flags = wire.FlagFirstFrame
	return &DgramAdapter{
		name:      name,
		dtype:     dtype,
		chanID:    chanID,
		isOut:     isOut,
		transport: transport,
		state:     state,
		log:       log,
		hdr:       hdr,
	}
}

// Send publishes n tokens of data via chunked PPKT send.
func (a *DgramAdapter) Send(ctx *runtimectx.Context, data []byte, nTokens uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.initialized {
		a.lazyInit()
	}
	if a.sender == nil || !a.sender.Valid() {
		return
	}

	a.hdr.SampleCount = nTokens
	a.hdr.PayloadBytes = nTokens * uint32(a.dtype.Size())
	a.hdr.SampleRateHz = ctx.TaskRateHz
	a.hdr.TimestampNs = runtimectx.NowNs()
	a.hdr.IterationIndex = ctx.IterationIndex

	dgram.SendChunked(a.sender, &a.hdr, data, nTokens, wire.PpktDefaultMTU)
	a.hdr.Sequence++
	a.hdr.Flags &^= wire.FlagFirstFrame
}

// Recv drains all currently-available packets and copies the latest valid
// one's payload into out, zero-filling first so a quiet endpoint yields
// silence rather than stale data.
func (a *DgramAdapter) Recv(out []byte, nTokens uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range out {
		out[i] = 0
	}

	if !a.initialized {
		a.lazyInit()
	}
	if a.receiver == nil || !a.receiver.Valid() {
		return
	}

	latestLen := 0
	for {
		n, err := a.receiver.Recv(a.recvBuf[:])
		if err != nil || n <= 0 {
			break
		}
		latestLen = n
	}

	if latestLen < wire.PpktHeaderLen {
		return
	}

	hdr, ok := wire.UnmarshalPpktHeader(a.recvBuf[:latestLen])
	if !ok || !hdr.Validate() {
		return
	}
	if hdr.DType != a.dtype {
		return
	}

	availableBytes := int(hdr.PayloadBytes)
	if rest := latestLen - wire.PpktHeaderLen; rest < availableBytes {
		availableBytes = rest
	}
	copyBytes := availableBytes
	if copyBytes > len(out) {
		copyBytes = len(out)
	}
	copy(out[:copyBytes], a.recvBuf[wire.PpktHeaderLen:wire.PpktHeaderLen+copyBytes])
}

// Reconnect tears down any open socket and resets lazy-init state so the
// next Send/Recv call opens newEndpoint. An empty string disconnects:
// subsequent I/O becomes a permanent no-op.
func (a *DgramAdapter) Reconnect(newEndpoint string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sender != nil {
		a.sender.Close()
		a.sender = nil
	}
	if a.receiver != nil {
		a.receiver.Close()
		a.receiver = nil
	}
	a.initFailCount = 0
	if newEndpoint == "" {
		a.endpoint = ""
		a.initialized = true
		return
	}
	a.endpoint = a.resolveAddress(ExtractAddress(newEndpoint))
	a.initialized = false
}

func (a *DgramAdapter) lazyInit() {
	if a.initFailCount >= maxInitRetries {
		return
	}

	if a.endpoint == "" {
		a.endpoint = a.resolveAddress(ExtractAddress(a.state.Endpoint()))
	}
	if a.endpoint == "" {
		a.initialized = true
		return
	}

	var ok bool
	if a.isOut {
		a.sender = dgram.NewSender(a.endpoint)
		ok = a.sender.Valid()
	} else {
		a.receiver = dgram.NewReceiver(a.endpoint)
		ok = a.receiver.Valid()
	}

	if ok {
		a.initialized = true
		return
	}

	a.initFailCount++
	if a.log != nil {
		a.log.Warnf("bind %q: failed to open endpoint %q (attempt %d/%d)", a.name, a.endpoint, a.initFailCount, maxInitRetries)
	}
	if a.initFailCount >= maxInitRetries {
		if a.log != nil {
			a.log.Warnf("bind %q: giving up after %d attempts", a.name, maxInitRetries)
		}
		a.initialized = true
	}
}

func (a *DgramAdapter) resolveAddress(raw string) string {
	if a.transport == "unix_dgram" && !hasUnixPrefix(raw) {
		return fmt.Sprintf("unix://%s", raw)
	}
	return raw
}

func hasUnixPrefix(s string) bool {
	return len(s) >= 7 && s[:7] == "unix://"
}
