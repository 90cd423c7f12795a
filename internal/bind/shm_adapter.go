package bind

import (
	"sync"

	"go.uber.org/zap"

	"github.com/tmineno/pipeit-sub000/internal/runtimectx"
	"github.com/tmineno/pipeit-sub000/internal/shm"
	"github.com/tmineno/pipeit-sub000/internal/wire"
)

// ShmAdapter is a bind backed by a PSHM shared-memory ring. Slot geometry
// (slots, slotBytes) is fixed at construction time — compile-time
// immutable, per the original's contract — and a rebind that requests
// different geometry is rejected rather than silently changing shape.
// Mirrors pipit::shm::ShmIoAdapter.
type ShmAdapter struct {
	name      string
	geom      shm.Geometry
	slots     uint32
	slotBytes uint32
	isOut     bool
	state     *State
	log       *zap.SugaredLogger

	mu            sync.Mutex
	writer        shm.Writer
	reader        shm.Reader
	initialized   bool
	initFailCount int
	endpoint      string
}

// NewShmAdapter creates a shared-memory-backed bind adapter with fixed
// ring geometry.
func NewShmAdapter(name string, isOut bool, geom shm.Geometry, slots, slotBytes uint32, state *State, log *zap.SugaredLogger) *ShmAdapter {
	return &ShmAdapter{
		name:      name,
		geom:      geom,
		slots:     slots,
		slotBytes: slotBytes,
		isOut:     isOut,
		state:     state,
		log:       log,
	}
}

// Send publishes nTokens of data as a single complete frame.
func (a *ShmAdapter) Send(ctx *runtimectx.Context, data []byte, nTokens uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.initialized {
		a.lazyInit()
	}
	if !a.writer.IsValid() {
		return
	}
	a.writer.Publish(data, nTokens, wire.FlagFrameStart|wire.FlagFrameEnd, ctx.IterationIndex)
}

// Recv zero-fills out, then overwrites it with the next available frame's
// payload if one exists.
func (a *ShmAdapter) Recv(out []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range out {
		out[i] = 0
	}
	if !a.initialized {
		a.lazyInit()
	}
	if !a.reader.IsValid() {
		return
	}
	a.reader.Consume(out)
}

// TryReconnect validates the requested endpoint's geometry against this
// adapter's compile-time-fixed slots/slotBytes and, if compatible, emits
// an epoch fence (for an active writer) and rebinds. It returns false —
// keeping the current mapping — on a geometry mismatch.
func (a *ShmAdapter) TryReconnect(newEndpoint string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if newEndpoint == "" {
		a.writer.Close()
		a.reader.Close()
		a.endpoint = ""
		a.initialized = true
		return true
	}

	parsed := shm.ParseEndpoint(newEndpoint)

	if parsed.Slots > 0 && uint32(parsed.Slots) != a.slots {
		if a.log != nil {
			a.log.Warnf("pshm bind %q: rejecting rebind — slots mismatch (compile-time=%d, endpoint=%d)", a.name, a.slots, parsed.Slots)
		}
		return false
	}
	if parsed.SlotBytes > 0 && uint32(parsed.SlotBytes) != a.slotBytes {
		if a.log != nil {
			a.log.Warnf("pshm bind %q: rejecting rebind — slot_bytes mismatch (compile-time=%d, endpoint=%d)", a.name, a.slotBytes, parsed.SlotBytes)
		}
		return false
	}

	if a.isOut && a.writer.IsValid() {
		a.writer.EmitEpochFence(0)
	}

	a.writer.Close()
	a.reader.Close()

	a.endpoint = parsed.Name
	a.initialized = false
	a.initFailCount = 0
	a.lazyInit()
	return true
}

func (a *ShmAdapter) lazyInit() {
	if a.initFailCount >= maxInitRetries {
		return
	}

	if a.endpoint == "" {
		a.endpoint = shm.ParseEndpoint(a.state.Endpoint()).Name
	}

	if a.endpoint == "" {
		a.initialized = true
		return
	}

	var err error
	if a.isOut {
		err = a.writer.Init(a.endpoint, a.slots, a.slotBytes, a.geom)
	} else {
		err = a.reader.Attach(a.endpoint, a.slots, a.slotBytes, a.geom)
	}

	if err == nil {
		a.initialized = true
		return
	}

	a.initFailCount++
	if a.log != nil {
		a.log.Warnf("pshm bind %q: failed to open %q (attempt %d/%d): %v", a.name, a.endpoint, a.initFailCount, maxInitRetries, err)
	}
	if a.initFailCount >= maxInitRetries {
		if a.log != nil {
			a.log.Warnf("pshm bind %q: giving up after %d attempts", a.name, maxInitRetries)
		}
		a.initialized = true
	}
}
