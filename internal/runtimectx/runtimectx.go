// Package runtimectx replaces the original runtime's thread-local
// ActorRuntimeContext. Go has no portable thread-local storage, so each
// task goroutine owns one *Context and passes it explicitly through its
// entry point instead of reaching into implicit per-thread state; every
// call site that would have read pipit_iteration_index()/pipit_now_ns() in
// the original takes a *Context argument instead.
package runtimectx

import "time"

// processStart anchors a monotonic nanosecond clock, matching the
// original runtime's std::chrono::steady_clock-based pipit_now_ns.
var processStart = time.Now()

// NowNs returns nanoseconds elapsed since process start on a monotonic
// clock, the Go equivalent of pipit_now_ns().
func NowNs() uint64 {
	return uint64(time.Since(processStart).Nanoseconds())
}

// Context carries the per-task state a task's hot-path code needs:
// its current logical iteration counter and its configured tick rate.
// One Context belongs to exactly one task goroutine.
type Context struct {
	IterationIndex uint64
	TaskRateHz     float64
}

// New creates a Context for a task running at rateHz.
func New(rateHz float64) *Context {
	return &Context{TaskRateHz: rateHz}
}

// Advance increments the iteration counter by one, called once per
// completed tick.
func (c *Context) Advance() {
	c.IterationIndex++
}
