// Package tick implements the Pipit runtime's periodic tick generator: a
// hybrid sleep+spin scheduler that drives fixed-rate task execution with
// low jitter, plus the per-task statistics it feeds.
package tick

import "time"

const (
	minSpin  = 500 * time.Nanosecond
	maxSpin  = 100_000 * time.Nanosecond
	initSpin = 10_000 * time.Nanosecond

	// ewmaDivisor implements alpha = 1/8 via ewma += (sample-ewma) / ewmaDivisor,
	// matching pipit::Timer's ewma_jitter_ += Nanos{delta / 8} in the original
	// runtime: true integer division, truncating toward zero, not a shift.
	ewmaDivisor = 8
)

// Adaptive requests EWMA-calibrated spin-threshold mode when passed as the
// spinNs argument to New.
const Adaptive = -1

// Generator produces ticks at a fixed frequency using a hybrid sleep+spin
// wait: it sleeps through the bulk of each period and busy-spins only the
// final, latency-sensitive slice, trading a little CPU for much tighter
// wake-up jitter than a plain sleep-until would give.
//
// A Generator is not safe for concurrent use: it is owned by exactly one
// task goroutine, matching the single-threaded ownership of pipit::Timer
// in the original runtime.
type Generator struct {
	period         time.Duration
	next           time.Time
	overrun        bool
	lastLatency    time.Duration
	measureLatency bool
	spinThreshold  time.Duration

	adaptive   bool
	ewmaJitter time.Duration
}

// New creates a Generator ticking at freqHz. If spinNs is Adaptive, the
// spin threshold is EWMA-calibrated starting from a 10us bootstrap; a
// positive spinNs fixes the spin threshold; zero disables spinning
// entirely (plain sleep-until).
func New(freqHz float64, measureLatency bool, spinNs int64) *Generator {
	period := time.Duration(float64(time.Second) / freqHz)
	g := &Generator{
		period:         period,
		next:           time.Now().Add(period),
		measureLatency: measureLatency,
	}
	if spinNs < 0 {
		g.adaptive = true
		g.spinThreshold = initSpin
	} else {
		g.spinThreshold = time.Duration(spinNs)
	}
	return g
}

// Wait blocks until the next tick boundary, advancing the internal phase by
// exactly one period. If the deadline has already passed, Wait returns
// immediately and flags the tick as an overrun.
func (g *Generator) Wait() {
	now := time.Now()
	if now.Before(g.next) {
		if g.spinThreshold > 0 {
			sleepTarget := g.next.Add(-g.spinThreshold)
			if now.Before(sleepTarget) {
				time.Sleep(time.Until(sleepTarget))
			}
			wakePoint := time.Now()
			for time.Now().Before(g.next) {
				// spin
			}
			if g.adaptive {
				jitter := wakePoint.Sub(sleepTarget)
				if jitter < 0 {
					jitter = 0
				}
				delta := jitter - g.ewmaJitter
				g.ewmaJitter += delta / ewmaDivisor
				newSpin := g.ewmaJitter * 2
				if newSpin < minSpin {
					newSpin = minSpin
				}
				if newSpin > maxSpin {
					newSpin = maxSpin
				}
				g.spinThreshold = newSpin
			}
		} else {
			time.Sleep(time.Until(g.next))
		}
		g.overrun = false
		if g.measureLatency {
			g.lastLatency = time.Since(g.next)
		}
	} else {
		g.overrun = true
		if g.measureLatency {
			g.lastLatency = now.Sub(g.next)
		}
	}
	g.next = g.next.Add(g.period)
}

// Overrun reports whether the most recent Wait call found the deadline
// already past.
func (g *Generator) Overrun() bool { return g.overrun }

// LastLatency returns the wake-up latency recorded by the most recent Wait
// call, valid only when the Generator was constructed with measureLatency.
func (g *Generator) LastLatency() time.Duration { return g.lastLatency }

// IsAdaptive reports whether this Generator is running EWMA spin
// calibration.
func (g *Generator) IsAdaptive() bool { return g.adaptive }

// CurrentSpinThreshold returns the Generator's current spin-phase duration.
func (g *Generator) CurrentSpinThreshold() time.Duration { return g.spinThreshold }

// MissedCount reports how many deadlines have already passed: 0 while the
// current deadline is still ahead, otherwise one (the current deadline)
// plus the whole periods elapsed since it, for backlog/overrun policies
// that need to know how far behind the task has fallen.
func (g *Generator) MissedCount() int64 {
	now := time.Now()
	if now.Before(g.next) {
		return 0
	}
	return int64(now.Sub(g.next)/g.period) + 1
}

// ResetPhase re-anchors the next deadline to now+period, used by slip
// policies that choose to drop accumulated backlog rather than catch up.
func (g *Generator) ResetPhase() {
	g.next = time.Now().Add(g.period)
	g.overrun = false
}

// Stats accumulates per-task tick statistics: counts, misses, and latency
// extremes/averages, mirroring pipit::TaskStats.
type Stats struct {
	Ticks          uint64
	Missed         uint64
	MaxLatencyNs   int64
	TotalLatencyNs int64
}

// RecordTick records one completed tick with its wake-up latency.
func (s *Stats) RecordTick(latency time.Duration) {
	s.Ticks++
	ns := latency.Nanoseconds()
	if ns > s.MaxLatencyNs {
		s.MaxLatencyNs = ns
	}
	s.TotalLatencyNs += ns
}

// RecordMiss records one dropped/skipped tick under a backlog policy.
func (s *Stats) RecordMiss() { s.Missed++ }

// AvgLatencyNs returns the mean recorded tick latency, or 0 if no ticks
// have been recorded yet.
func (s *Stats) AvgLatencyNs() int64 {
	if s.Ticks == 0 {
		return 0
	}
	return s.TotalLatencyNs / int64(s.Ticks)
}
