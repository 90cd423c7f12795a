package shm

import "time"

// processStart anchors a monotonic nanosecond clock for heartbeat and slot
// timestamps, mirroring the C++ runtime's std::chrono::steady_clock usage
// (pipit_now_ns()). time.Since retains the monotonic reading Go's runtime
// attaches to time.Time, so this never jumps with wall-clock adjustments.
var processStart = time.Now()

func nowNs() uint64 {
	return uint64(time.Since(processStart).Nanoseconds())
}
