// Package shell is the generic runtime shell for a compiled dataflow
// program: it owns CLI parsing, the stop/exit-code/start/stats state, probe
// gating, task-goroutine lifecycle, and stats reporting, so that generated
// pipeline code only has to supply descriptor tables and call shell.Run.
// Grounded on original_source/runtime/libpipit/include/pipit_shell.h.
package shell

import (
	"os"
	"sync/atomic"

	"github.com/tmineno/pipeit-sub000/internal/tick"
)

// ParamDesc is one named runtime parameter a generated program exposes on
// the command line via --param name=value. Apply parses the string value
// and stores it; a false return rejects the value and aborts startup.
type ParamDesc struct {
	Name  string
	Apply func(value string) bool
}

// TaskDesc is one task goroutine the shell launches at start and joins at
// shutdown, plus the tick.Stats accumulator it reports through --stats.
type TaskDesc struct {
	Name  string
	Entry func()
	Stats *tick.Stats
}

// BufferStatsDesc describes one shared buffer (typically a ring) the shell
// reports occupancy for under --stats.
type BufferStatsDesc struct {
	Name      string
	Available func() int
	ElemSize  int
}

// ProbeDesc is one named, independently toggleable debug probe a generated
// program defines; Enabled is flipped on by --probe name.
type ProbeDesc struct {
	Name    string
	Enabled *bool
}

// RuntimeState is the generated program's shared atomics and probe-output
// handle, owned by the program but mutated by the shell.
type RuntimeState struct {
	Stop        *atomic.Bool
	ExitCode    *atomic.Int32
	Start       *atomic.Bool
	Stats       *bool
	ProbeOutput **os.File
}

// ProgramDesc is the full descriptor table a generated program hands to
// shell.Run in place of writing its own CLI parsing, thread management, and
// statistics output.
type ProgramDesc struct {
	State         RuntimeState
	Params        []ParamDesc
	Tasks         []TaskDesc
	Buffers       []BufferStatsDesc
	Probes        []ProbeDesc
	OverrunPolicy string
	MemAllocated  uint64
	MemUsed       uint64
}
