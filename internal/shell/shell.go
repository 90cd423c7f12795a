package shell

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tmineno/pipeit-sub000/internal/xcmd"
)

const probeOutputDefault = "/dev/stderr"

// Run parses args against desc, launches every task plus a duration/signal
// watcher as errgroup goroutines, joins them, prints stats if requested,
// and returns the process exit code — 2 for any startup error, otherwise
// desc.State.ExitCode.
//
// Mirrors pipit::shell_main. Task entries are plain func() that poll
// desc.State.Stop themselves each tick, matching the spec's cooperative
// cancellation contract: there is no hard cancellation of a running task.
// The errgroup+WaitInterrupted shutdown join mirrors coordinator.Run's own
// goroutine orchestration idiom rather than a raw sync.WaitGroup.
func Run(args []string, desc *ProgramDesc) int {
	parsed, err := parseArgs(args, desc)
	if err != nil {
		return 2
	}

	if err := initProbes(parsed, desc); err != nil {
		return 2
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wg, ctx := errgroup.WithContext(ctx)

	for _, t := range desc.Tasks {
		t := t
		wg.Go(func() error {
			t.Entry()
			return nil
		})
	}
	desc.State.Start.Store(true)

	wg.Go(func() error {
		return waitShutdown(ctx, parsed.durationSeconds, desc)
	})

	_ = wg.Wait()

	if parsed.threads > 0 && parsed.threads < len(desc.Tasks) {
		fmt.Fprintf(os.Stderr, "startup warning: --threads is advisory (requested=%d, tasks=%d)\n",
			parsed.threads, len(desc.Tasks))
	}

	if *desc.State.Stats {
		fmt.Fprint(os.Stderr, RenderStats(desc))
	}

	return int(desc.State.ExitCode.Load())
}

// waitShutdown blocks until either the configured --duration elapses or
// ctx is canceled by a SIGINT/SIGTERM relayed through internal/xcmd, then
// sets desc.State.Stop so every task's tick loop observes it and returns.
func waitShutdown(ctx context.Context, durationSeconds float64, desc *ProgramDesc) error {
	defer desc.State.Stop.Store(true)

	if math.IsInf(durationSeconds, 1) {
		return xcmd.WaitInterrupted(ctx)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(durationSeconds*float64(time.Second)))
	defer cancel()
	err := xcmd.WaitInterrupted(timeoutCtx)
	if errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func initProbes(parsed parsedArgs, desc *ProgramDesc) error {
	// Gate: len(desc.Probes) == 0 only — no debug/release distinction, a
	// generated program either defines probes or it doesn't.
	if len(desc.Probes) == 0 {
		return nil
	}

	for _, name := range parsed.enabledProbes {
		found := false
		for _, p := range desc.Probes {
			if p.Name == name {
				*p.Enabled = true
				found = true
				break
			}
		}
		if !found {
			fmt.Fprintf(os.Stderr, "startup error: unknown probe '%s'\n", name)
			return &startupError{msg: "unknown probe"}
		}
	}

	if len(parsed.enabledProbes) > 0 || parsed.probeOutputPath != probeOutputDefault {
		f, err := os.Create(parsed.probeOutputPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "startup error: failed to open probe output file '%s': %v\n",
				parsed.probeOutputPath, err)
			return &startupError{msg: "probe output open failed"}
		}
		*desc.State.ProbeOutput = f
	}
	return nil
}

// RenderStats formats the --stats report: per-task tick/miss/latency
// counters, per-buffer token backlog, and memory pool usage, in the
// original's exact "[stats] ..." line format.
func RenderStats(desc *ProgramDesc) string {
	var b strings.Builder
	for _, t := range desc.Tasks {
		fmt.Fprintf(&b, "[stats] task '%s': ticks=%d, missed=%d (%s), max_latency=%dns, avg_latency=%dns\n",
			t.Name, t.Stats.Ticks, t.Stats.Missed, desc.OverrunPolicy, t.Stats.MaxLatencyNs, t.Stats.AvgLatencyNs())
	}
	for _, buf := range desc.Buffers {
		avail := buf.Available()
		fmt.Fprintf(&b, "[stats] shared buffer '%s': %d tokens (%dB)\n", buf.Name, avail, avail*buf.ElemSize)
	}
	fmt.Fprintf(&b, "[stats] memory pool: %dB allocated, %dB used\n", desc.MemAllocated, desc.MemUsed)
	return b.String()
}
