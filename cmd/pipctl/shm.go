package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tmineno/pipeit-sub000/internal/receiver"
	"github.com/tmineno/pipeit-sub000/internal/shm"
)

var shmCmd = &cobra.Command{
	Use:   "shm",
	Short: "Inspect PSHM shared-memory endpoints",
}

var shmProbeCmd = &cobra.Command{
	Use:   "probe <name>",
	Short: "Read and print a PSHM region's Superblock geometry without attaching a reader",
	Args:  cobra.ExactArgs(1),
	RunE:  runShmProbe,
}

var shmWatchCmd = &cobra.Command{
	Use:   "watch <name>",
	Short: "Attach to a PSHM region and print slot arrivals until interrupted",
	Args:  cobra.ExactArgs(1),
	RunE:  runShmWatch,
}

func init() {
	shmCmd.AddCommand(shmProbeCmd)
	shmCmd.AddCommand(shmWatchCmd)
}

func runShmProbe(cmd *cobra.Command, args []string) error {
	name := args[0]
	info, err := shm.Probe(name)
	if err != nil {
		return fmt.Errorf("probe %q: %w", name, err)
	}

	fmt.Printf("name:                %s\n", name)
	fmt.Printf("dtype:               %d\n", info.DType)
	fmt.Printf("rank:                %d\n", info.Rank)
	fmt.Printf("dims:                %v\n", info.Dims[:info.Rank])
	fmt.Printf("tokens_per_frame:    %d\n", info.TokensPerFrame)
	fmt.Printf("rate_hz:             %g\n", info.RateHz)
	fmt.Printf("slot_count:          %d\n", info.SlotCount)
	fmt.Printf("slot_payload_bytes:  %d\n", info.SlotPayloadBytes)
	fmt.Printf("total_size:          %d\n", info.TotalSize)

	if err := cfg.CheckRegionSize(info.TotalSize); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	return nil
}

func runShmWatch(cmd *cobra.Command, args []string) error {
	name := args[0]
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	chanID := receiver.ShmChanID(name, 0)
	rx := receiver.NewShmReceiver(name, chanID, 1<<16)
	if !rx.Start() {
		return fmt.Errorf("failed to start watching %q", name)
	}
	defer rx.Stop()

	log.Infof("watching shm endpoint %q (chan_id=%d)", name, chanID)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			return nil
		case <-ticker.C:
			m := rx.Metrics()
			snap := rx.Snapshot(8)
			fmt.Printf("%s: slots=%d bytes=%d accepted=%d samples_preview=%v\n",
				name, m.RecvPackets, m.RecvBytes, snap.Stats.AcceptedFrames, snap.Samples)
		}
	}
}
