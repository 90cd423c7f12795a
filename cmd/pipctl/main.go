// Command pipctl is an operator inspection tool for PSHM shared-memory
// endpoints: probing a region's discovered geometry, and watching slot
// arrivals live. Grounded on coordinator/cmd/coordinator's cobra+zap
// bring-up and tools/pipscope/shm_receiver.h's probe_shm/ShmReceiver —
// the non-GUI half of pipscope's monitoring flow.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tmineno/pipeit-sub000/internal/config"
	"github.com/tmineno/pipeit-sub000/internal/logging"
)

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "pipctl",
	Short: "Inspect and monitor pipit PSHM shared-memory endpoints",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a pipctl YAML config file (optional)")
	rootCmd.AddCommand(shmCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func newLogger() (*zap.SugaredLogger, error) {
	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}
	log, _, err := logging.Init(&logging.Config{Level: level})
	return log, err
}
