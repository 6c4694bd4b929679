package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ceres",
	Short: "Ceres - bimodal actuation-governance core",
	Long: `Ceres governs autonomous actuation decisions for spacecraft attitude
control telemetry with a strict two-layer protocol:

  - A deterministic constraint engine checks every frame against structural
    limits (wheel speed, body rates, quaternion normalization) and vetoes
    everything downstream on a violation.
  - A windowed probabilistic anomaly detector runs only on frames the
    deterministic layer passed, and may only autonomously trigger actions
    classified as reversible.

Every decision is recorded in an append-only JSONL audit trail, with SQLite
archiving, retention, KPI reporting, and operator alerting built in.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
