// Package cmd implements the aiorch command line.
package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "aiorch",
	Short: "Drive two AI coding agents toward a goal",
	Long: `aiorch runs a master agent and a worker agent against a goal document.

The master plans the next step, the worker implements it and the master
verifies the result, asking for corrections when verification fails. The loop
stops when every acceptance criterion in the goal is met, the iteration limit
is reached, or the run is interrupted. Interrupted sessions can be resumed
from their checkpoint.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx; cancelling ctx pauses a
// running session
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: nearest aiorch.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text or json")
	rootCmd.PersistentFlags().String("log-file", "", "also append logs to this file")
}
