package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/goal"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/tui"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/ux"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show progress of the current session",
	Long: `Show the progress recorded in the session directory: goal state, completed
criteria and the most recent iterations.

Examples:
  aiorch status
  aiorch status --format json
  aiorch status -w ../project`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow session progress live",
	Long: `Open a live view of the session progress. The view refreshes whenever the
running session writes its progress file. Press q to quit.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

var (
	statusFormat  string
	statusWorkDir string
	watchWorkDir  string
)

func init() {
	statusCmd.Flags().StringVar(&statusFormat, "format", "text", "output format: text, json or yaml")
	statusCmd.Flags().StringVarP(&statusWorkDir, "work-dir", "w", "", "work directory of the session")
	watchCmd.Flags().StringVarP(&watchWorkDir, "work-dir", "w", "", "work directory of the session")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
}

// progressPath resolves the progress file for an optional work dir override
func progressPath(cmd *cobra.Command, workDir string) (string, error) {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return "", err
	}
	cfg, err := cc.LoadConfig()
	if err != nil {
		return "", err
	}
	if workDir != "" {
		cfg.WorkDir = workDir
	}
	return filepath.Join(cfg.SessionPath(), goal.ProgressFile), nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	formatter, err := ux.NewFormatter(statusFormat, &ux.FormatterOptions{Writer: cmd.OutOrStdout()})
	if err != nil {
		return err
	}
	path, err := progressPath(cmd, statusWorkDir)
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintln(cmd.OutOrStdout(), "No progress data available")
		return nil
	}
	snapshot, err := goal.LoadSnapshot(path)
	if err != nil {
		return err
	}
	return formatter.Format(ux.SnapshotView{Snapshot: *snapshot})
}

func runWatch(cmd *cobra.Command, args []string) error {
	path, err := progressPath(cmd, watchWorkDir)
	if err != nil {
		return err
	}
	return tui.Watch(cmd.Context(), path)
}
