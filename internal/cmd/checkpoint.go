package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/checkpoint"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/tui"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/ux"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Manage session checkpoints",
	Long: `Manage the checkpoints sessions write to the session directory.

A checkpoint is written every checkpoint_interval iterations, when a session
is paused or interrupted, and when it ends.

Commands:
  list     List saved checkpoints, newest first
  show     Show one checkpoint
  delete   Delete a checkpoint

To continue a session, use: aiorch resume <session-id>`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var checkpointListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved checkpoints",
	Args:  cobra.NoArgs,
	RunE:  runCheckpointList,
}

var checkpointShowCmd = &cobra.Command{
	Use:   "show <session-id|file>",
	Short: "Show a checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckpointShow,
}

var checkpointDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckpointDelete,
}

var (
	checkpointFormat string
	checkpointYes    bool
)

func init() {
	checkpointCmd.PersistentFlags().StringVar(&checkpointFormat, "format", "text", "output format: text, json or yaml")
	checkpointDeleteCmd.Flags().BoolVarP(&checkpointYes, "yes", "y", false, "delete without asking")

	checkpointCmd.AddCommand(checkpointListCmd)
	checkpointCmd.AddCommand(checkpointShowCmd)
	checkpointCmd.AddCommand(checkpointDeleteCmd)
	rootCmd.AddCommand(checkpointCmd)
}

func checkpointManager(cmd *cobra.Command) (*checkpoint.Manager, error) {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := cc.LoadConfig()
	if err != nil {
		return nil, err
	}
	return checkpoint.NewManager(cfg.SessionPath()), nil
}

// checkpointList renders as a table in text mode
type checkpointList []checkpoint.Info

func (l checkpointList) Text() string {
	if len(l) == 0 {
		return "No checkpoints found."
	}
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tSTATE\tITERATION\tUPDATED\tGOAL")
	for _, info := range l {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			info.ID, info.State, info.Iteration, info.UpdatedAt.Format("2006-01-02 15:04:05"), info.GoalTitle)
	}
	w.Flush()
	return strings.TrimRight(b.String(), "\n")
}

func runCheckpointList(cmd *cobra.Command, args []string) error {
	formatter, err := ux.NewFormatter(checkpointFormat, &ux.FormatterOptions{Writer: cmd.OutOrStdout()})
	if err != nil {
		return err
	}
	mgr, err := checkpointManager(cmd)
	if err != nil {
		return err
	}
	infos, err := mgr.List()
	if err != nil {
		return fmt.Errorf("failed to list checkpoints: %w", err)
	}
	return formatter.Format(checkpointList(infos))
}

// checkpointView is a checkpoint document with a summary text rendering
type checkpointView struct {
	checkpoint.Document `yaml:",inline"`
}

func (v checkpointView) Text() string {
	d := &v.Document
	lines := []string{
		fmt.Sprintf("Session:    %s", d.SessionID),
		fmt.Sprintf("Goal:       %s", d.GoalTitle),
		fmt.Sprintf("State:      %s", d.State),
		fmt.Sprintf("Iteration:  %d", d.Iteration),
		fmt.Sprintf("Started:    %s", d.StartedAt.Format("2006-01-02 15:04:05")),
		fmt.Sprintf("Updated:    %s", d.UpdatedAt.Format("2006-01-02 15:04:05")),
	}
	if d.CurrentDecision != nil {
		lines = append(lines, fmt.Sprintf("Decision:   %s", strings.ToUpper(string(d.CurrentDecision.Type))))
	}
	if len(d.History) > 0 {
		lines = append(lines, "", "History:")
		for _, h := range d.History {
			mark := "✓"
			if !h.Success || !h.VerificationPassed {
				mark = "✗"
			}
			lines = append(lines, fmt.Sprintf("  %s #%d %s %s", mark, h.Iteration,
				strings.ToUpper(string(h.Decision)), oneLine(h.Instruction, 60)))
		}
	}
	return strings.Join(lines, "\n")
}

func runCheckpointShow(cmd *cobra.Command, args []string) error {
	formatter, err := ux.NewFormatter(checkpointFormat, &ux.FormatterOptions{Writer: cmd.OutOrStdout()})
	if err != nil {
		return err
	}
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cfg, err := cc.LoadConfig()
	if err != nil {
		return err
	}
	doc, err := checkpoint.LoadFile(resolveCheckpoint(cfg, args[0]))
	if err != nil {
		return err
	}
	return formatter.Format(checkpointView{Document: *doc})
}

func runCheckpointDelete(cmd *cobra.Command, args []string) error {
	mgr, err := checkpointManager(cmd)
	if err != nil {
		return err
	}
	id := args[0]
	if !mgr.Exists(id) {
		return fmt.Errorf("checkpoint %s not found in %s", id, mgr.Dir())
	}
	if !checkpointYes {
		ok, err := tui.Confirm(fmt.Sprintf("Delete checkpoint %s?", id), false)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
	if err := mgr.Delete(id); err != nil {
		return fmt.Errorf("failed to delete checkpoint %s: %w", id, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted checkpoint %s\n", id)
	return nil
}

// oneLine flattens s and cuts it to n runes
func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}
