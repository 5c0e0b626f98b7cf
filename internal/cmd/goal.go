package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/agent"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/errors"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/goal"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/tui"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/ux"
)

var goalCmd = &cobra.Command{
	Use:   "goal",
	Short: "Create, inspect and update goal files",
	Long: `Create, inspect and update the goal file a session works toward.

A goal file is markdown with a title, a description and sections for
acceptance criteria, quality requirements and constraints. Criteria are
checkbox items; checked items count as completed.

Commands:
  init      Write a new goal file interactively
  show      Print a goal and its progress
  validate  Check that a goal file parses, optionally asking the master agent
  sync      Copy criteria progress from the session back into the goal file`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var goalInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a new goal file interactively",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runGoalInit,
}

var goalShowCmd = &cobra.Command{
	Use:   "show [path]",
	Short: "Print a goal and its progress",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runGoalShow,
}

var goalValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Check a goal file",
	Long: `Check that a goal file parses and has acceptance criteria.

With --agent the master agent is asked whether each open criterion is met in
the work directory. With --write the verdicts are written back to the file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGoalValidate,
}

var goalSyncCmd = &cobra.Command{
	Use:   "sync [path]",
	Short: "Write session progress back into the goal file",
	Long: `Mark criteria in the goal file as completed or failed according to the
session progress file, and print the resulting diff.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGoalSync,
}

var (
	goalInitForce    bool
	goalShowFormat   string
	goalValidateWith bool
	goalValidateSave bool
)

func init() {
	goalInitCmd.Flags().BoolVarP(&goalInitForce, "force", "f", false, "overwrite an existing goal file without asking")
	goalShowCmd.Flags().StringVar(&goalShowFormat, "format", "text", "output format: text, json or yaml")
	goalValidateCmd.Flags().BoolVar(&goalValidateWith, "agent", false, "ask the master agent to validate open criteria")
	goalValidateCmd.Flags().BoolVar(&goalValidateSave, "write", false, "write agent verdicts back to the goal file")

	goalCmd.AddCommand(goalInitCmd)
	goalCmd.AddCommand(goalShowCmd)
	goalCmd.AddCommand(goalValidateCmd)
	goalCmd.AddCommand(goalSyncCmd)
	rootCmd.AddCommand(goalCmd)
}

func runGoalInit(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cfg, err := cc.LoadConfig()
	if err != nil {
		return err
	}
	path := cfg.GoalPath()
	if len(args) == 1 {
		path = args[0]
	}

	if _, err := os.Stat(path); err == nil && !goalInitForce {
		ok, err := tui.Confirm(fmt.Sprintf("%s exists. Overwrite it?", path), false)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Goal file left unchanged")
			return nil
		}
	}

	g, err := tui.GoalWizard()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeGoalWriteFailed, "failed to create goal directory", err)
	}
	if err := os.WriteFile(path, []byte(goal.ToMarkdown(g)), 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeGoalWriteFailed, "failed to write goal file", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s with %d acceptance criteria\n", path, g.TotalCriteria())
	return nil
}

// goalView is a goal with stable field names for json and yaml output
type goalView struct {
	Title       string          `json:"title" yaml:"title"`
	Description string          `json:"description" yaml:"description"`
	Progress    float64         `json:"progress" yaml:"progress"`
	Criteria    []criterionView `json:"acceptance_criteria" yaml:"acceptance_criteria"`
	Quality     []string        `json:"quality_requirements" yaml:"quality_requirements"`
	Constraints []string        `json:"constraints" yaml:"constraints"`

	goal *goal.Goal
}

type criterionView struct {
	ID          string `json:"id" yaml:"id"`
	Description string `json:"description" yaml:"description"`
	Status      string `json:"status" yaml:"status"`
}

func newGoalView(g *goal.Goal) goalView {
	v := goalView{
		Title:       g.Title,
		Description: g.Description,
		Progress:    g.ProgressPercentage(),
		Criteria:    make([]criterionView, 0, len(g.AcceptanceCriteria)),
		Quality:     g.QualityRequirements,
		Constraints: g.Constraints,
		goal:        g,
	}
	for _, c := range g.AcceptanceCriteria {
		v.Criteria = append(v.Criteria, criterionView{ID: c.ID, Description: c.Description, Status: string(c.Status)})
	}
	return v
}

func (v goalView) Text() string {
	return fmt.Sprintf("%s\nProgress: %d/%d criteria (%.1f%%)",
		strings.TrimRight(goal.ToMarkdown(v.goal), "\n"),
		v.goal.CompletedCriteria(), v.goal.TotalCriteria(), v.Progress)
}

func runGoalShow(cmd *cobra.Command, args []string) error {
	formatter, err := ux.NewFormatter(goalShowFormat, &ux.FormatterOptions{Writer: cmd.OutOrStdout()})
	if err != nil {
		return err
	}
	g, err := goalFromArgs(cmd, args)
	if err != nil {
		return err
	}
	return formatter.Format(newGoalView(g))
}

func runGoalValidate(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cfg, err := cc.LoadConfig()
	if err != nil {
		return err
	}
	g, path, err := loadGoal(cfg, firstArg(args))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if g.TotalCriteria() == 0 {
		return errors.New(errors.ErrCodeGoalEmpty, "goal has no acceptance criteria").
			WithSuggestion("Add checkbox items under an '## Acceptance Criteria' heading")
	}
	fmt.Fprintf(out, "%s: %q with %d acceptance criteria (%d completed)\n",
		path, g.Title, g.TotalCriteria(), g.CompletedCriteria())
	if !goalValidateWith {
		return nil
	}

	factory := agent.NewFactory()
	factory.Configure(cfg.MasterAgentType, cfg.AgentConfig(cfg.MasterAgentType))
	master, err := factory.Create(cfg.MasterAgentType)
	if err != nil {
		return err
	}
	if !master.IsAvailable() {
		return errors.New(errors.ErrCodeAgentUnavailable, fmt.Sprintf("master agent %s is not available", master.Type()))
	}

	result := goal.NewValidator(master, cfg.StrictVerification).
		Validate(cmd.Context(), g, map[string]any{"work_dir": cfg.WorkDir})
	for _, r := range result.CriteriaResults {
		mark := "✗"
		if r.Passed {
			mark = "✓"
		}
		fmt.Fprintf(out, "  %s %s %s (confidence %.2f)\n", mark, r.Criterion.ID, r.Criterion.Description, r.Confidence)
		for _, issue := range r.Issues {
			fmt.Fprintf(out, "      - %s\n", issue)
		}
	}
	fmt.Fprintf(out, "Status: %s, %d/%d passed\n", result.Status, result.PassedCount(), result.TotalCount())

	if goalValidateSave {
		goal.UpdateGoalStatus(g, result)
		diff, err := goal.WriteBack(path, g)
		if err != nil {
			return err
		}
		printDiff(cmd, path, diff)
	}
	return nil
}

func runGoalSync(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cfg, err := cc.LoadConfig()
	if err != nil {
		return err
	}
	g, path, err := loadGoal(cfg, firstArg(args))
	if err != nil {
		return err
	}

	progress := filepath.Join(cfg.SessionPath(), goal.ProgressFile)
	snapshot, err := goal.LoadSnapshot(progress)
	if err != nil {
		return fmt.Errorf("no session progress to sync from %s: %w", progress, err)
	}
	for id, status := range snapshot.CriteriaStatus {
		c := g.FindCriterion(id)
		if c == nil {
			continue
		}
		switch status {
		case goal.StatusCompleted:
			c.MarkCompleted()
		case goal.StatusFailed:
			c.MarkFailed()
		}
	}

	diff, err := goal.WriteBack(path, g)
	if err != nil {
		return err
	}
	printDiff(cmd, path, diff)
	return nil
}

func printDiff(cmd *cobra.Command, path, diff string) {
	if diff == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is already up to date\n", path)
		return
	}
	fmt.Fprint(cmd.OutOrStdout(), diff)
}

func goalFromArgs(cmd *cobra.Command, args []string) (*goal.Goal, error) {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := cc.LoadConfig()
	if err != nil {
		return nil, err
	}
	g, _, err := loadGoal(cfg, firstArg(args))
	return g, err
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
