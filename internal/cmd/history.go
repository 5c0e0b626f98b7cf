package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/errors"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/history"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/ux"
)

var historyCmd = &cobra.Command{
	Use:   "history [session]",
	Short: "Query recorded iterations",
	Long: `Query the iteration history database.

Without an argument every recorded session is listed. With a session id the
most recent iterations of that session are shown.

Examples:
  aiorch history
  aiorch history 3f2a9c1b --limit 50
  aiorch history 3f2a9c1b --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

var (
	historyLimit  int
	historyFormat string
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum iterations to show (0 for all)")
	historyCmd.Flags().StringVar(&historyFormat, "format", "text", "output format: text, json or yaml")

	rootCmd.AddCommand(historyCmd)
}

type sessionList []history.Session

func (l sessionList) Text() string {
	if len(l) == 0 {
		return "No sessions recorded."
	}
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tITERATIONS\tSUCCESSES\tFIRST\tLAST")
	for _, s := range l {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n", s.ID, s.Iterations, s.Successes,
			s.FirstAt.Format("2006-01-02 15:04"), s.LastAt.Format("2006-01-02 15:04"))
	}
	w.Flush()
	return strings.TrimRight(b.String(), "\n")
}

type rowList []history.Row

func (l rowList) Text() string {
	if len(l) == 0 {
		return "No iterations recorded."
	}
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tDECISION\tOK\tVERIFIED\tSCORE\tINSTRUCTION")
	for _, r := range l {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.2f\t%s\n", r.Iteration, strings.ToUpper(r.DecisionType),
			yesNo(r.Success), yesNo(r.VerificationPassed), r.Score, oneLine(r.Instruction, 60))
	}
	w.Flush()
	return strings.TrimRight(b.String(), "\n")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func runHistory(cmd *cobra.Command, args []string) error {
	formatter, err := ux.NewFormatter(historyFormat, &ux.FormatterOptions{Writer: cmd.OutOrStdout()})
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
	path := cfg.HistoryPath()
	if path == "" {
		return errors.NewConfigInvalidError("history is disabled").
			WithSuggestion("Set history_db in the configuration")
	}

	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	if len(args) == 0 {
		sessions, err := store.Sessions()
		if err != nil {
			return err
		}
		return formatter.Format(sessionList(sessions))
	}
	rows, err := store.List(args[0], historyLimit)
	if err != nil {
		return err
	}
	return formatter.Format(rowList(rows))
}
