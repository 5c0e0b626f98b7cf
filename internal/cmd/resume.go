package cmd

import (
	"github.com/spf13/cobra"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <checkpoint>",
	Short: "Resume a paused or interrupted session",
	Long: `Resume a session from its checkpoint. The argument is either a checkpoint
file or a session id, looked up in the configured session directory.

The session continues with the configuration stored in the checkpoint. This is
the same as 'aiorch run --resume <checkpoint>'.

Examples:
  aiorch resume 3f2a9c1b
  aiorch resume sessions/checkpoint_3f2a9c1b.json`,
	Args: cobra.ExactArgs(1),
	RunE: runResumeCmd,
}

var resumeFormat string

func init() {
	resumeCmd.Flags().StringVar(&resumeFormat, "format", "json", "status output format: text, json or yaml")

	rootCmd.AddCommand(resumeCmd)
}

func runResumeCmd(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cfg, err := cc.LoadConfig()
	if err != nil {
		return err
	}
	return runSession(cmd, cc, cfg, sessionOptions{resume: args[0], format: resumeFormat})
}
