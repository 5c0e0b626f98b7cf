package cmd

import (
	"github.com/spf13/cobra"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/ux"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print the version, git commit, build date, Go version and platform of
this binary.`,
	Args: cobra.NoArgs,
	RunE: runVersion,
}

var versionFormat string

func init() {
	versionCmd.Flags().StringVar(&versionFormat, "format", "text", "output format: text, json or yaml")

	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) error {
	formatter, err := ux.NewFormatter(versionFormat, &ux.FormatterOptions{Writer: cmd.OutOrStdout()})
	if err != nil {
		return err
	}
	return formatter.Format(version.GetInfo())
}
