package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/config"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/ux"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage aiorch configuration",
	Long: `Manage aiorch configuration.

Settings are read from the file given by --config, or else from the nearest
aiorch.yaml, aiorch.yml or .aiorch.yaml in the current directory or a parent
up to the repository root, then ~/.config/aiorch. AIORCH_* environment
variables override the file, for example AIORCH_MAX_ITERATIONS=10.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var (
	configInitForce bool
	configFormat    string
)

func init() {
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "overwrite an existing file")
	configShowCmd.Flags().StringVar(&configFormat, "format", "yaml", "output format: json or yaml")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := ux.ConfigFileNames[0]
	if len(args) == 1 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil && !configInitForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	cfg := config.Default()
	if err := cfg.Save(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	formatter, err := ux.NewFormatter(configFormat, &ux.FormatterOptions{Writer: cmd.OutOrStdout()})
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
	return formatter.Format(cfg)
}
