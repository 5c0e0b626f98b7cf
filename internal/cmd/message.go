package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/protocol"
)

var messageCmd = &cobra.Command{
	Use:   "message",
	Short: "Work with protocol messages",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var messageConvertCmd = &cobra.Command{
	Use:   "convert <file>",
	Short: "Convert a protocol message between JSON and markdown",
	Long: `Convert a single protocol message between its JSON and markdown forms.
The input format is detected. Use - to read from stdin.

Examples:
  aiorch message convert --to markdown decision.json
  aiorch message convert --to json decision.md`,
	Args: cobra.ExactArgs(1),
	RunE: runMessageConvert,
}

var (
	messageTo     string
	messageOutput string
)

func init() {
	messageConvertCmd.Flags().StringVar(&messageTo, "to", "markdown", "target format: json or markdown")
	messageConvertCmd.Flags().StringVarP(&messageOutput, "output", "o", "", "write to this file instead of stdout")

	messageCmd.AddCommand(messageConvertCmd)
	rootCmd.AddCommand(messageCmd)
}

func runMessageConvert(cmd *cobra.Command, args []string) error {
	var (
		data []byte
		err  error
	)
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to read message: %w", err)
	}

	converted, err := protocol.Convert(string(data), messageTo)
	if err != nil {
		return err
	}
	if !strings.HasSuffix(converted, "\n") {
		converted += "\n"
	}

	if messageOutput != "" {
		if err := os.WriteFile(messageOutput, []byte(converted), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", messageOutput, err)
		}
		return nil
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), converted)
	return err
}
