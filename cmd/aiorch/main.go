package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/cmd"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/exitcode"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/ux"
)

func main() {
	// Ctrl-C cancels ctx; a running session pauses and checkpoints
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		if ctx.Err() == context.Canceled {
			fmt.Fprintln(os.Stderr, "\nSession paused. Resume it with 'aiorch resume <session-id>'")
			exitcode.Exit(exitcode.Interrupted)
		}
		if stderrors.Is(err, cmd.ErrGoalNotAchieved) {
			exitcode.Exit(exitcode.GeneralError)
		}

		fmt.Fprintf(os.Stderr, "Error: %v\n", ux.EnhanceError(err))
		exitcode.ExitWithError(err)
	}
	exitcode.Exit(exitcode.Success)
}
