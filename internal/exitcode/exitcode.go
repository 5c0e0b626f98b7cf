package exitcode

import (
	"context"
	stderrors "errors"
	"os"
	"strings"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates the goal was achieved or the command succeeded
	Success = 0

	// GeneralError indicates a general error or an unachieved goal
	GeneralError = 1

	// UsageError indicates invalid command usage (bad flags, missing args, etc.)
	UsageError = 2

	// ConfigError indicates invalid configuration or a missing goal
	ConfigError = 3

	// Interrupted indicates the run was interrupted by a signal
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	Exit(DetermineExitCode(err))
}

// DetermineExitCode analyzes an error and returns the appropriate exit code
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	if stderrors.Is(err, context.Canceled) {
		return Interrupted
	}

	if oe, ok := errors.As(err); ok {
		switch oe.Code {
		case errors.ErrCodeConfigInvalid, errors.ErrCodeConfigLoadFailed,
			errors.ErrCodeGoalEmpty, errors.ErrCodeGoalNotFound, errors.ErrCodeAgentUnknown:
			return ConfigError
		}
	}

	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "invalid flag") || strings.Contains(errMsg, "unknown command") {
		return UsageError
	}
	if strings.Contains(errMsg, "required flag") || strings.Contains(errMsg, "missing argument") ||
		strings.Contains(errMsg, "accepts") && strings.Contains(errMsg, "arg(s)") {
		return UsageError
	}

	return GeneralError
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags or arguments)"
	case ConfigError:
		return "Configuration error"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
