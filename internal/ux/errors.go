package ux

import (
	stderrors "errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/errors"
)

// ErrorWithSuggestion wraps an error with a recovery hint
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

func (e *ErrorWithSuggestion) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%v\n\nSuggestion: %s", e.Err, e.Suggestion)
	}
	return e.Err.Error()
}

func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// NewErrorWithSuggestion returns nil for a nil err
func NewErrorWithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}
	return &ErrorWithSuggestion{Err: err, Suggestion: suggestion}
}

// EnhanceError attaches a suggestion to errors users commonly hit. Coded
// errors that already carry suggestions are returned unchanged.
func EnhanceError(err error) error {
	if err == nil {
		return nil
	}
	if oe, ok := errors.As(err); ok {
		if len(oe.Suggestions) > 0 {
			return err
		}
		if s := codeSuggestion(oe.Code); s != "" {
			return NewErrorWithSuggestion(err, s)
		}
	}
	if stderrors.Is(err, exec.ErrNotFound) {
		return NewErrorWithSuggestion(err,
			"Install the claude and codex CLIs or set agents.<type>.command, then run 'aiorch doctor'")
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "permission denied"):
		return NewErrorWithSuggestion(err,
			"Check that the work and session directories are writable")
	case strings.Contains(msg, "not a git repository"):
		return NewErrorWithSuggestion(err,
			"Run 'git init' in the work directory or disable run_checks")
	case strings.Contains(msg, "context deadline exceeded"):
		return NewErrorWithSuggestion(err,
			"Increase timeout_seconds or agents.<type>.timeout_seconds")
	}
	return err
}

func codeSuggestion(code errors.ErrorCode) string {
	switch code {
	case errors.ErrCodeGoalNotFound, errors.ErrCodeGoalEmpty:
		return "Create a goal with 'aiorch goal init' or pass --goal"
	case errors.ErrCodeCheckpointNotFound:
		return "List saved sessions with 'aiorch checkpoint list'"
	case errors.ErrCodeCheckpointInvalid:
		return "Inspect the file with 'aiorch checkpoint show' or start a new run"
	case errors.ErrCodeConfigInvalid, errors.ErrCodeConfigLoadFailed:
		return "Write a fresh configuration with 'aiorch config init' and compare"
	case errors.ErrCodeAgentUnknown:
		return "Supported agents are claude and codex"
	case errors.ErrCodeAgentUnavailable:
		return "Run 'aiorch doctor' to see which agent CLIs are installed"
	case errors.ErrCodeSessionMissing:
		return "Start a session with 'aiorch run' first"
	}
	return ""
}

// FormatError enhances err and prefixes it with context
func FormatError(err error, context string) error {
	if err == nil {
		return nil
	}
	enhanced := EnhanceError(err)
	if context != "" {
		return fmt.Errorf("%s: %w", context, enhanced)
	}
	return enhanced
}
