package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Goal errors (GOAL-001 to GOAL-099)
	ErrCodeGoalEmpty       ErrorCode = "GOAL-001"
	ErrCodeGoalNotFound    ErrorCode = "GOAL-002"
	ErrCodeGoalReadFailed  ErrorCode = "GOAL-003"
	ErrCodeGoalWriteFailed ErrorCode = "GOAL-004"

	// Configuration errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigInvalid    ErrorCode = "CONFIG-001"
	ErrCodeConfigLoadFailed ErrorCode = "CONFIG-002"

	// Agent errors (AGENT-001 to AGENT-099)
	ErrCodeAgentUnknown     ErrorCode = "AGENT-001"
	ErrCodeAgentUnavailable ErrorCode = "AGENT-002"

	// Checkpoint errors (CHECKPOINT-001 to CHECKPOINT-099)
	ErrCodeCheckpointNotFound    ErrorCode = "CHECKPOINT-001"
	ErrCodeCheckpointInvalid     ErrorCode = "CHECKPOINT-002"
	ErrCodeCheckpointWriteFailed ErrorCode = "CHECKPOINT-003"

	// Protocol errors (PROTOCOL-001 to PROTOCOL-099)
	ErrCodeProtocolInvalid       ErrorCode = "PROTOCOL-001"
	ErrCodeProtocolUnknownType   ErrorCode = "PROTOCOL-002"
	ErrCodeProtocolUnknownFormat ErrorCode = "PROTOCOL-003"

	// Session errors (SESSION-001 to SESSION-099)
	ErrCodeSessionMissing ErrorCode = "SESSION-001"
)

const docsBase = "https://github.com/BenniProbst/ai-orchestrator-v2#"

// OrchestratorError is an error with a code, suggestions and an optional docs link
type OrchestratorError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *OrchestratorError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)

	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			fmt.Fprintf(&b, "\n  • %s", suggestion)
		}
	}

	if e.DocsURL != "" {
		fmt.Fprintf(&b, "\n\nDocumentation: %s", e.DocsURL)
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *OrchestratorError) Unwrap() error {
	return e.Cause
}

// New creates a new OrchestratorError
func New(code ErrorCode, message string) *OrchestratorError {
	return &OrchestratorError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new OrchestratorError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *OrchestratorError {
	return &OrchestratorError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *OrchestratorError) WithSuggestion(suggestion string) *OrchestratorError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *OrchestratorError) WithSuggestions(suggestions ...string) *OrchestratorError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *OrchestratorError) WithDocs(url string) *OrchestratorError {
	e.DocsURL = url
	return e
}

// As returns the first OrchestratorError in err's chain
func As(err error) (*OrchestratorError, bool) {
	var oe *OrchestratorError
	if stderrors.As(err, &oe) {
		return oe, true
	}
	return nil, false
}

// HasCode reports whether any OrchestratorError in err's chain carries code
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		oe, ok := As(err)
		if !ok {
			return false
		}
		if oe.Code == code {
			return true
		}
		err = oe.Cause
	}
	return false
}

// NewGoalEmptyError reports a goal document without any content
func NewGoalEmptyError() *OrchestratorError {
	return New(ErrCodeGoalEmpty, "goal content is empty").
		WithSuggestion("Add a '# Title' and an '## Acceptance Criteria' section").
		WithSuggestion("Run 'aiorch goal init' to create a goal interactively").
		WithDocs(docsBase + "goal-format")
}

// NewGoalNotFoundError reports a missing goal file
func NewGoalNotFoundError(path string) *OrchestratorError {
	return New(ErrCodeGoalNotFound, fmt.Sprintf("goal file not found: %s", path)).
		WithSuggestion("Check the --goal and --work-dir flags").
		WithSuggestion("Run 'aiorch goal init' to create a goal file").
		WithDocs(docsBase + "goal-format")
}

// NewConfigInvalidError reports a configuration value that fails validation
func NewConfigInvalidError(details string) *OrchestratorError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", details)).
		WithSuggestion("Run 'aiorch config show' to inspect the effective configuration")
}

// NewUnknownAgentError reports an agent type that has no adapter
func NewUnknownAgentError(name string) *OrchestratorError {
	return New(ErrCodeAgentUnknown, fmt.Sprintf("unknown agent type: %s", name)).
		WithSuggestion("Use one of: claude, codex")
}

// NewCheckpointNotFoundError reports a missing checkpoint
func NewCheckpointNotFoundError(id string) *OrchestratorError {
	return New(ErrCodeCheckpointNotFound, fmt.Sprintf("checkpoint not found: %s", id)).
		WithSuggestion("Run 'aiorch checkpoint list' to see available checkpoints")
}

// NewUnknownFormatError reports an unsupported serialization format
func NewUnknownFormatError(format string) *OrchestratorError {
	return New(ErrCodeProtocolUnknownFormat, fmt.Sprintf("unknown message format: %s", format)).
		WithSuggestion("Use one of: json, markdown")
}

// NewNoSessionError reports a resume without a session to resume
func NewNoSessionError() *OrchestratorError {
	return New(ErrCodeSessionMissing, "no session to resume").
		WithSuggestion("Pass a checkpoint path with --resume")
}
