// Package agent adapts external AI command-line tools to a common capability interface.
package agent

import (
	"context"
	"strings"
	"time"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/errors"
)

// Type identifies an agent implementation
type Type string

const (
	TypeClaude Type = "claude"
	TypeCodex  Type = "codex"
)

// Types lists every supported agent type
func Types() []Type {
	return []Type{TypeClaude, TypeCodex}
}

// ParseType parses an agent name case-insensitively
func ParseType(s string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case TypeClaude:
		return TypeClaude, nil
	case TypeCodex:
		return TypeCodex, nil
	default:
		return "", errors.NewUnknownAgentError(s)
	}
}

// Capability is something an agent is good at
type Capability string

const (
	CapabilityCodeGeneration Capability = "code_generation"
	CapabilityCodeAnalysis   Capability = "code_analysis"
	CapabilityCodeReview     Capability = "code_review"
	CapabilityFileOperations Capability = "file_operations"
	CapabilityTestExecution  Capability = "test_execution"
	CapabilityRefactoring    Capability = "refactoring"
	CapabilityDocumentation  Capability = "documentation"
	CapabilityPlanning       Capability = "planning"
	CapabilityVerification   Capability = "verification"
)

// Agent is the capability interface both roles are written against.
// Execute never returns a Go error; failures are reported in the Response.
type Agent interface {
	Type() Type
	Capabilities() []Capability
	Execute(ctx context.Context, prompt, workDir string) *Response
	Analyze(ctx context.Context, subject, question string) string
	Verify(ctx context.Context, expected, actual string) bool
	IsAvailable() bool
}

// HasCapability reports whether a advertises c
func HasCapability(a Agent, c Capability) bool {
	for _, have := range a.Capabilities() {
		if have == c {
			return true
		}
	}
	return false
}

// Response is the result of one agent invocation
type Response struct {
	Success       bool           `json:"success"`
	Output        string         `json:"output"`
	FilesModified []string       `json:"files_modified"`
	FilesCreated  []string       `json:"files_created"`
	FilesDeleted  []string       `json:"files_deleted"`
	Error         string         `json:"error,omitempty"`
	ExitCode      int            `json:"exit_code"`
	ExecutionTime time.Duration  `json:"execution_time"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}

// ErrorResponse builds a failed response with an empty output
func ErrorResponse(msg string, exitCode int) *Response {
	return &Response{
		Success:   false,
		Error:     msg,
		ExitCode:  exitCode,
		Metadata:  map[string]any{},
		Timestamp: time.Now(),
	}
}

// ChangedFiles returns modified followed by created files
func (r *Response) ChangedFiles() []string {
	files := make([]string, 0, len(r.FilesModified)+len(r.FilesCreated))
	files = append(files, r.FilesModified...)
	return append(files, r.FilesCreated...)
}

// Config controls how an agent CLI is invoked
type Config struct {
	Command    string            `json:"command" yaml:"command"`
	Timeout    time.Duration     `json:"timeout" yaml:"timeout"`
	Sandbox    bool              `json:"sandbox" yaml:"sandbox"`
	FullAuto   bool              `json:"full_auto" yaml:"full_auto"`
	JSONOutput bool              `json:"json_output" yaml:"json_output"`
	WorkDir    string            `json:"work_dir,omitempty" yaml:"work_dir,omitempty"`
	Env        map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
}
