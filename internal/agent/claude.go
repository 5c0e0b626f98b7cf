package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Claude drives the Claude Code CLI in non-interactive print mode
type Claude struct {
	runner
}

// NewClaude creates a Claude adapter
func NewClaude(cfg Config) *Claude {
	if cfg.Command == "" {
		cfg.Command = "claude"
	}
	return &Claude{runner{name: "Claude", config: cfg}}
}

func (c *Claude) Type() Type { return TypeClaude }

func (c *Claude) Capabilities() []Capability {
	return []Capability{
		CapabilityCodeAnalysis,
		CapabilityCodeReview,
		CapabilityPlanning,
		CapabilityVerification,
		CapabilityDocumentation,
		CapabilityCodeGeneration,
		CapabilityRefactoring,
	}
}

func (c *Claude) args(prompt string) []string {
	args := []string{"--print", prompt}
	if c.config.JSONOutput {
		args = append(args, "--output-format", "json")
	}
	return args
}

// Execute runs `claude --print <prompt> [--output-format json]`
func (c *Claude) Execute(ctx context.Context, prompt, workDir string) *Response {
	res, failed := c.run(ctx, c.args(prompt), "", workDir)
	if failed != nil {
		return failed
	}
	resp := res.response()
	if c.config.JSONOutput && strings.TrimSpace(resp.Output) != "" {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(resp.Output), &parsed); err == nil {
			if result, ok := parsed["result"].(string); ok {
				resp.Output = result
			}
			resp.FilesModified = stringList(parsed["files_modified"])
			resp.FilesCreated = stringList(parsed["files_created"])
			if md, ok := parsed["metadata"].(map[string]any); ok {
				resp.Metadata = md
			}
		}
	}
	return resp
}

// Analyze asks a free-form question about subject
func (c *Claude) Analyze(ctx context.Context, subject, question string) string {
	prompt := fmt.Sprintf(`Analyze the following context and answer the question.

CONTEXT:
%s

QUESTION:
%s

Provide a clear, concise analysis.`, subject, question)

	resp := c.Execute(ctx, prompt, "")
	if !resp.Success {
		return "Analysis failed: " + resp.Error
	}
	return resp.Output
}

// Verify asks for a PASS/FAIL judgement
func (c *Claude) Verify(ctx context.Context, expected, actual string) bool {
	prompt := fmt.Sprintf(`Verify if the actual result matches the expected outcome.

EXPECTED:
%s

ACTUAL:
%s

Answer with only "PASS" if it matches or "FAIL" if it doesn't match.`, expected, actual)

	resp := c.Execute(ctx, prompt, "")
	return resp.Success && strings.Contains(strings.ToUpper(resp.Output), "PASS")
}

// PlanImplementation asks for a numbered implementation plan
func (c *Claude) PlanImplementation(ctx context.Context, goal, currentState string, constraints []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a step-by-step implementation plan.\n\nGOAL:\n%s\n\nCURRENT STATE:\n%s\n", goal, currentState)
	if len(constraints) > 0 {
		b.WriteString("\nCONSTRAINTS:\n")
		for _, item := range constraints {
			fmt.Fprintf(&b, "- %s\n", item)
		}
	}
	b.WriteString("\nProvide numbered steps with clear, actionable instructions.")

	resp := c.Execute(ctx, b.String(), "")
	if !resp.Success {
		return ""
	}
	return resp.Output
}

func (c *Claude) IsAvailable() bool { return c.isAvailable() }
