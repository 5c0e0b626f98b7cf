package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Codex drives the Codex CLI through `codex exec`
type Codex struct {
	runner
}

// NewCodex creates a Codex adapter
func NewCodex(cfg Config) *Codex {
	if cfg.Command == "" {
		cfg.Command = "codex"
	}
	return &Codex{runner{name: "Codex", config: cfg}}
}

func (c *Codex) Type() Type { return TypeCodex }

func (c *Codex) Capabilities() []Capability {
	return []Capability{
		CapabilityCodeGeneration,
		CapabilityFileOperations,
		CapabilityTestExecution,
		CapabilityRefactoring,
		CapabilityCodeAnalysis,
	}
}

func (c *Codex) args(prompt string) []string {
	args := []string{"exec"}
	if c.config.FullAuto {
		args = append(args, "--full-auto")
	}
	if c.config.JSONOutput {
		args = append(args, "--json")
	}
	if c.config.Sandbox {
		args = append(args, "--sandbox", "workspace-write")
	}
	return append(args, prompt)
}

// Execute runs `codex exec [flags] <prompt>`
func (c *Codex) Execute(ctx context.Context, prompt, workDir string) *Response {
	res, failed := c.run(ctx, c.args(prompt), "", workDir)
	if failed != nil {
		return failed
	}
	resp := res.response()
	if c.config.JSONOutput && strings.TrimSpace(resp.Output) != "" {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(resp.Output), &parsed); err == nil {
			if out, ok := parsed["output"].(string); ok {
				resp.Output = out
			} else if out, ok := parsed["result"].(string); ok {
				resp.Output = out
			}
			resp.FilesModified = stringList(parsed["files_modified"])
			resp.FilesCreated = stringList(parsed["files_created"])
			resp.FilesDeleted = stringList(parsed["files_deleted"])
			resp.Metadata = map[string]any{
				"model":       parsed["model"],
				"tokens_used": parsed["tokens_used"],
				"session_id":  parsed["session_id"],
			}
		}
	}
	return resp
}

// ExecuteStdin pipes the prompt through stdin, for prompts too long for argv
func (c *Codex) ExecuteStdin(ctx context.Context, prompt, workDir string) *Response {
	res, failed := c.run(ctx, c.args("-"), prompt, workDir)
	if failed != nil {
		return failed
	}
	return res.response()
}

func (c *Codex) Analyze(ctx context.Context, subject, question string) string {
	prompt := fmt.Sprintf("Analyze:\n\n%s\n\nQuestion: %s\n\nAnswer:", subject, question)
	resp := c.Execute(ctx, prompt, "")
	if !resp.Success {
		return "Analysis failed: " + resp.Error
	}
	return resp.Output
}

// Verify asks for MATCH/MISMATCH. MISMATCH contains MATCH, so it is checked first.
func (c *Codex) Verify(ctx context.Context, expected, actual string) bool {
	prompt := fmt.Sprintf("Compare expected vs actual:\n\nExpected: %s\nActual: %s\n\nOutput only: MATCH or MISMATCH", expected, actual)
	resp := c.Execute(ctx, prompt, "")
	if !resp.Success {
		return false
	}
	out := strings.ToUpper(resp.Output)
	return !strings.Contains(out, "MISMATCH") && strings.Contains(out, "MATCH")
}

func (c *Codex) IsAvailable() bool { return c.isAvailable() }
