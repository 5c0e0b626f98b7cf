package role

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/agent"
)

// Worker implements instructions and reports back
type Worker struct {
	agent    agent.Agent
	attempts int
	last     *Instruction
}

var _ WorkerStrategy = (*Worker)(nil)

func NewWorker(a agent.Agent) *Worker {
	return &Worker{agent: a}
}

func (w *Worker) Name() string       { return "worker" }
func (w *Worker) Agent() agent.Agent { return w.agent }
func (w *Worker) Attempts() int      { return w.attempts }

// LastInstruction returns the most recently implemented instruction
func (w *Worker) LastInstruction() *Instruction { return w.last }

func (w *Worker) ResetAttempts() {
	w.attempts = 0
	w.last = nil
}

// DecideNextStep reads goal_achieved and blocking_error from state; the worker never plans
func (w *Worker) DecideNextStep(_ context.Context, _ string, state map[string]any, _ []HistoryEntry) *Decision {
	if achieved, _ := state["goal_achieved"].(bool); achieved {
		return NewDecision(DecisionDone, "Goal appears to be achieved based on current state.")
	}
	if blocking, ok := state["blocking_error"]; ok && blocking != nil && blocking != "" && blocking != false {
		return NewDecision(DecisionError, fmt.Sprintf("Blocking error: %v", blocking))
	}
	return NewDecision(DecisionImplement, "Ready to implement next instruction.")
}

// ImplementStep runs the instruction and tags the response with the attempt number
func (w *Worker) ImplementStep(ctx context.Context, in *Instruction) *agent.Response {
	w.last = in
	w.attempts++

	resp := w.agent.Execute(ctx, BuildImplementationPrompt(in), "")
	if resp.Metadata == nil {
		resp.Metadata = map[string]any{}
	}
	resp.Metadata["instruction"] = truncate(in.Prompt, 200)
	resp.Metadata["attempt"] = w.attempts
	return resp
}

// BuildImplementationPrompt renders in for the worker agent, omitting empty sections
func BuildImplementationPrompt(in *Instruction) string {
	parts := []string{"You are a WORKER implementing code.", "", "INSTRUCTION:", in.Prompt}

	if in.Context != "" {
		parts = append(parts, "", "CONTEXT:", in.Context)
	}
	if len(in.FilesToModify) > 0 {
		parts = append(parts, "", "FILES TO MODIFY:", bulletLines(in.FilesToModify))
	}
	if len(in.FilesToCreate) > 0 {
		parts = append(parts, "", "FILES TO CREATE:", bulletLines(in.FilesToCreate))
	}
	if len(in.Constraints) > 0 {
		parts = append(parts, "", "CONSTRAINTS:", bulletLines(in.Constraints))
	}
	if in.ExpectedOutcome != "" {
		parts = append(parts, "", "EXPECTED OUTCOME:", in.ExpectedOutcome)
	}

	parts = append(parts,
		"",
		"Implement the instruction carefully and completely.",
		"Create or modify files as needed.",
		"Report any issues encountered.",
	)
	return strings.Join(parts, "\n")
}

// VerifyImplementation is a local self-check without calling the agent
func (w *Worker) VerifyImplementation(_ context.Context, in *Instruction, resp *agent.Response) *VerificationResult {
	var issues []string
	if !resp.Success {
		issues = append(issues, "Execution failed: "+resp.Error)
	}
	if resp.ExitCode != 0 {
		issues = append(issues, fmt.Sprintf("Non-zero exit code: %d", resp.ExitCode))
	}
	if missing := missingFiles(in.FilesToCreate, resp.FilesCreated); len(missing) > 0 {
		issues = append(issues, "Expected files not created: "+strings.Join(missing, ", "))
	}

	return &VerificationResult{
		Passed:      len(issues) == 0 && resp.Success,
		Score:       max(0, 1-0.25*float64(len(issues))),
		Issues:      orEmpty(issues),
		Suggestions: []string{},
		Details:     map[string]any{},
	}
}

func missingFiles(expected, created []string) []string {
	have := make(map[string]bool, len(created))
	for _, f := range created {
		have[f] = true
	}
	seen := map[string]bool{}
	var missing []string
	for _, f := range expected {
		if !have[f] && !seen[f] {
			seen[f] = true
			missing = append(missing, f)
		}
	}
	sort.Strings(missing)
	return missing
}

// CreateCorrection builds a templated fix-up instruction. Files to create are
// folded into files to modify.
func (w *Worker) CreateCorrection(_ context.Context, original *Instruction, issues []string) *Instruction {
	prompt := fmt.Sprintf(`Fix the issues from the previous attempt:

Original task: %s

Issues to fix:
%s

Make the necessary corrections.`, original.Prompt, bulletLines(issues))

	files := append(append([]string{}, original.FilesToModify...), original.FilesToCreate...)
	return &Instruction{
		Prompt:          prompt,
		Context:         original.Context,
		FilesToModify:   files,
		FilesToCreate:   []string{},
		Constraints:     append([]string{}, original.Constraints...),
		ExpectedOutcome: original.ExpectedOutcome,
		MaxAttempts:     max(0, original.MaxAttempts-1),
	}
}

func (w *Worker) ExecuteTests(ctx context.Context, testCommand string) *agent.Response {
	prompt := fmt.Sprintf(`Execute the following test command:

%s

Run the tests and provide a summary of:
- Number of tests passed
- Number of tests failed
- Any errors or failures`, testCommand)
	return w.agent.Execute(ctx, prompt, "")
}

func (w *Worker) ApplyFix(ctx context.Context, filePath, description string) *agent.Response {
	prompt := fmt.Sprintf(`Apply the following fix to %s:

%s

Make the change and confirm it was applied.`, filePath, description)
	return w.agent.Execute(ctx, prompt, "")
}

func (w *Worker) RefactorCode(ctx context.Context, filePath, refactorType, details string) *agent.Response {
	detailLine := ""
	if details != "" {
		detailLine = "Details: " + details
	}
	prompt := fmt.Sprintf(`Refactor the code in %s.

Refactoring type: %s
%s

Apply the refactoring while maintaining functionality.`, filePath, refactorType, detailLine)
	return w.agent.Execute(ctx, prompt, "")
}

// GenerateDocumentation defaults docType to "docstring"
func (w *Worker) GenerateDocumentation(ctx context.Context, target, docType string) *agent.Response {
	if docType == "" {
		docType = "docstring"
	}
	prompt := fmt.Sprintf(`Generate %s documentation for:

%s

Create clear, comprehensive documentation.`, docType, target)
	return w.agent.Execute(ctx, prompt, "")
}
