package role

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/agent"
)

// Master analyzes state, decides the next step and verifies the worker
type Master struct {
	agent agent.Agent
}

var _ MasterStrategy = (*Master)(nil)

func NewMaster(a agent.Agent) *Master {
	return &Master{agent: a}
}

func (m *Master) Name() string       { return "master" }
func (m *Master) Agent() agent.Agent { return m.agent }

// DecideNextStep asks the agent for the next decision. Failures become ERROR decisions.
func (m *Master) DecideNextStep(ctx context.Context, goalDescription string, state map[string]any, history []HistoryEntry) *Decision {
	prompt := fmt.Sprintf(`You are the MASTER in an AI orchestration system.
Your job is to decide the next step toward achieving a goal.

GOAL:
%s

CURRENT STATE:
%s

HISTORY OF PREVIOUS STEPS:
%s

Based on this information, decide what to do next.

Respond in this exact JSON format:
{
    "decision_type": "IMPLEMENT" | "SKIP" | "DONE" | "RETRY" | "CORRECT",
    "instruction": "Detailed instruction for the worker (if IMPLEMENT/CORRECT/RETRY)",
    "reason": "Why this decision was made",
    "expected_outcome": "What should result from this step"
}

Rules:
- Use DONE if the goal is achieved
- Use IMPLEMENT for new work
- Use SKIP if a step is unnecessary
- Use RETRY if the last step failed but should be retried
- Use CORRECT if the last step had issues that need fixing`,
		goalDescription, FormatState(state), SummarizeHistory(history))

	resp := m.agent.Execute(ctx, prompt, "")
	if !resp.Success {
		return NewDecision(DecisionError, "Failed to decide: "+resp.Error)
	}

	var data struct {
		DecisionType    string `json:"decision_type"`
		Instruction     string `json:"instruction"`
		Reason          string `json:"reason"`
		ExpectedOutcome string `json:"expected_outcome"`
	}
	if err := agent.DecodeJSON(resp.Output, &data); err != nil {
		return NewDecision(DecisionError, fmt.Sprintf("Failed to parse decision: %v", err))
	}

	// unknown decision types fall back to ERROR
	dt, _ := ParseDecisionType(data.DecisionType)
	d := NewDecision(dt, data.Reason)
	d.Instruction = data.Instruction
	d.ExpectedOutcome = data.ExpectedOutcome
	return d
}

// ImplementStep lets the master do the work itself
func (m *Master) ImplementStep(ctx context.Context, in *Instruction) *agent.Response {
	constraints := "None"
	if len(in.Constraints) > 0 {
		constraints = bulletLines(in.Constraints)
	}
	prompt := fmt.Sprintf(`Implement the following:

%s

Context: %s

Expected outcome: %s

Constraints:
%s

Files to modify: %s
Files to create: %s`,
		in.Prompt, in.Context, in.ExpectedOutcome, constraints,
		joinOr(in.FilesToModify, "As needed"), joinOr(in.FilesToCreate, "As needed"))

	return m.agent.Execute(ctx, prompt, "")
}

// VerifyImplementation has the agent judge the worker's response
func (m *Master) VerifyImplementation(ctx context.Context, in *Instruction, resp *agent.Response) *VerificationResult {
	errText := resp.Error
	if errText == "" {
		errText = "None"
	}
	prompt := fmt.Sprintf(`You are verifying an implementation.

ORIGINAL INSTRUCTION:
%s

EXPECTED OUTCOME:
%s

IMPLEMENTATION RESULT:
Success: %t
Output: %s
Files Modified: %s
Files Created: %s
Errors: %s

Verify the implementation and respond in this exact JSON format:
{
    "passed": true | false,
    "score": 0.0 to 1.0,
    "issues": ["list of issues if any"],
    "suggestions": ["list of improvement suggestions"]
}

Be thorough but fair in your assessment.`,
		in.Prompt, in.ExpectedOutcome, resp.Success, resp.Output,
		strings.Join(resp.FilesModified, ", "), strings.Join(resp.FilesCreated, ", "), errText)

	vr := m.agent.Execute(ctx, prompt, "")
	if !vr.Success {
		return &VerificationResult{Issues: []string{"Verification failed: " + vr.Error}, Suggestions: []string{}, Details: map[string]any{}}
	}

	var data struct {
		Passed      bool     `json:"passed"`
		Score       float64  `json:"score"`
		Issues      []string `json:"issues"`
		Suggestions []string `json:"suggestions"`
	}
	if err := agent.DecodeJSON(vr.Output, &data); err != nil {
		return &VerificationResult{Issues: []string{fmt.Sprintf("Failed to parse verification: %v", err)}, Suggestions: []string{}, Details: map[string]any{}}
	}
	return &VerificationResult{
		Passed:      data.Passed,
		Score:       data.Score,
		Issues:      orEmpty(data.Issues),
		Suggestions: orEmpty(data.Suggestions),
		Details:     map[string]any{},
	}
}

// CreateCorrection asks the agent to rewrite the instruction around issues.
// The result carries one attempt fewer than the original, never below zero.
func (m *Master) CreateCorrection(ctx context.Context, original *Instruction, issues []string) *Instruction {
	issuesText := bulletLines(issues)
	prompt := fmt.Sprintf(`Create a correction instruction.

ORIGINAL INSTRUCTION:
%s

ISSUES FOUND:
%s

Create a new instruction that:
1. Addresses all the issues
2. Maintains the original intent
3. Is clear and specific

Respond with just the corrected instruction text.`, original.Prompt, issuesText)

	correction := "Fix the following issues in the previous implementation:\n" + issuesText
	if resp := m.agent.Execute(ctx, prompt, ""); resp.Success {
		correction = resp.Output
	}

	return &Instruction{
		Prompt:          correction,
		Context:         "Correction for: " + original.Prompt,
		FilesToModify:   append([]string{}, original.FilesToModify...),
		FilesToCreate:   append([]string{}, original.FilesToCreate...),
		Constraints:     append(append([]string{}, original.Constraints...), "Fix all previously identified issues"),
		ExpectedOutcome: original.ExpectedOutcome,
		MaxAttempts:     max(0, original.MaxAttempts-1),
	}
}

// AnalyzeCodebase returns the agent's structured overview of workDir
func (m *Master) AnalyzeCodebase(ctx context.Context, workDir string, focus []string) map[string]any {
	focusText := ""
	if len(focus) > 0 {
		focusText = "\nFocus on: " + strings.Join(focus, ", ")
	}
	prompt := fmt.Sprintf(`Analyze the codebase in the current directory.
%s

Provide:
1. Project structure overview
2. Key components and their purposes
3. Entry points
4. Dependencies
5. Potential areas of concern

Respond in JSON format.`, focusText)

	resp := m.agent.Execute(ctx, prompt, workDir)
	if !resp.Success {
		return map[string]any{"error": resp.Error}
	}
	var out map[string]any
	if err := agent.DecodeJSON(resp.Output, &out); err != nil {
		return map[string]any{"analysis": resp.Output}
	}
	return out
}

// SummarizeHistory renders the last five steps for a decision prompt
func SummarizeHistory(history []HistoryEntry) string {
	if len(history) == 0 {
		return "No previous steps."
	}
	if len(history) > 5 {
		history = history[len(history)-5:]
	}
	lines := make([]string, len(history))
	for i, h := range history {
		status := "FAILED"
		if h.Success {
			status = "SUCCESS"
		}
		instruction := h.Instruction
		if instruction == "" {
			instruction = "N/A"
		}
		lines[i] = fmt.Sprintf("Step %d: %s... [%s]", i+1, truncate(instruction, 100), status)
	}
	return strings.Join(lines, "\n")
}

// FormatState renders state as sorted key: value lines; lists show five items at most
func FormatState(state map[string]any) string {
	if len(state) == 0 {
		return "Initial state - no previous work."
	}
	keys := make([]string, 0, len(state))
	for k := range state {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = fmt.Sprintf("%s: %s", k, formatValue(state[k]))
	}
	return strings.Join(lines, "\n")
}

func formatValue(v any) string {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Sprint(v)
	}
	n := min(rv.Len(), 5)
	items := make([]string, n)
	for i := 0; i < n; i++ {
		items[i] = fmt.Sprint(rv.Index(i).Interface())
	}
	return strings.Join(items, ", ")
}

func joinOr(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	return strings.Join(items, ", ")
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
