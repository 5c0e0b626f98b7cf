package role

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/agent"
)

func TestParseDecisionType(t *testing.T) {
	tests := []struct {
		in      string
		want    DecisionType
		wantErr bool
	}{
		{"IMPLEMENT", DecisionImplement, false},
		{"done", DecisionDone, false},
		{" Correct ", DecisionCorrect, false},
		{"retry", DecisionRetry, false},
		{"launch", DecisionError, true},
		{"", DecisionError, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDecisionType(tt.in)
			assert.Equal(t, tt.want, got)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMaster_DecideNextStep(t *testing.T) {
	fake := agent.NewFake(agent.TypeClaude, agent.OK("```json\n"+`{
  "decision_type": "IMPLEMENT",
  "instruction": "Create main.go",
  "reason": "nothing exists yet",
  "expected_outcome": "a runnable binary"
}`+"\n```"))
	m := NewMaster(fake)

	d := m.DecideNextStep(context.Background(), "# Goal", nil, nil)
	assert.Equal(t, DecisionImplement, d.Type)
	assert.Equal(t, "Create main.go", d.Instruction)
	assert.Equal(t, "nothing exists yet", d.Reason)
	assert.Equal(t, "a runnable binary", d.ExpectedOutcome)
	assert.Equal(t, 1, d.Priority)

	prompt := fake.LastPrompt()
	assert.Contains(t, prompt, "GOAL:\n# Goal")
	assert.Contains(t, prompt, "Initial state - no previous work.")
	assert.Contains(t, prompt, "No previous steps.")
}

func TestMaster_DecideNextStepFailures(t *testing.T) {
	fake := agent.NewFake(agent.TypeClaude,
		agent.ErrorResponse("rate limited", 1),
		agent.OK("I think we should implement something"),
		agent.OK(`{"decision_type": "PONDER"}`),
	)
	m := NewMaster(fake)
	ctx := context.Background()

	d := m.DecideNextStep(ctx, "g", nil, nil)
	assert.Equal(t, DecisionError, d.Type)
	assert.Equal(t, "Failed to decide: rate limited", d.Reason)

	d = m.DecideNextStep(ctx, "g", nil, nil)
	assert.Equal(t, DecisionError, d.Type)
	assert.True(t, strings.HasPrefix(d.Reason, "Failed to parse decision:"))

	d = m.DecideNextStep(ctx, "g", nil, nil)
	assert.Equal(t, DecisionError, d.Type)
}

func TestMaster_VerifyImplementation(t *testing.T) {
	fake := agent.NewFake(agent.TypeCodex,
		agent.OK(`{"passed": false, "score": 0.4, "issues": ["missing tests"], "suggestions": ["add tests"]}`),
		agent.ErrorResponse("timeout", -1),
		agent.OK("looks fine to me"),
	)
	m := NewMaster(fake)
	ctx := context.Background()
	in := NewInstruction("Add tests", "tests exist")
	resp := &agent.Response{Success: true, Output: "done", FilesCreated: []string{"a_test.go"}}

	v := m.VerifyImplementation(ctx, in, resp)
	assert.False(t, v.Passed)
	assert.Equal(t, 0.4, v.Score)
	assert.Equal(t, []string{"missing tests"}, v.Issues)
	assert.Equal(t, []string{"add tests"}, v.Suggestions)
	assert.Contains(t, fake.Prompts[0], "Files Created: a_test.go")
	assert.Contains(t, fake.Prompts[0], "Errors: None")

	v = m.VerifyImplementation(ctx, in, resp)
	assert.False(t, v.Passed)
	assert.Equal(t, 0.0, v.Score)
	assert.Equal(t, []string{"Verification failed: timeout"}, v.Issues)

	v = m.VerifyImplementation(ctx, in, resp)
	assert.False(t, v.Passed)
	require.Len(t, v.Issues, 1)
	assert.True(t, strings.HasPrefix(v.Issues[0], "Failed to parse verification:"))
}

func TestMaster_CreateCorrection(t *testing.T) {
	original := &Instruction{
		Prompt:        "Write the parser",
		FilesToModify: []string{"parser.go"},
		FilesToCreate: []string{"parser_test.go"},
		Constraints:   []string{"no regex"},
		MaxAttempts:   3,
	}

	m := NewMaster(agent.NewFake(agent.TypeClaude, agent.OK("Rewrite the parser without panics")))
	c := m.CreateCorrection(context.Background(), original, []string{"panics on empty input"})
	assert.Equal(t, "Rewrite the parser without panics", c.Prompt)
	assert.Equal(t, "Correction for: Write the parser", c.Context)
	assert.Equal(t, []string{"parser.go"}, c.FilesToModify)
	assert.Equal(t, []string{"parser_test.go"}, c.FilesToCreate)
	assert.Equal(t, []string{"no regex", "Fix all previously identified issues"}, c.Constraints)
	assert.Equal(t, 2, c.MaxAttempts)
	assert.Equal(t, []string{"no regex"}, original.Constraints, "original is not mutated")

	m = NewMaster(agent.NewFake(agent.TypeClaude, agent.ErrorResponse("down", 1)))
	c = m.CreateCorrection(context.Background(), original, []string{"a", "b"})
	assert.Equal(t, "Fix the following issues in the previous implementation:\n- a\n- b", c.Prompt)

	original.MaxAttempts = 0
	c = m.CreateCorrection(context.Background(), original, nil)
	assert.Equal(t, 0, c.MaxAttempts)
}

func TestMaster_AnalyzeCodebase(t *testing.T) {
	fake := agent.NewFake(agent.TypeClaude,
		agent.OK(`{"structure": "flat"}`),
		agent.OK("A small Go project."),
		agent.ErrorResponse("no agent", -2),
		agent.OK("Summary:\n```json\n{“entry”: “main.go”}\n```"),
	)
	m := NewMaster(fake)
	ctx := context.Background()

	assert.Equal(t, map[string]any{"structure": "flat"}, m.AnalyzeCodebase(ctx, ".", []string{"cli"}))
	assert.Contains(t, fake.LastPrompt(), "Focus on: cli")
	assert.Equal(t, map[string]any{"analysis": "A small Go project."}, m.AnalyzeCodebase(ctx, ".", nil))
	assert.Equal(t, map[string]any{"error": "no agent"}, m.AnalyzeCodebase(ctx, ".", nil))
	// fenced output with smart quotes decodes like every other master reply
	assert.Equal(t, map[string]any{"entry": "main.go"}, m.AnalyzeCodebase(ctx, ".", nil))
}

func TestSummarizeHistory(t *testing.T) {
	var history []HistoryEntry
	for i := 0; i < 7; i++ {
		history = append(history, HistoryEntry{Instruction: strings.Repeat("x", 150), Success: i%2 == 0})
	}
	history[6].Instruction = "last"

	out := SummarizeHistory(history)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Step 1: "+strings.Repeat("x", 100)+"... [SUCCESS]", lines[0])
	assert.Equal(t, "Step 5: last... [SUCCESS]", lines[4])
	assert.Equal(t, "Step 4: "+strings.Repeat("x", 100)+"... [FAILED]", lines[3])
}

func TestFormatState(t *testing.T) {
	out := FormatState(map[string]any{
		"pending_criteria": []string{"a", "b", "c", "d", "e", "f"},
		"iteration":        3,
		"goal_progress":    50.0,
	})
	assert.Equal(t, "goal_progress: 50\niteration: 3\npending_criteria: a, b, c, d, e", out)
}

func TestWorker_ImplementStep(t *testing.T) {
	fake := agent.NewFake(agent.TypeCodex, agent.OK("done"), agent.OK("again"))
	w := NewWorker(fake)
	in := &Instruction{
		Prompt:          strings.Repeat("p", 250),
		Context:         "ctx",
		FilesToCreate:   []string{"new.go"},
		ExpectedOutcome: "it works",
		MaxAttempts:     3,
	}

	resp := w.ImplementStep(context.Background(), in)
	assert.Equal(t, strings.Repeat("p", 200), resp.Metadata["instruction"])
	assert.Equal(t, 1, resp.Metadata["attempt"])
	assert.Same(t, in, w.LastInstruction())

	resp = w.ImplementStep(context.Background(), in)
	assert.Equal(t, 2, resp.Metadata["attempt"])
	assert.Equal(t, 2, w.Attempts())

	w.ResetAttempts()
	assert.Equal(t, 0, w.Attempts())
	assert.Nil(t, w.LastInstruction())
}

func TestBuildImplementationPrompt(t *testing.T) {
	in := &Instruction{Prompt: "Do it", FilesToModify: []string{"a.go"}, Constraints: []string{"fast"}}
	assert.Equal(t, `You are a WORKER implementing code.

INSTRUCTION:
Do it

FILES TO MODIFY:
- a.go

CONSTRAINTS:
- fast

Implement the instruction carefully and completely.
Create or modify files as needed.
Report any issues encountered.`, BuildImplementationPrompt(in))
}

func TestWorker_VerifyImplementation(t *testing.T) {
	w := NewWorker(agent.NewFake(agent.TypeCodex))
	in := &Instruction{FilesToCreate: []string{"b.go", "a.go", "c.go"}}

	ok := w.VerifyImplementation(context.Background(), in, &agent.Response{Success: true, FilesCreated: []string{"a.go", "b.go", "c.go"}})
	assert.True(t, ok.Passed)
	assert.Equal(t, 1.0, ok.Score)

	bad := w.VerifyImplementation(context.Background(), in, &agent.Response{Success: false, Error: "crash", ExitCode: 2, FilesCreated: []string{"a.go"}})
	assert.False(t, bad.Passed)
	assert.Equal(t, []string{
		"Execution failed: crash",
		"Non-zero exit code: 2",
		"Expected files not created: b.go, c.go",
	}, bad.Issues)
	assert.InDelta(t, 0.25, bad.Score, 1e-9)
}

func TestWorker_CreateCorrection(t *testing.T) {
	w := NewWorker(agent.NewFake(agent.TypeCodex))
	original := &Instruction{Prompt: "task", Context: "c", FilesToModify: []string{"a.go"}, FilesToCreate: []string{"b.go"}, MaxAttempts: 1}

	c := w.CreateCorrection(context.Background(), original, []string{"broken"})
	assert.Contains(t, c.Prompt, "Original task: task")
	assert.Contains(t, c.Prompt, "Issues to fix:\n- broken")
	assert.Equal(t, []string{"a.go", "b.go"}, c.FilesToModify)
	assert.Empty(t, c.FilesToCreate)
	assert.Equal(t, "c", c.Context)
	assert.Equal(t, 0, c.MaxAttempts)
}

func TestWorker_DecideNextStep(t *testing.T) {
	w := NewWorker(agent.NewFake(agent.TypeCodex))
	ctx := context.Background()

	assert.Equal(t, DecisionDone, w.DecideNextStep(ctx, "", map[string]any{"goal_achieved": true}, nil).Type)

	d := w.DecideNextStep(ctx, "", map[string]any{"blocking_error": "disk full"}, nil)
	assert.Equal(t, DecisionError, d.Type)
	assert.Equal(t, "Blocking error: disk full", d.Reason)

	assert.Equal(t, DecisionImplement, w.DecideNextStep(ctx, "", nil, nil).Type)
}

func TestWorker_Extras(t *testing.T) {
	fake := agent.NewFake(agent.TypeCodex)
	w := NewWorker(fake)
	ctx := context.Background()

	w.ExecuteTests(ctx, "go test ./...")
	assert.Contains(t, fake.LastPrompt(), "go test ./...")

	w.ApplyFix(ctx, "main.go", "handle nil")
	assert.Contains(t, fake.LastPrompt(), "Apply the following fix to main.go:")

	w.RefactorCode(ctx, "main.go", "extract function", "")
	assert.NotContains(t, fake.LastPrompt(), "Details:")

	w.GenerateDocumentation(ctx, "func Foo()", "")
	assert.Contains(t, fake.LastPrompt(), "Generate docstring documentation for:")
	assert.Equal(t, 4, fake.Calls())
}
