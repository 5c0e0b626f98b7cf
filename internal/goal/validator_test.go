package goal

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/agent"
)

func TestValidator_NoAgent(t *testing.T) {
	g := NewGoal("G", "", []string{"done already", "not yet"}, nil, nil)
	g.AcceptanceCriteria[0].MarkCompleted()

	res := NewValidator(nil, false).Validate(context.Background(), g, nil)

	require.Len(t, res.CriteriaResults, 2)
	assert.True(t, res.CriteriaResults[0].Passed)
	assert.Equal(t, 0.9, res.CriteriaResults[0].Confidence)
	assert.Equal(t, "Marked as completed", res.CriteriaResults[0].Evidence)

	assert.False(t, res.CriteriaResults[1].Passed)
	assert.Equal(t, 0.5, res.CriteriaResults[1].Confidence)
	assert.Equal(t, []string{"No validator available for this criterion"}, res.CriteriaResults[1].Issues)

	assert.InDelta(t, 0.45, res.OverallScore, 1e-9)
	assert.Equal(t, ValidationPartiallyAchieved, res.Status)
	assert.Equal(t, 1, res.PassedCount())
	assert.Equal(t, 2, res.TotalCount())
	assert.Equal(t, 0.5, res.PassRate())

	assert.True(t, strings.HasPrefix(res.Summary, "Validated 2 criteria: 1 passed, 1 pending/failed."))
	assert.Contains(t, res.Summary, "  - not yet...")
	assert.Equal(t, []string{
		"Complete the 1 remaining acceptance criteria.",
		"Address the following issues:",
		"  - No validator available for this criterion",
		"Consider adding quality requirements to the goal.",
	}, res.Recommendations)
}

func TestValidator_WithAgent(t *testing.T) {
	fake := agent.NewFake(agent.TypeClaude,
		agent.OK("```json\n{\"passed\": true, \"confidence\": 0.8, \"evidence\": \"tests pass\", \"issues\": []}\n```"),
		agent.OK(`{"passed": false, "confidence": 0.2, "evidence": "missing", "issues": ["no flag parsing"]}`),
	)
	g := NewGoal("G", "", []string{"a", "b"}, []string{"tested"}, nil)

	res := NewValidator(fake, false).Validate(context.Background(), g, map[string]any{"files": []string{"main.go"}})

	assert.Equal(t, 2, fake.Calls())
	assert.Contains(t, fake.Prompts[0], "CRITERION:\na")
	assert.Contains(t, fake.Prompts[0], "files:\n  - main.go")

	assert.True(t, res.CriteriaResults[0].Passed)
	assert.Equal(t, "tests pass", res.CriteriaResults[0].Evidence)
	assert.False(t, res.CriteriaResults[1].Passed)
	assert.InDelta(t, 0.4, res.OverallScore, 1e-9)
	assert.NotContains(t, res.Recommendations, "Consider adding quality requirements to the goal.")

	UpdateGoalStatus(g, res)
	assert.True(t, g.AcceptanceCriteria[0].Completed)
	assert.Equal(t, StatusFailed, g.AcceptanceCriteria[1].Status)
}

func TestValidator_AgentFailures(t *testing.T) {
	fake := agent.NewFake(agent.TypeClaude,
		agent.ErrorResponse("boom", 1),
		agent.OK("definitely not json"),
	)
	v := NewValidator(fake, false)
	c := &AcceptanceCriterion{ID: "AC-1", Description: "x"}

	r := v.ValidateCriterion(context.Background(), c, nil)
	assert.False(t, r.Passed)
	assert.Equal(t, 0.0, r.Confidence)
	assert.Equal(t, "Validation failed: boom", r.Evidence)

	r = v.ValidateCriterion(context.Background(), c, nil)
	assert.False(t, r.Passed)
	assert.Equal(t, 0.0, r.Confidence)
	assert.True(t, strings.HasPrefix(r.Evidence, "Failed to parse validation:"))
}

func TestValidator_CustomTag(t *testing.T) {
	fake := agent.NewFake(agent.TypeClaude)
	v := NewValidator(fake, false)
	v.RegisterValidator("manual", func(_ context.Context, c *AcceptanceCriterion, _ map[string]any) CriterionValidation {
		return CriterionValidation{Criterion: c, Passed: true, Confidence: 1, Evidence: "checked by hand"}
	})

	c := &AcceptanceCriterion{ID: "AC-1", Description: "x", Tags: []string{"other", "manual"}}
	r := v.ValidateCriterion(context.Background(), c, nil)
	assert.True(t, r.Passed)
	assert.Equal(t, "checked by hand", r.Evidence)
	assert.Equal(t, 0, fake.Calls())
}

func TestValidator_Status(t *testing.T) {
	results := func(passed, total int) []CriterionValidation {
		out := make([]CriterionValidation, total)
		for i := range out {
			out[i] = CriterionValidation{Passed: i < passed, Confidence: 1}
		}
		return out
	}
	lenient := NewValidator(nil, false)
	strict := NewValidator(nil, true)

	assert.Equal(t, ValidationNotStarted, lenient.status(nil, 0))
	assert.Equal(t, ValidationNotStarted, lenient.status(results(0, 3), 0))
	assert.Equal(t, ValidationInProgress, lenient.status(results(0, 3), 0.1))
	assert.Equal(t, ValidationAchieved, strict.status(results(3, 3), 1))

	assert.Equal(t, ValidationAchieved, lenient.status(results(4, 5), 0.8))
	assert.Equal(t, ValidationPartiallyAchieved, strict.status(results(4, 5), 0.8))
	assert.Equal(t, ValidationPartiallyAchieved, lenient.status(results(1, 2), 0.5))
	assert.Equal(t, ValidationInProgress, lenient.status(results(1, 3), 0.3))
	assert.Equal(t, ValidationInProgress, strict.status(results(1, 3), 0.3))
}

func TestFormatContext(t *testing.T) {
	assert.Equal(t, "No additional context provided.", FormatContext(nil))

	out := FormatContext(map[string]any{
		"output": strings.Repeat("x", 300),
		"state":  map[string]any{"iteration": 2},
		"files":  []string{"a.go", "b.go"},
	})
	parts := strings.Split(out, "\n\n")
	require.Len(t, parts, 3)
	assert.Equal(t, "files:\n  - a.go\n  - b.go", parts[0])
	assert.Equal(t, "output: "+strings.Repeat("x", 200), parts[1])
	assert.Equal(t, "state:\n{\n  \"iteration\": 2\n}", parts[2])
}
