package goal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/errors"
)

const sampleGoal = `# Build a CLI tool

## Description

A small command-line tool
that greets users.

## Acceptance Criteria

- [x] Has a main entry point
- [ ] Prints a greeting
- [X] Accepts a --name flag

## Quality Requirements

- Unit tests for every command
- No global state

## Constraints

- Go only
`

func TestParse(t *testing.T) {
	g, err := Parse(sampleGoal)
	require.NoError(t, err)

	assert.Equal(t, "Build a CLI tool", g.Title)
	assert.Equal(t, "A small command-line tool\nthat greets users.", g.Description)
	require.Len(t, g.AcceptanceCriteria, 3)

	assert.Equal(t, "AC-1", g.AcceptanceCriteria[0].ID)
	assert.Equal(t, "Has a main entry point", g.AcceptanceCriteria[0].Description)
	assert.True(t, g.AcceptanceCriteria[0].Completed)
	assert.Equal(t, StatusCompleted, g.AcceptanceCriteria[0].Status)

	assert.Equal(t, "AC-2", g.AcceptanceCriteria[1].ID)
	assert.False(t, g.AcceptanceCriteria[1].Completed)
	assert.Equal(t, StatusPending, g.AcceptanceCriteria[1].Status)

	assert.True(t, g.AcceptanceCriteria[2].Completed, "uppercase X counts as checked")

	assert.Equal(t, []string{"Unit tests for every command", "No global state"}, g.QualityRequirements)
	assert.Equal(t, []string{"Go only"}, g.Constraints)

	assert.Equal(t, 3, g.TotalCriteria())
	assert.Equal(t, 2, g.CompletedCriteria())
	assert.InDelta(t, 66.666, g.ProgressPercentage(), 0.01)
	assert.False(t, g.IsAchieved())
	assert.Equal(t, sampleGoal, g.RawContent)
}

func TestParse_GermanHeadings(t *testing.T) {
	g, err := Parse("# Ziel\n\n## Beschreibung\n\nEtwas bauen\n\n## Akzeptanzkriterien\n\n- [ ] Eins\n- [x] Zwei\n\n## Einschränkungen\n\n- Keine\n")
	require.NoError(t, err)
	assert.Equal(t, "Ziel", g.Title)
	assert.Equal(t, "Etwas bauen", g.Description)
	require.Len(t, g.AcceptanceCriteria, 2)
	assert.Equal(t, []string{"Keine"}, g.Constraints)
}

func TestParse_Unstructured(t *testing.T) {
	g, err := Parse("Random text without proper markdown structure")
	require.NoError(t, err)
	assert.Equal(t, DefaultTitle, g.Title)
	assert.Empty(t, g.AcceptanceCriteria)
	assert.Equal(t, 0.0, g.ProgressPercentage())
	assert.False(t, g.IsAchieved())
}

func TestParse_Empty(t *testing.T) {
	for _, content := range []string{"", "   \n\t\n"} {
		_, err := Parse(content)
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrCodeGoalEmpty))
	}
}

func TestParse_IgnoresNonCheckboxCriteria(t *testing.T) {
	g, err := Parse("# T\n\n## Acceptance Criteria\n\n- plain bullet\n- [ ] real one\n")
	require.NoError(t, err)
	require.Len(t, g.AcceptanceCriteria, 1)
	assert.Equal(t, "real one", g.AcceptanceCriteria[0].Description)
	assert.Equal(t, "AC-1", g.AcceptanceCriteria[0].ID)
}

func TestParseFile_NotFound(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "missing.md"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeGoalNotFound))
}

func TestGoal_IsAchieved(t *testing.T) {
	g := NewGoal("T", "", []string{"a", "b"}, nil, nil)
	assert.False(t, g.IsAchieved())

	for _, c := range g.AcceptanceCriteria {
		c.MarkCompleted()
	}
	assert.True(t, g.IsAchieved())
	assert.Equal(t, 100.0, g.ProgressPercentage())

	assert.False(t, NewGoal("empty", "", nil, nil, nil).IsAchieved())
}

func TestGoal_NextCriterion(t *testing.T) {
	g := NewGoal("T", "", []string{"first", "second", "third"}, nil, nil)
	g.AcceptanceCriteria[2].Priority = 0
	assert.Equal(t, "third", g.NextCriterion().Description)

	g.AcceptanceCriteria[2].MarkCompleted()
	assert.Equal(t, "first", g.NextCriterion().Description)

	g.AcceptanceCriteria[0].MarkCompleted()
	g.AcceptanceCriteria[1].MarkCompleted()
	assert.Nil(t, g.NextCriterion())
	assert.Empty(t, g.PendingCriteria())
}

func TestGoal_FindCriterion(t *testing.T) {
	g := NewGoal("T", "", []string{"a", "b"}, nil, nil)
	assert.Equal(t, "b", g.FindCriterion("AC-2").Description)
	assert.Nil(t, g.FindCriterion("AC-9"))
}

func TestToMarkdown_RoundTrip(t *testing.T) {
	g, err := Parse(sampleGoal)
	require.NoError(t, err)

	again, err := Parse(ToMarkdown(g))
	require.NoError(t, err)

	assert.Equal(t, g.Title, again.Title)
	assert.Equal(t, g.Description, again.Description)
	assert.Equal(t, g.QualityRequirements, again.QualityRequirements)
	assert.Equal(t, g.Constraints, again.Constraints)
	require.Len(t, again.AcceptanceCriteria, len(g.AcceptanceCriteria))
	for i, c := range g.AcceptanceCriteria {
		assert.Equal(t, c.Description, again.AcceptanceCriteria[i].Description)
		assert.Equal(t, c.Completed, again.AcceptanceCriteria[i].Completed)
		assert.Equal(t, c.ID, again.AcceptanceCriteria[i].ID)
	}
}

func TestToMarkdown_OmitsEmptySections(t *testing.T) {
	md := ToMarkdown(NewGoal("Only title", "", nil, nil, nil))
	assert.Equal(t, "# Only title\n", md)
}

func TestHash(t *testing.T) {
	a := Hash("content")
	assert.Len(t, a, 64)
	assert.Equal(t, a, Hash("content"))
	assert.NotEqual(t, a, Hash("content "))
}

func TestWriteBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "goal.md")
	require.NoError(t, os.WriteFile(path, []byte(sampleGoal), 0o644))

	g, err := ParseFile(path)
	require.NoError(t, err)
	g.FindCriterion("AC-2").MarkCompleted()

	diff, err := WriteBack(path, g)
	require.NoError(t, err)
	assert.Contains(t, diff, "-- [ ] Prints a greeting")
	assert.Contains(t, diff, "+- [x] Prints a greeting")

	reparsed, err := ParseFile(path)
	require.NoError(t, err)
	assert.True(t, reparsed.IsAchieved())

	diff, err = WriteBack(path, reparsed)
	require.NoError(t, err)
	assert.Empty(t, diff, "second write-back is a no-op")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "temp file left behind: %s", e.Name())
	}
}
