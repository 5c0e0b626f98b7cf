package goal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGoal() *Goal {
	return NewGoal("Tracker goal", "desc", []string{"one", "two"}, nil, nil)
}

func TestTracker_StartIsIdempotentForIterations(t *testing.T) {
	tr := NewTracker(newTestGoal(), "", false)
	assert.Equal(t, ProgressNotStarted, tr.State())

	tr.Start()
	tr.Start()
	assert.Equal(t, ProgressStarting, tr.State())
	assert.Equal(t, 0, tr.CurrentIteration())
}

func TestTracker_RecordIteration(t *testing.T) {
	tr := NewTracker(newTestGoal(), "", false)
	tr.Start()

	const n = 5
	for i := 0; i < n; i++ {
		rec := tr.RecordIteration(IterationInput{Action: "step", Result: "ok", Success: true, Duration: time.Second})
		assert.Equal(t, i+1, rec.Iteration)
		assert.Equal(t, 1.0, rec.DurationSeconds)
		assert.NotNil(t, rec.FilesChanged)
	}

	assert.Equal(t, n, tr.CurrentIteration())
	assert.Equal(t, ProgressInProgress, tr.State(), "first record leaves STARTING")
	assert.Len(t, tr.History(0), n)
	assert.Len(t, tr.History(2), 2)
	assert.Equal(t, 5, tr.History(2)[1].Iteration)
}

func TestTracker_UpdateCriterion(t *testing.T) {
	tr := NewTracker(newTestGoal(), "", false)
	tr.Start()

	tr.UpdateCriterion("AC-1", StatusCompleted)
	snap := tr.Snapshot()
	assert.Equal(t, 1, snap.CompletedCriteria)
	assert.InDelta(t, 50.0, snap.ProgressPercentage(), 1e-9)
	assert.Equal(t, ProgressStarting, tr.State())

	tr.UpdateCriterion("AC-404", StatusCompleted)
	assert.Equal(t, 1, tr.Snapshot().CompletedCriteria, "unknown IDs are ignored")

	tr.UpdateCriterion("AC-2", StatusCompleted)
	assert.Equal(t, ProgressCompleting, tr.State())
}

func TestTracker_PermissiveTransitions(t *testing.T) {
	tr := NewTracker(newTestGoal(), "", false)
	tr.MarkCompleted()
	tr.MarkBlocked("waiting on review")
	assert.Equal(t, ProgressBlocked, tr.State())
	assert.Contains(t, tr.Summary(), "Blocked: waiting on review")

	tr.Unblock()
	assert.Equal(t, ProgressInProgress, tr.State())
	assert.NotContains(t, tr.Summary(), "Blocked:")

	tr.MarkFailed("gave up")
	assert.Equal(t, ProgressFailed, tr.State())
}

func TestAllowedTransition(t *testing.T) {
	assert.True(t, AllowedTransition(ProgressNotStarted, ProgressStarting))
	assert.True(t, AllowedTransition(ProgressInProgress, ProgressBlocked))
	assert.True(t, AllowedTransition(ProgressBlocked, ProgressBlocked))
	assert.False(t, AllowedTransition(ProgressCompleted, ProgressInProgress))
	assert.False(t, AllowedTransition(ProgressNotStarted, ProgressCompleted))
}

func TestTracker_SaveWithoutPath(t *testing.T) {
	tr := NewTracker(newTestGoal(), "", false)
	_, err := tr.Save("")
	assert.Error(t, err)
}

func TestTracker_AutoSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	tr := NewTracker(newTestGoal(), dir, true)
	tr.Start()
	tr.RecordIteration(IterationInput{Action: "implement", Result: "done", Success: true, FilesChanged: []string{"main.go"}})
	tr.UpdateCriterion("AC-1", StatusCompleted)
	require.NoError(t, tr.LastSaveError())

	path := filepath.Join(dir, ProgressFile)
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "Tracker goal", raw["goal_title"])
	assert.InDelta(t, 50.0, raw["progress_percentage"], 1e-9)
	assert.Contains(t, raw, "duration_seconds")

	loaded := NewTracker(NewGoal("other", "", nil, nil, nil), "", false)
	require.NoError(t, loaded.Load(path))
	assert.Equal(t, 1, loaded.CurrentIteration())
	assert.Equal(t, ProgressInProgress, loaded.State())
	assert.Equal(t, StatusCompleted, loaded.Snapshot().CriteriaStatus["AC-1"])
	assert.Equal(t, []string{"main.go"}, loaded.History(0)[0].FilesChanged)
}

func TestTracker_SyncWithGoal(t *testing.T) {
	g := newTestGoal()
	tr := NewTracker(g, "", false)

	g.AcceptanceCriteria[0].MarkCompleted()
	tr.SyncWithGoal(g)

	snap := tr.Snapshot()
	assert.Equal(t, 1, snap.CompletedCriteria)
	assert.Equal(t, StatusCompleted, snap.CriteriaStatus["AC-1"])
	assert.Equal(t, StatusPending, snap.CriteriaStatus["AC-2"])
}

func TestSummarizeSnapshot(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	s := &Snapshot{
		GoalTitle:         "G",
		State:             ProgressInProgress,
		StartedAt:         start,
		UpdatedAt:         start.Add(90 * time.Second),
		TotalCriteria:     4,
		CompletedCriteria: 1,
		CurrentIteration:  3,
	}
	assert.Equal(t, "Goal: G\nState: in_progress\nProgress: 1/4 (25.0%)\nIterations: 3\nDuration: 1.5 minutes", SummarizeSnapshot(s))
}
