package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndList(t *testing.T) {
	store := openStore(t)
	base := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	for i := 1; i <= 4; i++ {
		require.NoError(t, store.Record("sess1", Row{
			Iteration:          i,
			Timestamp:          base.Add(time.Duration(i) * time.Minute),
			DecisionType:       "implement",
			Instruction:        "step",
			Success:            i%2 == 0,
			VerificationPassed: i%2 == 0,
			Score:              float64(i) / 4,
		}))
	}
	require.NoError(t, store.Record("sess2", Row{Iteration: 1, DecisionType: "done"}))

	all, err := store.List("sess1", 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, 1, all[0].Iteration)
	assert.Equal(t, 4, all[3].Iteration)
	assert.True(t, all[1].Success)
	assert.False(t, all[0].VerificationPassed)
	assert.InDelta(t, 0.75, all[2].Score, 1e-9)
	assert.True(t, base.Add(time.Minute).Equal(all[0].Timestamp))

	last, err := store.List("sess1", 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, 3, last[0].Iteration)
	assert.Equal(t, 4, last[1].Iteration)

	none, err := store.List("missing", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSessions(t *testing.T) {
	store := openStore(t)
	old := time.Now().Add(-time.Hour)

	require.NoError(t, store.Record("old", Row{Iteration: 1, Timestamp: old, DecisionType: "implement", Success: true}))
	require.NoError(t, store.Record("old", Row{Iteration: 2, Timestamp: old.Add(time.Minute), DecisionType: "skip"}))
	require.NoError(t, store.Record("new", Row{Iteration: 1, DecisionType: "done", Success: true}))

	sessions, err := store.Sessions()
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "new", sessions[0].ID)
	assert.Equal(t, "old", sessions[1].ID)
	assert.Equal(t, 2, sessions[1].Iterations)
	assert.Equal(t, 1, sessions[1].Successes)
	assert.True(t, sessions[1].FirstAt.Before(sessions[1].LastAt))
}

func TestRecordRequiresSession(t *testing.T) {
	store := openStore(t)
	assert.Error(t, store.Record("", Row{Iteration: 1}))
}

func TestReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Record("s", Row{Iteration: 1, DecisionType: "implement"}))
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()
	rows, err := store.List("s", 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
