package results

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elektrokombinacija/drone-delivery-sim/internal/sim"
)

func TestSQLiteStore_RecordAndList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "results.sqlite")
	store, err := OpenSQLite(path)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	runs := []Summary{
		{RunID: "a", Planner: "astar", Completed: true, Steps: 20, Deliveries: 2, TotalReward: 102, RecordedAt: base},
		{RunID: "b", Planner: "csp", Completed: true, Steps: 24, Retries: 3, Deliveries: 2, TotalReward: 96, RecordedAt: base.Add(time.Second)},
		{RunID: "c", Planner: "astar", Completed: false, Steps: 5000, Aborted: "max-steps", TotalReward: -4800, RecordedAt: base.Add(2 * time.Second)},
	}
	for _, r := range runs {
		require.NoError(t, store.Record(ctx, r))
	}

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, runs, all)

	astar, err := store.List(ctx, "astar")
	require.NoError(t, err)
	require.Len(t, astar, 2)
	assert.Equal(t, "c", astar[1].RunID)
	assert.False(t, astar[1].Completed)

	// Same run id replaces the row.
	runs[0].TotalReward = 110
	require.NoError(t, store.Record(ctx, runs[0]))
	astar, err = store.List(ctx, "astar")
	require.NoError(t, err)
	require.Len(t, astar, 2)
	assert.Equal(t, 110.0, astar[0].TotalReward)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.sqlite")
	store, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, store.Record(context.Background(), Summary{Planner: "mdp", Completed: true}))
	require.NoError(t, store.Close())

	store, err = OpenSQLite(path)
	require.NoError(t, err)
	defer store.Close()
	got, err := store.List(context.Background(), "mdp")
	require.NoError(t, err)
	require.Len(t, got, 1)
	_, err = uuid.Parse(got[0].RunID)
	assert.NoError(t, err, "missing run ids are generated")
}

func TestNewSummary(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := &sim.Metrics{
		Planner: "qlearn", Completed: true, Steps: 12, Deliveries: 1, TotalReward: 49,
		StartTime: start, EndTime: start.Add(1500 * time.Millisecond),
	}
	s := NewSummary("", m)
	_, err := uuid.Parse(s.RunID)
	assert.NoError(t, err)
	assert.Equal(t, "qlearn", s.Planner)
	assert.Equal(t, 1500.0, s.ElapsedMs)
	assert.Equal(t, m.EndTime, s.RecordedAt)

	assert.Equal(t, "fixed", NewSummary("fixed", m).RunID)
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	_, err := OpenSQLite("")
	assert.Error(t, err)
}
