package runlog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "traces")
	w, err := NewWriter(dir, "run-1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "run-1.jsonl.zst"), w.Path())

	recs := []StepRecord{
		{Planner: "astar", Step: 1, Clock: "00:10", Action: "RIGHT", From: [2]int{0, 0}, To: [2]int{1, 0}, Outcome: "move", Reward: -1, Total: -1},
		{Planner: "astar", Step: 2, Clock: "00:20", Action: "DOWN", From: [2]int{1, 0}, To: [2]int{1, 1}, Outcome: "pick-up", Task: 3, Reward: 10, Total: 9, Carrying: true},
	}
	for _, r := range recs {
		require.NoError(t, w.Record(r))
	}
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	got, err := ReadAll(w.Path())
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i := range recs {
		recs[i].RunID = "run-1"
	}
	assert.Equal(t, recs, got)

	assert.ErrorIs(t, w.Record(recs[0]), os.ErrClosed)
}

func TestWriter_EmptyTrace(t *testing.T) {
	w, err := NewWriter(t.TempDir(), "empty")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	got, err := ReadAll(w.Path())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadAll_Missing(t *testing.T) {
	_, err := ReadAll(filepath.Join(t.TempDir(), "nope.jsonl.zst"))
	assert.Error(t, err)
}
