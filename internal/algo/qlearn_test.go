package algo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elektrokombinacija/drone-delivery-sim/internal/core"
)

func testQParams() QParams {
	return QParams{
		Alpha:        0.5,
		Gamma:        0.9,
		EpsilonInit:  1.0,
		EpsilonMin:   0.05,
		EpsilonDecay: 0.99,
		Episodes:     600,
		MaxSteps:     200,
		Seed:         7,
	}
}

func TestQLearner_TrainsAndCompletes(t *testing.T) {
	w := createWorld(t, 4, core.Cell{}, nil, []core.DeliveryTask{
		{ID: 1, Pickup: core.Cell{X: 3, Y: 0}, Dropoff: core.Cell{X: 3, Y: 3}},
	})
	l := NewQLearner(testQParams(), nil)

	stats := l.Train(w, w.Registry())
	require.Len(t, stats, 600)
	assert.InDelta(t, 0.05, l.Epsilon(), 1e-9, "epsilon floors at the minimum")
	assert.True(t, stats[len(stats)-1].Completed)
	assert.Positive(t, l.TableSize())

	// Greedy rollout from a fresh episode.
	w.Reset()
	l.ResetEpisode()
	for i := 0; i < 30 && !w.IsComplete(); i++ {
		d, ok := l.NextAction(w, w.Registry())
		require.True(t, ok)
		_, _, err := w.Step(d)
		require.NoError(t, err)
	}
	assert.True(t, w.IsComplete())
	assert.Equal(t, 1, w.Registry().FulfilledCount())
}

func TestQLearner_EpsilonDecaysOncePerEpisode(t *testing.T) {
	w := createWorld(t, 3, core.Cell{}, nil, []core.DeliveryTask{
		{ID: 1, Pickup: core.Cell{X: 2, Y: 0}, Dropoff: core.Cell{X: 2, Y: 2}},
	})
	params := testQParams()
	params.Episodes = 3
	params.EpsilonInit = 0.8
	params.EpsilonDecay = 0.5
	params.EpsilonMin = 0.01
	l := NewQLearner(params, nil)

	stats := l.Train(w, w.Registry())
	require.Len(t, stats, 3)
	assert.InDelta(t, 0.8, stats[0].Epsilon, 1e-9)
	assert.InDelta(t, 0.4, stats[1].Epsilon, 1e-9)
	assert.InDelta(t, 0.2, stats[2].Epsilon, 1e-9)
	assert.InDelta(t, 0.1, l.Epsilon(), 1e-9)
}

func TestQLearner_Update(t *testing.T) {
	params := testQParams()
	params.Alpha = 0.5
	params.Gamma = 0.5
	l := NewQLearner(params, nil)

	s := QState{Cell: core.Cell{X: 1, Y: 1}}
	sNext := QState{Cell: core.Cell{X: 2, Y: 1}}

	l.Update(s, core.Right, 10, sNext, nil)
	assert.InDelta(t, 5.0, l.Value(s, core.Right), 1e-9)

	l.q[qKey{sNext, core.Down}] = 8
	l.Update(s, core.Right, -1, sNext, []core.Direction{core.Up, core.Down})
	// 5 + 0.5 * (-1 + 0.5*8 - 5)
	assert.InDelta(t, 4.0, l.Value(s, core.Right), 1e-9)

	assert.Zero(t, l.Value(QState{Cell: core.Cell{X: 9, Y: 9}}, core.Left))
}

func TestQLearner_StateKeying(t *testing.T) {
	w := createWorld(t, 3, core.Cell{}, nil, []core.DeliveryTask{
		{ID: 1, Pickup: core.Cell{X: 1, Y: 0}, Dropoff: core.Cell{X: 2, Y: 2}},
	})
	_, err := w.TryMove(core.Right)
	require.NoError(t, err)
	require.True(t, w.IsCarrying())

	split := NewQLearner(testQParams(), nil)
	assert.Equal(t, QState{Cell: core.Cell{X: 1, Y: 0}, Carrying: true}, split.StateOf(w))

	params := testQParams()
	params.AliasPhases = true
	aliased := NewQLearner(params, nil)
	assert.Equal(t, QState{Cell: core.Cell{X: 1, Y: 0}}, aliased.StateOf(w))
}

func TestLegalActions_SkipHazardsAndEdges(t *testing.T) {
	w := createWorld(t, 3, core.Cell{},
		[]core.HazardPattern{wholeDay([]core.Cell{{X: 1, Y: 0}}, nil)},
		[]core.DeliveryTask{{ID: 1, Pickup: core.Cell{X: 2, Y: 2}, Dropoff: core.Cell{X: 0, Y: 2}}})

	assert.Equal(t, []core.Direction{core.Down}, LegalActions(w, core.Cell{}))
	assert.Equal(t, []core.Direction{core.Right, core.Left, core.Down}, LegalActions(w, core.Cell{X: 1, Y: 1}))
}

func TestQLearner_CoastsWhenBoxedIn(t *testing.T) {
	l := NewQLearner(testQParams(), nil)

	boxed := createWorld(t, 3, core.Cell{},
		[]core.HazardPattern{wholeDay([]core.Cell{{X: 1, Y: 0}, {X: 0, Y: 1}}, nil)},
		[]core.DeliveryTask{{ID: 1, Pickup: core.Cell{X: 2, Y: 2}, Dropoff: core.Cell{X: 0, Y: 2}}})
	_, ok := l.NextAction(boxed, boxed.Registry())
	assert.False(t, ok, "nothing to repeat yet")

	open := createWorld(t, 3, core.Cell{}, nil,
		[]core.DeliveryTask{{ID: 1, Pickup: core.Cell{X: 2, Y: 2}, Dropoff: core.Cell{X: 0, Y: 2}}})
	d, ok := l.NextAction(open, open.Registry())
	require.True(t, ok)
	assert.Equal(t, core.Right, d)

	d, ok = l.NextAction(boxed, boxed.Registry())
	require.True(t, ok)
	assert.Equal(t, core.Right, d, "repeats the previous action")
}
