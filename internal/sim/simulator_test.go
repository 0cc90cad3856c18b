package sim

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elektrokombinacija/drone-delivery-sim/internal/algo"
	"github.com/elektrokombinacija/drone-delivery-sim/internal/core"
	"github.com/elektrokombinacija/drone-delivery-sim/internal/runlog"
)

func createScenario(t *testing.T, n int, patterns []core.HazardPattern, tasks []core.DeliveryTask) *core.Scenario {
	t.Helper()
	sched, err := core.NewEventSchedule(patterns)
	require.NoError(t, err)
	s := core.NewScenario(n, sched, tasks)
	require.NoError(t, s.Validate())
	return s
}

func twoTaskScenario(t *testing.T) *core.Scenario {
	return createScenario(t, 6,
		[]core.HazardPattern{
			{Start: 0, End: 120, Obstacles: core.NewCellSet(core.Cell{X: 1, Y: 1}, core.Cell{X: 2, Y: 2})},
			{Start: 120, End: 240, NoFly: core.NewCellSet(core.Cell{X: 3, Y: 3}, core.Cell{X: 4, Y: 1})},
		},
		[]core.DeliveryTask{
			{ID: 1, Pickup: core.Cell{X: 5, Y: 0}, Dropoff: core.Cell{X: 0, Y: 5}},
			{ID: 2, Pickup: core.Cell{X: 4, Y: 4}, Dropoff: core.Cell{X: 1, Y: 2}},
		})
}

type sliceRecorder struct{ recs []runlog.StepRecord }

func (r *sliceRecorder) Record(rec runlog.StepRecord) error {
	r.recs = append(r.recs, rec)
	return nil
}

func TestRun_PathPlannersComplete(t *testing.T) {
	planners := []algo.PathPlanner{
		algo.NewShortestPath(),
		algo.NewLookaheadConstraint(core.DefaultTimeStep, core.DefaultZoneInterval),
		algo.NewValueIteration(),
	}
	for _, p := range planners {
		t.Run(p.Name(), func(t *testing.T) {
			w, err := twoTaskScenario(t).NewWorld()
			require.NoError(t, err)

			rec := &sliceRecorder{}
			cfg := DefaultConfig()
			cfg.Recorder = rec
			cfg.RunID = "test"

			m, err := NewSimulator(w, p, cfg).Run(context.Background())
			require.NoError(t, err)
			assert.True(t, m.Completed)
			assert.Empty(t, m.Aborted)
			assert.Equal(t, 2, m.Deliveries)
			assert.Equal(t, 2, w.Registry().FulfilledCount())
			assert.Equal(t, p.Name(), m.Planner)
			assert.Positive(t, m.PlanningSuccesses)

			require.Len(t, rec.recs, m.Steps)
			last := rec.recs[len(rec.recs)-1]
			assert.Equal(t, "drop-off", last.Outcome)
			assert.Equal(t, m.TotalReward, last.Total)
			assert.Equal(t, "test", last.RunID)
			assert.Equal(t, m.Steps, m.Outcomes["move"]+m.Outcomes["pick-up"]+m.Outcomes["drop-off"]+
				m.Outcomes["pick-up-failed"]+m.Outcomes["drop-off-failed"]+m.Outcomes["obstacle"]+
				m.Outcomes["no-fly-zone"]+m.Outcomes["out-of-bounds"])
		})
	}
}

func TestRun_ShortestPathRewards(t *testing.T) {
	s := createScenario(t, 5, nil, []core.DeliveryTask{
		{ID: 1, Pickup: core.Cell{X: 3, Y: 3}, Dropoff: core.Cell{X: 0, Y: 4}},
	})
	res, err := RunSimulation(context.Background(), s, algo.NewShortestPath(), DefaultConfig())
	require.NoError(t, err)
	require.True(t, res.Success)

	// 6 steps to the pick-up, 4 to the drop-off.
	assert.Equal(t, 10, res.Metrics.Steps)
	assert.Equal(t, 10.0+50.0-8.0, res.Metrics.TotalReward)
	assert.Equal(t, 90, res.Metrics.SimulatedMinutes)
}

func TestRun_LookaheadWaitsForZoneToClear(t *testing.T) {
	s := createScenario(t, 3,
		[]core.HazardPattern{{Start: 0, End: 60, Obstacles: core.NewCellSet(core.Cell{X: 1, Y: 2}, core.Cell{X: 2, Y: 1})}},
		[]core.DeliveryTask{{ID: 1, Pickup: core.Cell{X: 2, Y: 2}, Dropoff: core.Cell{X: 0, Y: 2}}})
	w, err := s.NewWorld()
	require.NoError(t, err)

	m, err := NewSimulator(w, algo.NewLookaheadConstraint(core.DefaultTimeStep, core.DefaultZoneInterval), DefaultConfig()).
		Run(context.Background())
	require.NoError(t, err)
	assert.True(t, m.Completed)
	assert.Equal(t, 6, m.Retries)
	assert.Zero(t, m.Outcomes["obstacle"])
}

func TestRun_RetriesExhausted(t *testing.T) {
	s := createScenario(t, 3,
		[]core.HazardPattern{{Start: 0, End: 0, Obstacles: core.NewCellSet(core.Cell{X: 1, Y: 2}, core.Cell{X: 2, Y: 1})}},
		[]core.DeliveryTask{{ID: 1, Pickup: core.Cell{X: 2, Y: 2}, Dropoff: core.Cell{X: 0, Y: 2}}})
	w, err := s.NewWorld()
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.MaxRetries = 5
	m, err := NewSimulator(w, algo.NewLookaheadConstraint(core.DefaultTimeStep, core.DefaultZoneInterval), cfg).
		Run(context.Background())
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	require.NotNil(t, m)
	assert.False(t, m.Completed)
	assert.Equal(t, 6, m.Retries)
	assert.Equal(t, AbortRetries, m.Aborted)
	assert.Equal(t, "00:50", w.FormattedTime())
}

func TestRun_QLearnerAfterTraining(t *testing.T) {
	s := createScenario(t, 4,
		[]core.HazardPattern{{Start: 0, End: 0, Obstacles: core.NewCellSet(core.Cell{X: 1, Y: 1})}},
		[]core.DeliveryTask{{ID: 1, Pickup: core.Cell{X: 3, Y: 0}, Dropoff: core.Cell{X: 3, Y: 3}}})
	w, err := s.NewWorld()
	require.NoError(t, err)

	params := algo.QParams{
		Alpha: 0.5, Gamma: 0.9,
		EpsilonInit: 1.0, EpsilonMin: 0.05, EpsilonDecay: 0.99,
		Episodes: 600, MaxSteps: 200, Seed: 3,
	}
	q := algo.NewQLearner(params, nil)
	q.Train(w, w.Registry())

	cfg := DefaultConfig()
	cfg.MaxSteps = 50
	m, err := NewSimulator(w, q, cfg).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, m.Completed)
	assert.Equal(t, 1, m.Deliveries)
	assert.Zero(t, m.Outcomes["obstacle"], "hazards are never legal actions")
}

// stuckPlanner always tries to leave the grid.
type stuckPlanner struct{}

func (stuckPlanner) Name() string { return "stuck" }
func (stuckPlanner) NextAction(*core.World, *core.TaskRegistry) (core.Direction, bool) {
	return core.Up, true
}

func stuckWorld(t *testing.T) *core.World {
	s := createScenario(t, 3, nil, []core.DeliveryTask{{ID: 1, Pickup: core.Cell{X: 2, Y: 2}, Dropoff: core.Cell{X: 0, Y: 2}}})
	w, err := s.NewWorld()
	require.NoError(t, err)
	return w
}

func TestRun_RewardFloor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RewardFloor = -5
	m, err := NewSimulator(stuckWorld(t), stuckPlanner{}, cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, m.Steps)
	assert.Equal(t, AbortRewardFloor, m.Aborted)
	assert.Equal(t, 6, m.Outcomes["out-of-bounds"])
}

func TestRun_MaxSteps(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSteps = 10
	m, err := NewSimulator(stuckWorld(t), stuckPlanner{}, cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, m.Steps)
	assert.Equal(t, AbortMaxSteps, m.Aborted)
	assert.False(t, m.Completed)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m, err := NewSimulator(stuckWorld(t), stuckPlanner{}, DefaultConfig()).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, AbortCancelled, m.Aborted)
	assert.Zero(t, m.Steps)
}

type namedOnly struct{}

func (namedOnly) Name() string { return "nothing" }

func TestRun_UnknownPlannerKind(t *testing.T) {
	_, err := NewSimulator(stuckWorld(t), namedOnly{}, DefaultConfig()).Run(context.Background())
	assert.Error(t, err)
}

func TestRun_TraceFile(t *testing.T) {
	w, err := twoTaskScenario(t).NewWorld()
	require.NoError(t, err)

	tw, err := runlog.NewWriter(t.TempDir(), "trace")
	require.NoError(t, err)
	cfg := DefaultConfig()
	cfg.Recorder = tw
	sim := NewSimulator(w, algo.NewShortestPath(), cfg)
	m, err := sim.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	recs, err := runlog.ReadAll(tw.Path())
	require.NoError(t, err)
	assert.Len(t, recs, m.Steps)
	assert.Equal(t, "trace", recs[0].RunID)

	out := filepath.Join(t.TempDir(), "metrics.json")
	require.NoError(t, sim.ExportMetrics(out))
	assert.FileExists(t, out)
}

// sharedCellScenario drops task 1 onto task 2's pick-up.
func sharedCellScenario(t *testing.T) *core.Scenario {
	return createScenario(t, 4, nil, []core.DeliveryTask{
		{ID: 1, Pickup: core.Cell{X: 1, Y: 0}, Dropoff: core.Cell{X: 2, Y: 0}},
		{ID: 2, Pickup: core.Cell{X: 2, Y: 0}, Dropoff: core.Cell{X: 3, Y: 3}},
	})
}

func TestRun_DropOffOntoNextPickup(t *testing.T) {
	planners := []algo.PathPlanner{
		algo.NewShortestPath(),
		algo.NewLookaheadConstraint(core.DefaultTimeStep, core.DefaultZoneInterval),
		algo.NewValueIteration(),
	}
	for _, p := range planners {
		t.Run(p.Name(), func(t *testing.T) {
			res, err := RunSimulation(context.Background(), sharedCellScenario(t), p, DefaultConfig())
			require.NoError(t, err)
			assert.True(t, res.Success)
			assert.Equal(t, 2, res.Metrics.Deliveries)
			assert.Zero(t, res.Metrics.Retries)
			assert.Zero(t, res.Metrics.Outcomes["pick-up-failed"])
			assert.Equal(t, 2, res.Metrics.Outcomes["pick-up"])
		})
	}
}

func TestRun_DropOffOntoNextPickupRewards(t *testing.T) {
	res, err := RunSimulation(context.Background(), sharedCellScenario(t), algo.NewShortestPath(), DefaultConfig())
	require.NoError(t, err)
	require.True(t, res.Success)

	// Pick-up, drop-off, step off and back onto task 2's pick-up, 4 steps on.
	assert.Equal(t, 8, res.Metrics.Steps)
	assert.Equal(t, 10.0+50.0-1.0+10.0-3.0+50.0, res.Metrics.TotalReward)
}
