package algo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elektrokombinacija/drone-delivery-sim/internal/core"
)

func TestValueIteration_Converges(t *testing.T) {
	w := createWorld(t, 5, core.Cell{}, nil, []core.DeliveryTask{
		{ID: 1, Pickup: core.Cell{X: 4, Y: 4}, Dropoff: core.Cell{X: 0, Y: 4}},
	})
	p := NewValueIteration()

	u := p.Solve(w, core.Cell{X: 4, Y: 4}, PickupGoal)
	assert.Greater(t, u.Sweeps, 1)
	assert.Less(t, u.Delta, p.Epsilon)
	assert.Greater(t, u.At(core.Cell{X: 4, Y: 4}), u.At(core.Cell{}))
	assert.True(t, math.IsInf(u.At(core.Cell{X: -1, Y: 0}), -1))
}

func TestValueIteration_GreedyReachesGoal(t *testing.T) {
	w := createWorld(t, 5, core.Cell{}, nil, []core.DeliveryTask{
		{ID: 1, Pickup: core.Cell{X: 4, Y: 4}, Dropoff: core.Cell{X: 0, Y: 4}},
	})
	p := NewValueIteration()

	path := p.Plan(w, w.Registry())
	require.NotEmpty(t, path)
	assertGoal(t, core.Cell{X: 4, Y: 4}, path)
	assertContiguous(t, w, w.Position(), path)
	assert.LessOrEqual(t, len(path), 4*5*5)
}

func TestValueIteration_PhaseMismatchHasNoGoalReward(t *testing.T) {
	w := createWorld(t, 4, core.Cell{}, nil, []core.DeliveryTask{
		{ID: 1, Pickup: core.Cell{X: 3, Y: 3}, Dropoff: core.Cell{X: 0, Y: 3}},
	})
	p := NewValueIteration()

	// Not carrying, so a drop-off goal is worth a plain step.
	u := p.Solve(w, core.Cell{X: 3, Y: 3}, DropoffGoal)
	assert.Equal(t, 2, u.Sweeps)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			assert.Equal(t, UtilityStep, u.At(core.Cell{X: x, Y: y}))
		}
	}
}

func TestValueIteration_GreedyTieOrder(t *testing.T) {
	w := createWorld(t, 3, core.Cell{}, nil, []core.DeliveryTask{
		{ID: 1, Pickup: core.Cell{X: 2, Y: 2}, Dropoff: core.Cell{X: 0, Y: 2}},
	})
	u := NewValueIteration().Solve(w, core.Cell{X: 2, Y: 2}, DropoffGoal)

	// Every cell holds the same utility, so RIGHT wins from the centre.
	d, c, ok := u.Greedy(core.Cell{X: 1, Y: 1})
	require.True(t, ok)
	assert.Equal(t, core.Right, d)
	assert.Equal(t, core.Cell{X: 2, Y: 1}, c)

	// UP comes next when RIGHT is off the grid.
	d, _, _ = u.Greedy(core.Cell{X: 2, Y: 1})
	assert.Equal(t, core.Up, d)
}

func TestValueIteration_HazardRewards(t *testing.T) {
	w := createWorld(t, 4, core.Cell{},
		[]core.HazardPattern{wholeDay([]core.Cell{{X: 1, Y: 0}}, []core.Cell{{X: 0, Y: 1}})},
		[]core.DeliveryTask{{ID: 1, Pickup: core.Cell{X: 3, Y: 3}, Dropoff: core.Cell{X: 0, Y: 3}}})

	assert.Equal(t, UtilityObstacle, reward(w, core.Cell{X: 1, Y: 0}, core.Cell{X: 3, Y: 3}, PickupGoal, false))
	assert.Equal(t, UtilityNoFly, reward(w, core.Cell{X: 0, Y: 1}, core.Cell{X: 3, Y: 3}, PickupGoal, false))
	assert.Equal(t, UtilityGoal, reward(w, core.Cell{X: 3, Y: 3}, core.Cell{X: 3, Y: 3}, PickupGoal, false))
	assert.Equal(t, UtilityGoal, reward(w, core.Cell{X: 3, Y: 3}, core.Cell{X: 3, Y: 3}, DropoffGoal, true))
	assert.Equal(t, UtilityStep, reward(w, core.Cell{X: 2, Y: 2}, core.Cell{X: 3, Y: 3}, PickupGoal, false))
}
