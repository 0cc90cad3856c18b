package algo

import (
	"math"

	"github.com/elektrokombinacija/drone-delivery-sim/internal/core"
)

// Immediate rewards used by value iteration.
const (
	UtilityNoFly    = -20.0
	UtilityObstacle = -10.0
	UtilityGoal     = 30.0
	UtilityStep     = -1.0
)

// Value iteration defaults.
const (
	DefaultConvergence = 0.1   // Max-delta threshold that ends value iteration
	DefaultMaxSweeps   = 10000 // Sweep cap when convergence is slow
)

// GoalKind says which half of a delivery the utility table targets.
type GoalKind int

const (
	PickupGoal  GoalKind = iota // Goal rewards only when not carrying
	DropoffGoal                 // Goal rewards only when carrying
)

// UtilityTable is the result of value iteration for one goal.
type UtilityTable struct {
	N      int
	Goal   core.Cell
	Sweeps int     // Sweeps until convergence
	Delta  float64 // Max change in the final sweep
	values []float64
}

// At returns U(c). Cells off the grid have utility -Inf.
func (u *UtilityTable) At(c core.Cell) float64 {
	if c.X < 0 || c.X >= u.N || c.Y < 0 || c.Y >= u.N {
		return math.Inf(-1)
	}
	return u.values[c.Y*u.N+c.X]
}

// ValueIterationPlanner plans by value iteration over the whole grid. The
// backup evaluates a uniformly random choice among available actions:
//
//	U(s) = max(R(s), mean_a U_prev(T(s, a)))
//
// It is recomputed for every goal.
type ValueIterationPlanner struct {
	Epsilon   float64 // Convergence threshold on max |U - U_prev|
	MaxSweeps int     // Safety bound; 0 means unbounded
}

// NewValueIteration creates a planner with the default threshold and sweep cap.
func NewValueIteration() *ValueIterationPlanner {
	return &ValueIterationPlanner{Epsilon: DefaultConvergence, MaxSweeps: DefaultMaxSweeps}
}

func (p *ValueIterationPlanner) Name() string { return "mdp" }

// reward is the immediate reward of standing on c.
func reward(w *core.World, c, goal core.Cell, kind GoalKind, carrying bool) float64 {
	switch {
	case w.IsNoFly(c):
		return UtilityNoFly
	case w.IsObstacle(c):
		return UtilityObstacle
	case c == goal:
		if (kind == PickupGoal) != carrying {
			return UtilityGoal
		}
		return UtilityStep
	default:
		return UtilityStep
	}
}

// Solve runs synchronous value iteration for goal until the largest change
// in a sweep drops below Epsilon.
func (p *ValueIterationPlanner) Solve(w *core.World, goal core.Cell, kind GoalKind) *UtilityTable {
	n := w.GridSize()
	eps := p.Epsilon
	if eps <= 0 {
		eps = DefaultConvergence
	}
	carrying := w.IsCarrying()

	rewards := make([]float64, n*n)
	prev := make([]float64, n*n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			c := core.Cell{X: x, Y: y}
			rewards[y*n+x] = reward(w, c, goal, kind, carrying)
			prev[y*n+x] = math.Inf(-1)
		}
	}

	u := &UtilityTable{N: n, Goal: goal}
	next := make([]float64, n*n)
	for {
		maxChange := 0.0
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				i := y*n + x
				best := rewards[i]
				if m, ok := meanNeighbors(prev, n, x, y); ok && m > best {
					best = m
				}
				next[i] = best
				maxChange = math.Max(maxChange, change(best, prev[i]))
			}
		}
		prev, next = next, prev
		u.Sweeps++
		u.Delta = maxChange
		if maxChange < eps || (p.MaxSweeps > 0 && u.Sweeps >= p.MaxSweeps) {
			break
		}
	}
	u.values = prev
	return u
}

// meanNeighbors averages the previous utilities of in-bounds neighbours.
// A -Inf neighbour makes the mean -Inf.
func meanNeighbors(prev []float64, n, x, y int) (float64, bool) {
	sum, count := 0.0, 0
	for _, d := range core.Directions() {
		dx, dy := d.Delta()
		nx, ny := x+dx, y+dy
		if nx < 0 || nx >= n || ny < 0 || ny >= n {
			continue
		}
		sum += prev[ny*n+nx]
		count++
	}
	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

// change is |a - b| with -Inf on the previous side counted as unbounded.
func change(cur, prev float64) float64 {
	if math.IsInf(prev, -1) {
		if math.IsInf(cur, -1) {
			return 0
		}
		return math.Inf(1)
	}
	return math.Abs(cur - prev)
}

// Greedy returns the in-bounds neighbour of from with the highest utility.
// Ties go to the first in {RIGHT, UP, LEFT, DOWN} order.
func (u *UtilityTable) Greedy(from core.Cell) (core.Direction, core.Cell, bool) {
	var (
		bestDir  core.Direction
		bestCell core.Cell
		found    bool
		bestU    = math.Inf(-1)
	)
	for _, d := range core.Directions() {
		c := from.Step(d)
		if c.X < 0 || c.X >= u.N || c.Y < 0 || c.Y >= u.N {
			continue
		}
		if v := u.At(c); !found || v > bestU {
			bestDir, bestCell, bestU, found = d, c, v, true
		}
	}
	return bestDir, bestCell, found
}

// Rollout follows the greedy policy from start until it reaches the goal or
// maxSteps moves have been made.
func (u *UtilityTable) Rollout(start core.Cell, maxSteps int) core.Path {
	var path core.Path
	cur := start
	for i := 0; i < maxSteps && cur != u.Goal; i++ {
		_, c, ok := u.Greedy(cur)
		if !ok {
			break
		}
		path = append(path, c)
		cur = c
	}
	return path
}

// Plan solves for the next goal and returns the greedy rollout towards it.
// When the drone already stands on the goal it steps to the best neighbour
// and back. The rollout is bounded by 4*N*N moves; a rollout that does not end on the
// goal is still returned so the driver can execute it and re-plan.
func (p *ValueIterationPlanner) Plan(w *core.World, reg *core.TaskRegistry) core.Path {
	goal, ok := NextGoal(w, reg)
	if !ok {
		return nil
	}
	kind := PickupGoal
	if w.IsCarrying() {
		kind = DropoffGoal
	}
	u := p.Solve(w, goal, kind)
	if goal == w.Position() {
		return reentryPath(w, goal,
			func(core.Cell) bool { return true },
			func(c core.Cell) float64 { return -u.At(c) })
	}
	n := w.GridSize()
	return u.Rollout(w.Position(), 4*n*n)
}
