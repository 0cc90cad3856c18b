package algo

import (
	"container/heap"

	"github.com/elektrokombinacija/drone-delivery-sim/internal/core"
)

// LookaheadConstraintPlanner treats hazards as hard constraints. Besides the
// currently active hazards it also refuses cells of the next schedule
// pattern when the drone would arrive there after that pattern activates.
type LookaheadConstraintPlanner struct {
	TimeStep     int // Minutes per step
	ZoneInterval int // Minutes between schedule boundaries
}

// NewLookaheadConstraint creates a planner with the given timing.
func NewLookaheadConstraint(timeStep, zoneInterval int) *LookaheadConstraintPlanner {
	if timeStep <= 0 {
		timeStep = core.DefaultTimeStep
	}
	if zoneInterval <= 0 {
		zoneInterval = core.DefaultZoneInterval
	}
	return &LookaheadConstraintPlanner{TimeStep: timeStep, ZoneInterval: zoneInterval}
}

func (p *LookaheadConstraintPlanner) Name() string { return "csp" }

// Plan finds a constraint-respecting path to the next goal, or an empty path.
func (p *LookaheadConstraintPlanner) Plan(w *core.World, reg *core.TaskRegistry) core.Path {
	goal, ok := NextGoal(w, reg)
	if !ok {
		return nil
	}
	if goal == w.Position() {
		return reentryPath(w, goal,
			func(c core.Cell) bool { return p.allowed(w, c, 1) && p.allowed(w, goal, 2) },
			func(core.Cell) float64 { return 0 })
	}
	return p.FindPath(w, w.Position(), goal)
}

// Activation returns the minute at which the next schedule pattern is
// assumed to take over, measured on the same unwrapped axis as arrival
// estimates: the first interval boundary strictly after the current time.
func (p *LookaheadConstraintPlanner) Activation(now core.SimTime) int {
	t0 := now.Minutes()
	return (t0/p.ZoneInterval + 1) * p.ZoneInterval
}

// Arrival estimates the unwrapped minute at which the drone reaches a cell
// k steps from now.
func (p *LookaheadConstraintPlanner) Arrival(now core.SimTime, k int) int {
	return now.Minutes() + k*p.TimeStep
}

// ZoneActiveAt reports whether c belongs to the next pattern's hazards and
// arrival is at or past that pattern's activation.
func (p *LookaheadConstraintPlanner) ZoneActiveAt(w *core.World, c core.Cell, arrival int) bool {
	if !w.IsFutureHazard(c) {
		return false
	}
	return arrival >= p.Activation(w.Time())
}

// allowed reports whether c can be entered as the k-th step of a path.
func (p *LookaheadConstraintPlanner) allowed(w *core.World, c core.Cell, k int) bool {
	if w.IsHazard(c) {
		return false
	}
	return !p.ZoneActiveAt(w, c, p.Arrival(w.Time(), k))
}

// FindPath searches with uniform step cost and the Manhattan heuristic. The
// step count of a node doubles as its arrival estimate, so neighbour
// validity depends on how the node was reached.
func (p *LookaheadConstraintPlanner) FindPath(w *core.World, start, goal core.Cell) core.Path {
	if start == goal || !w.InBounds(start) || !w.InBounds(goal) {
		return nil
	}

	open := &searchHeap{}
	heap.Init(open)
	seq := 0
	heap.Push(open, &searchNode{cell: start, g: 0, f: core.Manhattan(start, goal), seq: seq})

	gScore := map[core.Cell]int{start: 0}
	parent := make(map[core.Cell]core.Cell)
	closed := make(map[core.Cell]bool)

	for open.Len() > 0 {
		current := heap.Pop(open).(*searchNode)

		if current.cell == goal {
			return reconstructPath(parent, start, goal)
		}
		if closed[current.cell] {
			continue
		}
		closed[current.cell] = true

		k := current.g + 1
		for _, n := range inBoundsNeighbors(w, current.cell) {
			if closed[n] || !p.allowed(w, n, k) {
				continue
			}
			if old, seen := gScore[n]; seen && k >= old {
				continue
			}
			gScore[n] = k
			parent[n] = current.cell
			seq++
			heap.Push(open, &searchNode{cell: n, g: k, f: k + core.Manhattan(n, goal), seq: seq})
		}
	}

	return nil // No valid path under current constraints
}
