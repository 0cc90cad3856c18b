// Package algo implements the drone planning strategies.
package algo

import (
	"github.com/elektrokombinacija/drone-delivery-sim/internal/core"
)

// Planner is the common interface of all planning strategies.
type Planner interface {
	// Name returns the strategy name.
	Name() string
}

// PathPlanner produces a full path towards the drone's next goal.
// An empty path means no path exists under the current constraints; the
// caller should advance time and ask again.
type PathPlanner interface {
	Planner
	Plan(w *core.World, reg *core.TaskRegistry) core.Path
}

// StepPlanner produces one action at a time. ok is false when the planner
// has nothing to suggest.
type StepPlanner interface {
	Planner
	NextAction(w *core.World, reg *core.TaskRegistry) (d core.Direction, ok bool)
}

// NextGoal returns the cell the drone should head for: the drop-off of the
// carried package, or otherwise the nearest pending pick-up (ties go to the
// lowest task id).
func NextGoal(w *core.World, reg *core.TaskRegistry) (core.Cell, bool) {
	if id, carrying := w.Carrying(); carrying {
		return reg.DropoffFor(id)
	}
	return ClosestPickup(w.Position(), reg.PendingPickups())
}

// ClosestPickup picks the point nearest to from by Manhattan distance.
func ClosestPickup(from core.Cell, points map[core.Cell]core.TaskID) (core.Cell, bool) {
	var (
		best   core.Cell
		bestID core.TaskID
		bestD  = -1
	)
	for c, id := range points {
		d := core.Manhattan(from, c)
		if bestD < 0 || d < bestD || (d == bestD && id < bestID) {
			best, bestID, bestD = c, id, d
		}
	}
	return best, bestD >= 0
}

// PathToDirections converts a path starting next to start into moves.
// Conversion stops at the first non-adjacent step.
func PathToDirections(start core.Cell, path core.Path) []core.Direction {
	dirs := make([]core.Direction, 0, len(path))
	cur := start
	for _, c := range path {
		d, ok := core.DirectionTo(cur, c)
		if !ok {
			break
		}
		dirs = append(dirs, d)
		cur = c
	}
	return dirs
}

// inBoundsNeighbors returns the in-bounds neighbours of c in the fixed
// {RIGHT, UP, LEFT, DOWN} order.
func inBoundsNeighbors(w *core.World, c core.Cell) []core.Cell {
	out := make([]core.Cell, 0, 4)
	for _, d := range core.Directions() {
		n := c.Step(d)
		if w.InBounds(n) {
			out = append(out, n)
		}
	}
	return out
}

// reconstructPath walks parent links back from goal, excluding start.
func reconstructPath(parent map[core.Cell]core.Cell, start, goal core.Cell) core.Path {
	var path core.Path
	for c := goal; c != start; c = parent[c] {
		path = append(path, c)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// reentryPath steps from start onto the cheapest neighbour accepted by ok
// and straight back. A pick-up triggers only when its cell is entered, so a
// drone that delivers onto another task's pick-up has to leave and return.
// Ties keep the {RIGHT, UP, LEFT, DOWN} order; nil when no neighbour is ok.
func reentryPath(w *core.World, start core.Cell, ok func(core.Cell) bool, cost func(core.Cell) float64) core.Path {
	var (
		best  core.Cell
		bestC float64
		found bool
	)
	for _, n := range inBoundsNeighbors(w, start) {
		if !ok(n) {
			continue
		}
		if c := cost(n); !found || c < bestC {
			best, bestC, found = n, c, true
		}
	}
	if !found {
		return nil
	}
	return core.Path{best, start}
}
