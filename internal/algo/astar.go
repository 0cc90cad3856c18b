package algo

import (
	"container/heap"

	"github.com/elektrokombinacija/drone-delivery-sim/internal/core"
)

// Movement costs for entering a cell.
const (
	CostPlain    = 1
	CostObstacle = 10
	CostNoFly    = 20
)

// searchNode for priority queue.
type searchNode struct {
	cell  core.Cell
	g     int // Cost so far
	f     int // g + h
	seq   int // insertion order, breaks f ties
	index int // heap index
}

// searchHeap implements heap.Interface. Equal f-scores pop in insertion order.
type searchHeap []*searchNode

func (h searchHeap) Len() int { return len(h) }
func (h searchHeap) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	return h[i].seq < h[j].seq
}
func (h searchHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *searchHeap) Push(x any) {
	n := x.(*searchNode)
	n.index = len(*h)
	*h = append(*h, n)
}
func (h *searchHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return x
}

// ShortestPathPlanner is A* over the 4-neighbourhood. Hazards are costed,
// not blocking.
type ShortestPathPlanner struct{}

// NewShortestPath creates an A* planner.
func NewShortestPath() *ShortestPathPlanner {
	return &ShortestPathPlanner{}
}

func (p *ShortestPathPlanner) Name() string { return "astar" }

// Plan finds a path to the next goal.
func (p *ShortestPathPlanner) Plan(w *core.World, reg *core.TaskRegistry) core.Path {
	goal, ok := NextGoal(w, reg)
	if !ok {
		return nil
	}
	if goal == w.Position() {
		return reentryPath(w, goal,
			func(core.Cell) bool { return true },
			func(c core.Cell) float64 { return float64(MoveCost(w, c)) })
	}
	return p.FindPath(w, w.Position(), goal)
}

// MoveCost returns the cost of entering c under the world's current hazards.
// A cell that is both obstacle and no-fly costs as no-fly.
func MoveCost(w *core.World, c core.Cell) int {
	switch {
	case w.IsNoFly(c):
		return CostNoFly
	case w.IsObstacle(c):
		return CostObstacle
	default:
		return CostPlain
	}
}

// PathCost sums MoveCost over every cell of the path.
func PathCost(w *core.World, path core.Path) int {
	total := 0
	for _, c := range path {
		total += MoveCost(w, c)
	}
	return total
}

// FindPath runs A* from start to goal with the Manhattan heuristic, which is
// admissible because every step costs at least 1. It returns the cells after
// start up to goal, or nil when goal is unreachable or equal to start.
func (p *ShortestPathPlanner) FindPath(w *core.World, start, goal core.Cell) core.Path {
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

		for _, n := range inBoundsNeighbors(w, current.cell) {
			if closed[n] {
				continue
			}
			g := current.g + MoveCost(w, n)
			if old, seen := gScore[n]; seen && g >= old {
				continue
			}
			gScore[n] = g
			parent[n] = current.cell
			seq++
			heap.Push(open, &searchNode{cell: n, g: g, f: g + core.Manhattan(n, goal), seq: seq})
		}
	}

	return nil // No path found
}
