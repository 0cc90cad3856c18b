// Package core defines the domain model for the drone delivery simulation.
package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidDirection is returned for a direction outside {UP, DOWN, LEFT, RIGHT}.
var ErrInvalidDirection = errors.New("invalid direction")

// Cell is a grid coordinate. (0,0) is the top-left corner.
type Cell struct {
	X, Y int
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Step returns the neighbouring cell in direction d. Bounds are not checked.
func (c Cell) Step(d Direction) Cell {
	dx, dy := d.Delta()
	return Cell{X: c.X + dx, Y: c.Y + dy}
}

// Manhattan returns the L1 distance between two cells.
func Manhattan(a, b Cell) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Direction is one of the four moves available to the drone.
type Direction int

const (
	Up    Direction = iota // y - 1
	Down                   // y + 1
	Left                   // x - 1
	Right                  // x + 1
)

func (d Direction) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Direction(%d)", int(d))
	}
	return [...]string{"UP", "DOWN", "LEFT", "RIGHT"}[d]
}

// Valid reports whether d is one of the four defined directions.
func (d Direction) Valid() bool {
	return d >= Up && d <= Right
}

// Delta returns the (dx, dy) offset of a direction.
func (d Direction) Delta() (int, int) {
	switch d {
	case Up:
		return 0, -1
	case Down:
		return 0, 1
	case Left:
		return -1, 0
	case Right:
		return 1, 0
	default:
		return 0, 0
	}
}

// Directions returns the fixed action enumeration used wherever ties are
// broken by first-found order.
func Directions() []Direction {
	return []Direction{Right, Up, Left, Down}
}

// ParseDirection converts "UP", "down", ... into a Direction.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "UP":
		return Up, nil
	case "DOWN":
		return Down, nil
	case "LEFT":
		return Left, nil
	case "RIGHT":
		return Right, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// DirectionTo returns the direction leading from a to an adjacent cell b.
func DirectionTo(a, b Cell) (Direction, bool) {
	for _, d := range Directions() {
		if a.Step(d) == b {
			return d, true
		}
	}
	return 0, false
}

// CellSet is an unordered set of cells.
type CellSet map[Cell]struct{}

// NewCellSet builds a set from a list of cells.
func NewCellSet(cells ...Cell) CellSet {
	s := make(CellSet, len(cells))
	for _, c := range cells {
		s[c] = struct{}{}
	}
	return s
}

// Has reports membership. A nil set contains nothing.
func (s CellSet) Has(c Cell) bool {
	_, ok := s[c]
	return ok
}

// Add inserts c.
func (s CellSet) Add(c Cell) {
	s[c] = struct{}{}
}

// Clone returns an independent copy; never nil.
func (s CellSet) Clone() CellSet {
	out := make(CellSet, len(s))
	for c := range s {
		out[c] = struct{}{}
	}
	return out
}

// Sorted returns the cells ordered by X, then Y.
func (s CellSet) Sorted() []Cell {
	cells := make([]Cell, 0, len(s))
	for c := range s {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].X != cells[j].X {
			return cells[i].X < cells[j].X
		}
		return cells[i].Y < cells[j].Y
	})
	return cells
}

// Path is a sequence of cells from the successor of the start up to and
// including the goal. An empty path means no path was found.
type Path []Cell

// Goal returns the last cell of the path.
func (p Path) Goal() (Cell, bool) {
	if len(p) == 0 {
		return Cell{}, false
	}
	return p[len(p)-1], true
}
