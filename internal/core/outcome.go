package core

import "fmt"

// OutcomeKind classifies the result of a single move attempt.
type OutcomeKind int

const (
	OutcomeMove          OutcomeKind = iota // Plain move to a neutral cell
	OutcomePickUp                           // Claimed a package
	OutcomePickUpFailed                     // Reached a pick-up while already carrying
	OutcomeDropOff                          // Delivered the carried package
	OutcomeDropOffFailed                    // Reached a drop-off that does not match the cargo
	OutcomeObstacle                         // Entered an active obstacle cell
	OutcomeNoFlyZone                        // Entered an active no-fly cell
	OutcomeOutOfBounds                      // Move rejected at the grid boundary
)

func (k OutcomeKind) String() string {
	if k < OutcomeMove || k > OutcomeOutOfBounds {
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
	return [...]string{"move", "pick-up", "pick-up-failed", "drop-off", "drop-off-failed",
		"obstacle", "no-fly-zone", "out-of-bounds"}[k]
}

// AllOutcomeKinds lists every kind, in declaration order.
func AllOutcomeKinds() []OutcomeKind {
	return []OutcomeKind{OutcomeMove, OutcomePickUp, OutcomePickUpFailed, OutcomeDropOff,
		OutcomeDropOffFailed, OutcomeObstacle, OutcomeNoFlyZone, OutcomeOutOfBounds}
}

// MoveOutcome is the result of World.TryMove. Task is set only for
// OutcomePickUp and OutcomeDropOff.
type MoveOutcome struct {
	Kind OutcomeKind
	Task TaskID
}

func (o MoveOutcome) String() string {
	switch o.Kind {
	case OutcomePickUp, OutcomeDropOff:
		return fmt.Sprintf("%s(%d)", o.Kind, o.Task)
	default:
		return o.Kind.String()
	}
}
