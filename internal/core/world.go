package core

import "errors"

// ErrWorldComplete is returned by TryMove once every delivery is done.
var ErrWorldComplete = errors.New("world complete")

// Phase is the delivery state of the drone relative to its tasks.
type Phase int

const (
	SeekingPickup  Phase = iota // Not carrying, pick-ups pending
	SeekingDropoff              // Carrying a package
	Complete                    // Nothing left to do
)

func (p Phase) String() string {
	return [...]string{"seeking-pickup", "seeking-dropoff", "complete"}[p]
}

// WorldConfig holds the fixed parameters of a simulation run.
type WorldConfig struct {
	GridSize int  // Side length N of the square grid
	Origin   Cell // Drone start cell
	TimeStep int  // Minutes advanced by Step
}

// DefaultWorldConfig returns a 20x20 grid starting at (0,0) with 10-minute steps.
func DefaultWorldConfig() WorldConfig {
	return WorldConfig{GridSize: 20, TimeStep: DefaultTimeStep}
}

// World is the environment state machine. It owns the drone state and the
// hazard sets derived from the schedule; the schedule, registry and reward
// model are owned by whoever builds the run.
type World struct {
	cfg      WorldConfig
	schedule *EventSchedule
	registry *TaskRegistry
	rewards  *RewardModel

	pos      Cell
	carrying TaskID
	carries  bool
	now      SimTime

	obstacles       CellSet
	noFly           CellSet
	futureObstacles CellSet
	futureNoFly     CellSet
}

// NewWorld builds a world and resets it to its initial state.
func NewWorld(cfg WorldConfig, schedule *EventSchedule, registry *TaskRegistry, rewards *RewardModel) *World {
	if cfg.TimeStep <= 0 {
		cfg.TimeStep = DefaultTimeStep
	}
	if rewards == nil {
		rewards = NewRewardModel(DefaultRewardTable())
	}
	w := &World{
		cfg:      cfg,
		schedule: schedule,
		registry: registry,
		rewards:  rewards,
	}
	w.Reset()
	return w
}

// Reset restores the drone to the origin at 00:00 and resets the registry
// and reward model to their baselines.
func (w *World) Reset() {
	w.pos = w.cfg.Origin
	w.carrying = 0
	w.carries = false
	w.now = 0
	w.registry.Reset()
	w.rewards.Reset()
	w.deriveHazards()
}

// AdvanceTime moves the clock forward by quantum minutes (mod 24h) and
// re-derives all hazard sets. It does nothing once the world is complete.
func (w *World) AdvanceTime(quantum int) {
	if w.IsComplete() {
		return
	}
	w.now = w.now.Add(quantum)
	w.deriveHazards()
}

// Tick advances the clock by the configured time step.
func (w *World) Tick() {
	w.AdvanceTime(w.cfg.TimeStep)
}

func (w *World) deriveHazards() {
	cur := w.schedule.CurrentPattern(w.now)
	next := w.schedule.NextPattern(w.now)
	w.obstacles = w.withoutDeliveryPoints(cur.Obstacles)
	w.noFly = w.withoutDeliveryPoints(cur.NoFly)
	w.futureObstacles = w.withoutDeliveryPoints(next.Obstacles)
	w.futureNoFly = w.withoutDeliveryPoints(next.NoFly)
}

// withoutDeliveryPoints copies src, dropping pending pick-up/drop-off cells.
func (w *World) withoutDeliveryPoints(src CellSet) CellSet {
	out := make(CellSet, len(src))
	for c := range src {
		if !w.registry.IsDeliveryPoint(c) {
			out[c] = struct{}{}
		}
	}
	return out
}

// TryMove attempts to move the drone one cell. Hazards never block the move;
// only the grid boundary does. Time is not advanced.
//
// Once the world is complete TryMove leaves every piece of state untouched
// and returns ErrWorldComplete. There is no outcome kind for "nothing
// happened", and a zero MoveOutcome would read as a plain move, so a caller
// that keeps moving past completion is told so instead of being scored.
func (w *World) TryMove(d Direction) (MoveOutcome, error) {
	if !d.Valid() {
		return MoveOutcome{}, ErrInvalidDirection
	}
	if w.IsComplete() {
		return MoveOutcome{}, ErrWorldComplete
	}
	target := w.pos.Step(d)
	if !w.InBounds(target) {
		return MoveOutcome{Kind: OutcomeOutOfBounds}, nil
	}
	w.pos = target

	pickup, isPickup := w.registry.PickupAt(target)
	dropoff, isDropoff := w.registry.DropoffAt(target)
	switch {
	case isPickup && !w.carries:
		w.registry.Claim(target)
		w.carrying, w.carries = pickup, true
		w.deriveHazards()
		return MoveOutcome{Kind: OutcomePickUp, Task: pickup}, nil
	case isDropoff && w.carries && dropoff == w.carrying:
		// A drop-off may share its cell with another task's pick-up.
		w.registry.Fulfil(target, dropoff)
		w.carrying, w.carries = 0, false
		w.deriveHazards()
		return MoveOutcome{Kind: OutcomeDropOff, Task: dropoff}, nil
	case isPickup:
		return MoveOutcome{Kind: OutcomePickUpFailed}, nil
	case isDropoff:
		return MoveOutcome{Kind: OutcomeDropOffFailed}, nil
	case w.obstacles.Has(target):
		return MoveOutcome{Kind: OutcomeObstacle}, nil
	case w.noFly.Has(target):
		return MoveOutcome{Kind: OutcomeNoFlyZone}, nil
	}
	return MoveOutcome{Kind: OutcomeMove}, nil
}

// Step performs one full agent turn: move, score the outcome and advance
// the clock by the configured time step.
func (w *World) Step(d Direction) (MoveOutcome, float64, error) {
	o, err := w.TryMove(d)
	if err != nil {
		return o, 0, err
	}
	r := w.rewards.Apply(o)
	w.Tick()
	return o, r, nil
}

// IsComplete is true iff no pick-ups are pending and nothing is carried.
func (w *World) IsComplete() bool {
	return !w.registry.HasPendingPickups() && !w.carries
}

// Phase returns the delivery phase of the drone.
func (w *World) Phase() Phase {
	switch {
	case w.carries:
		return SeekingDropoff
	case w.registry.HasPendingPickups():
		return SeekingPickup
	default:
		return Complete
	}
}

// Position returns the drone cell.
func (w *World) Position() Cell { return w.pos }

// IsCarrying reports whether the drone holds a package.
func (w *World) IsCarrying() bool { return w.carries }

// Carrying returns the carried task, if any.
func (w *World) Carrying() (TaskID, bool) { return w.carrying, w.carries }

// Time returns the current simulated minute of day.
func (w *World) Time() SimTime { return w.now }

// FormattedTime returns the clock as HH:MM.
func (w *World) FormattedTime() string { return w.now.String() }

// GridSize returns the grid side length.
func (w *World) GridSize() int { return w.cfg.GridSize }

// Config returns the world configuration.
func (w *World) Config() WorldConfig { return w.cfg }

// Registry returns the task registry the world was built with.
func (w *World) Registry() *TaskRegistry { return w.registry }

// Rewards returns the reward model the world was built with.
func (w *World) Rewards() *RewardModel { return w.rewards }

// Schedule returns the hazard schedule.
func (w *World) Schedule() *EventSchedule { return w.schedule }

// InBounds reports whether c lies on the grid.
func (w *World) InBounds(c Cell) bool {
	return c.X >= 0 && c.X < w.cfg.GridSize && c.Y >= 0 && c.Y < w.cfg.GridSize
}

// IsObstacle reports whether c is a currently active obstacle.
func (w *World) IsObstacle(c Cell) bool { return w.obstacles.Has(c) }

// IsNoFly reports whether c is a currently active no-fly cell.
func (w *World) IsNoFly(c Cell) bool { return w.noFly.Has(c) }

// IsHazard reports whether c is currently an obstacle or no-fly cell.
func (w *World) IsHazard(c Cell) bool {
	return w.obstacles.Has(c) || w.noFly.Has(c)
}

// IsFutureHazard reports whether c is hazardous in the next schedule pattern.
func (w *World) IsFutureHazard(c Cell) bool {
	return w.futureObstacles.Has(c) || w.futureNoFly.Has(c)
}

// CurrentObstacles returns a snapshot of the active obstacles.
func (w *World) CurrentObstacles() CellSet { return w.obstacles.Clone() }

// CurrentNoFly returns a snapshot of the active no-fly cells.
func (w *World) CurrentNoFly() CellSet { return w.noFly.Clone() }

// FutureObstacles returns a snapshot of the next pattern's obstacles.
func (w *World) FutureObstacles() CellSet { return w.futureObstacles.Clone() }

// FutureNoFly returns a snapshot of the next pattern's no-fly cells.
func (w *World) FutureNoFly() CellSet { return w.futureNoFly.Clone() }

// Snapshot is a read-only copy of the world for renderers and traces.
type Snapshot struct {
	Time            string
	Position        Cell
	Carrying        bool
	Task            TaskID
	Obstacles       []Cell
	NoFly           []Cell
	FutureObstacles []Cell
	FutureNoFly     []Cell
	Pickups         map[Cell]TaskID
	Dropoffs        map[Cell]TaskID
	TotalReward     float64
}

// Snapshot captures the current state.
func (w *World) Snapshot() Snapshot {
	return Snapshot{
		Time:            w.FormattedTime(),
		Position:        w.pos,
		Carrying:        w.carries,
		Task:            w.carrying,
		Obstacles:       w.obstacles.Sorted(),
		NoFly:           w.noFly.Sorted(),
		FutureObstacles: w.futureObstacles.Sorted(),
		FutureNoFly:     w.futureNoFly.Sorted(),
		Pickups:         w.registry.PendingPickups(),
		Dropoffs:        w.registry.PendingDropoffs(),
		TotalReward:     w.rewards.Total(),
	}
}
