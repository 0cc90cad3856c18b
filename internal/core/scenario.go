package core

import (
	"errors"
	"fmt"
)

// ErrInvalidScenario is returned by Scenario.Validate.
var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario bundles everything needed to build a World: the grid, the hazard
// schedule and the delivery tasks.
type Scenario struct {
	Config   WorldConfig
	Schedule *EventSchedule
	Tasks    []DeliveryTask
	Rewards  RewardTable
}

// NewScenario creates a scenario with default world settings.
func NewScenario(gridSize int, schedule *EventSchedule, tasks []DeliveryTask) *Scenario {
	cfg := DefaultWorldConfig()
	cfg.GridSize = gridSize
	return &Scenario{
		Config:   cfg,
		Schedule: schedule,
		Tasks:    tasks,
		Rewards:  DefaultRewardTable(),
	}
}

// Validate checks grid bounds for the origin, every task point and every
// hazard cell, that task ids are unique positive integers, and that no two
// tasks share a pick-up or a drop-off cell.
func (s *Scenario) Validate() error {
	n := s.Config.GridSize
	if n <= 0 {
		return fmt.Errorf("%w: grid size %d", ErrInvalidScenario, n)
	}
	in := func(c Cell) bool { return c.X >= 0 && c.X < n && c.Y >= 0 && c.Y < n }
	if !in(s.Config.Origin) {
		return fmt.Errorf("%w: origin %s outside %dx%d grid", ErrInvalidScenario, s.Config.Origin, n, n)
	}
	seen := make(map[TaskID]bool, len(s.Tasks))
	pickups := make(map[Cell]bool, len(s.Tasks))
	dropoffs := make(map[Cell]bool, len(s.Tasks))
	for _, t := range s.Tasks {
		if t.ID <= 0 {
			return fmt.Errorf("%w: task id %d must be positive", ErrInvalidScenario, t.ID)
		}
		if seen[t.ID] {
			return fmt.Errorf("%w: %w: %d", ErrInvalidScenario, ErrDuplicateTask, t.ID)
		}
		seen[t.ID] = true
		if !in(t.Pickup) || !in(t.Dropoff) {
			return fmt.Errorf("%w: task %d has a point outside the grid", ErrInvalidScenario, t.ID)
		}
		if t.Pickup == t.Dropoff {
			return fmt.Errorf("%w: task %d picks up and drops off at %s", ErrInvalidScenario, t.ID, t.Pickup)
		}
		if pickups[t.Pickup] || dropoffs[t.Dropoff] {
			return fmt.Errorf("%w: task %d shares a delivery point with another task", ErrInvalidScenario, t.ID)
		}
		pickups[t.Pickup], dropoffs[t.Dropoff] = true, true
	}
	for _, p := range s.Schedule.Patterns() {
		for _, set := range []CellSet{p.Obstacles, p.NoFly} {
			for c := range set {
				if !in(c) {
					return fmt.Errorf("%w: hazard %s in %s-%s outside the grid", ErrInvalidScenario, c, p.Start, p.End)
				}
			}
		}
	}
	return nil
}

// NewWorld builds a fresh registry, reward model and world for the scenario.
func (s *Scenario) NewWorld() (*World, error) {
	reg, err := NewTaskRegistry(s.Tasks)
	if err != nil {
		return nil, err
	}
	return NewWorld(s.Config, s.Schedule, reg, NewRewardModel(s.Rewards)), nil
}
