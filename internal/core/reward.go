package core

import "fmt"

// RewardTable holds the reward for each move outcome.
type RewardTable struct {
	PickUp        float64 `yaml:"pickup"`
	PickUpFailed  float64 `yaml:"pickup_failed"`
	DropOff       float64 `yaml:"dropoff"`
	DropOffFailed float64 `yaml:"dropoff_failed"`
	Obstacle      float64 `yaml:"obstacle"`
	NoFlyZone     float64 `yaml:"no_fly"`
	Move          float64 `yaml:"move"`
	OutOfBounds   float64 `yaml:"out_of_bounds"`
}

// DefaultRewardTable returns the standard reward values.
func DefaultRewardTable() RewardTable {
	return RewardTable{
		PickUp:        10,
		PickUpFailed:  -1,
		DropOff:       50,
		DropOffFailed: -1,
		Obstacle:      -10,
		NoFlyZone:     -20,
		Move:          -1,
		OutOfBounds:   -1, // A failed move
	}
}

// For returns the reward for an outcome kind.
func (t RewardTable) For(k OutcomeKind) float64 {
	switch k {
	case OutcomeMove:
		return t.Move
	case OutcomePickUp:
		return t.PickUp
	case OutcomePickUpFailed:
		return t.PickUpFailed
	case OutcomeDropOff:
		return t.DropOff
	case OutcomeDropOffFailed:
		return t.DropOffFailed
	case OutcomeObstacle:
		return t.Obstacle
	case OutcomeNoFlyZone:
		return t.NoFlyZone
	case OutcomeOutOfBounds:
		return t.OutOfBounds
	default:
		panic(fmt.Sprintf("core: unknown outcome kind %d", int(k)))
	}
}

// RewardModel accumulates the reward of one episode.
type RewardModel struct {
	table RewardTable
	total float64
}

// NewRewardModel creates a model with the given table.
func NewRewardModel(table RewardTable) *RewardModel {
	return &RewardModel{table: table}
}

// Apply adds the reward for o to the episode total and returns it.
func (m *RewardModel) Apply(o MoveOutcome) float64 {
	r := m.table.For(o.Kind)
	m.total += r
	return r
}

// Total returns the accumulated episode reward.
func (m *RewardModel) Total() float64 {
	return m.total
}

// Reset zeroes the accumulator.
func (m *RewardModel) Reset() {
	m.total = 0
}

// Table returns the reward table in use.
func (m *RewardModel) Table() RewardTable {
	return m.table
}
