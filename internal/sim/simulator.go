// Package sim drives a planner against a World until every delivery is done.
//
// Path planners are asked for a full path, which is followed step by step
// and re-planned once consumed. An empty path makes the driver wait one time
// step and ask again. Step planners are asked for one move at a time.

package sim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/elektrokombinacija/drone-delivery-sim/internal/algo"
	"github.com/elektrokombinacija/drone-delivery-sim/internal/core"
	"github.com/elektrokombinacija/drone-delivery-sim/internal/runlog"
)

// ErrRetriesExhausted is returned when a path planner keeps returning empty
// paths for more than MaxRetries consecutive time steps.
var ErrRetriesExhausted = errors.New("no path found within retry limit")

// Abort reasons reported in Metrics.Aborted.
const (
	AbortMaxSteps    = "max-steps"
	AbortNoAction    = "no-action"
	AbortRewardFloor = "reward-floor"
	AbortRetries     = "retries-exhausted"
	AbortCancelled   = "cancelled"
)

// Recorder receives every executed step.
type Recorder interface {
	Record(rec runlog.StepRecord) error
}

// Config bounds a simulation run.
type Config struct {
	// Cap on executed moves
	MaxSteps int

	// Consecutive empty plans tolerated before giving up
	MaxRetries int

	// Step planners stop once the episode reward drops below this
	RewardFloor float64

	// Optional per-step sink
	Recorder Recorder

	// Run identifier copied into step records
	RunID string

	// Nil means slog.Default()
	Logger *slog.Logger
}

// DefaultConfig returns default simulation configuration
func DefaultConfig() Config {
	return Config{
		MaxSteps:    5000,
		MaxRetries:  2 * core.DayMinutes / core.DefaultTimeStep, // Two simulated days
		RewardFloor: -500,
	}
}

// Metrics collects metrics during simulation
type Metrics struct {
	Planner string `json:"planner"`

	// Timing
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	SimulatedMinutes int       `json:"simulated_minutes"`

	// Planning
	PlanningAttempts  int     `json:"planning_attempts"`
	PlanningSuccesses int     `json:"planning_successes"`
	TotalPlanningMs   float64 `json:"total_planning_ms"`
	Retries           int     `json:"retries"` // Empty plans, in total

	// Execution
	Steps       int            `json:"steps"`
	Deliveries  int            `json:"deliveries"`
	TotalReward float64        `json:"total_reward"`
	Outcomes    map[string]int `json:"outcomes"`
	Completed   bool           `json:"completed"`
	Aborted     string         `json:"aborted,omitempty"`
}

// Elapsed returns the wall-clock duration of the run.
func (m *Metrics) Elapsed() time.Duration {
	return m.EndTime.Sub(m.StartTime)
}

// Simulator runs one planner over one world.
type Simulator struct {
	mu sync.Mutex

	config  Config
	world   *core.World
	planner algo.Planner
	logger  *slog.Logger

	metrics Metrics
}

// NewSimulator creates a new simulation instance
func NewSimulator(world *core.World, planner algo.Planner, config Config) *Simulator {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{
		config:  config,
		world:   world,
		planner: planner,
		logger:  logger.With("planner", planner.Name()),
		metrics: Metrics{Planner: planner.Name(), Outcomes: make(map[string]int)},
	}
}

// Run executes the simulation from the world's current state. The returned
// metrics are valid even when an error is returned.
func (s *Simulator) Run(ctx context.Context) (*Metrics, error) {
	s.metrics.StartTime = time.Now()

	var err error
	switch p := s.planner.(type) {
	case algo.PathPlanner:
		err = s.runPaths(ctx, p)
	case algo.StepPlanner:
		err = s.runSteps(ctx, p)
	default:
		err = fmt.Errorf("planner %s implements neither PathPlanner nor StepPlanner", s.planner.Name())
	}

	s.mu.Lock()
	s.metrics.EndTime = time.Now()
	s.metrics.Completed = s.world.IsComplete()
	s.metrics.TotalReward = s.world.Rewards().Total()
	m := s.metrics
	s.mu.Unlock()

	s.logger.Info("simulation finished",
		"completed", m.Completed,
		"steps", m.Steps,
		"deliveries", m.Deliveries,
		"reward", m.TotalReward,
		"retries", m.Retries,
		"clock", s.world.FormattedTime(),
		"aborted", m.Aborted,
	)
	return &m, err
}

func (s *Simulator) runPaths(ctx context.Context, p algo.PathPlanner) error {
	waiting := 0
	for !s.world.IsComplete() {
		if err := ctx.Err(); err != nil {
			s.abort(AbortCancelled)
			return err
		}
		if s.metrics.Steps >= s.config.MaxSteps {
			s.abort(AbortMaxSteps)
			return nil
		}

		dirs := s.plan(p)
		if len(dirs) == 0 {
			waiting++
			s.mu.Lock()
			s.metrics.Retries++
			s.mu.Unlock()
			if waiting > s.config.MaxRetries {
				s.abort(AbortRetries)
				return fmt.Errorf("%w: waited %d steps at %s", ErrRetriesExhausted, waiting-1, s.world.Position())
			}
			s.wait()
			continue
		}
		waiting = 0

		for _, d := range dirs {
			if s.world.IsComplete() || s.metrics.Steps >= s.config.MaxSteps {
				break
			}
			outcome, err := s.step(d)
			if err != nil {
				return err
			}
			// The goal changes after a pick-up or drop-off.
			if outcome.Kind == core.OutcomePickUp || outcome.Kind == core.OutcomeDropOff {
				break
			}
		}
	}
	return nil
}

func (s *Simulator) runSteps(ctx context.Context, p algo.StepPlanner) error {
	for !s.world.IsComplete() {
		if err := ctx.Err(); err != nil {
			s.abort(AbortCancelled)
			return err
		}
		if s.metrics.Steps >= s.config.MaxSteps {
			s.abort(AbortMaxSteps)
			return nil
		}

		d, ok := p.NextAction(s.world, s.world.Registry())
		if !ok {
			s.abort(AbortNoAction)
			return nil
		}
		if _, err := s.step(d); err != nil {
			return err
		}
		if s.world.Rewards().Total() < s.config.RewardFloor {
			s.abort(AbortRewardFloor)
			return nil
		}
	}
	return nil
}

// plan asks the planner for a path and converts it into moves.
func (s *Simulator) plan(p algo.PathPlanner) []core.Direction {
	start := time.Now()
	path := p.Plan(s.world, s.world.Registry())
	dirs := algo.PathToDirections(s.world.Position(), path)

	s.mu.Lock()
	s.metrics.PlanningAttempts++
	s.metrics.TotalPlanningMs += float64(time.Since(start).Microseconds()) / 1000
	if len(dirs) > 0 {
		s.metrics.PlanningSuccesses++
	}
	s.mu.Unlock()

	s.logger.Debug("planned",
		"clock", s.world.FormattedTime(),
		"from", s.world.Position(),
		"length", len(dirs),
	)
	return dirs
}

// wait lets one time step pass without moving.
func (s *Simulator) wait() {
	s.world.AdvanceTime(s.world.Config().TimeStep)
	s.mu.Lock()
	s.metrics.SimulatedMinutes += s.world.Config().TimeStep
	s.mu.Unlock()
}

// step executes one move and records it.
func (s *Simulator) step(d core.Direction) (core.MoveOutcome, error) {
	from := s.world.Position()
	outcome, reward, err := s.world.Step(d)
	if err != nil {
		return outcome, fmt.Errorf("step %d: %w", s.metrics.Steps+1, err)
	}
	to := s.world.Position()

	s.mu.Lock()
	s.metrics.Steps++
	if !s.world.IsComplete() {
		s.metrics.SimulatedMinutes += s.world.Config().TimeStep // The clock stops on completion
	}
	s.metrics.Outcomes[outcome.Kind.String()]++
	if outcome.Kind == core.OutcomeDropOff {
		s.metrics.Deliveries++
	}
	s.metrics.TotalReward = s.world.Rewards().Total()
	rec := runlog.StepRecord{
		RunID:    s.config.RunID,
		Planner:  s.metrics.Planner,
		Step:     s.metrics.Steps,
		Clock:    s.world.FormattedTime(),
		Action:   d.String(),
		From:     [2]int{from.X, from.Y},
		To:       [2]int{to.X, to.Y},
		Outcome:  outcome.Kind.String(),
		Task:     int(outcome.Task),
		Reward:   reward,
		Total:    s.metrics.TotalReward,
		Carrying: s.world.IsCarrying(),
	}
	s.mu.Unlock()

	if outcome.Kind != core.OutcomeMove {
		s.logger.Debug("step", "step", rec.Step, "action", rec.Action, "to", to, "outcome", outcome, "reward", reward)
	}
	if s.config.Recorder != nil {
		if err := s.config.Recorder.Record(rec); err != nil {
			return outcome, fmt.Errorf("record step %d: %w", rec.Step, err)
		}
	}
	return outcome, nil
}

func (s *Simulator) abort(reason string) {
	s.mu.Lock()
	s.metrics.Aborted = reason
	s.mu.Unlock()
}

// Metrics returns current simulation metrics
func (s *Simulator) Metrics() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.metrics
	m.Outcomes = make(map[string]int, len(s.metrics.Outcomes))
	for k, v := range s.metrics.Outcomes {
		m.Outcomes[k] = v
	}
	return m
}

// ExportMetrics writes metrics to a JSON file
func (s *Simulator) ExportMetrics(path string) error {
	metrics := s.Metrics()

	data, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// SimulationResult is the final output of a simulation run
type SimulationResult struct {
	Metrics Metrics `json:"metrics"`
	Success bool    `json:"success"`
	Error   string  `json:"error,omitempty"`
}

// RunSimulation builds a fresh world from the scenario and runs planner on it.
func RunSimulation(ctx context.Context, scenario *core.Scenario, planner algo.Planner, config Config) (*SimulationResult, error) {
	world, err := scenario.NewWorld()
	if err != nil {
		return nil, err
	}

	metrics, err := NewSimulator(world, planner, config).Run(ctx)

	result := &SimulationResult{
		Success: err == nil && metrics.Completed,
	}
	if err != nil {
		result.Error = err.Error()
	}
	if metrics != nil {
		result.Metrics = *metrics
	}
	return result, err
}
