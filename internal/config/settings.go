package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/elektrokombinacija/drone-delivery-sim/internal/algo"
	"github.com/elektrokombinacija/drone-delivery-sim/internal/core"
)

// ValueIterationSettings configures the MDP planner.
type ValueIterationSettings struct {
	Epsilon   float64 `yaml:"epsilon"`
	MaxSweeps int     `yaml:"max_sweeps"`
}

// DriverSettings bounds a simulation run.
type DriverSettings struct {
	MaxSteps    int     `yaml:"max_steps"`
	MaxRetries  int     `yaml:"max_retries"`
	RewardFloor float64 `yaml:"reward_floor"`
}

// Settings is the planner settings file.
type Settings struct {
	GridSize       int                    `yaml:"grid_size"`
	TimeStep       int                    `yaml:"time_step"`
	ZoneInterval   int                    `yaml:"zone_interval"`
	Origin         [2]int                 `yaml:"origin"`
	Rewards        core.RewardTable       `yaml:"rewards"`
	ValueIteration ValueIterationSettings `yaml:"value_iteration"`
	QLearning      algo.QParams           `yaml:"qlearning"`
	Driver         DriverSettings         `yaml:"driver"`
}

// DefaultSettings returns the settings used when no file is given.
func DefaultSettings() *Settings {
	return &Settings{
		GridSize:     20,
		TimeStep:     core.DefaultTimeStep,
		ZoneInterval: core.DefaultZoneInterval,
		Rewards:      core.DefaultRewardTable(),
		ValueIteration: ValueIterationSettings{
			Epsilon:   algo.DefaultConvergence,
			MaxSweeps: algo.DefaultMaxSweeps,
		},
		QLearning: algo.DefaultQParams(),
		Driver: DriverSettings{
			MaxSteps:    5000,
			MaxRetries:  core.DayMinutes / core.DefaultTimeStep * 2,
			RewardFloor: -500,
		},
	}
}

// LoadSettings loads a YAML settings file on top of the defaults.
func LoadSettings(filename string) (*Settings, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseSettings(data)
}

// ParseSettings decodes YAML settings on top of the defaults.
func ParseSettings(data []byte) (*Settings, error) {
	settings := DefaultSettings()
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := validateSettings(settings); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return settings, nil
}

// validateSettings validates the settings
func validateSettings(s *Settings) error {
	if s.GridSize <= 0 {
		return fmt.Errorf("grid_size must be greater than 0")
	}
	if s.TimeStep <= 0 {
		return fmt.Errorf("time_step must be greater than 0")
	}
	if s.ZoneInterval <= 0 {
		return fmt.Errorf("zone_interval must be greater than 0")
	}
	if o := s.Origin; o[0] < 0 || o[0] >= s.GridSize || o[1] < 0 || o[1] >= s.GridSize {
		return fmt.Errorf("origin %v must lie inside the %dx%d grid", o, s.GridSize, s.GridSize)
	}
	if s.ValueIteration.Epsilon <= 0 {
		return fmt.Errorf("value_iteration.epsilon must be greater than 0")
	}

	q := s.QLearning
	if q.Alpha <= 0 || q.Alpha > 1 {
		return fmt.Errorf("qlearning.alpha must be in (0, 1]")
	}
	if q.Gamma < 0 || q.Gamma > 1 {
		return fmt.Errorf("qlearning.gamma must be in [0, 1]")
	}
	if q.EpsilonMin < 0 || q.EpsilonMin > q.EpsilonInit || q.EpsilonInit > 1 {
		return fmt.Errorf("qlearning epsilons must satisfy 0 <= epsilon_min <= epsilon_init <= 1")
	}
	if q.EpsilonDecay <= 0 || q.EpsilonDecay > 1 {
		return fmt.Errorf("qlearning.epsilon_decay must be in (0, 1]")
	}
	if q.Episodes < 0 || q.MaxSteps <= 0 {
		return fmt.Errorf("qlearning.episodes must be >= 0 and max_steps > 0")
	}

	if s.Driver.MaxSteps <= 0 {
		return fmt.Errorf("driver.max_steps must be greater than 0")
	}
	if s.Driver.MaxRetries < 0 {
		return fmt.Errorf("driver.max_retries must not be negative")
	}
	return nil
}

// WorldConfig returns the world parameters.
func (s *Settings) WorldConfig() core.WorldConfig {
	return core.WorldConfig{
		GridSize: s.GridSize,
		Origin:   core.Cell{X: s.Origin[0], Y: s.Origin[1]},
		TimeStep: s.TimeStep,
	}
}

// Planner builds the named planner from the settings. The logger is passed
// to planners that log.
func (s *Settings) Planner(name string, logger *slog.Logger) (algo.Planner, error) {
	switch name {
	case "astar":
		return algo.NewShortestPath(), nil
	case "csp":
		return algo.NewLookaheadConstraint(s.TimeStep, s.ZoneInterval), nil
	case "mdp":
		return &algo.ValueIterationPlanner{
			Epsilon:   s.ValueIteration.Epsilon,
			MaxSweeps: s.ValueIteration.MaxSweeps,
		}, nil
	case "qlearn":
		return algo.NewQLearner(s.QLearning, logger), nil
	default:
		return nil, fmt.Errorf("unknown planner %q (want astar, csp, mdp or qlearn)", name)
	}
}

// PlannerNames lists the planners accepted by Planner.
func PlannerNames() []string {
	return []string{"astar", "csp", "mdp", "qlearn"}
}
