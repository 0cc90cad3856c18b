package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/elektrokombinacija/drone-delivery-sim/internal/config"
	"github.com/elektrokombinacija/drone-delivery-sim/internal/core"
	"github.com/elektrokombinacija/drone-delivery-sim/internal/sim"
)

var (
	scheduleFile string
	tasksFile    string
	configFile   string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "dronesim",
	Short: "Drone delivery simulator with time-windowed hazards",
	Long: `A CLI tool that simulates a delivery drone on a square grid.

The drone picks up and drops off packages while obstacles and no-fly zones
switch on and off through a 24-hour schedule. Four planners are available:
astar (cost-weighted shortest path), csp (hard constraints with lookahead on
the next schedule window), mdp (value iteration) and qlearn (tabular
Q-learning).`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&scheduleFile, "schedule", "s", "configs/schedule.json", "Path to hazard schedule JSON")
	rootCmd.PersistentFlags().StringVarP(&tasksFile, "tasks", "t", "configs/tasks.json", "Path to delivery tasks JSON")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to planner settings YAML (defaults if empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(runCmd, trainCmd, benchCmd)
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadInputs reads the settings and scenario named by the global flags.
func loadInputs() (*config.Settings, *core.Scenario, error) {
	settings := config.DefaultSettings()
	if configFile != "" {
		var err error
		if settings, err = config.LoadSettings(configFile); err != nil {
			return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
		}
	}
	scenario, err := config.LoadScenario(scheduleFile, tasksFile, settings)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load scenario: %w", err)
	}
	return settings, scenario, nil
}

func driverConfig(settings *config.Settings, logger *slog.Logger) sim.Config {
	return sim.Config{
		MaxSteps:    settings.Driver.MaxSteps,
		MaxRetries:  settings.Driver.MaxRetries,
		RewardFloor: settings.Driver.RewardFloor,
		Logger:      logger,
	}
}
