package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/elektrokombinacija/drone-delivery-sim/internal/algo"
	"github.com/elektrokombinacija/drone-delivery-sim/internal/config"
	"github.com/elektrokombinacija/drone-delivery-sim/internal/core"
	"github.com/elektrokombinacija/drone-delivery-sim/internal/results"
	"github.com/elektrokombinacija/drone-delivery-sim/internal/runlog"
	"github.com/elektrokombinacija/drone-delivery-sim/internal/sim"
)

var (
	plannerName   string
	traceDir      string
	resultsDB     string
	trainEpisodes int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one planner until every delivery is done",
	RunE:  runSimulation,
}

func init() {
	runCmd.Flags().StringVarP(&plannerName, "planner", "p", "astar", "Planner: astar, csp, mdp or qlearn")
	runCmd.Flags().StringVar(&traceDir, "trace-dir", "", "Write a compressed per-step trace into this directory")
	runCmd.Flags().StringVar(&resultsDB, "results-db", "", "Append the run summary to this SQLite database")
	runCmd.Flags().IntVar(&trainEpisodes, "train-episodes", 0, "Training episodes for qlearn (0 uses the settings)")
}

func runSimulation(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	settings, scenario, err := loadInputs()
	if err != nil {
		return err
	}

	fmt.Printf("Loaded scenario from %s and %s\n", scheduleFile, tasksFile)
	fmt.Printf("  - Grid: %dx%d, origin %s\n", scenario.Config.GridSize, scenario.Config.GridSize, scenario.Config.Origin)
	fmt.Printf("  - Hazard windows: %d\n", scenario.Schedule.Len())
	fmt.Printf("  - Deliveries: %d\n\n", len(scenario.Tasks))

	world, err := scenario.NewWorld()
	if err != nil {
		return err
	}
	planner, err := preparePlanner(settings, plannerName, trainEpisodes, world, logger)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	cfg := driverConfig(settings, logger)
	cfg.RunID = runID

	if traceDir != "" {
		tw, err := runlog.NewWriter(traceDir, runID)
		if err != nil {
			return fmt.Errorf("failed to open trace: %w", err)
		}
		defer func() {
			if err := tw.Close(); err != nil {
				logger.Error("closing trace", "err", err)
			}
		}()
		cfg.Recorder = tw
		logger.Info("writing trace", "path", tw.Path())
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	metrics, runErr := sim.NewSimulator(world, planner, cfg).Run(ctx)
	printMetrics(metrics, world)

	if resultsDB != "" {
		if err := storeSummary(ctx, resultsDB, results.NewSummary(runID, metrics)); err != nil {
			return err
		}
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("simulation failed: %w", runErr)
	}
	return nil
}

// preparePlanner builds the planner and trains it when it learns.
func preparePlanner(settings *config.Settings, name string, episodes int, world *core.World, logger *slog.Logger) (algo.Planner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if name == "qlearn" && episodes > 0 {
		s := *settings
		s.QLearning.Episodes = episodes
		settings = &s
	}
	planner, err := settings.Planner(name, logger)
	if err != nil {
		return nil, err
	}
	if q, ok := planner.(*algo.TabularQLearner); ok {
		stats := q.Train(world, world.Registry())
		completed := 0
		for _, st := range stats {
			if st.Completed {
				completed++
			}
		}
		logger.Info("training finished",
			"episodes", len(stats),
			"completed", completed,
			"epsilon", q.Epsilon(),
			"table_size", q.TableSize(),
		)
	}
	return planner, nil
}

func storeSummary(ctx context.Context, path string, sum results.Summary) error {
	store, err := results.OpenSQLite(path)
	if err != nil {
		return fmt.Errorf("failed to open results db: %w", err)
	}
	defer store.Close()
	if err := store.Record(context.WithoutCancel(ctx), sum); err != nil {
		return err
	}
	fmt.Printf("Run %s stored in %s\n", sum.RunID, path)
	return nil
}

func printMetrics(m *sim.Metrics, world *core.World) {
	status := "COMPLETED"
	if !m.Completed {
		status = "INCOMPLETE"
		if m.Aborted != "" {
			status += " (" + m.Aborted + ")"
		}
	}
	fmt.Printf("=== %s: %s ===\n", m.Planner, status)
	fmt.Printf("  Steps:          %d\n", m.Steps)
	fmt.Printf("  Deliveries:     %d/%d\n", m.Deliveries, len(world.Registry().Tasks()))
	fmt.Printf("  Total reward:   %.1f\n", m.TotalReward)
	fmt.Printf("  Waits:          %d\n", m.Retries)
	fmt.Printf("  Clock:          %s (%d simulated minutes)\n", world.FormattedTime(), m.SimulatedMinutes)
	fmt.Printf("  Wall time:      %v\n", m.Elapsed())

	kinds := make([]string, 0, len(m.Outcomes))
	for k := range m.Outcomes {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Printf("    %-16s %d\n", k, m.Outcomes[k])
	}
}
