package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/elektrokombinacija/drone-delivery-sim/internal/algo"
	"github.com/elektrokombinacija/drone-delivery-sim/internal/sim"
)

var reportEvery int

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the Q-learning planner and report learning progress",
	RunE:  runTraining,
}

func init() {
	trainCmd.Flags().IntVar(&trainEpisodes, "episodes", 0, "Training episodes (0 uses the settings)")
	trainCmd.Flags().IntVar(&reportEvery, "report-every", 100, "Episodes per progress line")
}

func runTraining(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	settings, scenario, err := loadInputs()
	if err != nil {
		return err
	}
	if trainEpisodes > 0 {
		settings.QLearning.Episodes = trainEpisodes
	}
	if reportEvery <= 0 {
		reportEvery = 100
	}

	world, err := scenario.NewWorld()
	if err != nil {
		return err
	}
	q := algo.NewQLearner(settings.QLearning, logger)
	stats := q.Train(world, world.Registry())

	fmt.Printf("%-12s %10s %10s %10s %8s\n", "Episodes", "AvgReward", "AvgSteps", "Complete%", "Epsilon")
	for start := 0; start < len(stats); start += reportEvery {
		end := min(start+reportEvery, len(stats))
		var reward float64
		var steps, done int
		for _, st := range stats[start:end] {
			reward += st.Reward
			steps += st.Steps
			if st.Completed {
				done++
			}
		}
		n := float64(end - start)
		fmt.Printf("%5d-%-6d %10.1f %10.1f %9.1f%% %8.4f\n",
			start, end-1, reward/n, float64(steps)/n, float64(done)/n*100, stats[end-1].Epsilon)
	}
	fmt.Printf("\nQ-table entries: %d, final epsilon %.4f\n\n", q.TableSize(), q.Epsilon())

	// Greedy evaluation on a fresh episode.
	metrics, err := sim.NewSimulator(world, q, driverConfig(settings, logger)).Run(cmd.Context())
	printMetrics(metrics, world)
	return err
}
