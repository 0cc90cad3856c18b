// Package main generates hazard schedule and delivery task files.
// Generation is deterministic for a given seed.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/elektrokombinacija/drone-delivery-sim/internal/config"
	"github.com/elektrokombinacija/drone-delivery-sim/internal/core"
)

// ScenarioParams defines parameters for scenario generation.
type ScenarioParams struct {
	Seed            int64
	GridSize        int
	TaskCount       int
	WindowMinutes   int     // Length of each hazard window
	ObstacleDensity float64 // Fraction of cells that are obstacles per window
	NoFlyDensity    float64 // Fraction of cells that are no-fly per window
	Origin          core.Cell
}

// Scenario is a generated pair of files.
type Scenario struct {
	Name     string
	Params   ScenarioParams
	Patterns []core.HazardPattern
	Tasks    []core.DeliveryTask
}

// generateScenario creates a schedule and task list from parameters.
func generateScenario(params ScenarioParams) *Scenario {
	rng := rand.New(rand.NewSource(params.Seed))
	n := params.GridSize

	sc := &Scenario{
		Name:   fmt.Sprintf("drone_%dx%d_%dtasks_%d", n, n, params.TaskCount, params.Seed),
		Params: params,
	}

	// Tasks first so hazards can avoid their cells.
	reserved := core.NewCellSet(params.Origin)
	randomFree := func() core.Cell {
		for {
			c := core.Cell{X: rng.Intn(n), Y: rng.Intn(n)}
			if !reserved.Has(c) {
				reserved.Add(c)
				return c
			}
		}
	}
	maxTasks := (n*n - 1) / 2
	count := min(params.TaskCount, maxTasks)
	for i := 0; i < count; i++ {
		sc.Tasks = append(sc.Tasks, core.DeliveryTask{
			ID:      core.TaskID(i + 1),
			Pickup:  randomFree(),
			Dropoff: randomFree(),
		})
	}

	// Windows tile the day back to back.
	window := params.WindowMinutes
	if window <= 0 {
		window = core.DefaultZoneInterval
	}
	numObstacles := int(float64(n*n) * params.ObstacleDensity)
	numNoFly := int(float64(n*n) * params.NoFlyDensity)
	for start := 0; start < core.DayMinutes; start += window {
		end := min(start+window, core.DayMinutes)
		p := core.HazardPattern{
			Start:     core.NewSimTime(start),
			End:       core.NewSimTime(end),
			Obstacles: core.NewCellSet(),
			NoFly:     core.NewCellSet(),
		}
		for i := 0; i < numObstacles; i++ {
			if c := (core.Cell{X: rng.Intn(n), Y: rng.Intn(n)}); !reserved.Has(c) {
				p.Obstacles.Add(c)
			}
		}
		for i := 0; i < numNoFly; i++ {
			if c := (core.Cell{X: rng.Intn(n), Y: rng.Intn(n)}); !reserved.Has(c) {
				p.NoFly.Add(c)
			}
		}
		sc.Patterns = append(sc.Patterns, p)
	}

	return sc
}

// writeScenario writes <name>_schedule.json and <name>_tasks.json into dir.
func writeScenario(dir string, sc *Scenario) (string, string, error) {
	sched, err := config.MarshalSchedule(sc.Patterns)
	if err != nil {
		return "", "", err
	}
	tasks, err := config.MarshalTasks(sc.Tasks)
	if err != nil {
		return "", "", err
	}
	schedPath := filepath.Join(dir, sc.Name+"_schedule.json")
	tasksPath := filepath.Join(dir, sc.Name+"_tasks.json")
	if err := os.WriteFile(schedPath, sched, 0644); err != nil {
		return "", "", err
	}
	if err := os.WriteFile(tasksPath, tasks, 0644); err != nil {
		return "", "", err
	}
	return schedPath, tasksPath, nil
}

func main() {
	seed := flag.Int64("seed", 42, "Random seed for deterministic generation")
	gridSize := flag.Int("grid", 20, "Grid side length")
	taskCount := flag.Int("tasks", 5, "Number of deliveries")
	window := flag.Int("window", core.DefaultZoneInterval, "Hazard window length (minutes)")
	obstacles := flag.Float64("obstacles", 0.05, "Obstacle density per window (0-1)")
	noFly := flag.Float64("nofly", 0.03, "No-fly density per window (0-1)")
	outputDir := flag.String("output", "testdata", "Output directory")
	scalingMode := flag.Bool("scaling", false, "Generate scaling scenarios (10, 20, 30, 50 grids)")

	flag.Parse()

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	base := ScenarioParams{
		Seed:            *seed,
		GridSize:        *gridSize,
		TaskCount:       *taskCount,
		WindowMinutes:   *window,
		ObstacleDensity: *obstacles,
		NoFlyDensity:    *noFly,
	}

	var scenarios []*Scenario
	if *scalingMode {
		for _, size := range []int{10, 20, 30, 50} {
			params := base
			params.GridSize = size
			params.TaskCount = size / 2 // Deliveries scale with the grid side
			scenarios = append(scenarios, generateScenario(params))
		}
	} else {
		scenarios = append(scenarios, generateScenario(base))
	}

	for _, sc := range scenarios {
		schedPath, tasksPath, err := writeScenario(*outputDir, sc)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing scenario %s: %v\n", sc.Name, err)
			continue
		}
		fmt.Printf("Generated: %s, %s (%d tasks, %d windows, %dx%d grid)\n",
			schedPath, tasksPath, len(sc.Tasks), len(sc.Patterns), sc.Params.GridSize, sc.Params.GridSize)
	}
}
