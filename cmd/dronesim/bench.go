package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/elektrokombinacija/drone-delivery-sim/internal/config"
	"github.com/elektrokombinacija/drone-delivery-sim/internal/core"
	"github.com/elektrokombinacija/drone-delivery-sim/internal/results"
	"github.com/elektrokombinacija/drone-delivery-sim/internal/sim"
)

var (
	benchPlanners string
	benchRuns     int
	benchOutput   string
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run every planner on the scenario and write CSV results",
	RunE:  runBenchmarks,
}

func init() {
	benchCmd.Flags().StringVar(&benchPlanners, "planners", strings.Join(config.PlannerNames(), ","), "Comma-separated planners to run")
	benchCmd.Flags().IntVar(&benchRuns, "runs", 1, "Runs per planner (qlearn reseeds each run)")
	benchCmd.Flags().StringVarP(&benchOutput, "output", "o", "-", "CSV output file, - for stdout")
	benchCmd.Flags().StringVar(&resultsDB, "results-db", "", "Also store every run in this SQLite database")
}

// BenchmarkResult stores results from a single planner run.
type BenchmarkResult struct {
	Timestamp   string
	CommitHash  string
	GoVersion   string
	Planner     string
	Run         int
	GridSize    int
	NumTasks    int
	RuntimeMs   float64
	Completed   bool
	Steps       int
	Deliveries  int
	Retries     int
	TotalReward float64
	Hazards     int // Steps that entered an obstacle or no-fly cell
	Aborted     string

	metrics *sim.Metrics
}

// PlannerMetrics holds per-planner aggregated metrics.
type PlannerMetrics struct {
	Name           string
	TotalRuns      int
	Completed      int
	TotalRuntimeMs float64
	TotalSteps     int
	TotalReward    float64
	Hazards        int
}

func getGitCommit() string {
	cmd := exec.Command("git", "rev-parse", "--short", "HEAD")
	output, err := cmd.Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(output))
}

func runBenchmarks(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	settings, scenario, err := loadInputs()
	if err != nil {
		return err
	}
	if benchRuns <= 0 {
		benchRuns = 1
	}

	commit := getGitCommit()
	var out []*BenchmarkResult
	for _, name := range strings.Split(benchPlanners, ",") {
		name = strings.TrimSpace(name)
		for run := 0; run < benchRuns; run++ {
			s := *settings
			s.QLearning.Seed = settings.QLearning.Seed + int64(run)
			r, err := benchOnce(cmd.Context(), &s, scenario, name, run)
			if err != nil {
				return err
			}
			r.CommitHash = commit
			out = append(out, r)
			logger.Debug("benchmark run", "planner", name, "run", run, "completed", r.Completed, "ms", r.RuntimeMs)
		}
	}

	w := io.Writer(os.Stdout)
	if benchOutput != "-" {
		f, err := os.Create(benchOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := writeCSV(out, w); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	printSummary(out, os.Stderr)

	if resultsDB != "" {
		store, err := results.OpenSQLite(resultsDB)
		if err != nil {
			return fmt.Errorf("failed to open results db: %w", err)
		}
		defer store.Close()
		for _, r := range out {
			if err := store.Record(cmd.Context(), results.NewSummary("", r.metrics)); err != nil {
				return err
			}
		}
	}
	return nil
}

func benchOnce(ctx context.Context, settings *config.Settings, scenario *core.Scenario, name string, run int) (*BenchmarkResult, error) {
	world, err := scenario.NewWorld()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	planner, err := preparePlanner(settings, name, 0, world, nil)
	if err != nil {
		return nil, err
	}
	cfg := driverConfig(settings, nil)
	cfg.RunID = uuid.NewString()
	m, runErr := sim.NewSimulator(world, planner, cfg).Run(ctx)
	if runErr != nil && m.Aborted == "" {
		return nil, runErr
	}

	return &BenchmarkResult{
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		GoVersion:   runtime.Version(),
		Planner:     name,
		Run:         run,
		GridSize:    scenario.Config.GridSize,
		NumTasks:    len(scenario.Tasks),
		RuntimeMs:   float64(time.Since(start).Microseconds()) / 1000.0,
		Completed:   m.Completed,
		Steps:       m.Steps,
		Deliveries:  m.Deliveries,
		Retries:     m.Retries,
		TotalReward: m.TotalReward,
		Hazards:     m.Outcomes[core.OutcomeObstacle.String()] + m.Outcomes[core.OutcomeNoFlyZone.String()],
		Aborted:     m.Aborted,
		metrics:     m,
	}, nil
}

func writeCSV(rows []*BenchmarkResult, w io.Writer) error {
	writer := csv.NewWriter(w)

	header := []string{
		"timestamp", "commit_hash", "go_version", "planner", "run",
		"grid_size", "num_tasks", "runtime_ms", "completed", "steps",
		"deliveries", "retries", "total_reward", "hazard_entries", "aborted",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, r := range rows {
		row := []string{
			r.Timestamp, r.CommitHash, r.GoVersion, r.Planner, fmt.Sprintf("%d", r.Run),
			fmt.Sprintf("%d", r.GridSize), fmt.Sprintf("%d", r.NumTasks),
			fmt.Sprintf("%.3f", r.RuntimeMs), fmt.Sprintf("%t", r.Completed),
			fmt.Sprintf("%d", r.Steps), fmt.Sprintf("%d", r.Deliveries), fmt.Sprintf("%d", r.Retries),
			fmt.Sprintf("%.1f", r.TotalReward), fmt.Sprintf("%d", r.Hazards), r.Aborted,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func printSummary(rows []*BenchmarkResult, w io.Writer) {
	metrics := make(map[string]*PlannerMetrics)
	for _, r := range rows {
		m, ok := metrics[r.Planner]
		if !ok {
			m = &PlannerMetrics{Name: r.Planner}
			metrics[r.Planner] = m
		}
		m.TotalRuns++
		m.TotalRuntimeMs += r.RuntimeMs
		m.Hazards += r.Hazards
		if r.Completed {
			m.Completed++
			m.TotalSteps += r.Steps
			m.TotalReward += r.TotalReward
		}
	}

	fmt.Fprintln(w, "\n=== BENCHMARK SUMMARY ===")
	fmt.Fprintf(w, "%-10s %6s %9s %12s %10s %10s %8s\n",
		"Planner", "Runs", "Complete", "Avg Time(ms)", "AvgSteps", "AvgReward", "Hazards")
	fmt.Fprintln(w, strings.Repeat("-", 71))

	var names []string
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		m := metrics[name]
		avgSteps, avgReward := 0.0, 0.0
		if m.Completed > 0 {
			avgSteps = float64(m.TotalSteps) / float64(m.Completed)
			avgReward = m.TotalReward / float64(m.Completed)
		}
		fmt.Fprintf(w, "%-10s %6d %9d %12.2f %10.1f %10.1f %8d\n",
			m.Name, m.TotalRuns, m.Completed, m.TotalRuntimeMs/float64(m.TotalRuns), avgSteps, avgReward, m.Hazards)
	}
}
