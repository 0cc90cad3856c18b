// Package config loads hazard schedules, delivery tasks and planner settings.
package config

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/elektrokombinacija/drone-delivery-sim/internal/core"
)

// ErrSchema is returned when a file does not match its JSON schema.
var ErrSchema = errors.New("schema validation failed")

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	scheduleSchema = mustCompile("schedule.schema.json")
	tasksSchema    = mustCompile("tasks.schema.json")
)

func mustCompile(name string) *jsonschema.Schema {
	data, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		panic(err)
	}
	return jsonschema.MustCompileString(name, string(data))
}

// validate checks raw JSON against schema before it is decoded.
func validate(schema *jsonschema.Schema, data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %w", ErrSchema, err)
	}
	return nil
}

type patternJSON struct {
	TimeRange  [2]string `json:"time_range"`
	Obstacles  [][2]int  `json:"obstacles"`
	NoFlyZones [][2]int  `json:"no_fly_zones"`
}

type scheduleJSON struct {
	Patterns1 []patternJSON `json:"patterns1,omitempty"`
	Patterns  []patternJSON `json:"patterns,omitempty"`
}

type deliveryJSON struct {
	PickUp  [2]int `json:"pick_up"`
	DropOff [2]int `json:"drop_off"`
	ID      int    `json:"id"`
}

type tasksJSON struct {
	Deliveries  []deliveryJSON `json:"deliveries,omitempty"`
	Deliveries1 []deliveryJSON `json:"deliveries1,omitempty"`
}

func toCells(pairs [][2]int) core.CellSet {
	s := core.NewCellSet()
	for _, p := range pairs {
		s.Add(core.Cell{X: p[0], Y: p[1]})
	}
	return s
}

func fromCells(s core.CellSet) [][2]int {
	out := make([][2]int, 0, len(s))
	for _, c := range s.Sorted() {
		out = append(out, [2]int{c.X, c.Y})
	}
	return out
}

// ParseSchedule decodes a hazard schedule. Patterns are read from the
// "patterns1" key, falling back to "patterns".
func ParseSchedule(data []byte) (*core.EventSchedule, error) {
	if err := validate(scheduleSchema, data); err != nil {
		return nil, err
	}
	var doc scheduleJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode schedule: %w", err)
	}
	raw := doc.Patterns1
	if raw == nil {
		raw = doc.Patterns
	}

	patterns := make([]core.HazardPattern, 0, len(raw))
	for i, p := range raw {
		start, err := core.ParseClock(p.TimeRange[0])
		if err != nil {
			return nil, fmt.Errorf("pattern %d: %w", i, err)
		}
		end, err := core.ParseClock(p.TimeRange[1])
		if err != nil {
			return nil, fmt.Errorf("pattern %d: %w", i, err)
		}
		patterns = append(patterns, core.HazardPattern{
			Start:     start,
			End:       end,
			Obstacles: toCells(p.Obstacles),
			NoFly:     toCells(p.NoFlyZones),
		})
	}
	return core.NewEventSchedule(patterns)
}

// LoadSchedule reads and parses a schedule file.
func LoadSchedule(path string) (*core.EventSchedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schedule file: %w", err)
	}
	s, err := ParseSchedule(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// MarshalSchedule encodes patterns under the "patterns1" key.
func MarshalSchedule(patterns []core.HazardPattern) ([]byte, error) {
	doc := scheduleJSON{Patterns1: make([]patternJSON, 0, len(patterns))}
	for _, p := range patterns {
		doc.Patterns1 = append(doc.Patterns1, patternJSON{
			TimeRange:  [2]string{p.Start.String(), p.End.String()},
			Obstacles:  fromCells(p.Obstacles),
			NoFlyZones: fromCells(p.NoFly),
		})
	}
	return json.MarshalIndent(doc, "", "  ")
}

// ParseTasks decodes delivery tasks from the "deliveries" key, falling back
// to "deliveries1".
func ParseTasks(data []byte) ([]core.DeliveryTask, error) {
	if err := validate(tasksSchema, data); err != nil {
		return nil, err
	}
	var doc tasksJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}
	raw := doc.Deliveries
	if raw == nil {
		raw = doc.Deliveries1
	}

	tasks := make([]core.DeliveryTask, 0, len(raw))
	for _, d := range raw {
		tasks = append(tasks, core.DeliveryTask{
			ID:      core.TaskID(d.ID),
			Pickup:  core.Cell{X: d.PickUp[0], Y: d.PickUp[1]},
			Dropoff: core.Cell{X: d.DropOff[0], Y: d.DropOff[1]},
		})
	}
	return tasks, nil
}

// LoadTasks reads and parses a delivery task file.
func LoadTasks(path string) ([]core.DeliveryTask, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tasks file: %w", err)
	}
	tasks, err := ParseTasks(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tasks, nil
}

// MarshalTasks encodes tasks under the "deliveries" key.
func MarshalTasks(tasks []core.DeliveryTask) ([]byte, error) {
	doc := tasksJSON{Deliveries: make([]deliveryJSON, 0, len(tasks))}
	for _, t := range tasks {
		doc.Deliveries = append(doc.Deliveries, deliveryJSON{
			PickUp:  [2]int{t.Pickup.X, t.Pickup.Y},
			DropOff: [2]int{t.Dropoff.X, t.Dropoff.Y},
			ID:      int(t.ID),
		})
	}
	return json.MarshalIndent(doc, "", "  ")
}

// LoadScenario loads both files and builds a validated scenario using the
// grid, timing and rewards from settings.
func LoadScenario(schedulePath, tasksPath string, settings *Settings) (*core.Scenario, error) {
	sched, err := LoadSchedule(schedulePath)
	if err != nil {
		return nil, err
	}
	tasks, err := LoadTasks(tasksPath)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		settings = DefaultSettings()
	}
	s := core.NewScenario(settings.GridSize, sched, tasks)
	s.Config = settings.WorldConfig()
	s.Rewards = settings.Rewards
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
