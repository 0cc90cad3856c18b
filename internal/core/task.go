package core

import (
	"errors"
	"fmt"
	"sort"
)

// ErrDuplicateTask is returned when two deliveries share an id.
var ErrDuplicateTask = errors.New("duplicate task id")

// TaskID is a unique delivery identifier.
type TaskID int

// DeliveryTask pairs a pick-up location with its drop-off location.
type DeliveryTask struct {
	ID        TaskID
	Pickup    Cell
	Dropoff   Cell
	Fulfilled bool
}

// TaskRegistry tracks which pick-ups are still unclaimed and which
// drop-offs are still unfulfilled. It is built once from a task list and can
// be reset to that baseline.
type TaskRegistry struct {
	tasks     []DeliveryTask
	pickups   map[Cell]TaskID
	dropoffs  map[Cell]TaskID
	fulfilled map[TaskID]bool
}

// NewTaskRegistry creates a registry from the baseline task list.
func NewTaskRegistry(tasks []DeliveryTask) (*TaskRegistry, error) {
	seen := make(map[TaskID]bool, len(tasks))
	baseline := make([]DeliveryTask, 0, len(tasks))
	for _, t := range tasks {
		if seen[t.ID] {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateTask, t.ID)
		}
		seen[t.ID] = true
		t.Fulfilled = false
		baseline = append(baseline, t)
	}
	r := &TaskRegistry{tasks: baseline}
	r.Reset()
	return r, nil
}

// Reset restores every pick-up and drop-off entry.
func (r *TaskRegistry) Reset() {
	r.pickups = make(map[Cell]TaskID, len(r.tasks))
	r.dropoffs = make(map[Cell]TaskID, len(r.tasks))
	r.fulfilled = make(map[TaskID]bool, len(r.tasks))
	for _, t := range r.tasks {
		r.pickups[t.Pickup] = t.ID
		r.dropoffs[t.Dropoff] = t.ID
	}
}

// Tasks returns the baseline tasks with their current fulfilment state,
// sorted by id.
func (r *TaskRegistry) Tasks() []DeliveryTask {
	out := make([]DeliveryTask, len(r.tasks))
	copy(out, r.tasks)
	for i := range out {
		out[i].Fulfilled = r.fulfilled[out[i].ID]
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PendingPickups returns a copy of the unclaimed pick-up points.
func (r *TaskRegistry) PendingPickups() map[Cell]TaskID {
	return copyPoints(r.pickups)
}

// PendingDropoffs returns a copy of the unfulfilled drop-off points.
func (r *TaskRegistry) PendingDropoffs() map[Cell]TaskID {
	return copyPoints(r.dropoffs)
}

func copyPoints(m map[Cell]TaskID) map[Cell]TaskID {
	out := make(map[Cell]TaskID, len(m))
	for c, id := range m {
		out[c] = id
	}
	return out
}

// PickupAt returns the unclaimed task whose pick-up is at c.
func (r *TaskRegistry) PickupAt(c Cell) (TaskID, bool) {
	id, ok := r.pickups[c]
	return id, ok
}

// DropoffAt returns the unfulfilled task whose drop-off is at c.
func (r *TaskRegistry) DropoffAt(c Cell) (TaskID, bool) {
	id, ok := r.dropoffs[c]
	return id, ok
}

// DropoffFor returns the pending drop-off cell of task id.
func (r *TaskRegistry) DropoffFor(id TaskID) (Cell, bool) {
	for c, tid := range r.dropoffs {
		if tid == id {
			return c, true
		}
	}
	return Cell{}, false
}

// IsDeliveryPoint reports whether c is a pending pick-up or drop-off.
func (r *TaskRegistry) IsDeliveryPoint(c Cell) bool {
	_, p := r.pickups[c]
	_, d := r.dropoffs[c]
	return p || d
}

// Claim removes the pick-up entry at c and returns its task.
func (r *TaskRegistry) Claim(c Cell) (TaskID, bool) {
	id, ok := r.pickups[c]
	if !ok {
		return 0, false
	}
	delete(r.pickups, c)
	return id, true
}

// Fulfil removes the drop-off entry at c if it belongs to task id.
func (r *TaskRegistry) Fulfil(c Cell, id TaskID) bool {
	tid, ok := r.dropoffs[c]
	if !ok || tid != id {
		return false
	}
	delete(r.dropoffs, c)
	r.fulfilled[id] = true
	return true
}

// HasPendingPickups reports whether any pick-up is still unclaimed.
func (r *TaskRegistry) HasPendingPickups() bool {
	return len(r.pickups) > 0
}

// FulfilledCount returns the number of completed deliveries.
func (r *TaskRegistry) FulfilledCount() int {
	return len(r.fulfilled)
}
