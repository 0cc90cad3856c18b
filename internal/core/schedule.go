package core

import (
	"errors"
	"fmt"
	"sort"
)

// ErrOverlappingPatterns is returned when two hazard patterns share a minute.
var ErrOverlappingPatterns = errors.New("hazard patterns overlap")

// HazardPattern is a time window together with the cells that are hazardous
// during it. The window is half-open [Start, End). Start > End wraps past
// midnight; Start == End covers the whole day.
type HazardPattern struct {
	Start     SimTime
	End       SimTime
	Obstacles CellSet
	NoFly     CellSet
}

// Contains reports whether t falls inside the pattern's window.
func (p HazardPattern) Contains(t SimTime) bool {
	switch {
	case p.Start < p.End:
		return p.Start <= t && t < p.End
	case p.Start > p.End:
		return t >= p.Start || t < p.End
	default:
		return true
	}
}

// IsEmpty reports whether the pattern marks no cells.
func (p HazardPattern) IsEmpty() bool {
	return len(p.Obstacles) == 0 && len(p.NoFly) == 0
}

// minutes returns the number of minutes the window spans.
func (p HazardPattern) minutes() int {
	if p.Start == p.End {
		return DayMinutes
	}
	return int(NewSimTime(int(p.End) - int(p.Start)))
}

// EventSchedule is the ordered list of hazard patterns for one simulated day.
type EventSchedule struct {
	patterns []HazardPattern
}

// NewEventSchedule sorts patterns by start time and rejects overlapping
// windows. An empty schedule is valid and yields no hazards all day.
func NewEventSchedule(patterns []HazardPattern) (*EventSchedule, error) {
	ps := make([]HazardPattern, len(patterns))
	for i, p := range patterns {
		p.Obstacles = p.Obstacles.Clone()
		p.NoFly = p.NoFly.Clone()
		ps[i] = p
	}
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].Start < ps[j].Start })

	// A day has only 1440 minutes, so an occupancy scan is exact and handles
	// wrapping windows without special cases.
	var owner [DayMinutes]int
	for i, p := range ps {
		for k := 0; k < p.minutes(); k++ {
			m := NewSimTime(int(p.Start) + k)
			if owner[m] != 0 {
				return nil, fmt.Errorf("%w: pattern %s-%s and pattern %s-%s at %s",
					ErrOverlappingPatterns, ps[owner[m]-1].Start, ps[owner[m]-1].End, p.Start, p.End, m)
			}
			owner[m] = i + 1
		}
	}
	return &EventSchedule{patterns: ps}, nil
}

// Len returns the number of patterns.
func (s *EventSchedule) Len() int {
	if s == nil {
		return 0
	}
	return len(s.patterns)
}

// Patterns returns a deep copy of the patterns in schedule order.
func (s *EventSchedule) Patterns() []HazardPattern {
	if s == nil {
		return nil
	}
	out := make([]HazardPattern, len(s.patterns))
	for i, p := range s.patterns {
		p.Obstacles = p.Obstacles.Clone()
		p.NoFly = p.NoFly.Clone()
		out[i] = p
	}
	return out
}

func (s *EventSchedule) indexAt(t SimTime) int {
	if s == nil {
		return -1
	}
	for i, p := range s.patterns {
		if p.Contains(t) {
			return i
		}
	}
	return -1
}

// CurrentPattern returns the pattern whose window contains t, or an empty
// pattern if none does.
func (s *EventSchedule) CurrentPattern(t SimTime) HazardPattern {
	i := s.indexAt(t)
	if i < 0 {
		return HazardPattern{}
	}
	return s.patterns[i]
}

// NextPattern returns the pattern that follows the one containing t in
// schedule order. It is empty when t matches no pattern or the match is last.
func (s *EventSchedule) NextPattern(t SimTime) HazardPattern {
	i := s.indexAt(t)
	if i < 0 || i+1 >= len(s.patterns) {
		return HazardPattern{}
	}
	return s.patterns[i+1]
}
