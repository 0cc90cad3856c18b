package core

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	DayMinutes          = 24 * 60 // Length of the simulated day
	DefaultTimeStep     = 10      // Minutes advanced per drone move
	DefaultZoneInterval = 120     // Minutes between hazard schedule boundaries
)

// SimTime is a minute of the day in [0, DayMinutes).
type SimTime int

// NewSimTime normalises any minute count into [0, DayMinutes).
func NewSimTime(minutes int) SimTime {
	m := minutes % DayMinutes
	if m < 0 {
		m += DayMinutes
	}
	return SimTime(m)
}

// Add advances t by quantum minutes, wrapping at midnight.
func (t SimTime) Add(quantum int) SimTime {
	return NewSimTime(int(t) + quantum)
}

// Minutes returns t as a plain int.
func (t SimTime) Minutes() int {
	return int(t)
}

// String formats t as HH:MM.
func (t SimTime) String() string {
	m := int(NewSimTime(int(t)))
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// ParseClock parses "HH:MM" into a SimTime. "24:00" is accepted and maps to 0.
func ParseClock(s string) (SimTime, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("clock %q: expected HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("clock %q: hours: %w", s, err)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("clock %q: minutes: %w", s, err)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("clock %q: out of range", s)
	}
	return NewSimTime(h*60 + m), nil
}
