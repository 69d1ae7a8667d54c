// Package domain contains the anchoring model: busy intervals, free slots,
// activity requirements, scored pairs, placements, and the AnchoringRun
// aggregate that collects the result of one anchoring invocation.
package domain

import "time"

// BusyInterval is an occupied time range in a user's calendar.
// Immutable once normalized; Start is always before End.
type BusyInterval struct {
	Start time.Time
	End   time.Time
	Label string
}

// NewBusyInterval creates a validated busy interval.
func NewBusyInterval(start, end time.Time, label string) (BusyInterval, error) {
	if !end.After(start) {
		return BusyInterval{}, NewInvariantError("busy_interval_ordering", label, "end must be after start")
	}
	return BusyInterval{Start: start, End: end, Label: label}, nil
}

// Duration returns the interval length.
func (b BusyInterval) Duration() time.Duration {
	return b.End.Sub(b.Start)
}

// Overlaps reports whether two half-open intervals [Start, End) intersect.
func (b BusyInterval) Overlaps(start, end time.Time) bool {
	return b.Start.Before(end) && b.End.After(start)
}

// Touches reports whether the interval overlaps or is adjacent to [start, end).
func (b BusyInterval) Touches(start, end time.Time) bool {
	return !b.Start.After(end) && !b.End.Before(start)
}
