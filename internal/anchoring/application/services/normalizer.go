// Package services implements the anchoring engine: event normalization,
// gap finding, pair scoring, greedy assignment, and fallback resolution.
package services

import (
	"sort"
	"time"

	anchoringDomain "github.com/anchora-app/anchora/internal/anchoring/domain"
	calendarDomain "github.com/anchora-app/anchora/internal/calendar/domain"
)

// Normalize converts provider events into the canonical busy interval list
// for one run: cancelled and all-day events are dropped, events are clipped
// to the active window, and overlapping or adjacent intervals are merged.
//
// An event whose end precedes its start is an invariant violation and fails
// the run; events missing time information are skipped.
func Normalize(events []calendarDomain.RawEvent, windowStart, windowEnd time.Time) ([]anchoringDomain.BusyInterval, error) {
	intervals := make([]anchoringDomain.BusyInterval, 0, len(events))

	for _, event := range events {
		if event.Status == calendarDomain.StatusCancelled || event.AllDay {
			continue
		}
		if event.Start.IsZero() || event.End.IsZero() {
			continue
		}
		if event.End.Before(event.Start) {
			return nil, anchoringDomain.NewInvariantError("busy_interval_ordering", event.ID, "event end precedes start")
		}

		// Clip to the active window.
		start, end := event.Start, event.End
		if start.Before(windowStart) {
			start = windowStart
		}
		if end.After(windowEnd) {
			end = windowEnd
		}
		if !end.After(start) {
			// Entirely outside the active window.
			continue
		}

		label := event.Title
		if label == "" {
			label = event.ID
		}
		intervals = append(intervals, anchoringDomain.BusyInterval{Start: start, End: end, Label: label})
	}

	sort.Slice(intervals, func(i, j int) bool {
		if !intervals[i].Start.Equal(intervals[j].Start) {
			return intervals[i].Start.Before(intervals[j].Start)
		}
		return intervals[i].End.Before(intervals[j].End)
	})

	return mergeIntervals(intervals), nil
}

// mergeIntervals collapses overlapping or adjacent intervals. The input
// must be sorted by start time.
func mergeIntervals(intervals []anchoringDomain.BusyInterval) []anchoringDomain.BusyInterval {
	if len(intervals) <= 1 {
		return intervals
	}

	merged := make([]anchoringDomain.BusyInterval, 0, len(intervals))
	current := intervals[0]
	for _, next := range intervals[1:] {
		if !next.Touches(current.Start, current.End) {
			merged = append(merged, current)
			current = next
			continue
		}
		if next.End.After(current.End) {
			current.End = next.End
		}
	}
	merged = append(merged, current)

	return merged
}
