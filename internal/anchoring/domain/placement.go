package domain

import (
	"time"

	"github.com/google/uuid"
)

// PlacementState tracks an activity through the assignment loop.
type PlacementState string

const (
	StatePending  PlacementState = "pending"
	StateAssigned PlacementState = "assigned"
	StateFallback PlacementState = "fallback"
)

// ScoreBreakdown records the score components behind an assigned placement.
// Fallback placements carry no breakdown.
type ScoreBreakdown struct {
	Base    float64 `json:"base"`
	Pattern float64 `json:"pattern"`
	Habit   float64 `json:"habit"`
	Context float64 `json:"context"`
	Total   float64 `json:"total"`
}

// Placement is the final position of one activity: either anchored into a
// slot by the coordinator or placed at its proposed time by the fallback
// resolver. Exactly one placement exists per input activity.
type Placement struct {
	ActivityID uuid.UUID
	SlotID     *uuid.UUID
	Start      time.Time
	End        time.Time
	Confidence float64
	Breakdown  *ScoreBreakdown
	IsFallback bool
}

// NewAnchoredPlacement creates a placement for an activity committed into a slot.
func NewAnchoredPlacement(activityID, slotID uuid.UUID, start, end time.Time, breakdown *ScoreBreakdown) (Placement, error) {
	if !end.After(start) {
		return Placement{}, NewInvariantError("placement_ordering", activityID.String(), "placement end must be after start")
	}
	confidence := 0.0
	if breakdown != nil {
		confidence = breakdown.Total / MaxTotalScore
	}
	id := slotID
	return Placement{
		ActivityID: activityID,
		SlotID:     &id,
		Start:      start,
		End:        end,
		Confidence: confidence,
		Breakdown:  breakdown,
		IsFallback: false,
	}, nil
}

// NewFallbackPlacement creates a low-confidence placement at the activity's
// proposed time.
func NewFallbackPlacement(activity ActivityRequirement, confidence float64) Placement {
	return Placement{
		ActivityID: activity.ID,
		SlotID:     nil,
		Start:      activity.ProposedTime,
		End:        activity.ProposedTime.Add(activity.Duration),
		Confidence: confidence,
		Breakdown:  nil,
		IsFallback: true,
	}
}

// Overlaps reports whether the placement intersects [start, end).
func (p Placement) Overlaps(start, end time.Time) bool {
	return p.Start.Before(end) && p.End.After(start)
}
