// Package domain defines the recommendation scorer port. The three
// advisory scorers are independent collaborators whose numeric outputs the
// engine combines; their reasoning is opaque to the anchoring core.
package domain

import (
	"context"
	"time"

	anchoringDomain "github.com/anchora-app/anchora/internal/anchoring/domain"
	"github.com/google/uuid"
)

// Score bounds for the advisory sub-scores.
const (
	MaxPatternScore = 10.0
	MaxHabitScore   = 10.0
	MaxContextScore = 5.0
)

// SlotContext describes the slot side of a (activity, slot) pair for the
// scorers: bounds, size class, and neighboring calendar events.
type SlotContext struct {
	SlotID         uuid.UUID
	Start          time.Time
	End            time.Time
	SizeClass      anchoringDomain.SizeClass
	PrecedingEvent *anchoringDomain.BusyInterval
	FollowingEvent *anchoringDomain.BusyInterval
}

// ScoreSet holds the three advisory sub-scores for one pair.
// Pattern and Habit are scaled 0-10, Context 0-5.
type ScoreSet struct {
	Pattern float64 `json:"pattern"`
	Habit   float64 `json:"habit"`
	Context float64 `json:"context"`
}

// Clamp bounds each sub-score into its documented range.
func (s ScoreSet) Clamp() ScoreSet {
	return ScoreSet{
		Pattern: clamp(s.Pattern, 0, MaxPatternScore),
		Habit:   clamp(s.Habit, 0, MaxHabitScore),
		Context: clamp(s.Context, 0, MaxContextScore),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Scorer returns the advisory sub-scores for one (activity, slot) pair.
// A scorer that is unavailable must not fail the run; callers substitute
// zero for any missing sub-score.
type Scorer interface {
	ScorePattern(ctx context.Context, activity anchoringDomain.ActivityRequirement, slot SlotContext) (float64, error)
	ScoreHabit(ctx context.Context, activity anchoringDomain.ActivityRequirement, slot SlotContext) (float64, error)
	ScoreContext(ctx context.Context, activity anchoringDomain.ActivityRequirement, slot SlotContext, nearby []anchoringDomain.BusyInterval) (float64, error)
}

// NeutralScorer returns zero for every sub-score. Used when no scoring
// service is configured, so anchoring runs on base scores alone.
type NeutralScorer struct{}

func (NeutralScorer) ScorePattern(context.Context, anchoringDomain.ActivityRequirement, SlotContext) (float64, error) {
	return 0, nil
}

func (NeutralScorer) ScoreHabit(context.Context, anchoringDomain.ActivityRequirement, SlotContext) (float64, error) {
	return 0, nil
}

func (NeutralScorer) ScoreContext(context.Context, anchoringDomain.ActivityRequirement, SlotContext, []anchoringDomain.BusyInterval) (float64, error) {
	return 0, nil
}
