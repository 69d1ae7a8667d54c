package domain

import (
	"time"

	"github.com/google/uuid"
)

// Score bounds for the composite pair score.
const (
	MaxBaseScore    = 15.0
	MaxPatternScore = 10.0
	MaxHabitScore   = 10.0
	MaxContextScore = 5.0
	MaxTotalScore   = MaxBaseScore + MaxPatternScore + MaxHabitScore + MaxContextScore
)

// ScoredPair is one feasible (activity, slot) pairing with its score components.
// Pairs are ephemeral: the candidate set is rebuilt as slot capacity changes.
type ScoredPair struct {
	ActivityID   uuid.UUID
	SlotID       uuid.UUID
	BaseScore    float64
	PatternScore float64
	HabitScore   float64
	ContextScore float64

	// Tie-break keys, copied from the activity and slot at scoring time.
	Priority  int
	SlotStart time.Time
}

// TotalScore is the composite score, bounded [0, MaxTotalScore].
func (p ScoredPair) TotalScore() float64 {
	total := p.BaseScore + p.PatternScore + p.HabitScore + p.ContextScore
	if total < 0 {
		return 0
	}
	if total > MaxTotalScore {
		return MaxTotalScore
	}
	return total
}

// Breakdown returns the persisted score breakdown for this pair.
func (p ScoredPair) Breakdown() *ScoreBreakdown {
	return &ScoreBreakdown{
		Base:    p.BaseScore,
		Pattern: p.PatternScore,
		Habit:   p.HabitScore,
		Context: p.ContextScore,
		Total:   p.TotalScore(),
	}
}

// Less defines the deterministic candidate ordering: higher total score
// first, then higher activity priority (lower number), then activity ID,
// then slot start time.
func (p ScoredPair) Less(other ScoredPair) bool {
	pt, ot := p.TotalScore(), other.TotalScore()
	if pt != ot {
		return pt > ot
	}
	if p.Priority != other.Priority {
		return p.Priority < other.Priority
	}
	if p.ActivityID != other.ActivityID {
		return p.ActivityID.String() < other.ActivityID.String()
	}
	return p.SlotStart.Before(other.SlotStart)
}
