package services

import (
	"time"

	anchoringDomain "github.com/anchora-app/anchora/internal/anchoring/domain"
	advisoryDomain "github.com/anchora-app/anchora/internal/advisory/domain"
)

// DefaultFitTolerance is how much slack above the activity duration still
// counts as a snug duration fit.
const DefaultFitTolerance = 0.20

// Base score component bounds.
const (
	maxDurationFitScore = 2.0
	maxWindowMatchScore = 10.0
	maxAlignmentScore   = 3.0
)

// PairScorer computes the deterministic base score of a (activity, slot)
// pair and combines it with the prefetched advisory sub-scores. For fixed
// inputs the resulting total is exactly reproducible.
type PairScorer struct {
	fitTolerance float64
}

// NewPairScorer creates a scorer with the given duration-fit tolerance.
func NewPairScorer(fitTolerance float64) *PairScorer {
	if fitTolerance <= 0 {
		fitTolerance = DefaultFitTolerance
	}
	return &PairScorer{fitTolerance: fitTolerance}
}

// Feasible reports whether the pair passes the hard constraints: the slot
// must have capacity for the activity, and the activity's preferred window
// must intersect the slot. Infeasible pairs never enter the candidate set.
func (s *PairScorer) Feasible(activity anchoringDomain.ActivityRequirement, slot *anchoringDomain.Slot) bool {
	if slot.RemainingDuration() < activity.Duration {
		return false
	}
	prefStart, prefEnd, ok := activity.Preference().Window(slot.Start())
	if !ok {
		return true
	}
	return prefStart.Before(slot.End()) && prefEnd.After(slot.Start())
}

// Score builds the scored pair for a feasible (activity, slot) combination.
// The advisory sub-scores are taken as given; only the base components are
// computed here.
func (s *PairScorer) Score(activity anchoringDomain.ActivityRequirement, slot *anchoringDomain.Slot, advisory advisoryDomain.ScoreSet) anchoringDomain.ScoredPair {
	advisory = advisory.Clamp()
	return anchoringDomain.ScoredPair{
		ActivityID:   activity.ID,
		SlotID:       slot.ID(),
		BaseScore:    s.baseScore(activity, slot),
		PatternScore: advisory.Pattern,
		HabitScore:   advisory.Habit,
		ContextScore: advisory.Context,
		Priority:     activity.Priority,
		SlotStart:    slot.Start(),
	}
}

// baseScore is bounded [0, 15]: duration fit (0-2), preferred-window match
// (0-10), and priority alignment with the slot's size class (0-3).
func (s *PairScorer) baseScore(activity anchoringDomain.ActivityRequirement, slot *anchoringDomain.Slot) float64 {
	return s.durationFit(activity, slot) + s.windowMatch(activity, slot) + priorityAlignment(activity.Priority, slot.SizeClass())
}

// durationFit rewards slots whose remaining capacity is close to the
// activity duration: a snug fit (within the tolerance) wastes no capacity.
func (s *PairScorer) durationFit(activity anchoringDomain.ActivityRequirement, slot *anchoringDomain.Slot) float64 {
	remaining := slot.RemainingDuration()
	if remaining < activity.Duration {
		return 0
	}
	snug := time.Duration(float64(activity.Duration) * (1 + s.fitTolerance))
	if remaining <= snug {
		return maxDurationFitScore
	}
	return 1
}

// windowMatch scores how much of the activity, placed at the slot's next
// free start, falls inside its preferred energy window.
func (s *PairScorer) windowMatch(activity anchoringDomain.ActivityRequirement, slot *anchoringDomain.Slot) float64 {
	prefStart, prefEnd, ok := activity.Preference().Window(slot.Start())
	if !ok {
		return maxWindowMatchScore
	}

	placeStart := slot.NextStart()
	placeEnd := placeStart.Add(activity.Duration)
	overlap := overlapDuration(placeStart, placeEnd, prefStart, prefEnd)
	if overlap <= 0 {
		return 0
	}
	return float64(overlap) / float64(activity.Duration) * maxWindowMatchScore
}

// priorityAlignment pairs urgent activities with large slots and low
// priority activities with the small gaps nobody else wants.
func priorityAlignment(priority int, class anchoringDomain.SizeClass) float64 {
	switch class {
	case anchoringDomain.SizeLarge:
		switch {
		case priority <= 1:
			return 3
		case priority == 2:
			return 2
		case priority == 3:
			return 1
		default:
			return 0
		}
	case anchoringDomain.SizeMedium:
		switch {
		case priority == 2 || priority == 3:
			return 2
		default:
			return 1
		}
	case anchoringDomain.SizeSmall:
		if priority >= 4 {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func overlapDuration(aStart, aEnd, bStart, bEnd time.Time) time.Duration {
	start := aStart
	if bStart.After(start) {
		start = bStart
	}
	end := aEnd
	if bEnd.Before(end) {
		end = bEnd
	}
	return end.Sub(start)
}
