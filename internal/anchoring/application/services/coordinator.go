package services

import (
	"log/slog"
	"time"

	anchoringDomain "github.com/anchora-app/anchora/internal/anchoring/domain"
	advisoryApp "github.com/anchora-app/anchora/internal/advisory/application"
	advisoryDomain "github.com/anchora-app/anchora/internal/advisory/domain"
	"github.com/google/uuid"
)

// Coordinator runs the greedy assignment loop: the highest-scoring feasible
// pair is committed first, the consumed slot shrinks, and affected pairs
// are re-scored against the remaining capacity. Advisory sub-scores are
// pair-invariant with respect to capacity and are never re-fetched.
type Coordinator struct {
	scorer          *PairScorer
	minSlotDuration time.Duration
	logger          *slog.Logger
}

// NewCoordinator creates an assignment coordinator.
func NewCoordinator(scorer *PairScorer, minSlotDuration time.Duration, logger *slog.Logger) *Coordinator {
	if minSlotDuration <= 0 {
		minSlotDuration = DefaultMinSlotDuration
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		scorer:          scorer,
		minSlotDuration: minSlotDuration,
		logger:          logger,
	}
}

// Assign commits activities into slots until no feasible pair remains, and
// returns the activities it could not place. A single unassignable activity
// never fails the run; it is left to the fallback resolver.
func (c *Coordinator) Assign(
	run *anchoringDomain.AnchoringRun,
	activities []anchoringDomain.ActivityRequirement,
	slots []*anchoringDomain.Slot,
	advisory map[advisoryApp.PairKey]advisoryDomain.ScoreSet,
) ([]anchoringDomain.ActivityRequirement, error) {
	pending := make(map[uuid.UUID]anchoringDomain.ActivityRequirement, len(activities))
	for _, a := range activities {
		pending[a.ID] = a
	}
	pool := make(map[uuid.UUID]*anchoringDomain.Slot, len(slots))
	for _, s := range slots {
		if s.RemainingDuration() >= c.minSlotDuration {
			pool[s.ID()] = s
		}
	}

	candidates := c.buildCandidates(pending, pool, advisory)

	for len(pending) > 0 && len(candidates) > 0 {
		best := candidates[0]
		for _, pair := range candidates[1:] {
			if pair.Less(best) {
				best = pair
			}
		}

		activity := pending[best.ActivityID]
		slot := pool[best.SlotID]

		start := slot.NextStart()
		end := start.Add(activity.Duration)
		placement, err := anchoringDomain.NewAnchoredPlacement(activity.ID, slot.ID(), start, end, best.Breakdown())
		if err != nil {
			return nil, err
		}
		if err := run.AddPlacement(placement); err != nil {
			return nil, err
		}
		if err := slot.Consume(activity.Duration); err != nil {
			return nil, err
		}

		c.logger.Debug("activity anchored",
			"activity_id", activity.ID,
			"slot_id", slot.ID(),
			"start", start,
			"total_score", best.TotalScore(),
		)

		delete(pending, activity.ID)
		if slot.RemainingDuration() < c.minSlotDuration {
			delete(pool, slot.ID())
		}

		candidates = c.rescore(candidates, activity.ID, slot.ID(), pending, pool, advisory)
	}

	unassigned := make([]anchoringDomain.ActivityRequirement, 0, len(pending))
	for _, a := range pending {
		unassigned = append(unassigned, a)
	}
	sortActivities(unassigned)
	return unassigned, nil
}

// buildCandidates scores every feasible (pending, pooled) pair.
func (c *Coordinator) buildCandidates(
	pending map[uuid.UUID]anchoringDomain.ActivityRequirement,
	pool map[uuid.UUID]*anchoringDomain.Slot,
	advisory map[advisoryApp.PairKey]advisoryDomain.ScoreSet,
) []anchoringDomain.ScoredPair {
	candidates := make([]anchoringDomain.ScoredPair, 0, len(pending)*len(pool))
	for _, activity := range pending {
		for _, slot := range pool {
			if !c.scorer.Feasible(activity, slot) {
				continue
			}
			scores := advisory[advisoryApp.PairKey{ActivityID: activity.ID, SlotID: slot.ID()}]
			candidates = append(candidates, c.scorer.Score(activity, slot, scores))
		}
	}
	return candidates
}

// rescore drops pairs for the assigned activity, re-evaluates pairs on the
// consumed slot against its reduced capacity, and leaves every other pair
// untouched.
func (c *Coordinator) rescore(
	candidates []anchoringDomain.ScoredPair,
	assignedActivity, consumedSlot uuid.UUID,
	pending map[uuid.UUID]anchoringDomain.ActivityRequirement,
	pool map[uuid.UUID]*anchoringDomain.Slot,
	advisory map[advisoryApp.PairKey]advisoryDomain.ScoreSet,
) []anchoringDomain.ScoredPair {
	next := candidates[:0]
	for _, pair := range candidates {
		if pair.ActivityID == assignedActivity {
			continue
		}
		if pair.SlotID != consumedSlot {
			next = append(next, pair)
			continue
		}

		slot, ok := pool[consumedSlot]
		if !ok {
			continue // slot dropped below the minimum
		}
		activity := pending[pair.ActivityID]
		if !c.scorer.Feasible(activity, slot) {
			continue
		}
		scores := advisory[advisoryApp.PairKey{ActivityID: activity.ID, SlotID: slot.ID()}]
		next = append(next, c.scorer.Score(activity, slot, scores))
	}
	return next
}
