package services

import (
	"log/slog"
	"sort"

	anchoringDomain "github.com/anchora-app/anchora/internal/anchoring/domain"
)

// DefaultFallbackConfidence is the confidence assigned to placements the
// coordinator could not anchor.
const DefaultFallbackConfidence = 0.3

// FallbackResolver places every unassigned activity at its originally
// proposed time, flagged as a low-confidence placement. Every activity
// receives exactly one placement regardless of calendar density.
type FallbackResolver struct {
	confidence float64
	logger     *slog.Logger
}

// NewFallbackResolver creates a resolver with the given confidence value.
func NewFallbackResolver(confidence float64, logger *slog.Logger) *FallbackResolver {
	if confidence <= 0 {
		confidence = DefaultFallbackConfidence
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackResolver{confidence: confidence, logger: logger}
}

// Resolve adds a fallback placement for every unassigned activity.
func (r *FallbackResolver) Resolve(run *anchoringDomain.AnchoringRun, unassigned []anchoringDomain.ActivityRequirement) error {
	for _, activity := range unassigned {
		if err := run.AddPlacement(anchoringDomain.NewFallbackPlacement(activity, r.confidence)); err != nil {
			return err
		}
		r.logger.Debug("activity placed at proposed time",
			"activity_id", activity.ID,
			"proposed_time", activity.ProposedTime,
		)
	}
	return nil
}

// sortActivities orders activities by priority, then by ID, for use
// anywhere the engine needs a deterministic activity order.
func sortActivities(activities []anchoringDomain.ActivityRequirement) {
	sort.Slice(activities, func(i, j int) bool {
		if activities[i].Priority != activities[j].Priority {
			return activities[i].Priority < activities[j].Priority
		}
		return activities[i].ID.String() < activities[j].ID.String()
	})
}
