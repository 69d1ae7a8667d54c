package domain

import (
	"time"

	"github.com/google/uuid"
	sharedDomain "github.com/anchora-app/anchora/internal/shared/domain"
)

// RunSummary holds the run-level counters computed at finalization.
type RunSummary struct {
	TasksTotal        int     `json:"tasks_total"`
	TasksAnchored     int     `json:"tasks_anchored"`
	TasksFallback     int     `json:"tasks_fallback"`
	AverageConfidence float64 `json:"average_confidence"`
	ConflictsDetected int     `json:"conflicts_detected"`
	UtilizationPct    float64 `json:"utilization_pct"`
}

// AnchoringRun aggregates the placements and summary of one anchoring
// invocation for a (user, date). Immutable once finalized.
type AnchoringRun struct {
	sharedDomain.BaseAggregateRoot
	userID      uuid.UUID
	date        time.Time
	windowStart time.Time
	windowEnd   time.Time
	placements  []Placement
	conflicts   []uuid.UUID
	summary     RunSummary
	finalized   bool
}

// NewAnchoringRun creates a run for a user and target date with the given
// active window. The date is normalized to start of day.
func NewAnchoringRun(userID uuid.UUID, date time.Time, windowStart, windowEnd time.Time) *AnchoringRun {
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return &AnchoringRun{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		userID:            userID,
		date:              date,
		windowStart:       windowStart,
		windowEnd:         windowEnd,
		placements:        make([]Placement, 0),
	}
}

func (r *AnchoringRun) UserID() uuid.UUID      { return r.userID }
func (r *AnchoringRun) Date() time.Time        { return r.date }
func (r *AnchoringRun) WindowStart() time.Time { return r.windowStart }
func (r *AnchoringRun) WindowEnd() time.Time   { return r.windowEnd }
func (r *AnchoringRun) Placements() []Placement { return r.placements }
func (r *AnchoringRun) Summary() RunSummary    { return r.summary }
func (r *AnchoringRun) IsFinalized() bool      { return r.finalized }

// ConflictActivityIDs lists the activities whose fallback placement
// overlaps a busy interval. Populated at finalization.
func (r *AnchoringRun) ConflictActivityIDs() []uuid.UUID { return r.conflicts }

// AddPlacement records the placement for one activity. Each activity
// receives exactly one placement per run.
func (r *AnchoringRun) AddPlacement(p Placement) error {
	if r.finalized {
		return ErrRunFinalized
	}
	for _, existing := range r.placements {
		if existing.ActivityID == p.ActivityID {
			return ErrDuplicatePlacement
		}
	}
	r.placements = append(r.placements, p)
	r.Touch()
	return nil
}

// Finalize computes the run summary against the normalized busy intervals
// and seals the run. Conflicts are fallback placements overlapping a busy
// interval.
func (r *AnchoringRun) Finalize(busy []BusyInterval) error {
	if r.finalized {
		return ErrRunFinalized
	}

	summary := RunSummary{TasksTotal: len(r.placements)}

	var confidenceSum float64
	var anchoredTime time.Duration
	for _, p := range r.placements {
		confidenceSum += p.Confidence
		if p.IsFallback {
			summary.TasksFallback++
			for _, b := range busy {
				if p.Overlaps(b.Start, b.End) {
					summary.ConflictsDetected++
					r.conflicts = append(r.conflicts, p.ActivityID)
					break
				}
			}
			continue
		}
		summary.TasksAnchored++
		anchoredTime += p.End.Sub(p.Start)
	}

	if summary.TasksTotal > 0 {
		summary.AverageConfidence = confidenceSum / float64(summary.TasksTotal)
	}
	if window := r.windowEnd.Sub(r.windowStart); window > 0 {
		summary.UtilizationPct = float64(anchoredTime) / float64(window) * 100
	}

	r.summary = summary
	r.finalized = true
	r.Touch()

	r.AddDomainEvent(NewRunCompleted(r))

	return nil
}

// RehydrateRun recreates a finalized run from persisted state.
func RehydrateRun(
	id uuid.UUID,
	userID uuid.UUID,
	date time.Time,
	windowStart, windowEnd time.Time,
	placements []Placement,
	conflicts []uuid.UUID,
	summary RunSummary,
	createdAt, updatedAt time.Time,
) *AnchoringRun {
	base := sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt)
	return &AnchoringRun{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(base),
		userID:            userID,
		date:              date,
		windowStart:       windowStart,
		windowEnd:         windowEnd,
		placements:        placements,
		conflicts:         conflicts,
		summary:           summary,
		finalized:         true,
	}
}
