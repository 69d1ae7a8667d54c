// Package queries holds the read-side handlers of the anchoring context.
package queries

import (
	"context"
	"time"

	"github.com/anchora-app/anchora/internal/anchoring/domain"
	"github.com/google/uuid"
)

// PlacementDTO is a data transfer object for one placement.
type PlacementDTO struct {
	ActivityID uuid.UUID
	SlotID     *uuid.UUID
	Start      time.Time
	End        time.Time
	Confidence float64
	IsFallback bool
	Breakdown  *domain.ScoreBreakdown
}

// RunDTO is a data transfer object for an anchoring run.
type RunDTO struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Date        time.Time
	WindowStart time.Time
	WindowEnd   time.Time
	Placements  []PlacementDTO
	Summary     domain.RunSummary
	CreatedAt   time.Time
}

// GetRunQuery fetches one run by ID.
type GetRunQuery struct {
	RunID uuid.UUID
}

// GetRunHandler handles the GetRunQuery.
type GetRunHandler struct {
	runRepo domain.RunRepository
}

// NewGetRunHandler creates a new GetRunHandler.
func NewGetRunHandler(runRepo domain.RunRepository) *GetRunHandler {
	return &GetRunHandler{runRepo: runRepo}
}

// Handle executes the GetRunQuery.
func (h *GetRunHandler) Handle(ctx context.Context, query GetRunQuery) (*RunDTO, error) {
	run, err := h.runRepo.FindByID(ctx, query.RunID)
	if err != nil {
		return nil, err
	}
	dto := toRunDTO(run)
	return &dto, nil
}

func toRunDTO(run *domain.AnchoringRun) RunDTO {
	placements := make([]PlacementDTO, len(run.Placements()))
	for i, p := range run.Placements() {
		placements[i] = PlacementDTO{
			ActivityID: p.ActivityID,
			SlotID:     p.SlotID,
			Start:      p.Start,
			End:        p.End,
			Confidence: p.Confidence,
			IsFallback: p.IsFallback,
			Breakdown:  p.Breakdown,
		}
	}
	return RunDTO{
		ID:          run.ID(),
		UserID:      run.UserID(),
		Date:        run.Date(),
		WindowStart: run.WindowStart(),
		WindowEnd:   run.WindowEnd(),
		Placements:  placements,
		Summary:     run.Summary(),
		CreatedAt:   run.CreatedAt(),
	}
}
