package queries

import (
	"context"

	"github.com/anchora-app/anchora/internal/anchoring/domain"
	"github.com/google/uuid"
)

// DefaultListLimit bounds unpaginated run listings.
const DefaultListLimit = 20

// ListRunsQuery contains the parameters for listing a user's runs.
type ListRunsQuery struct {
	UserID uuid.UUID
	Limit  int
}

// ListRunsHandler handles the ListRunsQuery.
type ListRunsHandler struct {
	runRepo domain.RunRepository
}

// NewListRunsHandler creates a new ListRunsHandler.
func NewListRunsHandler(runRepo domain.RunRepository) *ListRunsHandler {
	return &ListRunsHandler{runRepo: runRepo}
}

// Handle executes the ListRunsQuery, newest run first.
func (h *ListRunsHandler) Handle(ctx context.Context, query ListRunsQuery) ([]RunDTO, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	runs, err := h.runRepo.ListByUser(ctx, query.UserID, limit)
	if err != nil {
		return nil, err
	}

	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run)
	}
	return dtos, nil
}
