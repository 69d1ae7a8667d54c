package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RunRepository persists finalized anchoring runs.
type RunRepository interface {
	Save(ctx context.Context, run *AnchoringRun) error
	FindByID(ctx context.Context, id uuid.UUID) (*AnchoringRun, error)
	// FindByUserAndDate returns the most recent run for the user and date,
	// or nil if none exists.
	FindByUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) (*AnchoringRun, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*AnchoringRun, error)
}
