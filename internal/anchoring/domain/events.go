package domain

import (
	"time"

	sharedDomain "github.com/anchora-app/anchora/internal/shared/domain"
	"github.com/google/uuid"
)

// Routing keys for anchoring domain events.
const (
	RoutingKeyRunCompleted = "anchoring.run.completed"
)

// AggregateTypeRun identifies the AnchoringRun aggregate in event metadata.
const AggregateTypeRun = "anchoring_run"

// RunCompleted is emitted when an anchoring run is finalized.
type RunCompleted struct {
	sharedDomain.BaseEvent
	UserID  uuid.UUID
	Date    time.Time
	Summary RunSummary
}

// NewRunCompleted creates a RunCompleted event from a finalized run.
func NewRunCompleted(run *AnchoringRun) RunCompleted {
	return RunCompleted{
		BaseEvent: sharedDomain.NewBaseEvent(run.ID(), AggregateTypeRun, RoutingKeyRunCompleted),
		UserID:    run.UserID(),
		Date:      run.Date(),
		Summary:   run.Summary(),
	}
}
