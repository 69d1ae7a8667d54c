// Package commands holds the write-side handlers of the anchoring context.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/anchora-app/anchora/internal/anchoring/application/services"
	"github.com/anchora-app/anchora/internal/anchoring/domain"
	"github.com/anchora-app/anchora/internal/shared/infrastructure/eventbus"
	"github.com/google/uuid"
)

// ActivityInput is one proposed activity as supplied by the caller.
type ActivityInput struct {
	ID           uuid.UUID
	Title        string
	Category     string
	DurationMins int
	EnergyWindow string
	ProposedTime time.Time
	Priority     int
}

// AnchorDayCommand contains the data needed to anchor one day's activities.
type AnchorDayCommand struct {
	UserID     uuid.UUID
	Date       time.Time
	Activities []ActivityInput
}

// AnchorDayResult contains the outcome of an anchoring run.
type AnchorDayResult struct {
	RunID   uuid.UUID
	Summary domain.RunSummary
}

// AnchorDayHandler handles the AnchorDayCommand.
type AnchorDayHandler struct {
	engine    *services.Engine
	runRepo   domain.RunRepository
	publisher eventbus.Publisher
	logger    *slog.Logger
}

// NewAnchorDayHandler creates a new AnchorDayHandler.
func NewAnchorDayHandler(engine *services.Engine, runRepo domain.RunRepository, publisher eventbus.Publisher, logger *slog.Logger) *AnchorDayHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnchorDayHandler{
		engine:    engine,
		runRepo:   runRepo,
		publisher: publisher,
		logger:    logger,
	}
}

// Handle executes the AnchorDayCommand: run the engine, persist the run,
// and publish its completion event. Publish failures are logged, not
// returned; the run is already durable at that point.
func (h *AnchorDayHandler) Handle(ctx context.Context, cmd AnchorDayCommand) (*AnchorDayResult, error) {
	if cmd.UserID == uuid.Nil {
		return nil, fmt.Errorf("anchor day: user ID is required")
	}

	activities := make([]domain.ActivityRequirement, 0, len(cmd.Activities))
	for _, in := range cmd.Activities {
		activities = append(activities, domain.ActivityRequirement{
			ID:               in.ID,
			Title:            in.Title,
			Category:         in.Category,
			Duration:         time.Duration(in.DurationMins) * time.Minute,
			EnergyPreference: domain.EnergyPreference(in.EnergyWindow),
			ProposedTime:     in.ProposedTime,
			Priority:         in.Priority,
		})
	}

	run, err := h.engine.AnchorDay(ctx, cmd.UserID, cmd.Date, activities)
	if err != nil {
		return nil, fmt.Errorf("anchor day: %w", err)
	}

	if err := h.runRepo.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("anchor day: save run: %w", err)
	}

	h.publishEvents(ctx, run)
	run.ClearDomainEvents()

	return &AnchorDayResult{
		RunID:   run.ID(),
		Summary: run.Summary(),
	}, nil
}

// eventEnvelope is the wire shape of a published domain event.
type eventEnvelope struct {
	EventID       uuid.UUID       `json:"event_id"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	RoutingKey    string          `json:"routing_key"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

func (h *AnchorDayHandler) publishEvents(ctx context.Context, run *domain.AnchoringRun) {
	for _, event := range run.DomainEvents() {
		payload, err := json.Marshal(event)
		if err != nil {
			h.logger.Error("failed to encode domain event",
				"routing_key", event.RoutingKey(),
				"error", err,
			)
			continue
		}
		body, err := json.Marshal(eventEnvelope{
			EventID:       event.EventID(),
			AggregateID:   event.AggregateID(),
			AggregateType: event.AggregateType(),
			RoutingKey:    event.RoutingKey(),
			OccurredAt:    event.OccurredAt(),
			Payload:       payload,
		})
		if err != nil {
			h.logger.Error("failed to encode event envelope",
				"routing_key", event.RoutingKey(),
				"error", err,
			)
			continue
		}
		if err := h.publisher.Publish(ctx, event.RoutingKey(), body); err != nil {
			h.logger.Warn("failed to publish domain event",
				"routing_key", event.RoutingKey(),
				"aggregate_id", event.AggregateID(),
				"error", err,
			)
		}
	}
}
