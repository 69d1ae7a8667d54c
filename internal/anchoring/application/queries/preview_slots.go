package queries

import (
	"context"
	"time"

	"github.com/anchora-app/anchora/internal/anchoring/application/services"
	"github.com/anchora-app/anchora/internal/anchoring/domain"
	calendarApp "github.com/anchora-app/anchora/internal/calendar/application"
	"github.com/google/uuid"
)

// SlotDTO is a data transfer object for one free slot.
type SlotDTO struct {
	ID             uuid.UUID
	Start          time.Time
	End            time.Time
	DurationMins   int
	SizeClass      string
	PrecedingEvent string
	FollowingEvent string
}

// PreviewSlotsQuery computes the free slots of a user's day without
// anchoring anything into them.
type PreviewSlotsQuery struct {
	UserID uuid.UUID
	Date   time.Time
}

// PreviewSlotsHandler handles the PreviewSlotsQuery.
type PreviewSlotsHandler struct {
	fetcher *calendarApp.Fetcher
	config  services.EngineConfig
}

// NewPreviewSlotsHandler creates a new PreviewSlotsHandler.
func NewPreviewSlotsHandler(fetcher *calendarApp.Fetcher, config services.EngineConfig) *PreviewSlotsHandler {
	return &PreviewSlotsHandler{fetcher: fetcher, config: config}
}

// Handle executes the PreviewSlotsQuery.
func (h *PreviewSlotsHandler) Handle(ctx context.Context, query PreviewSlotsQuery) ([]SlotDTO, error) {
	date := query.Date
	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	windowStart := midnight.Add(h.config.DayStart)
	windowEnd := midnight.Add(h.config.DayEnd)

	events := h.fetcher.FetchEvents(ctx, query.UserID, windowStart, windowEnd)
	busy, err := services.Normalize(events, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}
	slots, err := services.FindSlots(busy, windowStart, windowEnd, h.config.MinSlotDuration)
	if err != nil {
		return nil, err
	}

	dtos := make([]SlotDTO, len(slots))
	for i, slot := range slots {
		dtos[i] = SlotDTO{
			ID:             slot.ID(),
			Start:          slot.Start(),
			End:            slot.End(),
			DurationMins:   int(slot.RemainingDuration().Minutes()),
			SizeClass:      string(slot.SizeClass()),
			PrecedingEvent: neighborLabel(slot.PrecedingEvent()),
			FollowingEvent: neighborLabel(slot.FollowingEvent()),
		}
	}
	return dtos, nil
}

func neighborLabel(iv *domain.BusyInterval) string {
	if iv == nil {
		return ""
	}
	return iv.Label
}
