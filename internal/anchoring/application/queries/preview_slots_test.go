package queries

import (
	"context"
	"testing"
	"time"

	"github.com/anchora-app/anchora/internal/anchoring/application/services"
	calendarApp "github.com/anchora-app/anchora/internal/calendar/application"
	calendarDomain "github.com/anchora-app/anchora/internal/calendar/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticProvider struct {
	events []calendarDomain.RawEvent
}

func (p *staticProvider) FetchEvents(context.Context, uuid.UUID, time.Time, time.Time) ([]calendarDomain.RawEvent, error) {
	return p.events, nil
}

func TestPreviewSlotsHandler(t *testing.T) {
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	events := []calendarDomain.RawEvent{
		{ID: "standup", Title: "standup", Start: date.Add(9 * time.Hour), End: date.Add(9*time.Hour + 30*time.Minute)},
	}
	fetcher := calendarApp.NewFetcher(&staticProvider{events: events}, time.Second, nil)
	handler := NewPreviewSlotsHandler(fetcher, services.DefaultEngineConfig())

	slots, err := handler.Handle(context.Background(), PreviewSlotsQuery{UserID: uuid.New(), Date: date})

	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, date.Add(6*time.Hour), slots[0].Start)
	assert.Equal(t, "large", slots[0].SizeClass)
	assert.Equal(t, "standup", slots[0].FollowingEvent)
	assert.Empty(t, slots[0].PrecedingEvent)
	assert.Equal(t, "standup", slots[1].PrecedingEvent)
	assert.Equal(t, 180, slots[0].DurationMins)
}

func TestPreviewSlotsHandler_EmptyDay(t *testing.T) {
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	fetcher := calendarApp.NewFetcher(&staticProvider{}, time.Second, nil)
	handler := NewPreviewSlotsHandler(fetcher, services.DefaultEngineConfig())

	slots, err := handler.Handle(context.Background(), PreviewSlotsQuery{UserID: uuid.New(), Date: date})

	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, 16*60, slots[0].DurationMins)
}
