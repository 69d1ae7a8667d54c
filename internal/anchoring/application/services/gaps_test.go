package services_test

import (
	"testing"
	"time"

	"github.com/anchora-app/anchora/internal/anchoring/application/services"
	"github.com/anchora-app/anchora/internal/anchoring/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustInterval(t *testing.T, start, end time.Time, label string) domain.BusyInterval {
	t.Helper()
	iv, err := domain.NewBusyInterval(start, end, label)
	require.NoError(t, err)
	return iv
}

func TestFindSlots_TypicalDay(t *testing.T) {
	busy := []domain.BusyInterval{
		mustInterval(t, at(9, 0), at(9, 30), "standup"),
		mustInterval(t, at(14, 0), at(15, 0), "review"),
		mustInterval(t, at(17, 0), at(17, 30), "sync"),
	}

	slots, err := services.FindSlots(busy, windowStart, windowEnd, 15*time.Minute)

	require.NoError(t, err)
	require.Len(t, slots, 4)

	assert.Equal(t, windowStart, slots[0].Start())
	assert.Equal(t, at(9, 0), slots[0].End())
	assert.Equal(t, at(9, 30), slots[1].Start())
	assert.Equal(t, at(14, 0), slots[1].End())
	assert.Equal(t, at(15, 0), slots[2].Start())
	assert.Equal(t, at(17, 0), slots[2].End())
	assert.Equal(t, at(17, 30), slots[3].Start())
	assert.Equal(t, windowEnd, slots[3].End())

	var free time.Duration
	for _, s := range slots {
		assert.Equal(t, domain.SizeLarge, s.SizeClass())
		free += s.RemainingDuration()
	}
	assert.Equal(t, 840*time.Minute, free)
}

func TestFindSlots_EmptyCalendar(t *testing.T) {
	slots, err := services.FindSlots(nil, windowStart, windowEnd, 15*time.Minute)

	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, windowStart, slots[0].Start())
	assert.Equal(t, windowEnd, slots[0].End())
	assert.Equal(t, 16*time.Hour, slots[0].RemainingDuration())
}

func TestFindSlots_FullyBooked(t *testing.T) {
	busy := []domain.BusyInterval{
		mustInterval(t, windowStart, windowEnd, "offsite"),
	}

	slots, err := services.FindSlots(busy, windowStart, windowEnd, 15*time.Minute)

	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestFindSlots_DropsGapsBelowMinimum(t *testing.T) {
	busy := []domain.BusyInterval{
		mustInterval(t, at(6, 10), at(12, 0), "deep work"),
		mustInterval(t, at(12, 20), at(21, 55), "workshop"),
	}

	slots, err := services.FindSlots(busy, windowStart, windowEnd, 15*time.Minute)

	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, at(12, 0), slots[0].Start())
	assert.Equal(t, at(12, 20), slots[0].End())
	assert.Equal(t, domain.SizeSmall, slots[0].SizeClass())
}

func TestFindSlots_NeighborLinks(t *testing.T) {
	busy := []domain.BusyInterval{
		mustInterval(t, at(9, 0), at(9, 30), "standup"),
	}

	slots, err := services.FindSlots(busy, windowStart, windowEnd, 15*time.Minute)

	require.NoError(t, err)
	require.Len(t, slots, 2)
	require.NotNil(t, slots[0].FollowingEvent())
	assert.Equal(t, "standup", slots[0].FollowingEvent().Label)
	assert.Nil(t, slots[0].PrecedingEvent())
	require.NotNil(t, slots[1].PrecedingEvent())
	assert.Equal(t, "standup", slots[1].PrecedingEvent().Label)
	assert.Nil(t, slots[1].FollowingEvent())
}

func TestFindSlots_DeterministicIdentity(t *testing.T) {
	busy := []domain.BusyInterval{
		mustInterval(t, at(9, 0), at(9, 30), "standup"),
	}

	first, err := services.FindSlots(busy, windowStart, windowEnd, 15*time.Minute)
	require.NoError(t, err)
	second, err := services.FindSlots(busy, windowStart, windowEnd, 15*time.Minute)
	require.NoError(t, err)

	require.Len(t, first, 2)
	require.Len(t, second, 2)
	for i := range first {
		assert.Equal(t, first[i].ID(), second[i].ID())
	}
}
