package domain_test

import (
	"testing"
	"time"

	"github.com/anchora-app/anchora/internal/anchoring/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifySize(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		want     domain.SizeClass
	}{
		{"fifteen minutes is small", 15 * time.Minute, domain.SizeSmall},
		{"just under thirty is small", 29 * time.Minute, domain.SizeSmall},
		{"thirty minutes is medium", 30 * time.Minute, domain.SizeMedium},
		{"forty five minutes is medium", 45 * time.Minute, domain.SizeMedium},
		{"sixty minutes is large", 60 * time.Minute, domain.SizeLarge},
		{"three hours is large", 3 * time.Hour, domain.SizeLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.ClassifySize(tt.duration))
		})
	}
}

func TestNewSlot(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)

	slot, err := domain.NewSlot(start, end, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, domain.SizeLarge, slot.SizeClass())
	assert.Equal(t, 90*time.Minute, slot.RemainingDuration())
	assert.Equal(t, start, slot.NextStart())
}

func TestNewSlot_InvertedRange(t *testing.T) {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	_, err := domain.NewSlot(start, start.Add(-time.Hour), nil, nil)

	var invErr *domain.InvariantError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, "slot_ordering", invErr.Invariant)
}

func TestSlot_Consume(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	slot, err := domain.NewSlot(start, start.Add(time.Hour), nil, nil)
	require.NoError(t, err)

	require.NoError(t, slot.Consume(25*time.Minute))

	assert.Equal(t, 35*time.Minute, slot.RemainingDuration())
	assert.Equal(t, start.Add(25*time.Minute), slot.NextStart())
}

func TestSlot_Consume_NeverNegative(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	slot, err := domain.NewSlot(start, start.Add(30*time.Minute), nil, nil)
	require.NoError(t, err)

	err = slot.Consume(45 * time.Minute)

	var invErr *domain.InvariantError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, 30*time.Minute, slot.RemainingDuration())
}

func TestBusyInterval_Overlaps(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	interval, err := domain.NewBusyInterval(start, start.Add(time.Hour), "meeting")
	require.NoError(t, err)

	assert.True(t, interval.Overlaps(start.Add(30*time.Minute), start.Add(2*time.Hour)))
	// Half-open: an interval starting exactly at the end does not overlap.
	assert.False(t, interval.Overlaps(start.Add(time.Hour), start.Add(2*time.Hour)))
}

func TestBusyInterval_Touches(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	interval, err := domain.NewBusyInterval(start, start.Add(time.Hour), "meeting")
	require.NoError(t, err)

	// Adjacency touches even though it does not overlap.
	assert.True(t, interval.Touches(start.Add(time.Hour), start.Add(2*time.Hour)))
	assert.False(t, interval.Touches(start.Add(time.Hour+time.Minute), start.Add(2*time.Hour)))
}
