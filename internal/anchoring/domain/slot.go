package domain

import (
	"time"

	"github.com/google/uuid"
)

// SizeClass classifies a slot by its length.
type SizeClass string

const (
	SizeSmall  SizeClass = "small"  // under 30 minutes
	SizeMedium SizeClass = "medium" // 30 to 60 minutes
	SizeLarge  SizeClass = "large"  // 60 minutes or more
)

// ClassifySize maps a duration to its size class.
func ClassifySize(d time.Duration) SizeClass {
	switch {
	case d < 30*time.Minute:
		return SizeSmall
	case d < 60*time.Minute:
		return SizeMedium
	default:
		return SizeLarge
	}
}

// slotNamespace seeds deterministic slot IDs. Two runs over the same
// calendar derive the same slot IDs, keeping re-runs reproducible.
var slotNamespace = uuid.MustParse("9f2c1b74-5a0e-4f4d-8c0a-2d9e6b1f3a58")

// Slot is a contiguous free interval between busy calendar events.
// RemainingDuration shrinks as the coordinator commits activities into it.
type Slot struct {
	id                uuid.UUID
	start             time.Time
	end               time.Time
	sizeClass         SizeClass
	precedingEvent    *BusyInterval
	followingEvent    *BusyInterval
	remainingDuration time.Duration
}

// NewSlot creates a slot spanning [start, end) with optional neighboring events.
func NewSlot(start, end time.Time, preceding, following *BusyInterval) (*Slot, error) {
	if !end.After(start) {
		return nil, NewInvariantError("slot_ordering", "", "slot end must be after start")
	}
	length := end.Sub(start)
	name := start.UTC().Format(time.RFC3339) + "/" + end.UTC().Format(time.RFC3339)
	return &Slot{
		id:                uuid.NewSHA1(slotNamespace, []byte(name)),
		start:             start,
		end:               end,
		sizeClass:         ClassifySize(length),
		precedingEvent:    preceding,
		followingEvent:    following,
		remainingDuration: length,
	}, nil
}

func (s *Slot) ID() uuid.UUID                    { return s.id }
func (s *Slot) Start() time.Time                 { return s.start }
func (s *Slot) End() time.Time                   { return s.end }
func (s *Slot) SizeClass() SizeClass             { return s.sizeClass }
func (s *Slot) PrecedingEvent() *BusyInterval    { return s.precedingEvent }
func (s *Slot) FollowingEvent() *BusyInterval    { return s.followingEvent }
func (s *Slot) RemainingDuration() time.Duration { return s.remainingDuration }

// NextStart returns the start time for the next activity committed into
// this slot. Activities pack from the front of the slot.
func (s *Slot) NextStart() time.Time {
	return s.end.Add(-s.remainingDuration)
}

// Consume reduces the slot's remaining capacity by the given duration.
// Capacity is monotonic: it strictly decreases and never goes negative.
func (s *Slot) Consume(d time.Duration) error {
	if d <= 0 {
		return NewInvariantError("slot_consumption", s.id.String(), "consumed duration must be positive")
	}
	if d > s.remainingDuration {
		return NewInvariantError("slot_capacity", s.id.String(), "consumed duration exceeds remaining capacity")
	}
	s.remainingDuration -= d
	return nil
}
