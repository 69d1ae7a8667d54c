package services

import (
	"time"

	anchoringDomain "github.com/anchora-app/anchora/internal/anchoring/domain"
)

// DefaultMinSlotDuration is the smallest gap worth offering for anchoring.
const DefaultMinSlotDuration = 15 * time.Minute

// FindSlots walks the merged busy intervals once and emits every free gap
// in the active window that is at least minDuration long. Each slot is
// tagged with its neighboring busy events. An empty busy list yields one
// slot spanning the whole window; a fully booked day yields none.
func FindSlots(busy []anchoringDomain.BusyInterval, windowStart, windowEnd time.Time, minDuration time.Duration) ([]*anchoringDomain.Slot, error) {
	if minDuration <= 0 {
		minDuration = DefaultMinSlotDuration
	}
	if !windowEnd.After(windowStart) {
		return nil, anchoringDomain.NewInvariantError("active_window", "", "window end must be after window start")
	}

	slots := make([]*anchoringDomain.Slot, 0, len(busy)+1)

	emit := func(start, end time.Time, preceding, following *anchoringDomain.BusyInterval) error {
		if end.Sub(start) < minDuration {
			return nil
		}
		slot, err := anchoringDomain.NewSlot(start, end, preceding, following)
		if err != nil {
			return err
		}
		slots = append(slots, slot)
		return nil
	}

	cursor := windowStart
	var preceding *anchoringDomain.BusyInterval
	for i := range busy {
		interval := busy[i]
		if err := emit(cursor, interval.Start, preceding, &busy[i]); err != nil {
			return nil, err
		}
		if interval.End.After(cursor) {
			cursor = interval.End
		}
		preceding = &busy[i]
	}
	if err := emit(cursor, windowEnd, preceding, nil); err != nil {
		return nil, err
	}

	return slots, nil
}
