package domain

import (
	"time"

	"github.com/google/uuid"
)

// EnergyPreference expresses when during the day an activity is best done.
type EnergyPreference string

const (
	EnergyMorning   EnergyPreference = "morning"
	EnergyAfternoon EnergyPreference = "afternoon"
	EnergyEvening   EnergyPreference = "evening"
	EnergyAny       EnergyPreference = "any"
)

// Window returns the preferred clock window on the given date.
// EnergyAny returns ok=false: the whole active window is acceptable.
func (p EnergyPreference) Window(date time.Time) (start, end time.Time, ok bool) {
	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	switch p {
	case EnergyMorning:
		return midnight.Add(6 * time.Hour), midnight.Add(12 * time.Hour), true
	case EnergyAfternoon:
		return midnight.Add(12 * time.Hour), midnight.Add(17 * time.Hour), true
	case EnergyEvening:
		return midnight.Add(17 * time.Hour), midnight.Add(22 * time.Hour), true
	default:
		return time.Time{}, time.Time{}, false
	}
}

// IsValid reports whether the preference is a known value.
func (p EnergyPreference) IsValid() bool {
	switch p {
	case EnergyMorning, EnergyAfternoon, EnergyEvening, EnergyAny:
		return true
	default:
		return false
	}
}

// ActivityRequirement is the read-only description of one proposed activity
// for a single anchoring run.
type ActivityRequirement struct {
	ID               uuid.UUID
	Title            string
	Category         string
	Duration         time.Duration
	EnergyPreference EnergyPreference
	ProposedTime     time.Time
	Priority         int // 1 = urgent .. 5 = none
}

// Validate checks the requirement's structural invariants.
func (a ActivityRequirement) Validate() error {
	if a.ID == uuid.Nil {
		return NewInvariantError("activity_id", a.Title, "activity ID must be set")
	}
	if a.Duration <= 0 {
		return NewInvariantError("activity_duration", a.ID.String(), "duration must be positive")
	}
	if a.EnergyPreference != "" && !a.EnergyPreference.IsValid() {
		return NewInvariantError("activity_energy", a.ID.String(), "unknown energy preference")
	}
	return nil
}

// Preference normalizes an unset energy preference to EnergyAny.
func (a ActivityRequirement) Preference() EnergyPreference {
	if a.EnergyPreference == "" {
		return EnergyAny
	}
	return a.EnergyPreference
}
