// Package domain defines the calendar provider port. Providers are
// read-only collaborators: the engine never mutates a user's calendar.
package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventStatus is the provider-reported status of a calendar event.
type EventStatus string

const (
	StatusConfirmed EventStatus = "confirmed"
	StatusTentative EventStatus = "tentative"
	StatusCancelled EventStatus = "cancelled"
)

// RawEvent is a provider-specific calendar event before normalization.
type RawEvent struct {
	ID     string
	Title  string
	Start  time.Time
	End    time.Time
	Status EventStatus
	AllDay bool
}

// Provider supplies busy/free events for a user and date range.
type Provider interface {
	FetchEvents(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]RawEvent, error)
}
