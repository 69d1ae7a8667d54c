// Package application wraps calendar providers with the failure semantics
// the anchoring engine requires: provider errors degrade to an empty
// calendar instead of failing the run.
package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/anchora-app/anchora/internal/calendar/domain"
	"github.com/google/uuid"
)

// DefaultFetchTimeout bounds a single provider call.
const DefaultFetchTimeout = 10 * time.Second

// Fetcher fetches events from a provider with a timeout and degrades to an
// empty calendar on any provider failure.
type Fetcher struct {
	provider domain.Provider
	timeout  time.Duration
	logger   *slog.Logger
}

// NewFetcher creates a fetcher around the given provider. A nil provider is
// valid and always yields an empty calendar.
func NewFetcher(provider domain.Provider, timeout time.Duration, logger *slog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{provider: provider, timeout: timeout, logger: logger}
}

// FetchEvents returns the user's events in [from, to). It never returns an
// error: a provider failure or timeout yields an empty event list.
func (f *Fetcher) FetchEvents(ctx context.Context, userID uuid.UUID, from, to time.Time) []domain.RawEvent {
	if f.provider == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	events, err := f.provider.FetchEvents(ctx, userID, from, to)
	if err != nil {
		f.logger.Warn("calendar provider unavailable, treating calendar as empty",
			"user_id", userID,
			"from", from,
			"to", to,
			"error", err,
		)
		return nil
	}
	return events
}
