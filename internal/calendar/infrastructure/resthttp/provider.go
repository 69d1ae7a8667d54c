// Package resthttp implements the calendar provider port against a
// Google-style calendar REST API authorized with OAuth bearer tokens.
package resthttp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	calendarDomain "github.com/anchora-app/anchora/internal/calendar/domain"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const defaultBaseURL = "https://www.googleapis.com/calendar/v3"

// TokenSourceProvider supplies an OAuth token source for a user.
type TokenSourceProvider interface {
	TokenSource(ctx context.Context, userID uuid.UUID) (oauth2.TokenSource, error)
}

// StaticTokenSource adapts a fixed token to TokenSourceProvider. Useful for
// service accounts and tests.
type StaticTokenSource struct {
	Token string
}

// TokenSource returns a token source yielding the static token.
func (s StaticTokenSource) TokenSource(ctx context.Context, userID uuid.UUID) (oauth2.TokenSource, error) {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: s.Token}), nil
}

// Provider reads events from a calendar REST API.
type Provider struct {
	oauthService TokenSourceProvider
	logger       *slog.Logger
	baseURL      string
	calendarID   string
}

// NewProvider creates a REST calendar provider.
func NewProvider(oauthService TokenSourceProvider, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		oauthService: oauthService,
		logger:       logger,
		baseURL:      defaultBaseURL,
		calendarID:   "primary",
	}
}

// WithBaseURL overrides the API base URL.
func (p *Provider) WithBaseURL(baseURL string) *Provider {
	if baseURL != "" {
		p.baseURL = baseURL
	}
	return p
}

// WithCalendarID sets the calendar to read from.
func (p *Provider) WithCalendarID(calendarID string) *Provider {
	if calendarID != "" {
		p.calendarID = calendarID
	}
	return p
}

// FetchEvents returns the events within [from, to).
func (p *Provider) FetchEvents(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]calendarDomain.RawEvent, error) {
	if p.oauthService == nil {
		return nil, fmt.Errorf("oauth service not configured")
	}
	tokenSource, err := p.oauthService.TokenSource(ctx, userID)
	if err != nil {
		return nil, err
	}
	client := http.Client{
		Timeout: 15 * time.Second,
		Transport: &oauthTransport{
			base:   http.DefaultTransport,
			source: tokenSource,
		},
	}

	query := fmt.Sprintf("timeMin=%s&timeMax=%s&singleEvents=true&orderBy=startTime",
		from.UTC().Format(time.RFC3339),
		to.UTC().Format(time.RFC3339),
	)
	listURL := fmt.Sprintf("%s/calendars/%s/events?%s", p.baseURL, p.calendarID, query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, responseError(resp)
	}

	var payload struct {
		Items []struct {
			ID      string `json:"id"`
			Summary string `json:"summary"`
			Status  string `json:"status"`
			Start   struct {
				DateTime string `json:"dateTime"`
				Date     string `json:"date"`
			} `json:"start"`
			End struct {
				DateTime string `json:"dateTime"`
				Date     string `json:"date"`
			} `json:"end"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	events := make([]calendarDomain.RawEvent, 0, len(payload.Items))
	for _, item := range payload.Items {
		event := calendarDomain.RawEvent{
			ID:     item.ID,
			Title:  item.Summary,
			Status: calendarDomain.EventStatus(item.Status),
		}
		if event.Status == "" {
			event.Status = calendarDomain.StatusConfirmed
		}

		// Handle both timed and all-day events.
		switch {
		case item.Start.DateTime != "" && item.End.DateTime != "":
			start, err := time.Parse(time.RFC3339, item.Start.DateTime)
			if err != nil {
				continue
			}
			end, err := time.Parse(time.RFC3339, item.End.DateTime)
			if err != nil {
				continue
			}
			event.Start = start
			event.End = end
		case item.Start.Date != "" && item.End.Date != "":
			start, err := time.Parse("2006-01-02", item.Start.Date)
			if err != nil {
				continue
			}
			end, err := time.Parse("2006-01-02", item.End.Date)
			if err != nil {
				continue
			}
			event.Start = start
			event.End = end
			event.AllDay = true
		default:
			continue // Skip events without valid time info
		}

		events = append(events, event)
	}
	return events, nil
}

type oauthTransport struct {
	base   http.RoundTripper
	source oauth2.TokenSource
}

func (t *oauthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.source.Token()
	if err != nil {
		return nil, err
	}
	clone := req.Clone(req.Context())
	token.SetAuthHeader(clone)
	return t.base.RoundTrip(clone)
}

func responseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("calendar API returned %d: %s", resp.StatusCode, string(body))
}
