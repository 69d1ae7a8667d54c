// Package scoringhttp implements the advisory scorer port against the
// recommendation scoring service's HTTP API, with a circuit breaker per
// sub-score endpoint.
package scoringhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	anchoringDomain "github.com/anchora-app/anchora/internal/anchoring/domain"
	"github.com/anchora-app/anchora/internal/advisory/domain"
	"github.com/sony/gobreaker/v2"
)

// Endpoint paths on the scoring service.
const (
	pathPattern = "/v1/scores/pattern"
	pathHabit   = "/v1/scores/habit"
	pathContext = "/v1/scores/context"
)

// Config configures the scoring client and its circuit breakers.
type Config struct {
	BaseURL string

	// RequestTimeout bounds a single scoring request.
	RequestTimeout time.Duration

	// MaxRequests is the maximum number of requests allowed in half-open state.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state.
	Interval time.Duration

	// Timeout is the period of the open state.
	Timeout time.Duration

	// FailureThreshold is the consecutive-failure count that trips a breaker.
	FailureThreshold uint32
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:          baseURL,
		RequestTimeout:   5 * time.Second,
		MaxRequests:      3,
		Interval:         10 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// Client calls the three scoring endpoints. Each endpoint has its own
// circuit breaker so one failing scorer does not block the others.
type Client struct {
	config     Config
	httpClient *http.Client
	breakers   map[string]*gobreaker.CircuitBreaker[float64]
	logger     *slog.Logger
}

// NewClient creates a scoring client.
func NewClient(config Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 5 * time.Second
	}
	c := &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.RequestTimeout},
		breakers:   make(map[string]*gobreaker.CircuitBreaker[float64], 3),
		logger:     logger,
	}
	for _, path := range []string{pathPattern, pathHabit, pathContext} {
		c.breakers[path] = c.newBreaker(path)
	}
	return c
}

func (c *Client) newBreaker(name string) *gobreaker.CircuitBreaker[float64] {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: c.config.MaxRequests,
		Interval:    c.config.Interval,
		Timeout:     c.config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= c.config.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Info("scorer circuit breaker state changed",
				"endpoint", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}
	return gobreaker.NewCircuitBreaker[float64](settings)
}

// ScorePattern returns the historical-pattern sub-score, scaled 0-10.
func (c *Client) ScorePattern(ctx context.Context, activity anchoringDomain.ActivityRequirement, slot domain.SlotContext) (float64, error) {
	return c.score(ctx, pathPattern, scoreRequest{Activity: toActivityPayload(activity), Slot: toSlotPayload(slot)})
}

// ScoreHabit returns the habit-stacking sub-score, scaled 0-10.
func (c *Client) ScoreHabit(ctx context.Context, activity anchoringDomain.ActivityRequirement, slot domain.SlotContext) (float64, error) {
	return c.score(ctx, pathHabit, scoreRequest{Activity: toActivityPayload(activity), Slot: toSlotPayload(slot)})
}

// ScoreContext returns the meeting-context sub-score, scaled 0-5.
func (c *Client) ScoreContext(ctx context.Context, activity anchoringDomain.ActivityRequirement, slot domain.SlotContext, nearby []anchoringDomain.BusyInterval) (float64, error) {
	req := scoreRequest{Activity: toActivityPayload(activity), Slot: toSlotPayload(slot)}
	for _, b := range nearby {
		req.NearbyEvents = append(req.NearbyEvents, eventPayload{
			Start: b.Start.Format(time.RFC3339),
			End:   b.End.Format(time.RFC3339),
			Label: b.Label,
		})
	}
	return c.score(ctx, pathContext, req)
}

func (c *Client) score(ctx context.Context, path string, payload scoreRequest) (float64, error) {
	breaker := c.breakers[path]
	return breaker.Execute(func() (float64, error) {
		return c.doRequest(ctx, path, payload)
	})
}

func (c *Client) doRequest(ctx context.Context, path string, payload scoreRequest) (float64, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("scoring service returned %d: %s", resp.StatusCode, string(msg))
	}

	var result struct {
		Score float64 `json:"score"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to decode score response: %w", err)
	}
	return result.Score, nil
}

type scoreRequest struct {
	Activity     activityPayload `json:"activity"`
	Slot         slotPayload     `json:"slot"`
	NearbyEvents []eventPayload  `json:"nearby_events,omitempty"`
}

type activityPayload struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Category         string `json:"category"`
	DurationMin      int    `json:"duration_min"`
	EnergyPreference string `json:"energy_preference"`
	ProposedTime     string `json:"proposed_time"`
	Priority         int    `json:"priority"`
}

type slotPayload struct {
	ID        string        `json:"id"`
	Start     string        `json:"start"`
	End       string        `json:"end"`
	SizeClass string        `json:"size_class"`
	Preceding *eventPayload `json:"preceding_event,omitempty"`
	Following *eventPayload `json:"following_event,omitempty"`
}

type eventPayload struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Label string `json:"label"`
}

func toActivityPayload(a anchoringDomain.ActivityRequirement) activityPayload {
	return activityPayload{
		ID:               a.ID.String(),
		Title:            a.Title,
		Category:         a.Category,
		DurationMin:      int(a.Duration.Minutes()),
		EnergyPreference: string(a.Preference()),
		ProposedTime:     a.ProposedTime.Format(time.RFC3339),
		Priority:         a.Priority,
	}
}

func toSlotPayload(s domain.SlotContext) slotPayload {
	payload := slotPayload{
		ID:        s.SlotID.String(),
		Start:     s.Start.Format(time.RFC3339),
		End:       s.End.Format(time.RFC3339),
		SizeClass: string(s.SizeClass),
	}
	if s.PrecedingEvent != nil {
		payload.Preceding = &eventPayload{
			Start: s.PrecedingEvent.Start.Format(time.RFC3339),
			End:   s.PrecedingEvent.End.Format(time.RFC3339),
			Label: s.PrecedingEvent.Label,
		}
	}
	if s.FollowingEvent != nil {
		payload.Following = &eventPayload{
			Start: s.FollowingEvent.Start.Format(time.RFC3339),
			End:   s.FollowingEvent.End.Format(time.RFC3339),
			Label: s.FollowingEvent.Label,
		}
	}
	return payload
}
