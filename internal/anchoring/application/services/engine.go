package services

import (
	"context"
	"log/slog"
	"time"

	anchoringDomain "github.com/anchora-app/anchora/internal/anchoring/domain"
	advisoryApp "github.com/anchora-app/anchora/internal/advisory/application"
	advisoryDomain "github.com/anchora-app/anchora/internal/advisory/domain"
	calendarApp "github.com/anchora-app/anchora/internal/calendar/application"
	"github.com/anchora-app/anchora/pkg/observability"
	"github.com/google/uuid"
)

// EngineConfig holds the operational parameters of one anchoring engine.
type EngineConfig struct {
	MinSlotDuration    time.Duration
	DayStart           time.Duration // offset from midnight, e.g. 6h for 06:00
	DayEnd             time.Duration // offset from midnight, e.g. 22h for 22:00
	FitTolerance       float64
	FallbackConfidence float64
}

// DefaultEngineConfig returns the documented defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MinSlotDuration:    DefaultMinSlotDuration,
		DayStart:           6 * time.Hour,
		DayEnd:             22 * time.Hour,
		FitTolerance:       DefaultFitTolerance,
		FallbackConfidence: DefaultFallbackConfidence,
	}
}

// Engine runs one complete anchoring pass: fetch, normalize, find gaps,
// prefetch advisory scores, assign greedily, resolve fallbacks, finalize.
// The engine is a pure function of its inputs: re-running with identical
// calendar events, activities, and advisory scores produces an identical
// run.
type Engine struct {
	fetcher    *calendarApp.Fetcher
	prefetcher *advisoryApp.Prefetcher
	scorer     *PairScorer
	config     EngineConfig
	logger     *slog.Logger
	metrics    observability.Metrics
}

// NewEngine creates an anchoring engine.
func NewEngine(fetcher *calendarApp.Fetcher, prefetcher *advisoryApp.Prefetcher, config EngineConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if config.MinSlotDuration <= 0 {
		config.MinSlotDuration = DefaultMinSlotDuration
	}
	if config.DayEnd <= config.DayStart {
		defaults := DefaultEngineConfig()
		config.DayStart = defaults.DayStart
		config.DayEnd = defaults.DayEnd
	}
	return &Engine{
		fetcher:    fetcher,
		prefetcher: prefetcher,
		scorer:     NewPairScorer(config.FitTolerance),
		config:     config,
		logger:     logger,
		metrics:    observability.NoopMetrics{},
	}
}

// WithMetrics sets the metrics collector used by the engine.
func (e *Engine) WithMetrics(metrics observability.Metrics) *Engine {
	if metrics != nil {
		e.metrics = metrics
	}
	return e
}

// AnchorDay anchors the given activities into the user's calendar for one
// date and returns the finalized run. Collaborator failures degrade to
// documented defaults; only invariant violations in the input fail the run.
func (e *Engine) AnchorDay(
	ctx context.Context,
	userID uuid.UUID,
	date time.Time,
	activities []anchoringDomain.ActivityRequirement,
) (run *anchoringDomain.AnchoringRun, err error) {
	timer := observability.StartTimer("anchoring.anchor_day").WithMetrics(e.metrics)
	e.metrics.Counter(observability.MetricRunsStarted, 1)
	defer func() {
		timer.StopWithError(err)
		if err != nil {
			e.metrics.Counter(observability.MetricRunsFailed, 1)
		}
	}()

	for _, activity := range activities {
		if err := activity.Validate(); err != nil {
			return nil, err
		}
	}

	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	windowStart := midnight.Add(e.config.DayStart)
	windowEnd := midnight.Add(e.config.DayEnd)

	events := e.fetcher.FetchEvents(ctx, userID, windowStart, windowEnd)
	busy, err := Normalize(events, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}

	slots, err := FindSlots(busy, windowStart, windowEnd, e.config.MinSlotDuration)
	if err != nil {
		return nil, err
	}

	// Deterministic input order regardless of how the caller assembled
	// the activity list.
	ordered := make([]anchoringDomain.ActivityRequirement, len(activities))
	copy(ordered, activities)
	sortActivities(ordered)

	advisory := e.prefetcher.FetchAll(ctx, e.advisoryRequests(ordered, slots))

	run = anchoringDomain.NewAnchoringRun(userID, date, windowStart, windowEnd)
	coordinator := NewCoordinator(e.scorer, e.config.MinSlotDuration, e.logger)
	unassigned, err := coordinator.Assign(run, ordered, slots, advisory)
	if err != nil {
		return nil, err
	}

	resolver := NewFallbackResolver(e.config.FallbackConfidence, e.logger)
	if err := resolver.Resolve(run, unassigned); err != nil {
		return nil, err
	}

	if err := run.Finalize(busy); err != nil {
		return nil, err
	}

	summary := run.Summary()
	e.metrics.Counter(observability.MetricRunsCompleted, 1)
	e.metrics.Counter(observability.MetricPlacementsAnchored, int64(summary.TasksAnchored))
	e.metrics.Counter(observability.MetricPlacementsFallback, int64(summary.TasksFallback))
	e.metrics.Counter(observability.MetricConflictsDetected, int64(summary.ConflictsDetected))
	e.metrics.Counter(observability.MetricSlotsFound, int64(len(slots)))
	e.metrics.Gauge(observability.MetricSlotUtilization, summary.UtilizationPct)

	e.logger.Info("anchoring run completed",
		"user_id", userID,
		"date", date.Format("2006-01-02"),
		"tasks_total", summary.TasksTotal,
		"tasks_anchored", summary.TasksAnchored,
		"tasks_fallback", summary.TasksFallback,
		"conflicts", summary.ConflictsDetected,
		"duration_ms", timer.Elapsed().Milliseconds(),
	)

	return run, nil
}

// advisoryRequests enumerates every feasible pair so all sub-scores are
// fetched in one batch before the assignment loop starts.
func (e *Engine) advisoryRequests(
	activities []anchoringDomain.ActivityRequirement,
	slots []*anchoringDomain.Slot,
) []advisoryApp.Request {
	requests := make([]advisoryApp.Request, 0, len(activities)*len(slots))
	for _, activity := range activities {
		for _, slot := range slots {
			if !e.scorer.Feasible(activity, slot) {
				continue
			}
			requests = append(requests, advisoryApp.Request{
				Activity: activity,
				Slot:     slotContext(slot),
				Nearby:   nearbyEvents(slot),
			})
		}
	}
	return requests
}

func slotContext(slot *anchoringDomain.Slot) advisoryDomain.SlotContext {
	return advisoryDomain.SlotContext{
		SlotID:         slot.ID(),
		Start:          slot.Start(),
		End:            slot.End(),
		SizeClass:      slot.SizeClass(),
		PrecedingEvent: slot.PrecedingEvent(),
		FollowingEvent: slot.FollowingEvent(),
	}
}

func nearbyEvents(slot *anchoringDomain.Slot) []anchoringDomain.BusyInterval {
	var nearby []anchoringDomain.BusyInterval
	if ev := slot.PrecedingEvent(); ev != nil {
		nearby = append(nearby, *ev)
	}
	if ev := slot.FollowingEvent(); ev != nil {
		nearby = append(nearby, *ev)
	}
	return nearby
}
