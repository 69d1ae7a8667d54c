package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/anchora-app/anchora/internal/anchoring/application/services"
	"github.com/anchora-app/anchora/internal/anchoring/domain"
	advisoryApp "github.com/anchora-app/anchora/internal/advisory/application"
	advisoryDomain "github.com/anchora-app/anchora/internal/advisory/domain"
	calendarApp "github.com/anchora-app/anchora/internal/calendar/application"
	calendarDomain "github.com/anchora-app/anchora/internal/calendar/domain"
	"github.com/anchora-app/anchora/pkg/observability"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	events []calendarDomain.RawEvent
}

func (p *stubProvider) FetchEvents(context.Context, uuid.UUID, time.Time, time.Time) ([]calendarDomain.RawEvent, error) {
	return p.events, nil
}

type stubScorer struct {
	scores advisoryDomain.ScoreSet
	// habitBoost adds habit score when the slot has a neighboring event.
	habitBoost float64
}

func (s *stubScorer) ScorePattern(context.Context, domain.ActivityRequirement, advisoryDomain.SlotContext) (float64, error) {
	return s.scores.Pattern, nil
}

func (s *stubScorer) ScoreHabit(_ context.Context, _ domain.ActivityRequirement, slot advisoryDomain.SlotContext) (float64, error) {
	if s.habitBoost > 0 && (slot.PrecedingEvent != nil || slot.FollowingEvent != nil) {
		return s.scores.Habit + s.habitBoost, nil
	}
	return s.scores.Habit, nil
}

func (s *stubScorer) ScoreContext(context.Context, domain.ActivityRequirement, advisoryDomain.SlotContext, []domain.BusyInterval) (float64, error) {
	return s.scores.Context, nil
}

func newEngine(events []calendarDomain.RawEvent, scorer advisoryDomain.Scorer) *services.Engine {
	fetcher := calendarApp.NewFetcher(&stubProvider{events: events}, time.Second, nil)
	prefetcher := advisoryApp.NewPrefetcher(scorer, 4, time.Second, nil)
	return services.NewEngine(fetcher, prefetcher, services.DefaultEngineConfig(), nil)
}

func sampleActivities(n int) []domain.ActivityRequirement {
	prefs := []domain.EnergyPreference{domain.EnergyMorning, domain.EnergyAfternoon, domain.EnergyEvening, domain.EnergyAny}
	out := make([]domain.ActivityRequirement, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.ActivityRequirement{
			ID:               uuid.NewSHA1(uuid.NameSpaceOID, []byte{byte(i)}),
			Title:            "activity",
			Category:         "wellness",
			Duration:         time.Duration(20+5*i) * time.Minute,
			EnergyPreference: prefs[i%len(prefs)],
			ProposedTime:     at(8+i, 0),
			Priority:         1 + i%5,
		})
	}
	return out
}

func TestAnchorDay_EveryActivityGetsExactlyOnePlacement(t *testing.T) {
	engine := newEngine([]calendarDomain.RawEvent{
		{ID: "standup", Title: "standup", Start: at(9, 0), End: at(9, 30)},
		{ID: "review", Title: "review", Start: at(14, 0), End: at(15, 0)},
	}, &stubScorer{})
	activities := sampleActivities(6)

	run, err := engine.AnchorDay(context.Background(), uuid.New(), day, activities)

	require.NoError(t, err)
	require.True(t, run.IsFinalized())
	require.Len(t, run.Placements(), len(activities))

	seen := make(map[uuid.UUID]int)
	for _, p := range run.Placements() {
		seen[p.ActivityID]++
	}
	for _, a := range activities {
		assert.Equal(t, 1, seen[a.ID], "activity %s", a.Title)
	}
	assert.Equal(t, len(activities), run.Summary().TasksTotal)
	assert.Equal(t, len(activities), run.Summary().TasksAnchored+run.Summary().TasksFallback)
}

func TestAnchorDay_EmptyCalendarAnchorsEverything(t *testing.T) {
	engine := newEngine(nil, &stubScorer{})
	activities := sampleActivities(10)

	run, err := engine.AnchorDay(context.Background(), uuid.New(), day, activities)

	require.NoError(t, err)
	summary := run.Summary()
	assert.Equal(t, 10, summary.TasksTotal)
	assert.Equal(t, 10, summary.TasksAnchored)
	assert.Zero(t, summary.TasksFallback)
	assert.Zero(t, summary.ConflictsDetected)
}

func TestAnchorDay_FullyBookedDayFallsBackEverything(t *testing.T) {
	engine := newEngine([]calendarDomain.RawEvent{
		{ID: "offsite", Title: "offsite", Start: day.Add(5 * time.Hour), End: day.Add(23 * time.Hour)},
	}, &stubScorer{})
	activities := sampleActivities(4)

	run, err := engine.AnchorDay(context.Background(), uuid.New(), day, activities)

	require.NoError(t, err)
	summary := run.Summary()
	assert.Zero(t, summary.TasksAnchored)
	assert.Equal(t, 4, summary.TasksFallback)
	// Every fallback sits at its proposed time inside the busy block.
	assert.Equal(t, 4, summary.ConflictsDetected)
	for _, p := range run.Placements() {
		assert.True(t, p.IsFallback)
		assert.Nil(t, p.SlotID)
		assert.InDelta(t, services.DefaultFallbackConfidence, p.Confidence, 0.001)
	}
	assert.InDelta(t, services.DefaultFallbackConfidence, summary.AverageConfidence, 0.001)
}

func TestAnchorDay_Deterministic(t *testing.T) {
	events := []calendarDomain.RawEvent{
		{ID: "standup", Title: "standup", Start: at(9, 0), End: at(9, 30)},
		{ID: "lunch", Title: "lunch", Start: at(12, 0), End: at(13, 0)},
	}
	activities := sampleActivities(8)
	scorer := &stubScorer{scores: advisoryDomain.ScoreSet{Pattern: 4, Habit: 3, Context: 2}}

	userID := uuid.MustParse("c0b7d7a2-93f8-4c41-9f3f-6f1f2a3b4c5d")
	first, err := newEngine(events, scorer).AnchorDay(context.Background(), userID, day, activities)
	require.NoError(t, err)
	second, err := newEngine(events, scorer).AnchorDay(context.Background(), userID, day, activities)
	require.NoError(t, err)

	assert.Equal(t, first.Placements(), second.Placements())
	assert.Equal(t, first.Summary(), second.Summary())
}

func TestAnchorDay_ShuffledInputOrderDoesNotChangeResult(t *testing.T) {
	activities := sampleActivities(6)
	reversed := make([]domain.ActivityRequirement, len(activities))
	for i, a := range activities {
		reversed[len(activities)-1-i] = a
	}
	userID := uuid.MustParse("6c3e2f10-8d4b-4e2a-b1c9-0a5d7e8f9a1b")

	first, err := newEngine(nil, &stubScorer{}).AnchorDay(context.Background(), userID, day, activities)
	require.NoError(t, err)
	second, err := newEngine(nil, &stubScorer{}).AnchorDay(context.Background(), userID, day, reversed)
	require.NoError(t, err)

	assert.Equal(t, first.Placements(), second.Placements())
}

func TestAnchorDay_HabitStackingPrefersAdjacentSlots(t *testing.T) {
	// One event splits the day into two slots, each bordering the event.
	// The habit score earned for stacking next to it must survive into
	// the placement's breakdown.
	events := []calendarDomain.RawEvent{
		{ID: "gym", Title: "gym class", Start: at(12, 0), End: at(13, 0)},
	}
	engine := newEngine(events, &stubScorer{habitBoost: 8})
	act := domain.ActivityRequirement{
		ID:       uuid.NewSHA1(uuid.NameSpaceOID, []byte("stretching")),
		Title:    "stretching",
		Duration: 30 * time.Minute,
		Priority: 3,
	}

	run, err := engine.AnchorDay(context.Background(), uuid.New(), day, []domain.ActivityRequirement{act})

	require.NoError(t, err)
	require.Len(t, run.Placements(), 1)
	p := run.Placements()[0]
	require.NotNil(t, p.Breakdown)
	assert.InDelta(t, 8, p.Breakdown.Habit, 0.001)
}

func TestAnchorDay_RecordsRunMetrics(t *testing.T) {
	metrics := observability.NewInMemoryMetrics()
	engine := newEngine([]calendarDomain.RawEvent{
		{ID: "standup", Title: "standup", Start: at(9, 0), End: at(9, 30)},
	}, &stubScorer{}).WithMetrics(metrics)
	activities := sampleActivities(3)

	run, err := engine.AnchorDay(context.Background(), uuid.New(), day, activities)

	require.NoError(t, err)
	summary := run.Summary()
	assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricRunsStarted))
	assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricRunsCompleted))
	assert.Zero(t, metrics.GetCounter(observability.MetricRunsFailed))
	assert.Equal(t, int64(summary.TasksAnchored), metrics.GetCounter(observability.MetricPlacementsAnchored))
	assert.InDelta(t, summary.UtilizationPct, metrics.GetGauge(observability.MetricSlotUtilization), 0.001)
	assert.Len(t, metrics.GetTimings(observability.MetricOperationDuration, observability.T("operation", "anchoring.anchor_day")), 1)
}

func TestAnchorDay_FailedRunCountsAsFailure(t *testing.T) {
	metrics := observability.NewInMemoryMetrics()
	engine := newEngine(nil, &stubScorer{}).WithMetrics(metrics)
	bad := domain.ActivityRequirement{ID: uuid.New(), Title: "no duration"}

	_, err := engine.AnchorDay(context.Background(), uuid.New(), day, []domain.ActivityRequirement{bad})

	require.Error(t, err)
	assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricRunsFailed))
	assert.Zero(t, metrics.GetCounter(observability.MetricRunsCompleted))
}

func TestAnchorDay_InvalidActivityFails(t *testing.T) {
	engine := newEngine(nil, &stubScorer{})
	bad := domain.ActivityRequirement{ID: uuid.New(), Title: "no duration"}

	_, err := engine.AnchorDay(context.Background(), uuid.New(), day, []domain.ActivityRequirement{bad})

	var invErr *domain.InvariantError
	require.ErrorAs(t, err, &invErr)
}

func TestAnchorDay_InvertedCalendarEventFails(t *testing.T) {
	engine := newEngine([]calendarDomain.RawEvent{
		{ID: "broken", Start: at(11, 0), End: at(10, 0)},
	}, &stubScorer{})

	_, err := engine.AnchorDay(context.Background(), uuid.New(), day, sampleActivities(1))

	var invErr *domain.InvariantError
	require.ErrorAs(t, err, &invErr)
}
