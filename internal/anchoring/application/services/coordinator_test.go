package services_test

import (
	"testing"
	"time"

	"github.com/anchora-app/anchora/internal/anchoring/application/services"
	"github.com/anchora-app/anchora/internal/anchoring/domain"
	advisoryApp "github.com/anchora-app/anchora/internal/advisory/application"
	advisoryDomain "github.com/anchora-app/anchora/internal/advisory/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRun() *domain.AnchoringRun {
	return domain.NewAnchoringRun(uuid.New(), day, windowStart, windowEnd)
}

func advisoryFor(activities []domain.ActivityRequirement, slots []*domain.Slot, scores advisoryDomain.ScoreSet) map[advisoryApp.PairKey]advisoryDomain.ScoreSet {
	out := make(map[advisoryApp.PairKey]advisoryDomain.ScoreSet)
	for _, a := range activities {
		for _, s := range slots {
			out[advisoryApp.PairKey{ActivityID: a.ID, SlotID: s.ID()}] = scores
		}
	}
	return out
}

func TestAssign_PlacesEveryActivityOnce(t *testing.T) {
	coordinator := services.NewCoordinator(services.NewPairScorer(0), 15*time.Minute, nil)
	run := newRun()
	slots := []*domain.Slot{
		mustSlot(t, at(6, 0), at(9, 0)),
		mustSlot(t, at(15, 0), at(17, 0)),
	}
	activities := []domain.ActivityRequirement{
		activity("workout", 45*time.Minute, domain.EnergyMorning, 2),
		activity("reading", 30*time.Minute, domain.EnergyAny, 4),
		activity("planning", 25*time.Minute, domain.EnergyAfternoon, 3),
	}

	unassigned, err := coordinator.Assign(run, activities, slots, advisoryFor(activities, slots, advisoryDomain.ScoreSet{}))

	require.NoError(t, err)
	assert.Empty(t, unassigned)
	require.Len(t, run.Placements(), 3)

	seen := make(map[uuid.UUID]bool)
	for _, p := range run.Placements() {
		assert.False(t, seen[p.ActivityID], "activity placed twice")
		seen[p.ActivityID] = true
		assert.False(t, p.IsFallback)
		require.NotNil(t, p.SlotID)
	}
}

func TestAssign_NoDoubleBooking(t *testing.T) {
	coordinator := services.NewCoordinator(services.NewPairScorer(0), 15*time.Minute, nil)
	run := newRun()
	slots := []*domain.Slot{mustSlot(t, at(6, 0), at(8, 0))}
	activities := []domain.ActivityRequirement{
		activity("workout", 45*time.Minute, domain.EnergyMorning, 2),
		activity("journal", 30*time.Minute, domain.EnergyMorning, 3),
	}

	_, err := coordinator.Assign(run, activities, slots, advisoryFor(activities, slots, advisoryDomain.ScoreSet{}))

	require.NoError(t, err)
	placements := run.Placements()
	require.Len(t, placements, 2)
	for i := range placements {
		for j := i + 1; j < len(placements); j++ {
			a, b := placements[i], placements[j]
			overlap := a.Start.Before(b.End) && b.Start.Before(a.End)
			assert.False(t, overlap, "placements %d and %d overlap", i, j)
		}
	}
}

func TestAssign_SlotShrinksSequentially(t *testing.T) {
	coordinator := services.NewCoordinator(services.NewPairScorer(0), 15*time.Minute, nil)
	run := newRun()
	slot := mustSlot(t, at(6, 0), at(8, 0))
	activities := []domain.ActivityRequirement{
		activity("first", time.Hour, domain.EnergyMorning, 1),
		activity("second", 45*time.Minute, domain.EnergyMorning, 2),
	}

	_, err := coordinator.Assign(run, activities, []*domain.Slot{slot}, advisoryFor(activities, []*domain.Slot{slot}, advisoryDomain.ScoreSet{}))

	require.NoError(t, err)
	placements := run.Placements()
	require.Len(t, placements, 2)
	// Second placement starts where the first ends.
	assert.Equal(t, placements[0].End, placements[1].Start)
	assert.Equal(t, 15*time.Minute, slot.RemainingDuration())
}

func TestAssign_HigherTotalWinsContestedSlot(t *testing.T) {
	coordinator := services.NewCoordinator(services.NewPairScorer(0), 15*time.Minute, nil)
	run := newRun()
	slot := mustSlot(t, at(6, 0), at(7, 0))
	strong := activity("deep work", 50*time.Minute, domain.EnergyMorning, 1)
	weak := activity("email", 50*time.Minute, domain.EnergyMorning, 4)
	activities := []domain.ActivityRequirement{weak, strong}

	unassigned, err := coordinator.Assign(run, activities, []*domain.Slot{slot}, advisoryFor(activities, []*domain.Slot{slot}, advisoryDomain.ScoreSet{}))

	require.NoError(t, err)
	require.Len(t, run.Placements(), 1)
	assert.Equal(t, strong.ID, run.Placements()[0].ActivityID)
	require.Len(t, unassigned, 1)
	assert.Equal(t, weak.ID, unassigned[0].ID)
}

func TestAssign_AdvisoryScoresSwingTheWinner(t *testing.T) {
	coordinator := services.NewCoordinator(services.NewPairScorer(0), 15*time.Minute, nil)
	run := newRun()
	slot := mustSlot(t, at(6, 0), at(7, 0))
	a := activity("stretch", 50*time.Minute, domain.EnergyMorning, 3)
	b := activity("journal", 50*time.Minute, domain.EnergyMorning, 3)
	activities := []domain.ActivityRequirement{a, b}

	advisory := map[advisoryApp.PairKey]advisoryDomain.ScoreSet{
		{ActivityID: a.ID, SlotID: slot.ID()}: {Pattern: 2},
		{ActivityID: b.ID, SlotID: slot.ID()}: {Pattern: 9, Habit: 8},
	}

	_, err := coordinator.Assign(run, activities, []*domain.Slot{slot}, advisory)

	require.NoError(t, err)
	require.Len(t, run.Placements(), 1)
	assert.Equal(t, b.ID, run.Placements()[0].ActivityID)
}

func TestAssign_TieBreaksOnPriorityThenID(t *testing.T) {
	coordinator := services.NewCoordinator(services.NewPairScorer(0), 15*time.Minute, nil)
	run := newRun()
	slot := mustSlot(t, at(6, 0), at(7, 0))
	urgent := activity("zz-urgent", 50*time.Minute, domain.EnergyMorning, 1)
	urgent2 := activity("aa-urgent", 50*time.Minute, domain.EnergyMorning, 1)
	activities := []domain.ActivityRequirement{urgent, urgent2}

	_, err := coordinator.Assign(run, activities, []*domain.Slot{slot}, advisoryFor(activities, []*domain.Slot{slot}, advisoryDomain.ScoreSet{}))

	require.NoError(t, err)
	require.Len(t, run.Placements(), 1)

	wantID := urgent.ID
	if urgent2.ID.String() < urgent.ID.String() {
		wantID = urgent2.ID
	}
	assert.Equal(t, wantID, run.Placements()[0].ActivityID)
}

func TestAssign_NothingFeasible(t *testing.T) {
	coordinator := services.NewCoordinator(services.NewPairScorer(0), 15*time.Minute, nil)
	run := newRun()
	slots := []*domain.Slot{mustSlot(t, at(12, 0), at(12, 20))}
	activities := []domain.ActivityRequirement{
		activity("deep work", 2*time.Hour, domain.EnergyAny, 1),
		activity("workshop prep", 90*time.Minute, domain.EnergyAny, 2),
	}

	unassigned, err := coordinator.Assign(run, activities, slots, advisoryFor(activities, slots, advisoryDomain.ScoreSet{}))

	require.NoError(t, err)
	assert.Empty(t, run.Placements())
	require.Len(t, unassigned, 2)
	// Returned sorted by priority, then ID.
	assert.Equal(t, 1, unassigned[0].Priority)
	assert.Equal(t, 2, unassigned[1].Priority)
}

func TestAssign_NoSlots(t *testing.T) {
	coordinator := services.NewCoordinator(services.NewPairScorer(0), 15*time.Minute, nil)
	run := newRun()
	activities := []domain.ActivityRequirement{
		activity("workout", 45*time.Minute, domain.EnergyAny, 2),
	}

	unassigned, err := coordinator.Assign(run, activities, nil, nil)

	require.NoError(t, err)
	assert.Empty(t, run.Placements())
	assert.Len(t, unassigned, 1)
}
