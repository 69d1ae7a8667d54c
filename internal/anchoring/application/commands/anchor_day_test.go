package commands

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/anchora-app/anchora/internal/anchoring/application/services"
	"github.com/anchora-app/anchora/internal/anchoring/domain"
	advisoryApp "github.com/anchora-app/anchora/internal/advisory/application"
	advisoryDomain "github.com/anchora-app/anchora/internal/advisory/domain"
	calendarApp "github.com/anchora-app/anchora/internal/calendar/application"
	calendarDomain "github.com/anchora-app/anchora/internal/calendar/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockRunRepo is a mock implementation of domain.RunRepository.
type mockRunRepo struct {
	mock.Mock
}

func (m *mockRunRepo) Save(ctx context.Context, run *domain.AnchoringRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *mockRunRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.AnchoringRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AnchoringRun), args.Error(1)
}

func (m *mockRunRepo) FindByUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) (*domain.AnchoringRun, error) {
	args := m.Called(ctx, userID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AnchoringRun), args.Error(1)
}

func (m *mockRunRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.AnchoringRun, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AnchoringRun), args.Error(1)
}

// mockPublisher is a mock implementation of eventbus.Publisher.
type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	args := m.Called(ctx, routingKey, payload)
	return args.Error(0)
}

func (m *mockPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

type staticProvider struct {
	events []calendarDomain.RawEvent
}

func (p *staticProvider) FetchEvents(context.Context, uuid.UUID, time.Time, time.Time) ([]calendarDomain.RawEvent, error) {
	return p.events, nil
}

type zeroScorer struct{}

func (zeroScorer) ScorePattern(context.Context, domain.ActivityRequirement, advisoryDomain.SlotContext) (float64, error) {
	return 0, nil
}

func (zeroScorer) ScoreHabit(context.Context, domain.ActivityRequirement, advisoryDomain.SlotContext) (float64, error) {
	return 0, nil
}

func (zeroScorer) ScoreContext(context.Context, domain.ActivityRequirement, advisoryDomain.SlotContext, []domain.BusyInterval) (float64, error) {
	return 0, nil
}

func newTestEngine(events []calendarDomain.RawEvent) *services.Engine {
	fetcher := calendarApp.NewFetcher(&staticProvider{events: events}, time.Second, nil)
	prefetcher := advisoryApp.NewPrefetcher(zeroScorer{}, 2, time.Second, nil)
	return services.NewEngine(fetcher, prefetcher, services.DefaultEngineConfig(), nil)
}

func validCommand() AnchorDayCommand {
	return AnchorDayCommand{
		UserID: uuid.New(),
		Date:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Activities: []ActivityInput{
			{
				ID:           uuid.New(),
				Title:        "morning run",
				Category:     "fitness",
				DurationMins: 45,
				EnergyWindow: "morning",
				Priority:     2,
			},
			{
				ID:           uuid.New(),
				Title:        "reading",
				DurationMins: 30,
				Priority:     4,
			},
		},
	}
}

func TestAnchorDayHandler_SavesAndPublishes(t *testing.T) {
	runRepo := new(mockRunRepo)
	publisher := new(mockPublisher)
	handler := NewAnchorDayHandler(newTestEngine(nil), runRepo, publisher, nil)

	runRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.AnchoringRun")).Return(nil)
	publisher.On("Publish", mock.Anything, domain.RoutingKeyRunCompleted, mock.Anything).Return(nil)

	result, err := handler.Handle(context.Background(), validCommand())

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.NotEqual(t, uuid.Nil, result.RunID)
	assert.Equal(t, 2, result.Summary.TasksTotal)
	assert.Equal(t, 2, result.Summary.TasksAnchored)
	runRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestAnchorDayHandler_EventPayloadCarriesSummary(t *testing.T) {
	runRepo := new(mockRunRepo)
	publisher := new(mockPublisher)
	handler := NewAnchorDayHandler(newTestEngine(nil), runRepo, publisher, nil)

	runRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

	var captured []byte
	publisher.On("Publish", mock.Anything, domain.RoutingKeyRunCompleted, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(2).([]byte)
		}).
		Return(nil)

	_, err := handler.Handle(context.Background(), validCommand())

	require.NoError(t, err)
	require.NotEmpty(t, captured)

	var envelope struct {
		AggregateType string          `json:"aggregate_type"`
		Payload       json.RawMessage `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(captured, &envelope))
	assert.Equal(t, domain.AggregateTypeRun, envelope.AggregateType)

	var payload struct {
		Summary domain.RunSummary `json:"Summary"`
	}
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	assert.Equal(t, 2, payload.Summary.TasksTotal)
}

func TestAnchorDayHandler_RequiresUserID(t *testing.T) {
	handler := NewAnchorDayHandler(newTestEngine(nil), new(mockRunRepo), new(mockPublisher), nil)

	cmd := validCommand()
	cmd.UserID = uuid.Nil

	_, err := handler.Handle(context.Background(), cmd)

	assert.Error(t, err)
}

func TestAnchorDayHandler_SaveFailureFailsCommand(t *testing.T) {
	runRepo := new(mockRunRepo)
	publisher := new(mockPublisher)
	handler := NewAnchorDayHandler(newTestEngine(nil), runRepo, publisher, nil)

	runRepo.On("Save", mock.Anything, mock.Anything).Return(errors.New("connection reset"))

	_, err := handler.Handle(context.Background(), validCommand())

	require.Error(t, err)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestAnchorDayHandler_PublishFailureDoesNotFailCommand(t *testing.T) {
	runRepo := new(mockRunRepo)
	publisher := new(mockPublisher)
	handler := NewAnchorDayHandler(newTestEngine(nil), runRepo, publisher, nil)

	runRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker unavailable"))

	result, err := handler.Handle(context.Background(), validCommand())

	require.NoError(t, err)
	assert.NotNil(t, result)
}

func TestAnchorDayHandler_InvalidActivityFails(t *testing.T) {
	runRepo := new(mockRunRepo)
	handler := NewAnchorDayHandler(newTestEngine(nil), runRepo, new(mockPublisher), nil)

	cmd := validCommand()
	cmd.Activities[0].DurationMins = 0

	_, err := handler.Handle(context.Background(), cmd)

	require.Error(t, err)
	runRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}
