// Package app wires the application container: database, calendar
// provider, scoring clients, event bus, and the anchoring handlers.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	anchoringCommands "github.com/anchora-app/anchora/internal/anchoring/application/commands"
	anchoringQueries "github.com/anchora-app/anchora/internal/anchoring/application/queries"
	"github.com/anchora-app/anchora/internal/anchoring/application/services"
	anchoringDomain "github.com/anchora-app/anchora/internal/anchoring/domain"
	anchoringPersistence "github.com/anchora-app/anchora/internal/anchoring/infrastructure/persistence"
	advisoryApp "github.com/anchora-app/anchora/internal/advisory/application"
	advisoryDomain "github.com/anchora-app/anchora/internal/advisory/domain"
	"github.com/anchora-app/anchora/internal/advisory/infrastructure/scorecache"
	"github.com/anchora-app/anchora/internal/advisory/infrastructure/scoringhttp"
	calendarApp "github.com/anchora-app/anchora/internal/calendar/application"
	calendarDomain "github.com/anchora-app/anchora/internal/calendar/domain"
	"github.com/anchora-app/anchora/internal/calendar/infrastructure/caldav"
	"github.com/anchora-app/anchora/internal/calendar/infrastructure/resthttp"
	"github.com/anchora-app/anchora/internal/shared/infrastructure/database"
	"github.com/anchora-app/anchora/internal/shared/infrastructure/eventbus"
	"github.com/anchora-app/anchora/pkg/config"
	"github.com/anchora-app/anchora/pkg/observability"
)

// Container holds all initialized application dependencies.
type Container struct {
	Store     *database.Store
	RunRepo   anchoringDomain.RunRepository
	Fetcher   *calendarApp.Fetcher
	Engine    *services.Engine
	Publisher eventbus.Publisher
	Metrics   *observability.InMemoryMetrics
	Health    *observability.HealthRegistry

	AnchorDayHandler    *anchoringCommands.AnchorDayHandler
	GetRunHandler       *anchoringQueries.GetRunHandler
	ListRunsHandler     *anchoringQueries.ListRunsHandler
	PreviewSlotsHandler *anchoringQueries.PreviewSlotsHandler

	redisClient *redis.Client
	logger      *slog.Logger
}

// NewContainer initializes all dependencies from configuration. Only the
// database is required; calendar, scorer, redis, and rabbitmq degrade to
// local defaults when unconfigured.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := database.Connect(ctx, database.Config{
		URL:        cfg.DatabaseURL,
		SQLitePath: cfg.SQLitePath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	var runRepo anchoringDomain.RunRepository
	switch store.Driver() {
	case database.DriverPostgres:
		runRepo = anchoringPersistence.NewPostgresRunRepository(store.Postgres())
	default:
		runRepo = anchoringPersistence.NewSQLiteRunRepository(store.SQLite())
	}

	c := &Container{
		Store:   store,
		RunRepo: runRepo,
		Metrics: observability.NewInMemoryMetrics(),
		Health:  observability.NewHealthRegistry(),
		logger:  logger,
	}

	provider := c.buildCalendarProvider(cfg)
	c.Fetcher = calendarApp.NewFetcher(provider, cfg.CalendarTimeout, logger)

	scorer := c.buildScorer(cfg)
	prefetcher := advisoryApp.NewPrefetcher(scorer, cfg.ScorerParallelism, cfg.ScorerTimeout, logger)

	engineConfig := services.EngineConfig{
		MinSlotDuration:    time.Duration(cfg.MinSlotMinutes) * time.Minute,
		DayStart:           time.Duration(cfg.DayStartHour) * time.Hour,
		DayEnd:             time.Duration(cfg.DayEndHour) * time.Hour,
		FitTolerance:       cfg.FitTolerance,
		FallbackConfidence: cfg.FallbackConfidence,
	}
	c.Engine = services.NewEngine(c.Fetcher, prefetcher, engineConfig, logger).
		WithMetrics(c.Metrics)

	c.Publisher = c.buildPublisher(cfg)

	c.AnchorDayHandler = anchoringCommands.NewAnchorDayHandler(c.Engine, runRepo, c.Publisher, logger)
	c.GetRunHandler = anchoringQueries.NewGetRunHandler(runRepo)
	c.ListRunsHandler = anchoringQueries.NewListRunsHandler(runRepo)
	c.PreviewSlotsHandler = anchoringQueries.NewPreviewSlotsHandler(c.Fetcher, engineConfig)

	c.registerHealthChecks()

	return c, nil
}

// buildCalendarProvider selects the provider named in configuration.
// Without one, the engine sees an empty calendar and anchors into a
// fully free day.
func (c *Container) buildCalendarProvider(cfg *config.Config) calendarDomain.Provider {
	switch cfg.CalendarProvider {
	case "caldav":
		c.logger.Info("using CalDAV calendar provider", "url", cfg.CalDAVURL)
		return caldav.NewProvider(cfg.CalDAVURL, cfg.CalDAVUsername, cfg.CalDAVPassword, c.logger)
	case "rest":
		c.logger.Info("using REST calendar provider")
		provider := resthttp.NewProvider(resthttp.StaticTokenSource{Token: cfg.CalendarToken}, c.logger)
		return provider.WithBaseURL(cfg.CalendarAPIURL)
	default:
		c.logger.Info("no calendar provider configured, treating the day as free")
		return emptyProvider{}
	}
}

// buildScorer assembles the advisory scorer chain: HTTP client behind
// circuit breakers, optionally fronted by a Redis cache.
func (c *Container) buildScorer(cfg *config.Config) advisoryDomain.Scorer {
	if cfg.ScorerBaseURL == "" {
		c.logger.Info("no scoring service configured, using base scores only")
		return advisoryDomain.NeutralScorer{}
	}

	clientConfig := scoringhttp.DefaultConfig(cfg.ScorerBaseURL)
	clientConfig.RequestTimeout = cfg.ScorerTimeout
	var scorer advisoryDomain.Scorer = scoringhttp.NewClient(clientConfig, c.logger)

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			c.logger.Warn("invalid redis URL, scoring without cache", "error", err)
			return scorer
		}
		c.redisClient = redis.NewClient(opts)
		scorer = scorecache.New(scorer, c.redisClient, cfg.ScoreCacheTTL, c.logger)
	}

	return scorer
}

// buildPublisher connects to RabbitMQ when configured, otherwise events
// stay local.
func (c *Container) buildPublisher(cfg *config.Config) eventbus.Publisher {
	if cfg.RabbitMQURL == "" {
		return eventbus.NewNoopPublisher(c.logger)
	}
	publisher, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, c.logger)
	if err != nil {
		c.logger.Warn("failed to connect to RabbitMQ, events stay local", "error", err)
		return eventbus.NewNoopPublisher(c.logger)
	}
	return publisher
}

func (c *Container) registerHealthChecks() {
	c.Health.Register("database", observability.DatabaseHealthChecker(c.Store.Ping))
	if c.redisClient != nil {
		client := c.redisClient
		c.Health.Register("redis", observability.RedisHealthChecker(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}))
	}
	if rabbit, ok := c.Publisher.(*eventbus.RabbitMQPublisher); ok {
		c.Health.Register("rabbitmq", observability.RabbitMQHealthChecker(func(ctx context.Context) error {
			return rabbit.Ping(ctx)
		}))
	}
}

// Close releases all held connections.
func (c *Container) Close() error {
	var firstErr error
	if c.Publisher != nil {
		if err := c.Publisher.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.Store != nil {
		if err := c.Store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// emptyProvider is the calendar provider used in local mode.
type emptyProvider struct{}

func (emptyProvider) FetchEvents(context.Context, uuid.UUID, time.Time, time.Time) ([]calendarDomain.RawEvent, error) {
	return nil, nil
}
