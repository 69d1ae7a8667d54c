package cli

import (
	anchoringCommands "github.com/anchora-app/anchora/internal/anchoring/application/commands"
	anchoringQueries "github.com/anchora-app/anchora/internal/anchoring/application/queries"
	"github.com/anchora-app/anchora/pkg/observability"
	"github.com/google/uuid"
)

// App holds the CLI application dependencies.
type App struct {
	// Command handlers
	AnchorDayHandler *anchoringCommands.AnchorDayHandler

	// Query handlers
	GetRunHandler       *anchoringQueries.GetRunHandler
	ListRunsHandler     *anchoringQueries.ListRunsHandler
	PreviewSlotsHandler *anchoringQueries.PreviewSlotsHandler

	// Health checks registered by the container
	Health *observability.HealthRegistry

	// Current user (configured per environment)
	CurrentUserID uuid.UUID
}

var app *App

// SetApp sets the CLI application dependencies.
func SetApp(a *App) {
	app = a
}

// GetApp returns the CLI application dependencies.
func GetApp() *App {
	return app
}
