package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/anchora-app/anchora/adapter/cli"
	"github.com/anchora-app/anchora/internal/app"
	"github.com/anchora-app/anchora/pkg/config"
	"github.com/anchora-app/anchora/pkg/observability"
	"github.com/google/uuid"
)

func main() {
	logger := observability.LoggerFromEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if cfg.IsDevelopment() {
		logger = observability.NewLogger(observability.LogConfig{
			Level:       observability.LogLevel(cfg.LogLevel),
			Format:      observability.LogFormatText,
			Output:      os.Stderr,
			ServiceName: "anchora",
		})
	}
	slog.SetDefault(logger)
	cli.SetLogger(logger)

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	userID, err := uuid.Parse(cfg.UserID)
	if err != nil {
		logger.Error("invalid ANCHORA_USER_ID", "error", err)
		os.Exit(1)
	}

	cli.SetApp(&cli.App{
		AnchorDayHandler:    container.AnchorDayHandler,
		GetRunHandler:       container.GetRunHandler,
		ListRunsHandler:     container.ListRunsHandler,
		PreviewSlotsHandler: container.PreviewSlotsHandler,
		Health:              container.Health,
		CurrentUserID:       userID,
	})

	cli.Execute()
}
