package cli

import (
	"fmt"
	"strings"

	anchoringQueries "github.com/anchora-app/anchora/internal/anchoring/application/queries"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage anchoring runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your recent anchoring runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil {
			return fmt.Errorf("app not initialized")
		}

		runs, err := app.ListRunsHandler.Handle(cmd.Context(), anchoringQueries.ListRunsQuery{
			UserID: app.CurrentUserID,
			Limit:  runsLimit,
		})
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}

		if len(runs) == 0 {
			fmt.Println("No anchoring runs yet. Run: anchora anchor")
			return nil
		}

		fmt.Println()
		fmt.Printf("  %-36s  %-10s  %8s  %8s  %10s\n", "RUN", "DATE", "ANCHORED", "FALLBACK", "CONFIDENCE")
		fmt.Println("  " + strings.Repeat("-", 80))
		for _, run := range runs {
			fmt.Printf("  %-36s  %-10s  %8d  %8d  %9.0f%%\n",
				run.ID,
				run.Date.Format("2006-01-02"),
				run.Summary.TasksAnchored,
				run.Summary.TasksFallback,
				run.Summary.AverageConfidence*100,
			)
		}
		fmt.Println()
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run with its placements",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil {
			return fmt.Errorf("app not initialized")
		}

		runID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid run ID: %w", err)
		}

		return showRunPlacements(cmd, app, runID)
	},
}

func showRunPlacements(cmd *cobra.Command, app *App, runID uuid.UUID) error {
	run, err := app.GetRunHandler.Handle(cmd.Context(), anchoringQueries.GetRunQuery{RunID: runID})
	if err != nil {
		return fmt.Errorf("failed to load run: %w", err)
	}

	fmt.Println()
	fmt.Printf("  %s  (window %s - %s)\n",
		run.Date.Format("Monday, January 2, 2006"),
		run.WindowStart.Format("15:04"),
		run.WindowEnd.Format("15:04"),
	)
	fmt.Println("  " + strings.Repeat("-", 60))

	for _, p := range run.Placements {
		marker := " "
		if p.IsFallback {
			marker = "!"
		}
		fmt.Printf("  %s %s - %s  %-36s  %3.0f%%",
			marker,
			p.Start.Format("15:04"),
			p.End.Format("15:04"),
			p.ActivityID,
			p.Confidence*100,
		)
		if p.Breakdown != nil {
			fmt.Printf("  (score %.1f)", p.Breakdown.Total)
		}
		fmt.Println()
	}

	if run.Summary.TasksFallback > 0 {
		fmt.Println()
		fmt.Println("  ! placed at its proposed time, no free slot fit")
	}
	fmt.Println()
	return nil
}

func init() {
	runsListCmd.Flags().IntVarP(&runsLimit, "limit", "n", anchoringQueries.DefaultListLimit, "maximum runs to list")
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}
