package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	anchoringCommands "github.com/anchora-app/anchora/internal/anchoring/application/commands"
	"github.com/anchora-app/anchora/internal/anchoring/domain"
	"github.com/anchora-app/anchora/internal/shared/infrastructure/security"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	anchorDate       string
	anchorActivities []string
	anchorFile       string
)

var anchorCmd = &cobra.Command{
	Use:   "anchor",
	Short: "Anchor activities into your calendar for one day",
	Long: `Run the anchoring engine: fetch the day's calendar, find the
free slots, and place every proposed activity into its best fit.

Activities are given with repeated --activity flags in the form
title,duration,energy,priority,proposed[,category] or loaded from a
JSON file with --file.

Examples:
  anchora anchor --activity "Deep work,90m,morning,1,09:00"
  anchora anchor --date 2026-09-02 \
    --activity "Gym,1h,evening,3,18:00,wellness" \
    --activity "Review PRs,30m,any,2,14:00,work"
  anchora anchor --file activities.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil {
			return fmt.Errorf("app not initialized")
		}

		date, err := resolveDate(anchorDate)
		if err != nil {
			return err
		}

		var inputs []anchoringCommands.ActivityInput
		if anchorFile != "" {
			inputs, err = loadActivityFile(anchorFile, date)
			if err != nil {
				return err
			}
		}
		for _, spec := range anchorActivities {
			input, err := parseActivitySpec(spec, date)
			if err != nil {
				return err
			}
			inputs = append(inputs, input)
		}
		if len(inputs) == 0 {
			return fmt.Errorf("no activities given, use --activity or --file")
		}

		result, err := app.AnchorDayHandler.Handle(cmd.Context(), anchoringCommands.AnchorDayCommand{
			UserID:     app.CurrentUserID,
			Date:       date,
			Activities: inputs,
		})
		if err != nil {
			return fmt.Errorf("anchoring failed: %w", err)
		}

		printRunSummary(result)
		return showRunPlacements(cmd, app, result.RunID)
	},
}

func init() {
	anchorCmd.Flags().StringVarP(&anchorDate, "date", "d", "", "date to anchor (YYYY-MM-DD, default today)")
	anchorCmd.Flags().StringArrayVarP(&anchorActivities, "activity", "a", nil, "activity spec: title,duration,energy,priority,proposed[,category]")
	anchorCmd.Flags().StringVarP(&anchorFile, "file", "f", "", "JSON file with activities")
	rootCmd.AddCommand(anchorCmd)
}

// resolveDate parses YYYY-MM-DD, defaulting to today in local time.
func resolveDate(value string) (time.Time, error) {
	if value == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()), nil
	}
	date, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format, use YYYY-MM-DD: %w", err)
	}
	return date, nil
}

// parseActivitySpec parses "title,duration,energy,priority,proposed[,category]",
// e.g. "Deep work,90m,morning,1,09:00,work".
func parseActivitySpec(spec string, date time.Time) (anchoringCommands.ActivityInput, error) {
	parts := strings.Split(spec, ",")
	if len(parts) < 5 || len(parts) > 6 {
		return anchoringCommands.ActivityInput{}, fmt.Errorf(
			"invalid activity %q: want title,duration,energy,priority,proposed[,category]", spec)
	}

	title := strings.TrimSpace(parts[0])
	if title == "" {
		return anchoringCommands.ActivityInput{}, fmt.Errorf("invalid activity %q: title is empty", spec)
	}

	duration, err := time.ParseDuration(strings.TrimSpace(parts[1]))
	if err != nil {
		return anchoringCommands.ActivityInput{}, fmt.Errorf("invalid activity %q: bad duration: %w", spec, err)
	}

	energy := domain.EnergyPreference(strings.TrimSpace(parts[2]))
	if energy == "" {
		energy = domain.EnergyAny
	}
	if !energy.IsValid() {
		return anchoringCommands.ActivityInput{}, fmt.Errorf(
			"invalid activity %q: energy must be morning, afternoon, evening, or any", spec)
	}

	priority, err := strconv.Atoi(strings.TrimSpace(parts[3]))
	if err != nil {
		return anchoringCommands.ActivityInput{}, fmt.Errorf("invalid activity %q: bad priority: %w", spec, err)
	}

	proposed, err := parseClock(strings.TrimSpace(parts[4]), date)
	if err != nil {
		return anchoringCommands.ActivityInput{}, fmt.Errorf("invalid activity %q: bad proposed time: %w", spec, err)
	}

	category := ""
	if len(parts) == 6 {
		category = strings.TrimSpace(parts[5])
	}

	return anchoringCommands.ActivityInput{
		ID:           uuid.New(),
		Title:        title,
		Category:     category,
		DurationMins: int(duration.Minutes()),
		EnergyWindow: string(energy),
		ProposedTime: proposed,
		Priority:     priority,
	}, nil
}

func parseClock(value string, date time.Time) (time.Time, error) {
	clock, err := time.Parse("15:04", value)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(),
		clock.Hour(), clock.Minute(), 0, 0, date.Location()), nil
}

// activityFileEntry is one activity in a --file JSON document.
type activityFileEntry struct {
	Title        string `json:"title"`
	Category     string `json:"category,omitempty"`
	DurationMins int    `json:"duration_mins"`
	Energy       string `json:"energy,omitempty"`
	Proposed     string `json:"proposed"`
	Priority     int    `json:"priority"`
}

func loadActivityFile(path string, date time.Time) ([]anchoringCommands.ActivityInput, error) {
	path, err := security.ValidateFilePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var entries []activityFileEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	inputs := make([]anchoringCommands.ActivityInput, 0, len(entries))
	for _, entry := range entries {
		energy := entry.Energy
		if energy == "" {
			energy = string(domain.EnergyAny)
		}
		proposed, err := parseClock(entry.Proposed, date)
		if err != nil {
			return nil, fmt.Errorf("activity %q: bad proposed time %q: %w", entry.Title, entry.Proposed, err)
		}
		inputs = append(inputs, anchoringCommands.ActivityInput{
			ID:           uuid.New(),
			Title:        entry.Title,
			Category:     entry.Category,
			DurationMins: entry.DurationMins,
			EnergyWindow: energy,
			ProposedTime: proposed,
			Priority:     entry.Priority,
		})
	}
	return inputs, nil
}

func printRunSummary(result *anchoringCommands.AnchorDayResult) {
	summary := result.Summary
	fmt.Println()
	fmt.Printf("  Run %s\n", result.RunID)
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("  Anchored:   %d of %d\n", summary.TasksAnchored, summary.TasksTotal)
	fmt.Printf("  Fallback:   %d\n", summary.TasksFallback)
	fmt.Printf("  Conflicts:  %d\n", summary.ConflictsDetected)
	fmt.Printf("  Confidence: %.0f%%\n", summary.AverageConfidence*100)
	fmt.Printf("  Day used:   %.0f%%\n", summary.UtilizationPct)
}
