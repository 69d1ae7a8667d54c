package cli

import (
	"fmt"
	"strings"

	anchoringQueries "github.com/anchora-app/anchora/internal/anchoring/application/queries"
	"github.com/spf13/cobra"
)

var slotsDate string

var slotsCmd = &cobra.Command{
	Use:   "slots",
	Short: "Preview the free slots of a day",
	Long: `Show where anchoring could place activities: the free slots
between the day's calendar events, without anchoring anything.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil {
			return fmt.Errorf("app not initialized")
		}

		date, err := resolveDate(slotsDate)
		if err != nil {
			return err
		}

		slots, err := app.PreviewSlotsHandler.Handle(cmd.Context(), anchoringQueries.PreviewSlotsQuery{
			UserID: app.CurrentUserID,
			Date:   date,
		})
		if err != nil {
			return fmt.Errorf("failed to preview slots: %w", err)
		}

		fmt.Println()
		fmt.Printf("  FREE SLOTS: %s\n", date.Format("Monday, January 2, 2006"))
		fmt.Println("  " + strings.Repeat("-", 60))

		if len(slots) == 0 {
			fmt.Println("    No free slots, the day is fully booked.")
			fmt.Println()
			return nil
		}

		totalMins := 0
		for _, slot := range slots {
			totalMins += slot.DurationMins
			context := ""
			if slot.PrecedingEvent != "" {
				context = "after " + slot.PrecedingEvent
			}
			if slot.FollowingEvent != "" {
				if context != "" {
					context += ", "
				}
				context += "before " + slot.FollowingEvent
			}
			fmt.Printf("    %s - %s  %4dm  %-7s  %s\n",
				slot.Start.Format("15:04"),
				slot.End.Format("15:04"),
				slot.DurationMins,
				slot.SizeClass,
				context,
			)
		}
		fmt.Println()
		fmt.Printf("  %d slots, %dh%02dm free\n", len(slots), totalMins/60, totalMins%60)
		fmt.Println()
		return nil
	},
}

func init() {
	slotsCmd.Flags().StringVarP(&slotsDate, "date", "d", "", "date to preview (YYYY-MM-DD, default today)")
	rootCmd.AddCommand(slotsCmd)
}
