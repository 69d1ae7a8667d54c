package cli

import (
	"fmt"

	"github.com/anchora-app/anchora/pkg/observability"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check connectivity of configured backends",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil {
			return fmt.Errorf("app not initialized")
		}

		health := app.Health.GetOverallHealth(cmd.Context())
		for name, check := range health.Checks {
			fmt.Printf("  %-10s %-10s %s\n", name, check.Status, check.Message)
		}
		fmt.Printf("  %-10s %s\n", "overall", health.Status)

		if health.Status != observability.HealthStatusHealthy {
			return fmt.Errorf("one or more checks failed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
