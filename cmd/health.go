package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Aggregate pipeline health for the tenant",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireTenant(); err != nil {
			return err
		}
		eng, st, err := initEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		metrics, err := eng.CalculatePipelineHealth(cmd.Context(), tenantID)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(metrics)
		}

		fmt.Printf("Open deals: %d\n", metrics.OpenDealCount)
		fmt.Printf("Projected close rate (this month): %.1f%%\n", metrics.ProjectedCloseRate)
		fmt.Printf("Last month close rate: %.1f%%\n", metrics.LastMonthCloseRate)
		fmt.Printf("Risk level: %s\n", riskLabel(metrics.RiskLevel))

		if len(metrics.StuckDeals) > 0 {
			fmt.Println("\nStuck deals:")
			rows := make([][]string, 0, len(metrics.StuckDeals))
			for _, d := range metrics.StuckDeals {
				rows = append(rows, []string{
					d.DealID, d.Name, d.CurrentStage,
					fmt.Sprintf("₹%.0f", d.Value),
					fmt.Sprintf("%.0f", d.DaysStale),
				})
			}
			if err := renderTable([]string{"Deal", "Name", "Stage", "Value", "Days Stale"}, rows); err != nil {
				return err
			}
		}

		if len(metrics.ReadyToMove) > 0 {
			fmt.Println("\nReady to move:")
			rows := make([][]string, 0, len(metrics.ReadyToMove))
			for _, d := range metrics.ReadyToMove {
				rows = append(rows, []string{
					d.DealID, d.Name, d.CurrentStage, d.NextStage,
					fmt.Sprintf("%.1f%%", d.Probability),
				})
			}
			if err := renderTable([]string{"Deal", "Name", "Stage", "Next", "Probability"}, rows); err != nil {
				return err
			}
		}

		bulletList("\nRecommendations:", metrics.Recommendations)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
