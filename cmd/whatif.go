package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/crm-analytics/internal/scenario"
)

var (
	whatIfFile    string
	whatIfCompare bool
)

var whatIfCmd = &cobra.Command{
	Use:   "whatif",
	Short: "Run parametric what-if scenarios from a YAML file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireTenant(); err != nil {
			return err
		}
		if whatIfFile == "" {
			return fmt.Errorf("--file is required")
		}
		scenarios, err := scenario.LoadScenarios(whatIfFile)
		if err != nil {
			return err
		}

		eng, st, err := initEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		results, err := eng.RunWhatIfAnalysis(cmd.Context(), tenantID, scenarios)
		if err != nil {
			return err
		}

		if whatIfCompare {
			comparison := eng.CompareScenarios(results)
			if asJSON {
				return printJSON(comparison)
			}
			if comparison.Best != nil {
				fmt.Printf("Best:  %s (%+.1f%%)\n", comparison.Best.ScenarioName, comparison.Best.Impact.RevenueChange)
			}
			if comparison.Worst != nil {
				fmt.Printf("Worst: %s (%+.1f%%)\n", comparison.Worst.ScenarioName, comparison.Worst.Impact.RevenueChange)
			}
			fmt.Printf("Average impact: %+.1f%%\n", comparison.AverageImpact)
			bulletList("Recommendations:", comparison.Recommendations)
			return nil
		}

		if asJSON {
			return printJSON(results)
		}
		rows := make([][]string, 0, len(results))
		for _, r := range results {
			rows = append(rows, []string{
				r.ScenarioName,
				r.ScenarioType,
				fmt.Sprintf("%+.1f%%", r.Impact.RevenueChange),
				fmt.Sprintf("₹%.0f", r.Impact.AbsoluteChange),
				fmt.Sprintf("%.0f%%", r.Forecast.Confidence*100),
			})
		}
		if err := renderTable([]string{"Scenario", "Type", "Change", "Absolute", "Confidence"}, rows); err != nil {
			return err
		}
		for _, r := range results {
			bulletList(fmt.Sprintf("Assumptions (%s):", r.ScenarioName), r.Assumptions)
		}
		return nil
	},
}

func init() {
	whatIfCmd.Flags().StringVar(&whatIfFile, "file", "", "path to the scenarios YAML file")
	whatIfCmd.Flags().BoolVar(&whatIfCompare, "compare", false, "rank scenarios instead of listing them")
	rootCmd.AddCommand(whatIfCmd)
}
