package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/crm-analytics/internal/scenario"
)

var (
	scenarioDealIDs     []string
	scenarioContactIDs  []string
	scenarioImprovement float64
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario <type>",
	Short: "Simulate a discrete pipeline action",
	Long:  "Simulates the revenue impact of closing named deals, losing or upselling named customers, or a flat closure-rate improvement. Types: close-deals, lose-customers, upsell-customers, improve-closure-rate.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireTenant(); err != nil {
			return err
		}
		eng, st, err := initEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		input := scenario.ActionInput{
			Type:                   scenario.ActionType(args[0]),
			DealIDs:                scenarioDealIDs,
			ContactIDs:             scenarioContactIDs,
			ClosureRateImprovement: scenarioImprovement,
		}
		result, err := eng.RunScenario(cmd.Context(), tenantID, input)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(result)
		}

		fmt.Printf("Scenario: %s (confidence %.0f%%)\n", result.ScenarioType, result.Confidence)
		fmt.Printf("Current:   ₹%.0f revenue, %d customers, %d deals\n",
			result.CurrentState.Revenue, result.CurrentState.CustomerCount, result.CurrentState.DealCount)
		fmt.Printf("Projected: ₹%.0f revenue (%+.0f, %+.1f%%), %d customers, %d deals\n",
			result.ProjectedState.Revenue, result.ProjectedState.RevenueChange,
			result.ProjectedState.RevenueChangePercent,
			result.ProjectedState.CustomerCount, result.ProjectedState.DealCount)

		if len(result.Actions) > 0 {
			rows := make([][]string, 0, len(result.Actions))
			for _, a := range result.Actions {
				rows = append(rows, []string{a.Type, a.Description, fmt.Sprintf("₹%.0f", a.Impact), string(a.Priority)})
			}
			if err := renderTable([]string{"Action", "Description", "Impact", "Priority"}, rows); err != nil {
				return err
			}
		}
		bulletList("Recommendations:", result.Recommendations)
		return nil
	},
}

func init() {
	scenarioCmd.Flags().StringSliceVar(&scenarioDealIDs, "deal-ids", nil, "deal ids for close-deals")
	scenarioCmd.Flags().StringSliceVar(&scenarioContactIDs, "contact-ids", nil, "contact ids for lose-customers and upsell-customers")
	scenarioCmd.Flags().Float64Var(&scenarioImprovement, "improvement", 0, "closure-rate improvement in percentage points (0 uses the configured default)")
	rootCmd.AddCommand(scenarioCmd)
}
