package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var closureCmd = &cobra.Command{
	Use:   "closure <deal-id> [deal-id...]",
	Short: "Score deals for closure probability",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireTenant(); err != nil {
			return err
		}
		eng, st, err := initEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		if len(args) == 1 {
			result, err := eng.CalculateDealClosureProbability(cmd.Context(), tenantID, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(result)
			}
			fmt.Printf("Deal %s: probability %.1f%% (base %.0f%%, confidence %.1f%%)\n",
				result.DealID, result.Probability, result.BaseProbability, result.Confidence)
			adj := result.SignalAdjustments
			rows := [][]string{
				{"CEO engagement", fmt.Sprintf("%+.0f", adj.CEOEngagement)},
				{"Multiple stakeholders", fmt.Sprintf("%+.0f", adj.MultipleStakeholders)},
				{"Competitor mention", fmt.Sprintf("%+.0f", adj.CompetitorMention)},
				{"Budget confirmed", fmt.Sprintf("%+.0f", adj.BudgetConfirmed)},
				{"Recent activity", fmt.Sprintf("%+.0f", adj.RecentActivity)},
				{"Deal age", fmt.Sprintf("%+.0f", adj.DealAge)},
				{"Deal value", fmt.Sprintf("%+.0f", adj.DealValue)},
			}
			if err := renderTable([]string{"Signal", "Adjustment"}, rows); err != nil {
				return err
			}
			bulletList("Risk factors:", result.RiskFactors)
			bulletList("Recommendations:", result.Recommendations)
			return nil
		}

		results, err := eng.CalculateBatchDealProbabilities(cmd.Context(), tenantID, args)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(results)
		}
		rows := make([][]string, 0, len(results))
		for _, id := range args {
			r, ok := results[id]
			if !ok {
				rows = append(rows, []string{id, "-", "-"})
				continue
			}
			rows = append(rows, []string{id, fmt.Sprintf("%.1f%%", r.Probability), fmt.Sprintf("%.1f%%", r.Confidence)})
		}
		return renderTable([]string{"Deal", "Probability", "Confidence"}, rows)
	},
}

func init() {
	rootCmd.AddCommand(closureCmd)
}
