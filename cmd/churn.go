package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var churnCmd = &cobra.Command{
	Use:   "churn <contact-id> [contact-id...]",
	Short: "Score contacts for churn risk",
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
			result, err := eng.CalculateChurnRisk(cmd.Context(), tenantID, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(result)
			}
			fmt.Printf("Contact %s: risk %.1f (%s)\n", result.ContactID, result.RiskScore, riskLabel(result.RiskLevel))
			if result.PredictedChurnDate != nil {
				fmt.Printf("Predicted churn date: %s\n", result.PredictedChurnDate.Format("2006-01-02"))
			}
			bulletList("Reasons:", result.Reasons)
			bulletList("Recommendations:", result.Recommendations)
			return nil
		}

		results, err := eng.CalculateBatchChurnRisk(cmd.Context(), tenantID, args)
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
				rows = append(rows, []string{id, "-", "failed"})
				continue
			}
			rows = append(rows, []string{id, fmt.Sprintf("%.1f", r.RiskScore), riskLabel(r.RiskLevel)})
		}
		return renderTable([]string{"Contact", "Risk", "Level"}, rows)
	},
}

func init() {
	rootCmd.AddCommand(churnCmd)
}
