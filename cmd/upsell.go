package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var upsellCmd = &cobra.Command{
	Use:   "upsell <contact-id> [contact-id...]",
	Short: "Score contacts for upsell opportunity",
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
			result, err := eng.CalculateUpsellOpportunity(cmd.Context(), tenantID, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(result)
			}
			fmt.Printf("Contact %s: opportunity %.1f (%s), estimated value ₹%.0f/month\n",
				result.ContactID, result.OpportunityScore, opportunityLabel(result.OpportunityLevel), result.EstimatedUpsellValue)
			fmt.Printf("Estimated retention boost: %.1f%%\n", result.EstimatedRetentionBoost)
			bulletList("Recommended features:", result.RecommendedFeatures)
			bulletList("Recommendations:", result.Recommendations)
			return nil
		}

		results, err := eng.CalculateBatchUpsellOpportunities(cmd.Context(), tenantID, args)
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
				rows = append(rows, []string{id, "-", "-", "-"})
				continue
			}
			rows = append(rows, []string{
				id,
				fmt.Sprintf("%.1f", r.OpportunityScore),
				opportunityLabel(r.OpportunityLevel),
				fmt.Sprintf("₹%.0f", r.EstimatedUpsellValue),
			})
		}
		return renderTable([]string{"Contact", "Score", "Level", "Est. Value"}, rows)
	},
}

func init() {
	rootCmd.AddCommand(upsellCmd)
}
