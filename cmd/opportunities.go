package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var opportunitiesCmd = &cobra.Command{
	Use:   "opportunities",
	Short: "List upsell candidates across the tenant",
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

		candidates, err := eng.GetUpsellOpportunities(cmd.Context(), tenantID)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(candidates)
		}
		if len(candidates) == 0 {
			fmt.Println("No upsell opportunities found.")
			return nil
		}
		rows := make([][]string, 0, len(candidates))
		for _, c := range candidates {
			rows = append(rows, []string{
				c.ContactID,
				fmt.Sprintf("%.1f", c.OpportunityScore),
				opportunityLabel(c.OpportunityLevel),
				fmt.Sprintf("₹%.0f", c.EstimatedUpsellValue),
			})
		}
		return renderTable([]string{"Contact", "Score", "Level", "Est. Value"}, rows)
	},
}

func init() {
	rootCmd.AddCommand(opportunitiesCmd)
}
