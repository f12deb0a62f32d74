package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var highRiskCmd = &cobra.Command{
	Use:   "high-risk",
	Short: "List customers at high churn risk",
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

		customers, err := eng.GetHighRiskCustomers(cmd.Context(), tenantID)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(customers)
		}
		if len(customers) == 0 {
			fmt.Println("No high-risk customers found.")
			return nil
		}
		rows := make([][]string, 0, len(customers))
		for _, c := range customers {
			rows = append(rows, []string{c.ContactID, fmt.Sprintf("%.1f", c.RiskScore), riskLabel(c.RiskLevel)})
		}
		return renderTable([]string{"Contact", "Risk", "Level"}, rows)
	},
}

func init() {
	rootCmd.AddCommand(highRiskCmd)
}
