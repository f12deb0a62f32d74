package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/crm-analytics/internal/config"
)

var (
	cfg      *config.Config
	tenantID string
	asJSON   bool
)

var rootCmd = &cobra.Command{
	Use:   "crm-analytics",
	Short: "Predictive revenue and risk analytics for the CRM",
	Long:  "Scores deals, churn risk, and upsell potential from CRM history, forecasts revenue from invoices and the open pipeline, and simulates what-if scenarios.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&tenantID, "tenant", "", "tenant id (required for analytics commands)")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "emit raw JSON instead of tables")
}

// requireTenant guards commands that need a tenant scope.
func requireTenant() error {
	if tenantID == "" {
		return fmt.Errorf("--tenant is required")
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
