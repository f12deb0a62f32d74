package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var forecastKind string

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Forecast tenant revenue",
	Long:  "Forecasts revenue from invoice history (timeseries), from the open pipeline (deals), or as a weighted blend of both (combined).",
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

		ctx := cmd.Context()
		switch forecastKind {
		case "timeseries":
			result, err := eng.ForecastRevenue(ctx, tenantID)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(result)
			}
			fmt.Printf("Models: %v, confidence %.0f%%\n", result.ModelsUsed, result.Confidence*100)
			fmt.Printf("Total over horizon: ₹%.0f (daily average ₹%.0f)\n",
				result.Summary.TotalHorizon, result.Summary.DailyAverage)
			fmt.Printf("Projection vs current run rate: %+.1f%%\n", result.Summary.ProjectionVsCurrent)
			return nil

		case "deals":
			result, err := eng.GenerateRevenueForecast(ctx, tenantID)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(result)
			}
			fmt.Printf("Pipeline expected value: ₹%.0f across %d deals (confidence %.1f%%)\n",
				result.TotalExpectedValue, result.DealCount, result.Confidence)
			rows := make([][]string, 0, len(result.Scenarios))
			for _, s := range result.Scenarios {
				rows = append(rows, []string{s.Name, fmt.Sprintf("₹%.0f", s.ExpectedValue)})
			}
			if err := renderTable([]string{"Scenario", "Expected Value"}, rows); err != nil {
				return err
			}
			fmt.Printf("80%% interval: ₹%.0f - ₹%.0f\n", result.IntervalLower80, result.IntervalUpper80)
			fmt.Printf("95%% interval: ₹%.0f - ₹%.0f\n", result.IntervalLower95, result.IntervalUpper95)
			return nil

		case "combined":
			result, err := eng.GenerateCombinedForecast(ctx, tenantID)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(result)
			}
			fmt.Printf("Blend: %.0f%% time-series / %.0f%% deal-based\n",
				result.TimeSeriesWeight*100, result.DealBasedWeight*100)
			rows := [][]string{
				{"conservative", fmt.Sprintf("₹%.0f", result.Conservative)},
				{"base", fmt.Sprintf("₹%.0f", result.Base)},
				{"upside", fmt.Sprintf("₹%.0f", result.Upside)},
			}
			if err := renderTable([]string{"Tier", "Revenue"}, rows); err != nil {
				return err
			}
			fmt.Printf("Confidence: %.1f%%\n", result.Confidence)
			return nil

		default:
			return fmt.Errorf("unknown forecast kind %q (want timeseries, deals, or combined)", forecastKind)
		}
	},
}

func init() {
	forecastCmd.Flags().StringVar(&forecastKind, "kind", "combined", "forecast kind: timeseries, deals, or combined")
	rootCmd.AddCommand(forecastCmd)
}
