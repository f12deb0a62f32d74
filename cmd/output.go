package main

import (
	"encoding/json"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/sells-group/crm-analytics/internal/model"
)

var (
	criticalColor = color.New(color.FgRed, color.Bold)
	highColor     = color.New(color.FgYellow, color.Bold)
	mediumColor   = color.New(color.FgGreen)
	lowColor      = color.New(color.FgHiBlack)
)

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderTable prints a right-aligned table with the given header and rows.
func renderTable(header []string, rows [][]string) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header(header)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

// riskLabel colors a churn risk tier.
func riskLabel(level model.RiskLevel) string {
	switch level {
	case model.RiskCritical:
		return criticalColor.Sprint("CRITICAL")
	case model.RiskHigh:
		return highColor.Sprint("HIGH")
	case model.RiskMedium:
		return mediumColor.Sprint("MEDIUM")
	default:
		return lowColor.Sprint("LOW")
	}
}

// opportunityLabel colors an upsell opportunity tier.
func opportunityLabel(level model.OpportunityLevel) string {
	switch level {
	case model.OpportunityVeryHigh:
		return criticalColor.Sprint("VERY HIGH")
	case model.OpportunityHigh:
		return highColor.Sprint("HIGH")
	case model.OpportunityMedium:
		return mediumColor.Sprint("MEDIUM")
	default:
		return lowColor.Sprint("LOW")
	}
}

// bulletList prints one line per item with a leading dash.
func bulletList(title string, items []string) {
	if len(items) == 0 {
		return
	}
	os.Stdout.WriteString(title + "\n")
	for _, it := range items {
		os.Stdout.WriteString("  - " + it + "\n")
	}
}
