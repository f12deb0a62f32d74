// Package scenario simulates hypothetical business changes against the
// revenue forecasts without mutating real data: parametric what-if
// transforms over the baseline curve, and discrete action scenarios
// over the current pipeline state.
package scenario

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/crm-analytics/internal/forecast"
	"github.com/sells-group/crm-analytics/internal/model"
)

// WhatIfType selects the parametric transform applied to the baseline.
type WhatIfType string

const (
	WhatIfPricing   WhatIfType = "pricing"
	WhatIfHiring    WhatIfType = "hiring"
	WhatIfProduct   WhatIfType = "product"
	WhatIfMarketing WhatIfType = "marketing"
	WhatIfCustom    WhatIfType = "custom"
)

// WhatIfParams carries the per-type tunables. Unset values fall back to
// the documented defaults for that scenario type.
type WhatIfParams struct {
	// pricing
	PriceChangePercent float64 `yaml:"price_change_percent" json:"price_change_percent,omitempty"`
	Elasticity         float64 `yaml:"elasticity" json:"elasticity,omitempty"`
	RetentionRate      float64 `yaml:"retention_rate" json:"retention_rate,omitempty"`

	// hiring
	NewReps       int     `yaml:"new_reps" json:"new_reps,omitempty"`
	RevenuePerRep float64 `yaml:"revenue_per_rep" json:"revenue_per_rep,omitempty"`
	RampUpMonths  int     `yaml:"ramp_up_months" json:"ramp_up_months,omitempty"`

	// product
	LaunchDate             string  `yaml:"launch_date" json:"launch_date,omitempty"` // YYYY-MM-DD
	ExpectedMonthlyRevenue float64 `yaml:"expected_monthly_revenue" json:"expected_monthly_revenue,omitempty"`
	GrowthRate             float64 `yaml:"growth_rate" json:"growth_rate,omitempty"`

	// marketing
	MarketingSpend        float64 `yaml:"marketing_spend" json:"marketing_spend,omitempty"`
	ROAS                  float64 `yaml:"roas" json:"roas,omitempty"`
	AttributionWindowDays int     `yaml:"attribution_window_days" json:"attribution_window_days,omitempty"`

	// custom
	AdjustmentFactor float64 `yaml:"adjustment_factor" json:"adjustment_factor,omitempty"`
}

// WhatIfScenario is one parametric scenario definition, typically
// parsed from a YAML scenario file.
type WhatIfScenario struct {
	ID          string       `yaml:"id" json:"id"`
	Name        string       `yaml:"name" json:"name"`
	Description string       `yaml:"description" json:"description,omitempty"`
	Type        WhatIfType   `yaml:"type" json:"type"`
	Parameters  WhatIfParams `yaml:"parameters" json:"parameters"`
}

// WhatIfPlanner applies parametric scenarios to the baseline forecast.
type WhatIfPlanner struct {
	forecaster *forecast.Forecaster
	nowFunc    func() time.Time
}

// NewWhatIfPlanner creates a planner over the time-series forecaster.
func NewWhatIfPlanner(f *forecast.Forecaster) *WhatIfPlanner {
	return &WhatIfPlanner{forecaster: f, nowFunc: time.Now}
}

// Run applies one scenario to a fresh baseline forecast.
func (p *WhatIfPlanner) Run(ctx context.Context, tenantID string, sc WhatIfScenario) (*model.WhatIfResult, error) {
	baseline, err := p.forecaster.ForecastRevenue(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return p.apply(tenantID, sc, baseline)
}

// RunAnalysis runs several scenarios against one shared baseline,
// skipping and logging individual failures.
func (p *WhatIfPlanner) RunAnalysis(ctx context.Context, tenantID string, scenarios []WhatIfScenario) ([]model.WhatIfResult, error) {
	baseline, err := p.forecaster.ForecastRevenue(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	results := make([]model.WhatIfResult, 0, len(scenarios))
	for _, sc := range scenarios {
		r, err := p.apply(tenantID, sc, baseline)
		if err != nil {
			zap.L().Warn("what-if scenario failed",
				zap.String("tenant_id", tenantID),
				zap.String("scenario_id", sc.ID),
				zap.Error(err))
			continue
		}
		results = append(results, *r)
	}
	return results, nil
}

func (p *WhatIfPlanner) apply(tenantID string, sc WhatIfScenario, baseline *model.ForecastResult) (*model.WhatIfResult, error) {
	curve, assumptions, err := p.transform(sc, baseline.Forecast)
	if err != nil {
		return nil, err
	}

	var total float64
	for _, v := range curve {
		total += v
	}
	dailyAverage := 0.0
	if len(curve) > 0 {
		dailyAverage = total / float64(len(curve))
	}

	baseTotal := baseline.Summary.TotalHorizon
	absolute := total - baseTotal
	change := 0.0
	if baseTotal > 0 {
		change = absolute / baseTotal * 100
	}

	assumptions = append(assumptions,
		fmt.Sprintf("Baseline forecast confidence: %.1f%%", baseline.Confidence*100),
		"Scenario assumes current business trends continue")

	return &model.WhatIfResult{
		ScenarioID:   sc.ID,
		ScenarioName: sc.Name,
		ScenarioType: string(sc.Type),
		Forecast: model.WhatIfForecast{
			TotalHorizon:        total,
			DailyAverage:        dailyAverage,
			ProjectionVsCurrent: baseline.Summary.ProjectionVsCurrent,
			Confidence:          baseline.Confidence,
		},
		Impact: model.WhatIfImpact{
			RevenueChange:   change,
			AbsoluteChange:  absolute,
			AffectedMetrics: affectedMetrics(sc.Type),
		},
		Assumptions: assumptions,
	}, nil
}

// transform applies the type-specific adjustment to the baseline curve
// and names the assumptions baked into it.
func (p *WhatIfPlanner) transform(sc WhatIfScenario, baseline []float64) ([]float64, []string, error) {
	curve := make([]float64, len(baseline))
	pa := sc.Parameters

	switch sc.Type {
	case WhatIfPricing:
		elasticity := pa.Elasticity
		if elasticity == 0 {
			elasticity = -1.5
		}
		retention := pa.RetentionRate
		if retention == 0 {
			retention = 80
		}
		priceFactor := 1 + pa.PriceChangePercent/100
		volumeFactor := 1 + pa.PriceChangePercent*elasticity/100
		for i, r := range baseline {
			curve[i] = r * priceFactor * volumeFactor
		}
		return curve, []string{
			fmt.Sprintf("Price elasticity of %g assumed", elasticity),
			fmt.Sprintf("Customer retention rate of %g%% assumed", retention),
		}, nil

	case WhatIfHiring:
		perRep := pa.RevenuePerRep
		if perRep == 0 {
			perRep = 50_000
		}
		rampMonths := pa.RampUpMonths
		if rampMonths == 0 {
			rampMonths = 3
		}
		dailyAdditional := float64(pa.NewReps) * perRep * (float64(rampMonths) / 3) / 30
		for i, r := range baseline {
			ramp := math.Min(1, float64(i+1)/float64(rampMonths*30))
			curve[i] = r + dailyAdditional*ramp
		}
		return curve, []string{
			fmt.Sprintf("New reps will generate ₹%.0f/month after %d months", perRep, rampMonths),
			"Ramp-up period includes training and onboarding",
		}, nil

	case WhatIfProduct:
		monthly := pa.ExpectedMonthlyRevenue
		if monthly == 0 {
			monthly = 100_000
		}
		growth := pa.GrowthRate
		if growth == 0 {
			growth = 0.1
		}
		launch := p.nowFunc()
		if pa.LaunchDate != "" {
			t, err := time.Parse("2006-01-02", pa.LaunchDate)
			if err != nil {
				return nil, nil, eris.Wrapf(err, "scenario: parse launch date %q", pa.LaunchDate)
			}
			launch = t
		}
		for i, r := range baseline {
			day := p.nowFunc().AddDate(0, 0, i)
			if day.Before(launch) {
				curve[i] = r
				continue
			}
			monthsSince := day.Sub(launch).Hours() / 24 / 30
			curve[i] = r + monthly*math.Pow(1+growth, monthsSince)/30
		}
		return curve, []string{
			fmt.Sprintf("Product will reach ₹%.0f/month with %g%% monthly growth", monthly, growth*100),
		}, nil

	case WhatIfMarketing:
		roas := pa.ROAS
		if roas == 0 {
			roas = 3.0
		}
		window := pa.AttributionWindowDays
		if window == 0 {
			window = 30
		}
		dailyAdditional := pa.MarketingSpend * roas / float64(window)
		for i, r := range baseline {
			if i < window {
				decay := 1 - float64(i)/float64(window)
				curve[i] = r + dailyAdditional*decay
			} else {
				curve[i] = r
			}
		}
		return curve, []string{
			fmt.Sprintf("ROAS of %gx assumed for marketing spend", roas),
			fmt.Sprintf("Attribution window of %d days", window),
		}, nil

	case WhatIfCustom:
		factor := pa.AdjustmentFactor
		if factor == 0 {
			factor = 1.0
		}
		for i, r := range baseline {
			curve[i] = r * factor
		}
		return curve, nil, nil

	default:
		return nil, nil, eris.New(fmt.Sprintf("scenario: unknown what-if type %q", sc.Type))
	}
}

func affectedMetrics(t WhatIfType) []string {
	switch t {
	case WhatIfPricing:
		return []string{"Revenue", "Customer Count", "Average Order Value"}
	case WhatIfHiring:
		return []string{"Revenue", "Sales Capacity", "Customer Acquisition"}
	case WhatIfProduct:
		return []string{"Revenue", "Product Mix", "Customer Lifetime Value"}
	case WhatIfMarketing:
		return []string{"Revenue", "Customer Acquisition Cost", "Lead Generation"}
	default:
		return []string{"Revenue"}
	}
}

// CompareScenarios ranks what-if results by revenue impact.
func CompareScenarios(results []model.WhatIfResult) *model.ScenarioComparison {
	if len(results) == 0 {
		return &model.ScenarioComparison{}
	}

	best, worst := &results[0], &results[0]
	var sum float64
	for i := range results {
		r := &results[i]
		sum += r.Impact.RevenueChange
		if r.Impact.RevenueChange > best.Impact.RevenueChange {
			best = r
		}
		if r.Impact.RevenueChange < worst.Impact.RevenueChange {
			worst = r
		}
	}
	average := sum / float64(len(results))

	var recs []string
	if best.Impact.RevenueChange > 10 {
		recs = append(recs, fmt.Sprintf("Strongly consider %q - projected %.1f%% revenue increase",
			best.ScenarioName, best.Impact.RevenueChange))
	}
	if worst.Impact.RevenueChange < -5 {
		recs = append(recs, fmt.Sprintf("Avoid %q - projected %.1f%% revenue decrease",
			worst.ScenarioName, worst.Impact.RevenueChange))
	}
	if average > 0 {
		recs = append(recs, fmt.Sprintf("Overall, scenarios show positive potential with average %.1f%% increase", average))
	}

	return &model.ScenarioComparison{
		Best:            best,
		Worst:           worst,
		AverageImpact:   average,
		Recommendations: recs,
	}
}
