package scenario

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crm-analytics/internal/forecast"
	"github.com/sells-group/crm-analytics/internal/model"
)

func flatBaseline(days int) []float64 {
	curve := make([]float64, days)
	for i := range curve {
		curve[i] = 100
	}
	return curve
}

func newTestPlanner(st *mockStore) *WhatIfPlanner {
	return NewWhatIfPlanner(forecast.NewForecaster(st, nil, forecast.Config{HorizonDays: 10}))
}

func flatRevenueStore(days int) *mockStore {
	now := time.Now()
	st := &mockStore{revenue: make([]model.RevenuePoint, days)}
	for i := range st.revenue {
		st.revenue[i] = model.RevenuePoint{Date: now.AddDate(0, 0, -(days - i)), Revenue: 100}
	}
	return st
}

func TestTransform_PricingElasticity(t *testing.T) {
	p := newTestPlanner(&mockStore{})

	curve, assumptions, err := p.transform(WhatIfScenario{
		Type:       WhatIfPricing,
		Parameters: WhatIfParams{PriceChangePercent: 10},
	}, flatBaseline(5))
	require.NoError(t, err)

	// +10% price at the default -1.5 elasticity: 1.1 * 0.85.
	for _, v := range curve {
		assert.InDelta(t, 93.5, v, 0.001)
	}
	assert.Contains(t, assumptions, "Price elasticity of -1.5 assumed")
	assert.Contains(t, assumptions, "Customer retention rate of 80% assumed")
}

func TestTransform_HiringRampUp(t *testing.T) {
	p := newTestPlanner(&mockStore{})

	curve, _, err := p.transform(WhatIfScenario{
		Type:       WhatIfHiring,
		Parameters: WhatIfParams{NewReps: 2},
	}, flatBaseline(120))
	require.NoError(t, err)

	// 2 reps at the default 50k/month: 3333.33/day once fully ramped.
	full := 2.0 * 50_000 / 30
	assert.InDelta(t, 100+full/90, curve[0], 0.1)
	assert.InDelta(t, 100+full/2, curve[44], 0.5)
	assert.InDelta(t, 100+full, curve[89], 0.1)
	assert.InDelta(t, 100+full, curve[119], 0.1)
}

func TestTransform_MarketingAttributionDecay(t *testing.T) {
	p := newTestPlanner(&mockStore{})

	curve, _, err := p.transform(WhatIfScenario{
		Type:       WhatIfMarketing,
		Parameters: WhatIfParams{MarketingSpend: 30_000},
	}, flatBaseline(60))
	require.NoError(t, err)

	// 30k at 3x ROAS over the 30-day window: 3000/day, linearly decayed.
	assert.InDelta(t, 100+3000, curve[0], 0.001)
	assert.InDelta(t, 100+1500, curve[15], 0.001)
	assert.InDelta(t, 100, curve[30], 0.001)
	assert.InDelta(t, 100, curve[59], 0.001)
}

func TestTransform_CustomFactor(t *testing.T) {
	p := newTestPlanner(&mockStore{})

	curve, assumptions, err := p.transform(WhatIfScenario{
		Type:       WhatIfCustom,
		Parameters: WhatIfParams{AdjustmentFactor: 1.2},
	}, flatBaseline(3))
	require.NoError(t, err)
	assert.Empty(t, assumptions)
	for _, v := range curve {
		assert.InDelta(t, 120, v, 0.001)
	}

	// Unset factor leaves the curve untouched.
	curve, _, err = p.transform(WhatIfScenario{Type: WhatIfCustom}, flatBaseline(3))
	require.NoError(t, err)
	for _, v := range curve {
		assert.InDelta(t, 100, v, 0.001)
	}
}

func TestTransform_ProductBeforeLaunchUnchanged(t *testing.T) {
	p := newTestPlanner(&mockStore{})
	launch := time.Now().AddDate(0, 0, 15).Format("2006-01-02")

	curve, _, err := p.transform(WhatIfScenario{
		Type:       WhatIfProduct,
		Parameters: WhatIfParams{LaunchDate: launch},
	}, flatBaseline(30))
	require.NoError(t, err)

	assert.InDelta(t, 100, curve[0], 0.001)
	assert.Greater(t, curve[29], 100.0)
}

func TestTransform_BadLaunchDate(t *testing.T) {
	p := newTestPlanner(&mockStore{})
	_, _, err := p.transform(WhatIfScenario{
		Type:       WhatIfProduct,
		Parameters: WhatIfParams{LaunchDate: "15-06-2025"},
	}, flatBaseline(5))
	assert.Error(t, err)
}

func TestTransform_UnknownType(t *testing.T) {
	p := newTestPlanner(&mockStore{})
	_, _, err := p.transform(WhatIfScenario{Type: WhatIfType("merger")}, flatBaseline(5))
	assert.Error(t, err)
}

func TestRun_ImpactAgainstBaseline(t *testing.T) {
	p := newTestPlanner(flatRevenueStore(40))

	result, err := p.Run(context.Background(), "t1", WhatIfScenario{
		ID:         "s1",
		Name:       "Expansion",
		Type:       WhatIfCustom,
		Parameters: WhatIfParams{AdjustmentFactor: 1.2},
	})
	require.NoError(t, err)

	assert.Equal(t, "s1", result.ScenarioID)
	assert.InDelta(t, 1200, result.Forecast.TotalHorizon, 0.5)
	assert.InDelta(t, 20, result.Impact.RevenueChange, 0.1)
	assert.InDelta(t, 200, result.Impact.AbsoluteChange, 0.5)
	assert.Equal(t, []string{"Revenue"}, result.Impact.AffectedMetrics)
	assert.Contains(t, result.Assumptions, "Scenario assumes current business trends continue")
}

func TestRunAnalysis_SkipsFailingScenarios(t *testing.T) {
	p := newTestPlanner(flatRevenueStore(40))

	results, err := p.RunAnalysis(context.Background(), "t1", []WhatIfScenario{
		{ID: "good", Name: "Good", Type: WhatIfCustom, Parameters: WhatIfParams{AdjustmentFactor: 1.1}},
		{ID: "bad", Name: "Bad", Type: WhatIfType("merger")},
	})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "good", results[0].ScenarioID)
}

func TestCompareScenarios(t *testing.T) {
	assert.NotNil(t, CompareScenarios(nil))

	results := []model.WhatIfResult{
		{ScenarioName: "winner", Impact: model.WhatIfImpact{RevenueChange: 25}},
		{ScenarioName: "flat", Impact: model.WhatIfImpact{RevenueChange: 1}},
		{ScenarioName: "loser", Impact: model.WhatIfImpact{RevenueChange: -12}},
	}
	c := CompareScenarios(results)

	require.NotNil(t, c.Best)
	require.NotNil(t, c.Worst)
	assert.Equal(t, "winner", c.Best.ScenarioName)
	assert.Equal(t, "loser", c.Worst.ScenarioName)
	assert.InDelta(t, 14.0/3, c.AverageImpact, 0.01)

	require.Len(t, c.Recommendations, 3)
	assert.Contains(t, c.Recommendations[0], "winner")
	assert.Contains(t, c.Recommendations[1], "loser")
}
