package forecast

import (
	"context"
	"math"

	"github.com/sells-group/crm-analytics/internal/model"
	"github.com/sells-group/crm-analytics/internal/scoring"
	"github.com/sells-group/crm-analytics/internal/signal"
	"github.com/sells-group/crm-analytics/internal/store"
)

// DealConfig tunes the deal-based forecaster's scenario spread.
type DealConfig struct {
	// Haircut is the conservative scenario's probability reduction in
	// percentage points. Default 20.
	Haircut float64
	// Boost is the upside scenario's probability increase. Default 20.
	Boost float64
}

func (c DealConfig) withDefaults() DealConfig {
	if c.Haircut <= 0 {
		c.Haircut = 20
	}
	if c.Boost <= 0 {
		c.Boost = 20
	}
	return c
}

// DealForecaster projects revenue from the open pipeline's composition:
// each deal contributes its value weighted by closure probability.
type DealForecaster struct {
	store   store.Store
	closure *scoring.ClosureScorer
	cfg     DealConfig
}

// NewDealForecaster creates a deal-based forecaster.
func NewDealForecaster(st store.Store, closure *scoring.ClosureScorer, cfg DealConfig) *DealForecaster {
	return &DealForecaster{store: st, closure: closure, cfg: cfg.withDefaults()}
}

// Forecast computes the expected-value forecast over all open deals.
// A tenant with no open pipeline gets a zero forecast, not an error.
func (f *DealForecaster) Forecast(ctx context.Context, tenantID string) (*model.DealForecast, error) {
	deals, err := f.store.ListOpenDeals(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(deals))
	for i, d := range deals {
		ids[i] = d.ID
	}
	scores, err := f.closure.ScoreBatch(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}

	var base, conservative, upside, probSum float64
	var expectedValues []float64
	n := 0
	for _, d := range deals {
		r, ok := scores[d.ID]
		if !ok {
			continue
		}
		p := r.Probability
		ev := d.Value * p / 100
		base += ev
		conservative += d.Value * math.Max(0, p-f.cfg.Haircut) / 100
		upside += d.Value * math.Min(100, p+f.cfg.Boost) / 100
		expectedValues = append(expectedValues, ev)
		probSum += p
		n++
	}

	confidence := 0.0
	if n > 0 {
		confidence = probSum / float64(n)
	}

	_, stdDev := meanStdDev(expectedValues)

	return &model.DealForecast{
		TotalExpectedValue: base,
		Scenarios: []model.DealForecastScenario{
			{Name: "conservative", ExpectedValue: conservative},
			{Name: "base", ExpectedValue: base},
			{Name: "upside", ExpectedValue: upside},
		},
		Confidence:      signal.Round1(confidence),
		IntervalLower80: math.Max(0, base-z80*stdDev),
		IntervalUpper80: base + z80*stdDev,
		IntervalLower95: math.Max(0, base-z95*stdDev),
		IntervalUpper95: base + z95*stdDev,
		DealCount:       n,
	}, nil
}
