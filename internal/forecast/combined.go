package forecast

import (
	"context"

	"github.com/sells-group/crm-analytics/internal/model"
	"github.com/sells-group/crm-analytics/internal/signal"
)

// BlendConfig holds the combined forecaster's weights. The two inputs
// answer different questions: the time series carries aggregate
// momentum, the deal book carries known pipeline composition. The
// weights are a business calibration, not a derived quantity.
type BlendConfig struct {
	// TimeSeriesWeight defaults to 0.4, DealBasedWeight to 0.6.
	TimeSeriesWeight float64
	DealBasedWeight  float64
}

func (c BlendConfig) withDefaults() BlendConfig {
	if c.TimeSeriesWeight <= 0 && c.DealBasedWeight <= 0 {
		c.TimeSeriesWeight = 0.4
		c.DealBasedWeight = 0.6
	}
	return c
}

// CombinedForecaster blends the time-series and deal-based forecasts
// per scenario tier.
type CombinedForecaster struct {
	timeSeries *Forecaster
	dealBased  *DealForecaster
	cfg        BlendConfig
}

// NewCombinedForecaster creates the blended forecaster.
func NewCombinedForecaster(ts *Forecaster, db *DealForecaster, cfg BlendConfig) *CombinedForecaster {
	return &CombinedForecaster{timeSeries: ts, dealBased: db, cfg: cfg.withDefaults()}
}

// Forecast runs both underlying forecasts and blends them. The
// time-series tiers come from the horizon total and its 80% band; the
// deal-based tiers from the haircut/boost scenarios.
func (f *CombinedForecaster) Forecast(ctx context.Context, tenantID string) (*model.CombinedForecast, error) {
	ts, err := f.timeSeries.ForecastRevenue(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	db, err := f.dealBased.Forecast(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	tsConservative, tsUpside := 0.0, 0.0
	for i := range ts.Forecast {
		tsConservative += ts.ConfidenceIntervals.Lower80[i]
		tsUpside += ts.ConfidenceIntervals.Upper80[i]
	}
	tsBase := ts.Summary.TotalHorizon

	dealTier := func(name string) float64 {
		for _, s := range db.Scenarios {
			if s.Name == name {
				return s.ExpectedValue
			}
		}
		return db.TotalExpectedValue
	}

	wTS, wDeal := f.cfg.TimeSeriesWeight, f.cfg.DealBasedWeight
	blend := func(ts, deal float64) float64 { return wTS*ts + wDeal*deal }

	return &model.CombinedForecast{
		Conservative:     blend(tsConservative, dealTier("conservative")),
		Base:             blend(tsBase, dealTier("base")),
		Upside:           blend(tsUpside, dealTier("upside")),
		Confidence:       signal.Round1(blend(ts.Confidence*100, db.Confidence)),
		TimeSeriesWeight: wTS,
		DealBasedWeight:  wDeal,
	}, nil
}
