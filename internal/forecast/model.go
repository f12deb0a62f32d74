// Package forecast produces daily revenue forecasts from paid-invoice
// history and expected-value forecasts from the open deal book, plus
// the weighted blend of the two.
package forecast

import (
	"context"

	"github.com/sells-group/crm-analytics/internal/model"
)

// Model is a forecasting strategy over a daily revenue series. A model
// returns the forecast curve, confidence, intervals, and summary; the
// Forecaster attaches the historical series afterwards.
type Model interface {
	// Name identifies the model in ForecastResult.ModelsUsed.
	Name() string
	// Forecast predicts horizonDays of daily revenue past the end of
	// history. History is ordered oldest-first.
	Forecast(ctx context.Context, tenantID string, history []model.RevenuePoint, horizonDays int) (*model.ForecastResult, error)
}
