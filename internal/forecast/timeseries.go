package forecast

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/crm-analytics/internal/model"
	"github.com/sells-group/crm-analytics/internal/store"
)

// Config tunes the time-series forecaster.
type Config struct {
	// HorizonDays is the forecast length. Default 90.
	HorizonDays int
	// LookbackDays bounds the historical series. Default 180.
	LookbackDays int
	// MinRemoteHistory is the minimum number of observed days before
	// the remote model is consulted. Default 30.
	MinRemoteHistory int
}

func (c Config) withDefaults() Config {
	if c.HorizonDays <= 0 {
		c.HorizonDays = 90
	}
	if c.LookbackDays <= 0 {
		c.LookbackDays = 180
	}
	if c.MinRemoteHistory <= 0 {
		c.MinRemoteHistory = 30
	}
	return c
}

// Forecaster produces the time-series revenue forecast. It consults the
// remote model when one is configured and enough history exists, and
// falls back to the local trend model on any remote failure. The caller
// always gets a forecast; remote trouble is logged, never surfaced.
type Forecaster struct {
	store   store.Store
	remote  Model
	local   Model
	cfg     Config
	nowFunc func() time.Time
}

// NewForecaster creates a forecaster. remote may be nil when no
// external service is configured.
func NewForecaster(st store.Store, remote Model, cfg Config) *Forecaster {
	return &Forecaster{
		store:   st,
		remote:  remote,
		local:   NewLocalTrendModel(),
		cfg:     cfg.withDefaults(),
		nowFunc: time.Now,
	}
}

// ForecastRevenue builds the daily revenue series and forecasts over
// the configured horizon.
func (f *Forecaster) ForecastRevenue(ctx context.Context, tenantID string) (*model.ForecastResult, error) {
	since := f.nowFunc().AddDate(0, 0, -f.cfg.LookbackDays)
	history, err := f.store.DailyPaidRevenue(ctx, tenantID, since)
	if err != nil {
		return nil, err
	}

	var result *model.ForecastResult
	if f.remote != nil && len(history) >= f.cfg.MinRemoteHistory {
		result, err = f.remote.Forecast(ctx, tenantID, history, f.cfg.HorizonDays)
		if err != nil {
			zap.L().Warn("remote forecast unavailable, using fallback",
				zap.String("tenant_id", tenantID),
				zap.Error(err))
			result = nil
		}
	}
	if result == nil {
		result, err = f.local.Forecast(ctx, tenantID, history, f.cfg.HorizonDays)
		if err != nil {
			return nil, err
		}
	}

	result.HistoricalDates = make([]string, len(history))
	result.HistoricalRevenue = make([]float64, len(history))
	for i, p := range history {
		result.HistoricalDates[i] = p.Date.Format(dateLayout)
		result.HistoricalRevenue[i] = p.Revenue
	}
	return result, nil
}
