package forecast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/crm-analytics/internal/model"
	"github.com/sells-group/crm-analytics/internal/resilience"
)

// RemoteModel delegates forecasting to the external model service over
// HTTP. Calls are rate-limited, retried on transient failures, and
// circuit-broken; any error surfaces to the Forecaster, which falls
// back to the local model.
type RemoteModel struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
}

// RemoteConfig configures the remote forecast client.
type RemoteConfig struct {
	// BaseURL is the service root, e.g. http://localhost:8000.
	BaseURL string
	// Timeout bounds each HTTP call. Default 30s.
	Timeout time.Duration
	// RatePerSec and RateBurst throttle outbound calls. Defaults 2/4.
	RatePerSec float64
	RateBurst  int
}

// NewRemoteModel creates a client for the external forecast service.
func NewRemoteModel(cfg RemoteConfig) *RemoteModel {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 2
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 4
	}

	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("forecast-service")

	return &RemoteModel{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RateBurst),
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{}),
		retry:   retry,
	}
}

func (*RemoteModel) Name() string { return "advanced_ensemble" }

type remotePoint struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
}

type remoteRequest struct {
	TenantID                   string        `json:"tenant_id"`
	HistoricalData             []remotePoint `json:"historical_data"`
	HorizonDays                int           `json:"horizon_days"`
	HistoricalDays             int           `json:"historical_days"`
	IncludeConfidenceIntervals bool          `json:"include_confidence_intervals"`
}

type remoteIntervals struct {
	Lower80 []float64 `json:"lower_80"`
	Upper80 []float64 `json:"upper_80"`
	Lower95 []float64 `json:"lower_95"`
	Upper95 []float64 `json:"upper_95"`
}

type remoteResponse struct {
	Forecast            []float64        `json:"forecast"`
	Dates               []string         `json:"dates"`
	Confidence          float64          `json:"confidence"`
	ConfidenceIntervals *remoteIntervals `json:"confidence_intervals"`
	Summary             struct {
		Total90Day          float64 `json:"total_90day"`
		DailyAverage        float64 `json:"daily_average"`
		ProjectionVsCurrent float64 `json:"projection_vs_current"`
	} `json:"summary"`
	ModelsUsed []string `json:"models_used"`
}

// Forecast posts the historical series to the service and maps its
// response. A partial or malformed response is an error; the adapter
// never lets one through.
func (m *RemoteModel) Forecast(ctx context.Context, tenantID string, history []model.RevenuePoint, horizonDays int) (*model.ForecastResult, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "forecast: rate limit wait")
	}

	req := remoteRequest{
		TenantID:                   tenantID,
		HistoricalData:             make([]remotePoint, len(history)),
		HorizonDays:                horizonDays,
		HistoricalDays:             len(history),
		IncludeConfidenceIntervals: true,
	}
	for i, p := range history {
		req.HistoricalData[i] = remotePoint{Date: p.Date.Format(dateLayout), Revenue: p.Revenue}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "forecast: marshal request")
	}

	resp, err := resilience.GuardVal(ctx, m.breaker, func(ctx context.Context) (*remoteResponse, error) {
		return resilience.DoVal(ctx, m.retry, func(ctx context.Context) (*remoteResponse, error) {
			return m.post(ctx, body)
		})
	})
	if err != nil {
		return nil, err
	}

	if err := validateResponse(resp, horizonDays); err != nil {
		return nil, err
	}

	result := &model.ForecastResult{
		Forecast:   resp.Forecast,
		Dates:      resp.Dates,
		Confidence: resp.Confidence,
		Summary: model.ForecastSummary{
			TotalHorizon:        resp.Summary.Total90Day,
			DailyAverage:        resp.Summary.DailyAverage,
			ProjectionVsCurrent: resp.Summary.ProjectionVsCurrent,
		},
		ModelsUsed: resp.ModelsUsed,
	}
	if len(result.ModelsUsed) == 0 {
		result.ModelsUsed = []string{m.Name()}
	}
	if resp.ConfidenceIntervals != nil {
		result.ConfidenceIntervals = model.ConfidenceIntervals{
			Lower80: resp.ConfidenceIntervals.Lower80,
			Upper80: resp.ConfidenceIntervals.Upper80,
			Lower95: resp.ConfidenceIntervals.Lower95,
			Upper95: resp.ConfidenceIntervals.Upper95,
		}
	} else {
		result.ConfidenceIntervals = intervals(resp.Forecast, 0)
	}
	return result, nil
}

func (m *RemoteModel) post(ctx context.Context, body []byte) (*remoteResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		m.baseURL+"/api/forecast/revenue", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "forecast: build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "forecast: post"), 0)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, httpResp.Body)
		err := eris.New(fmt.Sprintf("forecast: service returned %d", httpResp.StatusCode))
		if resilience.IsTransientHTTPStatus(httpResp.StatusCode) {
			return nil, resilience.NewTransientError(err, httpResp.StatusCode)
		}
		return nil, err
	}

	var resp remoteResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, eris.Wrap(err, "forecast: decode response")
	}
	return &resp, nil
}

func validateResponse(resp *remoteResponse, horizonDays int) error {
	if len(resp.Forecast) != horizonDays || len(resp.Dates) != horizonDays {
		return eris.New(fmt.Sprintf("forecast: response length %d/%d, want %d",
			len(resp.Forecast), len(resp.Dates), horizonDays))
	}
	if ci := resp.ConfidenceIntervals; ci != nil {
		if len(ci.Lower80) != horizonDays || len(ci.Upper80) != horizonDays ||
			len(ci.Lower95) != horizonDays || len(ci.Upper95) != horizonDays {
			return eris.New("forecast: interval length mismatch")
		}
	}
	for _, f := range resp.Forecast {
		if f < 0 {
			return eris.New("forecast: negative value in response")
		}
	}
	return nil
}
