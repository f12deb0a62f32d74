package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crm-analytics/internal/config"
	"github.com/sells-group/crm-analytics/internal/engine"
	"github.com/sells-group/crm-analytics/internal/model"
	"github.com/sells-group/crm-analytics/internal/store"
)

// apiStore is an in-memory Store backing the router tests.
type apiStore struct {
	histories map[string]*store.ContactHistory
	dealCtxs  map[string]*store.DealContext
	openDeals []model.Deal
	activeIDs []string
	revenue   []model.RevenuePoint
}

func (s *apiStore) GetContactHistory(_ context.Context, _, contactID string, _ int) (*store.ContactHistory, error) {
	h, ok := s.histories[contactID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return h, nil
}

func (s *apiStore) GetDealContext(_ context.Context, _, dealID string) (*store.DealContext, error) {
	dc, ok := s.dealCtxs[dealID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return dc, nil
}

func (s *apiStore) ListOpenDeals(context.Context, string) ([]model.Deal, error) {
	return s.openDeals, nil
}

func (s *apiStore) ListActiveContactIDs(context.Context, string) ([]string, error) {
	return s.activeIDs, nil
}

func (s *apiStore) ListDealsClosedBetween(context.Context, string, time.Time, time.Time) ([]model.Deal, error) {
	return nil, nil
}

func (s *apiStore) ListEmailsBetween(context.Context, string, string, time.Time, time.Time) ([]model.EmailMessage, error) {
	return nil, nil
}

func (s *apiStore) LatestInteractionTimes(context.Context, string, []string) (map[string]time.Time, error) {
	return map[string]time.Time{}, nil
}

func (s *apiStore) DailyPaidRevenue(context.Context, string, time.Time) ([]model.RevenuePoint, error) {
	return s.revenue, nil
}

func (s *apiStore) Migrate(context.Context) error { return nil }
func (s *apiStore) Close() error                  { return nil }

func testRouter() http.Handler {
	now := time.Now()
	proposal := model.Deal{
		ID: "d1", ContactID: "c1", Name: "Proposal Deal",
		Value: 100_000, Stage: model.StageProposal, Status: model.DealStatusOpen,
		CreatedAt: now.AddDate(0, 0, -5), UpdatedAt: now.AddDate(0, 0, -5),
	}
	revenue := make([]model.RevenuePoint, 40)
	for i := range revenue {
		revenue[i] = model.RevenuePoint{
			Date:    now.AddDate(0, 0, i-40),
			Revenue: 100,
		}
	}

	st := &apiStore{
		histories: map[string]*store.ContactHistory{
			"c1": {
				Contact: model.Contact{ID: "c1", Stage: model.ContactStageActive},
				Deals:   []model.Deal{proposal},
			},
		},
		dealCtxs: map[string]*store.DealContext{
			"d1": {Deal: proposal},
		},
		openDeals: []model.Deal{proposal},
		activeIDs: []string{"c1"},
		revenue:   revenue,
	}

	eng := engine.New(st, &config.Config{
		Scoring: config.ScoringConfig{
			HighRiskMinScore: 60,
			UpsellMinScore:   50,
			BaseUpsellValue:  5000,
		},
		Weights: config.WeightsConfig{
			TimeSeriesWeight: 0.4,
			DealBasedWeight:  0.6,
		},
	})
	return apiRouter(eng)
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestAPIRouter_Health(t *testing.T) {
	rr := doRequest(t, testRouter(), http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestAPIRouter_ChurnRisk(t *testing.T) {
	rr := doRequest(t, testRouter(), http.MethodGet, "/api/tenants/t1/churn/c1", nil)

	require.Equal(t, http.StatusOK, rr.Code)

	var result model.ChurnRiskResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Equal(t, "c1", result.ContactID)
	assert.NotEmpty(t, result.RiskLevel)
}

func TestAPIRouter_ChurnRisk_NotFound(t *testing.T) {
	rr := doRequest(t, testRouter(), http.MethodGet, "/api/tenants/t1/churn/missing", nil)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "not found")
}

func TestAPIRouter_ClosureBatch(t *testing.T) {
	body := []byte(`{"deal_ids": ["d1", "missing"]}`)
	rr := doRequest(t, testRouter(), http.MethodPost, "/api/tenants/t1/closure/batch", body)

	require.Equal(t, http.StatusOK, rr.Code)

	var results map[string]*model.DealClosureResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &results))
	require.Contains(t, results, "d1")
	assert.NotContains(t, results, "missing")
}

func TestAPIRouter_BatchInvalidJSON(t *testing.T) {
	rr := doRequest(t, testRouter(), http.MethodPost, "/api/tenants/t1/churn/batch", []byte("not json"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid request body")
}

func TestAPIRouter_DealForecast(t *testing.T) {
	rr := doRequest(t, testRouter(), http.MethodGet, "/api/tenants/t1/forecast/deals", nil)

	require.Equal(t, http.StatusOK, rr.Code)

	var forecast model.DealForecast
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &forecast))
	assert.Equal(t, 1, forecast.DealCount)
	assert.Greater(t, forecast.TotalExpectedValue, 0.0)
}

func TestAPIRouter_PipelineHealth(t *testing.T) {
	rr := doRequest(t, testRouter(), http.MethodGet, "/api/tenants/t1/pipeline/health", nil)

	require.Equal(t, http.StatusOK, rr.Code)

	var health model.PipelineHealthMetrics
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	assert.Equal(t, 1, health.OpenDealCount)
}

func TestAPIRouter_WhatIfCompare(t *testing.T) {
	body := []byte(`{
		"compare": true,
		"scenarios": [
			{"id": "s1", "name": "hike", "type": "pricing", "parameters": {"price_change_percent": 10}},
			{"id": "s2", "name": "spend", "type": "marketing", "parameters": {"marketing_spend": 30000}}
		]
	}`)
	rr := doRequest(t, testRouter(), http.MethodPost, "/api/tenants/t1/whatif", body)

	require.Equal(t, http.StatusOK, rr.Code)

	var cmp model.ScenarioComparison
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cmp))
	require.NotNil(t, cmp.Best)
	assert.Equal(t, "spend", cmp.Best.ScenarioName)
	assert.NotEmpty(t, cmp.Recommendations)
}
