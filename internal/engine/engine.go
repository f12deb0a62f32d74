// Package engine wires the store, scorers, forecasters, and scenario
// planners into the single facade the CLI and HTTP API call. Every
// operation takes a context and a mandatory tenant id.
package engine

import (
	"context"

	"github.com/sells-group/crm-analytics/internal/config"
	"github.com/sells-group/crm-analytics/internal/forecast"
	"github.com/sells-group/crm-analytics/internal/model"
	"github.com/sells-group/crm-analytics/internal/pipeline"
	"github.com/sells-group/crm-analytics/internal/scenario"
	"github.com/sells-group/crm-analytics/internal/scoring"
	"github.com/sells-group/crm-analytics/internal/signal"
	"github.com/sells-group/crm-analytics/internal/store"
)

// Engine is the analytics facade over a tenant-scoped CRM store.
type Engine struct {
	store store.Store

	closure *scoring.ClosureScorer
	churn   *scoring.ChurnScorer
	upsell  *scoring.UpsellScorer

	health     *pipeline.HealthAggregator
	timeSeries *forecast.Forecaster
	dealBased  *forecast.DealForecaster
	combined   *forecast.CombinedForecaster

	whatIf  *scenario.WhatIfPlanner
	actions *scenario.ActionPlanner
}

// New assembles the engine from configuration. The store is owned by
// the caller; Close it after the engine is done.
func New(st store.Store, cfg *config.Config) *Engine {
	src := signal.NoteMatcher{}

	closure := scoring.NewClosureScorer(st, src)
	churn := scoring.NewChurnScorer(st, scoring.NoPaymentData{}, cfg.Scoring.HighRiskMinScore)
	upsell := scoring.NewUpsellScorer(st, src, scoring.UpsellConfig{
		MinScore:      cfg.Scoring.UpsellMinScore,
		BaseValue:     cfg.Scoring.BaseUpsellValue,
		TotalFeatures: cfg.Scoring.TotalFeatureCount,
	})

	var remote forecast.Model
	if cfg.Forecast.ServiceURL != "" && cfg.Forecast.UseAdvanced {
		remote = forecast.NewRemoteModel(forecast.RemoteConfig{
			BaseURL:    cfg.Forecast.ServiceURL,
			Timeout:    cfg.Forecast.Timeout(),
			RatePerSec: cfg.Forecast.RatePerSec,
			RateBurst:  cfg.Forecast.RateBurst,
		})
	}
	timeSeries := forecast.NewForecaster(st, remote, forecast.Config{
		HorizonDays:      cfg.Forecast.HorizonDays,
		LookbackDays:     cfg.Forecast.LookbackDays,
		MinRemoteHistory: cfg.Forecast.MinRemoteHistoryDays,
	})
	dealBased := forecast.NewDealForecaster(st, closure, forecast.DealConfig{
		Haircut: cfg.Weights.ConservativeHaircut,
		Boost:   cfg.Weights.UpsideBoost,
	})
	combined := forecast.NewCombinedForecaster(timeSeries, dealBased, forecast.BlendConfig{
		TimeSeriesWeight: cfg.Weights.TimeSeriesWeight,
		DealBasedWeight:  cfg.Weights.DealBasedWeight,
	})

	return &Engine{
		store:      st,
		closure:    closure,
		churn:      churn,
		upsell:     upsell,
		health:     pipeline.NewHealthAggregator(st, closure, pipeline.HealthConfig{
			MaxConcurrent:   cfg.Health.MaxConcurrent,
			StuckAfterDays:  cfg.Health.StuckAfterDays,
			ReadyWithinDays: cfg.Health.ReadyWithinDays,
			TopStuck:        cfg.Health.TopStuck,
		}),
		timeSeries: timeSeries,
		dealBased:  dealBased,
		combined:   combined,
		whatIf:     scenario.NewWhatIfPlanner(timeSeries),
		actions: scenario.NewActionPlanner(st, closure, churn, upsell, dealBased, scenario.PlannerConfig{
			LostCustomerMonthlyRev: cfg.Scoring.LostCustomerMonthlyRev,
			DefaultClosureUplift:   cfg.Weights.DefaultClosureUplift,
		}),
	}
}

// CalculateChurnRisk scores one contact for churn risk.
func (e *Engine) CalculateChurnRisk(ctx context.Context, tenantID, contactID string) (*model.ChurnRiskResult, error) {
	return e.churn.Score(ctx, tenantID, contactID)
}

// CalculateBatchChurnRisk scores many contacts, tolerating per-item
// failures.
func (e *Engine) CalculateBatchChurnRisk(ctx context.Context, tenantID string, contactIDs []string) (map[string]*model.ChurnRiskResult, error) {
	return e.churn.ScoreBatch(ctx, tenantID, contactIDs)
}

// CalculateDealClosureProbability scores one deal.
func (e *Engine) CalculateDealClosureProbability(ctx context.Context, tenantID, dealID string) (*model.DealClosureResult, error) {
	return e.closure.Score(ctx, tenantID, dealID)
}

// CalculateBatchDealProbabilities scores many deals, tolerating
// per-item failures.
func (e *Engine) CalculateBatchDealProbabilities(ctx context.Context, tenantID string, dealIDs []string) (map[string]*model.DealClosureResult, error) {
	return e.closure.ScoreBatch(ctx, tenantID, dealIDs)
}

// CalculateUpsellOpportunity scores one contact for upsell potential.
func (e *Engine) CalculateUpsellOpportunity(ctx context.Context, tenantID, contactID string) (*model.UpsellOpportunityResult, error) {
	return e.upsell.Score(ctx, tenantID, contactID)
}

// CalculateBatchUpsellOpportunities scores many contacts, tolerating
// per-item failures.
func (e *Engine) CalculateBatchUpsellOpportunities(ctx context.Context, tenantID string, contactIDs []string) (map[string]*model.UpsellOpportunityResult, error) {
	return e.upsell.ScoreBatch(ctx, tenantID, contactIDs)
}

// GetHighRiskCustomers sweeps the tenant for contacts at churn risk.
func (e *Engine) GetHighRiskCustomers(ctx context.Context, tenantID string) ([]model.HighRiskCustomer, error) {
	return e.churn.HighRiskCustomers(ctx, tenantID)
}

// GetUpsellOpportunities sweeps the tenant for upsell candidates.
func (e *Engine) GetUpsellOpportunities(ctx context.Context, tenantID string) ([]model.UpsellCandidate, error) {
	return e.upsell.Opportunities(ctx, tenantID)
}

// CalculatePipelineHealth aggregates the tenant's pipeline posture.
func (e *Engine) CalculatePipelineHealth(ctx context.Context, tenantID string) (*model.PipelineHealthMetrics, error) {
	return e.health.Health(ctx, tenantID)
}

// ForecastRevenue produces the time-series daily revenue forecast.
func (e *Engine) ForecastRevenue(ctx context.Context, tenantID string) (*model.ForecastResult, error) {
	return e.timeSeries.ForecastRevenue(ctx, tenantID)
}

// GenerateRevenueForecast produces the deal-based expected-value
// forecast over the open pipeline.
func (e *Engine) GenerateRevenueForecast(ctx context.Context, tenantID string) (*model.DealForecast, error) {
	return e.dealBased.Forecast(ctx, tenantID)
}

// GenerateCombinedForecast blends the time-series and deal-based
// forecasts.
func (e *Engine) GenerateCombinedForecast(ctx context.Context, tenantID string) (*model.CombinedForecast, error) {
	return e.combined.Forecast(ctx, tenantID)
}

// RunScenario simulates a discrete action scenario.
func (e *Engine) RunScenario(ctx context.Context, tenantID string, input scenario.ActionInput) (*model.ScenarioResult, error) {
	return e.actions.Run(ctx, tenantID, input)
}

// RunWhatIfAnalysis applies parametric scenarios to the baseline
// forecast, tolerating per-item failures.
func (e *Engine) RunWhatIfAnalysis(ctx context.Context, tenantID string, scenarios []scenario.WhatIfScenario) ([]model.WhatIfResult, error) {
	return e.whatIf.RunAnalysis(ctx, tenantID, scenarios)
}

// CompareScenarios ranks what-if results by revenue impact.
func (e *Engine) CompareScenarios(results []model.WhatIfResult) *model.ScenarioComparison {
	return scenario.CompareScenarios(results)
}
