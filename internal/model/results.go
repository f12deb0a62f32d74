package model

import "time"

// Computed, ephemeral value objects returned from scoring and forecast
// calls. None of these are persisted; they are the contract surface
// between the engine and its callers.

// RiskLevel is a four-tier churn risk band.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// OpportunityLevel is a four-tier upsell opportunity band.
type OpportunityLevel string

const (
	OpportunityLow      OpportunityLevel = "low"
	OpportunityMedium   OpportunityLevel = "medium"
	OpportunityHigh     OpportunityLevel = "high"
	OpportunityVeryHigh OpportunityLevel = "very-high"
)

// SignalAdjustments is the per-signal probability breakdown for a deal
// closure score. Values are signed percentage points.
type SignalAdjustments struct {
	CEOEngagement        float64 `json:"ceo_engagement"`
	MultipleStakeholders float64 `json:"multiple_stakeholders"`
	CompetitorMention    float64 `json:"competitor_mention"`
	BudgetConfirmed      float64 `json:"budget_confirmed"`
	RecentActivity       float64 `json:"recent_activity"`
	DealAge              float64 `json:"deal_age"`
	DealValue            float64 `json:"deal_value"`
}

// DealClosureResult is the outcome of scoring a single deal.
type DealClosureResult struct {
	DealID            string            `json:"deal_id"`
	Probability       float64           `json:"probability"`
	Confidence        float64           `json:"confidence"`
	BaseProbability   float64           `json:"base_probability"`
	SignalAdjustments SignalAdjustments `json:"signal_adjustments"`
	Recommendations   []string          `json:"recommendations"`
	RiskFactors       []string          `json:"risk_factors"`
}

// RiskFactors holds the bounded numeric signals behind a churn score.
type RiskFactors struct {
	UsageDecline  float64 `json:"usage_decline"`  // -100..100, negative = decline
	EngagementDrop float64 `json:"engagement_drop"` // -100..100
	SupportTickets int     `json:"support_tickets"`
	PaymentDelays  int     `json:"payment_delays"` // days; stubbed until finance wiring
	DealActivity   float64 `json:"deal_activity"`  // days since last deal update
}

// ChurnRiskResult is the outcome of scoring a contact for churn risk.
type ChurnRiskResult struct {
	ContactID          string      `json:"contact_id"`
	RiskScore          float64     `json:"risk_score"`
	RiskLevel          RiskLevel   `json:"risk_level"`
	Factors            RiskFactors `json:"factors"`
	Reasons            []string    `json:"reasons"`
	Recommendations    []string    `json:"recommendations"`
	PredictedChurnDate *time.Time  `json:"predicted_churn_date,omitempty"`
}

// UpsellSignals holds the opportunity-maximizing signal set.
type UpsellSignals struct {
	FeatureUsage   float64 `json:"feature_usage"` // % of features used
	UsageGrowth    float64 `json:"usage_growth"`  // % growth in usage
	TeamSize       int     `json:"team_size"`
	PaymentHistory float64 `json:"payment_history"` // consistency score 0-100
	Engagement     float64 `json:"engagement"`      // 0-100
}

// UpsellOpportunityResult is the outcome of scoring a contact for
// upsell potential.
type UpsellOpportunityResult struct {
	ContactID               string           `json:"contact_id"`
	OpportunityScore        float64          `json:"opportunity_score"`
	OpportunityLevel        OpportunityLevel `json:"opportunity_level"`
	Signals                 UpsellSignals    `json:"signals"`
	RecommendedFeatures     []string         `json:"recommended_features"`
	EstimatedUpsellValue    float64          `json:"estimated_upsell_value"`
	EstimatedRetentionBoost float64          `json:"estimated_retention_boost"`
	Recommendations         []string         `json:"recommendations"`
}

// HighRiskCustomer is one row of the tenant-wide churn sweep.
type HighRiskCustomer struct {
	ContactID string    `json:"contact_id"`
	RiskScore float64   `json:"risk_score"`
	RiskLevel RiskLevel `json:"risk_level"`
}

// UpsellCandidate is one row of the tenant-wide upsell sweep.
type UpsellCandidate struct {
	ContactID            string           `json:"contact_id"`
	OpportunityScore     float64          `json:"opportunity_score"`
	OpportunityLevel     OpportunityLevel `json:"opportunity_level"`
	EstimatedUpsellValue float64          `json:"estimated_upsell_value"`
}

// StuckDeal is an open deal with no recent contact interaction.
type StuckDeal struct {
	DealID       string  `json:"deal_id"`
	Name         string  `json:"name"`
	Value        float64 `json:"value"`
	DaysStale    float64 `json:"days_stale"`
	CurrentStage string  `json:"current_stage"`
}

// ReadyDeal is an open deal judged ready to advance a stage.
type ReadyDeal struct {
	DealID       string  `json:"deal_id"`
	Name         string  `json:"name"`
	Value        float64 `json:"value"`
	Probability  float64 `json:"probability"`
	CurrentStage string  `json:"current_stage"`
	NextStage    string  `json:"next_stage"`
}

// PipelineHealthMetrics is the tenant-wide pipeline aggregate.
type PipelineHealthMetrics struct {
	OpenDealCount      int         `json:"open_deal_count"`
	ProjectedCloseRate float64     `json:"projected_close_rate"` // mean probability, this month
	LastMonthCloseRate float64     `json:"last_month_close_rate"`
	StuckDeals         []StuckDeal `json:"stuck_deals"`
	ReadyToMove        []ReadyDeal `json:"ready_to_move"`
	RiskLevel          RiskLevel   `json:"risk_level"`
	Recommendations    []string    `json:"recommendations"`
}

// ConfidenceIntervals holds fixed-z forecast bands; lower bounds are
// floored at zero.
type ConfidenceIntervals struct {
	Lower80 []float64 `json:"lower_80"`
	Upper80 []float64 `json:"upper_80"`
	Lower95 []float64 `json:"lower_95"`
	Upper95 []float64 `json:"upper_95"`
}

// ForecastSummary aggregates a forecast curve.
type ForecastSummary struct {
	TotalHorizon        float64 `json:"total_horizon"`
	DailyAverage        float64 `json:"daily_average"`
	ProjectionVsCurrent float64 `json:"projection_vs_current"` // % vs trailing 7-day average
}

// ForecastResult is a daily revenue forecast with confidence bands.
type ForecastResult struct {
	Forecast            []float64           `json:"forecast"`
	Dates               []string            `json:"dates"` // YYYY-MM-DD
	Confidence          float64             `json:"confidence"` // 0-1
	ConfidenceIntervals ConfidenceIntervals `json:"confidence_intervals"`
	Summary             ForecastSummary     `json:"summary"`
	ModelsUsed          []string            `json:"models_used"`
	HistoricalDates     []string            `json:"historical_dates"`
	HistoricalRevenue   []float64           `json:"historical_revenue"`
}

// DealForecastScenario is one expected-value scenario tier.
type DealForecastScenario struct {
	Name          string  `json:"name"` // conservative, base, upside
	ExpectedValue float64 `json:"expected_value"`
}

// DealForecast is the pipeline-composition revenue forecast.
type DealForecast struct {
	TotalExpectedValue float64                `json:"total_expected_value"`
	Scenarios          []DealForecastScenario `json:"scenarios"`
	Confidence         float64                `json:"confidence"` // mean probability, 0-100
	IntervalLower80    float64                `json:"interval_lower_80"`
	IntervalUpper80    float64                `json:"interval_upper_80"`
	IntervalLower95    float64                `json:"interval_lower_95"`
	IntervalUpper95    float64                `json:"interval_upper_95"`
	DealCount          int                    `json:"deal_count"`
}

// CombinedForecast blends the time-series and deal-based forecasts.
type CombinedForecast struct {
	Conservative float64 `json:"conservative"`
	Base         float64 `json:"base"`
	Upside       float64 `json:"upside"`
	Confidence   float64 `json:"confidence"` // 0-100
	TimeSeriesWeight float64 `json:"time_series_weight"`
	DealBasedWeight  float64 `json:"deal_based_weight"`
}

// ScenarioState is a snapshot of tenant revenue posture.
type ScenarioState struct {
	Revenue       float64 `json:"revenue"`
	CustomerCount int     `json:"customer_count"`
	DealCount     int     `json:"deal_count"`
}

// ProjectedState is the post-scenario posture plus deltas.
type ProjectedState struct {
	ScenarioState
	RevenueChange        float64 `json:"revenue_change"`
	RevenueChangePercent float64 `json:"revenue_change_percent"`
}

// ActionPriority ranks a scenario action item.
type ActionPriority string

const (
	PriorityHigh   ActionPriority = "high"
	PriorityMedium ActionPriority = "medium"
	PriorityLow    ActionPriority = "low"
)

// ScenarioAction is one ranked action item produced by a scenario run.
type ScenarioAction struct {
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Impact      float64        `json:"impact"`
	Priority    ActionPriority `json:"priority"`
}

// ScenarioResult is the outcome of a discrete action scenario.
type ScenarioResult struct {
	ScenarioType    string           `json:"scenario_type"`
	CurrentState    ScenarioState    `json:"current_state"`
	ProjectedState  ProjectedState   `json:"projected_state"`
	Actions         []ScenarioAction `json:"actions"`
	Recommendations []string         `json:"recommendations"`
	Confidence      float64          `json:"confidence"` // 0-100
}

// WhatIfForecast summarizes the transformed curve of a parametric
// what-if scenario.
type WhatIfForecast struct {
	TotalHorizon        float64 `json:"total_horizon"`
	DailyAverage        float64 `json:"daily_average"`
	ProjectionVsCurrent float64 `json:"projection_vs_current"`
	Confidence          float64 `json:"confidence"` // 0-1
}

// WhatIfImpact is the delta of a what-if scenario against baseline.
type WhatIfImpact struct {
	RevenueChange   float64  `json:"revenue_change"` // percent
	AbsoluteChange  float64  `json:"absolute_change"`
	AffectedMetrics []string `json:"affected_metrics"`
}

// WhatIfResult is the outcome of one parametric what-if scenario.
type WhatIfResult struct {
	ScenarioID   string         `json:"scenario_id"`
	ScenarioName string         `json:"scenario_name"`
	ScenarioType string         `json:"scenario_type"`
	Forecast     WhatIfForecast `json:"forecast"`
	Impact       WhatIfImpact   `json:"impact"`
	Assumptions  []string       `json:"assumptions"`
}

// ScenarioComparison ranks multiple what-if results by revenue impact.
type ScenarioComparison struct {
	Best            *WhatIfResult `json:"best,omitempty"`
	Worst           *WhatIfResult `json:"worst,omitempty"`
	AverageImpact   float64       `json:"average_impact"`
	Recommendations []string      `json:"recommendations"`
}
