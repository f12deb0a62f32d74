package scenario

import (
	"context"
	"fmt"
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/crm-analytics/internal/forecast"
	"github.com/sells-group/crm-analytics/internal/model"
	"github.com/sells-group/crm-analytics/internal/scoring"
	"github.com/sells-group/crm-analytics/internal/signal"
	"github.com/sells-group/crm-analytics/internal/store"
)

// ActionType selects the discrete action scenario.
type ActionType string

const (
	ActionCloseDeals         ActionType = "close-deals"
	ActionLoseCustomers      ActionType = "lose-customers"
	ActionUpsellCustomers    ActionType = "upsell-customers"
	ActionImproveClosureRate ActionType = "improve-closure-rate"
)

// ActionInput describes the hypothetical action to simulate.
type ActionInput struct {
	Type ActionType `json:"type"`
	// DealIDs names the deals for close-deals.
	DealIDs []string `json:"deal_ids,omitempty"`
	// ContactIDs names the customers for lose-customers and
	// upsell-customers.
	ContactIDs []string `json:"contact_ids,omitempty"`
	// ClosureRateImprovement is the probability uplift in percentage
	// points for improve-closure-rate. Zero uses the configured default.
	ClosureRateImprovement float64 `json:"closure_rate_improvement,omitempty"`
}

// PlannerConfig holds the action planner's calibration values.
type PlannerConfig struct {
	// LostCustomerMonthlyRev is the recurring-revenue placeholder per
	// lost customer, pending finance integration. Default 5000.
	LostCustomerMonthlyRev float64
	// DefaultClosureUplift is the improve-closure-rate default in
	// percentage points. Default 10.
	DefaultClosureUplift float64
	// UpsellMonths converts monthly upsell value to scenario revenue.
	// Default 3.
	UpsellMonths int
}

func (c PlannerConfig) withDefaults() PlannerConfig {
	if c.LostCustomerMonthlyRev <= 0 {
		c.LostCustomerMonthlyRev = 5000
	}
	if c.DefaultClosureUplift <= 0 {
		c.DefaultClosureUplift = 10
	}
	if c.UpsellMonths <= 0 {
		c.UpsellMonths = 3
	}
	return c
}

// ActionPlanner simulates discrete action scenarios over the tenant's
// current pipeline state.
type ActionPlanner struct {
	store     store.Store
	closure   *scoring.ClosureScorer
	churn     *scoring.ChurnScorer
	upsell    *scoring.UpsellScorer
	dealBased *forecast.DealForecaster
	cfg       PlannerConfig
}

// NewActionPlanner wires the planner to the scorers it replays.
func NewActionPlanner(st store.Store, closure *scoring.ClosureScorer, churn *scoring.ChurnScorer, upsell *scoring.UpsellScorer, dealBased *forecast.DealForecaster, cfg PlannerConfig) *ActionPlanner {
	return &ActionPlanner{
		store:     st,
		closure:   closure,
		churn:     churn,
		upsell:    upsell,
		dealBased: dealBased,
		cfg:       cfg.withDefaults(),
	}
}

// Run simulates the scenario and reports the projected revenue delta,
// ranked action items, and narrative recommendations.
func (p *ActionPlanner) Run(ctx context.Context, tenantID string, input ActionInput) (*model.ScenarioResult, error) {
	current, err := p.currentState(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	var projected model.ProjectedState
	var actions []model.ScenarioAction
	var recs []string

	switch input.Type {
	case ActionCloseDeals:
		projected, err = p.closeDeals(ctx, tenantID, input.DealIDs, current)
		if err != nil {
			return nil, err
		}
		actions = p.closeDealActions(ctx, tenantID, input.DealIDs)
		recs = closeDealRecommendations(projected)

	case ActionLoseCustomers:
		projected, err = p.loseCustomers(ctx, tenantID, input.ContactIDs, current)
		if err != nil {
			return nil, err
		}
		actions = p.retentionActions(ctx, tenantID, input.ContactIDs)
		recs = retentionRecommendations(projected)

	case ActionUpsellCustomers:
		projected, err = p.upsellCustomers(ctx, tenantID, input.ContactIDs, current)
		if err != nil {
			return nil, err
		}
		actions = p.upsellActions(ctx, tenantID, input.ContactIDs)
		recs = upsellScenarioRecommendations(projected)

	case ActionImproveClosureRate:
		uplift := input.ClosureRateImprovement
		if uplift == 0 {
			uplift = p.cfg.DefaultClosureUplift
		}
		projected, err = p.improveClosureRate(ctx, tenantID, uplift, current)
		if err != nil {
			return nil, err
		}
		actions = improvementActions()
		recs = improvementRecommendations(projected)

	default:
		return nil, eris.New(fmt.Sprintf("scenario: unknown action type %q", input.Type))
	}

	return &model.ScenarioResult{
		ScenarioType:    string(input.Type),
		CurrentState:    current,
		ProjectedState:  projected,
		Actions:         actions,
		Recommendations: recs,
		Confidence:      scenarioConfidence(input.Type, projected),
	}, nil
}

// currentState snapshots the tenant: deal-based expected revenue,
// active customer count, open deal count.
func (p *ActionPlanner) currentState(ctx context.Context, tenantID string) (model.ScenarioState, error) {
	df, err := p.dealBased.Forecast(ctx, tenantID)
	if err != nil {
		return model.ScenarioState{}, err
	}
	contacts, err := p.store.ListActiveContactIDs(ctx, tenantID)
	if err != nil {
		return model.ScenarioState{}, err
	}
	deals, err := p.store.ListOpenDeals(ctx, tenantID)
	if err != nil {
		return model.ScenarioState{}, err
	}
	return model.ScenarioState{
		Revenue:       df.TotalExpectedValue,
		CustomerCount: len(contacts),
		DealCount:     len(deals),
	}, nil
}

func unchanged(current model.ScenarioState) model.ProjectedState {
	return model.ProjectedState{ScenarioState: current}
}

func project(current model.ScenarioState, revenue float64, customers, deals int, change float64) model.ProjectedState {
	pctChange := 0.0
	if current.Revenue > 0 {
		pctChange = change / current.Revenue * 100
	}
	return model.ProjectedState{
		ScenarioState: model.ScenarioState{
			Revenue:       revenue,
			CustomerCount: customers,
			DealCount:     deals,
		},
		RevenueChange:        change,
		RevenueChangePercent: signal.Round1(pctChange),
	}
}

// closeDeals adds each named deal's unrealized value: full value minus
// the expected value already counted in the forecast.
func (p *ActionPlanner) closeDeals(ctx context.Context, tenantID string, dealIDs []string, current model.ScenarioState) (model.ProjectedState, error) {
	if len(dealIDs) == 0 {
		return unchanged(current), nil
	}

	var additional float64
	for _, id := range dealIDs {
		dc, err := p.store.GetDealContext(ctx, tenantID, id)
		if err != nil {
			zap.L().Warn("close-deals scenario skip",
				zap.String("tenant_id", tenantID),
				zap.String("deal_id", id),
				zap.Error(err))
			continue
		}
		r, err := p.closure.Score(ctx, tenantID, id)
		if err != nil {
			zap.L().Warn("close-deals scenario skip",
				zap.String("tenant_id", tenantID),
				zap.String("deal_id", id),
				zap.Error(err))
			continue
		}
		additional += dc.Deal.Value - dc.Deal.Value*r.Probability/100
	}

	return project(current, current.Revenue+additional,
		current.CustomerCount, current.DealCount-len(dealIDs), additional), nil
}

// loseCustomers removes each named customer's open expected value plus
// the recurring-revenue placeholder.
func (p *ActionPlanner) loseCustomers(ctx context.Context, tenantID string, contactIDs []string, current model.ScenarioState) (model.ProjectedState, error) {
	if len(contactIDs) == 0 {
		return unchanged(current), nil
	}

	openDeals, err := p.store.ListOpenDeals(ctx, tenantID)
	if err != nil {
		return model.ProjectedState{}, err
	}
	byContact := make(map[string][]model.Deal)
	for _, d := range openDeals {
		if d.ContactID != "" {
			byContact[d.ContactID] = append(byContact[d.ContactID], d)
		}
	}

	var lost float64
	for _, id := range contactIDs {
		for _, d := range byContact[id] {
			r, err := p.closure.Score(ctx, tenantID, d.ID)
			if err != nil {
				zap.L().Warn("lose-customers scenario skip",
					zap.String("tenant_id", tenantID),
					zap.String("deal_id", d.ID),
					zap.Error(err))
				continue
			}
			lost += d.Value * r.Probability / 100
		}
		lost += p.cfg.LostCustomerMonthlyRev
	}

	return project(current, math.Max(0, current.Revenue-lost),
		current.CustomerCount-len(contactIDs), current.DealCount, -lost), nil
}

// upsellCustomers adds each named customer's estimated upsell value
// over the configured number of months.
func (p *ActionPlanner) upsellCustomers(ctx context.Context, tenantID string, contactIDs []string, current model.ScenarioState) (model.ProjectedState, error) {
	if len(contactIDs) == 0 {
		return unchanged(current), nil
	}

	var additional float64
	for _, id := range contactIDs {
		r, err := p.upsell.Score(ctx, tenantID, id)
		if err != nil {
			zap.L().Warn("upsell scenario skip",
				zap.String("tenant_id", tenantID),
				zap.String("contact_id", id),
				zap.Error(err))
			continue
		}
		additional += r.EstimatedUpsellValue * float64(p.cfg.UpsellMonths)
	}

	return project(current, current.Revenue+additional,
		current.CustomerCount, current.DealCount, additional), nil
}

// improveClosureRate lifts every open deal's probability by the given
// percentage points (capped at 100) and sums the expected-value gain.
func (p *ActionPlanner) improveClosureRate(ctx context.Context, tenantID string, uplift float64, current model.ScenarioState) (model.ProjectedState, error) {
	deals, err := p.store.ListOpenDeals(ctx, tenantID)
	if err != nil {
		return model.ProjectedState{}, err
	}

	var additional float64
	for _, d := range deals {
		r, err := p.closure.Score(ctx, tenantID, d.ID)
		if err != nil {
			zap.L().Warn("improve-closure scenario skip",
				zap.String("tenant_id", tenantID),
				zap.String("deal_id", d.ID),
				zap.Error(err))
			continue
		}
		improved := math.Min(100, r.Probability+uplift)
		additional += d.Value*improved/100 - d.Value*r.Probability/100
	}

	return project(current, current.Revenue+additional,
		current.CustomerCount, current.DealCount, additional), nil
}

func (p *ActionPlanner) closeDealActions(ctx context.Context, tenantID string, dealIDs []string) []model.ScenarioAction {
	var actions []model.ScenarioAction
	for _, id := range dealIDs {
		r, err := p.closure.Score(ctx, tenantID, id)
		if err != nil {
			zap.L().Warn("close-deal action skip",
				zap.String("tenant_id", tenantID),
				zap.String("deal_id", id),
				zap.Error(err))
			continue
		}
		priority := model.PriorityLow
		switch {
		case r.Probability >= 70:
			priority = model.PriorityHigh
		case r.Probability >= 50:
			priority = model.PriorityMedium
		}
		actions = append(actions, model.ScenarioAction{
			Type:        "close-deal",
			Description: "Close deal: " + id,
			Impact:      r.Probability,
			Priority:    priority,
		})
	}
	return actions
}

func (p *ActionPlanner) retentionActions(ctx context.Context, tenantID string, contactIDs []string) []model.ScenarioAction {
	var actions []model.ScenarioAction
	for _, id := range contactIDs {
		r, err := p.churn.Score(ctx, tenantID, id)
		if err != nil {
			zap.L().Warn("retention action skip",
				zap.String("tenant_id", tenantID),
				zap.String("contact_id", id),
				zap.Error(err))
			continue
		}
		priority := model.PriorityLow
		switch r.RiskLevel {
		case model.RiskCritical:
			priority = model.PriorityHigh
		case model.RiskHigh:
			priority = model.PriorityMedium
		}
		actions = append(actions, model.ScenarioAction{
			Type:        "retain-customer",
			Description: "Retain customer: " + id,
			Impact:      100 - r.RiskScore,
			Priority:    priority,
		})
	}
	return actions
}

func (p *ActionPlanner) upsellActions(ctx context.Context, tenantID string, contactIDs []string) []model.ScenarioAction {
	var actions []model.ScenarioAction
	for _, id := range contactIDs {
		r, err := p.upsell.Score(ctx, tenantID, id)
		if err != nil {
			zap.L().Warn("upsell action skip",
				zap.String("tenant_id", tenantID),
				zap.String("contact_id", id),
				zap.Error(err))
			continue
		}
		priority := model.PriorityMedium
		if r.OpportunityLevel == model.OpportunityVeryHigh || r.OpportunityLevel == model.OpportunityHigh {
			priority = model.PriorityHigh
		}
		actions = append(actions, model.ScenarioAction{
			Type:        "upsell",
			Description: "Upsell customer: " + id,
			Impact:      r.OpportunityScore,
			Priority:    priority,
		})
	}
	return actions
}

func improvementActions() []model.ScenarioAction {
	return []model.ScenarioAction{
		{Type: "improve-process", Description: "Improve sales process and training", Impact: 50, Priority: model.PriorityHigh},
		{Type: "better-qualification", Description: "Improve lead qualification", Impact: 30, Priority: model.PriorityMedium},
		{Type: "faster-followup", Description: "Reduce time to follow-up", Impact: 20, Priority: model.PriorityMedium},
	}
}

// lakh formats an amount in lakhs, the unit tenant reports use.
func lakh(v float64) string {
	return fmt.Sprintf("₹%.1fL", v/100_000)
}

func closeDealRecommendations(p model.ProjectedState) []string {
	return []string{
		fmt.Sprintf("Closing these deals would increase revenue by %s (%.1f%%)", lakh(p.RevenueChange), p.RevenueChangePercent),
		"Focus on high-probability deals first",
		"Schedule follow-up calls for deals stuck in negotiation",
		"Prepare final proposals for deals in proposal stage",
	}
}

func retentionRecommendations(p model.ProjectedState) []string {
	return []string{
		fmt.Sprintf("Losing these customers would reduce revenue by %s (%.1f%%)", lakh(math.Abs(p.RevenueChange)), math.Abs(p.RevenueChangePercent)),
		"Schedule immediate customer success calls",
		"Offer retention discounts or special packages",
		"Address any outstanding support issues",
		"Request feedback to understand churn reasons",
	}
}

func upsellScenarioRecommendations(p model.ProjectedState) []string {
	return []string{
		fmt.Sprintf("Upselling these customers would increase revenue by %s (%.1f%%)", lakh(p.RevenueChange), p.RevenueChangePercent),
		"Schedule upsell calls with high-opportunity customers",
		"Prepare personalized demos of recommended features",
		"Show ROI and value proposition for upgrades",
	}
}

func improvementRecommendations(p model.ProjectedState) []string {
	return []string{
		fmt.Sprintf("Improving closure rates would increase revenue by %s (%.1f%%)", lakh(p.RevenueChange), p.RevenueChangePercent),
		"Invest in sales training and process improvement",
		"Improve lead qualification to focus on high-probability deals",
		"Reduce time to follow-up on new leads",
		"Implement better deal management practices",
	}
}

// scenarioConfidence is a fixed per-type prior, reduced when the
// projected swing is large enough to make the estimate shaky.
func scenarioConfidence(t ActionType, p model.ProjectedState) float64 {
	confidence := 70.0
	switch t {
	case ActionCloseDeals:
		confidence = 85
	case ActionLoseCustomers:
		confidence = 80
	case ActionUpsellCustomers:
		confidence = 60
	case ActionImproveClosureRate:
		confidence = 50
	}
	if math.Abs(p.RevenueChangePercent) > 50 {
		confidence -= 10
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}
	return confidence
}
