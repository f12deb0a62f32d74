package scoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/crm-analytics/internal/model"
	"github.com/sells-group/crm-analytics/internal/signal"
	"github.com/sells-group/crm-analytics/internal/store"
)

// stageProbabilities maps each deal stage to its base closure
// probability in percent. Unknown stages fall back to 10.
var stageProbabilities = map[model.DealStage]float64{
	model.StageLead:        5,
	model.StageContacted:   15,
	model.StageDemo:        40,
	model.StageProposal:    70,
	model.StageNegotiation: 85,
	model.StageClosedWon:   100,
	model.StageClosedLost:  0,
}

const defaultStageProbability = 10

// ClosureScorer computes deal closure probability from the deal's stage
// and qualitative signals in the contact's interaction history.
type ClosureScorer struct {
	store   store.Store
	signals signal.Source
	nowFunc func() time.Time
}

// NewClosureScorer creates a closure scorer over the given store.
func NewClosureScorer(st store.Store, src signal.Source) *ClosureScorer {
	return &ClosureScorer{store: st, signals: src, nowFunc: time.Now}
}

// Score computes the closure probability for one deal. Returns
// store.ErrNotFound if the deal does not exist for the tenant.
func (s *ClosureScorer) Score(ctx context.Context, tenantID, dealID string) (*model.DealClosureResult, error) {
	dc, err := s.store.GetDealContext(ctx, tenantID, dealID)
	if err != nil {
		return nil, err
	}

	now := s.nowFunc()
	base := stageProbabilities[dc.Deal.Stage]
	if _, ok := stageProbabilities[dc.Deal.Stage]; !ok {
		base = defaultStageProbability
	}

	adj := s.adjustments(dc, now)
	probability := clamp(base+
		adj.CEOEngagement+
		adj.MultipleStakeholders+
		adj.CompetitorMention+
		adj.BudgetConfirmed+
		adj.RecentActivity+
		adj.DealAge+
		adj.DealValue, 0, 100)

	return &model.DealClosureResult{
		DealID:            dc.Deal.ID,
		Probability:       signal.Round1(probability),
		Confidence:        signal.Round1(s.confidence(dc, adj)),
		BaseProbability:   base,
		SignalAdjustments: adj,
		Recommendations:   closureRecommendations(dc.Deal, probability, adj),
		RiskFactors:       closureRiskFactors(dc.Deal, adj),
	}, nil
}

// ScoreBatch scores many deals, skipping and logging individual
// failures. The returned map holds only the successes.
func (s *ClosureScorer) ScoreBatch(ctx context.Context, tenantID string, dealIDs []string) (map[string]*model.DealClosureResult, error) {
	results := make(map[string]*model.DealClosureResult, len(dealIDs))
	for _, id := range dealIDs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		r, err := s.Score(ctx, tenantID, id)
		if err != nil {
			zap.L().Warn("closure score failed",
				zap.String("tenant_id", tenantID),
				zap.String("deal_id", id),
				zap.Error(err))
			continue
		}
		results[id] = r
	}
	return results, nil
}

func (s *ClosureScorer) adjustments(dc *store.DealContext, now time.Time) model.SignalAdjustments {
	var adj model.SignalAdjustments
	ints := dc.Interactions

	if s.signals.CEOEngagement(ints) {
		adj.CEOEngagement = 20
	}
	if s.signals.StakeholderMentions(ints) >= 2 {
		adj.MultipleStakeholders = 15
	}
	if s.signals.CompetitorMention(ints) {
		adj.CompetitorMention = -10
	}
	if s.signals.BudgetConfirmed(ints) {
		adj.BudgetConfirmed = 30
	}

	recent := signal.RecentCount(ints, now, 7)
	adj.RecentActivity = clamp(float64(recent)*5, 0, 15)

	ageDays := now.Sub(dc.Deal.CreatedAt).Hours() / 24
	if ageDays > 60 && recent == 0 {
		adj.DealAge = -10
	} else if ageDays < 30 {
		adj.DealAge = 5
	}

	if dc.Deal.Value > 1_000_000 {
		adj.DealValue = 5
	} else if dc.Deal.Value < 50_000 {
		adj.DealValue = -2
	}

	return adj
}

func (s *ClosureScorer) confidence(dc *store.DealContext, adj model.SignalAdjustments) float64 {
	confidence := 50.0
	confidence += clamp(float64(len(dc.Interactions))*2, 0, 20)
	if adj.RecentActivity > 0 {
		confidence += 10
	}
	if adj.BudgetConfirmed > 0 {
		confidence += 15
	}
	if adj.CEOEngagement > 0 {
		confidence += 10
	}
	return clamp(confidence, 0, 100)
}

func closureRecommendations(deal model.Deal, probability float64, adj model.SignalAdjustments) []string {
	var recs []string
	if probability < 30 {
		recs = append(recs, "Low probability deal. Consider focusing on higher-probability opportunities.")
	}
	if adj.CompetitorMention < 0 {
		recs = append(recs, "Competitor mentioned. Schedule a competitive differentiation call.")
	}
	if adj.BudgetConfirmed == 0 {
		recs = append(recs, "Budget not confirmed. Schedule a budget discussion meeting.")
	}
	if adj.CEOEngagement == 0 && deal.Value > 500_000 {
		recs = append(recs, "Large deal without CEO engagement. Request executive sponsorship.")
	}
	if adj.RecentActivity == 0 {
		recs = append(recs, "No recent activity. Schedule a follow-up call this week.")
	}
	if probability >= 70 {
		recs = append(recs, "High probability deal. Focus on closing this week.")
	}
	return recs
}

func closureRiskFactors(deal model.Deal, adj model.SignalAdjustments) []string {
	var risks []string
	if adj.CompetitorMention < 0 {
		risks = append(risks, "Competitor mentioned in discussions")
	}
	if adj.DealAge < 0 {
		risks = append(risks, "Deal has been inactive for extended period")
	}
	if adj.RecentActivity == 0 {
		risks = append(risks, "No activity in the last 7 days")
	}
	if adj.BudgetConfirmed == 0 && deal.Value > 200_000 {
		risks = append(risks, "Budget not confirmed for large deal")
	}
	return risks
}
