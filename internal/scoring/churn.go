package scoring

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/crm-analytics/internal/model"
	"github.com/sells-group/crm-analytics/internal/signal"
	"github.com/sells-group/crm-analytics/internal/store"
)

// PaymentDelaySource supplies the payment-delay factor in days. The
// real source lives in the finance module; until that integration lands
// the engine runs with NoPaymentData.
type PaymentDelaySource interface {
	DelayDays(ctx context.Context, tenantID, contactID string) (int, error)
}

// NoPaymentData is the placeholder payment source. It always reports
// zero delay, so the payment factor never contributes to risk.
type NoPaymentData struct{}

func (NoPaymentData) DelayDays(ctx context.Context, tenantID, contactID string) (int, error) {
	return 0, nil
}

// ChurnScorer computes churn risk from usage, engagement, support,
// payment, and deal-activity factors.
type ChurnScorer struct {
	store    store.Store
	payments PaymentDelaySource
	minScore float64
	nowFunc  func() time.Time
}

// NewChurnScorer creates a churn scorer. minScore is the threshold for
// the high-risk sweep.
func NewChurnScorer(st store.Store, payments PaymentDelaySource, minScore float64) *ChurnScorer {
	if payments == nil {
		payments = NoPaymentData{}
	}
	if minScore <= 0 {
		minScore = 60
	}
	return &ChurnScorer{store: st, payments: payments, minScore: minScore, nowFunc: time.Now}
}

// Score computes churn risk for one contact. Returns store.ErrNotFound
// if the contact does not exist for the tenant.
func (s *ChurnScorer) Score(ctx context.Context, tenantID, contactID string) (*model.ChurnRiskResult, error) {
	h, err := s.store.GetContactHistory(ctx, tenantID, contactID, 30)
	if err != nil {
		return nil, err
	}

	now := s.nowFunc()
	factors, err := s.riskFactors(ctx, tenantID, h, now)
	if err != nil {
		return nil, err
	}

	score := riskScore(factors)
	level := riskLevel(score)

	result := &model.ChurnRiskResult{
		ContactID:       h.Contact.ID,
		RiskScore:       signal.Round1(score),
		RiskLevel:       level,
		Factors:         factors,
		Reasons:         churnReasons(factors),
		Recommendations: churnRecommendations(factors, level),
	}
	if score >= 60 {
		d := predictChurnDate(factors, now)
		result.PredictedChurnDate = &d
	}
	return result, nil
}

// ScoreBatch scores many contacts, skipping and logging individual
// failures.
func (s *ChurnScorer) ScoreBatch(ctx context.Context, tenantID string, contactIDs []string) (map[string]*model.ChurnRiskResult, error) {
	results := make(map[string]*model.ChurnRiskResult, len(contactIDs))
	for _, id := range contactIDs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		r, err := s.Score(ctx, tenantID, id)
		if err != nil {
			zap.L().Warn("churn score failed",
				zap.String("tenant_id", tenantID),
				zap.String("contact_id", id),
				zap.Error(err))
			continue
		}
		results[id] = r
	}
	return results, nil
}

// HighRiskCustomers sweeps all active contacts and returns those at or
// above the configured risk threshold, highest risk first.
func (s *ChurnScorer) HighRiskCustomers(ctx context.Context, tenantID string) ([]model.HighRiskCustomer, error) {
	ids, err := s.store.ListActiveContactIDs(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	var highRisk []model.HighRiskCustomer
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := s.Score(ctx, tenantID, id)
		if err != nil {
			zap.L().Warn("churn sweep skip",
				zap.String("tenant_id", tenantID),
				zap.String("contact_id", id),
				zap.Error(err))
			continue
		}
		if r.RiskScore >= s.minScore {
			highRisk = append(highRisk, model.HighRiskCustomer{
				ContactID: id,
				RiskScore: r.RiskScore,
				RiskLevel: r.RiskLevel,
			})
		}
	}

	sort.SliceStable(highRisk, func(i, j int) bool { return highRisk[i].RiskScore > highRisk[j].RiskScore })
	return highRisk, nil
}

func (s *ChurnScorer) riskFactors(ctx context.Context, tenantID string, h *store.ContactHistory, now time.Time) (model.RiskFactors, error) {
	recent, previous := signal.InteractionWindows(h.Interactions, now)
	usageDecline := signal.DeclineChange(float64(recent), float64(previous))

	cutRecent := now.Add(-signal.Window)
	cutPrevious := now.Add(-2 * signal.Window)

	recentEmails, err := s.store.ListEmailsBetween(ctx, tenantID, h.Contact.ID, cutRecent, now)
	if err != nil {
		return model.RiskFactors{}, err
	}
	previousEmails, err := s.store.ListEmailsBetween(ctx, tenantID, h.Contact.ID, cutPrevious, cutRecent)
	if err != nil {
		return model.RiskFactors{}, err
	}
	engagementDrop := signal.DeclineChange(signal.OpenRate(recentEmails), signal.OpenRate(previousEmails))

	delays, err := s.payments.DelayDays(ctx, tenantID, h.Contact.ID)
	if err != nil {
		return model.RiskFactors{}, err
	}

	return model.RiskFactors{
		UsageDecline:   signal.Round1(usageDecline),
		EngagementDrop: signal.Round1(engagementDrop),
		SupportTickets: signal.SupportTickets(h.Interactions, now),
		PaymentDelays:  delays,
		DealActivity:   signal.Round1(signal.DealActivityAge(h.Deals, now)),
	}, nil
}

// riskScore sums the weighted factor contributions: usage up to 30,
// engagement up to 25, support up to 20, payment up to 15, deal
// activity up to 10.
func riskScore(f model.RiskFactors) float64 {
	score := 0.0

	switch {
	case f.UsageDecline < -40:
		score += 30
	case f.UsageDecline < -20:
		score += 20
	case f.UsageDecline < 0:
		score += 10
	}

	switch {
	case f.EngagementDrop < -40:
		score += 25
	case f.EngagementDrop < -20:
		score += 15
	case f.EngagementDrop < 0:
		score += 8
	}

	switch {
	case f.SupportTickets >= 5:
		score += 20
	case f.SupportTickets >= 3:
		score += 12
	case f.SupportTickets >= 1:
		score += 5
	}

	switch {
	case f.PaymentDelays > 30:
		score += 15
	case f.PaymentDelays > 15:
		score += 10
	case f.PaymentDelays > 7:
		score += 5
	}

	switch {
	case f.DealActivity > 60:
		score += 10
	case f.DealActivity > 30:
		score += 5
	}

	return clamp(score, 0, 100)
}

func riskLevel(score float64) model.RiskLevel {
	switch {
	case score >= 80:
		return model.RiskCritical
	case score >= 60:
		return model.RiskHigh
	case score >= 40:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}

func churnReasons(f model.RiskFactors) []string {
	var reasons []string
	if f.UsageDecline < -40 {
		reasons = append(reasons, fmt.Sprintf("Usage down %s%% in last 30 days", pct(math.Abs(f.UsageDecline))))
	}
	if f.EngagementDrop < -40 {
		reasons = append(reasons, fmt.Sprintf("Email engagement down %s%%", pct(math.Abs(f.EngagementDrop))))
	}
	if f.SupportTickets >= 3 {
		reasons = append(reasons, fmt.Sprintf("%d support tickets in last 30 days", f.SupportTickets))
	}
	if f.PaymentDelays > 15 {
		reasons = append(reasons, fmt.Sprintf("Payment delayed by %d days", f.PaymentDelays))
	}
	if f.DealActivity > 60 {
		reasons = append(reasons, fmt.Sprintf("No deal activity for %d days", int(math.Floor(f.DealActivity))))
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "Low engagement indicators detected")
	}
	return reasons
}

func churnRecommendations(f model.RiskFactors, level model.RiskLevel) []string {
	var recs []string
	if level == model.RiskCritical || level == model.RiskHigh {
		recs = append(recs,
			"Schedule immediate customer success call",
			"Offer discount or special retention package",
			"Request feedback on product experience")
	}
	if f.UsageDecline < -20 {
		recs = append(recs,
			"Send re-engagement email with product tips",
			"Schedule onboarding refresh session")
	}
	if f.EngagementDrop < -20 {
		recs = append(recs,
			"Personal outreach from account manager",
			"Share relevant case studies or success stories")
	}
	if f.SupportTickets >= 3 {
		recs = append(recs,
			"Proactive support: Address outstanding issues",
			"Assign dedicated support resource")
	}
	if f.PaymentDelays > 7 {
		recs = append(recs,
			"Payment reminder with flexible payment options",
			"Discuss payment plan if needed")
	}
	if f.DealActivity > 30 {
		recs = append(recs,
			"Re-engage with new product features or use cases",
			"Schedule quarterly business review")
	}
	if len(recs) == 0 {
		recs = append(recs, "Monitor closely and maintain regular check-ins")
	}
	return recs
}

// predictChurnDate projects the likely churn date from the default
// 90-day horizon, shortened by the most acute factor.
func predictChurnDate(f model.RiskFactors, now time.Time) time.Time {
	days := 90
	if f.UsageDecline < -40 && days > 30 {
		days = 30
	}
	if f.EngagementDrop < -40 && days > 45 {
		days = 45
	}
	if f.SupportTickets >= 5 && days > 20 {
		days = 20
	}
	if f.PaymentDelays > 30 && days > 15 {
		days = 15
	}
	return now.AddDate(0, 0, days)
}
