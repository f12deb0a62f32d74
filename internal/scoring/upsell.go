package scoring

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/crm-analytics/internal/model"
	"github.com/sells-group/crm-analytics/internal/signal"
	"github.com/sells-group/crm-analytics/internal/store"
)

// UpsellConfig holds the upsell scorer's calibration values.
type UpsellConfig struct {
	// MinScore is the sweep inclusion threshold. Default 50.
	MinScore float64
	// BaseValue is the base monthly upsell value. Default 5000.
	BaseValue float64
	// TotalFeatures is the product's feature count used for the usage
	// breadth signal. Default 10.
	TotalFeatures int
}

func (c UpsellConfig) withDefaults() UpsellConfig {
	if c.MinScore <= 0 {
		c.MinScore = 50
	}
	if c.BaseValue <= 0 {
		c.BaseValue = 5000
	}
	if c.TotalFeatures <= 0 {
		c.TotalFeatures = 10
	}
	return c
}

// UpsellScorer identifies expansion opportunities from usage breadth,
// growth, team size, payment consistency, and engagement.
type UpsellScorer struct {
	store   store.Store
	signals signal.Source
	cfg     UpsellConfig
	nowFunc func() time.Time
}

// NewUpsellScorer creates an upsell scorer over the given store.
func NewUpsellScorer(st store.Store, src signal.Source, cfg UpsellConfig) *UpsellScorer {
	return &UpsellScorer{store: st, signals: src, cfg: cfg.withDefaults(), nowFunc: time.Now}
}

// Score computes the upsell opportunity for one contact. Returns
// store.ErrNotFound if the contact does not exist for the tenant.
func (s *UpsellScorer) Score(ctx context.Context, tenantID, contactID string) (*model.UpsellOpportunityResult, error) {
	h, err := s.store.GetContactHistory(ctx, tenantID, contactID, 50)
	if err != nil {
		return nil, err
	}

	sig := s.upsellSignals(h, s.nowFunc())
	score := opportunityScore(sig)
	level := opportunityLevel(score)
	features := recommendFeatures(sig)

	return &model.UpsellOpportunityResult{
		ContactID:               h.Contact.ID,
		OpportunityScore:        signal.Round1(score),
		OpportunityLevel:        level,
		Signals:                 sig,
		RecommendedFeatures:     features,
		EstimatedUpsellValue:    float64(int(s.estimateValue(sig))),
		EstimatedRetentionBoost: signal.Round1(retentionBoost(sig)),
		Recommendations:         upsellRecommendations(sig, level, features),
	}, nil
}

// ScoreBatch scores many contacts, skipping and logging individual
// failures.
func (s *UpsellScorer) ScoreBatch(ctx context.Context, tenantID string, contactIDs []string) (map[string]*model.UpsellOpportunityResult, error) {
	results := make(map[string]*model.UpsellOpportunityResult, len(contactIDs))
	for _, id := range contactIDs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		r, err := s.Score(ctx, tenantID, id)
		if err != nil {
			zap.L().Warn("upsell score failed",
				zap.String("tenant_id", tenantID),
				zap.String("contact_id", id),
				zap.Error(err))
			continue
		}
		results[id] = r
	}
	return results, nil
}

// Opportunities sweeps all active contacts and returns those at or
// above the configured threshold, highest score first.
func (s *UpsellScorer) Opportunities(ctx context.Context, tenantID string) ([]model.UpsellCandidate, error) {
	ids, err := s.store.ListActiveContactIDs(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	var candidates []model.UpsellCandidate
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := s.Score(ctx, tenantID, id)
		if err != nil {
			zap.L().Warn("upsell sweep skip",
				zap.String("tenant_id", tenantID),
				zap.String("contact_id", id),
				zap.Error(err))
			continue
		}
		if r.OpportunityScore >= s.cfg.MinScore {
			candidates = append(candidates, model.UpsellCandidate{
				ContactID:            id,
				OpportunityScore:     r.OpportunityScore,
				OpportunityLevel:     r.OpportunityLevel,
				EstimatedUpsellValue: r.EstimatedUpsellValue,
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].OpportunityScore > candidates[j].OpportunityScore
	})
	return candidates, nil
}

func (s *UpsellScorer) upsellSignals(h *store.ContactHistory, now time.Time) model.UpsellSignals {
	featureUsage := float64(signal.DistinctTypes(h.Interactions)) / float64(s.cfg.TotalFeatures) * 100

	recent, previous := signal.InteractionWindows(h.Interactions, now)
	usageGrowth := signal.GrowthChange(float64(recent), float64(previous))

	teamSize := s.signals.TeamMentions(h.Interactions) + 1
	if teamSize < 1 {
		teamSize = 1
	}

	// Payment consistency placeholder until the finance module is wired
	// in. Contacts with deal history read as consistent payers.
	paymentHistory := 50.0
	if len(h.Deals) > 0 {
		paymentHistory = 85
	}

	var lastAt time.Time
	if len(h.Interactions) > 0 {
		lastAt = h.Interactions[0].CreatedAt
	}
	daysSinceLast := signal.DaysSince(lastAt, now)

	engagement := 100.0
	switch {
	case daysSinceLast > 30:
		engagement = 30
	case daysSinceLast > 14:
		engagement = 50
	case daysSinceLast > 7:
		engagement = 70
	case daysSinceLast > 3:
		engagement = 85
	}
	if usageGrowth > 20 {
		engagement = clamp(engagement+15, 0, 100)
	}

	return model.UpsellSignals{
		FeatureUsage:   signal.Round1(featureUsage),
		UsageGrowth:    signal.Round1(usageGrowth),
		TeamSize:       teamSize,
		PaymentHistory: paymentHistory,
		Engagement:     signal.Round1(engagement),
	}
}

// opportunityScore sums the banded signal contributions: feature usage
// up to 30 (low usage means headroom), growth up to 25, team size up to
// 15, payment up to 15, engagement up to 15.
func opportunityScore(s model.UpsellSignals) float64 {
	score := 0.0

	switch {
	case s.FeatureUsage < 30:
		score += 30
	case s.FeatureUsage < 50:
		score += 20
	case s.FeatureUsage < 70:
		score += 10
	}

	switch {
	case s.UsageGrowth > 50:
		score += 25
	case s.UsageGrowth > 20:
		score += 15
	case s.UsageGrowth > 0:
		score += 8
	}

	switch {
	case s.TeamSize >= 10:
		score += 15
	case s.TeamSize >= 5:
		score += 10
	case s.TeamSize >= 3:
		score += 5
	}

	switch {
	case s.PaymentHistory >= 90:
		score += 15
	case s.PaymentHistory >= 75:
		score += 10
	case s.PaymentHistory >= 60:
		score += 5
	}

	switch {
	case s.Engagement >= 80:
		score += 15
	case s.Engagement >= 60:
		score += 10
	case s.Engagement >= 40:
		score += 5
	}

	return clamp(score, 0, 100)
}

func opportunityLevel(score float64) model.OpportunityLevel {
	switch {
	case score >= 80:
		return model.OpportunityVeryHigh
	case score >= 60:
		return model.OpportunityHigh
	case score >= 40:
		return model.OpportunityMedium
	default:
		return model.OpportunityLow
	}
}

func recommendFeatures(s model.UpsellSignals) []string {
	var features []string
	seen := make(map[string]struct{})
	add := func(names ...string) {
		for _, n := range names {
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			features = append(features, n)
		}
	}

	if s.FeatureUsage < 30 {
		add("Workflow Automation", "Advanced Reporting")
	}
	if s.TeamSize >= 5 {
		add("Team Collaboration", "Role-Based Permissions")
	}
	if s.UsageGrowth > 20 {
		add("Advanced Analytics", "API Access")
	}
	if s.Engagement >= 80 {
		add("Premium Support", "Custom Integrations")
	}
	return features
}

func (s *UpsellScorer) estimateValue(sig model.UpsellSignals) float64 {
	teamMultiplier := float64(sig.TeamSize) / 5
	if teamMultiplier > 3 {
		teamMultiplier = 3
	}

	usageMultiplier := 1.0
	switch {
	case sig.FeatureUsage < 30:
		usageMultiplier = 2
	case sig.FeatureUsage < 50:
		usageMultiplier = 1.5
	}

	return s.cfg.BaseValue * teamMultiplier * usageMultiplier * sig.Engagement / 100
}

func retentionBoost(s model.UpsellSignals) float64 {
	boost := 20.0
	if s.Engagement >= 80 {
		boost += 10
	}
	if s.UsageGrowth > 20 {
		boost += 5
	}
	return clamp(boost, 0, 40)
}

func upsellRecommendations(s model.UpsellSignals, level model.OpportunityLevel, features []string) []string {
	var recs []string
	if level == model.OpportunityVeryHigh || level == model.OpportunityHigh {
		recs = append(recs,
			"Schedule upsell call this week",
			"Prepare personalized demo of recommended features")
	}
	if s.FeatureUsage < 30 {
		recs = append(recs, fmt.Sprintf("Customer using only %s%% of features. Show value of additional features.", pct(s.FeatureUsage)))
	}
	if s.UsageGrowth > 20 {
		recs = append(recs, fmt.Sprintf("Usage growing %s%%. Perfect time to introduce advanced features.", pct(s.UsageGrowth)))
	}
	if s.TeamSize >= 5 {
		recs = append(recs, fmt.Sprintf("Team size: %d. Recommend team collaboration features.", s.TeamSize))
	}
	if len(features) > 0 {
		recs = append(recs, "Recommended features: "+strings.Join(features, ", "))
	}
	if s.Engagement >= 80 {
		recs = append(recs, "High engagement. Customer is receptive to upsell conversation.")
	}
	return recs
}
