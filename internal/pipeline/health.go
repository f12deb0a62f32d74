// Package pipeline aggregates tenant-wide pipeline health from the open
// deal book: projected vs historical close rates, stuck deals, and
// deals ready to advance.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/crm-analytics/internal/model"
	"github.com/sells-group/crm-analytics/internal/scoring"
	"github.com/sells-group/crm-analytics/internal/signal"
	"github.com/sells-group/crm-analytics/internal/store"
)

// HealthConfig tunes the aggregator's thresholds.
type HealthConfig struct {
	// MaxConcurrent bounds the closure-scoring fan-out. Default 8.
	MaxConcurrent int
	// StuckAfterDays is the staleness threshold. Default 14.
	StuckAfterDays int
	// ReadyWithinDays is the recent-activity threshold. Default 7.
	ReadyWithinDays int
	// TopStuck caps the reported stuck list. Default 10.
	TopStuck int
}

func (c HealthConfig) withDefaults() HealthConfig {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 8
	}
	if c.StuckAfterDays <= 0 {
		c.StuckAfterDays = 14
	}
	if c.ReadyWithinDays <= 0 {
		c.ReadyWithinDays = 7
	}
	if c.TopStuck <= 0 {
		c.TopStuck = 10
	}
	return c
}

// HealthAggregator computes PipelineHealthMetrics for a tenant.
type HealthAggregator struct {
	store   store.Store
	closure *scoring.ClosureScorer
	cfg     HealthConfig
	nowFunc func() time.Time
}

// NewHealthAggregator creates an aggregator over the given store and
// closure scorer.
func NewHealthAggregator(st store.Store, closure *scoring.ClosureScorer, cfg HealthConfig) *HealthAggregator {
	return &HealthAggregator{store: st, closure: closure, cfg: cfg.withDefaults(), nowFunc: time.Now}
}

// Health computes the tenant's pipeline health snapshot. Scoring reads
// are side-effect-free, so the per-deal fan-out runs concurrently.
func (a *HealthAggregator) Health(ctx context.Context, tenantID string) (*model.PipelineHealthMetrics, error) {
	now := a.nowFunc()

	openDeals, err := a.store.ListOpenDeals(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	probabilities, err := a.scoreDeals(ctx, tenantID, openDeals)
	if err != nil {
		return nil, err
	}

	lastActivity, err := a.lastActivityByDeal(ctx, tenantID, openDeals)
	if err != nil {
		return nil, err
	}

	projected := projectedCloseRate(openDeals, probabilities, now)

	lastMonth, err := a.lastMonthCloseRate(ctx, tenantID, now)
	if err != nil {
		return nil, err
	}

	stuck := a.stuckDeals(openDeals, lastActivity, now)
	ready := a.readyToMove(openDeals, probabilities, lastActivity, now)

	stuckPct := 0.0
	if len(openDeals) > 0 {
		stuckPct = float64(a.stuckCount(openDeals, lastActivity, now)) / float64(len(openDeals)) * 100
	}
	level := healthRiskLevel(projected, stuckPct)

	return &model.PipelineHealthMetrics{
		OpenDealCount:      len(openDeals),
		ProjectedCloseRate: signal.Round1(projected),
		LastMonthCloseRate: signal.Round1(lastMonth),
		StuckDeals:         stuck,
		ReadyToMove:        ready,
		RiskLevel:          level,
		Recommendations:    healthRecommendations(projected, stuck, ready, level),
	}, nil
}

// scoreDeals computes closure probabilities for every open deal with a
// bounded worker pool. Individual failures are logged and the deal is
// simply absent from the map.
func (a *HealthAggregator) scoreDeals(ctx context.Context, tenantID string, deals []model.Deal) (map[string]float64, error) {
	probabilities := make(map[string]float64, len(deals))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.MaxConcurrent)

	for _, d := range deals {
		d := d
		g.Go(func() error {
			r, err := a.closure.Score(gctx, tenantID, d.ID)
			if err != nil {
				zap.L().Warn("pipeline health score skip",
					zap.String("tenant_id", tenantID),
					zap.String("deal_id", d.ID),
					zap.Error(err))
				return nil
			}
			mu.Lock()
			probabilities[d.ID] = r.Probability
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return probabilities, nil
}

func (a *HealthAggregator) lastActivityByDeal(ctx context.Context, tenantID string, deals []model.Deal) (map[string]time.Time, error) {
	contactIDs := make([]string, 0, len(deals))
	seen := make(map[string]struct{})
	for _, d := range deals {
		if d.ContactID == "" {
			continue
		}
		if _, ok := seen[d.ContactID]; ok {
			continue
		}
		seen[d.ContactID] = struct{}{}
		contactIDs = append(contactIDs, d.ContactID)
	}

	byContact, err := a.store.LatestInteractionTimes(ctx, tenantID, contactIDs)
	if err != nil {
		return nil, err
	}

	byDeal := make(map[string]time.Time, len(deals))
	for _, d := range deals {
		if d.ContactID == "" {
			continue
		}
		if t, ok := byContact[d.ContactID]; ok {
			byDeal[d.ID] = t
		}
	}
	return byDeal, nil
}

// projectedCloseRate is the mean probability over deals expected to
// close in the current calendar month, 0 when there are none.
func projectedCloseRate(deals []model.Deal, probabilities map[string]float64, now time.Time) float64 {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	monthEnd := monthStart.AddDate(0, 1, 0)

	sum, n := 0.0, 0
	for _, d := range deals {
		if d.ExpectedCloseDate == nil {
			continue
		}
		if d.ExpectedCloseDate.Before(monthStart) || !d.ExpectedCloseDate.Before(monthEnd) {
			continue
		}
		p, ok := probabilities[d.ID]
		if !ok {
			continue
		}
		sum += p
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// lastMonthCloseRate is won/(won+lost) among deals that closed in the
// previous calendar month, 0 when none closed.
func (a *HealthAggregator) lastMonthCloseRate(ctx context.Context, tenantID string, now time.Time) (float64, error) {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	prevStart := monthStart.AddDate(0, -1, 0)

	closed, err := a.store.ListDealsClosedBetween(ctx, tenantID, prevStart, monthStart)
	if err != nil {
		return 0, err
	}
	if len(closed) == 0 {
		return 0, nil
	}

	won := 0
	for _, d := range closed {
		if d.Status == model.DealStatusWon {
			won++
		}
	}
	return float64(won) / float64(len(closed)) * 100, nil
}

func (a *HealthAggregator) staleness(d model.Deal, lastActivity map[string]time.Time, now time.Time) float64 {
	if t, ok := lastActivity[d.ID]; ok {
		return signal.DaysSince(t, now)
	}
	// No interactions at all; fall back to the deal's own update age.
	return signal.DaysSince(d.UpdatedAt, now)
}

func (a *HealthAggregator) stuckCount(deals []model.Deal, lastActivity map[string]time.Time, now time.Time) int {
	n := 0
	for _, d := range deals {
		if a.staleness(d, lastActivity, now) > float64(a.cfg.StuckAfterDays) {
			n++
		}
	}
	return n
}

func (a *HealthAggregator) stuckDeals(deals []model.Deal, lastActivity map[string]time.Time, now time.Time) []model.StuckDeal {
	var stuck []model.StuckDeal
	for _, d := range deals {
		stale := a.staleness(d, lastActivity, now)
		if stale <= float64(a.cfg.StuckAfterDays) {
			continue
		}
		stuck = append(stuck, model.StuckDeal{
			DealID:       d.ID,
			Name:         d.Name,
			Value:        d.Value,
			DaysStale:    signal.Round1(stale),
			CurrentStage: string(d.Stage),
		})
	}

	sort.SliceStable(stuck, func(i, j int) bool { return stuck[i].DaysStale > stuck[j].DaysStale })
	if len(stuck) > a.cfg.TopStuck {
		stuck = stuck[:a.cfg.TopStuck]
	}
	return stuck
}

func (a *HealthAggregator) readyToMove(deals []model.Deal, probabilities map[string]float64, lastActivity map[string]time.Time, now time.Time) []model.ReadyDeal {
	var ready []model.ReadyDeal
	for _, d := range deals {
		next, ok := model.NextStage[d.Stage]
		if !ok {
			continue
		}
		if a.staleness(d, lastActivity, now) > float64(a.cfg.ReadyWithinDays) {
			continue
		}
		p, ok := probabilities[d.ID]
		if !ok || p < 50 {
			continue
		}
		ready = append(ready, model.ReadyDeal{
			DealID:       d.ID,
			Name:         d.Name,
			Value:        d.Value,
			Probability:  p,
			CurrentStage: string(d.Stage),
			NextStage:    string(next),
		})
	}
	return ready
}

func healthRiskLevel(projected, stuckPct float64) model.RiskLevel {
	switch {
	case projected < 30 || stuckPct > 30:
		return model.RiskHigh
	case projected < 50 || stuckPct > 15:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}

func healthRecommendations(projected float64, stuck []model.StuckDeal, ready []model.ReadyDeal, level model.RiskLevel) []string {
	var recs []string
	if level == model.RiskHigh {
		recs = append(recs, "Pipeline health is at risk. Prioritize reviving stalled deals this week.")
	}
	if len(stuck) > 0 {
		recs = append(recs, fmt.Sprintf("%d deals have gone quiet. Schedule follow-ups, starting with the highest-value ones.", len(stuck)))
	}
	if len(ready) > 0 {
		recs = append(recs, fmt.Sprintf("%d deals are active and likely to close. Push them to the next stage.", len(ready)))
	}
	if projected < 50 {
		recs = append(recs, fmt.Sprintf("Projected close rate is %.0f%% this month. Qualify harder or add pipeline.", projected))
	}
	if len(recs) == 0 {
		recs = append(recs, "Pipeline is healthy. Maintain the current cadence.")
	}
	return recs
}
