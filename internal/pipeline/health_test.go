package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crm-analytics/internal/model"
	"github.com/sells-group/crm-analytics/internal/scoring"
	"github.com/sells-group/crm-analytics/internal/signal"
	"github.com/sells-group/crm-analytics/internal/store"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newAggregator(st store.Store, cfg HealthConfig) *HealthAggregator {
	closure := scoring.NewClosureScorer(st, signal.NoteMatcher{})
	a := NewHealthAggregator(st, closure, cfg)
	a.nowFunc = func() time.Time { return testNow }
	return a
}

func TestHealth_EmptyPipeline(t *testing.T) {
	a := newAggregator(&mockStore{}, HealthConfig{})

	metrics, err := a.Health(context.Background(), "t1")
	require.NoError(t, err)

	assert.Zero(t, metrics.OpenDealCount)
	assert.Zero(t, metrics.ProjectedCloseRate)
	assert.Zero(t, metrics.LastMonthCloseRate)
	assert.Empty(t, metrics.StuckDeals)
	assert.Empty(t, metrics.ReadyToMove)
	assert.NotEmpty(t, metrics.Recommendations)
}

func TestHealth_StuckAndReadyDeals(t *testing.T) {
	closeDate := testNow.AddDate(0, 0, 5)
	won := testNow.AddDate(0, -1, 0)
	lost := testNow.AddDate(0, -1, 2)

	active := model.Deal{
		ID: "active", TenantID: "t1", ContactID: "c1", Name: "Active Deal",
		Value: 300_000, Stage: model.StageProposal, Status: model.DealStatusOpen,
		ExpectedCloseDate: &closeDate,
		CreatedAt:         testNow.AddDate(0, 0, -10),
		UpdatedAt:         testNow.AddDate(0, 0, -2),
	}
	stale := model.Deal{
		ID: "stale", TenantID: "t1", ContactID: "c2", Name: "Stale Deal",
		Value: 30_000, Stage: model.StageDemo, Status: model.DealStatusOpen,
		CreatedAt: testNow.AddDate(0, 0, -90),
		UpdatedAt: testNow.AddDate(0, 0, -20),
	}

	st := &mockStore{
		openDeals: []model.Deal{active, stale},
		dealCtxs: map[string]*store.DealContext{
			"active": {
				Deal: active,
				Interactions: []model.Interaction{
					{Type: model.InteractionCall, Notes: "Budget approved by finance", CreatedAt: testNow.AddDate(0, 0, -2)},
				},
			},
			"stale": {
				Deal: stale,
				Interactions: []model.Interaction{
					{Type: model.InteractionCall, CreatedAt: testNow.AddDate(0, 0, -20)},
				},
			},
		},
		latest: map[string]time.Time{
			"c1": testNow.AddDate(0, 0, -2),
			"c2": testNow.AddDate(0, 0, -20),
		},
		closed: []model.Deal{
			{ID: "won", Status: model.DealStatusWon, ActualCloseDate: &won},
			{ID: "lost", Status: model.DealStatusLost, ActualCloseDate: &lost},
		},
	}

	metrics, err := newAggregator(st, HealthConfig{}).Health(context.Background(), "t1")
	require.NoError(t, err)

	assert.Equal(t, 2, metrics.OpenDealCount)

	// Only the active deal has an expected close date this month; its
	// probability clamps to 100.
	assert.Equal(t, 100.0, metrics.ProjectedCloseRate)
	assert.Equal(t, 50.0, metrics.LastMonthCloseRate)

	require.Len(t, metrics.StuckDeals, 1)
	assert.Equal(t, "stale", metrics.StuckDeals[0].DealID)
	assert.InDelta(t, 20, metrics.StuckDeals[0].DaysStale, 0.2)

	require.Len(t, metrics.ReadyToMove, 1)
	assert.Equal(t, "active", metrics.ReadyToMove[0].DealID)
	assert.Equal(t, string(model.StageNegotiation), metrics.ReadyToMove[0].NextStage)

	// Half the pipeline is stuck.
	assert.Equal(t, model.RiskHigh, metrics.RiskLevel)
}

func TestHealth_StuckListSortedAndCapped(t *testing.T) {
	deals := make([]model.Deal, 0, 4)
	dealCtxs := make(map[string]*store.DealContext, 4)
	latest := make(map[string]time.Time, 4)
	ids := []string{"a", "b", "c", "d"}
	for i, id := range ids {
		d := model.Deal{
			ID: id, ContactID: "contact-" + id, Name: id,
			Value: 10_000, Stage: model.StageLead, Status: model.DealStatusOpen,
			CreatedAt: testNow.AddDate(0, 0, -100),
			UpdatedAt: testNow.AddDate(0, 0, -100),
		}
		deals = append(deals, d)
		dealCtxs[id] = &store.DealContext{Deal: d}
		latest["contact-"+id] = testNow.AddDate(0, 0, -(20 + i*10))
	}
	st := &mockStore{openDeals: deals, dealCtxs: dealCtxs, latest: latest}

	metrics, err := newAggregator(st, HealthConfig{TopStuck: 2}).Health(context.Background(), "t1")
	require.NoError(t, err)

	require.Len(t, metrics.StuckDeals, 2)
	assert.Equal(t, "d", metrics.StuckDeals[0].DealID)
	assert.Equal(t, "c", metrics.StuckDeals[1].DealID)
}

func TestHealth_ScoringFailuresAreSkipped(t *testing.T) {
	// The deal book lists a deal the scorer cannot resolve; health still
	// aggregates from the rest.
	closeDate := testNow.AddDate(0, 0, 3)
	known := model.Deal{
		ID: "known", ContactID: "c1", Name: "Known",
		Value: 100_000, Stage: model.StageNegotiation, Status: model.DealStatusOpen,
		ExpectedCloseDate: &closeDate,
		CreatedAt:         testNow.AddDate(0, 0, -10),
		UpdatedAt:         testNow.AddDate(0, 0, -1),
	}
	ghost := model.Deal{
		ID: "ghost", ContactID: "c2", Name: "Ghost",
		Value: 100_000, Stage: model.StageDemo, Status: model.DealStatusOpen,
		ExpectedCloseDate: &closeDate,
		CreatedAt:         testNow.AddDate(0, 0, -10),
		UpdatedAt:         testNow.AddDate(0, 0, -1),
	}

	st := &mockStore{
		openDeals: []model.Deal{known, ghost},
		dealCtxs: map[string]*store.DealContext{
			"known": {Deal: known, Interactions: []model.Interaction{
				{Type: model.InteractionCall, CreatedAt: testNow.AddDate(0, 0, -1)},
			}},
		},
		latest: map[string]time.Time{"c1": testNow.AddDate(0, 0, -1)},
	}

	metrics, err := newAggregator(st, HealthConfig{}).Health(context.Background(), "t1")
	require.NoError(t, err)

	assert.Equal(t, 2, metrics.OpenDealCount)
	// Projected rate averages only the scorable deal.
	assert.Greater(t, metrics.ProjectedCloseRate, 0.0)
}
