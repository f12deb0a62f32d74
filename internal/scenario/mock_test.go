package scenario

import (
	"context"
	"time"

	"github.com/sells-group/crm-analytics/internal/model"
	"github.com/sells-group/crm-analytics/internal/store"
)

// mockStore implements store.Store for testing.
type mockStore struct {
	histories map[string]*store.ContactHistory
	dealCtxs  map[string]*store.DealContext
	openDeals []model.Deal
	activeIDs []string
	revenue   []model.RevenuePoint
}

func (m *mockStore) GetContactHistory(_ context.Context, _, contactID string, _ int) (*store.ContactHistory, error) {
	h, ok := m.histories[contactID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return h, nil
}

func (m *mockStore) GetDealContext(_ context.Context, _, dealID string) (*store.DealContext, error) {
	dc, ok := m.dealCtxs[dealID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return dc, nil
}

func (m *mockStore) ListOpenDeals(_ context.Context, _ string) ([]model.Deal, error) {
	return m.openDeals, nil
}

func (m *mockStore) ListActiveContactIDs(_ context.Context, _ string) ([]string, error) {
	return m.activeIDs, nil
}

func (m *mockStore) ListDealsClosedBetween(_ context.Context, _ string, _, _ time.Time) ([]model.Deal, error) {
	return nil, nil
}

func (m *mockStore) ListEmailsBetween(_ context.Context, _, _ string, _, _ time.Time) ([]model.EmailMessage, error) {
	return nil, nil
}

func (m *mockStore) LatestInteractionTimes(_ context.Context, _ string, _ []string) (map[string]time.Time, error) {
	return nil, nil
}

func (m *mockStore) DailyPaidRevenue(_ context.Context, _ string, since time.Time) ([]model.RevenuePoint, error) {
	var out []model.RevenuePoint
	for _, p := range m.revenue {
		if !p.Date.Before(since) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockStore) Migrate(_ context.Context) error { return nil }
func (m *mockStore) Close() error                    { return nil }
