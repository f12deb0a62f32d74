package pipeline

import (
	"context"
	"time"

	"github.com/sells-group/crm-analytics/internal/model"
	"github.com/sells-group/crm-analytics/internal/store"
)

// mockStore implements store.Store for testing.
type mockStore struct {
	dealCtxs  map[string]*store.DealContext
	openDeals []model.Deal
	closed    []model.Deal
	latest    map[string]time.Time
}

func (m *mockStore) GetContactHistory(_ context.Context, _, contactID string, _ int) (*store.ContactHistory, error) {
	return nil, store.ErrNotFound
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
	return nil, nil
}

func (m *mockStore) ListDealsClosedBetween(_ context.Context, _ string, from, to time.Time) ([]model.Deal, error) {
	var out []model.Deal
	for _, d := range m.closed {
		if d.ActualCloseDate == nil {
			continue
		}
		if !d.ActualCloseDate.Before(from) && d.ActualCloseDate.Before(to) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockStore) ListEmailsBetween(_ context.Context, _, _ string, _, _ time.Time) ([]model.EmailMessage, error) {
	return nil, nil
}

func (m *mockStore) LatestInteractionTimes(_ context.Context, _ string, contactIDs []string) (map[string]time.Time, error) {
	out := make(map[string]time.Time)
	for _, id := range contactIDs {
		if t, ok := m.latest[id]; ok {
			out[id] = t
		}
	}
	return out, nil
}

func (m *mockStore) DailyPaidRevenue(_ context.Context, _ string, _ time.Time) ([]model.RevenuePoint, error) {
	return nil, nil
}

func (m *mockStore) Migrate(_ context.Context) error { return nil }
func (m *mockStore) Close() error                    { return nil }
