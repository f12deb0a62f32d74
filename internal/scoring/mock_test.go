package scoring

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
	closed    []model.Deal
	emails    []model.EmailMessage
	latest    map[string]time.Time
	revenue   []model.RevenuePoint
}

func (m *mockStore) GetContactHistory(_ context.Context, _, contactID string, interactionLimit int) (*store.ContactHistory, error) {
	h, ok := m.histories[contactID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *h
	if interactionLimit > 0 && len(cp.Interactions) > interactionLimit {
		cp.Interactions = cp.Interactions[:interactionLimit]
	}
	return &cp, nil
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

func (m *mockStore) ListEmailsBetween(_ context.Context, _, contactID string, from, to time.Time) ([]model.EmailMessage, error) {
	var out []model.EmailMessage
	for _, e := range m.emails {
		if e.ContactID != contactID {
			continue
		}
		if !e.CreatedAt.Before(from) && e.CreatedAt.Before(to) {
			out = append(out, e)
		}
	}
	return out, nil
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
