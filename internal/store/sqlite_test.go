package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crm-analytics/internal/model"
)

// newTestSQLiteStore opens a migrated store on a throwaway database file.
func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "analytics.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func seedExec(t *testing.T, s *SQLiteStore, query string, args ...any) {
	t.Helper()
	_, err := s.db.Exec(query, args...)
	require.NoError(t, err)
}

func TestSQLiteStore_ContactHistoryRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	seedExec(t, s, `INSERT INTO contacts (id, tenant_id, name, stage, created_at) VALUES (?, ?, ?, ?, ?)`,
		"c1", "t1", "Acme Corp", "active", now.AddDate(0, -2, 0))
	seedExec(t, s, `INSERT INTO deals (id, tenant_id, contact_id, name, value, stage, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		"d1", "t1", "c1", "Expansion", 50_000.0, "proposal", "open", now.AddDate(0, 0, -5), now.AddDate(0, 0, -5))
	seedExec(t, s, `INSERT INTO interactions (id, tenant_id, contact_id, type, notes, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		"i1", "t1", "c1", "call", "budget approved", now.Add(-time.Hour))
	seedExec(t, s, `INSERT INTO interactions (id, tenant_id, contact_id, type, notes, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		"i2", "t1", "c1", "meeting", nil, now.AddDate(0, 0, -3))

	h, err := s.GetContactHistory(context.Background(), "t1", "c1", 0)
	require.NoError(t, err)

	assert.Equal(t, "Acme Corp", h.Contact.Name)
	assert.Equal(t, model.ContactStageActive, h.Contact.Stage)
	require.Len(t, h.Deals, 1)
	assert.InDelta(t, 50_000, h.Deals[0].Value, 0.001)
	assert.Equal(t, "c1", h.Deals[0].ContactID)

	// Most recent interaction first, NULL notes coalesced to empty.
	require.Len(t, h.Interactions, 2)
	assert.Equal(t, "i1", h.Interactions[0].ID)
	assert.Equal(t, "budget approved", h.Interactions[0].Notes)
	assert.Empty(t, h.Interactions[1].Notes)
}

func TestSQLiteStore_ContactHistoryHonorsLimit(t *testing.T) {
	s := newTestSQLiteStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	seedExec(t, s, `INSERT INTO contacts (id, tenant_id, created_at) VALUES (?, ?, ?)`, "c1", "t1", now)
	for i := 0; i < 5; i++ {
		seedExec(t, s, `INSERT INTO interactions (id, tenant_id, contact_id, type, created_at) VALUES (?, ?, ?, ?, ?)`,
			string(rune('a'+i)), "t1", "c1", "call", now.Add(-time.Duration(i)*time.Hour))
	}

	h, err := s.GetContactHistory(context.Background(), "t1", "c1", 3)
	require.NoError(t, err)
	assert.Len(t, h.Interactions, 3)
}

func TestSQLiteStore_GetContactHistory_NotFound(t *testing.T) {
	s := newTestSQLiteStore(t)
	_, err := s.GetContactHistory(context.Background(), "t1", "missing", 10)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteStore_GetDealContext(t *testing.T) {
	s := newTestSQLiteStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	seedExec(t, s, `INSERT INTO contacts (id, tenant_id, name, stage, created_at) VALUES (?, ?, ?, ?, ?)`,
		"c1", "t1", "Acme Corp", "active", now)
	seedExec(t, s, `INSERT INTO deals (id, tenant_id, contact_id, name, value, stage, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		"d1", "t1", "c1", "Renewal", 120_000.0, "negotiation", "open", now, now)
	seedExec(t, s, `INSERT INTO interactions (id, tenant_id, contact_id, type, notes, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		"i1", "t1", "c1", "meeting", "met the CEO", now)

	dc, err := s.GetDealContext(context.Background(), "t1", "d1")
	require.NoError(t, err)

	assert.Equal(t, model.StageNegotiation, dc.Deal.Stage)
	assert.Equal(t, "c1", dc.Deal.ContactID)
	require.NotNil(t, dc.Contact)
	assert.Equal(t, "Acme Corp", dc.Contact.Name)
	require.Len(t, dc.Interactions, 1)
	assert.Equal(t, "met the CEO", dc.Interactions[0].Notes)
}

func TestSQLiteStore_GetDealContext_NoContact(t *testing.T) {
	s := newTestSQLiteStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	seedExec(t, s, `INSERT INTO deals (id, tenant_id, contact_id, name, value, stage, status, created_at, updated_at)
		VALUES (?, ?, NULL, ?, ?, ?, ?, ?, ?)`,
		"d1", "t1", "Unowned", 10_000.0, "demo", "open", now, now)

	dc, err := s.GetDealContext(context.Background(), "t1", "d1")
	require.NoError(t, err)
	assert.Empty(t, dc.Deal.ContactID)
	assert.Nil(t, dc.Contact)
}

func TestSQLiteStore_GetDealContext_NotFound(t *testing.T) {
	s := newTestSQLiteStore(t)
	_, err := s.GetDealContext(context.Background(), "t1", "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteStore_ListOpenDeals_FiltersStatusAndTenant(t *testing.T) {
	s := newTestSQLiteStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	seedExec(t, s, `INSERT INTO deals (id, tenant_id, name, value, stage, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		"d1", "t1", "Open", 10_000.0, "lead", "open", now, now)
	seedExec(t, s, `INSERT INTO deals (id, tenant_id, name, value, stage, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		"d2", "t1", "Won", 20_000.0, "closed-won", "won", now, now)
	seedExec(t, s, `INSERT INTO deals (id, tenant_id, name, value, stage, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		"d3", "t2", "Other tenant", 30_000.0, "lead", "open", now, now)

	deals, err := s.ListOpenDeals(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Equal(t, "d1", deals[0].ID)
}

func TestSQLiteStore_ListActiveContactIDs(t *testing.T) {
	s := newTestSQLiteStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	seedExec(t, s, `INSERT INTO contacts (id, tenant_id, stage, created_at) VALUES (?, ?, ?, ?)`, "c1", "t1", "active", now.Add(-2*time.Hour))
	seedExec(t, s, `INSERT INTO contacts (id, tenant_id, stage, created_at) VALUES (?, ?, ?, ?)`, "c2", "t1", "lead", now.Add(-time.Hour))
	seedExec(t, s, `INSERT INTO contacts (id, tenant_id, stage, created_at) VALUES (?, ?, ?, ?)`, "c3", "t1", "lost", now)
	seedExec(t, s, `INSERT INTO contacts (id, tenant_id, stage, created_at) VALUES (?, ?, ?, ?)`, "c4", "t1", "inactive", now)

	ids, err := s.ListActiveContactIDs(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, ids)
}

func TestSQLiteStore_ListDealsClosedBetween(t *testing.T) {
	s := newTestSQLiteStore(t)
	now := time.Now().UTC().Truncate(time.Second)
	from := now.AddDate(0, -1, 0)

	insert := func(id, status string, closedAt time.Time) {
		seedExec(t, s, `INSERT INTO deals (id, tenant_id, name, value, stage, status, actual_close_date, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, "t1", id, 10_000.0, "closed-won", status, closedAt, now, now)
	}
	insert("in-window-won", "won", now.AddDate(0, 0, -10))
	insert("in-window-lost", "lost", now.AddDate(0, 0, -20))
	insert("too-old", "won", now.AddDate(0, -2, 0))

	deals, err := s.ListDealsClosedBetween(context.Background(), "t1", from, now)
	require.NoError(t, err)
	require.Len(t, deals, 2)
}

func TestSQLiteStore_ListEmailsBetween_JoinsTracking(t *testing.T) {
	s := newTestSQLiteStore(t)
	now := time.Now().UTC().Truncate(time.Second)
	from := now.AddDate(0, 0, -30)

	seedExec(t, s, `INSERT INTO email_messages (id, tenant_id, contact_id, subject, created_at) VALUES (?, ?, ?, ?, ?)`,
		"m1", "t1", "c1", "Renewal terms", now.Add(-time.Hour))
	seedExec(t, s, `INSERT INTO email_tracking (message_id, opened_at) VALUES (?, ?)`, "m1", now.Add(-30*time.Minute))
	seedExec(t, s, `INSERT INTO email_messages (id, tenant_id, contact_id, created_at) VALUES (?, ?, ?, ?)`,
		"m2", "t1", "c1", now.AddDate(0, 0, -2))
	seedExec(t, s, `INSERT INTO email_messages (id, tenant_id, contact_id, created_at) VALUES (?, ?, ?, ?)`,
		"m3", "t1", "c1", now.AddDate(0, -2, 0))

	msgs, err := s.ListEmailsBetween(context.Background(), "t1", "c1", from, now)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "Renewal terms", msgs[0].Subject)
	assert.True(t, msgs[0].Opened())
	assert.False(t, msgs[1].Opened())
}

func TestSQLiteStore_LatestInteractionTimes(t *testing.T) {
	s := newTestSQLiteStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	seedExec(t, s, `INSERT INTO interactions (id, tenant_id, contact_id, type, created_at) VALUES (?, ?, ?, ?, ?)`,
		"i1", "t1", "c1", "call", now.AddDate(0, 0, -3))
	seedExec(t, s, `INSERT INTO interactions (id, tenant_id, contact_id, type, created_at) VALUES (?, ?, ?, ?, ?)`,
		"i2", "t1", "c1", "meeting", now.Add(-time.Hour))

	times, err := s.LatestInteractionTimes(context.Background(), "t1", []string{"c1", "c2"})
	require.NoError(t, err)
	require.Contains(t, times, "c1")
	assert.WithinDuration(t, now.Add(-time.Hour), times["c1"], time.Second)

	// Silent contacts are absent, not zero-valued.
	assert.NotContains(t, times, "c2")

	empty, err := s.LatestInteractionTimes(context.Background(), "t1", nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSQLiteStore_DailyPaidRevenue(t *testing.T) {
	s := newTestSQLiteStore(t)
	day := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	seedExec(t, s, `INSERT INTO invoices (id, tenant_id, total, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		"inv1", "t1", 1000.0, "paid", day)
	seedExec(t, s, `INSERT INTO invoices (id, tenant_id, total, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		"inv2", "t1", 500.0, "paid", day.Add(4*time.Hour))
	seedExec(t, s, `INSERT INTO invoices (id, tenant_id, total, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		"inv3", "t1", 900.0, "paid", day.AddDate(0, 0, 1))
	seedExec(t, s, `INSERT INTO invoices (id, tenant_id, total, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		"inv4", "t1", 9999.0, "draft", day)

	points, err := s.DailyPaidRevenue(context.Background(), "t1", day.AddDate(0, -1, 0))
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), points[0].Date)
	assert.InDelta(t, 1500, points[0].Revenue, 0.001)
	assert.InDelta(t, 900, points[1].Revenue, 0.001)
}
