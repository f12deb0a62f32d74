package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/crm-analytics/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It backs local
// development and single-tenant deployments; the query surface matches
// PostgresStore exactly.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
// Timestamps are stored in the ISO-8601 form sqlite's date functions read.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if !strings.Contains(dsn, "_time_format") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_time_format=sqlite"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS contacts (
	id         TEXT PRIMARY KEY,
	tenant_id  TEXT NOT NULL,
	name       TEXT NOT NULL DEFAULT '',
	stage      TEXT NOT NULL DEFAULT 'lead',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS deals (
	id                  TEXT PRIMARY KEY,
	tenant_id           TEXT NOT NULL,
	contact_id          TEXT,
	name                TEXT NOT NULL DEFAULT '',
	value               REAL NOT NULL DEFAULT 0,
	stage               TEXT NOT NULL DEFAULT 'lead',
	status              TEXT NOT NULL DEFAULT 'open',
	expected_close_date DATETIME,
	actual_close_date   DATETIME,
	created_at          DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at          DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS interactions (
	id         TEXT PRIMARY KEY,
	tenant_id  TEXT NOT NULL,
	contact_id TEXT NOT NULL,
	type       TEXT NOT NULL DEFAULT 'other',
	notes      TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS email_messages (
	id         TEXT PRIMARY KEY,
	tenant_id  TEXT NOT NULL,
	contact_id TEXT NOT NULL,
	subject    TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS email_tracking (
	message_id TEXT PRIMARY KEY REFERENCES email_messages(id),
	opened_at  DATETIME,
	clicked_at DATETIME
);

CREATE TABLE IF NOT EXISTS invoices (
	id         TEXT PRIMARY KEY,
	tenant_id  TEXT NOT NULL,
	contact_id TEXT,
	total      REAL NOT NULL DEFAULT 0,
	status     TEXT NOT NULL DEFAULT 'draft',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_contacts_tenant ON contacts(tenant_id, stage);
CREATE INDEX IF NOT EXISTS idx_deals_tenant_status ON deals(tenant_id, status);
CREATE INDEX IF NOT EXISTS idx_deals_tenant_contact ON deals(tenant_id, contact_id, created_at);
CREATE INDEX IF NOT EXISTS idx_interactions_tenant_contact ON interactions(tenant_id, contact_id, created_at);
CREATE INDEX IF NOT EXISTS idx_emails_tenant_contact ON email_messages(tenant_id, contact_id, created_at);
CREATE INDEX IF NOT EXISTS idx_invoices_tenant_status ON invoices(tenant_id, status, created_at);
`

// Migrate creates the tables the engine reads.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetContactHistory loads a contact with its recent deals and interactions.
func (s *SQLiteStore) GetContactHistory(ctx context.Context, tenantID, contactID string, interactionLimit int) (*ContactHistory, error) {
	if interactionLimit <= 0 {
		interactionLimit = 30
	}

	var h ContactHistory
	err := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, name, stage, created_at FROM contacts WHERE tenant_id = ? AND id = ?`,
		tenantID, contactID,
	).Scan(&h.Contact.ID, &h.Contact.TenantID, &h.Contact.Name, &h.Contact.Stage, &h.Contact.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "sqlite: get contact")
	}

	h.Deals, err = s.queryDeals(ctx,
		`SELECT id, tenant_id, contact_id, name, value, stage, status, expected_close_date, actual_close_date, created_at, updated_at
		 FROM deals WHERE tenant_id = ? AND contact_id = ? ORDER BY created_at DESC LIMIT 10`,
		tenantID, contactID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list contact deals")
	}

	h.Interactions, err = s.queryInteractions(ctx,
		`SELECT id, tenant_id, contact_id, type, COALESCE(notes, ''), created_at
		 FROM interactions WHERE tenant_id = ? AND contact_id = ? ORDER BY created_at DESC LIMIT ?`,
		tenantID, contactID, interactionLimit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list contact interactions")
	}

	return &h, nil
}

// GetDealContext loads a deal with its contact's recent interactions.
func (s *SQLiteStore) GetDealContext(ctx context.Context, tenantID, dealID string) (*DealContext, error) {
	var dc DealContext
	var contactID sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, contact_id, name, value, stage, status, expected_close_date, actual_close_date, created_at, updated_at
		 FROM deals WHERE tenant_id = ? AND id = ?`,
		tenantID, dealID,
	).Scan(&dc.Deal.ID, &dc.Deal.TenantID, &contactID, &dc.Deal.Name, &dc.Deal.Value, &dc.Deal.Stage,
		&dc.Deal.Status, &dc.Deal.ExpectedCloseDate, &dc.Deal.ActualCloseDate, &dc.Deal.CreatedAt, &dc.Deal.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "sqlite: get deal")
	}

	if !contactID.Valid {
		return &dc, nil
	}
	dc.Deal.ContactID = contactID.String

	var c model.Contact
	err = s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, name, stage, created_at FROM contacts WHERE tenant_id = ? AND id = ?`,
		tenantID, contactID.String,
	).Scan(&c.ID, &c.TenantID, &c.Name, &c.Stage, &c.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return &dc, nil
		}
		return nil, eris.Wrap(err, "sqlite: get deal contact")
	}
	dc.Contact = &c

	dc.Interactions, err = s.queryInteractions(ctx,
		`SELECT id, tenant_id, contact_id, type, COALESCE(notes, ''), created_at
		 FROM interactions WHERE tenant_id = ? AND contact_id = ? ORDER BY created_at DESC LIMIT 20`,
		tenantID, contactID.String)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list deal interactions")
	}

	return &dc, nil
}

// ListOpenDeals returns all deals still in play for the tenant.
func (s *SQLiteStore) ListOpenDeals(ctx context.Context, tenantID string) ([]model.Deal, error) {
	deals, err := s.queryDeals(ctx,
		`SELECT id, tenant_id, contact_id, name, value, stage, status, expected_close_date, actual_close_date, created_at, updated_at
		 FROM deals WHERE tenant_id = ? AND status = 'open' ORDER BY created_at DESC`,
		tenantID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list open deals")
	}
	return deals, nil
}

// ListActiveContactIDs returns ids of contacts not lost or inactive.
func (s *SQLiteStore) ListActiveContactIDs(ctx context.Context, tenantID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM contacts WHERE tenant_id = ? AND stage NOT IN ('lost', 'inactive') ORDER BY created_at`,
		tenantID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list active contacts")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan contact id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "sqlite: iterate contact ids")
}

// ListDealsClosedBetween returns deals that reached a terminal state in [from, to).
func (s *SQLiteStore) ListDealsClosedBetween(ctx context.Context, tenantID string, from, to time.Time) ([]model.Deal, error) {
	deals, err := s.queryDeals(ctx,
		`SELECT id, tenant_id, contact_id, name, value, stage, status, expected_close_date, actual_close_date, created_at, updated_at
		 FROM deals WHERE tenant_id = ? AND status IN ('won', 'lost')
		   AND actual_close_date >= ? AND actual_close_date < ?`,
		tenantID, from, to)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list closed deals")
	}
	return deals, nil
}

// ListEmailsBetween returns messages sent to the contact in [from, to).
func (s *SQLiteStore) ListEmailsBetween(ctx context.Context, tenantID, contactID string, from, to time.Time) ([]model.EmailMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.id, m.tenant_id, m.contact_id, COALESCE(m.subject, ''), t.opened_at, t.clicked_at, m.created_at
		 FROM email_messages m
		 LEFT JOIN email_tracking t ON t.message_id = m.id
		 WHERE m.tenant_id = ? AND m.contact_id = ? AND m.created_at >= ? AND m.created_at < ?
		 ORDER BY m.created_at DESC`,
		tenantID, contactID, from, to)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list emails")
	}
	defer rows.Close()

	var msgs []model.EmailMessage
	for rows.Next() {
		var m model.EmailMessage
		if err := rows.Scan(&m.ID, &m.TenantID, &m.ContactID, &m.Subject, &m.OpenedAt, &m.ClickedAt, &m.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan email")
		}
		msgs = append(msgs, m)
	}
	return msgs, eris.Wrap(rows.Err(), "sqlite: iterate emails")
}

// LatestInteractionTimes returns the most recent interaction timestamp per contact.
func (s *SQLiteStore) LatestInteractionTimes(ctx context.Context, tenantID string, contactIDs []string) (map[string]time.Time, error) {
	out := make(map[string]time.Time, len(contactIDs))
	if len(contactIDs) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(contactIDs)), ",")
	args := make([]any, 0, len(contactIDs)+1)
	args = append(args, tenantID)
	for _, id := range contactIDs {
		args = append(args, id)
	}

	// Aggregate columns lose their decltype, which the driver needs to
	// hand back time.Time, so order ascending and keep the last row
	// per contact instead of MAX().
	rows, err := s.db.QueryContext(ctx,
		`SELECT contact_id, created_at FROM interactions
		 WHERE tenant_id = ? AND contact_id IN (`+placeholders+`) ORDER BY created_at`,
		args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest interaction times")
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var ts time.Time
		if err := rows.Scan(&id, &ts); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan interaction time")
		}
		out[id] = ts
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate interaction times")
}

// DailyPaidRevenue aggregates paid invoice totals by calendar day.
func (s *SQLiteStore) DailyPaidRevenue(ctx context.Context, tenantID string, since time.Time) ([]model.RevenuePoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date(created_at), SUM(total) FROM invoices
		 WHERE tenant_id = ? AND status = 'paid' AND created_at >= ?
		 GROUP BY date(created_at) ORDER BY date(created_at)`,
		tenantID, since)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: daily paid revenue")
	}
	defer rows.Close()

	var points []model.RevenuePoint
	for rows.Next() {
		var day string
		var p model.RevenuePoint
		if err := rows.Scan(&day, &p.Revenue); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan revenue point")
		}
		p.Date, err = time.Parse("2006-01-02", day)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: parse revenue day %q", day)
		}
		points = append(points, p)
	}
	return points, eris.Wrap(rows.Err(), "sqlite: iterate revenue points")
}

func (s *SQLiteStore) queryDeals(ctx context.Context, query string, args ...any) ([]model.Deal, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deals []model.Deal
	for rows.Next() {
		var d model.Deal
		var contactID sql.NullString
		if err := rows.Scan(&d.ID, &d.TenantID, &contactID, &d.Name, &d.Value, &d.Stage, &d.Status,
			&d.ExpectedCloseDate, &d.ActualCloseDate, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		if contactID.Valid {
			d.ContactID = contactID.String
		}
		deals = append(deals, d)
	}
	return deals, rows.Err()
}

func (s *SQLiteStore) queryInteractions(ctx context.Context, query string, args ...any) ([]model.Interaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ints []model.Interaction
	for rows.Next() {
		var i model.Interaction
		if err := rows.Scan(&i.ID, &i.TenantID, &i.ContactID, &i.Type, &i.Notes, &i.CreatedAt); err != nil {
			return nil, err
		}
		ints = append(ints, i)
	}
	return ints, rows.Err()
}
