package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/crm-analytics/internal/db"
	"github.com/sells-group/crm-analytics/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, maxConns, minConns int32) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	if maxConns <= 0 {
		maxConns = 10
	}
	if minConns <= 0 {
		minConns = 2
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool creates a PostgresStore from an existing pool.
// Used by tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close}
}

// GetContactHistory loads a contact with its recent deals and
// interactions, most recent first.
func (s *PostgresStore) GetContactHistory(ctx context.Context, tenantID, contactID string, interactionLimit int) (*ContactHistory, error) {
	if interactionLimit <= 0 {
		interactionLimit = 30
	}

	var h ContactHistory
	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, name, stage, created_at FROM contacts WHERE tenant_id = $1 AND id = $2`,
		tenantID, contactID,
	).Scan(&h.Contact.ID, &h.Contact.TenantID, &h.Contact.Name, &h.Contact.Stage, &h.Contact.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "postgres: get contact")
	}

	h.Deals, err = s.queryDeals(ctx,
		`SELECT id, tenant_id, contact_id, name, value, stage, status, expected_close_date, actual_close_date, created_at, updated_at
		 FROM deals WHERE tenant_id = $1 AND contact_id = $2 ORDER BY created_at DESC LIMIT 10`,
		tenantID, contactID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list contact deals")
	}

	h.Interactions, err = s.queryInteractions(ctx,
		`SELECT id, tenant_id, contact_id, type, COALESCE(notes, ''), created_at
		 FROM interactions WHERE tenant_id = $1 AND contact_id = $2 ORDER BY created_at DESC LIMIT $3`,
		tenantID, contactID, interactionLimit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list contact interactions")
	}

	return &h, nil
}

// GetDealContext loads a deal with its contact's recent interactions.
func (s *PostgresStore) GetDealContext(ctx context.Context, tenantID, dealID string) (*DealContext, error) {
	var dc DealContext
	var contactID *string
	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, contact_id, name, value, stage, status, expected_close_date, actual_close_date, created_at, updated_at
		 FROM deals WHERE tenant_id = $1 AND id = $2`,
		tenantID, dealID,
	).Scan(&dc.Deal.ID, &dc.Deal.TenantID, &contactID, &dc.Deal.Name, &dc.Deal.Value, &dc.Deal.Stage,
		&dc.Deal.Status, &dc.Deal.ExpectedCloseDate, &dc.Deal.ActualCloseDate, &dc.Deal.CreatedAt, &dc.Deal.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "postgres: get deal")
	}

	if contactID == nil {
		return &dc, nil
	}
	dc.Deal.ContactID = *contactID

	var c model.Contact
	err = s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, name, stage, created_at FROM contacts WHERE tenant_id = $1 AND id = $2`,
		tenantID, *contactID,
	).Scan(&c.ID, &c.TenantID, &c.Name, &c.Stage, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Dangling contact reference; score the deal without contact signals.
			return &dc, nil
		}
		return nil, eris.Wrap(err, "postgres: get deal contact")
	}
	dc.Contact = &c

	dc.Interactions, err = s.queryInteractions(ctx,
		`SELECT id, tenant_id, contact_id, type, COALESCE(notes, ''), created_at
		 FROM interactions WHERE tenant_id = $1 AND contact_id = $2 ORDER BY created_at DESC LIMIT 20`,
		tenantID, *contactID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list deal interactions")
	}

	return &dc, nil
}

// ListOpenDeals returns all deals still in play for the tenant.
func (s *PostgresStore) ListOpenDeals(ctx context.Context, tenantID string) ([]model.Deal, error) {
	deals, err := s.queryDeals(ctx,
		`SELECT id, tenant_id, contact_id, name, value, stage, status, expected_close_date, actual_close_date, created_at, updated_at
		 FROM deals WHERE tenant_id = $1 AND status = 'open' ORDER BY created_at DESC`,
		tenantID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list open deals")
	}
	return deals, nil
}

// ListActiveContactIDs returns ids of contacts not lost or inactive.
func (s *PostgresStore) ListActiveContactIDs(ctx context.Context, tenantID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM contacts WHERE tenant_id = $1 AND stage NOT IN ('lost', 'inactive') ORDER BY created_at`,
		tenantID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list active contacts")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan contact id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "postgres: iterate contact ids")
}

// ListDealsClosedBetween returns deals that reached a terminal state in
// [from, to).
func (s *PostgresStore) ListDealsClosedBetween(ctx context.Context, tenantID string, from, to time.Time) ([]model.Deal, error) {
	deals, err := s.queryDeals(ctx,
		`SELECT id, tenant_id, contact_id, name, value, stage, status, expected_close_date, actual_close_date, created_at, updated_at
		 FROM deals WHERE tenant_id = $1 AND status IN ('won', 'lost')
		   AND actual_close_date >= $2 AND actual_close_date < $3`,
		tenantID, from, to)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list closed deals")
	}
	return deals, nil
}

// ListEmailsBetween returns messages sent to the contact in [from, to),
// with open/click telemetry joined in.
func (s *PostgresStore) ListEmailsBetween(ctx context.Context, tenantID, contactID string, from, to time.Time) ([]model.EmailMessage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT m.id, m.tenant_id, m.contact_id, COALESCE(m.subject, ''), t.opened_at, t.clicked_at, m.created_at
		 FROM email_messages m
		 LEFT JOIN email_tracking t ON t.message_id = m.id
		 WHERE m.tenant_id = $1 AND m.contact_id = $2 AND m.created_at >= $3 AND m.created_at < $4
		 ORDER BY m.created_at DESC`,
		tenantID, contactID, from, to)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list emails")
	}
	defer rows.Close()

	var msgs []model.EmailMessage
	for rows.Next() {
		var m model.EmailMessage
		if err := rows.Scan(&m.ID, &m.TenantID, &m.ContactID, &m.Subject, &m.OpenedAt, &m.ClickedAt, &m.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan email")
		}
		msgs = append(msgs, m)
	}
	return msgs, eris.Wrap(rows.Err(), "postgres: iterate emails")
}

// LatestInteractionTimes returns the most recent interaction timestamp
// per contact. Contacts with no interactions are absent from the map.
func (s *PostgresStore) LatestInteractionTimes(ctx context.Context, tenantID string, contactIDs []string) (map[string]time.Time, error) {
	out := make(map[string]time.Time, len(contactIDs))
	if len(contactIDs) == 0 {
		return out, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT contact_id, MAX(created_at) FROM interactions
		 WHERE tenant_id = $1 AND contact_id = ANY($2) GROUP BY contact_id`,
		tenantID, contactIDs)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest interaction times")
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var ts time.Time
		if err := rows.Scan(&id, &ts); err != nil {
			return nil, eris.Wrap(err, "postgres: scan interaction time")
		}
		out[id] = ts
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate interaction times")
}

// DailyPaidRevenue aggregates paid invoice totals by calendar day.
func (s *PostgresStore) DailyPaidRevenue(ctx context.Context, tenantID string, since time.Time) ([]model.RevenuePoint, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT date_trunc('day', created_at)::date AS day, SUM(total)
		 FROM invoices WHERE tenant_id = $1 AND status = 'paid' AND created_at >= $2
		 GROUP BY day ORDER BY day`,
		tenantID, since)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: daily paid revenue")
	}
	defer rows.Close()

	var points []model.RevenuePoint
	for rows.Next() {
		var p model.RevenuePoint
		if err := rows.Scan(&p.Date, &p.Revenue); err != nil {
			return nil, eris.Wrap(err, "postgres: scan revenue point")
		}
		points = append(points, p)
	}
	return points, eris.Wrap(rows.Err(), "postgres: iterate revenue points")
}

// Migrate creates the tables the engine reads. In production these are
// owned by the CRM modules; this exists for local and test databases.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return eris.Wrap(err, "postgres: migrate")
		}
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS contacts (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		stage TEXT NOT NULL DEFAULT 'lead',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_contacts_tenant ON contacts (tenant_id, stage)`,
	`CREATE TABLE IF NOT EXISTS deals (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		contact_id TEXT,
		name TEXT NOT NULL DEFAULT '',
		value NUMERIC NOT NULL DEFAULT 0 CHECK (value >= 0),
		stage TEXT NOT NULL DEFAULT 'lead',
		status TEXT NOT NULL DEFAULT 'open',
		expected_close_date TIMESTAMPTZ,
		actual_close_date TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_deals_tenant_status ON deals (tenant_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_deals_tenant_contact ON deals (tenant_id, contact_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS interactions (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		contact_id TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT 'other',
		notes TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_interactions_tenant_contact ON interactions (tenant_id, contact_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS email_messages (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		contact_id TEXT NOT NULL,
		subject TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_emails_tenant_contact ON email_messages (tenant_id, contact_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS email_tracking (
		message_id TEXT PRIMARY KEY REFERENCES email_messages (id),
		opened_at TIMESTAMPTZ,
		clicked_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		contact_id TEXT,
		total NUMERIC NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'draft',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_tenant_status ON invoices (tenant_id, status, created_at)`,
}

func (s *PostgresStore) queryDeals(ctx context.Context, sql string, args ...any) ([]model.Deal, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deals []model.Deal
	for rows.Next() {
		var d model.Deal
		var contactID *string
		if err := rows.Scan(&d.ID, &d.TenantID, &contactID, &d.Name, &d.Value, &d.Stage, &d.Status,
			&d.ExpectedCloseDate, &d.ActualCloseDate, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		if contactID != nil {
			d.ContactID = *contactID
		}
		deals = append(deals, d)
	}
	return deals, rows.Err()
}

func (s *PostgresStore) queryInteractions(ctx context.Context, sql string, args ...any) ([]model.Interaction, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
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
