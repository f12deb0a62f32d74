// Package store defines the read contract the analytics engine consumes
// from the persistent CRM store, plus Postgres and SQLite backends.
// Every query is tenant-scoped; cross-tenant leakage is a correctness
// violation, so no method accepts an entity id without a tenant id.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crm-analytics/internal/model"
)

// ErrNotFound is returned when a referenced contact or deal does not
// exist for the given tenant. It is surfaced to the immediate caller
// and never retried.
var ErrNotFound = eris.New("store: not found")

// ContactHistory is a contact with the recent history the scorers read.
// Deals and interactions are ordered most-recent-first.
type ContactHistory struct {
	Contact      model.Contact
	Deals        []model.Deal
	Interactions []model.Interaction
}

// DealContext is a deal with its contact's recent interactions,
// ordered most-recent-first. Contact is nil for contactless deals.
type DealContext struct {
	Deal         model.Deal
	Contact      *model.Contact
	Interactions []model.Interaction
}

// Store is the persistence contract for the analytics engine. All
// reads recompute from current data; nothing here caches or mutates
// domain state.
type Store interface {
	// Entity reads
	GetContactHistory(ctx context.Context, tenantID, contactID string, interactionLimit int) (*ContactHistory, error)
	GetDealContext(ctx context.Context, tenantID, dealID string) (*DealContext, error)

	// Tenant-wide reads
	ListOpenDeals(ctx context.Context, tenantID string) ([]model.Deal, error)
	ListActiveContactIDs(ctx context.Context, tenantID string) ([]string, error)
	ListDealsClosedBetween(ctx context.Context, tenantID string, from, to time.Time) ([]model.Deal, error)

	// Engagement reads
	ListEmailsBetween(ctx context.Context, tenantID, contactID string, from, to time.Time) ([]model.EmailMessage, error)
	LatestInteractionTimes(ctx context.Context, tenantID string, contactIDs []string) (map[string]time.Time, error)

	// Revenue reads
	DailyPaidRevenue(ctx context.Context, tenantID string, since time.Time) ([]model.RevenuePoint, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
