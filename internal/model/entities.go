// Package model holds the tenant-scoped CRM entities the analytics engine
// reads and the computed value objects it returns. Entities are owned and
// mutated by the CRM modules; everything here is read-only to the engine.
package model

import "time"

// ContactStage is the lifecycle stage of a contact.
type ContactStage string

const (
	ContactStageLead     ContactStage = "lead"
	ContactStageActive   ContactStage = "active"
	ContactStageInactive ContactStage = "inactive"
	ContactStageLost     ContactStage = "lost"
)

// DealStage is the ordered lifecycle phase of a deal. Stages normally
// advance monotonically, but regressions occur and must be tolerated.
type DealStage string

const (
	StageLead        DealStage = "lead"
	StageContacted   DealStage = "contacted"
	StageDemo        DealStage = "demo"
	StageProposal    DealStage = "proposal"
	StageNegotiation DealStage = "negotiation"
	StageClosedWon   DealStage = "closed-won"
	StageClosedLost  DealStage = "closed-lost"
)

// DealStatus is the open/terminal state of a deal.
type DealStatus string

const (
	DealStatusOpen DealStatus = "open"
	DealStatusWon  DealStatus = "won"
	DealStatusLost DealStatus = "lost"
)

// InteractionType classifies a timestamped contact event.
type InteractionType string

const (
	InteractionMeeting InteractionType = "meeting"
	InteractionCall    InteractionType = "call"
	InteractionSupport InteractionType = "support"
	InteractionOther   InteractionType = "other"
)

// InvoiceStatus is the billing state of an invoice. Only paid invoices
// feed historical revenue.
type InvoiceStatus string

const (
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceSent    InvoiceStatus = "sent"
	InvoiceOverdue InvoiceStatus = "overdue"
	InvoiceDraft   InvoiceStatus = "draft"
)

// Contact is a person or organization record, the aggregate root for
// engagement signals.
type Contact struct {
	ID        string       `json:"id"`
	TenantID  string       `json:"tenant_id"`
	Name      string       `json:"name"`
	Stage     ContactStage `json:"stage"`
	CreatedAt time.Time    `json:"created_at"`
}

// Deal is a sales opportunity owned by a contact.
type Deal struct {
	ID                string     `json:"id"`
	TenantID          string     `json:"tenant_id"`
	ContactID         string     `json:"contact_id,omitempty"`
	Name              string     `json:"name"`
	Value             float64    `json:"value"`
	Stage             DealStage  `json:"stage"`
	Status            DealStatus `json:"status"`
	ExpectedCloseDate *time.Time `json:"expected_close_date,omitempty"`
	ActualCloseDate   *time.Time `json:"actual_close_date,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Open reports whether the deal is still in play.
func (d Deal) Open() bool {
	return d.Status == DealStatusOpen
}

// Interaction is a timestamped event on a contact. Free-text notes are
// the only substitute for structured telemetry, so the signal layer
// infers signals from them by substring matching.
type Interaction struct {
	ID        string          `json:"id"`
	TenantID  string          `json:"tenant_id"`
	ContactID string          `json:"contact_id"`
	Type      InteractionType `json:"type"`
	Notes     string          `json:"notes,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// EmailMessage is an outbound message to a contact with its open/click
// telemetry flattened in (one tracking record per message).
type EmailMessage struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"tenant_id"`
	ContactID string     `json:"contact_id"`
	Subject   string     `json:"subject,omitempty"`
	OpenedAt  *time.Time `json:"opened_at,omitempty"`
	ClickedAt *time.Time `json:"clicked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Opened reports whether the message was ever opened.
func (m EmailMessage) Opened() bool { return m.OpenedAt != nil }

// Invoice is a billed record. Total is in the tenant's currency.
type Invoice struct {
	ID        string        `json:"id"`
	TenantID  string        `json:"tenant_id"`
	ContactID string        `json:"contact_id,omitempty"`
	Total     float64       `json:"total"`
	Status    InvoiceStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

// RevenuePoint is one day of aggregated paid-invoice revenue.
type RevenuePoint struct {
	Date    time.Time `json:"date"`
	Revenue float64   `json:"revenue"`
}

// NextStage maps each open stage to the stage a ready-to-move deal
// should advance to.
var NextStage = map[DealStage]DealStage{
	StageLead:        StageContacted,
	StageContacted:   StageDemo,
	StageDemo:        StageProposal,
	StageProposal:    StageNegotiation,
	StageNegotiation: StageClosedWon,
}
