package signal

import (
	"strings"

	"github.com/sells-group/crm-analytics/internal/model"
)

// Source extracts qualitative buying signals from interaction history.
// The default implementation infers them from free-text notes; richer
// implementations can plug in call transcripts or product telemetry.
type Source interface {
	// CEOEngagement reports an executive-level meeting.
	CEOEngagement(interactions []model.Interaction) bool
	// StakeholderMentions counts distinct notes referencing additional
	// stakeholders or decision makers.
	StakeholderMentions(interactions []model.Interaction) int
	// CompetitorMention reports whether a competitor or alternative came up.
	CompetitorMention(interactions []model.Interaction) bool
	// BudgetConfirmed reports a note confirming an approved budget.
	BudgetConfirmed(interactions []model.Interaction) bool
	// TeamMentions counts notes referencing the customer's team or members.
	TeamMentions(interactions []model.Interaction) int
}

// NoteMatcher infers signals by case-insensitive substring matching over
// interaction notes. Notes are the only telemetry most tenants have.
type NoteMatcher struct{}

var _ Source = NoteMatcher{}

func (NoteMatcher) CEOEngagement(interactions []model.Interaction) bool {
	for _, i := range interactions {
		if i.Type == model.InteractionMeeting && strings.Contains(normalizeNote(i.Notes), "ceo") {
			return true
		}
	}
	return false
}

func (NoteMatcher) StakeholderMentions(interactions []model.Interaction) int {
	seen := make(map[string]struct{})
	for _, i := range interactions {
		n := normalizeNote(i.Notes)
		if strings.Contains(n, "stakeholder") || strings.Contains(n, "decision maker") {
			seen[n] = struct{}{}
		}
	}
	return len(seen)
}

func (NoteMatcher) CompetitorMention(interactions []model.Interaction) bool {
	for _, i := range interactions {
		n := normalizeNote(i.Notes)
		if strings.Contains(n, "competitor") || strings.Contains(n, "alternative") {
			return true
		}
	}
	return false
}

func (NoteMatcher) BudgetConfirmed(interactions []model.Interaction) bool {
	for _, i := range interactions {
		n := normalizeNote(i.Notes)
		if strings.Contains(n, "budget") && strings.Contains(n, "approved") {
			return true
		}
	}
	return false
}

func (NoteMatcher) TeamMentions(interactions []model.Interaction) int {
	n := 0
	for _, i := range interactions {
		note := normalizeNote(i.Notes)
		if strings.Contains(note, "team") || strings.Contains(note, "member") {
			n++
		}
	}
	return n
}

// normalizeNote lowercases and collapses whitespace so matching is
// stable across note formatting.
func normalizeNote(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
