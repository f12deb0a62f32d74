package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/crm-analytics/internal/model"
)

func note(typ model.InteractionType, text string) model.Interaction {
	return model.Interaction{Type: typ, Notes: text}
}

func TestNoteMatcher_CEOEngagement(t *testing.T) {
	m := NoteMatcher{}

	assert.True(t, m.CEOEngagement([]model.Interaction{
		note(model.InteractionMeeting, "Met with the CEO about rollout"),
	}))

	// Matching is case-insensitive.
	assert.True(t, m.CEOEngagement([]model.Interaction{
		note(model.InteractionMeeting, "ceo joined the demo"),
	}))

	// Only meetings count.
	assert.False(t, m.CEOEngagement([]model.Interaction{
		note(model.InteractionCall, "CEO was mentioned on the call"),
	}))

	assert.False(t, m.CEOEngagement(nil))
}

func TestNoteMatcher_StakeholderMentions_DistinctNotes(t *testing.T) {
	m := NoteMatcher{}

	interactions := []model.Interaction{
		note(model.InteractionCall, "Stakeholder review with finance"),
		note(model.InteractionCall, "stakeholder   review with finance"), // same after normalization
		note(model.InteractionMeeting, "Met the decision maker"),
		note(model.InteractionCall, "routine check-in"),
	}
	assert.Equal(t, 2, m.StakeholderMentions(interactions))
}

func TestNoteMatcher_CompetitorMention(t *testing.T) {
	m := NoteMatcher{}

	assert.True(t, m.CompetitorMention([]model.Interaction{
		note(model.InteractionCall, "They are evaluating an ALTERNATIVE vendor"),
	}))
	assert.True(t, m.CompetitorMention([]model.Interaction{
		note(model.InteractionCall, "Competitor came up in pricing talk"),
	}))
	assert.False(t, m.CompetitorMention([]model.Interaction{
		note(model.InteractionCall, "pricing talk"),
	}))
}

func TestNoteMatcher_BudgetConfirmed_RequiresBothTerms(t *testing.T) {
	m := NoteMatcher{}

	assert.True(t, m.BudgetConfirmed([]model.Interaction{
		note(model.InteractionCall, "Budget approved by finance"),
	}))
	assert.False(t, m.BudgetConfirmed([]model.Interaction{
		note(model.InteractionCall, "Discussed budget range"),
	}))
	assert.False(t, m.BudgetConfirmed([]model.Interaction{
		note(model.InteractionCall, "Proposal approved for review"),
	}))
}

func TestNoteMatcher_TeamMentions_CountsEveryNote(t *testing.T) {
	m := NoteMatcher{}

	interactions := []model.Interaction{
		note(model.InteractionCall, "Their team wants onboarding"),
		note(model.InteractionCall, "Added two members to the pilot"),
		note(model.InteractionCall, "no relevant content"),
	}
	assert.Equal(t, 2, m.TeamMentions(interactions))
}
