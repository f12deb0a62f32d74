// Package signal derives behavioral signals from raw CRM history. All
// functions are pure over entity slices with an explicit observation
// time, so scorers stay deterministic and testable.
package signal

import (
	"math"
	"time"

	"github.com/sells-group/crm-analytics/internal/model"
)

// Window is the trend comparison span. Recent is [now-30d, now), previous
// is [now-60d, now-30d).
const Window = 30 * 24 * time.Hour

// NoActivityAge is the sentinel age in days for contacts with no deal
// history at all.
const NoActivityAge = 999

// Round1 rounds to one decimal place, the precision all reported scores
// and factors carry.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// DeclineChange is the percent change from previous to recent used for
// risk factors. A silent contact with an empty recent window reads as a
// full decline; growth from a zero base is undefined and reads as flat.
func DeclineChange(recent, previous float64) float64 {
	if previous > 0 {
		return (recent - previous) / previous * 100
	}
	if recent == 0 {
		return -100
	}
	return 0
}

// GrowthChange is the percent change used for opportunity signals. Any
// activity from a zero base reads as full growth.
func GrowthChange(recent, previous float64) float64 {
	if previous > 0 {
		return (recent - previous) / previous * 100
	}
	if recent > 0 {
		return 100
	}
	return 0
}

// InteractionWindows counts interactions in the recent and previous
// comparison windows.
func InteractionWindows(interactions []model.Interaction, now time.Time) (recent, previous int) {
	cutRecent := now.Add(-Window)
	cutPrevious := now.Add(-2 * Window)
	for _, i := range interactions {
		switch {
		case !i.CreatedAt.Before(cutRecent):
			recent++
		case !i.CreatedAt.Before(cutPrevious):
			previous++
		}
	}
	return recent, previous
}

// OpenRate is the percentage of messages opened, 0 when there are none.
func OpenRate(emails []model.EmailMessage) float64 {
	if len(emails) == 0 {
		return 0
	}
	opened := 0
	for _, m := range emails {
		if m.Opened() {
			opened++
		}
	}
	return float64(opened) / float64(len(emails)) * 100
}

// SupportTickets counts support interactions in the recent window.
func SupportTickets(interactions []model.Interaction, now time.Time) int {
	cut := now.Add(-Window)
	n := 0
	for _, i := range interactions {
		if i.Type == model.InteractionSupport && !i.CreatedAt.Before(cut) {
			n++
		}
	}
	return n
}

// DealActivityAge is the age in days of the most recent deal update,
// or NoActivityAge when the contact has no deals. Deals are expected
// most-recent-first.
func DealActivityAge(deals []model.Deal, now time.Time) float64 {
	if len(deals) == 0 {
		return NoActivityAge
	}
	return now.Sub(deals[0].UpdatedAt).Hours() / 24
}

// DaysSince is the fractional day count from t to now, or NoActivityAge
// when t is zero.
func DaysSince(t time.Time, now time.Time) float64 {
	if t.IsZero() {
		return NoActivityAge
	}
	return now.Sub(t).Hours() / 24
}

// RecentCount counts interactions within the given number of days before now.
func RecentCount(interactions []model.Interaction, now time.Time, days int) int {
	cut := now.AddDate(0, 0, -days)
	n := 0
	for _, i := range interactions {
		if !i.CreatedAt.Before(cut) {
			n++
		}
	}
	return n
}

// DistinctTypes counts the distinct interaction types present, a proxy
// for breadth of product usage.
func DistinctTypes(interactions []model.Interaction) int {
	seen := make(map[model.InteractionType]struct{})
	for _, i := range interactions {
		if i.Type != "" {
			seen[i.Type] = struct{}{}
		}
	}
	return len(seen)
}
