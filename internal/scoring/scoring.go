// Package scoring implements the deal closure, churn risk, and upsell
// opportunity scorers. Scores are heuristic and recomputed from current
// store data on every call; nothing here persists state.
package scoring

import "fmt"

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func pct(v float64) string {
	return fmt.Sprintf("%.0f", v)
}
