package forecast

import (
	"context"
	"math"
	"time"

	"github.com/sells-group/crm-analytics/internal/model"
)

// Z-scores for the fixed-width confidence bands.
const (
	z80 = 1.28
	z95 = 1.96
)

const dateLayout = "2006-01-02"

// LocalTrendModel is the built-in fallback: a moving-average window
// with an ordinary least-squares trend extrapolated over the horizon.
// It always succeeds, so a caller can rely on getting a usable curve.
type LocalTrendModel struct {
	nowFunc func() time.Time
}

// NewLocalTrendModel creates the built-in model.
func NewLocalTrendModel() *LocalTrendModel {
	return &LocalTrendModel{nowFunc: time.Now}
}

func (*LocalTrendModel) Name() string { return "moving_average_trend" }

// Forecast extrapolates the trend of the last 30 days (or all history
// when shorter). Zero history yields an all-zero curve with zero
// confidence.
func (m *LocalTrendModel) Forecast(_ context.Context, _ string, history []model.RevenuePoint, horizonDays int) (*model.ForecastResult, error) {
	forecast := make([]float64, horizonDays)
	dates := make([]string, horizonDays)

	start := m.nowFunc()
	if len(history) > 0 {
		start = history[len(history)-1].Date
	}
	for i := 0; i < horizonDays; i++ {
		dates[i] = start.AddDate(0, 0, i+1).Format(dateLayout)
	}

	confidence := 0.0
	var windowStdDev float64
	if len(history) > 0 {
		window := history
		if len(window) > 30 {
			window = window[len(window)-30:]
		}

		mean, stdDev := meanStdDev(revenues(window))
		windowStdDev = stdDev

		slope, intercept := olsFit(revenues(window))
		for i := 0; i < horizonDays; i++ {
			v := intercept + slope*float64(len(window)+i+1)
			if v < 0 {
				v = 0
			}
			forecast[i] = v
		}

		cv := 1.0
		if mean > 0 {
			cv = stdDev / mean
		}
		confidence = math.Max(0, math.Min(1, 1-cv))
	}

	return &model.ForecastResult{
		Forecast:            forecast,
		Dates:               dates,
		Confidence:          confidence,
		ConfidenceIntervals: intervals(forecast, windowStdDev),
		Summary:             summarize(forecast, history),
		ModelsUsed:          []string{m.Name()},
	}, nil
}

// olsFit returns the least-squares slope and intercept of ys over the
// index 0..n-1. A single point has no trend.
func olsFit(ys []float64) (slope, intercept float64) {
	n := float64(len(ys))
	if len(ys) == 0 {
		return 0, 0
	}

	var sumX, sumY, sumXY, sumX2 float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}

	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

func meanStdDev(ys []float64) (mean, stdDev float64) {
	if len(ys) == 0 {
		return 0, 0
	}
	for _, y := range ys {
		mean += y
	}
	mean /= float64(len(ys))

	var variance float64
	for _, y := range ys {
		d := y - mean
		variance += d * d
	}
	variance /= float64(len(ys))
	return mean, math.Sqrt(variance)
}

func revenues(points []model.RevenuePoint) []float64 {
	ys := make([]float64, len(points))
	for i, p := range points {
		ys[i] = p.Revenue
	}
	return ys
}

// intervals builds fixed-z bands around the curve; lower bounds are
// floored at zero because revenue cannot be negative.
func intervals(forecast []float64, stdDev float64) model.ConfidenceIntervals {
	ci := model.ConfidenceIntervals{
		Lower80: make([]float64, len(forecast)),
		Upper80: make([]float64, len(forecast)),
		Lower95: make([]float64, len(forecast)),
		Upper95: make([]float64, len(forecast)),
	}
	for i, f := range forecast {
		ci.Lower80[i] = math.Max(0, f-z80*stdDev)
		ci.Upper80[i] = f + z80*stdDev
		ci.Lower95[i] = math.Max(0, f-z95*stdDev)
		ci.Upper95[i] = f + z95*stdDev
	}
	return ci
}

// summarize totals the curve and compares its daily average to the
// trailing 7-day historical average.
func summarize(forecast []float64, history []model.RevenuePoint) model.ForecastSummary {
	var total float64
	for _, f := range forecast {
		total += f
	}
	dailyAverage := 0.0
	if len(forecast) > 0 {
		dailyAverage = total / float64(len(forecast))
	}

	recent := history
	if len(recent) > 7 {
		recent = recent[len(recent)-7:]
	}
	var currentAvg float64
	if len(recent) > 0 {
		for _, p := range recent {
			currentAvg += p.Revenue
		}
		currentAvg /= float64(len(recent))
	}

	vsCurrent := 0.0
	if currentAvg > 0 {
		vsCurrent = (dailyAverage - currentAvg) / currentAvg * 100
	}

	return model.ForecastSummary{
		TotalHorizon:        total,
		DailyAverage:        dailyAverage,
		ProjectionVsCurrent: vsCurrent,
	}
}
