package stats

import "math"

// Interval is a confidence interval in percentage points, [0, 100].
type Interval struct {
	Lower float64
	Upper float64
}

// ConfidenceInterval computes the Wald interval for a binomial
// proportion at the given confidence level (percent, exclusive 0-100).
// Bounds are expressed as percentages and clamped to [0, 100].
// Returns ErrInsufficientData for zero impressions and ErrDomain for a
// level outside (0, 100).
func ConfidenceInterval(conversions, impressions int, confidenceLevel float64) (Interval, error) {
	if impressions == 0 {
		return Interval{}, ErrInsufficientData
	}
	if confidenceLevel <= 0 || confidenceLevel >= 100 {
		return Interval{}, ErrDomain
	}

	z, err := Probit((1 + confidenceLevel/100) / 2)
	if err != nil {
		return Interval{}, err
	}

	p := float64(conversions) / float64(impressions)
	n := float64(impressions)
	margin := z * math.Sqrt(p*(1-p)/n)

	lower := (p - margin) * 100
	upper := (p + margin) * 100
	if lower < 0 {
		lower = 0
	}
	if upper > 100 {
		upper = 100
	}

	return Interval{Lower: lower, Upper: upper}, nil
}
