package stats

import (
	"errors"
	"math"
)

// ErrInsufficientData is returned when a computation has no observations
// to work with, e.g. zero impressions on either side of a z-test.
var ErrInsufficientData = errors.New("insufficient data")

// ZTest holds the outcome of a two-proportion z-test.
type ZTest struct {
	ZScore float64
	PValue float64 // two-tailed
}

// PooledZTest performs a two-proportion z-test with pooled variance.
// A positive z-score favors the first group. Returns ErrInsufficientData
// when either impression count is zero; never returns NaN or Inf.
func PooledZTest(convA, impA, convB, impB int) (ZTest, error) {
	if impA == 0 || impB == 0 {
		return ZTest{}, ErrInsufficientData
	}

	pA := float64(convA) / float64(impA)
	pB := float64(convB) / float64(impB)

	// Pooled proportion under the null hypothesis pA = pB
	pooled := float64(convA+convB) / float64(impA+impB)
	se := math.Sqrt(pooled * (1 - pooled) * (1/float64(impA) + 1/float64(impB)))

	// Identical degenerate proportions (all converted or none did)
	if se == 0 {
		return ZTest{ZScore: 0, PValue: 1}, nil
	}

	z := (pA - pB) / se
	p := 2 * (1 - StandardNormalCDF(math.Abs(z)))
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}

	return ZTest{ZScore: z, PValue: p}, nil
}
