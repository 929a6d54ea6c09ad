package experiment

import "github.com/leadpilot/leadpilot/internal/stats"

// Recommendation strings surfaced on a TestResult.
const (
	RecommendInsufficientData = "continue test — insufficient data"
	RecommendContinue         = "continue test"
	RecommendPromising        = "promising but needs more data"
)

// VariantReport carries a variant's aggregated counters and derived
// statistics for reporting.
type VariantReport struct {
	VariantID      int64
	Name           string
	Impressions    int64
	Clicks         int64
	Conversions    int64
	Revenue        float64
	ConversionRate float64         // percent
	Interval       *stats.Interval // nil until the sample-size gate passes
}

// TestResult is the outcome of evaluating a two-variant experiment.
type TestResult struct {
	ExperimentName string
	Variants       []VariantReport
	Winner         *string // variant name, set only at or above the confidence level
	Significance   float64 // (1 - pValue) * 100
	ZScore         float64
	PValue         float64
	Improvement    float64 // relative lift in percent over the lower-rate variant
	SampleSizeMet  bool
	Recommendation string
}
