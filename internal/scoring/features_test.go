package scoring_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadpilot/leadpilot/internal/scoring"
	"github.com/leadpilot/leadpilot/internal/store"
)

func TestNormalized(t *testing.T) {
	tests := []struct {
		name  string
		value scoring.FeatureValue
		want  float64
	}{
		{"number mid-scale", scoring.Number(50), 0.5},
		{"number clamps high", scoring.Number(150), 1},
		{"number clamps low", scoring.Number(-5), 0},
		{"boolean true", scoring.Boolean(true), 1},
		{"boolean false", scoring.Boolean(false), 0},
		{"list half", scoring.List(5), 0.5},
		{"list saturates", scoring.List(25), 1},
		{"list empty", scoring.List(0), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.value.Normalized(), 1e-9)
		})
	}
}

func TestExtract_SeniorityOrdering(t *testing.T) {
	titles := []string{
		"CEO",
		"Vice President of Sales",
		"Director of Marketing",
		"Engineering Manager",
		"Senior Engineer",
		"Account Coordinator",
	}

	scores := make([]float64, len(titles))
	for i, title := range titles {
		v := scoring.Extract(&store.Lead{JobTitle: title})
		fv, ok := v[scoring.FeatureSeniority]
		require.True(t, ok, "title %q must produce a seniority feature", title)
		scores[i] = fv.Number
	}

	for i := 1; i < len(scores); i++ {
		assert.Greater(t, scores[i-1], scores[i],
			"%q must outrank %q", titles[i-1], titles[i])
	}
}

func TestExtract_VicePresidentTitles(t *testing.T) {
	seniority := func(title string) float64 {
		v := scoring.Extract(&store.Lead{JobTitle: title})
		fv, ok := v[scoring.FeatureSeniority]
		require.True(t, ok)
		return fv.Number
	}

	abbreviated := seniority("VP of Sales")
	spelledOut := seniority("Vice President of Sales")

	assert.Equal(t, abbreviated, spelledOut, "both VP spellings land in the same tier")
	assert.Less(t, spelledOut, seniority("President"),
		"a vice president must not match the executive tier through the president substring")
}

func TestExtract_EmptyTitleAbsent(t *testing.T) {
	v := scoring.Extract(&store.Lead{JobTitle: "   "})
	_, ok := v[scoring.FeatureSeniority]
	assert.False(t, ok)
}

func TestExtract_CompanySizeBands(t *testing.T) {
	counts := []int{1, 9, 10, 49, 50, 199, 200, 999, 1000, 50000}

	prev := -1.0
	for _, n := range counts {
		v := scoring.Extract(&store.Lead{EmployeeCount: n})
		fv, ok := v[scoring.FeatureCompanySize]
		require.True(t, ok, "employee count %d must produce a feature", n)
		assert.GreaterOrEqual(t, fv.Number, prev, "bands must be non-decreasing at %d", n)
		prev = fv.Number
	}

	// Unknown headcount is absent, not a low score
	v := scoring.Extract(&store.Lead{EmployeeCount: 0})
	_, ok := v[scoring.FeatureCompanySize]
	assert.False(t, ok)
}

func TestExtract_IndustryTiers(t *testing.T) {
	get := func(industry string) float64 {
		v := scoring.Extract(&store.Lead{Industry: industry})
		fv, ok := v[scoring.FeatureIndustry]
		require.True(t, ok)
		return fv.Number
	}

	high := get("SaaS")
	medium := get("Retail")
	other := get("Agriculture")

	assert.Greater(t, high, medium)
	assert.Greater(t, medium, other)
	assert.Positive(t, other, "unrecognized industries still score, just low")

	v := scoring.Extract(&store.Lead{})
	_, ok := v[scoring.FeatureIndustry]
	assert.False(t, ok)
}

func TestExtract_ContactQuality(t *testing.T) {
	tests := []struct {
		name string
		lead store.Lead
		want float64
	}{
		{"business email and phone", store.Lead{Email: "ada@acme.io", Phone: "+1 555 0100"}, 100},
		{"business email only", store.Lead{Email: "ada@acme.io"}, 70},
		{"free email only", store.Lead{Email: "ada@gmail.com"}, 40},
		{"phone only", store.Lead{Phone: "+1 555 0100"}, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := scoring.Extract(&tt.lead)
			fv, ok := v[scoring.FeatureContactQuality]
			require.True(t, ok)
			assert.InDelta(t, tt.want, fv.Number, 1e-9)
		})
	}

	v := scoring.Extract(&store.Lead{})
	_, ok := v[scoring.FeatureContactQuality]
	assert.False(t, ok, "no contact data means absent, not zero")
}

func TestExtract_IntentAndInteractions(t *testing.T) {
	v := scoring.Extract(&store.Lead{
		IntentSignals:    []string{"pricing-page", "demo-request"},
		InteractionCount: 4,
	})

	intent, ok := v[scoring.FeatureBuyingIntent]
	require.True(t, ok)
	assert.InDelta(t, 0.2, intent.Normalized(), 1e-9)

	history, ok := v[scoring.FeatureInteractionHistory]
	require.True(t, ok)
	assert.InDelta(t, 0.4, history.Normalized(), 1e-9)

	empty := scoring.Extract(&store.Lead{})
	_, ok = empty[scoring.FeatureBuyingIntent]
	assert.False(t, ok)
	_, ok = empty[scoring.FeatureInteractionHistory]
	assert.False(t, ok)
}

func TestExtract_EngagementNotProduced(t *testing.T) {
	v := scoring.Extract(&store.Lead{
		Email:            "ada@acme.io",
		JobTitle:         "CEO",
		Industry:         "SaaS",
		Department:       "Sales",
		EmployeeCount:    500,
		IntentSignals:    []string{"webinar"},
		InteractionCount: 2,
	})

	_, ok := v[scoring.FeatureEmailEngagement]
	assert.False(t, ok)
	_, ok = v[scoring.FeatureWebsiteEngagement]
	assert.False(t, ok)
}

func TestValidateWeights(t *testing.T) {
	assert.Error(t, scoring.ValidateWeights(nil))
	assert.Error(t, scoring.ValidateWeights(map[string]float64{}))
	assert.Error(t, scoring.ValidateWeights(map[string]float64{"astrology": 1}))
	assert.Error(t, scoring.ValidateWeights(map[string]float64{scoring.FeatureSeniority: -0.5}))

	assert.NoError(t, scoring.ValidateWeights(map[string]float64{
		scoring.FeatureSeniority: 2,
		scoring.FeatureIndustry:  1,
	}))
}
