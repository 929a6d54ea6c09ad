package scoring_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadpilot/leadpilot/internal/scoring"
	"github.com/leadpilot/leadpilot/internal/store"
	"github.com/leadpilot/leadpilot/internal/testutil"
)

func newScoringEngine(t *testing.T, opts ...scoring.Option) (*scoring.Engine, *store.SQLiteStore) {
	t.Helper()
	s := testutil.SetupStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return scoring.NewEngine(s, logger, opts...), s
}

func createLead(t *testing.T, s *store.SQLiteStore, lead *store.Lead) *store.Lead {
	t.Helper()
	require.NoError(t, s.CreateLead(context.Background(), lead))
	return lead
}

func createAlgorithm(t *testing.T, s *store.SQLiteStore, weights map[string]float64, thresholds store.Thresholds) *store.ScoringAlgorithm {
	t.Helper()
	alg := &store.ScoringAlgorithm{
		Name:       "default",
		Active:     true,
		Weights:    weights,
		Thresholds: thresholds,
	}
	require.NoError(t, s.CreateAlgorithm(context.Background(), alg))
	return alg
}

func TestScore_SingleFeatureAtMax(t *testing.T) {
	e, s := newScoringEngine(t)
	ctx := context.Background()

	lead := createLead(t, s, &store.Lead{JobTitle: "CEO"})
	createAlgorithm(t, s, map[string]float64{scoring.FeatureSeniority: 1}, store.Thresholds{Hot: 80, Warm: 50})

	result, err := e.Score(ctx, lead.ID, "default")
	require.NoError(t, err)

	assert.InDelta(t, 100.0, result.Score, 1e-9)
	assert.InDelta(t, 1.0, result.Confidence, 1e-9, "boost saturates confidence at 1")
	assert.Equal(t, "hot", result.Category)
}

func TestScore_AbsentFeaturesExcluded(t *testing.T) {
	e, s := newScoringEngine(t)
	ctx := context.Background()

	// email_engagement is never produced; it must not drag the score down
	lead := createLead(t, s, &store.Lead{JobTitle: "CEO"})
	createAlgorithm(t, s, map[string]float64{
		scoring.FeatureSeniority:       1,
		scoring.FeatureEmailEngagement: 1,
	}, store.Thresholds{Hot: 80, Warm: 50})

	result, err := e.Score(ctx, lead.ID, "default")
	require.NoError(t, err)

	assert.InDelta(t, 100.0, result.Score, 1e-9, "absent feature excluded from the denominator")
	assert.InDelta(t, 0.6, result.Confidence, 1e-9, "1 of 2 features present, boosted by 1.2")
	assert.NotContains(t, result.Features, scoring.FeatureEmailEngagement)
}

func TestScore_NoPresentFeatures(t *testing.T) {
	e, s := newScoringEngine(t)
	ctx := context.Background()

	lead := createLead(t, s, &store.Lead{})
	createAlgorithm(t, s, map[string]float64{scoring.FeatureEmailEngagement: 1}, store.Thresholds{Hot: 80, Warm: 50})

	result, err := e.Score(ctx, lead.ID, "default")
	require.NoError(t, err)

	assert.Zero(t, result.Score)
	assert.Zero(t, result.Confidence)
	assert.Equal(t, "cold", result.Category)
	assert.Contains(t, result.Explanation.Summary, "no weighted features")
}

func TestScore_WeightedMix(t *testing.T) {
	e, s := newScoringEngine(t)
	ctx := context.Background()

	// seniority 85 (0.85), industry 90 (0.9); weights 2:1
	// score = (0.85*2 + 0.9*1) / 3 * 100 = 86.67
	lead := createLead(t, s, &store.Lead{JobTitle: "VP of Sales", Industry: "SaaS"})
	createAlgorithm(t, s, map[string]float64{
		scoring.FeatureSeniority: 2,
		scoring.FeatureIndustry:  1,
	}, store.Thresholds{Hot: 75, Warm: 45})

	result, err := e.Score(ctx, lead.ID, "default")
	require.NoError(t, err)

	assert.InDelta(t, 86.67, result.Score, 0.01)
	assert.Equal(t, "hot", result.Category)
	assert.InDelta(t, 0.85, result.Features[scoring.FeatureSeniority], 1e-9)
	assert.InDelta(t, 0.9, result.Features[scoring.FeatureIndustry], 1e-9)
}

func TestScore_CategoryBoundaries(t *testing.T) {
	e, s := newScoringEngine(t)
	ctx := context.Background()

	// industry "Retail" alone scores exactly 60
	lead := createLead(t, s, &store.Lead{Industry: "Retail"})

	tests := []struct {
		name       string
		thresholds store.Thresholds
		want       string
	}{
		{"hot-inclusive", store.Thresholds{Hot: 60, Warm: 30}, "hot"},
		{"warm-inclusive", store.Thresholds{Hot: 61, Warm: 60}, "warm"},
		{"cold-below-warm", store.Thresholds{Hot: 90, Warm: 61}, "cold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alg := &store.ScoringAlgorithm{
				Name:       "alg-" + tt.name,
				Weights:    map[string]float64{scoring.FeatureIndustry: 1},
				Thresholds: tt.thresholds,
			}
			require.NoError(t, s.CreateAlgorithm(ctx, alg))

			result, err := e.Score(ctx, lead.ID, alg.Name)
			require.NoError(t, err)
			assert.InDelta(t, 60.0, result.Score, 1e-9)
			assert.Equal(t, tt.want, result.Category)
		})
	}
}

func TestScore_Explanation(t *testing.T) {
	e, s := newScoringEngine(t)
	ctx := context.Background()

	lead := createLead(t, s, &store.Lead{
		Email:            "ada@acme.io",
		Phone:            "+1 555 0100",
		JobTitle:         "CEO",
		Department:       "Sales",
		Industry:         "SaaS",
		EmployeeCount:    500,
		IntentSignals:    []string{"pricing-page", "demo-request", "webinar"},
		InteractionCount: 6,
	})
	weights := map[string]float64{
		scoring.FeatureSeniority:          3,
		scoring.FeatureCompanySize:        2,
		scoring.FeatureIndustry:           2,
		scoring.FeatureDepartmentFit:      1,
		scoring.FeatureContactQuality:     1,
		scoring.FeatureBuyingIntent:       1,
		scoring.FeatureInteractionHistory: 1,
	}
	createAlgorithm(t, s, weights, store.Thresholds{Hot: 75, Warm: 45})

	result, err := e.Score(ctx, lead.ID, "default")
	require.NoError(t, err)

	top := result.Explanation.TopFactors
	require.Len(t, top, 5, "seven present factors trimmed to five")
	for i := 1; i < len(top); i++ {
		assert.GreaterOrEqual(t, top[i-1].Contribution, top[i].Contribution,
			"factors must be ordered by contribution")
	}
	assert.Equal(t, scoring.FeatureSeniority, top[0].Feature, "weight 3 at value 1.0 dominates")

	assert.Contains(t, result.Explanation.Summary, result.Category)
	assert.Contains(t, result.Explanation.Summary, "seniority")
	assert.False(t, strings.Contains(result.Explanation.Summary, "_"),
		"feature names are humanized in the summary")
}

func TestScore_RecomputeReplaces(t *testing.T) {
	e, s := newScoringEngine(t)
	ctx := context.Background()

	lead := createLead(t, s, &store.Lead{JobTitle: "CEO"})
	alg := createAlgorithm(t, s, map[string]float64{scoring.FeatureSeniority: 1}, store.Thresholds{Hot: 80, Warm: 50})

	_, err := e.Score(ctx, lead.ID, "default")
	require.NoError(t, err)
	second, err := e.Score(ctx, lead.ID, "default")
	require.NoError(t, err)

	stored, err := s.GetScoringResult(ctx, lead.ID, alg.ID)
	require.NoError(t, err)
	assert.InDelta(t, second.Score, stored.Score, 1e-9)
}

func TestScore_UnknownLead(t *testing.T) {
	e, s := newScoringEngine(t)
	createAlgorithm(t, s, map[string]float64{scoring.FeatureSeniority: 1}, store.Thresholds{Hot: 80, Warm: 50})

	_, err := e.Score(context.Background(), "no-such-lead", "default")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestScoreBatch_SkipsFailedLeads(t *testing.T) {
	e, s := newScoringEngine(t, scoring.WithBatchLimit(4))
	ctx := context.Background()

	a := createLead(t, s, &store.Lead{JobTitle: "CEO"})
	b := createLead(t, s, &store.Lead{JobTitle: "Director of Sales"})
	createAlgorithm(t, s, map[string]float64{scoring.FeatureSeniority: 1}, store.Thresholds{Hot: 80, Warm: 50})

	results, err := e.ScoreBatch(ctx, []string{a.ID, "missing-lead", b.ID}, "default")
	require.NoError(t, err, "a missing lead must not fail the batch")
	require.Len(t, results, 2)

	scored := map[string]bool{}
	for _, r := range results {
		scored[r.LeadID] = true
	}
	assert.True(t, scored[a.ID])
	assert.True(t, scored[b.ID])
}

func TestScoreBatch_UnknownAlgorithm(t *testing.T) {
	e, s := newScoringEngine(t)
	lead := createLead(t, s, &store.Lead{JobTitle: "CEO"})

	_, err := e.ScoreBatch(context.Background(), []string{lead.ID}, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestScore_ConfidenceBoostOption(t *testing.T) {
	e, s := newScoringEngine(t, scoring.WithConfidenceBoost(1.0))
	ctx := context.Background()

	lead := createLead(t, s, &store.Lead{JobTitle: "CEO"})
	createAlgorithm(t, s, map[string]float64{
		scoring.FeatureSeniority:       1,
		scoring.FeatureEmailEngagement: 1,
	}, store.Thresholds{Hot: 80, Warm: 50})

	result, err := e.Score(ctx, lead.ID, "default")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, result.Confidence, 1e-9, "without boost, confidence is raw completeness")
}
