package experiment_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadpilot/leadpilot/internal/experiment"
	"github.com/leadpilot/leadpilot/internal/store"
	"github.com/leadpilot/leadpilot/internal/testutil"
)

func newEngine(t *testing.T, opts ...experiment.Option) (*experiment.Engine, *store.SQLiteStore) {
	t.Helper()
	s := testutil.SetupStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return experiment.NewEngine(s, logger, opts...), s
}

func createRunning(t *testing.T, e *experiment.Engine, name string, splitA, splitB float64) *store.Experiment {
	t.Helper()
	ctx := context.Background()

	exp, err := e.Create(ctx, name, []store.NewVariant{
		{Name: "A", TrafficPercent: splitA},
		{Name: "B", TrafficPercent: splitB},
	}, 95, 100)
	require.NoError(t, err)
	require.NoError(t, e.Start(ctx, name))

	return exp
}

func TestCreate_Validation(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		variants   []store.NewVariant
		confidence float64
		wantErr    error
	}{
		{
			name:       "split does not sum to 100",
			variants:   []store.NewVariant{{Name: "A", TrafficPercent: 60}, {Name: "B", TrafficPercent: 50}},
			confidence: 95,
			wantErr:    experiment.ErrInvalidSplit,
		},
		{
			name:       "single variant",
			variants:   []store.NewVariant{{Name: "A", TrafficPercent: 100}},
			confidence: 95,
			wantErr:    experiment.ErrInvalidConfig,
		},
		{
			name:       "duplicate variant names",
			variants:   []store.NewVariant{{Name: "A", TrafficPercent: 50}, {Name: "A", TrafficPercent: 50}},
			confidence: 95,
			wantErr:    experiment.ErrInvalidConfig,
		},
		{
			name:       "confidence out of range",
			variants:   []store.NewVariant{{Name: "A", TrafficPercent: 50}, {Name: "B", TrafficPercent: 50}},
			confidence: 100,
			wantErr:    experiment.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Create(ctx, "exp-"+tt.name, tt.variants, tt.confidence, 100)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreate_ToleratesTinySplitDrift(t *testing.T) {
	e, _ := newEngine(t)

	_, err := e.Create(context.Background(), "drift", []store.NewVariant{
		{Name: "A", TrafficPercent: 33.33},
		{Name: "B", TrafficPercent: 33.33},
		{Name: "C", TrafficPercent: 33.34},
	}, 95, 100)
	assert.NoError(t, err)
}

func TestAssign_RequiresRunning(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	_, err := e.Create(ctx, "draft-exp", []store.NewVariant{
		{Name: "A", TrafficPercent: 50},
		{Name: "B", TrafficPercent: 50},
	}, 95, 100)
	require.NoError(t, err)

	_, err = e.Assign(ctx, "draft-exp", "s1")
	assert.ErrorIs(t, err, experiment.ErrNotRunning)
}

func TestAssign_Idempotent(t *testing.T) {
	e, s := newEngine(t)
	ctx := context.Background()
	exp := createRunning(t, e, "e1", 50, 50)

	first, err := e.Assign(ctx, "e1", "s1")
	require.NoError(t, err)

	second, err := e.Assign(ctx, "e1", "s1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "re-assignment returns the original variant")

	events, err := s.ListEvents(ctx, exp.ID)
	require.NoError(t, err)
	assert.Len(t, events, 1, "exactly one assigned record")
}

func TestAssign_FollowsTrafficSplit(t *testing.T) {
	src := rand.New(rand.NewSource(42))
	e, _ := newEngine(t, experiment.WithDraw(src.Float64))
	ctx := context.Background()
	createRunning(t, e, "split", 70, 30)

	const subjects = 1000

	counts := map[string]int{}
	for i := 0; i < subjects; i++ {
		v, err := e.Assign(ctx, "split", fmt.Sprintf("subject-%d", i))
		require.NoError(t, err)
		counts[v.Name]++
	}

	// 70/30 split over 1000 draws: ~3 sigma is about 43
	assert.InDelta(t, 700, counts["A"], 50)
	assert.InDelta(t, 300, counts["B"], 50)
}

func TestAssign_CatchAllOnRoundingDrift(t *testing.T) {
	// A draw beyond every cumulative sum must land on the last variant
	e, _ := newEngine(t, experiment.WithDraw(func() float64 { return 0.99999999 }))
	ctx := context.Background()
	createRunning(t, e, "drifty", 33.33, 66.67)

	v, err := e.Assign(ctx, "drifty", "s1")
	require.NoError(t, err)
	assert.Equal(t, "B", v.Name)
}

func TestRecord_BumpsCounters(t *testing.T) {
	e, s := newEngine(t)
	ctx := context.Background()
	createRunning(t, e, "e1", 50, 50)

	require.NoError(t, e.Record(ctx, "e1", "A", "s1", store.EventImpression, nil))
	require.NoError(t, e.Record(ctx, "e1", "A", "s1", store.EventClick, nil))
	require.NoError(t, e.Record(ctx, "e1", "A", "s1", store.EventConversion, nil))

	value := 250.0
	require.NoError(t, e.Record(ctx, "e1", "A", "s1", store.EventRevenue, &value))

	got, err := s.GetExperiment(ctx, "e1")
	require.NoError(t, err)

	a := got.Variants[0]
	assert.Equal(t, int64(1), a.Impressions)
	assert.Equal(t, int64(1), a.Clicks)
	assert.Equal(t, int64(1), a.Conversions)
	assert.InDelta(t, 250.0, a.Revenue, 1e-9)

	events, err := s.ListEvents(ctx, got.ID)
	require.NoError(t, err)
	assert.Len(t, events, 4, "ledger keeps every event")
}

func TestRecord_RevenueRequiresValue(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	createRunning(t, e, "e1", 50, 50)

	err := e.Record(ctx, "e1", "A", "s1", store.EventRevenue, nil)
	assert.ErrorIs(t, err, experiment.ErrMissingValue)

	negative := -5.0
	err = e.Record(ctx, "e1", "A", "s1", store.EventRevenue, &negative)
	assert.ErrorIs(t, err, experiment.ErrMissingValue)
}

func TestRecord_UnknownVariant(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	createRunning(t, e, "e1", 50, 50)

	err := e.Record(ctx, "e1", "Z", "s1", store.EventImpression, nil)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRecord_AssignedKindRejected(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	createRunning(t, e, "e1", 50, 50)

	err := e.Record(ctx, "e1", "A", "s1", store.EventAssigned, nil)
	assert.ErrorIs(t, err, experiment.ErrInvalidConfig)
}

func TestEvaluate_RequiresTwoVariants(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	_, err := e.Create(ctx, "three-way", []store.NewVariant{
		{Name: "A", TrafficPercent: 34},
		{Name: "B", TrafficPercent: 33},
		{Name: "C", TrafficPercent: 33},
	}, 95, 100)
	require.NoError(t, err)

	_, err = e.Evaluate(ctx, "three-way")
	assert.ErrorIs(t, err, experiment.ErrVariantCount)
}

func TestEvaluate_InsufficientSample(t *testing.T) {
	e, s := newEngine(t)
	ctx := context.Background()
	exp := createRunning(t, e, "e1", 50, 50)

	// Strong observed difference, but far below minSampleSize=100
	fill(t, s, exp.Variants[0].ID, 20, 1)
	fill(t, s, exp.Variants[1].ID, 20, 15)

	result, err := e.Evaluate(ctx, "e1")
	require.NoError(t, err)

	assert.False(t, result.SampleSizeMet)
	assert.Zero(t, result.Significance)
	assert.Nil(t, result.Winner, "no winner below the sample gate, regardless of rates")
	assert.Equal(t, experiment.RecommendInsufficientData, result.Recommendation)
	for _, v := range result.Variants {
		assert.Nil(t, v.Interval, "no intervals until the gate passes")
	}
}

func TestEvaluate_DeclaresWinner(t *testing.T) {
	e, s := newEngine(t)
	ctx := context.Background()
	exp := createRunning(t, e, "e1", 50, 50)

	// The canonical scenario: A converts 15%, B converts 20%
	fill(t, s, exp.Variants[0].ID, 1000, 150)
	fill(t, s, exp.Variants[1].ID, 1000, 200)

	result, err := e.Evaluate(ctx, "e1")
	require.NoError(t, err)

	assert.True(t, result.SampleSizeMet)
	assert.InDelta(t, 15.0, result.Variants[0].ConversionRate, 1e-9)
	assert.InDelta(t, 20.0, result.Variants[1].ConversionRate, 1e-9)
	assert.Negative(t, result.ZScore, "B outperforms A")
	assert.GreaterOrEqual(t, result.Significance, 95.0)

	require.NotNil(t, result.Winner)
	assert.Equal(t, "B", *result.Winner)
	assert.InDelta(t, 33.33, result.Improvement, 0.01, "relative lift over the 15% baseline")

	for _, v := range result.Variants {
		require.NotNil(t, v.Interval)
		assert.LessOrEqual(t, v.Interval.Lower, v.ConversionRate)
		assert.GreaterOrEqual(t, v.Interval.Upper, v.ConversionRate)
	}
}

func TestEvaluate_CloseRatesKeepRunning(t *testing.T) {
	e, s := newEngine(t)
	ctx := context.Background()
	exp := createRunning(t, e, "e1", 50, 50)

	fill(t, s, exp.Variants[0].ID, 1000, 150)
	fill(t, s, exp.Variants[1].ID, 1000, 152)

	result, err := e.Evaluate(ctx, "e1")
	require.NoError(t, err)

	assert.Nil(t, result.Winner)
	assert.Less(t, result.Significance, 95.0)
	assert.Equal(t, experiment.RecommendContinue, result.Recommendation)
}

func TestConclude_FreezesResult(t *testing.T) {
	e, s := newEngine(t)
	ctx := context.Background()
	exp := createRunning(t, e, "e1", 50, 50)

	fill(t, s, exp.Variants[0].ID, 1000, 150)
	fill(t, s, exp.Variants[1].ID, 1000, 200)

	result, err := e.Conclude(ctx, "e1")
	require.NoError(t, err)
	require.NotNil(t, result.Winner)

	got, err := s.GetExperiment(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, got.Status)
	require.NotNil(t, got.WinnerVariantID)
	assert.Equal(t, exp.Variants[1].ID, *got.WinnerVariantID)
	require.NotNil(t, got.Significance)
	assert.InDelta(t, result.Significance, *got.Significance, 1e-9)

	_, err = e.Conclude(ctx, "e1")
	assert.ErrorIs(t, err, experiment.ErrAlreadyConcluded)

	_, err = e.Assign(ctx, "e1", "late-subject")
	assert.ErrorIs(t, err, experiment.ErrNotRunning)
}

func TestConclude_RequiresRunning(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	_, err := e.Create(ctx, "still-draft", []store.NewVariant{
		{Name: "A", TrafficPercent: 50},
		{Name: "B", TrafficPercent: 50},
	}, 95, 100)
	require.NoError(t, err)

	_, err = e.Conclude(ctx, "still-draft")
	assert.ErrorIs(t, err, experiment.ErrNotRunning)
}

func TestLifecycle_PauseAndCancel(t *testing.T) {
	e, s := newEngine(t)
	ctx := context.Background()
	createRunning(t, e, "e1", 50, 50)

	require.NoError(t, e.Pause(ctx, "e1"))
	_, err := e.Assign(ctx, "e1", "s1")
	assert.ErrorIs(t, err, experiment.ErrNotRunning)

	require.NoError(t, e.Start(ctx, "e1"))
	_, err = e.Assign(ctx, "e1", "s1")
	require.NoError(t, err)

	require.NoError(t, e.Cancel(ctx, "e1"))
	got, err := s.GetExperiment(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, store.StatusCancelled, got.Status)
}

// fill seeds a variant's counters directly through the store's atomic
// increments.
func fill(t *testing.T, s *store.SQLiteStore, variantID int64, impressions, conversions int) {
	t.Helper()
	ctx := context.Background()

	for i := 0; i < impressions; i++ {
		require.NoError(t, s.IncrementVariantCounters(ctx, variantID, store.EventImpression, 0))
	}
	for i := 0; i < conversions; i++ {
		require.NoError(t, s.IncrementVariantCounters(ctx, variantID, store.EventConversion, 0))
	}
}
