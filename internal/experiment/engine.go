package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/leadpilot/leadpilot/internal/stats"
	"github.com/leadpilot/leadpilot/internal/store"
)

// splitTolerance is how far a traffic split may drift from 100 percent
// at creation time before it is rejected.
const splitTolerance = 0.01

// Engine runs experiment lifecycle, assignment, event recording and
// significance evaluation against a Store.
type Engine struct {
	store  store.Store
	logger *slog.Logger
	draw   func() float64 // uniform [0, 1)
}

// Option configures an Engine.
type Option func(*Engine)

// WithDraw replaces the random source used for variant assignment.
func WithDraw(fn func() float64) Option {
	return func(e *Engine) { e.draw = fn }
}

func NewEngine(s store.Store, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{store: s, logger: logger, draw: rand.Float64}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Create validates an experiment configuration and persists it in draft
// state. Validation failures reject the whole experiment; nothing is
// partially applied.
func (e *Engine) Create(ctx context.Context, name string, variants []store.NewVariant, confidenceLevel float64, minSampleSize int) (*store.Experiment, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}
	if len(variants) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 variants", ErrInvalidConfig)
	}
	if confidenceLevel <= 0 || confidenceLevel >= 100 {
		return nil, fmt.Errorf("%w: confidence level %.1f outside (0, 100)", ErrInvalidConfig, confidenceLevel)
	}
	if minSampleSize < 0 {
		return nil, fmt.Errorf("%w: negative minimum sample size", ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(variants))
	total := 0.0
	for _, v := range variants {
		if v.Name == "" {
			return nil, fmt.Errorf("%w: variant name is required", ErrInvalidConfig)
		}
		if seen[v.Name] {
			return nil, fmt.Errorf("%w: duplicate variant name %q", ErrInvalidConfig, v.Name)
		}
		seen[v.Name] = true
		if v.TrafficPercent < 0 || v.TrafficPercent > 100 {
			return nil, fmt.Errorf("%w: variant %q traffic %.2f outside [0, 100]", ErrInvalidConfig, v.Name, v.TrafficPercent)
		}
		total += v.TrafficPercent
	}
	if math.Abs(total-100) > splitTolerance {
		return nil, fmt.Errorf("%w: got %.2f", ErrInvalidSplit, total)
	}

	return e.store.CreateExperiment(ctx, name, variants, confidenceLevel, minSampleSize)
}

// Start moves a draft or paused experiment to running. The traffic
// split is immutable from this point on.
func (e *Engine) Start(ctx context.Context, name string) error {
	exp, err := e.store.GetExperiment(ctx, name)
	if err != nil {
		return err
	}
	switch exp.Status {
	case store.StatusDraft, store.StatusPaused:
		return e.store.SetExperimentStatus(ctx, name, store.StatusRunning)
	case store.StatusCompleted:
		return fmt.Errorf("experiment %q: %w", name, ErrAlreadyConcluded)
	default:
		return fmt.Errorf("experiment %q cannot start from state %s: %w", name, exp.Status, ErrInvalidConfig)
	}
}

// Pause suspends a running experiment.
func (e *Engine) Pause(ctx context.Context, name string) error {
	exp, err := e.store.GetExperiment(ctx, name)
	if err != nil {
		return err
	}
	if exp.Status != store.StatusRunning {
		return fmt.Errorf("experiment %q: %w", name, ErrNotRunning)
	}
	return e.store.SetExperimentStatus(ctx, name, store.StatusPaused)
}

// Cancel abandons an experiment that has not completed.
func (e *Engine) Cancel(ctx context.Context, name string) error {
	exp, err := e.store.GetExperiment(ctx, name)
	if err != nil {
		return err
	}
	if exp.Status == store.StatusCompleted {
		return fmt.Errorf("experiment %q: %w", name, ErrAlreadyConcluded)
	}
	return e.store.SetExperimentStatus(ctx, name, store.StatusCancelled)
}

// Assign returns the variant for a subject, assigning one on first
// contact. Assignment is idempotent per subject: an existing assigned
// event always wins, including when two calls race on the insert.
func (e *Engine) Assign(ctx context.Context, experimentName, subjectID string) (*store.Variant, error) {
	exp, err := e.store.GetExperiment(ctx, experimentName)
	if err != nil {
		return nil, err
	}
	if exp.Status != store.StatusRunning {
		return nil, fmt.Errorf("experiment %q: %w", experimentName, ErrNotRunning)
	}

	existing, err := e.store.GetAssignment(ctx, exp.ID, subjectID)
	if err == nil {
		return variantByID(exp, existing.VariantID)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	chosen := pickVariant(exp.Variants, e.draw()*100)

	event, created, err := e.store.InsertAssignment(ctx, exp.ID, chosen.ID, subjectID)
	if err != nil {
		return nil, err
	}
	if !created && e.logger != nil {
		e.logger.Debug("assignment race lost, keeping stored variant",
			"experiment", experimentName, "subject", subjectID)
	}

	return variantByID(exp, event.VariantID)
}

// pickVariant walks variants in stable order accumulating traffic
// percentages; the last variant is the catch-all so floating-point
// rounding can never leave a draw unassigned.
func pickVariant(variants []store.Variant, draw float64) *store.Variant {
	cumulative := 0.0
	for i := range variants {
		cumulative += variants[i].TrafficPercent
		if draw < cumulative {
			return &variants[i]
		}
	}
	return &variants[len(variants)-1]
}

// Record appends an event to the ledger and bumps the variant's
// denormalized counter. Revenue events require a non-negative value.
func (e *Engine) Record(ctx context.Context, experimentName, variantName, subjectID string, kind store.EventKind, value *float64) error {
	switch kind {
	case store.EventImpression, store.EventClick, store.EventConversion:
		value = nil
	case store.EventRevenue:
		if value == nil || *value < 0 {
			return ErrMissingValue
		}
	default:
		return fmt.Errorf("%w: cannot record event kind %q", ErrInvalidConfig, kind)
	}

	exp, err := e.store.GetExperiment(ctx, experimentName)
	if err != nil {
		return err
	}

	variant := variantByName(exp, variantName)
	if variant == nil {
		return fmt.Errorf("variant %q: %w", variantName, store.ErrNotFound)
	}

	if err := e.store.AppendEvent(ctx, exp.ID, variant.ID, subjectID, kind, value); err != nil {
		return err
	}

	amount := 0.0
	if value != nil {
		amount = *value
	}
	return e.store.IncrementVariantCounters(ctx, variant.ID, kind, amount)
}

// Evaluate runs the two-variant significance analysis. Below the
// minimum sample size it returns a zero-significance result with a
// continue recommendation rather than an error.
func (e *Engine) Evaluate(ctx context.Context, experimentName string) (*TestResult, error) {
	exp, err := e.store.GetExperiment(ctx, experimentName)
	if err != nil {
		return nil, err
	}
	return evaluate(exp)
}

func evaluate(exp *store.Experiment) (*TestResult, error) {
	if len(exp.Variants) != 2 {
		return nil, fmt.Errorf("experiment %q has %d variants: %w", exp.Name, len(exp.Variants), ErrVariantCount)
	}

	a, b := &exp.Variants[0], &exp.Variants[1]

	result := &TestResult{
		ExperimentName: exp.Name,
		Variants: []VariantReport{
			variantReport(a),
			variantReport(b),
		},
	}

	minSample := int64(exp.MinSampleSize)
	if a.Impressions < minSample || b.Impressions < minSample {
		result.Recommendation = RecommendInsufficientData
		return result, nil
	}
	result.SampleSizeMet = true

	test, err := stats.PooledZTest(int(a.Conversions), int(a.Impressions), int(b.Conversions), int(b.Impressions))
	if err != nil {
		// Impressions are >= minSample here unless minSample is 0.
		if errors.Is(err, stats.ErrInsufficientData) {
			result.SampleSizeMet = false
			result.Recommendation = RecommendInsufficientData
			return result, nil
		}
		return nil, err
	}

	result.ZScore = test.ZScore
	result.PValue = test.PValue
	result.Significance = (1 - test.PValue) * 100

	for i := range result.Variants {
		v := &exp.Variants[i]
		if interval, err := stats.ConfidenceInterval(int(v.Conversions), int(v.Impressions), exp.ConfidenceLevel); err == nil {
			ci := interval
			result.Variants[i].Interval = &ci
		}
	}

	rateA := result.Variants[0].ConversionRate
	rateB := result.Variants[1].ConversionRate
	leader := 0
	baseline := rateB
	if rateB > rateA {
		leader = 1
		baseline = rateA
	}
	if baseline > 0 {
		result.Improvement = math.Abs(rateB-rateA) / baseline * 100
	}

	switch {
	case result.Significance >= exp.ConfidenceLevel && rateA != rateB:
		winner := result.Variants[leader].Name
		result.Winner = &winner
		result.Recommendation = fmt.Sprintf("conclude test — %s wins", winner)
	case result.Significance >= 80:
		result.Recommendation = RecommendPromising
	default:
		result.Recommendation = RecommendContinue
	}

	return result, nil
}

// Conclude snapshots the evaluation, marks the experiment completed and
// freezes winner and significance. Irreversible.
func (e *Engine) Conclude(ctx context.Context, experimentName string) (*TestResult, error) {
	exp, err := e.store.GetExperiment(ctx, experimentName)
	if err != nil {
		return nil, err
	}
	if exp.Status == store.StatusCompleted {
		return nil, fmt.Errorf("experiment %q: %w", experimentName, ErrAlreadyConcluded)
	}
	if exp.Status != store.StatusRunning {
		return nil, fmt.Errorf("experiment %q: %w", experimentName, ErrNotRunning)
	}

	result, err := evaluate(exp)
	if err != nil {
		return nil, err
	}

	var winnerID *int64
	if result.Winner != nil {
		for i := range result.Variants {
			if result.Variants[i].Name == *result.Winner {
				id := result.Variants[i].VariantID
				winnerID = &id
			}
		}
	}

	if err := e.store.CompleteExperiment(ctx, experimentName, winnerID, result.Significance); err != nil {
		return nil, err
	}

	if e.logger != nil {
		e.logger.Info("experiment concluded",
			"experiment", experimentName,
			"significance", result.Significance,
			"winner", result.Winner)
	}

	return result, nil
}

func variantReport(v *store.Variant) VariantReport {
	rate := 0.0
	if v.Impressions > 0 {
		rate = float64(v.Conversions) / float64(v.Impressions) * 100
	}
	return VariantReport{
		VariantID:      v.ID,
		Name:           v.Name,
		Impressions:    v.Impressions,
		Clicks:         v.Clicks,
		Conversions:    v.Conversions,
		Revenue:        v.Revenue,
		ConversionRate: rate,
	}
}

func variantByID(exp *store.Experiment, id int64) (*store.Variant, error) {
	for i := range exp.Variants {
		if exp.Variants[i].ID == id {
			return &exp.Variants[i], nil
		}
	}
	return nil, fmt.Errorf("variant %d: %w", id, store.ErrNotFound)
}

func variantByName(exp *store.Experiment, name string) *store.Variant {
	for i := range exp.Variants {
		if exp.Variants[i].Name == name {
			return &exp.Variants[i]
		}
	}
	return nil
}
