package scoring

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/leadpilot/leadpilot/internal/store"
)

const (
	// defaultConfidenceBoost lets confidence saturate at 1.0 even with
	// one missing low-weight feature. Carried over from the original
	// model; configurable, not fundamental.
	defaultConfidenceBoost = 1.2

	defaultBatchLimit = 8
)

// Engine computes weighted lead scores and persists the results.
type Engine struct {
	store           store.Store
	logger          *slog.Logger
	confidenceBoost float64
	batchLimit      int
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfidenceBoost overrides the multiplier applied to feature
// completeness when deriving confidence.
func WithConfidenceBoost(m float64) Option {
	return func(e *Engine) { e.confidenceBoost = m }
}

// WithBatchLimit bounds the parallelism of ScoreBatch.
func WithBatchLimit(n int) Option {
	return func(e *Engine) { e.batchLimit = n }
}

func NewEngine(s store.Store, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:           s,
		logger:          logger,
		confidenceBoost: defaultConfidenceBoost,
		batchLimit:      defaultBatchLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Score extracts the lead's features, applies the algorithm's weights
// and upserts the result keyed by (lead, algorithm). Recomputing
// replaces the prior result, never duplicates it.
func (e *Engine) Score(ctx context.Context, leadID, algorithmName string) (*store.ScoringResult, error) {
	alg, err := e.store.GetAlgorithm(ctx, algorithmName)
	if err != nil {
		return nil, err
	}
	return e.scoreLead(ctx, leadID, alg)
}

func (e *Engine) scoreLead(ctx context.Context, leadID string, alg *store.ScoringAlgorithm) (*store.ScoringResult, error) {
	lead, err := e.store.GetLead(ctx, leadID)
	if err != nil {
		return nil, err
	}

	result := e.compute(lead, alg)
	if err := e.store.UpsertScoringResult(ctx, result); err != nil {
		return nil, err
	}

	return result, nil
}

// compute is the pure scoring pass: weighted aggregation over the
// normalized values of present features. Absent features are excluded
// from both numerator and denominator so missing data does not
// unfairly depress the score.
func (e *Engine) compute(lead *store.Lead, alg *store.ScoringAlgorithm) *store.ScoringResult {
	vector := Extract(lead)

	var weighted, weightSum float64
	present := 0
	features := make(map[string]float64)
	factors := make([]store.Factor, 0, len(alg.Weights))

	for name, weight := range alg.Weights {
		value, ok := vector[name]
		if !ok {
			continue
		}
		norm := value.Normalized()
		present++
		weightSum += weight
		weighted += norm * weight
		features[name] = norm
		factors = append(factors, store.Factor{
			Feature:      name,
			Value:        norm,
			Weight:       weight,
			Contribution: norm * weight,
		})
	}

	score := 0.0
	if weightSum > 0 {
		score = weighted / weightSum * 100
	}

	confidence := 0.0
	if len(alg.Weights) > 0 {
		confidence = float64(present) / float64(len(alg.Weights)) * e.confidenceBoost
		if confidence > 1 {
			confidence = 1
		}
	}

	category := categorize(score, alg.Thresholds)

	return &store.ScoringResult{
		LeadID:      lead.ID,
		AlgorithmID: alg.ID,
		Score:       score,
		Confidence:  confidence,
		Category:    category,
		Features:    features,
		Explanation: buildExplanation(score, category, factors),
	}
}

func categorize(score float64, t store.Thresholds) string {
	switch {
	case score >= t.Hot:
		return "hot"
	case score >= t.Warm:
		return "warm"
	default:
		return "cold"
	}
}

// ScoreBatch scores many leads with bounded parallelism. A lead that
// fails to score is logged and excluded; the batch itself only fails
// when the algorithm cannot be loaded at all.
func (e *Engine) ScoreBatch(ctx context.Context, leadIDs []string, algorithmName string) ([]*store.ScoringResult, error) {
	alg, err := e.store.GetAlgorithm(ctx, algorithmName)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	results := make([]*store.ScoringResult, 0, len(leadIDs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.batchLimit)

	for _, leadID := range leadIDs {
		leadID := leadID
		g.Go(func() error {
			result, err := e.scoreLead(ctx, leadID, alg)
			if err != nil {
				if e.logger != nil {
					e.logger.Warn("lead scoring failed, skipping",
						"lead", leadID, "algorithm", algorithmName, "error", err)
				}
				return nil
			}
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
