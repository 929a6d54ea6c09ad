package store

import "context"

// Store defines the persistence operations the engines depend on.
// Implementations must make InsertAssignment an atomic insert-if-absent
// and IncrementVariantCounters an atomic read-modify-write; those two
// are the only serialization points in the system.
type Store interface {
	// Experiment operations
	CreateExperiment(ctx context.Context, name string, variants []NewVariant, confidenceLevel float64, minSampleSize int) (*Experiment, error)
	GetExperiment(ctx context.Context, name string) (*Experiment, error)
	ListExperiments(ctx context.Context) ([]*Experiment, error)
	SetExperimentStatus(ctx context.Context, name string, status ExperimentStatus) error
	CompleteExperiment(ctx context.Context, name string, winnerVariantID *int64, significance float64) error

	// Assignment and event operations
	GetAssignment(ctx context.Context, experimentID int64, subjectID string) (*Event, error)
	InsertAssignment(ctx context.Context, experimentID, variantID int64, subjectID string) (*Event, bool, error)
	AppendEvent(ctx context.Context, experimentID, variantID int64, subjectID string, kind EventKind, value *float64) error
	IncrementVariantCounters(ctx context.Context, variantID int64, kind EventKind, value float64) error
	ListEvents(ctx context.Context, experimentID int64) ([]*Event, error)

	// Lead operations
	CreateLead(ctx context.Context, lead *Lead) error
	GetLead(ctx context.Context, id string) (*Lead, error)
	ListLeads(ctx context.Context) ([]*Lead, error)

	// Scoring algorithm operations
	CreateAlgorithm(ctx context.Context, alg *ScoringAlgorithm) error
	GetAlgorithm(ctx context.Context, name string) (*ScoringAlgorithm, error)
	ListAlgorithms(ctx context.Context) ([]*ScoringAlgorithm, error)
	UpdateAlgorithmPerformance(ctx context.Context, name string, perf Performance) error

	// Scoring result operations
	UpsertScoringResult(ctx context.Context, result *ScoringResult) error
	GetScoringResult(ctx context.Context, leadID string, algorithmID int64) (*ScoringResult, error)

	// Campaign operations
	CreateCampaign(ctx context.Context, name string) (*Campaign, error)
	GetCampaign(ctx context.Context, name string) (*Campaign, error)
	IncrementCampaignCounter(ctx context.Context, name, counter string, n int64) error
	AddCampaignRevenue(ctx context.Context, name string, amount float64) error
	UpsertCampaignMetrics(ctx context.Context, metrics *CampaignMetrics) error
	GetCampaignMetrics(ctx context.Context, campaignID int64) (*CampaignMetrics, error)

	// Lifecycle
	Close() error
}
