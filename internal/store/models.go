package store

import "time"

type ExperimentStatus string

const (
	StatusDraft     ExperimentStatus = "draft"
	StatusRunning   ExperimentStatus = "running"
	StatusPaused    ExperimentStatus = "paused"
	StatusCompleted ExperimentStatus = "completed"
	StatusCancelled ExperimentStatus = "cancelled"
)

type Experiment struct {
	ID              int64
	Name            string
	Status          ExperimentStatus
	ConfidenceLevel float64 // percent, e.g. 95.0
	MinSampleSize   int
	StartedAt       *time.Time
	EndedAt         *time.Time
	WinnerVariantID *int64
	Significance    *float64
	Variants        []Variant // ordered by creation
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Variant counters are denormalized from the event log and owned by the
// store's atomic increment; nothing else writes them.
type Variant struct {
	ID             int64
	ExperimentID   int64
	Name           string
	Content        string
	TrafficPercent float64
	Impressions    int64
	Clicks         int64
	Conversions    int64
	Revenue        float64
}

// NewVariant describes a variant at experiment-creation time.
type NewVariant struct {
	Name           string
	Content        string
	TrafficPercent float64
}

type EventKind string

const (
	EventAssigned   EventKind = "assigned"
	EventImpression EventKind = "impression"
	EventClick      EventKind = "click"
	EventConversion EventKind = "conversion"
	EventRevenue    EventKind = "revenue"
)

// Event is a row in the append-only experiment event log.
// Source of truth for assignments. Never mutated or deleted.
type Event struct {
	ID           int64
	ExperimentID int64
	VariantID    int64
	SubjectID    string
	Kind         EventKind
	Value        *float64 // set for revenue events
	CreatedAt    time.Time
}

// Lead carries the raw attributes feature extraction reads. The scoring
// engine treats these as read-only inputs.
type Lead struct {
	ID               string // uuid
	Email            string
	Phone            string
	FirstName        string
	LastName         string
	Company          string
	JobTitle         string
	Department       string
	Industry         string
	EmployeeCount    int
	Website          string
	IntentSignals    []string // decoded from JSON
	InteractionCount int
	CreatedAt        time.Time
}

// Thresholds are score lower-bounds per category.
type Thresholds struct {
	Hot  float64 `json:"hot"`
	Warm float64 `json:"warm"`
	Cold float64 `json:"cold"`
}

// Performance holds trailing model metrics. Set externally, never
// computed here.
type Performance struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

type ScoringAlgorithm struct {
	ID          int64
	Name        string
	Version     int
	Active      bool
	Weights     map[string]float64 // feature name -> weight, decoded from JSON
	Thresholds  Thresholds
	Performance Performance
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Factor is one feature's contribution to a score.
type Factor struct {
	Feature      string  `json:"feature"`
	Value        float64 `json:"value"` // normalized, 0-1
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
}

type Explanation struct {
	TopFactors []Factor `json:"top_factors"`
	Summary    string   `json:"summary"`
}

// ScoringResult is one row per (lead, algorithm); recomputing replaces it.
type ScoringResult struct {
	ID          int64
	LeadID      string
	AlgorithmID int64
	Score       float64            // 0-100
	Confidence  float64            // 0-1
	Category    string             // hot, warm or cold
	Features    map[string]float64 // normalized vector, decoded from JSON
	Explanation Explanation
	ScoredAt    time.Time
}

type Campaign struct {
	ID           int64
	Name         string
	Sent         int64
	Delivered    int64
	Opened       int64
	Clicked      int64
	Replied      int64
	Bounced      int64
	Unsubscribed int64
	Converted    int64
	Revenue      float64
	CreatedAt    time.Time
}

// CampaignMetrics is a cached snapshot, overwritten on each recomputation.
type CampaignMetrics struct {
	CampaignID              int64
	DeliveryRate            float64
	OpenRate                float64
	ClickRate               float64
	ReplyRate               float64
	BounceRate              float64
	UnsubscribeRate         float64
	ConversionRate          float64
	AvgRevenuePerConversion float64
	CalculatedAt            time.Time
}
