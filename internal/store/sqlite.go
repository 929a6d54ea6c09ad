package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS experiments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT UNIQUE NOT NULL,
    status TEXT NOT NULL DEFAULT 'draft',
    confidence_level REAL NOT NULL DEFAULT 95.0,
    min_sample_size INTEGER NOT NULL DEFAULT 100,
    started_at INTEGER,
    ended_at INTEGER,
    winner_variant_id INTEGER,
    significance REAL,
    created_at INTEGER NOT NULL DEFAULT (unixepoch()),
    updated_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE INDEX IF NOT EXISTS idx_experiments_status ON experiments(status);

CREATE TABLE IF NOT EXISTS variants (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    experiment_id INTEGER NOT NULL,
    name TEXT NOT NULL,
    content TEXT NOT NULL DEFAULT '',
    traffic_percent REAL NOT NULL,
    impressions INTEGER NOT NULL DEFAULT 0,
    clicks INTEGER NOT NULL DEFAULT 0,
    conversions INTEGER NOT NULL DEFAULT 0,
    revenue REAL NOT NULL DEFAULT 0,
    FOREIGN KEY (experiment_id) REFERENCES experiments(id),
    UNIQUE (experiment_id, name)
);

CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    experiment_id INTEGER NOT NULL,
    variant_id INTEGER NOT NULL,
    subject_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    value REAL,
    created_at INTEGER NOT NULL DEFAULT (unixepoch()),
    FOREIGN KEY (experiment_id) REFERENCES experiments(id),
    FOREIGN KEY (variant_id) REFERENCES variants(id)
);

CREATE INDEX IF NOT EXISTS idx_events_experiment ON events(experiment_id, kind);
CREATE UNIQUE INDEX IF NOT EXISTS idx_events_assigned_once
    ON events(experiment_id, subject_id) WHERE kind = 'assigned';

CREATE TABLE IF NOT EXISTS leads (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL DEFAULT '',
    phone TEXT NOT NULL DEFAULT '',
    first_name TEXT NOT NULL DEFAULT '',
    last_name TEXT NOT NULL DEFAULT '',
    company TEXT NOT NULL DEFAULT '',
    job_title TEXT NOT NULL DEFAULT '',
    department TEXT NOT NULL DEFAULT '',
    industry TEXT NOT NULL DEFAULT '',
    employee_count INTEGER NOT NULL DEFAULT 0,
    website TEXT NOT NULL DEFAULT '',
    intent_signals TEXT,
    interaction_count INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE TABLE IF NOT EXISTS scoring_algorithms (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT UNIQUE NOT NULL,
    version INTEGER NOT NULL DEFAULT 1,
    active INTEGER NOT NULL DEFAULT 1,
    weights TEXT NOT NULL,
    thresholds TEXT NOT NULL,
    performance TEXT,
    created_at INTEGER NOT NULL DEFAULT (unixepoch()),
    updated_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE TABLE IF NOT EXISTS scoring_results (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    lead_id TEXT NOT NULL,
    algorithm_id INTEGER NOT NULL,
    score REAL NOT NULL,
    confidence REAL NOT NULL,
    category TEXT NOT NULL,
    features TEXT NOT NULL,
    explanation TEXT NOT NULL,
    scored_at INTEGER NOT NULL DEFAULT (unixepoch()),
    FOREIGN KEY (lead_id) REFERENCES leads(id),
    FOREIGN KEY (algorithm_id) REFERENCES scoring_algorithms(id),
    UNIQUE (lead_id, algorithm_id)
);

CREATE TABLE IF NOT EXISTS campaigns (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT UNIQUE NOT NULL,
    sent INTEGER NOT NULL DEFAULT 0,
    delivered INTEGER NOT NULL DEFAULT 0,
    opened INTEGER NOT NULL DEFAULT 0,
    clicked INTEGER NOT NULL DEFAULT 0,
    replied INTEGER NOT NULL DEFAULT 0,
    bounced INTEGER NOT NULL DEFAULT 0,
    unsubscribed INTEGER NOT NULL DEFAULT 0,
    converted INTEGER NOT NULL DEFAULT 0,
    revenue REAL NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE TABLE IF NOT EXISTS campaign_metrics (
    campaign_id INTEGER PRIMARY KEY,
    delivery_rate REAL NOT NULL,
    open_rate REAL NOT NULL,
    click_rate REAL NOT NULL,
    reply_rate REAL NOT NULL,
    bounce_rate REAL NOT NULL,
    unsubscribe_rate REAL NOT NULL,
    conversion_rate REAL NOT NULL,
    avg_revenue_per_conversion REAL NOT NULL,
    calculated_at INTEGER NOT NULL,
    FOREIGN KEY (campaign_id) REFERENCES campaigns(id)
);
`

func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Writers back off instead of failing when events arrive concurrently
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Apply schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for health checks
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) CreateExperiment(ctx context.Context, name string, variants []NewVariant, confidenceLevel float64, minSampleSize int) (*Experiment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	result, err := tx.ExecContext(ctx,
		`INSERT INTO experiments (name, status, confidence_level, min_sample_size, created_at, updated_at)
		 VALUES (?, 'draft', ?, ?, ?, ?)`,
		name, confidenceLevel, minSampleSize, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert experiment: %w", err)
	}

	expID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	exp := &Experiment{
		ID:              expID,
		Name:            name,
		Status:          StatusDraft,
		ConfidenceLevel: confidenceLevel,
		MinSampleSize:   minSampleSize,
		CreatedAt:       time.Unix(now, 0),
		UpdatedAt:       time.Unix(now, 0),
	}

	for _, v := range variants {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO variants (experiment_id, name, content, traffic_percent) VALUES (?, ?, ?, ?)`,
			expID, v.Name, v.Content, v.TrafficPercent,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert variant %q: %w", v.Name, err)
		}
		varID, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to get variant id: %w", err)
		}
		exp.Variants = append(exp.Variants, Variant{
			ID:             varID,
			ExperimentID:   expID,
			Name:           v.Name,
			Content:        v.Content,
			TrafficPercent: v.TrafficPercent,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit experiment: %w", err)
	}

	return exp, nil
}

func (s *SQLiteStore) GetExperiment(ctx context.Context, name string) (*Experiment, error) {
	var exp Experiment
	var startedAt, endedAt, winnerID sql.NullInt64
	var significance sql.NullFloat64
	var createdAt, updatedAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, status, confidence_level, min_sample_size, started_at, ended_at,
		        winner_variant_id, significance, created_at, updated_at
		 FROM experiments WHERE name = ?`, name,
	).Scan(&exp.ID, &exp.Name, &exp.Status, &exp.ConfidenceLevel, &exp.MinSampleSize,
		&startedAt, &endedAt, &winnerID, &significance, &createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get experiment: %w", err)
	}

	if startedAt.Valid {
		t := time.Unix(startedAt.Int64, 0)
		exp.StartedAt = &t
	}
	if endedAt.Valid {
		t := time.Unix(endedAt.Int64, 0)
		exp.EndedAt = &t
	}
	if winnerID.Valid {
		w := winnerID.Int64
		exp.WinnerVariantID = &w
	}
	if significance.Valid {
		sig := significance.Float64
		exp.Significance = &sig
	}
	exp.CreatedAt = time.Unix(createdAt, 0)
	exp.UpdatedAt = time.Unix(updatedAt, 0)

	variants, err := s.variantsForExperiment(ctx, exp.ID)
	if err != nil {
		return nil, err
	}
	exp.Variants = variants

	return &exp, nil
}

func (s *SQLiteStore) variantsForExperiment(ctx context.Context, experimentID int64) ([]Variant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, experiment_id, name, content, traffic_percent, impressions, clicks, conversions, revenue
		 FROM variants WHERE experiment_id = ? ORDER BY id`, experimentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get variants: %w", err)
	}
	defer rows.Close()

	var variants []Variant
	for rows.Next() {
		var v Variant
		if err := rows.Scan(&v.ID, &v.ExperimentID, &v.Name, &v.Content, &v.TrafficPercent,
			&v.Impressions, &v.Clicks, &v.Conversions, &v.Revenue); err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		variants = append(variants, v)
	}

	return variants, rows.Err()
}

func (s *SQLiteStore) ListExperiments(ctx context.Context) ([]*Experiment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM experiments ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list experiments: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan experiment name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var experiments []*Experiment
	for _, name := range names {
		exp, err := s.GetExperiment(ctx, name)
		if err != nil {
			return nil, err
		}
		experiments = append(experiments, exp)
	}

	return experiments, nil
}

func (s *SQLiteStore) SetExperimentStatus(ctx context.Context, name string, status ExperimentStatus) error {
	now := time.Now().Unix()

	var result sql.Result
	var err error

	switch status {
	case StatusRunning:
		result, err = s.db.ExecContext(ctx,
			`UPDATE experiments SET status = ?, started_at = COALESCE(started_at, ?), updated_at = ? WHERE name = ?`,
			string(status), now, now, name,
		)
	case StatusCancelled:
		result, err = s.db.ExecContext(ctx,
			`UPDATE experiments SET status = ?, ended_at = ?, updated_at = ? WHERE name = ?`,
			string(status), now, now, name,
		)
	default:
		result, err = s.db.ExecContext(ctx,
			`UPDATE experiments SET status = ?, updated_at = ? WHERE name = ?`,
			string(status), now, name,
		)
	}

	if err != nil {
		return fmt.Errorf("failed to update experiment status: %w", err)
	}

	return requireRow(result)
}

func (s *SQLiteStore) CompleteExperiment(ctx context.Context, name string, winnerVariantID *int64, significance float64) error {
	now := time.Now().Unix()

	var winner sql.NullInt64
	if winnerVariantID != nil {
		winner = sql.NullInt64{Int64: *winnerVariantID, Valid: true}
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE experiments SET status = 'completed', winner_variant_id = ?, significance = ?,
		        ended_at = ?, updated_at = ?
		 WHERE name = ?`,
		winner, significance, now, now, name,
	)
	if err != nil {
		return fmt.Errorf("failed to complete experiment: %w", err)
	}

	return requireRow(result)
}

func (s *SQLiteStore) GetAssignment(ctx context.Context, experimentID int64, subjectID string) (*Event, error) {
	return s.scanEvent(s.db.QueryRowContext(ctx,
		`SELECT id, experiment_id, variant_id, subject_id, kind, value, created_at
		 FROM events WHERE experiment_id = ? AND subject_id = ? AND kind = 'assigned'`,
		experimentID, subjectID,
	))
}

// InsertAssignment atomically records an assignment unless one already
// exists for the subject. The partial unique index on (experiment_id,
// subject_id) makes INSERT OR IGNORE the arbiter under concurrent calls;
// the returned event is whatever row won, with created reporting whether
// this call inserted it.
func (s *SQLiteStore) InsertAssignment(ctx context.Context, experimentID, variantID int64, subjectID string) (*Event, bool, error) {
	now := time.Now().Unix()

	result, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO events (experiment_id, variant_id, subject_id, kind, created_at)
		 VALUES (?, ?, ?, 'assigned', ?)`,
		experimentID, variantID, subjectID, now,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert assignment: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	event, err := s.GetAssignment(ctx, experimentID, subjectID)
	if err != nil {
		return nil, false, err
	}

	return event, inserted > 0, nil
}

func (s *SQLiteStore) AppendEvent(ctx context.Context, experimentID, variantID int64, subjectID string, kind EventKind, value *float64) error {
	now := time.Now().Unix()

	var v sql.NullFloat64
	if value != nil {
		v = sql.NullFloat64{Float64: *value, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (experiment_id, variant_id, subject_id, kind, value, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		experimentID, variantID, subjectID, string(kind), v, now,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	return nil
}

// IncrementVariantCounters bumps the denormalized counter matching kind
// with a single UPDATE so concurrent events never lose updates.
func (s *SQLiteStore) IncrementVariantCounters(ctx context.Context, variantID int64, kind EventKind, value float64) error {
	var query string
	switch kind {
	case EventImpression:
		query = `UPDATE variants SET impressions = impressions + 1 WHERE id = ?`
	case EventClick:
		query = `UPDATE variants SET clicks = clicks + 1 WHERE id = ?`
	case EventConversion:
		query = `UPDATE variants SET conversions = conversions + 1 WHERE id = ?`
	case EventRevenue:
		result, err := s.db.ExecContext(ctx, `UPDATE variants SET revenue = revenue + ? WHERE id = ?`, value, variantID)
		if err != nil {
			return fmt.Errorf("failed to increment revenue: %w", err)
		}
		return requireRow(result)
	default:
		return fmt.Errorf("no counter for event kind %q", kind)
	}

	result, err := s.db.ExecContext(ctx, query, variantID)
	if err != nil {
		return fmt.Errorf("failed to increment counter: %w", err)
	}

	return requireRow(result)
}

func (s *SQLiteStore) ListEvents(ctx context.Context, experimentID int64) ([]*Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, experiment_id, variant_id, subject_id, kind, value, created_at
		 FROM events WHERE experiment_id = ? ORDER BY id`,
		experimentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		var value sql.NullFloat64
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.ExperimentID, &e.VariantID, &e.SubjectID, &e.Kind, &value, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if value.Valid {
			v := value.Float64
			e.Value = &v
		}
		e.CreatedAt = time.Unix(createdAt, 0)
		events = append(events, &e)
	}

	return events, rows.Err()
}

func (s *SQLiteStore) scanEvent(row *sql.Row) (*Event, error) {
	var e Event
	var value sql.NullFloat64
	var createdAt int64

	err := row.Scan(&e.ID, &e.ExperimentID, &e.VariantID, &e.SubjectID, &e.Kind, &value, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}

	if value.Valid {
		v := value.Float64
		e.Value = &v
	}
	e.CreatedAt = time.Unix(createdAt, 0)

	return &e, nil
}

func (s *SQLiteStore) CreateLead(ctx context.Context, lead *Lead) error {
	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}

	signalsJSON, err := json.Marshal(lead.IntentSignals)
	if err != nil {
		return fmt.Errorf("failed to marshal intent signals: %w", err)
	}

	now := time.Now().Unix()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO leads (id, email, phone, first_name, last_name, company, job_title, department,
		                    industry, employee_count, website, intent_signals, interaction_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lead.ID, lead.Email, lead.Phone, lead.FirstName, lead.LastName, lead.Company, lead.JobTitle,
		lead.Department, lead.Industry, lead.EmployeeCount, lead.Website,
		nullableString(signalsJSON), lead.InteractionCount, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert lead: %w", err)
	}

	lead.CreatedAt = time.Unix(now, 0)
	return nil
}

func (s *SQLiteStore) GetLead(ctx context.Context, id string) (*Lead, error) {
	var lead Lead
	var signalsJSON sql.NullString
	var createdAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, phone, first_name, last_name, company, job_title, department,
		        industry, employee_count, website, intent_signals, interaction_count, created_at
		 FROM leads WHERE id = ?`, id,
	).Scan(&lead.ID, &lead.Email, &lead.Phone, &lead.FirstName, &lead.LastName, &lead.Company,
		&lead.JobTitle, &lead.Department, &lead.Industry, &lead.EmployeeCount, &lead.Website,
		&signalsJSON, &lead.InteractionCount, &createdAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}

	if signalsJSON.Valid && signalsJSON.String != "" {
		if err := json.Unmarshal([]byte(signalsJSON.String), &lead.IntentSignals); err != nil {
			return nil, fmt.Errorf("failed to unmarshal intent signals: %w", err)
		}
	}
	lead.CreatedAt = time.Unix(createdAt, 0)

	return &lead, nil
}

func (s *SQLiteStore) ListLeads(ctx context.Context) ([]*Lead, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM leads ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan lead id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var leads []*Lead
	for _, id := range ids {
		lead, err := s.GetLead(ctx, id)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}

	return leads, nil
}

func (s *SQLiteStore) CreateAlgorithm(ctx context.Context, alg *ScoringAlgorithm) error {
	weightsJSON, err := json.Marshal(alg.Weights)
	if err != nil {
		return fmt.Errorf("failed to marshal weights: %w", err)
	}
	thresholdsJSON, err := json.Marshal(alg.Thresholds)
	if err != nil {
		return fmt.Errorf("failed to marshal thresholds: %w", err)
	}

	if alg.Version == 0 {
		alg.Version = 1
	}

	now := time.Now().Unix()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO scoring_algorithms (name, version, active, weights, thresholds, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		alg.Name, alg.Version, alg.Active, string(weightsJSON), string(thresholdsJSON), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert algorithm: %w", err)
	}

	alg.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	alg.CreatedAt = time.Unix(now, 0)
	alg.UpdatedAt = time.Unix(now, 0)

	return nil
}

func (s *SQLiteStore) GetAlgorithm(ctx context.Context, name string) (*ScoringAlgorithm, error) {
	var alg ScoringAlgorithm
	var weightsJSON, thresholdsJSON string
	var perfJSON sql.NullString
	var createdAt, updatedAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, version, active, weights, thresholds, performance, created_at, updated_at
		 FROM scoring_algorithms WHERE name = ?`, name,
	).Scan(&alg.ID, &alg.Name, &alg.Version, &alg.Active, &weightsJSON, &thresholdsJSON,
		&perfJSON, &createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get algorithm: %w", err)
	}

	if err := json.Unmarshal([]byte(weightsJSON), &alg.Weights); err != nil {
		return nil, fmt.Errorf("failed to unmarshal weights: %w", err)
	}
	if err := json.Unmarshal([]byte(thresholdsJSON), &alg.Thresholds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal thresholds: %w", err)
	}
	if perfJSON.Valid && perfJSON.String != "" {
		if err := json.Unmarshal([]byte(perfJSON.String), &alg.Performance); err != nil {
			return nil, fmt.Errorf("failed to unmarshal performance: %w", err)
		}
	}
	alg.CreatedAt = time.Unix(createdAt, 0)
	alg.UpdatedAt = time.Unix(updatedAt, 0)

	return &alg, nil
}

func (s *SQLiteStore) ListAlgorithms(ctx context.Context) ([]*ScoringAlgorithm, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM scoring_algorithms ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list algorithms: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan algorithm name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var algorithms []*ScoringAlgorithm
	for _, name := range names {
		alg, err := s.GetAlgorithm(ctx, name)
		if err != nil {
			return nil, err
		}
		algorithms = append(algorithms, alg)
	}

	return algorithms, nil
}

func (s *SQLiteStore) UpdateAlgorithmPerformance(ctx context.Context, name string, perf Performance) error {
	perfJSON, err := json.Marshal(perf)
	if err != nil {
		return fmt.Errorf("failed to marshal performance: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE scoring_algorithms SET performance = ?, updated_at = ? WHERE name = ?`,
		string(perfJSON), time.Now().Unix(), name,
	)
	if err != nil {
		return fmt.Errorf("failed to update performance: %w", err)
	}

	return requireRow(result)
}

func (s *SQLiteStore) UpsertScoringResult(ctx context.Context, r *ScoringResult) error {
	featuresJSON, err := json.Marshal(r.Features)
	if err != nil {
		return fmt.Errorf("failed to marshal features: %w", err)
	}
	explanationJSON, err := json.Marshal(r.Explanation)
	if err != nil {
		return fmt.Errorf("failed to marshal explanation: %w", err)
	}

	now := time.Now().Unix()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scoring_results (lead_id, algorithm_id, score, confidence, category, features, explanation, scored_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (lead_id, algorithm_id) DO UPDATE SET
		     score = excluded.score,
		     confidence = excluded.confidence,
		     category = excluded.category,
		     features = excluded.features,
		     explanation = excluded.explanation,
		     scored_at = excluded.scored_at`,
		r.LeadID, r.AlgorithmID, r.Score, r.Confidence, r.Category,
		string(featuresJSON), string(explanationJSON), now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert scoring result: %w", err)
	}

	r.ScoredAt = time.Unix(now, 0)
	return nil
}

func (s *SQLiteStore) GetScoringResult(ctx context.Context, leadID string, algorithmID int64) (*ScoringResult, error) {
	var r ScoringResult
	var featuresJSON, explanationJSON string
	var scoredAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT id, lead_id, algorithm_id, score, confidence, category, features, explanation, scored_at
		 FROM scoring_results WHERE lead_id = ? AND algorithm_id = ?`,
		leadID, algorithmID,
	).Scan(&r.ID, &r.LeadID, &r.AlgorithmID, &r.Score, &r.Confidence, &r.Category,
		&featuresJSON, &explanationJSON, &scoredAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scoring result: %w", err)
	}

	if err := json.Unmarshal([]byte(featuresJSON), &r.Features); err != nil {
		return nil, fmt.Errorf("failed to unmarshal features: %w", err)
	}
	if err := json.Unmarshal([]byte(explanationJSON), &r.Explanation); err != nil {
		return nil, fmt.Errorf("failed to unmarshal explanation: %w", err)
	}
	r.ScoredAt = time.Unix(scoredAt, 0)

	return &r, nil
}

func (s *SQLiteStore) CreateCampaign(ctx context.Context, name string) (*Campaign, error) {
	now := time.Now().Unix()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO campaigns (name, created_at) VALUES (?, ?)`, name, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert campaign: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return &Campaign{ID: id, Name: name, CreatedAt: time.Unix(now, 0)}, nil
}

func (s *SQLiteStore) GetCampaign(ctx context.Context, name string) (*Campaign, error) {
	var c Campaign
	var createdAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, sent, delivered, opened, clicked, replied, bounced, unsubscribed, converted, revenue, created_at
		 FROM campaigns WHERE name = ?`, name,
	).Scan(&c.ID, &c.Name, &c.Sent, &c.Delivered, &c.Opened, &c.Clicked, &c.Replied,
		&c.Bounced, &c.Unsubscribed, &c.Converted, &c.Revenue, &createdAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}

	c.CreatedAt = time.Unix(createdAt, 0)
	return &c, nil
}

// campaignCounters whitelists counter names to columns; counter names
// arrive from the CLI and must never reach SQL unchecked.
var campaignCounters = map[string]string{
	"sent":         "sent",
	"delivered":    "delivered",
	"opened":       "opened",
	"clicked":      "clicked",
	"replied":      "replied",
	"bounced":      "bounced",
	"unsubscribed": "unsubscribed",
	"converted":    "converted",
}

func (s *SQLiteStore) IncrementCampaignCounter(ctx context.Context, name, counter string, n int64) error {
	column, ok := campaignCounters[counter]
	if !ok {
		return fmt.Errorf("unknown campaign counter %q", counter)
	}

	result, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE campaigns SET %s = %s + ? WHERE name = ?`, column, column), n, name,
	)
	if err != nil {
		return fmt.Errorf("failed to increment campaign counter: %w", err)
	}

	return requireRow(result)
}

func (s *SQLiteStore) AddCampaignRevenue(ctx context.Context, name string, amount float64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE campaigns SET revenue = revenue + ? WHERE name = ?`, amount, name,
	)
	if err != nil {
		return fmt.Errorf("failed to add campaign revenue: %w", err)
	}

	return requireRow(result)
}

func (s *SQLiteStore) UpsertCampaignMetrics(ctx context.Context, m *CampaignMetrics) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO campaign_metrics (campaign_id, delivery_rate, open_rate, click_rate, reply_rate,
		                               bounce_rate, unsubscribe_rate, conversion_rate, avg_revenue_per_conversion, calculated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (campaign_id) DO UPDATE SET
		     delivery_rate = excluded.delivery_rate,
		     open_rate = excluded.open_rate,
		     click_rate = excluded.click_rate,
		     reply_rate = excluded.reply_rate,
		     bounce_rate = excluded.bounce_rate,
		     unsubscribe_rate = excluded.unsubscribe_rate,
		     conversion_rate = excluded.conversion_rate,
		     avg_revenue_per_conversion = excluded.avg_revenue_per_conversion,
		     calculated_at = excluded.calculated_at`,
		m.CampaignID, m.DeliveryRate, m.OpenRate, m.ClickRate, m.ReplyRate,
		m.BounceRate, m.UnsubscribeRate, m.ConversionRate, m.AvgRevenuePerConversion,
		m.CalculatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert campaign metrics: %w", err)
	}

	return nil
}

func (s *SQLiteStore) GetCampaignMetrics(ctx context.Context, campaignID int64) (*CampaignMetrics, error) {
	var m CampaignMetrics
	var calculatedAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT campaign_id, delivery_rate, open_rate, click_rate, reply_rate, bounce_rate,
		        unsubscribe_rate, conversion_rate, avg_revenue_per_conversion, calculated_at
		 FROM campaign_metrics WHERE campaign_id = ?`, campaignID,
	).Scan(&m.CampaignID, &m.DeliveryRate, &m.OpenRate, &m.ClickRate, &m.ReplyRate,
		&m.BounceRate, &m.UnsubscribeRate, &m.ConversionRate, &m.AvgRevenuePerConversion, &calculatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign metrics: %w", err)
	}

	m.CalculatedAt = time.Unix(calculatedAt, 0)
	return &m, nil
}

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableString(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
