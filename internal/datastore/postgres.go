package datastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"aml-monitor/internal/rules"
)

// postgresStore implements DataStore on PostgreSQL. Criteria, rules and run
// results are stored as JSONB documents.
type postgresStore struct {
	db *sqlx.DB
}

func newPostgresStore(connectionString string) (DataStore, error) {
	db, err := sqlx.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	return &postgresStore{db: db}, nil
}

func (s *postgresStore) Close() error {
	return s.db.Close()
}

var schemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS "aml-monitor"`,
	`CREATE TABLE IF NOT EXISTS "aml-monitor".criteria_sets (
		set_id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		criteria JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS "aml-monitor".rule_sets (
		regulator TEXT PRIMARY KEY,
		regulation_summary TEXT NOT NULL DEFAULT '',
		actionable_rules JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS "aml-monitor".scoring_runs (
		run_id UUID PRIMARY KEY,
		criteria_set_id TEXT NOT NULL DEFAULT '',
		source_file TEXT NOT NULL DEFAULT '',
		row_count INTEGER NOT NULL DEFAULT 0,
		results JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

func (s *postgresStore) InitDB(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// =============================================================================
// Criteria sets
// =============================================================================

type criteriaSetRow struct {
	SetID     string    `db:"set_id"`
	Name      string    `db:"name"`
	Criteria  []byte    `db:"criteria"`
	CreatedAt time.Time `db:"created_at"`
}

func (r criteriaSetRow) toCriteriaSet() (CriteriaSet, error) {
	cs := CriteriaSet{SetID: r.SetID, Name: r.Name, CreatedAt: r.CreatedAt}
	if err := json.Unmarshal(r.Criteria, &cs.Criteria); err != nil {
		return cs, fmt.Errorf("failed to decode criteria for set %s: %w", r.SetID, err)
	}
	return cs, nil
}

func (s *postgresStore) SaveCriteriaSet(ctx context.Context, name string, criteria []rules.Criterion) (string, error) {
	data, err := json.Marshal(criteria)
	if err != nil {
		return "", fmt.Errorf("failed to encode criteria: %w", err)
	}
	setID := uuid.New().String()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO "aml-monitor".criteria_sets (set_id, name, criteria) VALUES ($1, $2, $3)`,
		setID, name, data)
	if err != nil {
		return "", fmt.Errorf("failed to save criteria set: %w", err)
	}
	return setID, nil
}

func (s *postgresStore) GetCriteriaSet(ctx context.Context, setID string) (*CriteriaSet, error) {
	var row criteriaSetRow
	err := s.db.GetContext(ctx, &row,
		`SELECT set_id, name, criteria, created_at FROM "aml-monitor".criteria_sets WHERE set_id = $1`,
		setID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("criteria set %s not found", setID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load criteria set: %w", err)
	}
	cs, err := row.toCriteriaSet()
	if err != nil {
		return nil, err
	}
	return &cs, nil
}

func (s *postgresStore) ListCriteriaSets(ctx context.Context) ([]CriteriaSet, error) {
	var rows []criteriaSetRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT set_id, name, criteria, created_at FROM "aml-monitor".criteria_sets ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list criteria sets: %w", err)
	}
	sets := make([]CriteriaSet, 0, len(rows))
	for _, r := range rows {
		cs, err := r.toCriteriaSet()
		if err != nil {
			return nil, err
		}
		sets = append(sets, cs)
	}
	return sets, nil
}

// =============================================================================
// Rule sets
// =============================================================================

type ruleSetRow struct {
	Regulator         string `db:"regulator"`
	RegulationSummary string `db:"regulation_summary"`
	ActionableRules   []byte `db:"actionable_rules"`
}

func (r ruleSetRow) toRuleSet() (rules.RuleSet, error) {
	rs := rules.RuleSet{Regulator: r.Regulator, RegulationSummary: r.RegulationSummary}
	if err := json.Unmarshal(r.ActionableRules, &rs.ActionableRules); err != nil {
		return rs, fmt.Errorf("failed to decode rules for %s: %w", r.Regulator, err)
	}
	return rs, nil
}

func (s *postgresStore) SaveRuleSet(ctx context.Context, rs *rules.RuleSet) (string, error) {
	if rs.Regulator == "" {
		return "", fmt.Errorf("rule set has no regulator")
	}
	data, err := json.Marshal(rs.ActionableRules)
	if err != nil {
		return "", fmt.Errorf("failed to encode rules: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO "aml-monitor".rule_sets (regulator, regulation_summary, actionable_rules)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (regulator) DO UPDATE
		 SET regulation_summary = EXCLUDED.regulation_summary,
		     actionable_rules = EXCLUDED.actionable_rules,
		     updated_at = now()`,
		rs.Regulator, rs.RegulationSummary, data)
	if err != nil {
		return "", fmt.Errorf("failed to save rule set: %w", err)
	}
	return rs.Regulator, nil
}

func (s *postgresStore) GetRuleSet(ctx context.Context, regulator string) (*rules.RuleSet, error) {
	var row ruleSetRow
	err := s.db.GetContext(ctx, &row,
		`SELECT regulator, regulation_summary, actionable_rules FROM "aml-monitor".rule_sets WHERE regulator = $1`,
		regulator)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no rule set for regulator %s", regulator)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load rule set: %w", err)
	}
	rs, err := row.toRuleSet()
	if err != nil {
		return nil, err
	}
	return &rs, nil
}

func (s *postgresStore) ListRuleSets(ctx context.Context) ([]rules.RuleSet, error) {
	var rows []ruleSetRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT regulator, regulation_summary, actionable_rules FROM "aml-monitor".rule_sets ORDER BY regulator`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rule sets: %w", err)
	}
	sets := make([]rules.RuleSet, 0, len(rows))
	for _, r := range rows {
		rs, err := r.toRuleSet()
		if err != nil {
			return nil, err
		}
		sets = append(sets, rs)
	}
	return sets, nil
}

// =============================================================================
// Scoring runs
// =============================================================================

type scoringRunRow struct {
	RunID         string    `db:"run_id"`
	CriteriaSetID string    `db:"criteria_set_id"`
	SourceFile    string    `db:"source_file"`
	RowCount      int       `db:"row_count"`
	Results       []byte    `db:"results"`
	CreatedAt     time.Time `db:"created_at"`
}

func (r scoringRunRow) toScoringRun() (ScoringRun, error) {
	run := ScoringRun{
		RunID:         r.RunID,
		CriteriaSetID: r.CriteriaSetID,
		SourceFile:    r.SourceFile,
		RowCount:      r.RowCount,
		CreatedAt:     r.CreatedAt,
	}
	if err := json.Unmarshal(r.Results, &run.Results); err != nil {
		return run, fmt.Errorf("failed to decode results for run %s: %w", r.RunID, err)
	}
	return run, nil
}

func (s *postgresStore) SaveScoringRun(ctx context.Context, run *ScoringRun) (string, error) {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	data, err := json.Marshal(run.Results)
	if err != nil {
		return "", fmt.Errorf("failed to encode run results: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO "aml-monitor".scoring_runs (run_id, criteria_set_id, source_file, row_count, results)
		 VALUES ($1, $2, $3, $4, $5)`,
		run.RunID, run.CriteriaSetID, run.SourceFile, run.RowCount, data)
	if err != nil {
		return "", fmt.Errorf("failed to save scoring run: %w", err)
	}
	return run.RunID, nil
}

func (s *postgresStore) GetScoringRun(ctx context.Context, runID string) (*ScoringRun, error) {
	var row scoringRunRow
	err := s.db.GetContext(ctx, &row,
		`SELECT run_id, criteria_set_id, source_file, row_count, results, created_at
		 FROM "aml-monitor".scoring_runs WHERE run_id = $1`,
		runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("scoring run %s not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load scoring run: %w", err)
	}
	run, err := row.toScoringRun()
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *postgresStore) ListScoringRuns(ctx context.Context) ([]ScoringRun, error) {
	var rows []scoringRunRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT run_id, criteria_set_id, source_file, row_count, results, created_at
		 FROM "aml-monitor".scoring_runs ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list scoring runs: %w", err)
	}
	runs := make([]ScoringRun, 0, len(rows))
	for _, r := range rows {
		run, err := r.toScoringRun()
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}
