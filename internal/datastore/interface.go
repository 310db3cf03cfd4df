// Package datastore persists criteria sets, regulator rule sets and scoring
// runs. It has two implementations behind one interface: PostgreSQL for
// real deployments and a JSON-file mock for local runs and demos.
package datastore

import (
	"context"
	"fmt"
	"time"

	"aml-monitor/internal/rules"
)

// RowResult is the persisted outcome for one transaction in a scoring run.
type RowResult struct {
	TransactionID   string   `json:"transaction_id"`
	AMLRiskScore    int      `json:"aml_risk_score"`
	MatchedCriteria []string `json:"matched_criteria"`
	AssignedTeam    string   `json:"assigned_team,omitempty"`
}

// ScoringRun records one pass of the scorer over a dataset.
type ScoringRun struct {
	RunID         string      `json:"run_id"`
	CriteriaSetID string      `json:"criteria_set_id"`
	SourceFile    string      `json:"source_file"`
	RowCount      int         `json:"row_count"`
	CreatedAt     time.Time   `json:"created_at"`
	Results       []RowResult `json:"results"`
}

// CriteriaSet is a named, versionless bundle of criteria.
type CriteriaSet struct {
	SetID     string            `json:"set_id"`
	Name      string            `json:"name"`
	CreatedAt time.Time         `json:"created_at"`
	Criteria  []rules.Criterion `json:"criteria"`
}

// DataStore defines all persistence operations. Both the PostgreSQL store
// and the JSON mock store implement it.
type DataStore interface {
	// Lifecycle
	Close() error
	InitDB(ctx context.Context) error

	// Criteria sets
	SaveCriteriaSet(ctx context.Context, name string, criteria []rules.Criterion) (string, error)
	GetCriteriaSet(ctx context.Context, setID string) (*CriteriaSet, error)
	ListCriteriaSets(ctx context.Context) ([]CriteriaSet, error)

	// Regulator rule sets
	SaveRuleSet(ctx context.Context, rs *rules.RuleSet) (string, error)
	GetRuleSet(ctx context.Context, regulator string) (*rules.RuleSet, error)
	ListRuleSets(ctx context.Context) ([]rules.RuleSet, error)

	// Scoring runs
	SaveScoringRun(ctx context.Context, run *ScoringRun) (string, error)
	GetScoringRun(ctx context.Context, runID string) (*ScoringRun, error)
	ListScoringRuns(ctx context.Context) ([]ScoringRun, error)
}

// Type represents the kind of data store to use.
type Type string

const (
	// PostgreSQLStore uses a real PostgreSQL database.
	PostgreSQLStore Type = "postgresql"
	// MockStore uses JSON files on disk.
	MockStore Type = "mock"
)

// Config holds configuration for data store creation.
type Config struct {
	Type             Type
	ConnectionString string
	MockDataPath     string
}

// NewDataStore creates a data store based on configuration.
func NewDataStore(config Config) (DataStore, error) {
	switch config.Type {
	case PostgreSQLStore:
		return newPostgresStore(config.ConnectionString)
	case MockStore:
		return newMockStore(config.MockDataPath)
	default:
		return nil, &UnsupportedStoreTypeError{Type: string(config.Type)}
	}
}

// UnsupportedStoreTypeError is returned when an unsupported store type is requested.
type UnsupportedStoreTypeError struct {
	Type string
}

func (e *UnsupportedStoreTypeError) Error() string {
	return fmt.Sprintf("unsupported store type: %s (valid types: postgresql, mock)", e.Type)
}
