package datastore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"aml-monitor/internal/rules"
)

// mockStore implements DataStore on JSON files so the toolkit runs without
// a database. One file per collection under the data directory.
type mockStore struct {
	mu   sync.Mutex
	path string

	criteriaSets []CriteriaSet
	ruleSets     []rules.RuleSet
	scoringRuns  []ScoringRun
}

const (
	criteriaSetsFile = "criteria_sets.json"
	ruleSetsFile     = "rule_sets.json"
	scoringRunsFile  = "scoring_runs.json"
)

func newMockStore(path string) (DataStore, error) {
	s := &mockStore{path: path}
	if err := loadJSONFile(filepath.Join(path, criteriaSetsFile), &s.criteriaSets); err != nil {
		return nil, err
	}
	if err := loadJSONFile(filepath.Join(path, ruleSetsFile), &s.ruleSets); err != nil {
		return nil, err
	}
	if err := loadJSONFile(filepath.Join(path, scoringRunsFile), &s.scoringRuns); err != nil {
		return nil, err
	}
	return s, nil
}

// loadJSONFile decodes a collection file; a missing file is an empty
// collection, not an error.
func loadJSONFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read mock data %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse mock data %s: %w", path, err)
	}
	return nil
}

func (s *mockStore) saveJSONFile(name string, v interface{}) error {
	if err := os.MkdirAll(s.path, 0o755); err != nil {
		return fmt.Errorf("failed to create mock data dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode mock data: %w", err)
	}
	path := filepath.Join(s.path, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write mock data %s: %w", path, err)
	}
	return nil
}

func (s *mockStore) Close() error { return nil }

// InitDB creates the data directory; the collection files appear on first write.
func (s *mockStore) InitDB(ctx context.Context) error {
	return os.MkdirAll(s.path, 0o755)
}

func (s *mockStore) SaveCriteriaSet(ctx context.Context, name string, criteria []rules.Criterion) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs := CriteriaSet{
		SetID:     uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Criteria:  criteria,
	}
	s.criteriaSets = append(s.criteriaSets, cs)
	if err := s.saveJSONFile(criteriaSetsFile, s.criteriaSets); err != nil {
		return "", err
	}
	return cs.SetID, nil
}

func (s *mockStore) GetCriteriaSet(ctx context.Context, setID string) (*CriteriaSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.criteriaSets {
		if s.criteriaSets[i].SetID == setID {
			cs := s.criteriaSets[i]
			// Copy so callers mutating the result do not edit stored state.
			cs.Criteria = append([]rules.Criterion(nil), cs.Criteria...)
			return &cs, nil
		}
	}
	return nil, fmt.Errorf("criteria set %s not found", setID)
}

func (s *mockStore) ListCriteriaSets(ctx context.Context) ([]CriteriaSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CriteriaSet(nil), s.criteriaSets...), nil
}

func (s *mockStore) SaveRuleSet(ctx context.Context, rs *rules.RuleSet) (string, error) {
	if rs.Regulator == "" {
		return "", fmt.Errorf("rule set has no regulator")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	replaced := false
	for i := range s.ruleSets {
		if s.ruleSets[i].Regulator == rs.Regulator {
			s.ruleSets[i] = *rs
			replaced = true
			break
		}
	}
	if !replaced {
		s.ruleSets = append(s.ruleSets, *rs)
	}
	if err := s.saveJSONFile(ruleSetsFile, s.ruleSets); err != nil {
		return "", err
	}
	return rs.Regulator, nil
}

func (s *mockStore) GetRuleSet(ctx context.Context, regulator string) (*rules.RuleSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.ruleSets {
		if s.ruleSets[i].Regulator == regulator {
			rs := s.ruleSets[i]
			rs.ActionableRules = append([]rules.ActionableRule(nil), rs.ActionableRules...)
			return &rs, nil
		}
	}
	return nil, fmt.Errorf("no rule set for regulator %s", regulator)
}

func (s *mockStore) ListRuleSets(ctx context.Context) ([]rules.RuleSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]rules.RuleSet(nil), s.ruleSets...), nil
}

func (s *mockStore) SaveScoringRun(ctx context.Context, run *ScoringRun) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	s.scoringRuns = append(s.scoringRuns, *run)
	if err := s.saveJSONFile(scoringRunsFile, s.scoringRuns); err != nil {
		return "", err
	}
	return run.RunID, nil
}

func (s *mockStore) GetScoringRun(ctx context.Context, runID string) (*ScoringRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.scoringRuns {
		if s.scoringRuns[i].RunID == runID {
			run := s.scoringRuns[i]
			run.Results = append([]RowResult(nil), run.Results...)
			return &run, nil
		}
	}
	return nil, fmt.Errorf("scoring run %s not found", runID)
}

func (s *mockStore) ListScoringRuns(ctx context.Context) ([]ScoringRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ScoringRun(nil), s.scoringRuns...), nil
}
