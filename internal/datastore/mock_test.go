package datastore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aml-monitor/internal/rules"
)

func newTestMockStore(t *testing.T) DataStore {
	t.Helper()
	ds, err := NewDataStore(Config{Type: MockStore, MockDataPath: t.TempDir()})
	require.NoError(t, err)
	return ds
}

func TestMockStoreCriteriaSets(t *testing.T) {
	ctx := context.Background()
	ds := newTestMockStore(t)
	defer ds.Close()

	criteria := []rules.Criterion{
		{CriterionID: "C1", Title: "Shell companies", Severity: "high"},
	}
	setID, err := ds.SaveCriteriaSet(ctx, "mas-criteria", criteria)
	require.NoError(t, err)
	require.NotEmpty(t, setID)

	cs, err := ds.GetCriteriaSet(ctx, setID)
	require.NoError(t, err)
	assert.Equal(t, "mas-criteria", cs.Name)
	require.Len(t, cs.Criteria, 1)
	assert.Equal(t, "C1", cs.Criteria[0].CriterionID)
	assert.False(t, cs.CreatedAt.IsZero())

	list, err := ds.ListCriteriaSets(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = ds.GetCriteriaSet(ctx, "no-such-id")
	assert.Error(t, err)
}

func TestMockStoreRuleSets(t *testing.T) {
	ctx := context.Background()
	ds := newTestMockStore(t)
	defer ds.Close()

	rs := &rules.RuleSet{
		Regulator:         "MAS",
		RegulationSummary: "Original summary",
		ActionableRules:   []rules.ActionableRule{{RuleID: "MAS-R-001", Obligation: "Do CDD"}},
	}
	key, err := ds.SaveRuleSet(ctx, rs)
	require.NoError(t, err)
	assert.Equal(t, "MAS", key)

	// Saving the same regulator again replaces, not duplicates.
	rs2 := &rules.RuleSet{Regulator: "MAS", RegulationSummary: "Updated summary"}
	_, err = ds.SaveRuleSet(ctx, rs2)
	require.NoError(t, err)

	got, err := ds.GetRuleSet(ctx, "MAS")
	require.NoError(t, err)
	assert.Equal(t, "Updated summary", got.RegulationSummary)

	list, err := ds.ListRuleSets(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = ds.GetRuleSet(ctx, "HKMA")
	assert.Error(t, err)

	_, err = ds.SaveRuleSet(ctx, &rules.RuleSet{})
	assert.Error(t, err)
}

func TestMockStoreScoringRuns(t *testing.T) {
	ctx := context.Background()
	ds := newTestMockStore(t)
	defer ds.Close()

	run := &ScoringRun{
		SourceFile: "transactions.csv",
		RowCount:   2,
		Results: []RowResult{
			{TransactionID: "T1", AMLRiskScore: 5, MatchedCriteria: []string{"C1"}},
			{TransactionID: "T2", AMLRiskScore: 0, MatchedCriteria: []string{}},
		},
	}
	runID, err := ds.SaveScoringRun(ctx, run)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	got, err := ds.GetScoringRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, "transactions.csv", got.SourceFile)
	assert.Equal(t, 2, got.RowCount)
	assert.False(t, got.CreatedAt.IsZero())

	_, err = ds.GetScoringRun(ctx, "no-such-run")
	assert.Error(t, err)
}

func TestMockStoreGetReturnsIndependentCopies(t *testing.T) {
	ctx := context.Background()
	ds := newTestMockStore(t)
	defer ds.Close()

	setID, err := ds.SaveCriteriaSet(ctx, "mas-criteria", []rules.Criterion{
		{CriterionID: "C1", Severity: "high"},
	})
	require.NoError(t, err)

	_, err = ds.SaveRuleSet(ctx, &rules.RuleSet{
		Regulator:       "MAS",
		ActionableRules: []rules.ActionableRule{{RuleID: "MAS-R-001", Obligation: "Do CDD"}},
	})
	require.NoError(t, err)

	// Mutating a retrieved set must not change what the store hands out next.
	cs, err := ds.GetCriteriaSet(ctx, setID)
	require.NoError(t, err)
	cs.Criteria[0].Severity = "low"

	again, err := ds.GetCriteriaSet(ctx, setID)
	require.NoError(t, err)
	assert.Equal(t, "high", again.Criteria[0].Severity)

	rs, err := ds.GetRuleSet(ctx, "MAS")
	require.NoError(t, err)
	rs.ActionableRules[0].Obligation = "edited"

	rsAgain, err := ds.GetRuleSet(ctx, "MAS")
	require.NoError(t, err)
	assert.Equal(t, "Do CDD", rsAgain.ActionableRules[0].Obligation)
}

func TestMockStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	ds, err := NewDataStore(Config{Type: MockStore, MockDataPath: dir})
	require.NoError(t, err)
	setID, err := ds.SaveCriteriaSet(ctx, "persisted", []rules.Criterion{{CriterionID: "C1"}})
	require.NoError(t, err)
	require.NoError(t, ds.Close())

	reopened, err := NewDataStore(Config{Type: MockStore, MockDataPath: dir})
	require.NoError(t, err)
	defer reopened.Close()

	cs, err := reopened.GetCriteriaSet(ctx, setID)
	require.NoError(t, err)
	assert.Equal(t, "persisted", cs.Name)
}

func TestMockStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, criteriaSetsFile), []byte("not json"), 0644))

	_, err := NewDataStore(Config{Type: MockStore, MockDataPath: dir})
	assert.Error(t, err)
}

func TestNewDataStoreUnsupportedType(t *testing.T) {
	_, err := NewDataStore(Config{Type: "redis"})
	require.Error(t, err)
	var utErr *UnsupportedStoreTypeError
	assert.ErrorAs(t, err, &utErr)
}
