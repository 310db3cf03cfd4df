package rules

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRuleFile(t *testing.T, dir, name string, rs RuleSet) {
	t.Helper()
	data, err := json.Marshal(rs)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0644))
}

func TestMergeRuleFiles(t *testing.T) {
	dir := t.TempDir()

	writeRuleFile(t, dir, "rules_chunk_01.json", RuleSet{
		RegulationSummary: "First chunk summary",
		ActionableRules: []ActionableRule{
			{RuleID: "HKMA-R-001", Obligation: "Screen against sanctions lists"},
			{RuleID: "HKMA-R-002", Obligation: "Report suspicious transactions"},
		},
	})
	writeRuleFile(t, dir, "rules_chunk_02.json", RuleSet{
		RegulationSummary: "Second chunk summary",
		ActionableRules: []ActionableRule{
			// Same content as HKMA-R-001 under a different id: dropped.
			{RuleID: "HKMA-R-009", Obligation: "Screen against sanctions lists"},
			// New content reusing an already-taken id: reassigned.
			{RuleID: "HKMA-R-002", Obligation: "Retain records for five years"},
			{RuleID: "", Obligation: "Train staff annually"},
		},
	})

	merged, stats, err := MergeRuleFiles(dir, "rules_chunk_*.json", "HKMA")
	require.NoError(t, err)

	assert.Equal(t, 2, stats.FilesRead)
	assert.Equal(t, 5, stats.TotalRules)
	assert.Equal(t, 4, stats.MergedRules)

	assert.Equal(t, "First chunk summary", merged.RegulationSummary)

	ids := make([]string, len(merged.ActionableRules))
	obligations := make(map[string]string)
	for i, rule := range merged.ActionableRules {
		ids[i] = rule.RuleID
		obligations[rule.Obligation] = rule.RuleID
	}
	assert.Equal(t, "HKMA-R-001", obligations["Screen against sanctions lists"])
	assert.Equal(t, "HKMA-R-002", obligations["Report suspicious transactions"])
	// Colliding and missing ids get sequential generated ids.
	assert.Regexp(t, `^HKMA-R-\d{3}$`, obligations["Retain records for five years"])
	assert.Regexp(t, `^HKMA-R-\d{3}$`, obligations["Train staff annually"])

	seen := make(map[string]bool)
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate rule id %s", id)
		seen[id] = true
	}
}

func TestMergeRuleFilesStripsIllegalIDCharacters(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "rules_chunk_01.json", RuleSet{
		ActionableRules: []ActionableRule{
			{RuleID: "MAS R 001!", Obligation: "Identify the customer"},
		},
	})

	merged, _, err := MergeRuleFiles(dir, "rules_chunk_*.json", "MAS")
	require.NoError(t, err)
	require.Len(t, merged.ActionableRules, 1)
	assert.Equal(t, "MASR001", merged.ActionableRules[0].RuleID)
}

func TestMergeRuleFilesNoMatches(t *testing.T) {
	dir := t.TempDir()
	_, _, err := MergeRuleFiles(dir, "rules_chunk_*.json", "MAS")
	assert.Error(t, err)
}

func TestCombineRuleSets(t *testing.T) {
	a := &RuleSet{
		RegulationSummary: "MAS summary.",
		ActionableRules: []ActionableRule{
			{
				RuleID:               "MAS-R-001",
				Obligation:           "Perform customer due diligence before establishing relations",
				RiskSignalsToMonitor: []string{"anonymous instructions"},
			},
		},
	}
	b := &RuleSet{
		RegulationSummary: "HKMA summary.",
		ActionableRules: []ActionableRule{
			{
				// Near-identical obligation: merged into MAS-R-001.
				RuleID:                      "HKMA-R-001",
				Obligation:                  "Perform customer due diligence before establishing relations.",
				RiskSignalsToMonitor:        []string{"anonymous instructions", "nominee directors"},
				RequiredDocumentsOrControls: []string{"CDD file"},
			},
			{
				RuleID:     "HKMA-R-002",
				Obligation: "File suspicious transaction reports without delay",
			},
		},
	}

	combined := CombineRuleSets([]*RuleSet{a, b, nil})
	assert.Equal(t, "MAS summary. HKMA summary.", combined.RegulationSummary)
	require.Len(t, combined.ActionableRules, 2)

	survivor := combined.ActionableRules[0]
	assert.Equal(t, "MAS-R-001", survivor.RuleID)
	assert.Equal(t, []string{"anonymous instructions", "nominee directors"}, survivor.RiskSignalsToMonitor)
	assert.Equal(t, []string{"CDD file"}, survivor.RequiredDocumentsOrControls)

	assert.Equal(t, "HKMA-R-002", combined.ActionableRules[1].RuleID)
}

func TestCombineRuleSetsDuplicateIDs(t *testing.T) {
	a := &RuleSet{ActionableRules: []ActionableRule{{RuleID: "R-1", Obligation: "First"}}}
	b := &RuleSet{ActionableRules: []ActionableRule{{RuleID: "R-1", Obligation: "Completely different"}}}

	combined := CombineRuleSets([]*RuleSet{a, b})
	require.Len(t, combined.ActionableRules, 1)
	assert.Equal(t, "First", combined.ActionableRules[0].Obligation)
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		min  float64
		max  float64
	}{
		{"identical", "report suspicious activity", "report suspicious activity", 1, 1},
		{"near identical", "report suspicious activity", "report suspicious activity.", 0.9, 1},
		{"disjoint", "abc", "xyz", 0, 0},
		{"empty", "", "anything", 0, 0},
		{"partial overlap", "customer due diligence", "enhanced due diligence", 0.5, 0.95},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := similarity(tt.a, tt.b)
			assert.GreaterOrEqual(t, got, tt.min)
			assert.LessOrEqual(t, got, tt.max)
		})
	}
}

func TestUnionStrings(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, unionStrings([]string{"a", "b"}, []string{"b", "c"}))
	assert.Equal(t, []string{"a"}, unionStrings([]string{"a"}, nil))
	assert.Equal(t, []string{"x"}, unionStrings(nil, []string{"x"}))
}
