package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCriterionWeight(t *testing.T) {
	tests := []struct {
		severity string
		want     int
	}{
		{"low", WeightLow},
		{"medium", WeightMedium},
		{"high", WeightHigh},
		{"High", WeightHigh},
		{"LOW", WeightLow},
		{"severe", WeightMedium},
		{"", WeightMedium},
	}
	for _, tt := range tests {
		t.Run(tt.severity, func(t *testing.T) {
			c := Criterion{Severity: tt.severity}
			assert.Equal(t, tt.want, c.Weight())
		})
	}
}

func TestCriterionIdentifier(t *testing.T) {
	tests := []struct {
		name string
		crit Criterion
		want string
	}{
		{"id wins", Criterion{CriterionID: "MAS-C-001", Title: "Shell companies"}, "MAS-C-001"},
		{"title fallback", Criterion{Title: "Shell companies"}, "Shell companies"},
		{"unknown fallback", Criterion{}, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.crit.Identifier())
		})
	}
}

func TestCriterionKeywords(t *testing.T) {
	c := Criterion{
		Triggers: []Trigger{
			{Type: "keyword", Value: "Shell Company"},
			{Type: "pattern", Value: "  HAWALA  "},
			{Type: "keyword", Value: ""},
			{Type: "keyword", Value: "   "},
		},
	}
	assert.Equal(t, []string{"shell company", "hawala"}, c.Keywords())
}

func TestParseCriteria(t *testing.T) {
	t.Run("full document", func(t *testing.T) {
		data := []byte(`{
			"criteria": [
				{
					"criterion_id": "MAS-C-001",
					"title": "Shell company counterparties",
					"severity": "high",
					"triggers": [{"type": "keyword", "value": "shell"}]
				}
			]
		}`)
		criteria, err := ParseCriteria(data)
		require.NoError(t, err)
		require.Len(t, criteria, 1)
		assert.Equal(t, "MAS-C-001", criteria[0].CriterionID)
		assert.Equal(t, "high", criteria[0].Severity)
		require.Len(t, criteria[0].Triggers, 1)
		assert.Equal(t, "shell", criteria[0].Triggers[0].Value)
	})

	t.Run("missing criteria key yields empty list", func(t *testing.T) {
		criteria, err := ParseCriteria([]byte(`{"summary": "nothing here"}`))
		require.NoError(t, err)
		assert.NotNil(t, criteria)
		assert.Empty(t, criteria)
	})

	t.Run("malformed JSON errors", func(t *testing.T) {
		_, err := ParseCriteria([]byte(`{"criteria": [`))
		assert.Error(t, err)
	})
}

func TestLoadCriteriaFromJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "criteria.json")
	content := `{"criteria": [{"criterion_id": "C1", "severity": "low"}]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	criteria, err := LoadCriteriaFromJSON(path)
	require.NoError(t, err)
	require.Len(t, criteria, 1)
	assert.Equal(t, "C1", criteria[0].CriterionID)

	_, err = LoadCriteriaFromJSON(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
