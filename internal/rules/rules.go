// Package rules defines the structured monitoring criteria and actionable
// rule sets that the scoring and assessment engines consume. Criteria are
// produced by the LLM extraction agent from regulatory clause text and are
// immutable once loaded.
package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Severity weights applied per matched criterion.
const (
	WeightLow    = 1
	WeightMedium = 3
	WeightHigh   = 5
)

// SeverityWeights maps a severity label to its additive score weight.
var SeverityWeights = map[string]int{
	"low":    WeightLow,
	"medium": WeightMedium,
	"high":   WeightHigh,
}

// Trigger is a single trigger descriptor on a criterion. Only Value is
// consumed by matching; Type is retained for attribution and reporting.
type Trigger struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Criterion is one monitoring criterion extracted from regulatory text.
// All fields are optional; missing values degrade to defaults rather than
// producing errors.
type Criterion struct {
	CriterionID string    `json:"criterion_id,omitempty"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Source      string    `json:"source,omitempty"`
	Severity    string    `json:"severity,omitempty"`
	Triggers    []Trigger `json:"triggers,omitempty"`
}

// Weight returns the additive score weight for the criterion's severity.
// Unrecognized or missing severities count as medium.
func (c Criterion) Weight() int {
	if w, ok := SeverityWeights[strings.ToLower(c.Severity)]; ok {
		return w
	}
	return WeightMedium
}

// Identifier returns the value recorded in matched_criteria for this
// criterion: the criterion id, falling back to the title, then "unknown".
func (c Criterion) Identifier() string {
	if c.CriterionID != "" {
		return c.CriterionID
	}
	if c.Title != "" {
		return c.Title
	}
	return "unknown"
}

// Keywords derives the lowercased keyword set from the criterion's triggers.
// Empty trigger values are skipped. All trigger types are treated as literal
// keywords.
func (c Criterion) Keywords() []string {
	var kws []string
	for _, t := range c.Triggers {
		v := strings.ToLower(strings.TrimSpace(t.Value))
		if v != "" {
			kws = append(kws, v)
		}
	}
	return kws
}

// criteriaDocument is the JSON envelope produced by the extraction agent.
type criteriaDocument struct {
	Criteria []Criterion `json:"criteria"`
}

// ParseCriteria decodes a `{"criteria": [...]}` document. A document without
// the criteria key yields an empty list, not an error.
func ParseCriteria(data []byte) ([]Criterion, error) {
	var doc criteriaDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse criteria document: %w", err)
	}
	if doc.Criteria == nil {
		return []Criterion{}, nil
	}
	return doc.Criteria, nil
}

// LoadCriteriaFromJSON reads a criteria document from disk.
func LoadCriteriaFromJSON(path string) ([]Criterion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read criteria file %s: %w", path, err)
	}
	return ParseCriteria(data)
}
