// Package dataset loads and writes transaction tables as CSV, preserving
// column order across a round trip.
package dataset

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"strconv"

	"aml-monitor/internal/scoring"
)

// Column names added by scoring.
const (
	ColRiskScore       = "aml_risk_score"
	ColMatchedCriteria = "matched_criteria"
)

// Table is an ordered transaction table. Rows never share maps with the
// table they were derived from.
type Table struct {
	Columns []string
	Rows    []scoring.Transaction
}

// LoadCSV reads a headered CSV file. Short records pad with empty strings;
// long records are an error from the csv reader.
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(records) == 0 {
		return &Table{Columns: []string{}, Rows: []scoring.Transaction{}}, nil
	}

	t := &Table{Columns: records[0]}
	for _, record := range records[1:] {
		row := make(scoring.Transaction, len(t.Columns))
		for i, col := range t.Columns {
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// WriteCSV writes the table with its columns in order.
func (t *Table) WriteCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, col := range t.Columns {
			record[i] = row[col]
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// WithColumn returns a new table with the column set to the given values.
// An existing column keeps its position; a new one is appended.
func (t *Table) WithColumn(name string, values []string) (*Table, error) {
	if len(values) != len(t.Rows) {
		return nil, fmt.Errorf("column %s has %d values for %d rows", name, len(values), len(t.Rows))
	}

	out := &Table{Columns: append([]string(nil), t.Columns...)}
	exists := false
	for _, c := range out.Columns {
		if c == name {
			exists = true
			break
		}
	}
	if !exists {
		out.Columns = append(out.Columns, name)
	}
	for i, row := range t.Rows {
		clone := maps.Clone(row)
		if clone == nil {
			clone = scoring.Transaction{}
		}
		clone[name] = values[i]
		out.Rows = append(out.Rows, clone)
	}
	if out.Rows == nil {
		out.Rows = []scoring.Transaction{}
	}
	return out, nil
}

// WithScores returns a new table augmented with the aml_risk_score and
// matched_criteria columns. Matched criteria serialize as a JSON list so the
// column round-trips losslessly through CSV.
func (t *Table) WithScores(scored []scoring.ScoredTransaction) (*Table, error) {
	if len(scored) != len(t.Rows) {
		return nil, fmt.Errorf("%d scores for %d rows", len(scored), len(t.Rows))
	}
	scores := make([]string, len(scored))
	matched := make([]string, len(scored))
	for i, s := range scored {
		scores[i] = strconv.Itoa(s.AMLRiskScore)
		m := s.MatchedCriteria
		if m == nil {
			m = []string{}
		}
		data, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("failed to encode matched criteria: %w", err)
		}
		matched[i] = string(data)
	}
	out, err := t.WithColumn(ColRiskScore, scores)
	if err != nil {
		return nil, err
	}
	return out.WithColumn(ColMatchedCriteria, matched)
}
