package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"aml-monitor/internal/config"
	"aml-monitor/internal/dataset"
	"aml-monitor/internal/datastore"
	"aml-monitor/internal/rules"
	"aml-monitor/internal/scoring"
)

// RunScore handles the 'score' command: apply a criteria set to a CSV of
// transactions and write the augmented table.
func RunScore(ctx context.Context, ds datastore.DataStore, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("score", flag.ExitOnError)
	input := fs.String("input", "", "Transactions CSV to score (required)")
	criteriaFile := fs.String("criteria", "", "Criteria JSON file")
	criteriaSetID := fs.String("criteria-set", "", "Stored criteria set id (alternative to --criteria)")
	output := fs.String("output", "", "Output CSV path (default: <input>_scored.csv)")
	fields := fs.String("fields", "", "Comma-separated columns to search (default: scorer defaults)")
	save := fs.Bool("save", false, "Persist the scoring run to the data store")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	if *input == "" {
		fs.Usage()
		return fmt.Errorf("error: --input flag is required")
	}
	if *criteriaFile == "" && *criteriaSetID == "" {
		fs.Usage()
		return fmt.Errorf("error: one of --criteria or --criteria-set is required")
	}

	var criteria []rules.Criterion
	var setID string
	switch {
	case *criteriaFile != "":
		var err error
		criteria, err = rules.LoadCriteriaFromJSON(*criteriaFile)
		if err != nil {
			return err
		}
	default:
		cs, err := ds.GetCriteriaSet(ctx, *criteriaSetID)
		if err != nil {
			return err
		}
		criteria = cs.Criteria
		setID = cs.SetID
	}

	table, err := dataset.LoadCSV(*input)
	if err != nil {
		return err
	}

	searchFields := cfg.ScoreFields
	if *fields != "" {
		searchFields = splitFields(*fields)
	}

	scored := scoring.Score(criteria, table.Rows, searchFields)
	augmented, err := table.WithScores(scored)
	if err != nil {
		return err
	}

	out := *output
	if out == "" {
		out = strings.TrimSuffix(*input, ".csv") + "_scored.csv"
	}
	if err := augmented.WriteCSV(out); err != nil {
		return err
	}

	fmt.Printf("Scored %d transactions against %d criteria -> %s\n", len(table.Rows), len(criteria), out)
	printScoreSummary(scored)

	if *save {
		run := buildScoringRun(setID, *input, scored, nil)
		runID, err := ds.SaveScoringRun(ctx, run)
		if err != nil {
			return err
		}
		fmt.Printf("Saved scoring run %s\n", runID)
	}
	return nil
}

// buildScoringRun converts scorer output into the persisted run record.
// teams may be nil when assignment was not part of the run.
func buildScoringRun(setID, source string, scored []scoring.ScoredTransaction, teams []string) *datastore.ScoringRun {
	run := &datastore.ScoringRun{
		CriteriaSetID: setID,
		SourceFile:    source,
		RowCount:      len(scored),
	}
	for i, s := range scored {
		result := datastore.RowResult{
			TransactionID:   transactionID(s.Transaction, i),
			AMLRiskScore:    s.AMLRiskScore,
			MatchedCriteria: s.MatchedCriteria,
		}
		if teams != nil {
			result.AssignedTeam = teams[i]
		}
		run.Results = append(run.Results, result)
	}
	return run
}

func printScoreSummary(scored []scoring.ScoredTransaction) {
	matched := 0
	total := 0
	for _, s := range scored {
		if s.AMLRiskScore > 0 {
			matched++
		}
		total += s.AMLRiskScore
	}
	fmt.Printf("  Rows with matches: %d/%d\n", matched, len(scored))
	if len(scored) > 0 {
		fmt.Printf("  Mean risk score:   %.2f\n", float64(total)/float64(len(scored)))
	}
}
