package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"aml-monitor/internal/assign"
	"aml-monitor/internal/config"
	"aml-monitor/internal/dataset"
	"aml-monitor/internal/datastore"
	"aml-monitor/internal/rules"
	"aml-monitor/internal/scoring"
)

// RunPipeline handles the 'pipeline' command: score against criteria, apply
// the suspicion flag threshold, route to review teams and write the final
// table in one pass.
func RunPipeline(ctx context.Context, ds datastore.DataStore, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("pipeline", flag.ExitOnError)
	input := fs.String("input", "", "Transactions CSV (required)")
	criteriaFile := fs.String("criteria", "", "Criteria JSON file")
	criteriaSetID := fs.String("criteria-set", "", "Stored criteria set id (alternative to --criteria)")
	output := fs.String("output", "", "Output CSV path (default: <input>_final.csv)")
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
	if *criteriaFile != "" {
		var err error
		criteria, err = rules.LoadCriteriaFromJSON(*criteriaFile)
		if err != nil {
			return err
		}
	} else {
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

	// Stage 1: keyword scoring.
	scored := scoring.Score(criteria, table.Rows, cfg.ScoreFields)
	augmented, err := table.WithScores(scored)
	if err != nil {
		return err
	}

	// Stage 2: suspicion flag from the configured confidence column.
	flagged := assign.Flag(augmented.Rows, cfg.FlagColumn, cfg.FlagThreshold)
	flaggedCol := make([]string, len(flagged))
	for i, tx := range flagged {
		flaggedCol[i] = tx[assign.ColFlagged]
	}
	augmented, err = augmented.WithColumn(assign.ColFlagged, flaggedCol)
	if err != nil {
		return err
	}

	// Stage 3: review team routing.
	teams := assign.Teams(augmented.Rows, time.Now())
	augmented, err = augmented.WithColumn(assign.ColAssignedTeam, teams)
	if err != nil {
		return err
	}

	out := *output
	if out == "" {
		out = strings.TrimSuffix(*input, ".csv") + "_final.csv"
	}
	if err := augmented.WriteCSV(out); err != nil {
		return err
	}

	fmt.Printf("Pipeline complete: %d transactions -> %s\n", len(table.Rows), out)
	printScoreSummary(scored)

	if *save {
		run := buildScoringRun(setID, *input, scored, teams)
		runID, err := ds.SaveScoringRun(ctx, run)
		if err != nil {
			return err
		}
		fmt.Printf("Saved scoring run %s\n", runID)
	}
	return nil
}
