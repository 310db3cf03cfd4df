package cli

import (
	"context"
	"flag"
	"fmt"

	"aml-monitor/internal/datastore"
)

// RunList handles the 'list' command: show stored criteria sets, rule sets
// and scoring runs.
func RunList(ctx context.Context, ds datastore.DataStore, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	kind := fs.String("kind", "all", "What to list: criteria, rules, runs or all")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	if *kind == "criteria" || *kind == "all" {
		sets, err := ds.ListCriteriaSets(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Criteria sets (%d):\n", len(sets))
		for _, cs := range sets {
			fmt.Printf("  %s  %-20s %d criteria  %s\n", cs.SetID, cs.Name, len(cs.Criteria), cs.CreatedAt.Format("2006-01-02 15:04"))
		}
	}
	if *kind == "rules" || *kind == "all" {
		sets, err := ds.ListRuleSets(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Rule sets (%d):\n", len(sets))
		for _, rs := range sets {
			fmt.Printf("  %-10s %d actionable rules\n", rs.Regulator, len(rs.ActionableRules))
		}
	}
	if *kind == "runs" || *kind == "all" {
		runs, err := ds.ListScoringRuns(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Scoring runs (%d):\n", len(runs))
		for _, run := range runs {
			fmt.Printf("  %s  %-30s %d rows  %s\n", run.RunID, run.SourceFile, run.RowCount, run.CreatedAt.Format("2006-01-02 15:04"))
		}
	}
	return nil
}
