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
)

// RunAssign handles the 'assign' command: apply the suspicion flag
// threshold and route every transaction to a review team.
func RunAssign(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("assign", flag.ExitOnError)
	input := fs.String("input", "", "Transactions CSV to route (required)")
	output := fs.String("output", "", "Output CSV path (default: <input>_assigned.csv)")
	flagColumn := fs.String("flag-column", cfg.FlagColumn, "Confidence column driving the flagged marker")
	threshold := fs.Float64("threshold", cfg.FlagThreshold, "Confidence threshold above which a row is flagged")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	if *input == "" {
		fs.Usage()
		return fmt.Errorf("error: --input flag is required")
	}

	table, err := dataset.LoadCSV(*input)
	if err != nil {
		return err
	}

	flagged := assign.Flag(table.Rows, *flagColumn, *threshold)
	teams := assign.Teams(flagged, time.Now())

	flaggedCol := make([]string, len(flagged))
	for i, tx := range flagged {
		flaggedCol[i] = tx[assign.ColFlagged]
	}
	augmented, err := table.WithColumn(assign.ColFlagged, flaggedCol)
	if err != nil {
		return err
	}
	augmented, err = augmented.WithColumn(assign.ColAssignedTeam, teams)
	if err != nil {
		return err
	}

	out := *output
	if out == "" {
		out = strings.TrimSuffix(*input, ".csv") + "_assigned.csv"
	}
	if err := augmented.WriteCSV(out); err != nil {
		return err
	}

	counts := map[string]int{}
	for _, team := range teams {
		counts[team]++
	}
	fmt.Printf("Routed %d transactions -> %s\n", len(teams), out)
	fmt.Printf("  Front Office:              %d\n", counts[assign.TeamFrontOffice])
	fmt.Printf("  Legal and Compliance Team: %d\n", counts[assign.TeamLegalCompliance])
	fmt.Printf("  Unassigned:                %d\n", counts[assign.TeamUnassigned])
	return nil
}
