package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"strings"

	"aml-monitor/internal/dataset"
	"aml-monitor/internal/riskengine"
)

// RunEvaluate handles the 'evaluate' command: apply condition-based rules
// to a CSV and derive a per-transaction risk level.
func RunEvaluate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("evaluate", flag.ExitOnError)
	input := fs.String("input", "", "Transactions CSV to evaluate (required)")
	rulesFile := fs.String("rules", "", "Condition rules JSON file (required)")
	output := fs.String("output", "", "Output CSV path (default: <input>_evaluated.csv)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	if *input == "" || *rulesFile == "" {
		fs.Usage()
		return fmt.Errorf("error: --input and --rules flags are required")
	}

	rs, err := riskengine.LoadRules(*rulesFile)
	if err != nil {
		return err
	}
	engine, err := riskengine.New(rs)
	if err != nil {
		return err
	}

	table, err := dataset.LoadCSV(*input)
	if err != nil {
		return err
	}

	results := engine.EvaluateAll(table.Rows)
	levels := make([]string, len(results))
	triggered := make([]string, len(results))
	counts := map[string]int{}
	for i, r := range results {
		levels[i] = r.RiskLevel
		counts[r.RiskLevel]++
		data, err := json.Marshal(r.TriggeredRules)
		if err != nil {
			return fmt.Errorf("failed to encode triggered rules: %w", err)
		}
		triggered[i] = string(data)
	}

	augmented, err := table.WithColumn("risk_level", levels)
	if err != nil {
		return err
	}
	augmented, err = augmented.WithColumn("triggered_rules", triggered)
	if err != nil {
		return err
	}

	out := *output
	if out == "" {
		out = strings.TrimSuffix(*input, ".csv") + "_evaluated.csv"
	}
	if err := augmented.WriteCSV(out); err != nil {
		return err
	}

	fmt.Printf("Evaluated %d transactions with %d rules -> %s\n", len(table.Rows), len(rs), out)
	for _, level := range []string{riskengine.LevelLow, riskengine.LevelMedium, riskengine.LevelHigh, riskengine.LevelCritical} {
		if counts[level] > 0 {
			fmt.Printf("  %-8s %d\n", level+":", counts[level])
		}
	}
	return nil
}
