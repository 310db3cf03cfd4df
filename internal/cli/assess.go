package cli

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"aml-monitor/internal/agent"
	"aml-monitor/internal/dataset"
	"aml-monitor/internal/datastore"
	"aml-monitor/internal/rules"
)

// RunAssess handles the 'assess' command: score every transaction with the
// model against regulator-specific rule sets. The regulator column on each
// row selects the rule set; unknown regulators fall back to the default.
func RunAssess(ctx context.Context, ds datastore.DataStore, aiAgent *agent.Agent, args []string) error {
	fs := flag.NewFlagSet("assess", flag.ExitOnError)
	input := fs.String("input", "", "Transactions CSV to assess (required)")
	output := fs.String("output", "", "Output CSV path (default: <input>_assessed.csv)")
	var ruleFiles multiFlag
	fs.Var(&ruleFiles, "rules", "Rule set file as REGULATOR=path (repeatable; default: all stored rule sets)")
	defaultRegulator := fs.String("default-regulator", "MAS", "Rule set used when a row's regulator is unknown")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	if *input == "" {
		fs.Usage()
		return fmt.Errorf("error: --input flag is required")
	}

	ruleSets, err := loadRuleSets(ctx, ds, ruleFiles)
	if err != nil {
		return err
	}
	if len(ruleSets) == 0 {
		return fmt.Errorf("no rule sets available; pass --rules or store some first")
	}
	if _, ok := ruleSets[strings.ToUpper(*defaultRegulator)]; !ok {
		return fmt.Errorf("default regulator %s has no rule set", *defaultRegulator)
	}

	table, err := dataset.LoadCSV(*input)
	if err != nil {
		return err
	}

	fmt.Printf("Assessing %d transactions against rule sets: %s\n", len(table.Rows), strings.Join(regulatorNames(ruleSets), ", "))

	scores := make([]string, len(table.Rows))
	reasonings := make([]string, len(table.Rows))
	for i, tx := range table.Rows {
		regulator := strings.ToUpper(strings.TrimSpace(tx["regulator"]))
		rs, ok := ruleSets[regulator]
		if !ok {
			fmt.Printf("[%d/%d] no rules for regulator %q, defaulting to %s\n", i+1, len(table.Rows), regulator, *defaultRegulator)
			rs = ruleSets[strings.ToUpper(*defaultRegulator)]
		}

		assessment, err := aiAgent.AssessTransaction(ctx, tx, rs)
		if err != nil {
			// Keep going; the default midpoint routes the row to review.
			fmt.Printf("[%d/%d] model invocation failed: %v\n", i+1, len(table.Rows), err)
			assessment = agent.Assessment{
				RiskScore:     agent.DefaultRiskScore,
				RiskReasoning: "model invocation failed - manual review required",
			}
		}

		scores[i] = strconv.Itoa(assessment.RiskScore)
		reasonings[i] = assessment.RiskReasoning
		fmt.Printf("[%d/%d] %s: risk score %d\n", i+1, len(table.Rows), transactionID(tx, i), assessment.RiskScore)
	}

	augmented, err := table.WithColumn("risk_score", scores)
	if err != nil {
		return err
	}
	augmented, err = augmented.WithColumn("risk_reasoning", reasonings)
	if err != nil {
		return err
	}

	out := *output
	if out == "" {
		out = strings.TrimSuffix(*input, ".csv") + "_assessed.csv"
	}
	if err := augmented.WriteCSV(out); err != nil {
		return err
	}

	fmt.Printf("Results saved to %s\n", out)
	printRiskDistribution(scores)
	return nil
}

// loadRuleSets resolves rule sets from REGULATOR=path flags, or from the
// data store when no flags were given.
func loadRuleSets(ctx context.Context, ds datastore.DataStore, ruleFiles []string) (map[string]*rules.RuleSet, error) {
	ruleSets := make(map[string]*rules.RuleSet)
	if len(ruleFiles) == 0 {
		stored, err := ds.ListRuleSets(ctx)
		if err != nil {
			return nil, err
		}
		for i := range stored {
			ruleSets[strings.ToUpper(stored[i].Regulator)] = &stored[i]
		}
		return ruleSets, nil
	}
	for _, spec := range ruleFiles {
		regulator, path, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, fmt.Errorf("bad --rules value %q, want REGULATOR=path", spec)
		}
		rs, err := rules.LoadRuleSet(path)
		if err != nil {
			return nil, err
		}
		if rs.Regulator == "" {
			rs.Regulator = regulator
		}
		ruleSets[strings.ToUpper(regulator)] = rs
	}
	return ruleSets, nil
}

func regulatorNames(ruleSets map[string]*rules.RuleSet) []string {
	var names []string
	for name := range ruleSets {
		names = append(names, name)
	}
	return names
}

// printRiskDistribution prints the banded risk summary for assessed scores.
func printRiskDistribution(scores []string) {
	if len(scores) == 0 {
		return
	}
	var veryLow, low, medium, high, veryHigh, total int
	for _, s := range scores {
		v, err := strconv.Atoi(s)
		if err != nil {
			continue
		}
		total += v
		switch {
		case v <= 20:
			veryLow++
		case v <= 40:
			low++
		case v <= 60:
			medium++
		case v <= 80:
			high++
		default:
			veryHigh++
		}
	}
	n := len(scores)
	fmt.Printf("Risk distribution:\n")
	fmt.Printf("  Very Low (0-20):    %4d (%5.1f%%)\n", veryLow, pct(veryLow, n))
	fmt.Printf("  Low (21-40):        %4d (%5.1f%%)\n", low, pct(low, n))
	fmt.Printf("  Medium (41-60):     %4d (%5.1f%%)\n", medium, pct(medium, n))
	fmt.Printf("  High (61-80):       %4d (%5.1f%%)\n", high, pct(high, n))
	fmt.Printf("  Very High (81-100): %4d (%5.1f%%)\n", veryHigh, pct(veryHigh, n))
	fmt.Printf("  Mean risk score:    %.2f\n", float64(total)/float64(n))
	review := medium + high + veryHigh
	fmt.Printf("Transactions requiring review (Medium+): %d (%.1f%%)\n", review, pct(review, n))
}

func pct(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// multiFlag collects repeated string flags.
type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}
