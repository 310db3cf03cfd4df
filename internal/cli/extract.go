package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"aml-monitor/internal/agent"
	"aml-monitor/internal/datastore"
)

// RunExtract handles the 'extract' command: regulatory clause text in,
// structured monitoring criteria out.
func RunExtract(ctx context.Context, ds datastore.DataStore, aiAgent *agent.Agent, args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	clause := fs.String("clause", "", "Regulatory clause text")
	file := fs.String("file", "", "File containing clause text (alternative to --clause)")
	source := fs.String("source", "INPUT", "Source label stamped on extracted criteria")
	save := fs.Bool("save", false, "Persist the criteria as a named set")
	name := fs.String("name", "", "Name for the saved criteria set (default: source label)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	text := *clause
	if text == "" && *file != "" {
		data, err := os.ReadFile(*file)
		if err != nil {
			return fmt.Errorf("failed to read clause file: %w", err)
		}
		text = string(data)
	}
	if text == "" {
		fs.Usage()
		return fmt.Errorf("error: one of --clause or --file is required")
	}

	criteria, err := aiAgent.ExtractCriteria(ctx, text, *source)
	if err != nil {
		return err
	}

	doc := map[string]interface{}{"criteria": criteria}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode criteria: %w", err)
	}
	fmt.Println(string(out))

	if *save {
		setName := *name
		if setName == "" {
			setName = *source
		}
		setID, err := ds.SaveCriteriaSet(ctx, setName, criteria)
		if err != nil {
			return err
		}
		fmt.Printf("Saved criteria set %s (%s, %d criteria)\n", setID, setName, len(criteria))
	}
	return nil
}

// RunGenRules handles the 'gen-rules' command: regulator text in, a
// consolidated actionable rule set out.
func RunGenRules(ctx context.Context, ds datastore.DataStore, aiAgent *agent.Agent, args []string) error {
	fs := flag.NewFlagSet("gen-rules", flag.ExitOnError)
	file := fs.String("file", "", "File containing regulator text (required)")
	regulator := fs.String("regulator", "", "Regulator label, e.g. MAS, FINMA, HKMA (required)")
	save := fs.Bool("save", false, "Persist the rule set to the data store")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	if *file == "" || *regulator == "" {
		fs.Usage()
		return fmt.Errorf("error: --file and --regulator flags are required")
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("failed to read regulator text: %w", err)
	}

	rs, err := aiAgent.GenerateRuleSet(ctx, *regulator, string(data))
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode rule set: %w", err)
	}
	fmt.Println(string(out))
	fmt.Printf("Generated %d actionable rules for %s\n", len(rs.ActionableRules), rs.Regulator)

	if *save {
		if _, err := ds.SaveRuleSet(ctx, rs); err != nil {
			return err
		}
		fmt.Printf("Saved rule set for %s\n", rs.Regulator)
	}
	return nil
}
