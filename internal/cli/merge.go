package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"aml-monitor/internal/agent"
	"aml-monitor/internal/rules"
)

// MergeRulesCommand creates the merge-rules command.
func MergeRulesCommand() *cobra.Command {
	var (
		dir     string
		pattern string
		prefix  string
		output  string
	)

	cmd := &cobra.Command{
		Use:   "merge-rules",
		Short: "Merge per-chunk rule files into one deduplicated rule set",
		Long: `Merge regulator rule JSON files into a single deduplicated file.

Reads all files matching the pattern in the rules directory, sorted by
filename. Keeps the regulation summary from the first file, deduplicates
actionable rules by content (ignoring rule ids), and reassigns conflicting
ids as <prefix>-R-###.

Examples:
  # Merge HKMA chunk files
  ./aml-monitor merge-rules --dir logs --pattern 'curr_HKMA_rules*.json' --prefix HKMA --output logs/merged_HKMA_rules.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMergeRules(dir, pattern, prefix, output)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "logs", "Directory containing rule files")
	cmd.Flags().StringVar(&pattern, "pattern", "*.json", "Glob pattern for rule files")
	cmd.Flags().StringVar(&prefix, "prefix", "RULE", "Prefix for reassigned rule ids")
	cmd.Flags().StringVar(&output, "output", "", "Output file (required)")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runMergeRules(dir, pattern, prefix, output string) error {
	merged, stats, err := rules.MergeRuleFiles(dir, pattern, prefix)
	if err != nil {
		return err
	}
	if err := writeRuleSet(merged, output); err != nil {
		return err
	}
	fmt.Printf("Merged %d files -> %s\n", stats.FilesRead, output)
	fmt.Printf("Total actionable rules: %d -> %d unique\n", stats.TotalRules, stats.MergedRules)
	return nil
}

// CombineRulesCommand creates the combine-rules command.
func CombineRulesCommand(aiAgent *agent.Agent) *cobra.Command {
	var (
		inputs    []string
		output    string
		summarize bool
	)

	cmd := &cobra.Command{
		Use:   "combine-rules",
		Short: "Fuzzily combine rule sets, unioning near-duplicate obligations",
		Long: `Combine several rule set files into one.

Rules are deduplicated by rule id and by near-identical obligation text;
when two rules match, their risk signal and required document lists are
unioned. With --summarize and a configured API key, the combined regulation
summary is condensed by the model.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCombineRules(cmd.Context(), aiAgent, inputs, output, summarize)
		},
	}

	cmd.Flags().StringSliceVar(&inputs, "input", nil, "Rule set files to combine (repeatable)")
	cmd.Flags().StringVar(&output, "output", "", "Output file (required)")
	cmd.Flags().BoolVar(&summarize, "summarize", false, "Condense the combined summary with the model")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runCombineRules(ctx context.Context, aiAgent *agent.Agent, inputs []string, output string, summarize bool) error {
	if len(inputs) == 0 {
		return fmt.Errorf("at least one --input file is required")
	}

	var sets []*rules.RuleSet
	var summaries []string
	for _, path := range inputs {
		rs, err := rules.LoadRuleSet(path)
		if err != nil {
			return err
		}
		sets = append(sets, rs)
		if rs.RegulationSummary != "" {
			summaries = append(summaries, rs.RegulationSummary)
		}
	}

	combined := rules.CombineRuleSets(sets)

	if summarize {
		if aiAgent == nil {
			return fmt.Errorf("--summarize requires a configured API key")
		}
		summary, err := aiAgent.SummarizeRegulations(ctx, summaries)
		if err != nil {
			return fmt.Errorf("failed to summarize regulations: %w", err)
		}
		combined.RegulationSummary = summary
	}

	if err := writeRuleSet(combined, output); err != nil {
		return err
	}
	fmt.Printf("Combined %d rule sets -> %s (%d rules)\n", len(sets), output, len(combined.ActionableRules))
	return nil
}

func writeRuleSet(rs *rules.RuleSet, path string) error {
	data, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode rule set: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
