package rules

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Rule files arrive one per regulator document chunk and overlap heavily.
// MergeRuleFiles folds them into one deduplicated set; CombineRuleSets does
// a fuzzier merge that also unions near-duplicate obligations.

var ruleIDCharset = regexp.MustCompile(`[^A-Za-z0-9\-]`)

// MergeStats reports what a merge did.
type MergeStats struct {
	FilesRead   int
	TotalRules  int
	MergedRules int
}

// MergeRuleFiles reads every file in dir matching pattern (sorted by name),
// keeps the first file's regulation summary, and merges actionable rules.
// Rules are deduplicated by content with id keys ignored; a rule whose id
// collides with an already-used id is reassigned "<prefix>-R-###".
func MergeRuleFiles(dir, pattern, prefix string) (*RuleSet, MergeStats, error) {
	stats := MergeStats{}
	files, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, stats, fmt.Errorf("bad rule file pattern %q: %w", pattern, err)
	}
	if len(files) == 0 {
		return nil, stats, fmt.Errorf("no rule files matching %q in %s", pattern, dir)
	}
	sort.Strings(files)

	merged := &RuleSet{}
	seenKeys := make(map[string]bool)
	usedIDs := make(map[string]bool)
	nextID := 1
	first := true

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			log.Printf("skipping %s: %v", filepath.Base(f), err)
			continue
		}
		rs, err := ParseRuleSet(data)
		if err != nil {
			log.Printf("skipping %s: %v", filepath.Base(f), err)
			continue
		}
		stats.FilesRead++
		if first {
			merged.RegulationSummary = rs.RegulationSummary
			merged.Regulator = rs.Regulator
			first = false
		}
		for _, rule := range rs.ActionableRules {
			stats.TotalRules++
			key := canonicalRuleKey(rule)
			if seenKeys[key] {
				continue
			}
			seenKeys[key] = true

			rid := ruleIDCharset.ReplaceAllString(rule.RuleID, "")
			if rid != "" && !usedIDs[rid] {
				rule.RuleID = rid
			} else {
				for {
					candidate := fmt.Sprintf("%s-R-%03d", prefix, nextID)
					nextID++
					if !usedIDs[candidate] {
						rule.RuleID = candidate
						break
					}
				}
			}
			usedIDs[rule.RuleID] = true
			merged.ActionableRules = append(merged.ActionableRules, rule)
		}
	}

	stats.MergedRules = len(merged.ActionableRules)
	return merged, stats, nil
}

// canonicalRuleKey serializes a rule without its id so content-identical
// rules with different ids collapse to one key.
func canonicalRuleKey(rule ActionableRule) string {
	rule.RuleID = ""
	data, err := json.Marshal(rule)
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(string(data)))
}

// obligationSimilarityThreshold is the ratio above which two obligations are
// treated as the same rule during a fuzzy combine.
const obligationSimilarityThreshold = 0.85

// CombineRuleSets merges several rule sets, deduplicating by rule id and by
// near-identical obligation text. When two rules fuzzily match, their risk
// signal and required document lists are unioned onto the survivor. The
// combined summary is the concatenation of the input summaries; callers that
// want a condensed summary pass the result through the agent.
func CombineRuleSets(sets []*RuleSet) *RuleSet {
	combined := &RuleSet{}
	var summaries []string
	var all []ActionableRule
	for _, rs := range sets {
		if rs == nil {
			continue
		}
		if rs.RegulationSummary != "" {
			summaries = append(summaries, rs.RegulationSummary)
		}
		all = append(all, rs.ActionableRules...)
	}
	combined.RegulationSummary = strings.Join(summaries, " ")

	seen := make(map[string]bool)
	for i, rule := range all {
		if rule.RuleID != "" && seen[rule.RuleID] {
			continue
		}
		seen[rule.RuleID] = true

		for _, other := range all[i+1:] {
			if other.RuleID == "" || seen[other.RuleID] {
				continue
			}
			ratio := similarity(strings.ToLower(rule.Obligation), strings.ToLower(other.Obligation))
			if ratio > obligationSimilarityThreshold {
				rule.RiskSignalsToMonitor = unionStrings(rule.RiskSignalsToMonitor, other.RiskSignalsToMonitor)
				rule.RequiredDocumentsOrControls = unionStrings(rule.RequiredDocumentsOrControls, other.RequiredDocumentsOrControls)
				seen[other.RuleID] = true
			}
		}
		combined.ActionableRules = append(combined.ActionableRules, rule)
	}
	return combined
}

// unionStrings appends the elements of b not already in a, preserving order.
func unionStrings(a, b []string) []string {
	present := make(map[string]bool, len(a))
	for _, s := range a {
		present[s] = true
	}
	out := a
	for _, s := range b {
		if !present[s] {
			present[s] = true
			out = append(out, s)
		}
	}
	return out
}

// similarity returns 2*LCS/(len(a)+len(b)) over runes, a ratio in [0, 1].
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	lcs := prev[len(rb)]
	return 2 * float64(lcs) / float64(len(ra)+len(rb))
}
