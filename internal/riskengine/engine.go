// Package riskengine evaluates condition-based rules against transactions
// and derives an overall risk level per transaction. Conditions use the
// closed expr grammar; rule text is interpreted, never executed.
package riskengine

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"aml-monitor/internal/expr"
	"aml-monitor/internal/scoring"
)

// Risk levels in ascending order of severity.
const (
	LevelLow      = "Low"
	LevelMedium   = "Medium"
	LevelHigh     = "High"
	LevelCritical = "Critical"
)

var levelRank = map[string]int{
	strings.ToLower(LevelLow):      0,
	strings.ToLower(LevelMedium):   1,
	strings.ToLower(LevelHigh):     2,
	strings.ToLower(LevelCritical): 3,
}

// Rule pairs a condition with the risk level it assigns when triggered.
type Rule struct {
	RuleID    string `json:"rule_id,omitempty"`
	Condition string `json:"condition"`
	RiskLevel string `json:"risk_level"`
}

type compiledRule struct {
	rule Rule
	cond *expr.Condition
}

// Engine holds compiled rules ready for evaluation.
type Engine struct {
	rules []compiledRule
}

// New compiles the given rules. A rule whose condition fails to parse is
// rejected up front so a bad rule file is caught before any scoring run.
func New(rs []Rule) (*Engine, error) {
	e := &Engine{rules: make([]compiledRule, 0, len(rs))}
	for i, r := range rs {
		cond, err := expr.Parse(r.Condition)
		if err != nil {
			id := r.RuleID
			if id == "" {
				id = fmt.Sprintf("#%d", i)
			}
			return nil, fmt.Errorf("rule %s: %w", id, err)
		}
		e.rules = append(e.rules, compiledRule{rule: r, cond: cond})
	}
	return e, nil
}

// LoadRules reads a JSON array of rules from disk.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file %s: %w", path, err)
	}
	var rs []Rule
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}
	return rs, nil
}

// Result is the outcome of evaluating one transaction.
type Result struct {
	RiskLevel      string   `json:"risk_level"`
	TriggeredRules []string `json:"triggered_rules"`
}

// Evaluate runs every rule against the transaction. The overall level is the
// highest level among triggered rules, defaulting to Low. Unknown risk level
// labels on triggered rules are logged and treated as Low.
func (e *Engine) Evaluate(tx scoring.Transaction) Result {
	result := Result{RiskLevel: LevelLow, TriggeredRules: []string{}}
	best := 0
	for _, cr := range e.rules {
		if !cr.cond.Evaluate(tx) {
			continue
		}
		result.TriggeredRules = append(result.TriggeredRules, cr.rule.RuleID)
		rank, ok := levelRank[strings.ToLower(cr.rule.RiskLevel)]
		if !ok {
			log.Printf("rule %s has unknown risk level %q, counting as Low", cr.rule.RuleID, cr.rule.RiskLevel)
			rank = 0
		}
		if rank >= best {
			best = rank
			result.RiskLevel = canonicalLevel(rank)
		}
	}
	return result
}

// EvaluateAll evaluates every transaction in order.
func (e *Engine) EvaluateAll(txs []scoring.Transaction) []Result {
	results := make([]Result, len(txs))
	for i, tx := range txs {
		results[i] = e.Evaluate(tx)
	}
	return results
}

func canonicalLevel(rank int) string {
	switch rank {
	case 3:
		return LevelCritical
	case 2:
		return LevelHigh
	case 1:
		return LevelMedium
	default:
		return LevelLow
	}
}
