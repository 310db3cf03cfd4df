package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// ActionableRule is a single testable compliance obligation produced by the
// rule-generation agent from regulator text.
type ActionableRule struct {
	RuleID                      string   `json:"rule_id"`
	Obligation                  string   `json:"obligation"`
	WhoItAppliesTo              string   `json:"who_it_applies_to"`
	RiskSignalsToMonitor        []string `json:"risk_signals_to_monitor"`
	RequiredDocumentsOrControls []string `json:"required_documents_or_controls"`
	RequiresEDD                 string   `json:"requires_edd"`
}

// RuleSet is a regulator's consolidated rule document.
type RuleSet struct {
	Regulator         string           `json:"regulator,omitempty"`
	RegulationSummary string           `json:"regulation_summary"`
	ActionableRules   []ActionableRule `json:"actionable_rules"`
}

// findKey locates the first candidate key present in the raw object,
// falling back to a case-insensitive match. Model output is not consistent
// about snake_case vs condensed vs camelCase key spellings.
func findKey(obj map[string]json.RawMessage, candidates ...string) (json.RawMessage, bool) {
	for _, c := range candidates {
		if v, ok := obj[c]; ok {
			return v, true
		}
	}
	lower := make(map[string]json.RawMessage, len(obj))
	for k, v := range obj {
		lower[strings.ToLower(k)] = v
	}
	for _, c := range candidates {
		if v, ok := lower[strings.ToLower(c)]; ok {
			return v, true
		}
	}
	return nil, false
}

func decodeString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func decodeStringList(raw json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		// A single string where a list was expected still counts.
		if s := decodeString(raw); s != "" {
			return []string{s}
		}
		return nil
	}
	return list
}

// UnmarshalJSON accepts the key spelling variants seen across rule files
// (rule_id / ruleid / ruleId and so on).
func (r *ActionableRule) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if raw, ok := findKey(obj, "rule_id", "ruleid", "ruleId", "id"); ok {
		r.RuleID = decodeString(raw)
	}
	if raw, ok := findKey(obj, "obligation"); ok {
		r.Obligation = decodeString(raw)
	}
	if raw, ok := findKey(obj, "who_it_applies_to", "whoitappliesto"); ok {
		r.WhoItAppliesTo = decodeString(raw)
	}
	if raw, ok := findKey(obj, "risk_signals_to_monitor", "risksignalstomonitor"); ok {
		r.RiskSignalsToMonitor = decodeStringList(raw)
	}
	if raw, ok := findKey(obj, "required_documents_or_controls", "requireddocumentsorcontrols"); ok {
		r.RequiredDocumentsOrControls = decodeStringList(raw)
	}
	if raw, ok := findKey(obj, "requires_edd", "requiresedd"); ok {
		r.RequiresEDD = decodeString(raw)
	}
	return nil
}

// UnmarshalJSON accepts regulation_summary / regulationsummary and
// actionable_rules / actionablerules key variants.
func (rs *RuleSet) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if raw, ok := findKey(obj, "regulator"); ok {
		rs.Regulator = decodeString(raw)
	}
	if raw, ok := findKey(obj, "regulation_summary", "regulationsummary", "regulationSummary"); ok {
		rs.RegulationSummary = decodeString(raw)
	}
	if raw, ok := findKey(obj, "actionable_rules", "actionablerules", "actionableRules"); ok {
		var list []ActionableRule
		if err := json.Unmarshal(raw, &list); err != nil {
			return fmt.Errorf("failed to parse actionable rules: %w", err)
		}
		rs.ActionableRules = list
	}
	return nil
}

// ParseRuleSet decodes a single rule set document.
func ParseRuleSet(data []byte) (*RuleSet, error) {
	var rs RuleSet
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("failed to parse rule set: %w", err)
	}
	return &rs, nil
}

// LoadRuleSet reads a rule set document from disk.
func LoadRuleSet(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule set %s: %w", path, err)
	}
	return ParseRuleSet(data)
}
