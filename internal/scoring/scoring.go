// Package scoring implements the keyword risk scorer: it maps monitoring
// criteria onto transaction records, producing a per-transaction additive
// risk score and the list of matched criterion identifiers.
package scoring

import (
	"maps"
	"regexp"
	"strings"

	"aml-monitor/internal/rules"
)

// Transaction is a single transaction record keyed by column name. Values
// are the raw textual cell contents; absent columns read as empty strings.
type Transaction map[string]string

// ScoredTransaction is a transaction augmented with the scoring outputs.
// The embedded transaction is a copy; inputs are never mutated.
type ScoredTransaction struct {
	Transaction     Transaction `json:"transaction"`
	AMLRiskScore    int         `json:"aml_risk_score"`
	MatchedCriteria []string    `json:"matched_criteria"`
}

// DefaultFields are the transaction columns searched for trigger keywords
// when the caller does not configure its own set.
var DefaultFields = []string{
	"description",
	"memo",
	"counterparty_name",
	"counterparty_country",
	"beneficiary",
}

// compiledCriterion pairs a criterion with its keyword alternation pattern.
type compiledCriterion struct {
	identifier string
	weight     int
	pattern    *regexp.Regexp
}

// compileCriteria builds one whole-word, case-insensitive alternation per
// criterion. Criteria without any usable keyword are dropped here and never
// contribute to a score. Keyword values are escaped; regex metacharacters in
// trigger values match literally.
func compileCriteria(criteria []rules.Criterion) []compiledCriterion {
	compiled := make([]compiledCriterion, 0, len(criteria))
	for _, crit := range criteria {
		kws := crit.Keywords()
		if len(kws) == 0 {
			continue
		}
		escaped := make([]string, len(kws))
		for i, k := range kws {
			escaped[i] = regexp.QuoteMeta(k)
		}
		pattern, err := regexp.Compile(`(?i)\b(?:` + strings.Join(escaped, "|") + `)\b`)
		if err != nil {
			// QuoteMeta makes this unreachable for any keyword input.
			continue
		}
		compiled = append(compiled, compiledCriterion{
			identifier: crit.Identifier(),
			weight:     crit.Weight(),
			pattern:    pattern,
		})
	}
	return compiled
}

// searchText concatenates the configured fields in fixed order, separated by
// spaces and lowercased. Missing fields contribute empty strings.
func searchText(tx Transaction, fields []string) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = tx[f]
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// Score evaluates every criterion against every transaction and returns the
// augmented copies. A criterion that matches a transaction adds its severity
// weight exactly once; distinct matching criteria accumulate additively, and
// matched identifiers appear in criteria input order. Neither input is
// modified. A nil fields slice selects DefaultFields.
func Score(criteria []rules.Criterion, txs []Transaction, fields []string) []ScoredTransaction {
	if fields == nil {
		fields = DefaultFields
	}
	compiled := compileCriteria(criteria)

	scored := make([]ScoredTransaction, len(txs))
	for i, tx := range txs {
		text := searchText(tx, fields)
		result := ScoredTransaction{
			Transaction:     maps.Clone(tx),
			MatchedCriteria: []string{},
		}
		for _, cc := range compiled {
			if cc.pattern.MatchString(text) {
				result.AMLRiskScore += cc.weight
				result.MatchedCriteria = append(result.MatchedCriteria, cc.identifier)
			}
		}
		scored[i] = result
	}
	return scored
}
