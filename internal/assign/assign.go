// Package assign routes transactions to review teams and applies the
// suspicion flag threshold.
package assign

import (
	"maps"
	"strconv"
	"strings"
	"time"

	"aml-monitor/internal/scoring"
)

// Review teams.
const (
	TeamFrontOffice     = "Front Office"
	TeamLegalCompliance = "Legal and Compliance Team"
	TeamUnassigned      = ""
)

// Columns consulted during routing.
const (
	ColEDDRequired         = "edd_required"
	ColEDDPerformed        = "edd_performed"
	ColKYCDueDate          = "kyc_due_date"
	ColSuitabilityAssessed = "suitability_assessed"
	ColFlagged             = "flagged"
	ColAssignedTeam        = "assigned_team"
)

// parseBool interprets the boolean spellings seen in transaction exports.
// The second return reports whether the cell held a recognizable boolean.
func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true, true
	case "false", "0", "no":
		return false, true
	default:
		return false, false
	}
}

// Team decides the review team for one transaction.
//
// Front Office handles remediation work: EDD required but not performed,
// KYC past due, or suitability not assessed. Legal and Compliance takes
// flagged transactions. Clauses whose columns are absent or unparseable do
// not fire; a transaction matching neither rule stays unassigned.
func Team(tx scoring.Transaction, now time.Time) string {
	if eddRequired, ok := parseBool(tx[ColEDDRequired]); ok && eddRequired {
		if eddPerformed, ok := parseBool(tx[ColEDDPerformed]); ok && !eddPerformed {
			return TeamFrontOffice
		}
	}
	if due, err := time.Parse("2006-01-02", strings.TrimSpace(tx[ColKYCDueDate])); err == nil {
		if due.Before(now.Truncate(24 * time.Hour)) {
			return TeamFrontOffice
		}
	}
	if assessed, ok := parseBool(tx[ColSuitabilityAssessed]); ok && !assessed {
		return TeamFrontOffice
	}
	if flagged, ok := parseBool(tx[ColFlagged]); ok && flagged {
		return TeamLegalCompliance
	}
	return TeamUnassigned
}

// Teams routes every transaction in order.
func Teams(txs []scoring.Transaction, now time.Time) []string {
	out := make([]string, len(txs))
	for i, tx := range txs {
		out[i] = Team(tx, now)
	}
	return out
}

// Flag returns copies of the transactions with the flagged column set to
// "1" when the confidence column exceeds the threshold, "0" otherwise.
// Rows without a parseable confidence value are left unflagged.
func Flag(txs []scoring.Transaction, column string, threshold float64) []scoring.Transaction {
	out := make([]scoring.Transaction, len(txs))
	for i, tx := range txs {
		clone := maps.Clone(tx)
		if clone == nil {
			clone = scoring.Transaction{}
		}
		flagged := "0"
		if v, err := strconv.ParseFloat(strings.TrimSpace(tx[column]), 64); err == nil && v > threshold {
			flagged = "1"
		}
		clone[ColFlagged] = flagged
		out[i] = clone
	}
	return out
}
