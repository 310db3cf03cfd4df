package cli

import (
	"fmt"
	"strings"

	"aml-monitor/internal/scoring"
)

// transactionID picks a stable identifier for a row: the transaction_id
// column when present, otherwise the row index.
func transactionID(tx scoring.Transaction, idx int) string {
	if id := tx["transaction_id"]; id != "" {
		return id
	}
	return fmt.Sprintf("row-%d", idx)
}

func splitFields(raw string) []string {
	var fields []string
	for _, f := range strings.Split(raw, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}
