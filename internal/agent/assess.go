package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"aml-monitor/internal/llmjson"
	"aml-monitor/internal/rules"
	"aml-monitor/internal/scoring"
)

// Assessment is the model's risk judgement for one transaction.
type Assessment struct {
	RiskScore     int    `json:"risk_score"`
	RiskReasoning string `json:"risk_reasoning"`
}

// DefaultRiskScore is used when the model response cannot be parsed; the
// midpoint forces a manual review rather than silently passing or failing
// the transaction.
const DefaultRiskScore = 50

const assessPrompt = `You are an expert AML (Anti-Money Laundering) risk assessment system. Evaluate the financial transaction provided by the user against the regulatory rules provided alongside it.

TASK:
Assess the risk score (0-100) for the transaction based on how close it comes to violating the regulatory rules.

SCORING GUIDELINES:
- 0-25: Very Low Risk - fully compliant, far from any thresholds
- 26-45: Low Risk - transaction uses 50-70% of regulatory thresholds
- 46-65: Medium Risk - 70-85% of thresholds or documentation gaps
- 66-85: High Risk - 85-95% of thresholds or missing critical compliance requirements
- 86-100: Very High Risk - rule violations or multiple red flags

OUTPUT (JSON only, no other text):
{
  "risk_score": <integer 0-100>,
  "risk_reasoning": "Detailed explanation citing rule IDs, threshold percentages, missing documents and red flags."
}`

// AssessTransaction scores one transaction against a rule set. Parse
// problems degrade to DefaultRiskScore with a diagnostic reasoning; only a
// failed model invocation returns an error.
func (a *Agent) AssessTransaction(ctx context.Context, tx scoring.Transaction, rs *rules.RuleSet) (Assessment, error) {
	rulesJSON, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		return Assessment{}, fmt.Errorf("failed to encode rule set: %w", err)
	}
	txJSON, err := json.MarshalIndent(tx, "", "  ")
	if err != nil {
		return Assessment{}, fmt.Errorf("failed to encode transaction: %w", err)
	}

	userPrompt := fmt.Sprintf("REGULATORY RULES:\n%s\n\nTRANSACTION TO EVALUATE:\n%s", rulesJSON, txJSON)

	text, err := a.generate(ctx, assessPrompt, userPrompt)
	if err != nil {
		return Assessment{}, err
	}
	return parseAssessment(text), nil
}

// parseAssessment extracts the score and reasoning from model output.
// Missing or malformed responses produce the default midpoint score so the
// transaction lands in the manual review band.
func parseAssessment(text string) Assessment {
	var parsed struct {
		RiskScore     json.Number `json:"risk_score"`
		RiskReasoning string      `json:"risk_reasoning"`
		RiskReason    string      `json:"risk_reason"`
		Reasoning     string      `json:"reasoning"`
		Reason        string      `json:"reason"`
	}
	if err := llmjson.DecodeFirstObject(text, &parsed); err != nil {
		return Assessment{
			RiskScore:     DefaultRiskScore,
			RiskReasoning: fmt.Sprintf("could not parse model response: %v (raw: %s)", err, truncate(text, 300)),
		}
	}

	score := DefaultRiskScore
	if f, err := parsed.RiskScore.Float64(); err == nil {
		score = int(f)
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	reasoning := parsed.RiskReasoning
	for _, alt := range []string{parsed.RiskReason, parsed.Reasoning, parsed.Reason} {
		if reasoning == "" {
			reasoning = alt
		}
	}
	if reasoning == "" {
		reasoning = "No reasoning provided"
	}

	return Assessment{RiskScore: score, RiskReasoning: reasoning}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
