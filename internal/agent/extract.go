package agent

import (
	"context"
	"fmt"
	"log"
	"strings"

	"aml-monitor/internal/llmjson"
	"aml-monitor/internal/rules"
)

const extractCriteriaPrompt = `You are an assistant that converts regulatory clauses into structured monitoring criteria for anti-money-laundering (AML) monitoring systems.

For each clause provided, extract actionable criteria as JSON.

RULES:
1. Respond ONLY with a single JSON object. Do not include markdown ticks, "json", or any other conversational text.
2. The JSON format MUST be:
{"criteria":[{"criterion_id":"<short id>","title":"<short title>","description":"<what to monitor>","severity":"low|medium|high","triggers":[{"type":"keyword|behaviour|threshold|pattern","value":"<trigger text>"}]}]}
3. Severity reflects the regulatory weight of the obligation.
4. Every criterion needs at least one trigger with a non-empty value.`

const generateRuleSetPrompt = `You are a senior AML/CFT Legal & Compliance Officer assisting a bank in interpreting regulatory requirements.

Your task is to convert regulatory or policy text into clear, structured, actionable compliance rules that can be used to evaluate and mitigate financial crime risk.

When summarizing, you MUST:
1. Preserve the regulatory meaning accurately.
2. Use plain language suitable for compliance analysts.
3. Convert obligations into specific, testable rules (something that can be monitored or audited).
4. Identify the risk indicators that the rule is intended to mitigate.
5. Highlight where Enhanced Due Diligence (EDD) is required.

Your output must ONLY follow this JSON schema exactly, without any additional text or commentary:

{
  "regulation_summary": "<3-6 sentence overview>",
  "actionable_rules": [
    {
      "rule_id": "<Unique short ID, e.g. MAS-CDD-01>",
      "obligation": "<What the institution must DO>",
      "who_it_applies_to": "<Customer type, product type, geography, etc.>",
      "risk_signals_to_monitor": ["<Behavior, profile, transaction pattern that raises risk>"],
      "required_documents_or_controls": ["<Documents to collect, checks to run, approvals needed>"],
      "requires_edd": "<Yes/No and why>"
    }
  ]
}`

// ExtractCriteria turns a regulatory clause into structured monitoring
// criteria. The source label is stamped onto every criterion that does not
// carry one already. A response without a criteria key yields an empty list.
func (a *Agent) ExtractCriteria(ctx context.Context, clause, source string) ([]rules.Criterion, error) {
	userPrompt := fmt.Sprintf("Clause:\n%s\n\nSource: %s", strings.TrimSpace(clause), source)

	text, err := a.generate(ctx, extractCriteriaPrompt, userPrompt)
	if err != nil {
		return nil, err
	}
	log.Printf("criteria extraction raw response: %s", text)

	return parseCriteriaResponse(text, source)
}

// parseCriteriaResponse recovers the criteria document from model output.
func parseCriteriaResponse(text, source string) ([]rules.Criterion, error) {
	var doc struct {
		Criteria []rules.Criterion `json:"criteria"`
	}
	if err := llmjson.DecodeFirstObject(text, &doc); err != nil {
		return nil, fmt.Errorf("could not parse criteria from model response: %w", err)
	}
	criteria := doc.Criteria
	if criteria == nil {
		criteria = []rules.Criterion{}
	}
	for i := range criteria {
		if criteria[i].Source == "" {
			criteria[i].Source = source
		}
	}
	return criteria, nil
}

// GenerateRuleSet converts regulator text into a consolidated rule set.
func (a *Agent) GenerateRuleSet(ctx context.Context, regulator, text string) (*rules.RuleSet, error) {
	userPrompt := fmt.Sprintf("Regulator: %s\n\nBelow is the regulatory text to analyze:\n\n%s", regulator, text)

	raw, err := a.generate(ctx, generateRuleSetPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	obj, err := llmjson.FirstObject(raw)
	if err != nil {
		return nil, fmt.Errorf("could not parse rule set from model response: %w", err)
	}
	rs, err := rules.ParseRuleSet([]byte(obj))
	if err != nil {
		return nil, err
	}
	if rs.Regulator == "" {
		rs.Regulator = regulator
	}
	return rs, nil
}

const summarizePrompt = `You are a senior AML/CFT compliance officer.

Summarize the combined regulations provided by the user into a concise 3-6 sentence overview that captures their essence, without losing accuracy. Respond with the summary text only.`

// SummarizeRegulations condenses several regulation summaries into one.
func (a *Agent) SummarizeRegulations(ctx context.Context, summaries []string) (string, error) {
	text, err := a.generate(ctx, summarizePrompt, strings.Join(summaries, "\n"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
