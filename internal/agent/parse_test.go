package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAssessment(t *testing.T) {
	tests := []struct {
		name          string
		text          string
		wantScore     int
		wantReasoning string
	}{
		{
			"clean response",
			`{"risk_score": 72, "risk_reasoning": "Close to the cash threshold"}`,
			72,
			"Close to the cash threshold",
		},
		{
			"prose around the object",
			`Here is my assessment: {"risk_score": 30, "risk_reasoning": "Compliant"} Hope that helps!`,
			30,
			"Compliant",
		},
		{
			"markdown fenced",
			"```json\n{\"risk_score\": 88, \"risk_reasoning\": \"Multiple red flags\"}\n```",
			88,
			"Multiple red flags",
		},
		{
			"fractional score truncates",
			`{"risk_score": 64.7, "risk_reasoning": "ok"}`,
			64,
			"ok",
		},
		{
			"score clamped high",
			`{"risk_score": 250, "risk_reasoning": "ok"}`,
			100,
			"ok",
		},
		{
			"score clamped low",
			`{"risk_score": -5, "risk_reasoning": "ok"}`,
			0,
			"ok",
		},
		{
			"alternate reasoning key risk_reason",
			`{"risk_score": 40, "risk_reason": "alt key"}`,
			40,
			"alt key",
		},
		{
			"alternate reasoning key reasoning",
			`{"risk_score": 40, "reasoning": "alt key"}`,
			40,
			"alt key",
		},
		{
			"alternate reasoning key reason",
			`{"risk_score": 40, "reason": "alt key"}`,
			40,
			"alt key",
		},
		{
			"missing reasoning",
			`{"risk_score": 40}`,
			40,
			"No reasoning provided",
		},
		{
			"missing score defaults to midpoint",
			`{"risk_reasoning": "no score given"}`,
			DefaultRiskScore,
			"no score given",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := parseAssessment(tt.text)
			assert.Equal(t, tt.wantScore, a.RiskScore)
			assert.Equal(t, tt.wantReasoning, a.RiskReasoning)
		})
	}
}

func TestParseAssessmentUnparseable(t *testing.T) {
	a := parseAssessment("the model refused to answer")
	assert.Equal(t, DefaultRiskScore, a.RiskScore)
	assert.Contains(t, a.RiskReasoning, "could not parse model response")
}

func TestParseAssessmentTruncatesRawText(t *testing.T) {
	long := strings.Repeat("x", 1000)
	a := parseAssessment(long)
	assert.Equal(t, DefaultRiskScore, a.RiskScore)
	assert.Less(t, len(a.RiskReasoning), 500)
	assert.Contains(t, a.RiskReasoning, "...")
}

func TestParseCriteriaResponse(t *testing.T) {
	t.Run("stamps missing source", func(t *testing.T) {
		text := `{"criteria": [
			{"criterion_id": "C1", "severity": "high"},
			{"criterion_id": "C2", "severity": "low", "source": "MAS 626 para 6"}
		]}`
		criteria, err := parseCriteriaResponse(text, "HKMA guideline")
		require.NoError(t, err)
		require.Len(t, criteria, 2)
		assert.Equal(t, "HKMA guideline", criteria[0].Source)
		assert.Equal(t, "MAS 626 para 6", criteria[1].Source)
	})

	t.Run("missing criteria key yields empty list", func(t *testing.T) {
		criteria, err := parseCriteriaResponse(`{"summary": "no criteria found"}`, "src")
		require.NoError(t, err)
		assert.NotNil(t, criteria)
		assert.Empty(t, criteria)
	})

	t.Run("no JSON at all errors", func(t *testing.T) {
		_, err := parseCriteriaResponse("I cannot do that", "src")
		assert.Error(t, err)
	})
}

func TestNewAgentWithoutKey(t *testing.T) {
	a, err := NewAgent(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestAgentCloseNil(t *testing.T) {
	var a *Agent
	a.Close()
}
