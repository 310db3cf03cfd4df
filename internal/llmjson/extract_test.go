package llmjson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstObject(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			"bare object",
			`{"a": 1}`,
			`{"a": 1}`,
		},
		{
			"prose around object",
			`Here is the result you asked for: {"a": 1} Let me know if you need more.`,
			`{"a": 1}`,
		},
		{
			"markdown fence",
			"```json\n{\"a\": 1}\n```",
			`{"a": 1}`,
		},
		{
			"nested objects",
			`{"outer": {"inner": {"deep": true}}}`,
			`{"outer": {"inner": {"deep": true}}}`,
		},
		{
			"braces inside strings ignored",
			`{"note": "a } inside { a string"}`,
			`{"note": "a } inside { a string"}`,
		},
		{
			"escaped quote inside string",
			`{"note": "she said \"hi\" {ok}"}`,
			`{"note": "she said \"hi\" {ok}"}`,
		},
		{
			"first of several objects",
			`{"first": 1} {"second": 2}`,
			`{"first": 1}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FirstObject(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFirstObjectFailures(t *testing.T) {
	t.Run("no opening brace", func(t *testing.T) {
		_, err := FirstObject("the model returned nothing useful")
		var pf *ParseFailure
		require.ErrorAs(t, err, &pf)
		assert.Equal(t, -1, pf.Offset)
	})

	t.Run("unclosed object", func(t *testing.T) {
		_, err := FirstObject(`prefix {"a": {"b": 1}`)
		var pf *ParseFailure
		require.ErrorAs(t, err, &pf)
		assert.Equal(t, 7, pf.Offset)
		assert.Contains(t, pf.Reason, "unclosed")
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := FirstObject("")
		var pf *ParseFailure
		require.ErrorAs(t, err, &pf)
		assert.Equal(t, -1, pf.Offset)
	})
}

func TestDecodeFirstObject(t *testing.T) {
	type payload struct {
		Score  int    `json:"score"`
		Reason string `json:"reason"`
	}

	t.Run("valid object", func(t *testing.T) {
		var p payload
		err := DecodeFirstObject(`Assessment follows. {"score": 80, "reason": "offshore"}`, &p)
		require.NoError(t, err)
		assert.Equal(t, 80, p.Score)
		assert.Equal(t, "offshore", p.Reason)
	})

	t.Run("balanced but invalid JSON", func(t *testing.T) {
		var p payload
		err := DecodeFirstObject(`{"score": }`, &p)
		var pf *ParseFailure
		require.ErrorAs(t, err, &pf)
		assert.Contains(t, pf.Reason, "not valid JSON")
	})

	t.Run("no object at all", func(t *testing.T) {
		var p payload
		err := DecodeFirstObject("plain text", &p)
		var pf *ParseFailure
		assert.ErrorAs(t, err, &pf)
	})
}
