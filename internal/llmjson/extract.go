// Package llmjson recovers structured JSON from free-form model output.
// Models wrap JSON in prose, markdown fences or trailing commentary; the
// extractor finds the first balanced brace-delimited object instead of
// guessing with string slicing.
package llmjson

import (
	"encoding/json"
	"fmt"
)

// ParseFailure reports that no balanced JSON object could be recovered.
type ParseFailure struct {
	Offset int    // byte offset where scanning stopped, -1 if no '{' found
	Reason string
}

func (e *ParseFailure) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("no JSON object in model output: %s", e.Reason)
	}
	return fmt.Sprintf("unbalanced JSON object at offset %d: %s", e.Offset, e.Reason)
}

// FirstObject returns the first balanced {...} object in text. The scan is
// string- and escape-aware, so braces inside string values do not count
// toward nesting. Absence or imbalance yields a *ParseFailure.
func FirstObject(text string) (string, error) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]
		if start < 0 {
			if c == '{' {
				start = i
				depth = 1
			}
			continue
		}
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}

	if start < 0 {
		return "", &ParseFailure{Offset: -1, Reason: "no opening brace"}
	}
	return "", &ParseFailure{Offset: start, Reason: fmt.Sprintf("object opened but %d brace(s) left unclosed", depth)}
}

// DecodeFirstObject extracts the first balanced object and unmarshals it
// into v. Invalid JSON inside a balanced object is reported as a
// *ParseFailure as well, so callers have a single failure type to branch on.
func DecodeFirstObject(text string, v interface{}) error {
	obj, err := FirstObject(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(obj), v); err != nil {
		return &ParseFailure{Offset: 0, Reason: fmt.Sprintf("object is not valid JSON: %v", err)}
	}
	return nil
}
