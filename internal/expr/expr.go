// Package expr implements a small, closed condition grammar for rule
// conditions evaluated against transaction fields. Conditions are parsed
// into an AST and interpreted directly; no source text is ever executed.
//
// Grammar:
//
//	expr       := andExpr { "or" andExpr }
//	andExpr    := notExpr { "and" notExpr }
//	notExpr    := "not" notExpr | primary
//	primary    := "(" expr ")" | comparison
//	comparison := operand ( "==" | "!=" | ">" | ">=" | "<" | "<=" | "contains" ) operand
//	            | operand "in" "(" operand { "," operand } ")"
//	operand    := IDENT | STRING | NUMBER | "true" | "false"
//
// Identifiers name transaction fields; unknown fields evaluate to the empty
// string. Comparisons are numeric when both sides parse as numbers and
// lexical otherwise.
package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ParseError reports where a condition failed to parse.
type ParseError struct {
	Pos     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("condition parse error at offset %d: %s", e.Pos, e.Message)
}

// =============================================================================
// Lexer
// =============================================================================

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokOp     // == != > >= < <=
	tokLParen
	tokRParen
	tokComma
	tokAnd
	tokOr
	tokNot
	tokIn
	tokContains
	tokTrue
	tokFalse
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

var keywords = map[string]tokenKind{
	"and":      tokAnd,
	"or":       tokOr,
	"not":      tokNot,
	"in":       tokIn,
	"contains": tokContains,
	"true":     tokTrue,
	"false":    tokFalse,
}

func lex(input string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
		case c == ',':
			toks = append(toks, token{tokComma, ",", i})
			i++
		case c == '=' || c == '!' || c == '<' || c == '>':
			start := i
			op := string(c)
			if i+1 < len(input) && input[i+1] == '=' {
				op += "="
				i += 2
			} else {
				i++
			}
			if op == "=" || op == "!" {
				return nil, &ParseError{Pos: start, Message: fmt.Sprintf("unexpected %q (did you mean %q?)", op, op+"=")}
			}
			toks = append(toks, token{tokOp, op, start})
		case c == '"' || c == '\'':
			quote := c
			start := i
			i++
			var sb strings.Builder
			closed := false
			for i < len(input) {
				if input[i] == '\\' && i+1 < len(input) {
					sb.WriteByte(input[i+1])
					i += 2
					continue
				}
				if input[i] == quote {
					closed = true
					i++
					break
				}
				sb.WriteByte(input[i])
				i++
			}
			if !closed {
				return nil, &ParseError{Pos: start, Message: "unterminated string literal"}
			}
			toks = append(toks, token{tokString, sb.String(), start})
		case c >= '0' && c <= '9' || c == '-' && i+1 < len(input) && input[i+1] >= '0' && input[i+1] <= '9':
			start := i
			i++
			for i < len(input) && (input[i] >= '0' && input[i] <= '9' || input[i] == '.') {
				i++
			}
			toks = append(toks, token{tokNumber, input[start:i], start})
		case isIdentStart(rune(c)):
			start := i
			for i < len(input) && isIdentPart(rune(input[i])) {
				i++
			}
			word := input[start:i]
			if kind, ok := keywords[strings.ToLower(word)]; ok {
				toks = append(toks, token{kind, word, start})
			} else {
				toks = append(toks, token{tokIdent, word, start})
			}
		default:
			return nil, &ParseError{Pos: i, Message: fmt.Sprintf("unexpected character %q", string(c))}
		}
	}
	toks = append(toks, token{tokEOF, "", len(input)})
	return toks, nil
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentPart(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.'
}

// =============================================================================
// AST and parser
// =============================================================================

type node interface {
	eval(fields map[string]string) bool
}

type binaryNode struct {
	op          string // "and" | "or"
	left, right node
}

func (n *binaryNode) eval(fields map[string]string) bool {
	if n.op == "and" {
		return n.left.eval(fields) && n.right.eval(fields)
	}
	return n.left.eval(fields) || n.right.eval(fields)
}

type notNode struct {
	inner node
}

func (n *notNode) eval(fields map[string]string) bool {
	return !n.inner.eval(fields)
}

type operandKind int

const (
	operandField operandKind = iota
	operandString
	operandNumber
	operandBool
)

type operand struct {
	kind operandKind
	text string
}

func (o operand) value(fields map[string]string) string {
	if o.kind == operandField {
		return fields[o.text]
	}
	return o.text
}

type compareNode struct {
	op          string
	left, right operand
}

func (n *compareNode) eval(fields map[string]string) bool {
	lv := n.left.value(fields)
	rv := n.right.value(fields)

	if n.op == "contains" {
		return strings.Contains(strings.ToLower(lv), strings.ToLower(rv))
	}

	// Boolean literals compare case-insensitively: CSV exports spell
	// booleans as True/False while the grammar uses true/false.
	if n.left.kind == operandBool || n.right.kind == operandBool {
		switch n.op {
		case "==":
			return strings.EqualFold(lv, rv)
		case "!=":
			return !strings.EqualFold(lv, rv)
		}
	}

	lf, lerr := strconv.ParseFloat(strings.TrimSpace(lv), 64)
	rf, rerr := strconv.ParseFloat(strings.TrimSpace(rv), 64)
	if lerr == nil && rerr == nil {
		switch n.op {
		case "==":
			return lf == rf
		case "!=":
			return lf != rf
		case ">":
			return lf > rf
		case ">=":
			return lf >= rf
		case "<":
			return lf < rf
		case "<=":
			return lf <= rf
		}
		return false
	}

	switch n.op {
	case "==":
		return lv == rv
	case "!=":
		return lv != rv
	case ">":
		return lv > rv
	case ">=":
		return lv >= rv
	case "<":
		return lv < rv
	case "<=":
		return lv <= rv
	}
	return false
}

type inNode struct {
	left    operand
	options []operand
}

func (n *inNode) eval(fields map[string]string) bool {
	lv := n.left.value(fields)
	for _, o := range n.options {
		if lv == o.value(fields) {
			return true
		}
	}
	return false
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(t token, format string, args ...interface{}) error {
	return &ParseError{Pos: t.pos, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) parseExpr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: "or", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: "and", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (node, error) {
	if p.peek().kind == tokNot {
		p.next()
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &notNode{inner: inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	if p.peek().kind == tokLParen {
		// Lookahead: "(" begins a grouped expression, never an operand.
		p.next()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if t := p.next(); t.kind != tokRParen {
			return nil, p.errorf(t, "expected ')', got %q", t.text)
		}
		return inner, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (node, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	t := p.next()
	switch t.kind {
	case tokOp:
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return &compareNode{op: t.text, left: left, right: right}, nil
	case tokContains:
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return &compareNode{op: "contains", left: left, right: right}, nil
	case tokIn:
		if t := p.next(); t.kind != tokLParen {
			return nil, p.errorf(t, "expected '(' after 'in', got %q", t.text)
		}
		var options []operand
		for {
			o, err := p.parseOperand()
			if err != nil {
				return nil, err
			}
			options = append(options, o)
			t := p.next()
			if t.kind == tokRParen {
				break
			}
			if t.kind != tokComma {
				return nil, p.errorf(t, "expected ',' or ')' in value list, got %q", t.text)
			}
		}
		return &inNode{left: left, options: options}, nil
	default:
		return nil, p.errorf(t, "expected comparison operator, got %q", t.text)
	}
}

func (p *parser) parseOperand() (operand, error) {
	t := p.next()
	switch t.kind {
	case tokIdent:
		return operand{kind: operandField, text: t.text}, nil
	case tokString:
		return operand{kind: operandString, text: t.text}, nil
	case tokNumber:
		return operand{kind: operandNumber, text: t.text}, nil
	case tokTrue:
		return operand{kind: operandBool, text: "true"}, nil
	case tokFalse:
		return operand{kind: operandBool, text: "false"}, nil
	default:
		return operand{}, p.errorf(t, "expected field, literal or value, got %q", t.text)
	}
}

// =============================================================================
// Public API
// =============================================================================

// Condition is a parsed, reusable rule condition.
type Condition struct {
	source string
	root   node
}

// Parse compiles a condition string. The returned Condition is safe for
// concurrent use.
func Parse(input string) (*Condition, error) {
	toks, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errorf(t, "unexpected trailing input %q", t.text)
	}
	return &Condition{source: input, root: root}, nil
}

// String returns the original condition source.
func (c *Condition) String() string { return c.source }

// Evaluate interprets the condition against a transaction's fields.
// Unknown fields read as empty strings; evaluation never panics.
func (c *Condition) Evaluate(fields map[string]string) bool {
	if c == nil || c.root == nil {
		return false
	}
	if fields == nil {
		fields = map[string]string{}
	}
	return c.root.eval(fields)
}
