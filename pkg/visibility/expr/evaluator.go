package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/goliatone/go-leadform/pkg/visibility"
)

// Evaluator is a small, dependency-free visibility evaluator over string
// answers. Rules are compiled once and cached by source text.
//
// Supported forms:
//   - presence checks: `num_cargas` (non-blank and not "0"/"false")
//   - comparisons: `sistema_actual == "Isapre"`, `evaluar_afp != No`
//   - composition: `a == "x" && b != "y"`, `a || b`, `!(a == "x")`
//
// Comparisons against number literals are numeric when the answer parses as
// a number; boolean literals compare with strconv.ParseBool semantics.
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string]*Program
}

func New() *Evaluator { return &Evaluator{cache: map[string]*Program{}} }

func (e *Evaluator) Eval(sectionID, rule string, values visibility.Values) (bool, error) {
	_ = sectionID
	prog, err := e.program(rule)
	if err != nil {
		return false, err
	}
	return prog.Eval(values), nil
}

func (e *Evaluator) program(rule string) (*Program, error) {
	key := strings.TrimSpace(rule)
	e.mu.RLock()
	prog, ok := e.cache[key]
	e.mu.RUnlock()
	if ok {
		return prog, nil
	}

	prog, err := Compile(key)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	if e.cache == nil {
		e.cache = map[string]*Program{}
	}
	e.cache[key] = prog
	e.mu.Unlock()
	return prog, nil
}

// Program is a compiled rule.
type Program struct {
	source string
	root   node
	idents []string
}

// Compile parses rule. An empty rule compiles to a program that is always true.
func Compile(rule string) (*Program, error) {
	trimmed := strings.TrimSpace(rule)
	prog := &Program{source: trimmed}
	if trimmed == "" {
		return prog, nil
	}

	tokens, err := tokenize(trimmed)
	if err != nil {
		return nil, err
	}
	stream := &tokenStream{tokens: tokens}
	root, err := parseOr(stream)
	if err != nil {
		return nil, err
	}
	if stream.pos < len(stream.tokens) {
		return nil, fmt.Errorf("visibility/expr: unexpected token %q", stream.tokens[stream.pos].raw)
	}
	prog.root = root
	prog.idents = stream.idents
	return prog, nil
}

// String returns the rule source.
func (p *Program) String() string {
	if p == nil {
		return ""
	}
	return p.source
}

// Identifiers lists the field names the rule reads, in order of appearance.
func (p *Program) Identifiers() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.idents...)
}

// Eval runs the program against values. A nil or empty program is true.
func (p *Program) Eval(values visibility.Values) bool {
	if p == nil || p.root == nil {
		return true
	}
	if values == nil {
		values = visibility.Map(nil)
	}
	return p.root.eval(values)
}

type tokenKind int

const (
	tokenIdentifier tokenKind = iota
	tokenString
	tokenNumber
	tokenBool
	tokenEq
	tokenNeq
	tokenAnd
	tokenOr
	tokenNot
	tokenLParen
	tokenRParen
)

type token struct {
	kind tokenKind
	raw  string
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

func isDelimiter(c byte) bool {
	return isSpace(c) || c == '(' || c == ')' || c == '!' || c == '=' || c == '&' || c == '|'
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	for i := 0; i < len(input); {
		ch := input[i]
		if isSpace(ch) {
			i++
			continue
		}

		two := ""
		if i+1 < len(input) {
			two = input[i : i+2]
		}
		switch {
		case ch == '(':
			tokens = append(tokens, token{kind: tokenLParen, raw: "("})
			i++
		case ch == ')':
			tokens = append(tokens, token{kind: tokenRParen, raw: ")"})
			i++
		case two == "!=":
			tokens = append(tokens, token{kind: tokenNeq, raw: two})
			i += 2
		case ch == '!':
			tokens = append(tokens, token{kind: tokenNot, raw: "!"})
			i++
		case two == "==":
			tokens = append(tokens, token{kind: tokenEq, raw: two})
			i += 2
		case two == "&&":
			tokens = append(tokens, token{kind: tokenAnd, raw: two})
			i += 2
		case two == "||":
			tokens = append(tokens, token{kind: tokenOr, raw: two})
			i += 2
		case ch == '=' || ch == '&' || ch == '|':
			return nil, fmt.Errorf("visibility/expr: unexpected %q at offset %d", ch, i)
		case ch == '"' || ch == '\'':
			value, next, err := readString(input, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokenString, raw: value})
			i = next
		default:
			start := i
			for i < len(input) && !isDelimiter(input[i]) {
				i++
			}
			tokens = append(tokens, classify(input[start:i]))
		}
	}
	return tokens, nil
}

func readString(input string, start int) (string, int, error) {
	quote := input[start]
	var b strings.Builder
	for i := start + 1; i < len(input); i++ {
		c := input[i]
		switch {
		case c == '\\' && i+1 < len(input):
			i++
			b.WriteByte(input[i])
		case c == quote:
			return b.String(), i + 1, nil
		default:
			b.WriteByte(c)
		}
	}
	return "", 0, errors.New("visibility/expr: unterminated string literal")
}

func classify(raw string) token {
	switch strings.ToLower(raw) {
	case "true", "false":
		return token{kind: tokenBool, raw: strings.ToLower(raw)}
	}
	if c := raw[0]; (c >= '0' && c <= '9') || c == '-' || c == '+' {
		if _, err := strconv.ParseFloat(raw, 64); err == nil {
			return token{kind: tokenNumber, raw: raw}
		}
	}
	return token{kind: tokenIdentifier, raw: raw}
}

type node interface {
	eval(values visibility.Values) bool
}

type orNode struct{ left, right node }

func (n orNode) eval(v visibility.Values) bool { return n.left.eval(v) || n.right.eval(v) }

type andNode struct{ left, right node }

func (n andNode) eval(v visibility.Values) bool { return n.left.eval(v) && n.right.eval(v) }

type notNode struct{ inner node }

func (n notNode) eval(v visibility.Values) bool { return !n.inner.eval(v) }

type presentNode struct{ ident string }

func (n presentNode) eval(v visibility.Values) bool {
	value := strings.TrimSpace(v.Value(n.ident))
	if value == "" {
		return false
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f != 0
	}
	return true
}

type compareNode struct {
	ident   string
	negate  bool
	kind    tokenKind
	literal string
}

func (n compareNode) eval(v visibility.Values) bool {
	return n.equal(v.Value(n.ident)) != n.negate
}

func (n compareNode) equal(got string) bool {
	switch n.kind {
	case tokenNumber:
		want, _ := strconv.ParseFloat(n.literal, 64)
		f, err := strconv.ParseFloat(strings.TrimSpace(got), 64)
		return err == nil && f == want
	case tokenBool:
		b, err := strconv.ParseBool(strings.TrimSpace(got))
		return err == nil && b == (n.literal == "true")
	default:
		return got == n.literal
	}
}

type tokenStream struct {
	tokens []token
	pos    int
	idents []string
}

func parseOr(s *tokenStream) (node, error) {
	left, err := parseAnd(s)
	if err != nil {
		return nil, err
	}
	for s.match(tokenOr) {
		right, err := parseAnd(s)
		if err != nil {
			return nil, err
		}
		left = orNode{left: left, right: right}
	}
	return left, nil
}

func parseAnd(s *tokenStream) (node, error) {
	left, err := parseUnary(s)
	if err != nil {
		return nil, err
	}
	for s.match(tokenAnd) {
		right, err := parseUnary(s)
		if err != nil {
			return nil, err
		}
		left = andNode{left: left, right: right}
	}
	return left, nil
}

func parseUnary(s *tokenStream) (node, error) {
	if s.match(tokenNot) {
		inner, err := parseUnary(s)
		if err != nil {
			return nil, err
		}
		return notNode{inner: inner}, nil
	}
	return parsePrimary(s)
}

func parsePrimary(s *tokenStream) (node, error) {
	if s.match(tokenLParen) {
		inner, err := parseOr(s)
		if err != nil {
			return nil, err
		}
		if !s.match(tokenRParen) {
			return nil, errors.New("visibility/expr: missing closing ')'")
		}
		return inner, nil
	}

	if s.pos >= len(s.tokens) {
		return nil, errors.New("visibility/expr: empty expression")
	}
	tok := s.tokens[s.pos]
	if tok.kind != tokenIdentifier {
		return nil, fmt.Errorf("visibility/expr: expected field name, got %q", tok.raw)
	}
	s.pos++
	s.idents = append(s.idents, tok.raw)

	negate := false
	switch {
	case s.match(tokenEq):
	case s.match(tokenNeq):
		negate = true
	default:
		return presentNode{ident: tok.raw}, nil
	}

	if s.pos >= len(s.tokens) {
		return nil, errors.New("visibility/expr: missing literal")
	}
	lit := s.tokens[s.pos]
	s.pos++
	switch lit.kind {
	case tokenString, tokenNumber, tokenBool:
		return compareNode{ident: tok.raw, negate: negate, kind: lit.kind, literal: lit.raw}, nil
	case tokenIdentifier:
		// Bare words compare as strings: `evaluar_afp == Si`.
		return compareNode{ident: tok.raw, negate: negate, kind: tokenString, literal: lit.raw}, nil
	default:
		return nil, fmt.Errorf("visibility/expr: expected literal, got %q", lit.raw)
	}
}

func (s *tokenStream) match(kind tokenKind) bool {
	if s.pos >= len(s.tokens) || s.tokens[s.pos].kind != kind {
		return false
	}
	s.pos++
	return true
}
