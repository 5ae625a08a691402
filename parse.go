package exprgraph

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ParseError describes a syntax error with token context. Parse errors are
// recoverable at the statement level: they never corrupt already-built
// portions of the graph.
type ParseError struct {
	Line  int
	Col   int
	Token string
	Msg   string
}

// Error returns the string representation of the error.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d:%d near %q: %s", e.Line, e.Col, e.Token, e.Msg)
}

// ParseResult is the outcome of parsing one statement of a multi-statement
// input.
type ParseResult struct {
	Line  int
	Input string
	Expr  *Expr // nil when Err is set
	Err   error
}

// Parse converts an infix expression into a raw (unsimplified) expression
// graph. Identifiers resolve to the builder's variable handles; unknown
// names are auto-defined with infinite bounds. Supported syntax: numeric
// literals, + - * / ^ with standard precedence (^ right-associative, with a
// constant exponent), parentheses, and the registered unary functions.
func (b *Builder) Parse(input string) (*Expr, error) {
	p := &parser{b: b, lex: newLexer(input)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		Release(&e)
		return nil, p.errorf("expected end of expression")
	}
	return e, nil
}

// ParseLines parses one statement per line, skipping blank lines and
// '#' comments. A malformed statement produces a diagnostic result and
// parsing continues with the remaining statements.
func (b *Builder) ParseLines(r io.Reader) []ParseResult {
	var results []ParseResult
	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		e, err := b.Parse(text)
		if perr := (*ParseError)(nil); errors.As(err, &perr) {
			perr.Line = line
		}
		results = append(results, ParseResult{Line: line, Input: text, Expr: e, Err: err})
	}
	return results
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokCaret
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	num  float64
	col  int
}

type lexer struct {
	src string
	pos int
	col int
}

func newLexer(src string) *lexer {
	return &lexer{src: src, col: 1}
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.src) && (l.src[l.pos] == ' ' || l.src[l.pos] == '\t') {
		l.pos++
		l.col++
	}
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, text: "", col: l.col}, nil
	}

	start, col := l.pos, l.col
	ch := l.src[l.pos]
	switch {
	case ch >= '0' && ch <= '9' || ch == '.':
		for l.pos < len(l.src) && isNumberChar(l.src, l.pos) {
			l.pos++
			l.col++
		}
		text := l.src[start:l.pos]
		num, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return token{}, &ParseError{Line: 1, Col: col, Token: text, Msg: "malformed number"}
		}
		return token{kind: tokNumber, text: text, num: num, col: col}, nil

	case isIdentChar(ch) && !(ch >= '0' && ch <= '9'):
		for l.pos < len(l.src) && isIdentChar(l.src[l.pos]) {
			l.pos++
			l.col++
		}
		return token{kind: tokIdent, text: l.src[start:l.pos], col: col}, nil
	}

	l.pos++
	l.col++
	kinds := map[byte]tokenKind{
		'+': tokPlus, '-': tokMinus, '*': tokStar, '/': tokSlash,
		'^': tokCaret, '(': tokLParen, ')': tokRParen,
	}
	kind, ok := kinds[ch]
	if !ok {
		return token{}, &ParseError{Line: 1, Col: col, Token: string(ch), Msg: "unexpected character"}
	}
	return token{kind: kind, text: string(ch), col: col}, nil
}

// isNumberChar accepts digits, the decimal point, and scientific notation
// including a signed exponent.
func isNumberChar(src string, pos int) bool {
	ch := src[pos]
	if ch >= '0' && ch <= '9' || ch == '.' || ch == 'e' || ch == 'E' {
		return true
	}
	if (ch == '+' || ch == '-') && pos > 0 && (src[pos-1] == 'e' || src[pos-1] == 'E') {
		return true
	}
	return false
}

func isIdentChar(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9' || ch == '_'
}

type parser struct {
	b   *Builder
	lex *lexer
	tok token
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return &ParseError{Line: 1, Col: p.tok.col, Token: p.tok.text, Msg: fmt.Sprintf(format, args...)}
}

// parseExpr parses term (('+'|'-') term)* into a weighted sum.
func (p *parser) parseExpr() (*Expr, error) {
	var terms []*Expr
	var coefs []float64
	release := func() {
		for i := range terms {
			Release(&terms[i])
		}
	}

	t, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	terms, coefs = append(terms, t), append(coefs, 1)

	for p.tok.kind == tokPlus || p.tok.kind == tokMinus {
		coef := 1.0
		if p.tok.kind == tokMinus {
			coef = -1
		}
		if err := p.advance(); err != nil {
			release()
			return nil, err
		}
		if t, err = p.parseTerm(); err != nil {
			release()
			return nil, err
		}
		terms, coefs = append(terms, t), append(coefs, coef)
	}

	if len(terms) == 1 && coefs[0] == 1 {
		return terms[0], nil
	}
	s, err := p.b.Sum(coefs, 0, terms...)
	release()
	return s, err
}

// parseTerm parses factor (('*'|'/') factor)* into a product; division
// lowers to multiplication by the reciprocal power.
func (p *parser) parseTerm() (*Expr, error) {
	var factors []*Expr
	release := func() {
		for i := range factors {
			Release(&factors[i])
		}
	}

	f, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	factors = append(factors, f)

	for p.tok.kind == tokStar || p.tok.kind == tokSlash {
		div := p.tok.kind == tokSlash
		if err := p.advance(); err != nil {
			release()
			return nil, err
		}
		if f, err = p.parseFactor(); err != nil {
			release()
			return nil, err
		}
		if div {
			pw, err := p.b.Pow(f, -1)
			Release(&f)
			if err != nil {
				release()
				return nil, err
			}
			f = pw
		}
		factors = append(factors, f)
	}

	if len(factors) == 1 {
		return factors[0], nil
	}
	prod, err := p.b.Product(1, factors...)
	release()
	return prod, err
}

// parseFactor parses an optionally signed power.
func (p *parser) parseFactor() (*Expr, error) {
	switch p.tok.kind {
	case tokPlus:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.parseFactor()
	case tokMinus:
		if err := p.advance(); err != nil {
			return nil, err
		}
		f, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		if IsValue(f) {
			v := ValValue(f)
			Release(&f)
			return p.b.Value(-v), nil
		}
		s, err := p.b.Sum([]float64{-1}, 0, f)
		Release(&f)
		return s, err
	}
	return p.parsePower()
}

// parsePower parses atom ('^' factor)?. The exponent must reduce to a
// numeric constant.
func (p *parser) parsePower() (*Expr, error) {
	a, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokCaret {
		return a, nil
	}
	if err := p.advance(); err != nil {
		Release(&a)
		return nil, err
	}
	ex, err := p.parseFactor()
	if err != nil {
		Release(&a)
		return nil, err
	}
	if !IsValue(ex) {
		Release(&a)
		Release(&ex)
		return nil, p.errorf("exponent must be a numeric constant")
	}
	exponent := ValValue(ex)
	Release(&ex)

	// Fold constant bases so that chained exponents like 2^3^2 stay
	// numeric.
	if IsValue(a) {
		if v, err := evalPow(ValValue(a), exponent); err == nil {
			Release(&a)
			return p.b.Value(v), nil
		}
	}
	pw, err := p.b.Pow(a, exponent)
	Release(&a)
	return pw, err
}

// parseAtom parses a literal, a variable, a function application, or a
// parenthesized expression.
func (p *parser) parseAtom() (*Expr, error) {
	switch p.tok.kind {
	case tokNumber:
		v := p.tok.num
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.b.Value(v), nil

	case tokIdent:
		name := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind != tokLParen {
			v, ok := p.b.LookupVar(name)
			if !ok {
				v = p.b.DefineVar(name, math.Inf(-1), math.Inf(1))
			}
			return p.b.Variable(v), nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRParen {
			Release(&arg)
			return nil, p.errorf("expected closing parenthesis")
		}
		if err := p.advance(); err != nil {
			Release(&arg)
			return nil, err
		}
		f, err := p.b.Func(name, arg)
		Release(&arg)
		if err != nil {
			return nil, &ParseError{Line: 1, Col: p.tok.col, Token: name, Msg: "unknown function"}
		}
		return f, nil

	case tokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRParen {
			Release(&e)
			return nil, p.errorf("expected closing parenthesis")
		}
		if err := p.advance(); err != nil {
			Release(&e)
			return nil, err
		}
		return e, nil
	}
	return nil, p.errorf("expected expression")
}
