// Package expr evaluates user-authored pricing expressions over a fixed
// variable set. The grammar is deliberately tiny: decimal literals,
// whitelisted identifiers, the four arithmetic operators and parentheses.
// Nothing in this package ever compiles or loads code; evaluation is a pure
// arithmetic reduction, which is what makes condominium-admin-authored
// formulas safe to run.
package expr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrForbiddenToken is the contract error for expressions containing
	// anything associated with code execution or object access.
	ErrForbiddenToken = errors.New("Expression contains forbidden characters or keywords")

	// ErrUnbalancedParens is the contract error for mismatched parentheses.
	ErrUnbalancedParens = errors.New("Unbalanced parentheses in expression")

	// ErrDivisionByZero is a numeric evaluation failure, distinct from the
	// static validation errors above.
	ErrDivisionByZero = errors.New("division by zero in expression")
)

// UnknownVariableError reports the first identifier not present in the
// variable dictionary.
type UnknownVariableError struct {
	Name string
}

func (e *UnknownVariableError) Error() string {
	return "Unknown variable: " + e.Name
}

// SyntaxError reports a malformed expression that passed the static checks
// but cannot be parsed by the arithmetic grammar.
type SyntaxError struct {
	Pos     int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid expression at position %d: %s", e.Pos, e.Message)
}

// forbiddenKeywords mirrors the denylist the authoring surface has always
// enforced. The recursive-descent grammar below cannot execute any of these
// anyway, but the list stays part of the validation contract so authoring
// errors keep their stable message.
var forbiddenKeywords = []string{
	"function",
	"eval",
	"exec",
	"import",
	"require",
	"process",
	"global",
	"window",
	"document",
	"fetch",
	"xmlhttprequest",
}

const forbiddenChars = "[];="

// Validate runs the static checks in contract order: forbidden tokens,
// parenthesis balance, then the identifier whitelist. It never evaluates
// anything, so it is safe to call on fully untrusted input and is what the
// formula create/update path uses to surface authoring errors early.
func Validate(expression string, allowed func(name string) bool) error {
	lowered := strings.ToLower(expression)
	for _, keyword := range forbiddenKeywords {
		if strings.Contains(lowered, keyword) {
			return ErrForbiddenToken
		}
	}
	if strings.ContainsAny(expression, forbiddenChars) {
		return ErrForbiddenToken
	}

	depth := 0
	for _, r := range expression {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return ErrUnbalancedParens
			}
		}
	}
	if depth != 0 {
		return ErrUnbalancedParens
	}

	for _, name := range Identifiers(expression) {
		if !allowed(name) {
			return &UnknownVariableError{Name: name}
		}
	}
	return nil
}

// Identifiers returns every identifier-like token in the expression, in
// order of appearance. Duplicates are preserved; the first unknown one is
// the one reported.
func Identifiers(expression string) []string {
	var names []string
	runes := []rune(expression)
	for i := 0; i < len(runes); {
		if !isIdentStart(runes[i]) {
			i++
			continue
		}
		start := i
		for i < len(runes) && isIdentPart(runes[i]) {
			i++
		}
		names = append(names, string(runes[start:i]))
	}
	return names
}

// Evaluate validates and then computes an expression against the supplied
// variable values. All arithmetic is exact decimal; callers round the result
// to currency precision themselves.
func Evaluate(expression string, vars map[string]decimal.Decimal) (decimal.Decimal, error) {
	err := Validate(expression, func(name string) bool {
		_, ok := vars[name]
		return ok
	})
	if err != nil {
		return decimal.Zero, err
	}

	p := &parser{input: []rune(expression), vars: vars}
	result, err := p.parseExpression()
	if err != nil {
		return decimal.Zero, err
	}
	p.skipSpaces()
	if p.pos < len(p.input) {
		return decimal.Zero, &SyntaxError{Pos: p.pos, Message: "unexpected trailing input"}
	}
	return result, nil
}

// parser is a single-pass recursive-descent evaluator:
//
//	expression := term  (('+'|'-') term)*
//	term       := factor (('*'|'/') factor)*
//	factor     := ('-'|'+')? primary
//	primary    := number | identifier | '(' expression ')'
//
// Precedence and left-to-right associativity at equal precedence follow from
// the loop structure.
type parser struct {
	input []rune
	pos   int
	vars  map[string]decimal.Decimal
}

func (p *parser) parseExpression() (decimal.Decimal, error) {
	left, err := p.parseTerm()
	if err != nil {
		return decimal.Zero, err
	}
	for {
		p.skipSpaces()
		op, ok := p.peekOperator('+', '-')
		if !ok {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return decimal.Zero, err
		}
		if op == '+' {
			left = left.Add(right)
		} else {
			left = left.Sub(right)
		}
	}
}

func (p *parser) parseTerm() (decimal.Decimal, error) {
	left, err := p.parseFactor()
	if err != nil {
		return decimal.Zero, err
	}
	for {
		p.skipSpaces()
		op, ok := p.peekOperator('*', '/')
		if !ok {
			return left, nil
		}
		p.pos++
		right, err := p.parseFactor()
		if err != nil {
			return decimal.Zero, err
		}
		if op == '*' {
			left = left.Mul(right)
		} else {
			if right.IsZero() {
				return decimal.Zero, ErrDivisionByZero
			}
			left = left.Div(right)
		}
	}
}

func (p *parser) parseFactor() (decimal.Decimal, error) {
	p.skipSpaces()
	if op, ok := p.peekOperator('-', '+'); ok {
		p.pos++
		value, err := p.parseFactor()
		if err != nil {
			return decimal.Zero, err
		}
		if op == '-' {
			return value.Neg(), nil
		}
		return value, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (decimal.Decimal, error) {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return decimal.Zero, &SyntaxError{Pos: p.pos, Message: "unexpected end of expression"}
	}

	r := p.input[p.pos]
	switch {
	case r == '(':
		p.pos++
		value, err := p.parseExpression()
		if err != nil {
			return decimal.Zero, err
		}
		p.skipSpaces()
		if p.pos >= len(p.input) || p.input[p.pos] != ')' {
			return decimal.Zero, &SyntaxError{Pos: p.pos, Message: "expected closing parenthesis"}
		}
		p.pos++
		return value, nil

	case isDigit(r) || r == '.':
		return p.parseNumber()

	case isIdentStart(r):
		start := p.pos
		for p.pos < len(p.input) && isIdentPart(p.input[p.pos]) {
			p.pos++
		}
		name := string(p.input[start:p.pos])
		value, ok := p.vars[name]
		if !ok {
			// Validate already whitelisted every identifier; reaching this
			// branch means the caller mutated the variable map mid-flight.
			return decimal.Zero, &UnknownVariableError{Name: name}
		}
		return value, nil

	default:
		return decimal.Zero, &SyntaxError{Pos: p.pos, Message: fmt.Sprintf("unexpected character %q", r)}
	}
}

func (p *parser) parseNumber() (decimal.Decimal, error) {
	start := p.pos
	sawDot := false
	for p.pos < len(p.input) {
		r := p.input[p.pos]
		if r == '.' {
			if sawDot {
				return decimal.Zero, &SyntaxError{Pos: p.pos, Message: "malformed number"}
			}
			sawDot = true
			p.pos++
			continue
		}
		if !isDigit(r) {
			break
		}
		p.pos++
	}
	literal := string(p.input[start:p.pos])
	value, err := decimal.NewFromString(literal)
	if err != nil {
		return decimal.Zero, &SyntaxError{Pos: start, Message: "malformed number"}
	}
	return value, nil
}

func (p *parser) peekOperator(candidates ...rune) (rune, bool) {
	if p.pos >= len(p.input) {
		return 0, false
	}
	for _, op := range candidates {
		if p.input[p.pos] == op {
			return op, true
		}
	}
	return 0, false
}

func (p *parser) skipSpaces() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t' || p.input[p.pos] == '\n' || p.input[p.pos] == '\r') {
		p.pos++
	}
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r rune) bool { return isIdentStart(r) || isDigit(r) }
