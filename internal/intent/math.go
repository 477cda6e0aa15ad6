package intent

import (
	"errors"
	"fmt"
	"strconv"
)

var ErrDivisionByZero = errors.New("intent: division by zero")

// maxNesting bounds parentheses and unary signs so the parser's recursion
// stays shallow whatever the input.
const maxNesting = 64

// Evaluate computes a simple arithmetic expression made of numbers, + - * /,
// parentheses and unary minus.
func Evaluate(expr string) (float64, error) {
	if !IsSimpleMath(expr) {
		return 0, fmt.Errorf("intent: not a simple math expression: %q", expr)
	}
	p := &mathParser{src: expr}
	v, err := p.expression()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return 0, fmt.Errorf("intent: unexpected %q at offset %d", p.src[p.pos], p.pos)
	}
	return v, nil
}

type mathParser struct {
	src   string
	pos   int
	depth int
}

func (p *mathParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t' || p.src[p.pos] == '\n' || p.src[p.pos] == '\r') {
		p.pos++
	}
}

func (p *mathParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

// expression := term (('+' | '-') term)*
func (p *mathParser) expression() (float64, error) {
	left, err := p.term()
	if err != nil {
		return 0, err
	}
	for {
		op := p.peek()
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.term()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

// term := factor (('*' | '/') factor)*
func (p *mathParser) term() (float64, error) {
	left, err := p.factor()
	if err != nil {
		return 0, err
	}
	for {
		op := p.peek()
		if op != '*' && op != '/' {
			return left, nil
		}
		p.pos++
		right, err := p.factor()
		if err != nil {
			return 0, err
		}
		if op == '*' {
			left *= right
			continue
		}
		if right == 0 {
			return 0, ErrDivisionByZero
		}
		left /= right
	}
}

// factor := '-' factor | '(' expression ')' | number
func (p *mathParser) factor() (float64, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxNesting {
		return 0, fmt.Errorf("intent: expression nested deeper than %d", maxNesting)
	}

	switch c := p.peek(); {
	case c == '-':
		p.pos++
		v, err := p.factor()
		return -v, err
	case c == '+':
		p.pos++
		return p.factor()
	case c == '(':
		p.pos++
		v, err := p.expression()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, errors.New("intent: missing closing parenthesis")
		}
		p.pos++
		return v, nil
	default:
		return p.number()
	}
}

func (p *mathParser) number() (float64, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && (p.src[p.pos] == '.' || (p.src[p.pos] >= '0' && p.src[p.pos] <= '9')) {
		p.pos++
	}
	if start == p.pos {
		return 0, fmt.Errorf("intent: expected number at offset %d", start)
	}
	v, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("intent: parse number %q: %w", p.src[start:p.pos], err)
	}
	return v, nil
}
