package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// CalcArgs are the arguments for the calculator tool.
type CalcArgs struct {
	Expression string `json:"expression" jsonschema:"required,description=Arithmetic expression to evaluate"`
}

// NewCalculatorTool builds the arithmetic tool. Expressions are parsed by
// a small recursive-descent parser that only accepts numbers, operators
// and parentheses; anything else is rejected before evaluation.
func NewCalculatorTool() Definition {
	return Definition{
		Name: "calculator",
		Description: "Evaluate an arithmetic expression. " +
			"Supports + - * / % ** and parentheses.",
		Parameters: schemaFor(&CalcArgs{}),
		Run: func(_ context.Context, raw json.RawMessage) Payload {
			var args CalcArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return Errf("invalid arguments for calculator: %s", err.Error())
			}
			result, err := Evaluate(args.Expression)
			if err != nil {
				return Errf("%s", err.Error())
			}
			return OK(map[string]any{
				"expression": args.Expression,
				"result":     FormatNumber(result),
			})
		},
	}
}

// FormatNumber renders integral results without a fractional part.
func FormatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Evaluate parses and evaluates a pure arithmetic expression.
func Evaluate(expr string) (float64, error) {
	if err := validateAlphabet(expr); err != nil {
		return 0, err
	}
	p := &exprParser{input: expr}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("unexpected %q at position %d", p.input[p.pos], p.pos)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("expression result is not a finite number")
	}
	return v, nil
}

// Grammar, lowest to highest precedence:
//
//	expr   = term   { ("+" | "-") term }
//	term   = unary  { ("*" | "/" | "%") unary }
//	unary  = { ("+" | "-") } power
//	power  = atom   [ "**" unary ]        (right associative)
//	atom   = number | "(" expr ")"
type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) skipSpaces() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *exprParser) peek() (byte, bool) {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0, false
	}
	return p.input[p.pos], true
}

func (p *exprParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		c, ok := p.peek()
		if !ok || (c != '+' && c != '-') {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if c == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *exprParser) parseTerm() (float64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		c, ok := p.peek()
		if !ok || (c != '*' && c != '/' && c != '%') {
			return left, nil
		}
		if c == '*' && p.pos+1 < len(p.input) && p.input[p.pos+1] == '*' {
			// exponentiation binds tighter; handled below parseUnary
			return left, nil
		}
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		switch c {
		case '*':
			left *= right
		case '/':
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		case '%':
			if right == 0 {
				return 0, fmt.Errorf("modulo by zero")
			}
			left = math.Mod(left, right)
		}
	}
}

func (p *exprParser) parseUnary() (float64, error) {
	c, ok := p.peek()
	if ok && (c == '+' || c == '-') {
		p.pos++
		v, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		if c == '-' {
			return -v, nil
		}
		return v, nil
	}
	return p.parsePower()
}

func (p *exprParser) parsePower() (float64, error) {
	base, err := p.parseAtom()
	if err != nil {
		return 0, err
	}
	c, ok := p.peek()
	if ok && c == '*' && p.pos+1 < len(p.input) && p.input[p.pos+1] == '*' {
		p.pos += 2
		exp, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return math.Pow(base, exp), nil
	}
	return base, nil
}

func (p *exprParser) parseAtom() (float64, error) {
	c, ok := p.peek()
	if !ok {
		return 0, fmt.Errorf("unexpected end of expression")
	}
	if c == '(' {
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		c, ok = p.peek()
		if !ok || c != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	}
	if c >= '0' && c <= '9' || c == '.' {
		return p.parseNumber()
	}
	if unicode.IsLetter(rune(c)) || c == '_' {
		return 0, fmt.Errorf("identifiers are not allowed in expressions")
	}
	return 0, fmt.Errorf("unexpected %q at position %d", c, p.pos)
}

func (p *exprParser) parseNumber() (float64, error) {
	start := p.pos
	seenDot := false
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c >= '0' && c <= '9' {
			p.pos++
			continue
		}
		if c == '.' && !seenDot {
			seenDot = true
			p.pos++
			continue
		}
		break
	}
	text := p.input[start:p.pos]
	if text == "" || text == "." {
		return 0, fmt.Errorf("invalid number at position %d", start)
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", text)
	}
	return v, nil
}

// validateAlphabet rejects characters outside the arithmetic alphabet up
// front, so quotes, commas and identifiers all fail with a clear message
// before any parsing happens.
func validateAlphabet(expr string) error {
	for i, r := range expr {
		switch {
		case r >= '0' && r <= '9':
		case strings.ContainsRune("+-*/%(). \t", r):
		default:
			if unicode.IsLetter(r) || r == '_' {
				return fmt.Errorf("identifiers are not allowed in expressions")
			}
			return fmt.Errorf("unexpected %q at position %d", r, i)
		}
	}
	return nil
}
