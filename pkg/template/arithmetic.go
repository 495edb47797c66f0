package template

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Arithmetic field values are written as a single {{a * b}} expression where
// a and b resolve through dot-paths in the execution context. After
// substitution, only digits, whitespace, decimal points, and + - * / are
// accepted; everything else (parentheses, exponents, letters) is rejected.
// A tiny recursive-descent parser evaluates the result, so no general
// code-evaluation primitive is ever involved.

var (
	arithmeticPattern = regexp.MustCompile(`^\{\{\s*(.+?)\s*\}\}$`)
	identifierPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_.]*`)
	operatorPattern   = regexp.MustCompile(`[+\-*/]`)
)

// ErrInvalidExpression is returned when an arithmetic expression contains
// anything beyond numbers, whitespace, and the four basic operators after
// substitution.
var ErrInvalidExpression = errors.New("invalid arithmetic expression")

// IsArithmetic reports whether a field value is a single {{...}} expression
// containing an arithmetic operator, e.g. {{precio * cantidad}}.
func IsArithmetic(value string) bool {
	m := arithmeticPattern.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return false
	}

	inner := m[1]

	// Multiple adjacent {{...}} references are templating, not one expression.
	if strings.ContainsAny(inner, "{}") {
		return false
	}

	// A lone {{path}} reference is templating, not arithmetic. Dotted paths
	// contain no operators, so an operator presence is the discriminator.
	return operatorPattern.MatchString(inner)
}

// EvalArithmetic resolves the identifiers of a {{a * b}} expression through
// the given lookup and evaluates the resulting numeric expression.
func EvalArithmetic(value string, resolve func(path string) (float64, bool)) (float64, error) {
	m := arithmeticPattern.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return 0, fmt.Errorf("%w: not a {{...}} expression: %q", ErrInvalidExpression, value)
	}

	var resolveErr error

	substituted := identifierPattern.ReplaceAllStringFunc(m[1], func(ident string) string {
		number, ok := resolve(ident)
		if !ok {
			resolveErr = fmt.Errorf("%w: cannot resolve %q to a number", ErrInvalidExpression, ident)

			return ident
		}

		return strconv.FormatFloat(number, 'f', -1, 64)
	})

	if resolveErr != nil {
		return 0, resolveErr
	}

	return evalExpression(substituted)
}

// evalExpression parses and evaluates an expression over numeric literals
// and + - * / with the usual precedence.
func evalExpression(input string) (float64, error) {
	for _, r := range input {
		if !unicode.IsDigit(r) && !unicode.IsSpace(r) && !strings.ContainsRune("+-*/.", r) {
			return 0, fmt.Errorf("%w: unexpected character %q", ErrInvalidExpression, r)
		}
	}

	p := &exprParser{input: input}

	result, err := p.parseSum()
	if err != nil {
		return 0, err
	}

	p.skipSpace()

	if p.pos != len(p.input) {
		return 0, fmt.Errorf("%w: trailing input at position %d", ErrInvalidExpression, p.pos)
	}

	return result, nil
}

type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) parseSum() (float64, error) {
	left, err := p.parseProduct()
	if err != nil {
		return 0, err
	}

	for {
		p.skipSpace()

		if p.pos >= len(p.input) {
			return left, nil
		}

		op := p.input[p.pos]
		if op != '+' && op != '-' {
			return left, nil
		}

		p.pos++

		right, err := p.parseProduct()
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

func (p *exprParser) parseProduct() (float64, error) {
	left, err := p.parseNumber()
	if err != nil {
		return 0, err
	}

	for {
		p.skipSpace()

		if p.pos >= len(p.input) {
			return left, nil
		}

		op := p.input[p.pos]
		if op != '*' && op != '/' {
			return left, nil
		}

		p.pos++

		right, err := p.parseNumber()
		if err != nil {
			return 0, err
		}

		if op == '*' {
			left *= right
		} else {
			if right == 0 {
				return 0, fmt.Errorf("%w: division by zero", ErrInvalidExpression)
			}

			left /= right
		}
	}
}

func (p *exprParser) parseNumber() (float64, error) {
	p.skipSpace()

	start := p.pos

	if p.pos < len(p.input) && p.input[p.pos] == '-' {
		p.pos++
	}

	for p.pos < len(p.input) && (unicode.IsDigit(rune(p.input[p.pos])) || p.input[p.pos] == '.') {
		p.pos++
	}

	if p.pos == start || (p.pos == start+1 && p.input[start] == '-') {
		return 0, fmt.Errorf("%w: expected number at position %d", ErrInvalidExpression, start)
	}

	number, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidExpression, p.input[start:p.pos])
	}

	return number, nil
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.input) && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
}
