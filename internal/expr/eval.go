// internal/expr/eval.go
//
// Expression evaluation for player submissions.
//
// Responsibilities:
//   - Evaluate: recursive-descent evaluation over a restricted grammar —
//     integer literals, bound variable symbols, + - * /, parentheses, and a
//     leading unary minus inside a factor. Nothing else parses.
//   - Implicit multiplication: a numeral or closing parenthesis directly
//     adjacent to a variable symbol or an opening parenthesis multiplies
//     ("2x", "(1+2)x", "3(4+1)").
//   - Inspect: expression metadata the scoring engine consumes (cards
//     consumed, distinct operators, exact division, functionally necessary
//     parentheses, variable use).
//
// Errors (malformed input, unknown symbol, division by zero) are returned to
// the caller; the match coordinator downgrades them to a missed submission.

package expr

import (
	"errors"
	"math"
	"strings"
)

var (
	ErrEmpty      = errors.New("empty expression")
	ErrSyntax     = errors.New("malformed expression")
	ErrDivByZero  = errors.New("division by zero")
	ErrUnknownVar = errors.New("unknown symbol")
)

// Usage summarizes how a submission used its hand. It is the scoring
// engine's view of the expression; all fields are derived from the raw
// string plus the dealt cards and variable bindings.
type Usage struct {
	CardsUsed         int  // dealt atoms consumed (cards multiset-matched, plus variables)
	DistinctOperators int  // distinct operator symbols appearing
	HasExactDivision  bool // a division occurred and left no remainder
	ParensEffective   bool // stripping parentheses changes (or breaks) the value
	UsesVariable      bool // at least one bound symbol appears
}

// Evaluate parses and evaluates s with vars bound to integer values.
func Evaluate(s string, vars map[byte]int) (float64, error) {
	v, _, _, err := eval(s, vars)
	return v, err
}

// Inspect evaluates s and derives the usage metadata scoring needs.
// cards is the dealt hand; literals not present in the hand do not count as
// consumed cards.
func Inspect(s string, cards []int, vars map[byte]int) (Usage, error) {
	v, divSeen, divExact, err := eval(s, vars)
	if err != nil {
		return Usage{}, err
	}

	var u Usage
	u.HasExactDivision = divSeen && divExact
	u.CardsUsed = countConsumed(s, cards, vars, &u)

	seen := map[byte]bool{}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '+', '-', '*', '/':
			seen[s[i]] = true
		}
	}
	u.DistinctOperators = len(seen)

	if strings.ContainsRune(s, '(') {
		stripped := strings.NewReplacer("(", "", ")", "").Replace(s)
		if sv, err := Evaluate(stripped, vars); err != nil || math.Abs(sv-v) > eps {
			u.ParensEffective = true
		}
	}
	return u, nil
}

// countConsumed multiset-matches integer literals against the dealt cards and
// counts each used variable symbol once. Sets UsesVariable as a side effect.
func countConsumed(s string, cards []int, vars map[byte]int, u *Usage) int {
	remaining := make(map[int]int, len(cards))
	for _, c := range cards {
		remaining[c]++
	}
	usedVars := map[byte]bool{}

	n := 0
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			v := 0
			for i < len(s) && s[i] >= '0' && s[i] <= '9' {
				v = v*10 + int(s[i]-'0')
				i++
			}
			if remaining[v] > 0 {
				remaining[v]--
				n++
			}
		default:
			if _, ok := vars[c]; ok && !usedVars[c] {
				usedVars[c] = true
				u.UsesVariable = true
				n++
			}
			i++
		}
	}
	return n
}

// ----------------------------- parser --------------------------------------

type parser struct {
	s        string
	pos      int
	vars     map[byte]int
	divSeen  bool
	divExact bool
}

func eval(s string, vars map[byte]int) (val float64, divSeen, divExact bool, err error) {
	p := &parser{s: s, vars: vars}
	p.skipSpace()
	if p.pos >= len(p.s) {
		return 0, false, false, ErrEmpty
	}
	v, err := p.expr()
	if err != nil {
		return 0, false, false, err
	}
	p.skipSpace()
	if p.pos != len(p.s) {
		return 0, false, false, ErrSyntax
	}
	return v, p.divSeen, p.divExact, nil
}

func (p *parser) skipSpace() {
	for p.pos < len(p.s) && p.s[p.pos] == ' ' {
		p.pos++
	}
}

func (p *parser) peek() (byte, bool) {
	p.skipSpace()
	if p.pos >= len(p.s) {
		return 0, false
	}
	return p.s[p.pos], true
}

// expr := term (('+'|'-') term)*
func (p *parser) expr() (float64, error) {
	v, err := p.term()
	if err != nil {
		return 0, err
	}
	for {
		c, ok := p.peek()
		if !ok || (c != '+' && c != '-') {
			return v, nil
		}
		p.pos++
		rhs, err := p.term()
		if err != nil {
			return 0, err
		}
		if c == '+' {
			v += rhs
		} else {
			v -= rhs
		}
	}
}

// term := factor (('*'|'/') factor | implicit-mult factor)*
func (p *parser) term() (float64, error) {
	v, err := p.factor()
	if err != nil {
		return 0, err
	}
	for {
		c, ok := p.peek()
		if !ok {
			return v, nil
		}
		switch {
		case c == '*' || c == '/':
			p.pos++
			rhs, err := p.factor()
			if err != nil {
				return 0, err
			}
			if c == '*' {
				v *= rhs
				continue
			}
			if math.Abs(rhs) < eps {
				return 0, ErrDivByZero
			}
			p.divSeen = true
			q := v / rhs
			if math.Abs(q-math.Round(q)) < eps {
				p.divExact = true
			}
			v = q
		case c == '(' || isLetter(c):
			// Implicit multiplication: "2x", "(1+2)y", "3(4+1)".
			// Unknown letters fall through to factor's ErrUnknownVar.
			rhs, err := p.factor()
			if err != nil {
				return 0, err
			}
			v *= rhs
		default:
			return v, nil
		}
	}
}

// factor := '-'? (number | variable | '(' expr ')')
func (p *parser) factor() (float64, error) {
	c, ok := p.peek()
	if !ok {
		return 0, ErrSyntax
	}
	if c == '-' {
		p.pos++
		v, err := p.factor()
		return -v, err
	}
	switch {
	case c >= '0' && c <= '9':
		v := 0
		for p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
			v = v*10 + int(p.s[p.pos]-'0')
			p.pos++
		}
		return float64(v), nil
	case c == '(':
		p.pos++
		v, err := p.expr()
		if err != nil {
			return 0, err
		}
		if c, ok := p.peek(); !ok || c != ')' {
			return 0, ErrSyntax
		}
		p.pos++
		return v, nil
	case p.isVar(c):
		p.pos++
		return float64(p.vars[c]), nil
	case isLetter(c):
		return 0, ErrUnknownVar
	default:
		return 0, ErrSyntax
	}
}

func (p *parser) isVar(c byte) bool {
	_, ok := p.vars[c]
	return ok
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
