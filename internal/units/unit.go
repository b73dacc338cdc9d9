package units

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Unit is a named scale of a dimension. Scale converts a value in the unit to SI.
type Unit struct {
	Symbol string
	Dim    Dimension
	Scale  float64
}

var known = map[string]Unit{
	"1":   {"1", Dimensionless, 1},
	"kg":  {"kg", Mass, 1},
	"g":   {"g", Mass, 1e-3},
	"lb":  {"lb", Mass, 0.45359237},
	"m":   {"m", Length, 1},
	"cm":  {"cm", Length, 1e-2},
	"mm":  {"mm", Length, 1e-3},
	"km":  {"km", Length, 1e3},
	"in":  {"in", Length, 0.0254},
	"ft":  {"ft", Length, 0.3048},
	"s":   {"s", Time, 1},
	"ms":  {"ms", Time, 1e-3},
	"min": {"min", Time, 60},
	"h":   {"h", Time, 3600},
	"K":   {"K", Temperature, 1},
	"N":   {"N", Force, 1},
	"kN":  {"kN", Force, 1e3},
	"lbf": {"lbf", Force, 4.4482216152605},
	"Pa":  {"Pa", Pressure, 1},
	"kPa": {"kPa", Pressure, 1e3},
	"MPa": {"MPa", Pressure, 1e6},
	"bar": {"bar", Pressure, 1e5},
	"atm": {"atm", Pressure, 101325},
	"psi": {"psi", Pressure, 6894.757293168},
	"J":   {"J", Dimension{Mass: 1, Length: 2, Time: -2}, 1},
	"kJ":  {"kJ", Dimension{Mass: 1, Length: 2, Time: -2}, 1e3},
	"W":   {"W", Dimension{Mass: 1, Length: 2, Time: -3}, 1},
}

// SIUnit returns the coherent SI unit of d.
func SIUnit(d Dimension) Unit {
	return Unit{Symbol: d.String(), Dim: d, Scale: 1}
}

// MustUnit is ParseUnit for expressions known to be valid.
func MustUnit(expr string) Unit {
	u, err := ParseUnit(expr)
	if err != nil {
		panic(err)
	}
	return u
}

// ParseUnit parses a compound unit expression such as "kg/m^2/s" or "J/(kg*K)".
// An empty expression is dimensionless.
func ParseUnit(expr string) (Unit, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return known["1"], nil
	}
	if u, ok := known[expr]; ok {
		return u, nil
	}
	p := &unitParser{src: expr}
	u, err := p.term()
	if err != nil {
		return Unit{}, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return Unit{}, fmt.Errorf("%w: unexpected %q in %q", ErrUnknownUnit, p.src[p.pos:], expr)
	}
	u.Symbol = expr
	return u, nil
}

type unitParser struct {
	src string
	pos int
}

func (p *unitParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *unitParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

// term := factor (('*' | '/') factor)*
func (p *unitParser) term() (Unit, error) {
	u, err := p.factor()
	if err != nil {
		return Unit{}, err
	}
	for {
		switch p.peek() {
		case '*':
			p.pos++
			rhs, err := p.factor()
			if err != nil {
				return Unit{}, err
			}
			u = Unit{Dim: u.Dim.Mul(rhs.Dim), Scale: u.Scale * rhs.Scale}
		case '/':
			p.pos++
			rhs, err := p.factor()
			if err != nil {
				return Unit{}, err
			}
			u = Unit{Dim: u.Dim.Div(rhs.Dim), Scale: u.Scale / rhs.Scale}
		default:
			return u, nil
		}
	}
}

// factor := primary ('^' int)?
func (p *unitParser) factor() (Unit, error) {
	u, err := p.primary()
	if err != nil {
		return Unit{}, err
	}
	if p.peek() != '^' {
		return u, nil
	}
	p.pos++
	p.skipSpace()
	start := p.pos
	if p.pos < len(p.src) && p.src[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.src) && unicode.IsDigit(rune(p.src[p.pos])) {
		p.pos++
	}
	exp, err := strconv.Atoi(p.src[start:p.pos])
	if err != nil {
		return Unit{}, fmt.Errorf("%w: bad exponent in %q", ErrUnknownUnit, p.src)
	}
	scale := 1.0
	for i := 0; i < abs(exp); i++ {
		scale *= u.Scale
	}
	if exp < 0 {
		scale = 1 / scale
	}
	return Unit{Dim: u.Dim.Pow(int8(exp)), Scale: scale}, nil
}

func (p *unitParser) primary() (Unit, error) {
	if p.peek() == '(' {
		p.pos++
		u, err := p.term()
		if err != nil {
			return Unit{}, err
		}
		if p.peek() != ')' {
			return Unit{}, fmt.Errorf("%w: unbalanced parentheses in %q", ErrUnknownUnit, p.src)
		}
		p.pos++
		return u, nil
	}
	start := p.pos
	for p.pos < len(p.src) {
		c := rune(p.src[p.pos])
		if !unicode.IsLetter(c) && !unicode.IsDigit(c) {
			break
		}
		p.pos++
	}
	sym := p.src[start:p.pos]
	u, ok := known[sym]
	if !ok {
		return Unit{}, fmt.Errorf("%w: %q", ErrUnknownUnit, sym)
	}
	return u, nil
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
