package units

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrDimensionMismatch indicates a quantity whose dimension differs from the expected one.
	ErrDimensionMismatch = errors.New("units: dimension mismatch")

	// ErrUnknownUnit indicates a unit expression that could not be parsed.
	ErrUnknownUnit = errors.New("units: unknown unit")

	// ErrBadQuantity indicates a malformed "<value> <unit>" string.
	ErrBadQuantity = errors.New("units: malformed quantity")
)

// Quantity is a value expressed in a unit.
type Quantity struct {
	Value float64
	Unit  Unit
}

// New builds a quantity from a value and a unit expression. It panics on a
// bad expression, so it is meant for literals.
func New(v float64, unit string) Quantity {
	return Quantity{Value: v, Unit: MustUnit(unit)}
}

// FromSI wraps an SI value of dimension d in the coherent SI unit.
func FromSI(v float64, d Dimension) Quantity {
	return Quantity{Value: v, Unit: SIUnit(d)}
}

// Ratio wraps a dimensionless value.
func Ratio(v float64) Quantity {
	return Quantity{Value: v, Unit: known["1"]}
}

// Parse reads "13500 N*s", "30 bar" or a bare number.
func Parse(s string) (Quantity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Quantity{}, fmt.Errorf("%w: empty", ErrBadQuantity)
	}
	num, rest := s, ""
	if i := strings.IndexByte(s, ' '); i >= 0 {
		num, rest = s[:i], s[i+1:]
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Quantity{}, fmt.Errorf("%w: %q", ErrBadQuantity, s)
	}
	u, err := ParseUnit(rest)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{Value: v, Unit: u}, nil
}

func (q Quantity) Dim() Dimension { return q.Unit.Dim }

// IsZero reports whether the quantity was never set.
func (q Quantity) IsZero() bool { return q.Unit.Scale == 0 && q.Value == 0 }

// SI returns the value in coherent SI units.
func (q Quantity) SI() float64 {
	if q.Unit.Scale == 0 {
		return q.Value
	}
	return q.Value * q.Unit.Scale
}

// In converts q to the unit expression target.
func (q Quantity) In(target string) (Quantity, error) {
	u, err := ParseUnit(target)
	if err != nil {
		return Quantity{}, err
	}
	if u.Dim != q.Dim() {
		return Quantity{}, fmt.Errorf("%w: cannot convert %s to %s", ErrDimensionMismatch, q.Dim(), u.Dim)
	}
	return Quantity{Value: q.SI() / u.Scale, Unit: u}, nil
}

// MustIn is In for conversions known to be dimensionally valid.
func (q Quantity) MustIn(target string) Quantity {
	c, err := q.In(target)
	if err != nil {
		panic(err)
	}
	return c
}

// Expect fails when q does not carry dimension d.
func (q Quantity) Expect(name string, d Dimension) error {
	if q.Dim() != d {
		return fmt.Errorf("%w: %s is %s, want %s", ErrDimensionMismatch, name, q.Dim(), d)
	}
	return nil
}

// Finite reports whether the value is neither NaN nor infinite.
func (q Quantity) Finite() bool {
	return !math.IsNaN(q.Value) && !math.IsInf(q.Value, 0)
}

func (q Quantity) String() string {
	v := strconv.FormatFloat(q.Value, 'g', 6, 64)
	if q.Unit.Symbol == "" || q.Unit.Symbol == "1" {
		return v
	}
	return v + " " + q.Unit.Symbol
}

func (q Quantity) MarshalYAML() (interface{}, error) {
	return q.String(), nil
}

func (q *Quantity) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	p, err := Parse(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*q = p
	return nil
}

func (q Quantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.String())
}

func (q *Quantity) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	p, err := Parse(s)
	if err != nil {
		return err
	}
	*q = p
	return nil
}
