package units

import (
	"fmt"
	"strings"
)

// Dimension holds the base-unit exponents of a physical quantity.
type Dimension struct {
	Mass, Length, Time, Temperature int8
}

var (
	Dimensionless   = Dimension{}
	Mass            = Dimension{Mass: 1}
	Length          = Dimension{Length: 1}
	Time            = Dimension{Time: 1}
	Temperature     = Dimension{Temperature: 1}
	Area            = Dimension{Length: 2}
	Velocity        = Dimension{Length: 1, Time: -1}
	Acceleration    = Dimension{Length: 1, Time: -2}
	Force           = Dimension{Mass: 1, Length: 1, Time: -2}
	Impulse         = Dimension{Mass: 1, Length: 1, Time: -1}
	Pressure        = Dimension{Mass: 1, Length: -1, Time: -2}
	Density         = Dimension{Mass: 1, Length: -3}
	MassFlowRate    = Dimension{Mass: 1, Time: -1}
	MassFlux        = Dimension{Mass: 1, Length: -2, Time: -1}
	SpecificEntropy = Dimension{Length: 2, Time: -2, Temperature: -1}
)

func (d Dimension) Mul(o Dimension) Dimension {
	return Dimension{
		Mass:        d.Mass + o.Mass,
		Length:      d.Length + o.Length,
		Time:        d.Time + o.Time,
		Temperature: d.Temperature + o.Temperature,
	}
}

func (d Dimension) Div(o Dimension) Dimension {
	return d.Mul(o.Pow(-1))
}

func (d Dimension) Pow(p int8) Dimension {
	return Dimension{
		Mass:        d.Mass * p,
		Length:      d.Length * p,
		Time:        d.Time * p,
		Temperature: d.Temperature * p,
	}
}

// String renders the dimension as a coherent SI unit expression, e.g. kg/(m^2*s).
func (d Dimension) String() string {
	if d == Dimensionless {
		return "1"
	}
	var num, den []string
	add := func(sym string, exp int8) {
		switch {
		case exp > 0:
			num = append(num, power(sym, exp))
		case exp < 0:
			den = append(den, power(sym, -exp))
		}
	}
	add("kg", d.Mass)
	add("m", d.Length)
	add("s", d.Time)
	add("K", d.Temperature)

	n := strings.Join(num, "*")
	if n == "" {
		n = "1"
	}
	switch len(den) {
	case 0:
		return n
	case 1:
		return n + "/" + den[0]
	default:
		return n + "/(" + strings.Join(den, "*") + ")"
	}
}

func power(sym string, exp int8) string {
	if exp == 1 {
		return sym
	}
	return fmt.Sprintf("%s^%d", sym, exp)
}
