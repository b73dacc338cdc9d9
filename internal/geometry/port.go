package geometry

import (
	"errors"
	"fmt"
	"math"
)

// ErrNotImplemented indicates a port topology the tool knows of but cannot size yet.
var ErrNotImplemented = errors.New("geometry: port topology not implemented")

// Circular is the only port cross-section currently sized.
const Circular = "circular"

// Port relates a port's characteristic diameter to its flow area and burning perimeter.
type Port interface {
	Name() string
	Area(diameter float64) float64
	Diameter(area float64) float64
	Perimeter(diameter float64) float64
}

// Lookup returns the port model for a topology name.
func Lookup(topology string) (Port, error) {
	switch topology {
	case Circular:
		return CircularPort{}, nil
	default:
		return nil, fmt.Errorf("%w: %q (only %q is supported)", ErrNotImplemented, topology, Circular)
	}
}

type CircularPort struct{}

func (CircularPort) Name() string { return Circular }

func (CircularPort) Area(d float64) float64 { return DiameterToArea(d) }

func (CircularPort) Diameter(a float64) float64 { return AreaToDiameter(a) }

func (CircularPort) Perimeter(d float64) float64 { return DiameterToPerimeter(d) }

// DiameterToArea is A = pi*d^2/4.
func DiameterToArea(d float64) float64 {
	return math.Pi * d * d / 4
}

// AreaToDiameter is d = 2*sqrt(A/pi).
func AreaToDiameter(a float64) float64 {
	return 2 * math.Sqrt(a/math.Pi)
}

func DiameterToPerimeter(d float64) float64 {
	return math.Pi * d
}
