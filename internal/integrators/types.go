package integrators

import (
	"fmt"
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// System is a first-order ODE whose right-hand side may fail, e.g. when an
// implicit solve inside it does not converge.
type System interface {
	Derive(x State, t float64) (State, error)
}

type Integrator interface {
	Name() string
	Step(sys System, x State, t, dt float64) (State, error)
}

// Lookup returns a fresh integrator by name.
func Lookup(name string) (Integrator, error) {
	switch name {
	case "euler", "":
		return NewEuler(), nil
	case "rk4":
		return NewRK4(), nil
	default:
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
}

func Names() []string {
	return []string{"euler", "rk4"}
}
