// Package regression holds the empirical fuel burn-rate law rdot = a * G^n * L^m.
//
// The constants are always calibrated to SI base units: G in kg/(m^2*s), L in m
// and rdot in m/s.
package regression

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidParams = errors.New("regression: invalid parameters")

type Params struct {
	A float64 `yaml:"a" json:"a"`
	N float64 `yaml:"n" json:"n"`
	M float64 `yaml:"m" json:"m"`
}

// Paraffin wax with nitrous oxide.
var Wax = Params{A: 2.36e-5, N: 0.605, M: 0}

func (p Params) Validate() error {
	switch {
	case !(p.A > 0) || math.IsInf(p.A, 0):
		return fmt.Errorf("%w: a must be positive, got %g", ErrInvalidParams, p.A)
	case !(p.N > 0 && p.N < 1):
		return fmt.Errorf("%w: n must lie in (0, 1), got %g", ErrInvalidParams, p.N)
	case math.IsNaN(p.M) || math.IsInf(p.M, 0) || p.M <= -1:
		return fmt.Errorf("%w: m must be finite and greater than -1, got %g", ErrInvalidParams, p.M)
	}
	return nil
}

// Rate returns the regression rate for total flux g at axial length l.
func (p Params) Rate(g, l float64) float64 {
	return p.A * math.Pow(g, p.N) * math.Pow(l, p.M)
}

// GrainLength solves mdotFuel = rho * a * G^n * L^m * P * L for L.
func (p Params) GrainLength(mdotFuel, rhoFuel, flux, perimeter float64) float64 {
	return math.Pow(mdotFuel/(p.A*rhoFuel*math.Pow(flux, p.N)*perimeter), 1/(p.M+1))
}
