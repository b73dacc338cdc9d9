// Package nozzle holds the isentropic quasi-1D flow relations. Functions take
// SI scalars and dimensionless ratios; unit handling happens at the caller.
package nozzle

import (
	"fmt"
	"math"

	"github.com/san-kum/roar/internal/solver"
)

// Mach brackets for the subsonic (chamber) and supersonic (exit) branches.
var (
	SubsonicBracket   = [2]float64{0.001, 0.999}
	SupersonicBracket = [2]float64{1.001, 50}
)

// ExpansionRatio is the area ratio A/A* at Mach number mach.
func ExpansionRatio(mach, gamma float64) float64 {
	return (1 / mach) * math.Pow((2/(gamma+1))*(1+(gamma-1)/2*mach*mach), (gamma+1)/(2*gamma-2))
}

// MachFromAreaRatio inverts ExpansionRatio on the subsonic branch.
func MachFromAreaRatio(areaRatio, gamma float64, opts solver.Options) (float64, error) {
	return invert(areaRatio, gamma, SubsonicBracket, opts)
}

// MachFromAreaRatioSupersonic inverts ExpansionRatio on the supersonic branch.
func MachFromAreaRatioSupersonic(areaRatio, gamma float64, opts solver.Options) (float64, error) {
	return invert(areaRatio, gamma, SupersonicBracket, opts)
}

func invert(areaRatio, gamma float64, bracket [2]float64, opts solver.Options) (float64, error) {
	f := func(m float64) float64 { return ExpansionRatio(m, gamma) - areaRatio }
	m, err := solver.Brent(f, bracket[0], bracket[1], opts)
	if err != nil {
		return 0, fmt.Errorf("nozzle: mach for area ratio %g (gamma %g): %w", areaRatio, gamma, err)
	}
	return m, nil
}

// PressureRatio is the stagnation-to-static pressure ratio P0/P at mach.
func PressureRatio(mach, gamma float64) float64 {
	return math.Pow(1+(gamma-1)/2*mach*mach, gamma/(gamma-1))
}

// MachExitFromPressureRatio solves PressureRatio for the Mach number; pratio is Pc/Pe.
func MachExitFromPressureRatio(pratio, gamma float64) float64 {
	return math.Sqrt(2 / (gamma - 1) * (math.Pow(pratio, (gamma-1)/gamma) - 1))
}

// TemperatureExit is the static temperature at mach for stagnation temperature t0.
func TemperatureExit(t0, mach, gamma float64) float64 {
	return t0 / (1 + (gamma-1)/2*mach*mach)
}

// CharacteristicVelocity is eta * sqrt(gamma R T) / (gamma * (2/(gamma+1))^((gamma+1)/(2(gamma-1)))).
func CharacteristicVelocity(gamma, gasConstant, t0, efficiency float64) float64 {
	num := math.Sqrt(gamma * gasConstant * t0)
	den := gamma * math.Pow(2/(gamma+1), (gamma+1)/(2*gamma-2))
	return efficiency * num / den
}

// ThroatArea is A* = mdot c* / Pc.
func ThroatArea(mdot, cstar, pc float64) float64 {
	return mdot * cstar / pc
}

// ExitVelocity is M * sqrt(gamma R Te).
func ExitVelocity(mach, gamma, gasConstant, te float64) float64 {
	return mach * math.Sqrt(gamma*gasConstant*te)
}

// Thrust is mdot ve + (pe - pa) Ae.
func Thrust(mdot, ve, pe, pa, ae float64) float64 {
	return mdot*ve + (pe-pa)*ae
}
