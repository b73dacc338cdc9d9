package sizing

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/roar/internal/geometry"
	"github.com/san-kum/roar/internal/regression"
	"github.com/san-kum/roar/internal/units"
)

var (
	// ErrInvalidSpec indicates a design spec outside the model's valid range.
	ErrInvalidSpec = errors.New("sizing: invalid design spec")

	// ErrInvalidResult indicates a computed quantity that is non-positive or non-finite.
	ErrInvalidResult = errors.New("sizing: physically invalid result")
)

// DesignSpec is the immutable input of a sizing run.
type DesignSpec struct {
	// choices
	Fuel     string
	Oxidizer string
	PortType string

	// mission specs
	TotalImpulse  units.Quantity
	ThrustAverage units.Quantity
	ThrustInitial units.Quantity

	// input properties
	OFDesign                  float64
	OFInitial                 float64
	IspDesign                 units.Quantity
	IspInitial                units.Quantity
	UllageOx                  float64
	UllageFuel                float64
	PressureChamber           units.Quantity
	InjectorPressureDropRatio float64
	InjectorHeadLossCoeff     float64
	InjectorOrifices          int
	OxidizerDensity           units.Quantity
	OxidizerMassFlux          units.Quantity
	FuelDensity               units.Quantity
	Regression                *regression.Params
	TemperatureFlame          units.Quantity
	Gamma                     float64
	GasConstant               units.Quantity
	CombustionEfficiency      float64
	PressureExit              units.Quantity
	PressureAmbient           units.Quantity

	// constants
	G0 units.Quantity
}

// Reference returns the baseline 13.5 kN*s wax/nitrous engine.
func Reference() DesignSpec {
	params := regression.Wax
	return DesignSpec{
		Fuel:                      "wax",
		Oxidizer:                  "nitrous",
		PortType:                  geometry.Circular,
		TotalImpulse:              units.New(13500, "N*s"),
		ThrustAverage:             units.New(1500, "N"),
		ThrustInitial:             units.New(1500, "N"),
		OFDesign:                  6,
		OFInitial:                 6,
		IspDesign:                 units.New(300, "s"),
		IspInitial:                units.New(300, "s"),
		UllageOx:                  0.05,
		UllageFuel:                0.05,
		PressureChamber:           units.New(30, "bar"),
		InjectorPressureDropRatio: 0.15,
		InjectorHeadLossCoeff:     1.5,
		InjectorOrifices:          1,
		OxidizerDensity:           units.New(1000, "kg/m^3"),
		OxidizerMassFlux:          units.New(350, "kg/m^2/s"),
		FuelDensity:               units.New(900, "kg/m^3"),
		Regression:                &params,
		TemperatureFlame:          units.New(3300, "K"),
		Gamma:                     1.28,
		GasConstant:               units.New(280, "J/(kg*K)"),
		CombustionEfficiency:      0.93,
		PressureExit:              units.New(1, "bar"),
		G0:                        units.New(9.81, "m/s^2"),
	}
}

// Ambient returns the back pressure, which defaults to the design exit pressure.
func (s DesignSpec) Ambient() units.Quantity {
	if s.PressureAmbient.IsZero() {
		return s.PressureExit
	}
	return s.PressureAmbient
}

func (s DesignSpec) orifices() int {
	if s.InjectorOrifices <= 0 {
		return 1
	}
	return s.InjectorOrifices
}

// Validate checks dimensions first, then ranges. It never coerces a value.
func (s DesignSpec) Validate() error {
	quantities := []struct {
		name string
		q    units.Quantity
		dim  units.Dimension
	}{
		{"total impulse", s.TotalImpulse, units.Impulse},
		{"average thrust", s.ThrustAverage, units.Force},
		{"initial thrust", s.ThrustInitial, units.Force},
		{"design specific impulse", s.IspDesign, units.Time},
		{"initial specific impulse", s.IspInitial, units.Time},
		{"chamber pressure", s.PressureChamber, units.Pressure},
		{"oxidizer density", s.OxidizerDensity, units.Density},
		{"oxidizer mass flux", s.OxidizerMassFlux, units.MassFlux},
		{"fuel density", s.FuelDensity, units.Density},
		{"flame temperature", s.TemperatureFlame, units.Temperature},
		{"specific gas constant", s.GasConstant, units.SpecificEntropy},
		{"exit pressure", s.PressureExit, units.Pressure},
		{"ambient pressure", s.Ambient(), units.Pressure},
		{"standard gravity", s.G0, units.Acceleration},
	}
	for _, f := range quantities {
		if err := f.q.Expect(f.name, f.dim); err != nil {
			return err
		}
		if !f.q.Finite() || f.q.Value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %s", ErrInvalidSpec, f.name, f.q)
		}
	}

	ratios := []struct {
		name    string
		v       float64
		atMost1 bool
	}{
		{"design O/F", s.OFDesign, false},
		{"initial O/F", s.OFInitial, false},
		{"oxidizer ullage", s.UllageOx, false},
		{"fuel ullage", s.UllageFuel, false},
		{"injector pressure drop ratio", s.InjectorPressureDropRatio, true},
		{"injector head loss coefficient", s.InjectorHeadLossCoeff, false},
		{"combustion efficiency", s.CombustionEfficiency, true},
	}
	for _, r := range ratios {
		if !(r.v > 0) || math.IsInf(r.v, 0) {
			return fmt.Errorf("%w: %s must be positive, got %g", ErrInvalidSpec, r.name, r.v)
		}
		if r.atMost1 && r.v > 1 {
			return fmt.Errorf("%w: %s must not exceed 1, got %g", ErrInvalidSpec, r.name, r.v)
		}
	}

	if !(s.Gamma > 1) || math.IsInf(s.Gamma, 0) {
		return fmt.Errorf("%w: ratio of specific heats must exceed 1, got %g", ErrInvalidSpec, s.Gamma)
	}
	if s.InjectorOrifices < 0 {
		return fmt.Errorf("%w: injector orifice count must not be negative, got %d", ErrInvalidSpec, s.InjectorOrifices)
	}
	if s.PressureExit.SI() >= s.PressureChamber.SI() {
		return fmt.Errorf("%w: exit pressure %s must be below chamber pressure %s", ErrInvalidSpec, s.PressureExit, s.PressureChamber)
	}
	if s.Regression == nil {
		return fmt.Errorf("%w: regression parameters missing", ErrInvalidSpec)
	}
	if err := s.Regression.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSpec, err)
	}
	return nil
}
