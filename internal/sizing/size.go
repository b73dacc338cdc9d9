package sizing

import (
	"fmt"
	"math"

	"github.com/san-kum/roar/internal/geometry"
	"github.com/san-kum/roar/internal/nozzle"
	"github.com/san-kum/roar/internal/solver"
	"github.com/san-kum/roar/internal/units"
)

// Step names, in the order the pipeline declares them.
const (
	BurnTime                = "burn_time"
	MassPropellant          = "mass_propellant"
	MassOxidizer            = "mass_oxidizer"
	MassFuel                = "mass_fuel"
	MdotPropellant          = "mdot_propellant_initial"
	MdotOxidizer            = "mdot_oxidizer_initial"
	MdotFuel                = "mdot_fuel_initial"
	InjectorPressureDrop    = "injector_pressure_drop"
	InjectorArea            = "injector_area"
	InjectorDiameter        = "injector_diameter"
	InjectorOrificeDiameter = "injector_orifice_diameter"
	PortAreaInitial         = "port_area_initial"
	PortDiameterInitial     = "port_diameter_initial"
	PortPerimeterInitial    = "port_perimeter_initial"
	GrainLength             = "grain_length"
	PortDiameterFinal       = "port_diameter_final"
	ChamberArea             = "combustion_chamber_area"
	RegressionRateInitial   = "regression_rate_initial"
	CharacteristicVelocity  = "characteristic_velocity"
	ThroatArea              = "throat_area"
	ThroatDiameter          = "throat_diameter"
	MachChamber             = "mach_chamber"
	MachExit                = "mach_exit"
	TemperatureExit         = "temperature_exit"
	ExpansionRatio          = "expansion_ratio"
	ExitArea                = "exit_area"
	ExitDiameter            = "exit_diameter"
)

// Size derives a Result from spec. It retains no state between calls and
// returns either a complete Result or an error, never a partial Result.
func Size(spec DesignSpec) (*Result, error) {
	return SizeWith(spec, solver.DefaultOptions())
}

// SizeWith is Size with explicit root-search options for the Mach inversion.
func SizeWith(spec DesignSpec, opts solver.Options) (*Result, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	port, err := geometry.Lookup(spec.PortType)
	if err != nil {
		return nil, fmt.Errorf("sizing: %w", err)
	}

	ordered, err := plan(pipeline(spec, port, opts))
	if err != nil {
		return nil, err
	}
	values, err := evaluate(ordered)
	if err != nil {
		return nil, err
	}
	return newResult(spec, ordered, values), nil
}

// Plan returns the evaluation order of the pipeline's step names.
func Plan() ([]string, error) {
	ordered, err := plan(pipeline(Reference(), geometry.CircularPort{}, solver.DefaultOptions()))
	if err != nil {
		return nil, err
	}
	names := make([]string, len(ordered))
	for i, s := range ordered {
		names[i] = s.name
	}
	return names, nil
}

func pipeline(spec DesignSpec, port geometry.Port, opts solver.Options) []step {
	var (
		impulse  = spec.TotalImpulse.SI()
		g0       = spec.G0.SI()
		pc       = spec.PressureChamber.SI()
		pe       = spec.PressureExit.SI()
		rhoFuel  = spec.FuelDensity.SI()
		fluxOx   = spec.OxidizerMassFlux.SI()
		gamma    = spec.Gamma
		params   = spec.Regression
		ofDesign = spec.OFDesign
		ofInit   = spec.OFInitial
	)

	return []step{
		{
			name: BurnTime, label: "burn time", dim: units.Time, unit: "s",
			eval: func(in inputs) (float64, error) {
				return impulse / spec.ThrustAverage.SI(), nil
			},
		},
		{
			name: MassPropellant, label: "propellant mass", dim: units.Mass, unit: "kg",
			eval: func(in inputs) (float64, error) {
				return impulse / (spec.IspDesign.SI() * g0), nil
			},
		},
		{
			name: MassOxidizer, label: "oxidizer mass", dim: units.Mass, unit: "kg",
			needs: []string{MassPropellant},
			eval: func(in inputs) (float64, error) {
				return (1 + spec.UllageOx) * in.get(MassPropellant) * ofDesign / (ofDesign + 1), nil
			},
		},
		{
			name: MassFuel, label: "fuel mass", dim: units.Mass, unit: "kg",
			needs: []string{MassPropellant},
			eval: func(in inputs) (float64, error) {
				return (1 + spec.UllageFuel) * in.get(MassPropellant) / (ofDesign + 1), nil
			},
		},
		{
			name: MdotPropellant, label: "initial propellant mass flow", dim: units.MassFlowRate, unit: "kg/s",
			eval: func(in inputs) (float64, error) {
				return spec.ThrustInitial.SI() / (spec.IspInitial.SI() * g0), nil
			},
		},
		{
			name: MdotOxidizer, label: "initial oxidizer mass flow", dim: units.MassFlowRate, unit: "kg/s",
			needs: []string{MdotPropellant},
			eval: func(in inputs) (float64, error) {
				return in.get(MdotPropellant) * ofInit / (ofInit + 1), nil
			},
		},
		{
			name: MdotFuel, label: "initial fuel mass flow", dim: units.MassFlowRate, unit: "kg/s",
			needs: []string{MdotPropellant},
			eval: func(in inputs) (float64, error) {
				return in.get(MdotPropellant) / (ofInit + 1), nil
			},
		},
		{
			name: InjectorPressureDrop, label: "injector pressure drop", dim: units.Pressure, unit: "bar",
			eval: func(in inputs) (float64, error) {
				return pc * spec.InjectorPressureDropRatio, nil
			},
		},
		{
			name: InjectorArea, label: "injector area", dim: units.Area, unit: "mm^2",
			needs: []string{MdotOxidizer, InjectorPressureDrop},
			eval: func(in inputs) (float64, error) {
				k, rho := spec.InjectorHeadLossCoeff, spec.OxidizerDensity.SI()
				return in.get(MdotOxidizer) * math.Sqrt(k/(2*rho*in.get(InjectorPressureDrop))), nil
			},
		},
		{
			name: InjectorDiameter, label: "injector diameter (single hole)", dim: units.Length, unit: "mm",
			needs: []string{InjectorArea},
			eval: func(in inputs) (float64, error) {
				return geometry.AreaToDiameter(in.get(InjectorArea)), nil
			},
		},
		{
			name: InjectorOrificeDiameter, label: "injector orifice diameter", dim: units.Length, unit: "mm",
			needs: []string{InjectorArea},
			eval: func(in inputs) (float64, error) {
				return geometry.AreaToDiameter(in.get(InjectorArea) / float64(spec.orifices())), nil
			},
		},
		{
			name: PortAreaInitial, label: "initial port area", dim: units.Area, unit: "mm^2",
			needs: []string{MdotOxidizer},
			eval: func(in inputs) (float64, error) {
				return in.get(MdotOxidizer) / fluxOx, nil
			},
		},
		{
			name: PortDiameterInitial, label: "initial port diameter", dim: units.Length, unit: "mm",
			needs: []string{PortAreaInitial},
			eval: func(in inputs) (float64, error) {
				return port.Diameter(in.get(PortAreaInitial)), nil
			},
		},
		{
			name: PortPerimeterInitial, label: "initial port perimeter", dim: units.Length, unit: "mm",
			needs: []string{PortDiameterInitial},
			eval: func(in inputs) (float64, error) {
				return port.Perimeter(in.get(PortDiameterInitial)), nil
			},
		},
		{
			name: GrainLength, label: "grain length", dim: units.Length, unit: "mm",
			needs: []string{MdotFuel, PortPerimeterInitial},
			eval: func(in inputs) (float64, error) {
				return params.GrainLength(in.get(MdotFuel), rhoFuel, fluxOx, in.get(PortPerimeterInitial)), nil
			},
		},
		{
			name: PortDiameterFinal, label: "final port diameter", dim: units.Length, unit: "mm",
			needs: []string{MassFuel, GrainLength, PortDiameterInitial},
			eval: func(in inputs) (float64, error) {
				d0 := in.get(PortDiameterInitial)
				return math.Sqrt(4*in.get(MassFuel)/(math.Pi*in.get(GrainLength)*rhoFuel) + d0*d0), nil
			},
		},
		{
			name: ChamberArea, label: "combustion chamber area", dim: units.Area, unit: "mm^2",
			needs: []string{PortDiameterFinal},
			eval: func(in inputs) (float64, error) {
				return port.Area(in.get(PortDiameterFinal)), nil
			},
		},
		{
			name: RegressionRateInitial, label: "initial regression rate", dim: units.Velocity, unit: "mm/s",
			needs: []string{GrainLength},
			eval: func(in inputs) (float64, error) {
				return params.Rate(fluxOx, in.get(GrainLength)), nil
			},
		},
		{
			name: CharacteristicVelocity, label: "characteristic velocity", dim: units.Velocity, unit: "m/s",
			eval: func(in inputs) (float64, error) {
				return nozzle.CharacteristicVelocity(gamma, spec.GasConstant.SI(), spec.TemperatureFlame.SI(), spec.CombustionEfficiency), nil
			},
		},
		{
			name: ThroatArea, label: "throat area", dim: units.Area, unit: "mm^2",
			needs: []string{MdotPropellant, CharacteristicVelocity},
			eval: func(in inputs) (float64, error) {
				return nozzle.ThroatArea(in.get(MdotPropellant), in.get(CharacteristicVelocity), pc), nil
			},
		},
		{
			name: ThroatDiameter, label: "throat diameter", dim: units.Length, unit: "mm",
			needs: []string{ThroatArea},
			eval: func(in inputs) (float64, error) {
				return geometry.AreaToDiameter(in.get(ThroatArea)), nil
			},
		},
		{
			name: MachChamber, label: "combustion chamber mach", dim: units.Dimensionless, unit: "1",
			needs: []string{PortAreaInitial, ThroatArea},
			eval: func(in inputs) (float64, error) {
				return nozzle.MachFromAreaRatio(in.get(PortAreaInitial)/in.get(ThroatArea), gamma, opts)
			},
		},
		{
			name: MachExit, label: "exit mach", dim: units.Dimensionless, unit: "1",
			eval: func(in inputs) (float64, error) {
				return nozzle.MachExitFromPressureRatio(pc/pe, gamma), nil
			},
		},
		{
			name: TemperatureExit, label: "exit temperature", dim: units.Temperature, unit: "K",
			needs: []string{MachExit},
			eval: func(in inputs) (float64, error) {
				return nozzle.TemperatureExit(spec.TemperatureFlame.SI(), in.get(MachExit), gamma), nil
			},
		},
		{
			name: ExpansionRatio, label: "expansion ratio", dim: units.Dimensionless, unit: "1",
			needs: []string{MachExit},
			eval: func(in inputs) (float64, error) {
				return nozzle.ExpansionRatio(in.get(MachExit), gamma), nil
			},
		},
		{
			name: ExitArea, label: "exit area", dim: units.Area, unit: "mm^2",
			needs: []string{ExpansionRatio, ThroatArea},
			eval: func(in inputs) (float64, error) {
				return in.get(ExpansionRatio) * in.get(ThroatArea), nil
			},
		},
		{
			name: ExitDiameter, label: "exit diameter", dim: units.Length, unit: "mm",
			needs: []string{ExitArea},
			eval: func(in inputs) (float64, error) {
				return geometry.AreaToDiameter(in.get(ExitArea)), nil
			},
		},
	}
}
