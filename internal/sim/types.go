package sim

import (
	"fmt"
	"math"

	"github.com/san-kum/roar/internal/solver"
)

// State is one snapshot of the burn, in SI units.
type State struct {
	Time              float64 `json:"time"`
	PortDiameter      float64 `json:"port_diameter"`
	GrainLength       float64 `json:"grain_length"`
	FuelMassRemaining float64 `json:"fuel_mass_remaining"`

	MdotOx   float64 `json:"mdot_ox"`
	MdotFuel float64 `json:"mdot_fuel"`
	MdotProp float64 `json:"mdot_prop"`
	FluxOx   float64 `json:"flux_ox"`
	FluxFuel float64 `json:"flux_fuel"`
	FluxProp float64 `json:"flux_prop"`

	RegressionRate float64 `json:"regression_rate"`
	OF             float64 `json:"of"`

	PressureChamber       float64 `json:"pressure_chamber"`
	TemperatureStagnation float64 `json:"temperature_stagnation"`
	MachExit              float64 `json:"mach_exit"`
	PressureExit          float64 `json:"pressure_exit"`
	VelocityExit          float64 `json:"velocity_exit"`
	Thrust                float64 `json:"thrust"`
	Isp                   float64 `json:"isp"`
}

// Columns names the fields returned by Values, in order.
var Columns = []string{
	"time", "port_diameter", "grain_length", "fuel_mass_remaining",
	"mdot_ox", "mdot_fuel", "mdot_prop", "flux_ox", "flux_fuel", "flux_prop",
	"regression_rate", "of", "pressure_chamber", "temperature_stagnation",
	"mach_exit", "pressure_exit", "velocity_exit", "thrust", "isp",
}

func (s State) Values() []float64 {
	return []float64{
		s.Time, s.PortDiameter, s.GrainLength, s.FuelMassRemaining,
		s.MdotOx, s.MdotFuel, s.MdotProp, s.FluxOx, s.FluxFuel, s.FluxProp,
		s.RegressionRate, s.OF, s.PressureChamber, s.TemperatureStagnation,
		s.MachExit, s.PressureExit, s.VelocityExit, s.Thrust, s.Isp,
	}
}

// StateFromValues is the inverse of Values.
func StateFromValues(v []float64) State {
	var s State
	fields := []*float64{
		&s.Time, &s.PortDiameter, &s.GrainLength, &s.FuelMassRemaining,
		&s.MdotOx, &s.MdotFuel, &s.MdotProp, &s.FluxOx, &s.FluxFuel, &s.FluxProp,
		&s.RegressionRate, &s.OF, &s.PressureChamber, &s.TemperatureStagnation,
		&s.MachExit, &s.PressureExit, &s.VelocityExit, &s.Thrust, &s.Isp,
	}
	for i := range fields {
		if i < len(v) {
			*fields[i] = v[i]
		}
	}
	return s
}

func (s State) IsValid() bool {
	for _, v := range s.Values() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

type Status int

const (
	Running Status = iota
	BurnedOut
	StructuralLimit
	BurnTimeReached
	MaxStepsExceeded
	NonConvergent
	Canceled
)

func (s Status) String() string {
	switch s {
	case Running:
		return "Running"
	case BurnedOut:
		return "BurnedOut"
	case StructuralLimit:
		return "StructuralLimit"
	case BurnTimeReached:
		return "BurnTimeReached"
	case MaxStepsExceeded:
		return "MaxStepsExceeded"
	case NonConvergent:
		return "NonConvergent"
	case Canceled:
		return "Canceled"
	default:
		return "Unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	st, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

func ParseStatus(name string) (Status, error) {
	for st := Running; st <= Canceled; st++ {
		if st.String() == name {
			return st, nil
		}
	}
	return Running, fmt.Errorf("sim: unknown status %q", name)
}

// TerminationPolicy bounds a run. Zero fields are disabled, except MaxSteps
// which falls back to DefaultMaxSteps.
type TerminationPolicy struct {
	MaxBurnTime     float64 `yaml:"max_burn_time" json:"max_burn_time"`
	MaxPortDiameter float64 `yaml:"max_port_diameter" json:"max_port_diameter"`
	MinWebThickness float64 `yaml:"min_web_thickness" json:"min_web_thickness"`
	MaxSteps        int     `yaml:"max_steps" json:"max_steps"`
}

const DefaultMaxSteps = 1000000

// DiameterLimit is the port diameter at which the structural policy fires,
// or +Inf when disabled. outer is the grain's outer diameter.
func (p TerminationPolicy) DiameterLimit(outer float64) float64 {
	limit := math.Inf(1)
	if p.MaxPortDiameter > 0 {
		limit = p.MaxPortDiameter
	}
	if p.MinWebThickness > 0 {
		limit = math.Min(limit, outer-2*p.MinWebThickness)
	}
	return limit
}

func (p TerminationPolicy) maxSteps() int {
	if p.MaxSteps <= 0 {
		return DefaultMaxSteps
	}
	return p.MaxSteps
}

type Config struct {
	Dt     float64
	Policy TerminationPolicy
	Solver solver.Options
}

func DefaultConfig() Config {
	return Config{
		Dt:     0.01,
		Policy: TerminationPolicy{MaxSteps: DefaultMaxSteps},
		Solver: solver.DefaultOptions(),
	}
}

type Metric interface {
	Name() string
	Observe(s State)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(s State)
}

// Result is the trajectory of one run and why it stopped.
type Result struct {
	States  []State
	Status  Status
	Steps   int
	Metrics map[string]float64
}

// Final returns the last state of the trajectory.
func (r *Result) Final() State {
	if len(r.States) == 0 {
		return State{}
	}
	return r.States[len(r.States)-1]
}

// Series extracts one column of the trajectory by name.
func (r *Result) Series(column string) []float64 {
	idx := -1
	for i, c := range Columns {
		if c == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	out := make([]float64, len(r.States))
	for i, s := range r.States {
		out[i] = s.Values()[idx]
	}
	return out
}
