package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/roar/internal/integrators"
	"github.com/san-kum/roar/internal/regression"
	"github.com/san-kum/roar/internal/sim"
	"github.com/san-kum/roar/internal/sizing"
	"github.com/san-kum/roar/internal/solver"
	"github.com/san-kum/roar/internal/units"
)

const (
	DefaultDt         = 0.01
	DefaultIntegrator = "euler"
)

type Config struct {
	Name       string           `yaml:"name"`
	Engine     EngineConfig     `yaml:"engine"`
	Simulation SimulationConfig `yaml:"simulation"`
}

// EngineConfig is the file form of sizing.DesignSpec. Quantities are written
// as "<value> <unit>" strings.
type EngineConfig struct {
	Fuel     string `yaml:"fuel"`
	Oxidizer string `yaml:"oxidizer"`
	PortType string `yaml:"port_type"`

	TotalImpulse  units.Quantity `yaml:"total_impulse"`
	ThrustAverage units.Quantity `yaml:"thrust_average"`
	ThrustInitial units.Quantity `yaml:"thrust_initial"`

	OFDesign   float64        `yaml:"of_design"`
	OFInitial  float64        `yaml:"of_initial"`
	IspDesign  units.Quantity `yaml:"isp_design"`
	IspInitial units.Quantity `yaml:"isp_initial"`
	UllageOx   float64        `yaml:"ullage_ox"`
	UllageFuel float64        `yaml:"ullage_fuel"`

	PressureChamber           units.Quantity `yaml:"pressure_chamber"`
	InjectorPressureDropRatio float64        `yaml:"injector_pressure_drop_ratio"`
	InjectorHeadLossCoeff     float64        `yaml:"injector_head_loss_coeff"`
	InjectorOrifices          int            `yaml:"injector_orifices"`

	OxidizerDensity  units.Quantity    `yaml:"oxidizer_density"`
	OxidizerMassFlux units.Quantity    `yaml:"oxidizer_mass_flux"`
	FuelDensity      units.Quantity    `yaml:"fuel_density"`
	Regression       regression.Params `yaml:"regression"`

	TemperatureFlame     units.Quantity `yaml:"temperature_flame"`
	Gamma                float64        `yaml:"gamma"`
	GasConstant          units.Quantity `yaml:"gas_constant"`
	CombustionEfficiency float64        `yaml:"combustion_efficiency"`
	PressureExit         units.Quantity `yaml:"pressure_exit"`
	PressureAmbient      units.Quantity `yaml:"pressure_ambient,omitempty"`
	G0                   units.Quantity `yaml:"g0"`
}

type SimulationConfig struct {
	Integrator    string                `yaml:"integrator"`
	Dt            float64               `yaml:"dt"`
	Termination   sim.TerminationPolicy `yaml:",inline"`
	SolverTol     float64               `yaml:"solver_tol,omitempty"`
	SolverMaxIter int                   `yaml:"solver_max_iter,omitempty"`
	Chemistry     []sim.TablePoint      `yaml:"chemistry,omitempty"`
}

// DefaultConfig is the reference wax/nitrous engine.
func DefaultConfig() *Config {
	return &Config{
		Name:   "roar",
		Engine: FromDesignSpec(sizing.Reference()),
		Simulation: SimulationConfig{
			Integrator: DefaultIntegrator,
			Dt:         DefaultDt,
		},
	}
}

func Load(path string) (*Config, error) {
	return LoadOnto(path, DefaultConfig())
}

// LoadOnto reads path over base, so keys the file omits keep base's values.
func LoadOnto(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, base); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return base, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func FromDesignSpec(s sizing.DesignSpec) EngineConfig {
	e := EngineConfig{
		Fuel:                      s.Fuel,
		Oxidizer:                  s.Oxidizer,
		PortType:                  s.PortType,
		TotalImpulse:              s.TotalImpulse,
		ThrustAverage:             s.ThrustAverage,
		ThrustInitial:             s.ThrustInitial,
		OFDesign:                  s.OFDesign,
		OFInitial:                 s.OFInitial,
		IspDesign:                 s.IspDesign,
		IspInitial:                s.IspInitial,
		UllageOx:                  s.UllageOx,
		UllageFuel:                s.UllageFuel,
		PressureChamber:           s.PressureChamber,
		InjectorPressureDropRatio: s.InjectorPressureDropRatio,
		InjectorHeadLossCoeff:     s.InjectorHeadLossCoeff,
		InjectorOrifices:          s.InjectorOrifices,
		OxidizerDensity:           s.OxidizerDensity,
		OxidizerMassFlux:          s.OxidizerMassFlux,
		FuelDensity:               s.FuelDensity,
		TemperatureFlame:          s.TemperatureFlame,
		Gamma:                     s.Gamma,
		GasConstant:               s.GasConstant,
		CombustionEfficiency:      s.CombustionEfficiency,
		PressureExit:              s.PressureExit,
		PressureAmbient:           s.PressureAmbient,
		G0:                        s.G0,
	}
	if s.Regression != nil {
		e.Regression = *s.Regression
	}
	return e
}

// DesignSpec converts the engine block. The result is not validated; sizing
// does that.
func (c *Config) DesignSpec() sizing.DesignSpec {
	e := c.Engine
	params := e.Regression
	return sizing.DesignSpec{
		Fuel:                      e.Fuel,
		Oxidizer:                  e.Oxidizer,
		PortType:                  e.PortType,
		TotalImpulse:              e.TotalImpulse,
		ThrustAverage:             e.ThrustAverage,
		ThrustInitial:             e.ThrustInitial,
		OFDesign:                  e.OFDesign,
		OFInitial:                 e.OFInitial,
		IspDesign:                 e.IspDesign,
		IspInitial:                e.IspInitial,
		UllageOx:                  e.UllageOx,
		UllageFuel:                e.UllageFuel,
		PressureChamber:           e.PressureChamber,
		InjectorPressureDropRatio: e.InjectorPressureDropRatio,
		InjectorHeadLossCoeff:     e.InjectorHeadLossCoeff,
		InjectorOrifices:          e.InjectorOrifices,
		OxidizerDensity:           e.OxidizerDensity,
		OxidizerMassFlux:          e.OxidizerMassFlux,
		FuelDensity:               e.FuelDensity,
		Regression:                &params,
		TemperatureFlame:          e.TemperatureFlame,
		Gamma:                     e.Gamma,
		GasConstant:               e.GasConstant,
		CombustionEfficiency:      e.CombustionEfficiency,
		PressureExit:              e.PressureExit,
		PressureAmbient:           e.PressureAmbient,
		G0:                        e.G0,
	}
}

func (c *Config) SimConfig() sim.Config {
	cfg := sim.DefaultConfig()
	if c.Simulation.Dt != 0 {
		cfg.Dt = c.Simulation.Dt
	}
	cfg.Policy = c.Simulation.Termination
	cfg.Solver = solver.Options{Tol: c.Simulation.SolverTol, MaxIter: c.Simulation.SolverMaxIter}
	if cfg.Solver.Tol == 0 && cfg.Solver.MaxIter == 0 {
		cfg.Solver = solver.DefaultOptions()
	}
	return cfg
}

func (c *Config) Integrator() (integrators.Integrator, error) {
	return integrators.Lookup(c.Simulation.Integrator)
}

// Chemistry returns the O/F table when one is configured, nil otherwise.
func (c *Config) Chemistry() (sim.Chemistry, error) {
	if len(c.Simulation.Chemistry) == 0 {
		return nil, nil
	}
	table, err := sim.NewTableChemistry(c.Simulation.Chemistry)
	if err != nil {
		return nil, err
	}
	return table, nil
}
