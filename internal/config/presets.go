package config

import (
	"sort"

	"github.com/san-kum/roar/internal/units"
)

// Presets build fresh configs so callers may modify what they get back.
var Presets = map[string]func() *Config{
	"roar": DefaultConfig,
	"sprint": func() *Config {
		cfg := DefaultConfig()
		cfg.Name = "sprint"
		cfg.Engine.TotalImpulse = units.New(9000, "N*s")
		cfg.Engine.ThrustAverage = units.New(2000, "N")
		cfg.Engine.ThrustInitial = units.New(2000, "N")
		return cfg
	},
	"endurance": func() *Config {
		cfg := DefaultConfig()
		cfg.Name = "endurance"
		cfg.Engine.TotalImpulse = units.New(20, "kN*s")
		cfg.Engine.ThrustAverage = units.New(1000, "N")
		cfg.Engine.ThrustInitial = units.New(1000, "N")
		cfg.Simulation.Dt = 0.02
		return cfg
	},
	"capped": func() *Config {
		cfg := DefaultConfig()
		cfg.Name = "capped"
		cfg.Simulation.Integrator = "rk4"
		cfg.Simulation.Termination.MaxPortDiameter = 0.050
		cfg.Simulation.Termination.MinWebThickness = 0.002
		return cfg
	},
}

func GetPreset(name string) *Config {
	build, ok := Presets[name]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
