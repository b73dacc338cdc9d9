package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/roar/internal/sizing"
	"github.com/san-kum/roar/internal/units"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Name != "roar" {
		t.Errorf("expected name roar, got %s", cfg.Name)
	}
	if cfg.Simulation.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if err := cfg.DesignSpec().Validate(); err != nil {
		t.Errorf("default engine should validate: %v", err)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("sprint")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if got := cfg.Engine.TotalImpulse.SI(); got != 9000 {
		t.Errorf("expected total impulse 9000, got %f", got)
	}

	cfg.Engine.OFDesign = 1
	if GetPreset("sprint").Engine.OFDesign == 1 {
		t.Error("presets must not share state")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets()
	if len(presets) != len(Presets) {
		t.Fatalf("expected %d presets, got %d", len(Presets), len(presets))
	}
	for i := 1; i < len(presets); i++ {
		if presets[i-1] > presets[i] {
			t.Errorf("presets not sorted: %v", presets)
		}
	}
}

func TestPresetsSize(t *testing.T) {
	for _, name := range ListPresets() {
		t.Run(name, func(t *testing.T) {
			cfg := GetPreset(name)
			if _, err := sizing.Size(cfg.DesignSpec()); err != nil {
				t.Errorf("preset %s does not size: %v", name, err)
			}
			if _, err := cfg.Integrator(); err != nil {
				t.Errorf("preset %s: %v", name, err)
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	cfg := GetPreset("capped")

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "pressure_chamber: 30 bar") {
		t.Errorf("expected quantity written with its unit, got:\n%s", data)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Simulation.Termination.MaxPortDiameter != 0.050 {
		t.Errorf("expected max port diameter 0.05, got %f", loaded.Simulation.Termination.MaxPortDiameter)
	}
	if loaded.Engine.PressureChamber.SI() != cfg.Engine.PressureChamber.SI() {
		t.Error("chamber pressure did not round trip")
	}
	if loaded.Engine.Regression != cfg.Engine.Regression {
		t.Errorf("regression did not round trip: %+v", loaded.Engine.Regression)
	}
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	body := `name: hot
engine:
  pressure_chamber: 435 psi
  total_impulse: 15 kN*s
simulation:
  integrator: rk4
  dt: 0.005
  max_burn_time: 4
  chemistry:
    - of: 4
      cstar: 1400
      temperature: 3000
      gamma: 1.25
      gas_constant: 290
    - of: 8
      cstar: 1500
      temperature: 3200
      gamma: 1.3
      gas_constant: 300
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if got := cfg.Engine.PressureChamber.MustIn("bar").Value; got < 29.9 || got > 30.1 {
		t.Errorf("expected ~30 bar, got %f", got)
	}
	if cfg.Engine.Gamma != sizing.Reference().Gamma {
		t.Error("unset fields should keep defaults")
	}
	sc := cfg.SimConfig()
	if sc.Dt != 0.005 || sc.Policy.MaxBurnTime != 4 {
		t.Errorf("unexpected sim config %+v", sc)
	}
	if sc.Solver.MaxIter <= 0 {
		t.Error("expected default solver options")
	}
	chem, err := cfg.Chemistry()
	if err != nil || chem == nil {
		t.Fatalf("expected chemistry table, got %v, %v", chem, err)
	}
	if c := chem.Conditions(6); c.CharacteristicVelocity != 1450 {
		t.Errorf("expected interpolated c* 1450, got %f", c.CharacteristicVelocity)
	}
}

func TestLoadOntoPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	if err := os.WriteFile(path, []byte("simulation:\n  dt: 0.002\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadOnto(path, GetPreset("capped"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Simulation.Dt != 0.002 {
		t.Errorf("expected file dt, got %f", cfg.Simulation.Dt)
	}
	if cfg.Simulation.Integrator != "rk4" || cfg.Simulation.Termination.MaxPortDiameter != 0.050 {
		t.Errorf("expected preset values kept, got %+v", cfg.Simulation)
	}
}

func TestLoadDimensionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	if err := os.WriteFile(path, []byte("engine:\n  pressure_chamber: 30 kg\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	err = cfg.DesignSpec().Validate()
	if !errors.Is(err, units.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestLoadBadUnit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	if err := os.WriteFile(path, []byte("engine:\n  pressure_chamber: 30 furlongs\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, units.ErrUnknownUnit) {
		t.Errorf("expected ErrUnknownUnit, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
