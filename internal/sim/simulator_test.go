package sim

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/san-kum/roar/internal/integrators"
	"github.com/san-kum/roar/internal/sizing"
	"github.com/san-kum/roar/internal/solver"
)

func referenceSeed(t testing.TB) *sizing.Result {
	t.Helper()
	seed, err := sizing.Size(sizing.Reference())
	if err != nil {
		t.Fatalf("sizing failed: %v", err)
	}
	return seed
}

type countingObserver struct{ n int }

func (c *countingObserver) OnStep(State) { c.n++ }

func TestSimulatorInitialState(t *testing.T) {
	seed := referenceSeed(t)
	cfg := DefaultConfig()
	cfg.Policy.MaxSteps = 1

	res, err := New(seed).Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	s0 := res.States[0]
	if s0.Time != 0 {
		t.Errorf("expected t=0, got %f", s0.Time)
	}
	if math.Abs(s0.PortDiameter-seed.PortDiameterInitial.SI()) > 1e-12 {
		t.Errorf("expected initial diameter %g, got %g", seed.PortDiameterInitial.SI(), s0.PortDiameter)
	}
	if math.Abs(s0.FluxProp-414.7) > 5 {
		t.Errorf("expected initial total flux ~414.7, got %f", s0.FluxProp)
	}
	if math.Abs(s0.RegressionRate-9.06e-4) > 0.1e-4 {
		t.Errorf("expected initial regression rate ~9.06e-4, got %g", s0.RegressionRate)
	}

	// flux balance holds at the solved point
	p := seed.Spec.Regression
	rho := seed.Spec.FuelDensity.SI()
	surface := math.Pi * s0.PortDiameter * s0.GrainLength
	area := math.Pi / 4 * s0.PortDiameter * s0.PortDiameter
	rhs := s0.FluxOx + rho*p.A*math.Pow(s0.GrainLength, p.M)*surface/area*math.Pow(s0.FluxProp, p.N)
	if math.Abs(rhs-s0.FluxProp) > 1e-6*s0.FluxProp {
		t.Errorf("flux balance residual %g", rhs-s0.FluxProp)
	}
	if math.Abs(s0.MdotProp-(s0.MdotOx+s0.MdotFuel)) > 1e-12 {
		t.Error("propellant flow is not the sum of oxidizer and fuel flow")
	}
	if s0.Thrust <= 0 || s0.Isp <= 0 || s0.PressureChamber <= 0 {
		t.Errorf("expected positive performance, got %+v", s0)
	}
}

func TestSimulatorTimeAndDiameter(t *testing.T) {
	seed := referenceSeed(t)
	cfg := DefaultConfig()
	cfg.Dt = 0.05
	cfg.Policy.MaxBurnTime = 2

	res, err := New(seed).Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	for i := 1; i < len(res.States); i++ {
		prev, cur := res.States[i-1], res.States[i]
		if math.Abs(cur.Time-float64(i)*cfg.Dt) > 1e-12 {
			t.Fatalf("step %d: expected t=%f, got %f", i, float64(i)*cfg.Dt, cur.Time)
		}
		if cur.PortDiameter < prev.PortDiameter {
			t.Fatalf("step %d: port diameter shrank from %g to %g", i, prev.PortDiameter, cur.PortDiameter)
		}
		if cur.FuelMassRemaining > prev.FuelMassRemaining {
			t.Fatalf("step %d: fuel mass grew", i)
		}
	}
}

func TestSimulatorMassConservation(t *testing.T) {
	seed := referenceSeed(t)
	cfg := DefaultConfig()
	cfg.Policy.MaxPortDiameter = 0.050

	res, err := New(seed).Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	var burned float64
	for i := 0; i < len(res.States)-1; i++ {
		burned += res.States[i].MdotFuel * cfg.Dt
	}
	lost := res.States[0].FuelMassRemaining - res.Final().FuelMassRemaining
	if math.Abs(burned-lost) > 0.01*lost {
		t.Errorf("integrated fuel flow %f kg does not match grain mass loss %f kg", burned, lost)
	}
}

func TestSimulatorStructuralLimit(t *testing.T) {
	seed := referenceSeed(t)
	cfg := DefaultConfig()
	cfg.Policy.MaxPortDiameter = 0.050

	res, err := New(seed).Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if res.Status != StructuralLimit {
		t.Fatalf("expected StructuralLimit, got %v", res.Status)
	}
	final := res.Final()
	if final.PortDiameter < 0.050 {
		t.Errorf("expected final diameter >= 50 mm, got %g", final.PortDiameter)
	}
	if final.Time >= seed.BurnTime.SI() {
		t.Errorf("expected termination before design burn time, got t=%f", final.Time)
	}
	if prev := res.States[len(res.States)-2]; prev.PortDiameter >= 0.050 {
		t.Error("run continued past the structural limit")
	}
}

func TestSimulatorMinWebThickness(t *testing.T) {
	seed := referenceSeed(t)
	cfg := DefaultConfig()
	cfg.Policy.MinWebThickness = 0.002

	res, err := New(seed).Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if res.Status != StructuralLimit {
		t.Fatalf("expected StructuralLimit, got %v", res.Status)
	}
	limit := seed.PortDiameterFinal.SI() - 0.004
	if res.Final().PortDiameter < limit {
		t.Errorf("expected final diameter >= %g, got %g", limit, res.Final().PortDiameter)
	}
}

func TestSimulatorBurnout(t *testing.T) {
	seed := referenceSeed(t)

	res, err := New(seed).Run(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if res.Status != BurnedOut {
		t.Fatalf("expected BurnedOut, got %v", res.Status)
	}
	final := res.Final()
	if final.PortDiameter != seed.PortDiameterFinal.SI() {
		t.Errorf("expected diameter clamped to %g, got %g", seed.PortDiameterFinal.SI(), final.PortDiameter)
	}
	if final.FuelMassRemaining != 0 {
		t.Errorf("expected no fuel left, got %g", final.FuelMassRemaining)
	}
	if final.Time < 5 || final.Time > 12 {
		t.Errorf("expected burnout within a few seconds of design burn time, got %f", final.Time)
	}
}

func TestSimulatorBurnoutFinalInterval(t *testing.T) {
	seed := referenceSeed(t)
	cfg := DefaultConfig()

	res, err := New(seed).Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	n := len(res.States)
	prev, final := res.States[n-2], res.States[n-1]

	span := final.Time - prev.Time
	if span <= 0 || span > cfg.Dt*(1+1e-9) {
		t.Fatalf("burnout interval %g outside (0, dt]", span)
	}
	// the fuel flowed over the shortened step is what the grain had left
	flowed := prev.MdotFuel * span
	if math.Abs(flowed-prev.FuelMassRemaining) > 0.05*prev.FuelMassRemaining {
		t.Errorf("last step flowed %g kg of fuel, grain had %g kg left", flowed, prev.FuelMassRemaining)
	}

	var burned float64
	for i := 0; i < n-1; i++ {
		burned += res.States[i].MdotFuel * (res.States[i+1].Time - res.States[i].Time)
	}
	if total := res.States[0].FuelMassRemaining; math.Abs(burned-total) > 0.01*total {
		t.Errorf("integrated fuel flow %f kg, grain held %f kg", burned, total)
	}
}

func TestSimulatorBurnTimeReached(t *testing.T) {
	seed := referenceSeed(t)
	cfg := DefaultConfig()
	cfg.Policy.MaxBurnTime = 1

	res, err := New(seed).Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if res.Status != BurnTimeReached {
		t.Fatalf("expected BurnTimeReached, got %v", res.Status)
	}
	if len(res.States) != 101 {
		t.Errorf("expected 101 states, got %d", len(res.States))
	}
	if math.Abs(res.Final().Time-1) > 1e-9 {
		t.Errorf("expected final t=1, got %f", res.Final().Time)
	}
}

func TestSimulatorMaxSteps(t *testing.T) {
	seed := referenceSeed(t)
	cfg := DefaultConfig()
	cfg.Policy.MaxSteps = 10

	obs := &countingObserver{}
	s := New(seed)
	s.AddObserver(obs)
	res, err := s.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if res.Status != MaxStepsExceeded {
		t.Fatalf("expected MaxStepsExceeded, got %v", res.Status)
	}
	if res.Steps != 10 || len(res.States) != 11 {
		t.Errorf("expected 10 steps and 11 states, got %d and %d", res.Steps, len(res.States))
	}
	if obs.n != len(res.States) {
		t.Errorf("observer saw %d states, trajectory has %d", obs.n, len(res.States))
	}
}

func TestSimulatorNonConvergent(t *testing.T) {
	seed := referenceSeed(t)
	cfg := DefaultConfig()
	cfg.Solver = solver.Options{Tol: 1e-14, MaxIter: 1}

	res, err := New(seed).Run(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if res == nil || res.Status != NonConvergent {
		t.Fatalf("expected partial result with NonConvergent, got %+v", res)
	}
	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("expected *StepError, got %T", err)
	}
	if !errors.Is(err, solver.ErrNonConvergent) {
		t.Errorf("expected solver.ErrNonConvergent in chain, got %v", err)
	}
}

func TestSimulatorInvalidConfig(t *testing.T) {
	seed := referenceSeed(t)

	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero dt", Config{Dt: 0}},
		{"negative dt", Config{Dt: -0.1}},
		{"nan dt", Config{Dt: math.NaN()}},
		{"negative max time", Config{Dt: 0.01, Policy: TerminationPolicy{MaxBurnTime: -1}}},
		{"negative web", Config{Dt: 0.01, Policy: TerminationPolicy{MinWebThickness: -1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(seed).Run(context.Background(), tt.cfg)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestSimulatorNoSeed(t *testing.T) {
	_, err := New(nil).Run(context.Background(), DefaultConfig())
	if !errors.Is(err, ErrNoSeed) {
		t.Errorf("expected ErrNoSeed, got %v", err)
	}
}

func TestSimulatorCanceled(t *testing.T) {
	seed := referenceSeed(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New(seed).Run(ctx, DefaultConfig())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if res.Status != Canceled || len(res.States) != 1 {
		t.Errorf("expected Canceled with only the initial state, got %v and %d states", res.Status, len(res.States))
	}
}

func TestSimulatorRK4MatchesEuler(t *testing.T) {
	seed := referenceSeed(t)
	cfg := DefaultConfig()
	cfg.Dt = 0.02

	euler, err := New(seed).Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("euler run failed: %v", err)
	}
	rk4, err := New(seed, WithIntegrator(integrators.NewRK4())).Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("rk4 run failed: %v", err)
	}
	if rk4.Status != BurnedOut {
		t.Fatalf("expected BurnedOut, got %v", rk4.Status)
	}
	te, tr := euler.Final().Time, rk4.Final().Time
	if math.Abs(te-tr) > 0.02*te {
		t.Errorf("burnout times diverge: euler %f, rk4 %f", te, tr)
	}
}

func TestSimulatorTableChemistry(t *testing.T) {
	seed := referenceSeed(t)
	design := DesignChemistry(seed)
	low, high := Combustion(design), Combustion(design)
	low.CharacteristicVelocity *= 0.9
	high.CharacteristicVelocity *= 1.1

	chem, err := NewTableChemistry([]TablePoint{{OF: 8, Combustion: high}, {OF: 4, Combustion: low}})
	if err != nil {
		t.Fatalf("table failed: %v", err)
	}
	cfg := DefaultConfig()
	cfg.Policy.MaxSteps = 1

	fixed, err := New(seed).Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("fixed run failed: %v", err)
	}
	tabled, err := New(seed, WithChemistry(chem)).Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("table run failed: %v", err)
	}

	f0, t0 := fixed.States[0], tabled.States[0]
	if f0.OF != t0.OF {
		t.Errorf("chemistry must not change the flux solve: O/F %f vs %f", f0.OF, t0.OF)
	}
	want := chem.Conditions(t0.OF).CharacteristicVelocity / design.CharacteristicVelocity
	if got := t0.PressureChamber / f0.PressureChamber; math.Abs(got-want) > 1e-9 {
		t.Errorf("expected pressure ratio %f, got %f", want, got)
	}
}

func TestTableChemistryInterpolation(t *testing.T) {
	chem, err := NewTableChemistry([]TablePoint{
		{OF: 2, Combustion: Combustion{CharacteristicVelocity: 1000, Temperature: 2000, Gamma: 1.2, GasConstant: 300}},
		{OF: 6, Combustion: Combustion{CharacteristicVelocity: 1400, Temperature: 3000, Gamma: 1.3, GasConstant: 340}},
	})
	if err != nil {
		t.Fatalf("table failed: %v", err)
	}

	mid := chem.Conditions(4)
	if math.Abs(mid.CharacteristicVelocity-1200) > 1e-9 || math.Abs(mid.Gamma-1.25) > 1e-12 {
		t.Errorf("unexpected midpoint %+v", mid)
	}
	if chem.Conditions(0).CharacteristicVelocity != 1000 {
		t.Error("expected clamp below table")
	}
	if chem.Conditions(10).CharacteristicVelocity != 1400 {
		t.Error("expected clamp above table")
	}

	if _, err := NewTableChemistry(nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for empty table, got %v", err)
	}
	bad := []TablePoint{{OF: 2, Combustion: Combustion{CharacteristicVelocity: 1000, Temperature: 2000, Gamma: 1, GasConstant: 300}}}
	if _, err := NewTableChemistry(bad); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for gamma 1, got %v", err)
	}
}

func TestSimulatorConcurrentRuns(t *testing.T) {
	seed := referenceSeed(t)
	cfg := DefaultConfig()
	cfg.Policy.MaxBurnTime = 1

	results := make([]*Result, 4)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := New(seed).Run(context.Background(), cfg)
			if err != nil {
				t.Errorf("run %d failed: %v", i, err)
				return
			}
			results[i] = res
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(results); i++ {
		if results[i] == nil || results[0] == nil {
			continue
		}
		if results[i].Final() != results[0].Final() {
			t.Errorf("run %d diverged from run 0", i)
		}
	}
}

func TestResultSeries(t *testing.T) {
	r := &Result{States: []State{{Time: 0, Thrust: 1}, {Time: 1, Thrust: 2}}}
	got := r.Series("thrust")
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("unexpected series %v", got)
	}
	if r.Series("nope") != nil {
		t.Error("expected nil for unknown column")
	}
	if StateFromValues(r.States[1].Values()) != r.States[1] {
		t.Error("values round trip failed")
	}
}

func TestDiameterLimit(t *testing.T) {
	tests := []struct {
		name   string
		policy TerminationPolicy
		want   float64
	}{
		{"disabled", TerminationPolicy{}, math.Inf(1)},
		{"max diameter", TerminationPolicy{MaxPortDiameter: 0.05}, 0.05},
		{"web", TerminationPolicy{MinWebThickness: 0.01}, 0.04},
		{"tighter of both", TerminationPolicy{MaxPortDiameter: 0.045, MinWebThickness: 0.01}, 0.04},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.DiameterLimit(0.06); math.Abs(got-tt.want) > 1e-12 && got != tt.want {
				t.Errorf("expected %g, got %g", tt.want, got)
			}
		})
	}
}

func TestStatusText(t *testing.T) {
	for st := Running; st <= Canceled; st++ {
		text, err := st.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var back Status
		if err := back.UnmarshalText(text); err != nil || back != st {
			t.Errorf("%v: round trip gave %v, %v", st, back, err)
		}
	}
	if _, err := ParseStatus("Exploded"); err == nil {
		t.Error("expected error for unknown status")
	}
}
