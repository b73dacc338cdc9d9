package sim

import (
	"fmt"
	"math"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/san-kum/roar/internal/geometry"
	"github.com/san-kum/roar/internal/integrators"
	"github.com/san-kum/roar/internal/nozzle"
	"github.com/san-kum/roar/internal/regression"
	"github.com/san-kum/roar/internal/sizing"
	"github.com/san-kum/roar/internal/solver"
)

// motor evaluates the instantaneous ballistics of the grain at a given port
// diameter. Oxidizer flow, grain length and nozzle geometry are fixed.
type motor struct {
	port       geometry.Port
	params     regression.Params
	rhoFuel    float64
	length     float64
	outer      float64
	mdotOx     float64
	throatArea float64
	exitArea   float64
	g0         float64
	ambient    float64
	chem       Chemistry
	opts       solver.Options
	logger     log.Logger

	// supersonic exit mach cached per gamma
	machGamma float64
	machExit  float64
}

func newMotor(seed *sizing.Result, chem Chemistry, opts solver.Options, logger log.Logger) (*motor, error) {
	port, err := geometry.Lookup(seed.Spec.PortType)
	if err != nil {
		return nil, err
	}
	return &motor{
		port:       port,
		params:     *seed.Spec.Regression,
		rhoFuel:    seed.Spec.FuelDensity.SI(),
		length:     seed.GrainLength.SI(),
		outer:      seed.PortDiameterFinal.SI(),
		mdotOx:     seed.MdotOxidizer.SI(),
		throatArea: seed.ThroatArea.SI(),
		exitArea:   seed.ExitArea.SI(),
		g0:         seed.Spec.G0.SI(),
		ambient:    seed.Spec.Ambient().SI(),
		chem:       chem,
		opts:       opts,
		logger:     logger,
	}, nil
}

// totalFlux solves G = G_ox + coef * G^n, where coef folds the fuel density,
// the length term of the regression law and the burning-surface to port-area
// ratio. The secant search is seeded at G_ox/2; a bracketed search on
// [G_ox, G_hi] is the single bounded retry.
func (m *motor) totalFlux(fluxOx, coef float64) (float64, error) {
	n := m.params.N
	f := func(g float64) float64 { return fluxOx + coef*math.Pow(g, n) - g }

	g, err := solver.Secant(f, fluxOx/2, fluxOx, m.opts)
	if err == nil && g >= fluxOx {
		return g, nil
	}
	level.Debug(m.logger).Log("subsys", "sim", "msg", "secant flux solve failed, retrying bracketed", "err", err, "root", g)

	hi := 2 * fluxOx
	for i := 0; i < 60 && f(hi) > 0; i++ {
		hi *= 2
	}
	g, bErr := solver.Brent(f, fluxOx, hi, m.opts)
	if bErr != nil {
		return 0, fmt.Errorf("flux balance at G_ox=%g: %w", fluxOx, bErr)
	}
	return g, nil
}

func (m *motor) fuelRemaining(d float64) float64 {
	return math.Max(0, m.rhoFuel*m.length*(m.port.Area(m.outer)-m.port.Area(d)))
}

func (m *motor) exitMach(gamma float64) (float64, error) {
	if gamma == m.machGamma && m.machExit > 0 {
		return m.machExit, nil
	}
	me, err := nozzle.MachFromAreaRatioSupersonic(m.exitArea/m.throatArea, gamma, m.opts)
	if err != nil {
		return 0, err
	}
	m.machGamma, m.machExit = gamma, me
	return me, nil
}

// evaluate derives the full state at time t and port diameter d.
func (m *motor) evaluate(t, d float64) (State, error) {
	area := m.port.Area(d)
	perimeter := m.port.Perimeter(d)
	surface := perimeter * m.length

	fluxOx := m.mdotOx / area
	coef := m.rhoFuel * m.params.A * math.Pow(m.length, m.params.M) * surface / area
	flux, err := m.totalFlux(fluxOx, coef)
	if err != nil {
		return State{}, err
	}

	rdot := m.params.Rate(flux, m.length)
	mdotFuel := rdot * m.rhoFuel * surface
	mdotProp := mdotFuel + m.mdotOx
	of := m.mdotOx / mdotFuel

	gas := m.chem.Conditions(of)
	pc := mdotProp * gas.CharacteristicVelocity / m.throatArea

	me, err := m.exitMach(gas.Gamma)
	if err != nil {
		return State{}, err
	}
	pe := pc / nozzle.PressureRatio(me, gas.Gamma)
	te := nozzle.TemperatureExit(gas.Temperature, me, gas.Gamma)
	ve := nozzle.ExitVelocity(me, gas.Gamma, gas.GasConstant, te)
	thrust := nozzle.Thrust(mdotProp, ve, pe, m.ambient, m.exitArea)

	s := State{
		Time:                  t,
		PortDiameter:          d,
		GrainLength:           m.length,
		FuelMassRemaining:     m.fuelRemaining(d),
		MdotOx:                m.mdotOx,
		MdotFuel:              mdotFuel,
		MdotProp:              mdotProp,
		FluxOx:                fluxOx,
		FluxFuel:              flux - fluxOx,
		FluxProp:              flux,
		RegressionRate:        rdot,
		OF:                    of,
		PressureChamber:       pc,
		TemperatureStagnation: gas.Temperature,
		MachExit:              me,
		PressureExit:          pe,
		VelocityExit:          ve,
		Thrust:                thrust,
		Isp:                   thrust / (mdotProp * m.g0),
	}
	if !s.IsValid() || mdotFuel <= 0 || pc <= 0 {
		return State{}, fmt.Errorf("%w at d=%g m: %+v", ErrInvalidState, d, s)
	}
	return s, nil
}

// grain adapts the motor to the integrators: x = [port diameter],
// dx/dt = 2 * rdot. Past the outer diameter there is no fuel left to regress.
type grain struct {
	m    *motor
	last State
	hit  bool
}

func (g *grain) Derive(x integrators.State, t float64) (integrators.State, error) {
	d := x[0]
	if d >= g.m.outer {
		return integrators.State{0}, nil
	}
	var s State
	if g.hit && g.last.PortDiameter == d {
		s = g.last
	} else {
		var err error
		s, err = g.m.evaluate(t, d)
		if err != nil {
			return nil, err
		}
	}
	return integrators.State{2 * s.RegressionRate}, nil
}

// remember lets the next Derive at the same diameter reuse a state the run loop already solved.
func (g *grain) remember(s State) {
	g.last, g.hit = s, true
}
