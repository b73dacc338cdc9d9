package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/san-kum/roar/internal/integrators"
	"github.com/san-kum/roar/internal/sizing"
)

// Simulator marches a sized engine through its burn. It holds no run state,
// so every Run starts fresh from the seed.
type Simulator struct {
	seed       *sizing.Result
	integrator integrators.Integrator
	chemistry  Chemistry
	logger     log.Logger
	metrics    []Metric
	observers  []Observer
}

type Option func(*Simulator)

func WithIntegrator(i integrators.Integrator) Option {
	return func(s *Simulator) { s.integrator = i }
}

func WithChemistry(c Chemistry) Option {
	return func(s *Simulator) { s.chemistry = c }
}

func WithLogger(l log.Logger) Option {
	return func(s *Simulator) { s.logger = l }
}

func New(seed *sizing.Result, opts ...Option) *Simulator {
	s := &Simulator{
		seed:       seed,
		integrator: integrators.NewEuler(),
		logger:     log.NewNopLogger(),
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.chemistry == nil && seed != nil {
		s.chemistry = DesignChemistry(seed)
	}
	return s
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Run produces the trajectory. State k sits at k*dt, except a burnout state,
// which sits at the instant the port reaches the outer diameter. A failed
// step returns the partial trajectory with status NonConvergent together with
// a *StepError; cancellation returns the partial trajectory with ctx.Err().
func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if s.seed == nil {
		return nil, ErrNoSeed
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	m, err := newMotor(s.seed, s.chemistry, cfg.Solver, s.logger)
	if err != nil {
		return nil, err
	}
	sys := &grain{m: m}

	limit := cfg.Policy.DiameterLimit(m.outer)
	maxSteps := cfg.Policy.maxSteps()
	dt := cfg.Dt

	result := &Result{
		States:  make([]State, 0, estimateSteps(s.seed, dt, maxSteps)),
		Status:  Running,
		Metrics: make(map[string]float64),
	}
	for _, mt := range s.metrics {
		mt.Reset()
	}

	level.Info(s.logger).Log("subsys", "sim", "msg", "start", "integrator", s.integrator.Name(),
		"dt", dt, "d0", s.seed.PortDiameterInitial.SI(), "outer", m.outer, "limit", limit)

	fail := func(step int, t float64, err error) (*Result, error) {
		result.Status = NonConvergent
		s.finish(result)
		level.Error(s.logger).Log("subsys", "sim", "msg", "step failed", "step", step, "t", t, "err", err)
		return result, &StepError{Step: step, Time: t, Wrapped: err}
	}

	d := s.seed.PortDiameterInitial.SI()
	state, err := m.evaluate(0, d)
	if err != nil {
		return fail(0, 0, err)
	}
	s.record(result, state)
	sys.remember(state)

	for step := 1; result.Status == Running; step++ {
		if st, done := terminated(state, m.outer, limit, cfg.Policy, dt); done {
			result.Status = st
			break
		}
		if result.Steps >= maxSteps {
			result.Status = MaxStepsExceeded
			break
		}

		select {
		case <-ctx.Done():
			result.Status = Canceled
			s.finish(result)
			return result, ctx.Err()
		default:
		}

		x, err := s.integrator.Step(sys, integrators.State{d}, state.Time, dt)
		t := float64(step) * dt
		if err != nil {
			return fail(step, t, err)
		}

		next := math.Max(x[0], d)
		if next >= m.outer {
			// the wall is reached partway through the step
			t = state.Time + dt*(m.outer-d)/(next-d)
			next = m.outer
		}
		d = next

		state, err = m.evaluate(t, d)
		if err != nil {
			return fail(step, t, err)
		}
		s.record(result, state)
		sys.remember(state)
		result.Steps++
	}

	s.finish(result)
	final := result.Final()
	level.Info(s.logger).Log("subsys", "sim", "msg", "terminated", "status", result.Status,
		"steps", result.Steps, "t", final.Time, "d", final.PortDiameter)
	return result, nil
}

func (s *Simulator) record(r *Result, st State) {
	r.States = append(r.States, st)
	for _, m := range s.metrics {
		m.Observe(st)
	}
	for _, o := range s.observers {
		o.OnStep(st)
	}
}

func (s *Simulator) finish(r *Result) {
	for _, m := range s.metrics {
		r.Metrics[m.Name()] = m.Value()
	}
}

// terminated evaluates the termination predicates in priority order.
func terminated(st State, outer, limit float64, p TerminationPolicy, dt float64) (Status, bool) {
	switch {
	case st.PortDiameter >= outer:
		return BurnedOut, true
	case st.PortDiameter >= limit:
		return StructuralLimit, true
	case p.MaxBurnTime > 0 && st.Time >= p.MaxBurnTime-dt*1e-9:
		return BurnTimeReached, true
	}
	return Running, false
}

func validateConfig(cfg Config) error {
	if !(cfg.Dt > 0) || math.IsInf(cfg.Dt, 0) {
		return fmt.Errorf("%w: dt must be positive, got %f", ErrInvalidConfig, cfg.Dt)
	}
	p := cfg.Policy
	if p.MaxBurnTime < 0 || p.MaxPortDiameter < 0 || p.MinWebThickness < 0 || p.MaxSteps < 0 {
		return fmt.Errorf("%w: termination limits must not be negative: %+v", ErrInvalidConfig, p)
	}
	return nil
}

func estimateSteps(seed *sizing.Result, dt float64, maxSteps int) int {
	n := int(seed.BurnTime.SI()/dt) + 2
	if n > maxSteps+1 {
		n = maxSteps + 1
	}
	if n < 1 {
		n = 1
	}
	return n
}
