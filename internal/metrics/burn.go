// Package metrics summarizes a trajectory as the run observes it.
package metrics

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/roar/internal/sim"
)

// series records one column of the trajectory against time.
type series struct {
	name   string
	pick   func(sim.State) float64
	times  []float64
	values []float64
}

func newSeries(name string, pick func(sim.State) float64) series {
	return series{name: name, pick: pick}
}

func (s *series) Name() string { return s.name }

func (s *series) Observe(st sim.State) {
	s.times = append(s.times, st.Time)
	s.values = append(s.values, s.pick(st))
}

func (s *series) Reset() {
	s.times = s.times[:0]
	s.values = s.values[:0]
}

func (s *series) integral() float64 {
	if len(s.times) < 2 {
		return 0
	}
	return integrate.Trapezoidal(s.times, s.values)
}

func (s *series) duration() float64 {
	if len(s.times) < 2 {
		return 0
	}
	return s.times[len(s.times)-1] - s.times[0]
}

// TotalImpulse integrates thrust over time, N*s.
type TotalImpulse struct{ series }

func NewTotalImpulse() *TotalImpulse {
	return &TotalImpulse{newSeries("total_impulse", func(s sim.State) float64 { return s.Thrust })}
}

func (m *TotalImpulse) Value() float64 { return m.integral() }

// AverageThrust is total impulse over burn duration, N.
type AverageThrust struct{ series }

func NewAverageThrust() *AverageThrust {
	return &AverageThrust{newSeries("average_thrust", func(s sim.State) float64 { return s.Thrust })}
}

func (m *AverageThrust) Value() float64 {
	d := m.duration()
	if d == 0 {
		if len(m.values) == 1 {
			return m.values[0]
		}
		return 0
	}
	return m.integral() / d
}

// Peak tracks the maximum of one column.
type Peak struct{ series }

func NewPeakThrust() *Peak {
	return &Peak{newSeries("peak_thrust", func(s sim.State) float64 { return s.Thrust })}
}

func NewPeakPressure() *Peak {
	return &Peak{newSeries("peak_pressure", func(s sim.State) float64 { return s.PressureChamber })}
}

func (m *Peak) Value() float64 {
	if len(m.values) == 0 {
		return 0
	}
	return floats.Max(m.values)
}

// MeanOF is the time-weighted mean mixture ratio.
type MeanOF struct{ series }

func NewMeanOF() *MeanOF {
	return &MeanOF{newSeries("mean_of", func(s sim.State) float64 { return s.OF })}
}

func (m *MeanOF) Value() float64 {
	if len(m.values) == 0 {
		return 0
	}
	return stat.Mean(m.values, stepWeights(m.times))
}

// FuelConsumed is the grain mass lost between the first and last state, kg.
type FuelConsumed struct{ series }

func NewFuelConsumed() *FuelConsumed {
	return &FuelConsumed{newSeries("fuel_consumed", func(s sim.State) float64 { return s.FuelMassRemaining })}
}

func (m *FuelConsumed) Value() float64 {
	if len(m.values) == 0 {
		return 0
	}
	return m.values[0] - m.values[len(m.values)-1]
}

// DeliveredIsp divides total impulse by the propellant weight flowed, s.
type DeliveredIsp struct {
	impulse series
	flow    series
	g0      float64
}

func NewDeliveredIsp(g0 float64) *DeliveredIsp {
	return &DeliveredIsp{
		impulse: newSeries("", func(s sim.State) float64 { return s.Thrust }),
		flow:    newSeries("", func(s sim.State) float64 { return s.MdotProp }),
		g0:      g0,
	}
}

func (m *DeliveredIsp) Name() string { return "delivered_isp" }

func (m *DeliveredIsp) Observe(s sim.State) {
	m.impulse.Observe(s)
	m.flow.Observe(s)
}

func (m *DeliveredIsp) Value() float64 {
	if len(m.flow.values) == 1 {
		return m.impulse.values[0] / (m.flow.values[0] * m.g0)
	}
	mass := m.flow.integral()
	if mass == 0 {
		return 0
	}
	return m.impulse.integral() / (mass * m.g0)
}

func (m *DeliveredIsp) Reset() {
	m.impulse.Reset()
	m.flow.Reset()
}

// stepWeights gives each sample the width of the interval around it, so the
// weighted mean approximates the time average.
func stepWeights(times []float64) []float64 {
	n := len(times)
	if n < 2 {
		return nil
	}
	w := make([]float64, n)
	w[0] = (times[1] - times[0]) / 2
	w[n-1] = (times[n-1] - times[n-2]) / 2
	for i := 1; i < n-1; i++ {
		w[i] = (times[i+1] - times[i-1]) / 2
	}
	return w
}

// Defaults returns a fresh set of the standard burn metrics.
func Defaults(g0 float64) []sim.Metric {
	return []sim.Metric{
		NewTotalImpulse(),
		NewAverageThrust(),
		NewPeakThrust(),
		NewPeakPressure(),
		NewMeanOF(),
		NewFuelConsumed(),
		NewDeliveredIsp(g0),
	}
}
