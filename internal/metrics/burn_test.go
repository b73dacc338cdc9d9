package metrics

import (
	"context"
	"math"
	"testing"

	"github.com/san-kum/roar/internal/sim"
	"github.com/san-kum/roar/internal/sizing"
)

func ramp(m sim.Metric) {
	for i := 0; i <= 4; i++ {
		t := float64(i) * 0.5
		m.Observe(sim.State{
			Time:              t,
			Thrust:            100 + 10*t,
			PressureChamber:   3e6 - 1e5*t,
			OF:                5 + t,
			FuelMassRemaining: 1 - 0.1*t,
			MdotProp:          0.5,
		})
	}
}

func TestBurnMetrics(t *testing.T) {
	tests := []struct {
		metric sim.Metric
		want   float64
	}{
		{NewTotalImpulse(), 220},
		{NewAverageThrust(), 110},
		{NewPeakThrust(), 120},
		{NewPeakPressure(), 3e6},
		{NewMeanOF(), 6},
		{NewFuelConsumed(), 0.2},
		{NewDeliveredIsp(10), 220.0 / (1.0 * 10)},
	}

	for _, tt := range tests {
		t.Run(tt.metric.Name(), func(t *testing.T) {
			ramp(tt.metric)
			if got := tt.metric.Value(); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("expected %f, got %f", tt.want, got)
			}
		})
	}
}

func TestMetricReset(t *testing.T) {
	for _, m := range Defaults(9.80665) {
		ramp(m)
		if m.Value() == 0 {
			t.Errorf("%s: expected non-zero value", m.Name())
		}
		m.Reset()
		if m.Value() != 0 {
			t.Errorf("%s: expected zero after reset, got %f", m.Name(), m.Value())
		}
	}
}

func TestMetricSingleSample(t *testing.T) {
	avg := NewAverageThrust()
	avg.Observe(sim.State{Thrust: 42})
	if avg.Value() != 42 {
		t.Errorf("expected single-sample average 42, got %f", avg.Value())
	}
	if imp := NewTotalImpulse(); imp.Value() != 0 {
		t.Error("expected zero impulse without samples")
	}
}

func TestMetricsOverRun(t *testing.T) {
	seed, err := sizing.Size(sizing.Reference())
	if err != nil {
		t.Fatalf("sizing failed: %v", err)
	}
	s := sim.New(seed)
	for _, m := range Defaults(seed.Spec.G0.SI()) {
		s.AddMetric(m)
	}
	res, err := s.Run(context.Background(), sim.DefaultConfig())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	fuel := res.Metrics["fuel_consumed"]
	if want := res.States[0].FuelMassRemaining; math.Abs(fuel-want) > 1e-9 {
		t.Errorf("burnout should consume all fuel: %f of %f kg", fuel, want)
	}
	impulse := res.Metrics["total_impulse"]
	if impulse <= 0 {
		t.Fatalf("expected positive impulse, got %f", impulse)
	}
	avg := res.Metrics["average_thrust"]
	if math.Abs(avg*res.Final().Time-impulse) > 1e-6*impulse {
		t.Errorf("average thrust %f inconsistent with impulse %f", avg, impulse)
	}
	if res.Metrics["peak_thrust"] < avg {
		t.Error("peak thrust below average")
	}
	isp := res.Metrics["delivered_isp"]
	if isp <= 0 || isp > 400 {
		t.Errorf("implausible delivered isp %f", isp)
	}
}
