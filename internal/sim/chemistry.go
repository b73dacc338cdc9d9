package sim

import (
	"fmt"
	"sort"

	"github.com/san-kum/roar/internal/sizing"
)

// Combustion is the chamber gas state the nozzle relations need.
type Combustion struct {
	CharacteristicVelocity float64 `yaml:"cstar"`
	Temperature            float64 `yaml:"temperature"`
	Gamma                  float64 `yaml:"gamma"`
	GasConstant            float64 `yaml:"gas_constant"`
}

// Chemistry maps the instantaneous O/F to combustion properties.
type Chemistry interface {
	Conditions(of float64) Combustion
}

// FixedChemistry ignores O/F and holds one set of properties for the whole burn.
type FixedChemistry Combustion

func (f FixedChemistry) Conditions(float64) Combustion { return Combustion(f) }

// DesignChemistry holds the sizing point's c* and flame temperature.
func DesignChemistry(seed *sizing.Result) FixedChemistry {
	return FixedChemistry{
		CharacteristicVelocity: seed.CharacteristicVelocity.SI(),
		Temperature:            seed.Spec.TemperatureFlame.SI(),
		Gamma:                  seed.Spec.Gamma,
		GasConstant:            seed.Spec.GasConstant.SI(),
	}
}

// TablePoint is one row of an O/F chemistry table.
type TablePoint struct {
	OF float64 `yaml:"of"`
	Combustion `yaml:",inline"`
}

// TableChemistry interpolates linearly in O/F and clamps outside the table.
type TableChemistry struct {
	points []TablePoint
}

func NewTableChemistry(points []TablePoint) (*TableChemistry, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: empty chemistry table", ErrInvalidConfig)
	}
	sorted := make([]TablePoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].OF < sorted[j].OF })
	for i, p := range sorted {
		if p.CharacteristicVelocity <= 0 || p.Temperature <= 0 || p.Gamma <= 1 || p.GasConstant <= 0 {
			return nil, fmt.Errorf("%w: chemistry row at O/F %g is not physical", ErrInvalidConfig, p.OF)
		}
		if i > 0 && sorted[i-1].OF == p.OF {
			return nil, fmt.Errorf("%w: duplicate O/F %g in chemistry table", ErrInvalidConfig, p.OF)
		}
	}
	return &TableChemistry{points: sorted}, nil
}

func (t *TableChemistry) Conditions(of float64) Combustion {
	pts := t.points
	if of <= pts[0].OF {
		return pts[0].Combustion
	}
	last := pts[len(pts)-1]
	if of >= last.OF {
		return last.Combustion
	}
	i := sort.Search(len(pts), func(i int) bool { return pts[i].OF >= of })
	lo, hi := pts[i-1], pts[i]
	w := (of - lo.OF) / (hi.OF - lo.OF)
	lerp := func(a, b float64) float64 { return a + w*(b-a) }
	return Combustion{
		CharacteristicVelocity: lerp(lo.CharacteristicVelocity, hi.CharacteristicVelocity),
		Temperature:            lerp(lo.Temperature, hi.Temperature),
		Gamma:                  lerp(lo.Gamma, hi.Gamma),
		GasConstant:            lerp(lo.GasConstant, hi.GasConstant),
	}
}
