package sizing

import "github.com/san-kum/roar/internal/units"

// Result is the design point derived from a DesignSpec. Fields hold their
// display units; SI() on any of them gives the normalized value.
type Result struct {
	Spec DesignSpec

	BurnTime       units.Quantity
	MassPropellant units.Quantity
	MassOxidizer   units.Quantity
	MassFuel       units.Quantity

	MdotPropellant units.Quantity
	MdotOxidizer   units.Quantity
	MdotFuel       units.Quantity

	InjectorPressureDrop    units.Quantity
	InjectorArea            units.Quantity
	InjectorDiameter        units.Quantity
	InjectorOrificeDiameter units.Quantity

	PortAreaInitial       units.Quantity
	PortDiameterInitial   units.Quantity
	PortPerimeterInitial  units.Quantity
	GrainLength           units.Quantity
	PortDiameterFinal     units.Quantity
	ChamberArea           units.Quantity
	RegressionRateInitial units.Quantity

	CharacteristicVelocity units.Quantity
	ThroatArea             units.Quantity
	ThroatDiameter         units.Quantity
	MachChamber            units.Quantity
	MachExit               units.Quantity
	TemperatureExit        units.Quantity
	ExpansionRatio         units.Quantity
	ExitArea               units.Quantity
	ExitDiameter           units.Quantity

	rows []Row
}

// Row is one named field of a Result, in evaluation order.
type Row struct {
	Name     string
	Label    string
	Quantity units.Quantity
}

func newResult(spec DesignSpec, ordered []step, values map[string]float64) *Result {
	r := &Result{Spec: spec, rows: make([]Row, 0, len(ordered))}
	fields := map[string]*units.Quantity{
		BurnTime:                &r.BurnTime,
		MassPropellant:          &r.MassPropellant,
		MassOxidizer:            &r.MassOxidizer,
		MassFuel:                &r.MassFuel,
		MdotPropellant:          &r.MdotPropellant,
		MdotOxidizer:            &r.MdotOxidizer,
		MdotFuel:                &r.MdotFuel,
		InjectorPressureDrop:    &r.InjectorPressureDrop,
		InjectorArea:            &r.InjectorArea,
		InjectorDiameter:        &r.InjectorDiameter,
		InjectorOrificeDiameter: &r.InjectorOrificeDiameter,
		PortAreaInitial:         &r.PortAreaInitial,
		PortDiameterInitial:     &r.PortDiameterInitial,
		PortPerimeterInitial:    &r.PortPerimeterInitial,
		GrainLength:             &r.GrainLength,
		PortDiameterFinal:       &r.PortDiameterFinal,
		ChamberArea:             &r.ChamberArea,
		RegressionRateInitial:   &r.RegressionRateInitial,
		CharacteristicVelocity:  &r.CharacteristicVelocity,
		ThroatArea:              &r.ThroatArea,
		ThroatDiameter:          &r.ThroatDiameter,
		MachChamber:             &r.MachChamber,
		MachExit:                &r.MachExit,
		TemperatureExit:         &r.TemperatureExit,
		ExpansionRatio:          &r.ExpansionRatio,
		ExitArea:                &r.ExitArea,
		ExitDiameter:            &r.ExitDiameter,
	}

	for _, s := range ordered {
		q := units.FromSI(values[s.name], s.dim).MustIn(s.unit)
		if f, ok := fields[s.name]; ok {
			*f = q
		}
		r.rows = append(r.rows, Row{Name: s.name, Label: s.label, Quantity: q})
	}
	return r
}

// Table lists every field in evaluation order.
func (r *Result) Table() []Row {
	rows := make([]Row, len(r.rows))
	copy(rows, r.rows)
	return rows
}

// SI returns every field normalized to SI, keyed by step name.
func (r *Result) SI() map[string]float64 {
	out := make(map[string]float64, len(r.rows))
	for _, row := range r.rows {
		out[row.Name] = row.Quantity.SI()
	}
	return out
}
