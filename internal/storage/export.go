package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/roar/internal/sim"
)

type ExportData struct {
	Name       string             `json:"name"`
	Integrator string             `json:"integrator"`
	Dt         float64            `json:"dt"`
	Status     sim.Status         `json:"status"`
	Steps      int                `json:"steps"`
	Sizing     map[string]float64 `json:"sizing,omitempty"`
	States     []sim.State        `json:"states"`
	Metrics    map[string]float64 `json:"metrics"`
}

func ExportJSON(w io.Writer, name, integrator string, dt float64, sizing map[string]float64, result *sim.Result) error {
	data := ExportData{
		Name:       name,
		Integrator: integrator,
		Dt:         dt,
		Status:     result.Status,
		Steps:      result.Steps,
		States:     result.States,
		Sizing:     sizing,
		Metrics:    result.Metrics,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
