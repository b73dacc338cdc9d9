// Package report renders sizing results and trajectories for the terminal.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/roar/internal/sim"
	"github.com/san-kum/roar/internal/sizing"
	"github.com/san-kum/roar/internal/units"
)

// SizingTable lists every sizing output in evaluation order.
func SizingTable(r *sizing.Result) string {
	rows := r.Table()
	labelWidth := 0
	for _, row := range rows {
		labelWidth = max(labelWidth, lipgloss.Width(row.Label))
	}

	var sb strings.Builder
	sb.WriteString(Title.Render(fmt.Sprintf("%s / %s engine", r.Spec.Fuel, r.Spec.Oxidizer)))
	sb.WriteString("\n")
	for _, row := range rows {
		label := MetricLabel.Width(labelWidth + 2).Render(row.Label)
		sb.WriteString(label + MetricValue.Render(formatQuantity(row.Quantity)) + "\n")
	}
	return Panel.Render(strings.TrimRight(sb.String(), "\n"))
}

func formatQuantity(q units.Quantity) string {
	v := fmt.Sprintf("%.4g", q.Value)
	if q.Unit.Symbol == "" || q.Unit.Symbol == "1" {
		return v
	}
	return v + " " + q.Unit.Symbol
}

// TrajectorySummary renders the termination status, the final state and the
// run metrics.
func TrajectorySummary(res *sim.Result) string {
	final := res.Final()

	var sb strings.Builder
	sb.WriteString(Title.Render("burn") + "  " + statusStyle(res.Status).Render(res.Status.String()) + "\n")

	lines := [][2]string{
		{"steps", fmt.Sprintf("%d", res.Steps)},
		{"burn time", fmt.Sprintf("%.3f s", final.Time)},
		{"port diameter", fmt.Sprintf("%.2f mm", final.PortDiameter*1e3)},
		{"fuel remaining", fmt.Sprintf("%.3f kg", final.FuelMassRemaining)},
		{"final thrust", fmt.Sprintf("%.1f N", final.Thrust)},
		{"final O/F", fmt.Sprintf("%.3f", final.OF)},
	}

	names := make([]string, 0, len(res.Metrics))
	for name := range res.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		lines = append(lines, [2]string{strings.ReplaceAll(name, "_", " "), fmt.Sprintf("%.4g", res.Metrics[name])})
	}

	for _, l := range lines {
		sb.WriteString(MetricLabel.Width(18).Render(l[0]) + MetricValue.Render(l[1]) + "\n")
	}
	if len(res.States) > 1 {
		sb.WriteString(Subtle.Render("thrust ") + Sparkline(res.Series("thrust"), 40))
	}
	return Panel.Render(strings.TrimRight(sb.String(), "\n"))
}

func statusStyle(s sim.Status) lipgloss.Style {
	switch s {
	case sim.BurnedOut, sim.BurnTimeReached:
		return StatusOK
	case sim.StructuralLimit, sim.MaxStepsExceeded, sim.Canceled:
		return StatusWarn
	default:
		return StatusFail
	}
}

// Plot draws one series as an ASCII graph no wider than width.
func Plot(values []float64, caption string, width, height int) string {
	if len(values) == 0 {
		return ""
	}
	return asciigraph.Plot(resample(values, width),
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}
