package render

import "covidmx/internal/dashboard"

// Format renders a scalar for a KPI card or a detail line.
func (r *Renderer) Format(s dashboard.Scalar) string {
	if s.Text != "" {
		return s.Text
	}
	switch s.Unit {
	case dashboard.UnitCount:
		return r.printer.Sprintf("%d", int64(s.Value))
	case dashboard.UnitPercent:
		return r.printer.Sprintf("%.1f%%", s.Value)
	case dashboard.UnitYears:
		return r.printer.Sprintf("%.1f años", s.Value)
	case dashboard.UnitDays:
		return r.printer.Sprintf("%.1f días", s.Value)
	case dashboard.UnitRatio:
		return r.printer.Sprintf("%.2f", s.Value)
	}
	return r.printer.Sprintf("%v", s.Value)
}
