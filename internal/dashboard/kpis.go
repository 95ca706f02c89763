package dashboard

import (
	"covidmx/internal/aggregate"
	"covidmx/internal/core"
)

// KPI identifiers.
const (
	KPIConfirmed    = "confirmados"
	KPINegative     = "negativos"
	KPISuspected    = "sospechosos"
	KPIDeaths       = "defunciones"
	KPIRecovered    = "recuperados"
	KPIMen          = "hombres"
	KPIWomen        = "mujeres"
	KPIHospitalized = "hospitalizados"
	KPIAmbulatory   = "ambulatorios"
)

// KPIs computes the headline cards. Deaths are confirmed cases with a real
// death date; recovered are confirmed cases carrying the sentinel. Sex and
// patient type shares are percentages of confirmed cases.
func KPIs(t *core.Table) []Scalar {
	var confirmed, negative, suspected, deaths, recovered int
	var men, women, hosp, amb int
	for r := range t.Rows() {
		code, ok := r.Int(core.ColClassification)
		if !ok {
			continue
		}
		switch core.Classification(code) {
		case core.Negative:
			negative++
			continue
		case core.Suspected:
			suspected++
			continue
		case core.Confirmed:
		default:
			continue
		}
		confirmed++
		if r.Died() {
			deaths++
		}
		if r.HasDeathSentinel() {
			recovered++
		}
		switch {
		case r.Is(core.ColSex, int(core.Male)):
			men++
		case r.Is(core.ColSex, int(core.Female)):
			women++
		}
		switch {
		case r.Is(core.ColPatientType, int(core.Hospitalized)):
			hosp++
		case r.Is(core.ColPatientType, int(core.Ambulatory)):
			amb++
		}
	}

	return []Scalar{
		count(KPIConfirmed, "Casos confirmados", confirmed),
		count(KPINegative, "Casos negativos", negative),
		count(KPISuspected, "Casos sospechosos", suspected),
		count(KPIDeaths, "Total de defunciones", deaths),
		count(KPIRecovered, "Total de recuperados", recovered),
		percent(KPIMen, "Hombres", men, confirmed),
		percent(KPIWomen, "Mujeres", women, confirmed),
		percent(KPIHospitalized, "Hospitalizados", hosp, confirmed),
		percent(KPIAmbulatory, "Ambulatorios", amb, confirmed),
	}
}

func count(id, label string, n int) Scalar {
	return Scalar{ID: id, Label: label, Value: float64(n), Unit: UnitCount}
}

func percent(id, label string, n, of int) Scalar {
	return Scalar{ID: id, Label: label, Value: aggregate.Percent(n, of), Unit: UnitPercent}
}

func text(label, value, note string) Scalar {
	return Scalar{Label: label, Text: value, Unit: UnitText, Note: note}
}
