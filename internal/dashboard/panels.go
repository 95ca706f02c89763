package dashboard

import (
	"fmt"
	"math"

	"covidmx/internal/aggregate"
	"covidmx/internal/core"
)

// Panel identifiers, in page order.
const (
	PanelMainComorbidities     = "comorbilidades-principales"
	PanelAgeBySex              = "edad-sexo"
	PanelAgeByPatientType      = "edad-tipo-paciente"
	PanelAntigenByMonth        = "antigeno-mensual"
	PanelIntubationByMonth     = "intubacion-mensual"
	PanelComorbidityShare      = "comorbilidades-proporcion"
	PanelAgeHistogram          = "distribucion-edad"
	PanelComorbidityGroup      = "comorbilidades-grupo"
	PanelClassificationByMonth = "clasificacion-mensual"
	PanelIntubationByAge       = "intubacion-edad"
	PanelDeceasedComorbidities = "comorbilidades-fallecidos"
	PanelAdmissionDelay        = "dias-sintomas-ingreso"
)

// Severity thresholds of the main comorbidities panel, in percent.
const (
	highThreshold   = 10
	mediumThreshold = 7
)

// Age limits of the broad age groups, applied to band midpoints.
const (
	adultFrom  = 30
	seniorFrom = 60
)

// Notable gap, in percentage points, between deceased and confirmed
// comorbidity prevalence.
const notableGap = 5

// SeverityLevel grades a comorbidity percentage.
func SeverityLevel(p float64) Level {
	switch {
	case p > highThreshold:
		return LevelHigh
	case p > mediumThreshold:
		return LevelMedium
	}
	return LevelLow
}

func casesNote(n int) string {
	return fmt.Sprintf("%d casos", n)
}

// MainComorbidities is the share of confirmed cases with each of the main
// comorbidities, graded by severity.
func MainComorbidities(confirmed *core.Table) Panel {
	shares := aggregate.CountByFlag(confirmed, core.MainComorbidities, confirmed.Len())
	levels := make([]Level, len(shares))
	for i, s := range shares {
		levels[i] = SeverityLevel(s.Percent)
	}
	return Panel{
		ID:     PanelMainComorbidities,
		Title:  "Comorbilidades principales en confirmados",
		Shape:  ShapeShares,
		Shares: shares,
		Levels: levels,
		Stats: []Scalar{
			{Label: "Total", Value: aggregate.SumPercent(shares), Unit: UnitPercent},
			count("", "Casos confirmados", confirmed.Len()),
		},
	}
}

var sexCategories = []aggregate.Category{
	{Code: int(core.Male), Label: core.Male.Label()},
	{Code: int(core.Female), Label: core.Female.Label()},
}

var patientTypeCategories = []aggregate.Category{
	{Code: int(core.Ambulatory), Label: core.Ambulatory.Label()},
	{Code: int(core.Hospitalized), Label: core.Hospitalized.Label()},
}

// AgeBySex cross tabulates 5-year age bands by sex for the selected cases.
func AgeBySex(selected *core.Table, ct core.CaseType) Panel {
	tab := aggregate.CrossTabulate(selected, aggregate.AgeBands5(), core.ColSex, sexCategories)
	total := tab.Total()

	var stats []Scalar
	for _, c := range sexCategories {
		n := tab.CategoryTotal(c.Code)
		stats = append(stats, Scalar{
			Label: "Total " + c.Label,
			Value: float64(n),
			Unit:  UnitCount,
			Note:  fmt.Sprintf("%.1f%%", aggregate.Percent(n, total)),
		})
	}
	for _, c := range sexCategories {
		if b, n, ok := tab.Peak(c.Code); ok {
			stats = append(stats, text("Rango más afectado en "+c.Label, tab.Buckets[b].Label, casesNote(n)))
		}
	}

	return Panel{
		ID:     PanelAgeBySex,
		Title:  "Casos " + ct.Label() + " por edad y sexo",
		Shape:  ShapeMatrix,
		Matrix: matrixOf(tab),
		Stats:  stats,
	}
}

// AgeByPatientType cross tabulates 5-year age bands by patient type for the
// selected cases, with the ambulatory/hospitalised ratio and the difference
// of the estimated average ages.
func AgeByPatientType(selected *core.Table, ct core.CaseType) Panel {
	tab := aggregate.CrossTabulate(selected, aggregate.AgeBands5(), core.ColPatientType, patientTypeCategories)
	mids := aggregate.Midpoints(tab.Buckets)

	amb := tab.CategoryTotal(int(core.Ambulatory))
	hosp := tab.CategoryTotal(int(core.Hospitalized))
	total := amb + hosp

	stats := []Scalar{
		{Label: "Total Ambulatorios", Value: float64(amb), Unit: UnitCount, Note: fmt.Sprintf("%.1f%%", aggregate.Percent(amb, total))},
		{Label: "Total Hospitalizados", Value: float64(hosp), Unit: UnitCount, Note: fmt.Sprintf("%.1f%%", aggregate.Percent(hosp, total))},
	}
	if ratio, ok := aggregate.Ratio(amb, hosp); ok {
		stats = append(stats, Scalar{Label: "Relación Ambulatorios/Hospitalizados", Value: math.Round(ratio*100) / 100, Unit: UnitRatio})
	} else {
		stats = append(stats, text("Relación Ambulatorios/Hospitalizados", "N/A", ""))
	}

	ageAmb := aggregate.WeightedMidpointAverage(tab.Series(int(core.Ambulatory)), mids)
	ageHosp := aggregate.WeightedMidpointAverage(tab.Series(int(core.Hospitalized)), mids)
	older := "Ambulatorios mayores"
	if ageHosp > ageAmb {
		older = "Hospitalizados mayores"
	}
	stats = append(stats, Scalar{
		Label: "Diferencia de edad promedio",
		Value: aggregate.Round1(math.Abs(ageHosp - ageAmb)),
		Unit:  UnitYears,
		Note:  older,
	})

	return Panel{
		ID:     PanelAgeByPatientType,
		Title:  "Casos " + ct.Label() + " por edad y tipo de paciente",
		Shape:  ShapeMatrix,
		Matrix: matrixOf(tab),
		Stats:  stats,
	}
}

var yesNoCodes = []core.YesNo{core.Yes, core.No, core.NotApplicable, core.Ignored, core.Unspecified}

func antigenCategories() []aggregate.Category {
	out := make([]aggregate.Category, len(yesNoCodes))
	for i, c := range yesNoCodes {
		out[i] = aggregate.Category{Code: int(c), Label: c.AntigenLabel()}
	}
	return out
}

func intubationCategories(codes ...core.YesNo) []aggregate.Category {
	out := make([]aggregate.Category, len(codes))
	for i, c := range codes {
		out[i] = aggregate.Category{Code: int(c), Label: c.IntubationLabel()}
	}
	return out
}

// AntigenByMonth counts patients per admission month and antigen result,
// with the monthly positivity rate positives/(positives+negatives).
func AntigenByMonth(t *core.Table) Panel {
	tab := aggregate.CrossTabulate(t, aggregate.MonthsOf(core.ColAdmissionDate), core.ColAntigenResult, antigenCategories())
	m := matrixOf(tab)
	m.Lines = []Line{{Label: "Positividad (%)", Values: tab.Rate(int(core.Yes), int(core.Yes), int(core.No))}}

	var stats []Scalar
	for _, c := range tab.Categories {
		stats = append(stats, count("", "Total "+c.Label, tab.CategoryTotal(c.Code)))
	}
	for _, code := range []core.YesNo{core.Yes, core.No} {
		if b, n, ok := tab.Peak(int(code)); ok {
			stats = append(stats, text("Mes pico "+code.AntigenLabel(), tab.Buckets[b].Label, casesNote(n)))
		}
	}
	return Panel{
		ID:     PanelAntigenByMonth,
		Title:  "Pacientes por mes y resultado de antígeno",
		Shape:  ShapeMatrix,
		Matrix: m,
		Stats:  stats,
	}
}

// IntubationByMonth counts patients per admission month and intubation
// status, with the monthly share of intubated among intubated and not
// intubated patients and its mean over the year.
func IntubationByMonth(t *core.Table) Panel {
	tab := aggregate.CrossTabulate(t, aggregate.MonthsOf(core.ColAdmissionDate), core.ColIntubated, intubationCategories(yesNoCodes...))
	rate := tab.Rate(int(core.Yes), int(core.Yes), int(core.No))
	m := matrixOf(tab)
	m.Lines = []Line{{Label: "Intubados (%)", Values: rate}}

	return Panel{
		ID:     PanelIntubationByMonth,
		Title:  "Pacientes por mes y estado de intubación",
		Shape:  ShapeMatrix,
		Matrix: m,
		Stats: []Scalar{
			count("", "Intubados", tab.CategoryTotal(int(core.Yes))),
			count("", "No intubados", tab.CategoryTotal(int(core.No))),
			{Label: "Media mensual de intubados", Value: aggregate.Round1(aggregate.Mean(rate)), Unit: UnitPercent},
		},
	}
}

// ComorbidityShare splits the comorbidities recorded among confirmed cases
// into their share of all recorded comorbidities.
func ComorbidityShare(confirmed *core.Table) Panel {
	shares := aggregate.CountByFlag(confirmed, core.Comorbidities, 0, aggregate.DropEmpty(), aggregate.ShareOfTotal())
	total := 0
	for _, s := range shares {
		total += s.Count
	}
	return Panel{
		ID:     PanelComorbidityShare,
		Title:  "Proporción de comorbilidades en confirmados",
		Shape:  ShapeShares,
		Shares: shares,
		Stats:  []Scalar{count("", "Comorbilidades registradas", total)},
	}
}

// AgeHistogram is the distribution of every case with a valid age over
// 5-year bands, with the modal band, estimated average, median band and the
// young/adult/senior split.
func AgeHistogram(t *core.Table) Panel {
	tab := aggregate.CrossTabulate(t, aggregate.AgeBands5(), "", nil)
	counts := tab.Series(aggregate.TotalCode)
	mids := aggregate.Midpoints(tab.Buckets)
	total := tab.Total()

	var stats []Scalar
	if b, n, ok := tab.Peak(aggregate.TotalCode); ok {
		stats = append(stats, text("Rango de edad más frecuente", tab.Buckets[b].Label, casesNote(n)))
	}
	stats = append(stats, Scalar{
		Label: "Edad promedio estimada",
		Value: aggregate.Round1(aggregate.WeightedMidpointAverage(counts, mids)),
		Unit:  UnitYears,
	})
	if b, ok := aggregate.MedianBucket(counts); ok {
		stats = append(stats, text("Rango de edad mediano", tab.Buckets[b].Label, ""))
	}

	var young, adult, senior int
	for i, n := range counts {
		switch {
		case mids[i] < adultFrom:
			young += n
		case mids[i] < seniorFrom:
			adult += n
		default:
			senior += n
		}
	}
	stats = append(stats,
		Scalar{Label: "Jóvenes (0-29)", Value: aggregate.Percent(young, total), Unit: UnitPercent, Note: casesNote(young)},
		Scalar{Label: "Adultos (30-59)", Value: aggregate.Percent(adult, total), Unit: UnitPercent, Note: casesNote(adult)},
		Scalar{Label: "Mayores (60+)", Value: aggregate.Percent(senior, total), Unit: UnitPercent, Note: casesNote(senior)},
	)

	return Panel{
		ID:     PanelAgeHistogram,
		Title:  "Distribución de casos por edad",
		Shape:  ShapeMatrix,
		Matrix: matrixOf(tab),
		Stats:  stats,
	}
}

// ComorbidityGroup is the prevalence of every comorbidity in the chosen
// group, as a percentage of the group size.
func ComorbidityGroup(confirmed *core.Table, g Group) Panel {
	pop := confirmed
	if g == GroupDeceased {
		pop = confirmed.Filter(core.Row.Died)
	}
	return Panel{
		ID:     PanelComorbidityGroup,
		Title:  "Comorbilidades en " + g.Label(),
		Shape:  ShapeShares,
		Shares: aggregate.CountByFlag(pop, core.Comorbidities, pop.Len()),
		Stats:  []Scalar{count("", "Tamaño del grupo", pop.Len())},
	}
}

var monthlyClassifications = []core.Classification{core.Suspected, core.Probable, core.NegativeAlt}

// ClassificationByMonth counts suspected, probable and alternative negative
// cases per admission month.
func ClassificationByMonth(t *core.Table) Panel {
	cats := make([]aggregate.Category, len(monthlyClassifications))
	for i, c := range monthlyClassifications {
		cats[i] = aggregate.Category{Code: int(c), Label: c.Label()}
	}
	tab := aggregate.CrossTabulate(t, aggregate.MonthsOf(core.ColAdmissionDate), core.ColClassification, cats)

	stats := make([]Scalar, 0, len(cats))
	for _, c := range cats {
		stats = append(stats, count("", "Total "+c.Label, tab.CategoryTotal(c.Code)))
	}
	return Panel{
		ID:     PanelClassificationByMonth,
		Title:  "Casos sospechosos, probables y negativos por mes",
		Shape:  ShapeMatrix,
		Matrix: matrixOf(tab),
		Stats:  stats,
	}
}

// IntubationByAge cross tabulates 10-year age bands by intubation status
// with the percentage intubated per band.
func IntubationByAge(t *core.Table) Panel {
	tab := aggregate.CrossTabulate(t, aggregate.AgeBands10(), core.ColIntubated, intubationCategories(core.Yes, core.No))
	rate := tab.Rate(int(core.Yes), int(core.Yes), int(core.No))
	m := matrixOf(tab)
	m.Lines = []Line{{Label: "Intubados (%)", Values: rate}}

	yes := tab.CategoryTotal(int(core.Yes))
	stats := []Scalar{
		count("", "Intubados", yes),
		{Label: "Porcentaje de intubados", Value: aggregate.Percent(yes, tab.Total()), Unit: UnitPercent},
	}
	best := -1
	for i, v := range rate {
		if v > 0 && (best < 0 || v > rate[best]) {
			best = i
		}
	}
	if best >= 0 {
		stats = append(stats, text("Rango con mayor intubación", tab.Buckets[best].Label, fmt.Sprintf("%.1f%%", rate[best])))
	}
	return Panel{
		ID:     PanelIntubationByAge,
		Title:  "Intubación por grupo de edad",
		Shape:  ShapeMatrix,
		Matrix: m,
		Stats:  stats,
	}
}

// DeceasedComorbidities is the prevalence of every comorbidity among the
// deceased, compared against the confirmed population.
func DeceasedComorbidities(deceased, confirmed *core.Table) Panel {
	n := deceased.Len()
	shares := aggregate.CountByFlag(deceased, core.Comorbidities, n, aggregate.DropEmpty())

	withAny := deceased.Count(func(r core.Row) bool {
		for _, f := range core.Comorbidities {
			if r.Is(f.Column, 1) {
				return true
			}
		}
		return false
	})
	recorded := 0
	for _, s := range shares {
		recorded += s.Count
	}

	stats := []Scalar{
		count("", "Total de fallecidos", n),
		{Label: "Fallecidos con al menos una comorbilidad", Value: float64(withAny), Unit: UnitCount, Note: fmt.Sprintf("%.1f%%", aggregate.Percent(withAny, n))},
	}
	if avg, ok := aggregate.Ratio(recorded, withAny); ok {
		stats = append(stats, Scalar{Label: "Promedio de comorbilidades por fallecido", Value: math.Round(avg*100) / 100, Unit: UnitRatio})
	}
	if len(shares) > 0 {
		stats = append(stats, text("Comorbilidad más frecuente", shares[0].Label, casesNote(shares[0].Count)))
	}

	if confirmed.Len() > 0 {
		base := aggregate.CountByFlag(confirmed, core.Comorbidities, confirmed.Len())
		for _, s := range shares {
			b, ok := aggregate.Lookup(base, s.Label)
			if !ok {
				continue
			}
			gap := aggregate.Round1(s.Percent - b.Percent)
			if math.Abs(gap) <= notableGap {
				continue
			}
			note := "más rara en fallecidos"
			if gap > 0 {
				note = "más frecuente en fallecidos"
			}
			stats = append(stats, Scalar{Label: s.Label, Value: gap, Unit: UnitPercent, Note: note})
		}
	}

	return Panel{
		ID:     PanelDeceasedComorbidities,
		Title:  "Comorbilidades en fallecidos",
		Shape:  ShapeShares,
		Shares: shares,
		Stats:  stats,
	}
}

// AdmissionDelay is the histogram of days between symptom onset and
// admission, 0 to 20 days in 2-day bins.
func AdmissionDelay(t *core.Table) Panel {
	tab := aggregate.CrossTabulate(t, aggregate.AdmissionDelayBands(), "", nil)
	counts := tab.Series(aggregate.TotalCode)

	stats := []Scalar{count("", "Pacientes", tab.Total())}
	if b, n, ok := tab.Peak(aggregate.TotalCode); ok {
		stats = append(stats, text("Intervalo más frecuente", tab.Buckets[b].Label+" días", casesNote(n)))
	}
	stats = append(stats, Scalar{
		Label: "Días promedio estimados",
		Value: aggregate.Round1(aggregate.WeightedMidpointAverage(counts, aggregate.Midpoints(tab.Buckets))),
		Unit:  UnitDays,
	})
	return Panel{
		ID:     PanelAdmissionDelay,
		Title:  "Días entre inicio de síntomas e ingreso",
		Shape:  ShapeMatrix,
		Matrix: matrixOf(tab),
		Stats:  stats,
	}
}
