// Package dashboard computes the KPIs and chart panels shown on the
// surveillance page from an already filtered case table.
package dashboard

import (
	"covidmx/internal/aggregate"
	"covidmx/internal/core"
)

// Shape tells the renderer which payload of a Panel is populated.
type Shape string

const (
	ShapeScalar Shape = "scalar"
	ShapeShares Shape = "shares"
	ShapeMatrix Shape = "matrix"
)

// Unit drives number formatting of a Scalar.
type Unit string

const (
	UnitCount   Unit = "count"
	UnitPercent Unit = "percent"
	UnitYears   Unit = "years"
	UnitDays    Unit = "days"
	UnitRatio   Unit = "ratio"
	UnitText    Unit = "text"
)

// Scalar is a single labelled value: a KPI card or a panel detail line.
type Scalar struct {
	ID    string  `json:"id,omitempty"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
	// Text replaces Value for textual details such as an age band.
	Text string `json:"text,omitempty"`
	Note string `json:"note,omitempty"`
}

// Series is the per-bucket count of one category.
type Series struct {
	Code   int    `json:"code"`
	Label  string `json:"label"`
	Counts []int  `json:"counts"`
}

// Line is a per-bucket derived percentage drawn over a matrix.
type Line struct {
	Label  string    `json:"label"`
	Values []float64 `json:"values"`
}

// Matrix is a bucket x category count table.
type Matrix struct {
	Buckets []string `json:"buckets"`
	Series  []Series `json:"series"`
	Lines   []Line   `json:"lines,omitempty"`
}

// Level grades a comorbidity percentage.
type Level string

const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
)

// Panel is one chart of the dashboard.
type Panel struct {
	ID     string            `json:"id"`
	Title  string            `json:"title"`
	Shape  Shape             `json:"shape"`
	Shares []aggregate.Share `json:"shares,omitempty"`
	// Levels is aligned with Shares when the panel grades its entries.
	Levels []Level  `json:"levels,omitempty"`
	Matrix *Matrix  `json:"matrix,omitempty"`
	Scalar *Scalar  `json:"scalar,omitempty"`
	Stats  []Scalar `json:"stats,omitempty"`
}

// Empty reports whether the panel has nothing to draw.
func (p Panel) Empty() bool {
	switch p.Shape {
	case ShapeShares:
		return len(p.Shares) == 0
	case ShapeMatrix:
		if p.Matrix == nil {
			return true
		}
		for _, s := range p.Matrix.Series {
			for _, n := range s.Counts {
				if n > 0 {
					return false
				}
			}
		}
		return true
	case ShapeScalar:
		return p.Scalar == nil
	}
	return true
}

// Group selects the population of the comorbidity comparison panel.
type Group string

const (
	GroupConfirmed Group = "confirmados"
	GroupDeceased  Group = "fallecidos"
)

// Groups lists the selectable comorbidity groups.
func Groups() []Group {
	return []Group{GroupConfirmed, GroupDeceased}
}

// Label returns the display name of the group.
func (g Group) Label() string {
	if g == GroupDeceased {
		return "Confirmados fallecidos"
	}
	return "Confirmados"
}

// Options are the user selections that change panel contents beyond the
// row filter.
type Options struct {
	CaseType         core.CaseType
	ComorbidityGroup Group
}

// Dashboard is the full computed page.
type Dashboard struct {
	Rows    int      `json:"rows"`
	KPIs    []Scalar `json:"kpis"`
	Panels  []Panel  `json:"panels"`
	Options Options  `json:"-"`
}

// Panel returns the panel with the given id.
func (d Dashboard) Panel(id string) (Panel, bool) {
	for _, p := range d.Panels {
		if p.ID == id {
			return p, true
		}
	}
	return Panel{}, false
}

// KPI returns the KPI with the given id.
func (d Dashboard) KPI(id string) (Scalar, bool) {
	for _, k := range d.KPIs {
		if k.ID == id {
			return k, true
		}
	}
	return Scalar{}, false
}

// Build computes every KPI and panel from t. Panels never fail: an empty
// table or a year without some column yields zero-filled panels.
func Build(t *core.Table, opts Options) Dashboard {
	if t == nil {
		t = core.EmptyTable()
	}
	if opts.CaseType == "" {
		opts.CaseType = core.CaseConfirmed
	}
	if opts.ComorbidityGroup == "" {
		opts.ComorbidityGroup = GroupConfirmed
	}

	confirmed := t.Filter(isConfirmed)
	deceased := t.Filter(core.Row.Died)
	selected := t.Filter(isClassification(opts.CaseType.Classification()))

	return Dashboard{
		Rows:    t.Len(),
		KPIs:    KPIs(t),
		Options: opts,
		Panels: []Panel{
			MainComorbidities(confirmed),
			AgeBySex(selected, opts.CaseType),
			AgeByPatientType(selected, opts.CaseType),
			AntigenByMonth(t),
			IntubationByMonth(t),
			ComorbidityShare(confirmed),
			AgeHistogram(t),
			ComorbidityGroup(confirmed, opts.ComorbidityGroup),
			ClassificationByMonth(t),
			IntubationByAge(t),
			DeceasedComorbidities(deceased, confirmed),
			AdmissionDelay(t),
		},
	}
}

func isConfirmed(r core.Row) bool {
	return r.Is(core.ColClassification, int(core.Confirmed))
}

func isClassification(c core.Classification) func(core.Row) bool {
	return func(r core.Row) bool { return r.Is(core.ColClassification, int(c)) }
}

func matrixOf(ct aggregate.CrossTab) *Matrix {
	m := &Matrix{Buckets: aggregate.Labels(ct.Buckets)}
	for _, c := range ct.Categories {
		m.Series = append(m.Series, Series{Code: c.Code, Label: c.Label, Counts: ct.Series(c.Code)})
	}
	return m
}
