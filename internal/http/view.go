package http

import (
	"context"
	"html/template"
	"strconv"

	"covidmx/internal/core"
	"covidmx/internal/dashboard"
	"covidmx/internal/dataset"
	applog "covidmx/internal/log"
)

type option struct {
	Value    string
	Label    string
	Selected bool
}

type kpiCard struct {
	ID    string
	Label string
	Value string
	Note  string
}

type statLine struct {
	Label string
	Value string
	Note  string
}

type panelView struct {
	ID    string
	Title string
	Empty bool
	// Chart is the Chart.js config; Value replaces it for scalar panels.
	Chart template.JS
	Value string
	Stats []statLine
}

// pageData feeds both the full page and the HTMX partial.
type pageData struct {
	Query       DashboardQuery
	QueryString string
	Years       []option
	Regions     []option
	Entities    []option
	CaseTypes   []option
	Groups      []option
	Warning     string
	Rows        int
	Cached      bool
	KPIs        []kpiCard
	Panels      []panelView
}

// selection is a query resolved against the loaded year.
type selection struct {
	query    DashboardQuery
	snapshot dataset.Snapshot
	board    dashboard.Dashboard
}

// resolve loads the year, drops filter values the year does not contain
// and computes the dashboard over the filtered rows.
func (s *Server) resolve(ctx context.Context, q DashboardQuery) (selection, error) {
	snap, err := s.datasets.Snapshot(ctx, q.Year)
	if err != nil {
		return selection{}, err
	}

	requested := q.Filter()
	f := requested.Normalize(snap.Table)
	if f != requested {
		applog.FromContext(ctx).WarnContext(ctx, "Selection not present in year, falling back",
			applog.FieldYear, q.Year,
			applog.FieldRegion, requested.Region,
			applog.FieldEntity, requested.Entity)
		q.Region, q.Entity = f.Region, f.Entity
	}

	return selection{
		query:    q,
		snapshot: snap,
		board:    dashboard.Build(f.Apply(snap.Table), q.Options()),
	}, nil
}

func (s *Server) page(ctx context.Context, sel selection) pageData {
	q := sel.query
	data := pageData{
		Query:       q,
		QueryString: q.Values().Encode(),
		Warning:     sel.snapshot.Warning,
		Rows:        sel.board.Rows,
		Cached:      sel.snapshot.Cached,
	}

	for _, y := range s.datasets.Catalog().Years() {
		data.Years = append(data.Years, option{Value: strconv.Itoa(y), Label: strconv.Itoa(y), Selected: y == q.Year})
	}
	data.Regions = stringOptions(dataset.Regions(sel.snapshot.Table), q.Region)
	data.Entities = stringOptions(dataset.Entities(sel.snapshot.Table, q.Region), q.Entity)

	caseType := sel.board.Options.CaseType
	for _, ct := range core.CaseTypes() {
		data.CaseTypes = append(data.CaseTypes, option{Value: string(ct), Label: ct.Label(), Selected: ct == caseType})
	}
	group := sel.board.Options.ComorbidityGroup
	for _, g := range dashboard.Groups() {
		data.Groups = append(data.Groups, option{Value: string(g), Label: g.Label(), Selected: g == group})
	}

	for _, k := range sel.board.KPIs {
		data.KPIs = append(data.KPIs, kpiCard{ID: k.ID, Label: k.Label, Value: s.renderer.Format(k), Note: k.Note})
	}
	for _, p := range sel.board.Panels {
		data.Panels = append(data.Panels, s.panelView(ctx, p))
	}
	return data
}

func (s *Server) panelView(ctx context.Context, p dashboard.Panel) panelView {
	v := panelView{ID: p.ID, Title: p.Title, Empty: p.Empty()}
	for _, st := range p.Stats {
		v.Stats = append(v.Stats, statLine{Label: st.Label, Value: s.renderer.Format(st), Note: st.Note})
	}
	if v.Empty {
		return v
	}
	if p.Shape == dashboard.ShapeScalar {
		v.Value = s.renderer.Format(*p.Scalar)
		return v
	}
	js, err := s.renderer.JSON(p)
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to render chart",
			"panel", p.ID,
			applog.FieldError, err.Error(),
			applog.FieldOperation, applog.OpRender)
		v.Empty = true
		return v
	}
	v.Chart = js
	return v
}

func stringOptions(values []string, selected string) []option {
	opts := make([]option, 0, len(values))
	for _, v := range values {
		opts = append(opts, option{Value: v, Label: v, Selected: v == selected})
	}
	return opts
}
