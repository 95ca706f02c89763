package http

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"covidmx/internal/dataset"
)

func TestQueryParser(t *testing.T) {
	catalog, err := dataset.NewCatalog("covid19_", []int{2021, 2020})
	if err != nil {
		t.Fatal(err)
	}
	p := NewQueryParser(catalog)

	tests := []struct {
		name     string
		raw      string
		want     DashboardQuery
		warnings int
	}{
		{"defaults", "", DashboardQuery{Year: 2021}, 0},
		{"full selection", "year=2020&region=Centro&entity=Nuevo+Le%C3%B3n&case_type=sospechosos&group=fallecidos",
			DashboardQuery{Year: 2020, Region: "Centro", Entity: "Nuevo León", CaseType: "sospechosos", Group: "fallecidos"}, 0},
		{"trims", "year=+2020+&region=+Sur+", DashboardQuery{Year: 2020, Region: "Sur"}, 0},
		{"bad year", "year=20x0", DashboardQuery{Year: 2021}, 1},
		{"year outside catalog", "year=2019", DashboardQuery{Year: 2021}, 1},
		{"bad case type", "case_type=todos", DashboardQuery{Year: 2021}, 1},
		{"bad group", "group=vivos", DashboardQuery{Year: 2021}, 1},
		{"markup in region drops entity too", "region=%3Cb%3E&entity=Puebla", DashboardQuery{Year: 2021}, 1},
		{"markup in entity", "region=Centro&entity=%22x%22", DashboardQuery{Year: 2021, Region: "Centro"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.raw)
			if err != nil {
				t.Fatal(err)
			}
			got, warnings := p.Parse(values)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
			if len(warnings) != tt.warnings {
				t.Errorf("warnings = %v, want %d", warnings, tt.warnings)
			}
		})
	}
}

func TestDashboardQueryValues(t *testing.T) {
	q := DashboardQuery{Year: 2020, Entity: "Puebla", CaseType: "negativos"}
	if got, want := q.Values().Encode(), "case_type=negativos&entity=Puebla&year=2020"; got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
	if f := q.Filter(); f.Region != "" || f.Entity != "Puebla" {
		t.Errorf("Filter() = %+v", f)
	}
}

func TestHTMXResponseBuilder(t *testing.T) {
	w := httptest.NewRecorder()
	NewHTMXResponse().
		TriggerDashboardRefreshed(2020).
		TriggerNotification(NotificationSuccess, "ok", 3000).
		Body([]byte("<p>x</p>")).
		Write(w)

	if w.Code != 200 {
		t.Errorf("status = %d", w.Code)
	}
	trigger := w.Header().Get("HX-Trigger")
	for _, part := range []string{`"dashboard:refreshed":{"year":2020}`, `"show-notification"`, `"type":"success"`} {
		if !strings.Contains(trigger, part) {
			t.Errorf("HX-Trigger missing %s: %s", part, trigger)
		}
	}

	w = httptest.NewRecorder()
	ErrorResponse(400, "<bad>").Write(w)
	if w.Code != 400 || w.Body.String() != `<div class="error">&lt;bad&gt;</div>` {
		t.Errorf("ErrorResponse = %d %q", w.Code, w.Body.String())
	}
}
