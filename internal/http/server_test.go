package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"covidmx/internal/cache"
	"covidmx/internal/core"
	"covidmx/internal/dataset"
	"covidmx/internal/dataset/memstore"
	applog "covidmx/internal/log"
	"covidmx/internal/render"
)

func casesTable() *core.Table {
	return core.NewTable(
		[]string{"REGION", "ENTIDAD", "CLASIFICACION_FINAL", "SEXO", "TIPO_PACIENTE", "EDAD", "FECHA_INGRESO", "FECHA_SINTOMAS", "FECHA_DEF"},
		[][]any{
			{"Centro", "Puebla", "1", "1", "2", "61", "2020-04-03", "2020-04-01", "2020-04-10"},
			{"Centro", "Puebla", "1", "2", "1", "34", "2020-04-05", "2020-04-02", "9999-99-99"},
			{"Centro", "Morelos", "2", "2", "1", "27", "2020-05-01", "2020-04-29", "9999-99-99"},
			{"Sur", "Oaxaca", "1", "1", "2", "70", "2020-06-11", "2020-06-07", "9999-99-99"},
			{"Norte", "Sonora", "3", "1", "1", "45", "2020-06-20", "2020-06-18", "9999-99-99"},
		},
	)
}

type countingLoader struct {
	dataset.Loader
	calls int
}

func (c *countingLoader) Load(ctx context.Context, table string) (*core.Table, error) {
	c.calls++
	return c.Loader.Load(ctx, table)
}

func quietLogger(w io.Writer) *applog.Logger {
	return applog.New(applog.Config{Handler: slog.NewTextHandler(w, nil)})
}

func newTestServer(t *testing.T, loader dataset.Loader) *Server {
	t.Helper()
	catalog, err := dataset.NewCatalog("covid19_", []int{2020, 2021})
	require.NoError(t, err)
	tables := cache.NewYearCache[*core.Table](cache.NewLRUCache[*core.Table](4, time.Hour))
	svc := dataset.NewService(loader, catalog, tables, quietLogger(io.Discard))

	rc, err := render.LoadCatalog()
	require.NoError(t, err)
	renderer, err := render.NewRenderer(rc, language.English)
	require.NoError(t, err)

	srv, err := NewServer(Options{Addr: ":0", RateLimitPerMinute: 2}, svc, renderer, quietLogger(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func memLoader() *memstore.Store {
	store := memstore.New()
	store.Put("covid19_2020", casesTable())
	return store
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

type apiPayload struct {
	Year      int    `json:"year"`
	Region    string `json:"region"`
	Entity    string `json:"entity"`
	CaseType  string `json:"case_type"`
	Group     string `json:"group"`
	Cached    bool   `json:"cached"`
	Warning   string `json:"warning"`
	Dashboard struct {
		Rows int `json:"rows"`
		KPIs []struct {
			ID    string  `json:"id"`
			Value float64 `json:"value"`
		} `json:"kpis"`
		Panels []struct {
			ID string `json:"id"`
		} `json:"panels"`
	} `json:"dashboard"`
}

func getAPI(t *testing.T, srv *Server, query string) apiPayload {
	t.Helper()
	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/api/dashboard?"+query, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var p apiPayload
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	return p
}

func TestIndexPage(t *testing.T) {
	srv := newTestServer(t, memLoader())

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "<title>COVID-19 en México</title>")
	assert.Contains(t, body, `id="kpi-confirmados"`)
	assert.Contains(t, body, `id="panel-edad-sexo"`)
	assert.Contains(t, body, "data-chart=")
	assert.Contains(t, body, `<option value="2020" selected>2020</option>`)

	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	assert.Contains(t, rr.Header().Get("Content-Security-Policy"), "https://cdn.jsdelivr.net")
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
}

func TestUnknownPathIsNotFound(t *testing.T) {
	srv := newTestServer(t, memLoader())
	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/wp-admin", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDiagnosticMethodRejected(t *testing.T) {
	srv := newTestServer(t, memLoader())
	rr := serve(srv, httptest.NewRequest("TRACE", "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestDashboardPartialFiltersEntities(t *testing.T) {
	srv := newTestServer(t, memLoader())

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/ui/dashboard?year=2020&region=Centro", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.NotContains(t, body, "<html")
	assert.Contains(t, body, `<option value="Centro" selected>Centro</option>`)
	assert.Contains(t, body, `<option value="Puebla">Puebla</option>`)
	assert.NotContains(t, body, `<option value="Oaxaca">`, "entities outside the region are not offered")
}

func TestAPIDashboard(t *testing.T) {
	srv := newTestServer(t, memLoader())

	p := getAPI(t, srv, "year=2020&region=Centro&entity=Puebla&case_type=negativos&group=fallecidos")
	assert.Equal(t, 2020, p.Year)
	assert.Equal(t, "Centro", p.Region)
	assert.Equal(t, "Puebla", p.Entity)
	assert.Equal(t, "negativos", p.CaseType)
	assert.Equal(t, "fallecidos", p.Group)
	assert.Equal(t, 2, p.Dashboard.Rows)
	assert.Len(t, p.Dashboard.Panels, 12)
	assert.False(t, p.Cached)

	p = getAPI(t, srv, "year=2020")
	assert.True(t, p.Cached)
	assert.Equal(t, 5, p.Dashboard.Rows)
}

func TestAPIDashboardFallsBackOnInvalidInput(t *testing.T) {
	srv := newTestServer(t, memLoader())

	p := getAPI(t, srv, "year=abc&case_type=todos&group=<script>")
	assert.Equal(t, 2020, p.Year)
	assert.Equal(t, "confirmados", p.CaseType)
	assert.Equal(t, "confirmados", p.Group)

	p = getAPI(t, srv, "year=1999&region=Atlantis")
	assert.Equal(t, 2020, p.Year)
	assert.Empty(t, p.Region)
	assert.Equal(t, 5, p.Dashboard.Rows)

	p = getAPI(t, srv, "region=Sur&entity=Puebla")
	assert.Equal(t, "Sur", p.Region)
	assert.Empty(t, p.Entity, "entity outside the region is dropped")
	assert.Equal(t, 1, p.Dashboard.Rows)
}

func TestFailedYearShowsWarning(t *testing.T) {
	srv := newTestServer(t, memLoader())

	p := getAPI(t, srv, "year=2021")
	assert.Equal(t, 2021, p.Year)
	assert.Contains(t, p.Warning, "covid19_2021")
	assert.Equal(t, 0, p.Dashboard.Rows)

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/?year=2021", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `class="warning"`)
	assert.Contains(t, rr.Body.String(), "Sin datos para la selección.")
}

func TestRefreshRedirectsKeepingSelection(t *testing.T) {
	loader := &countingLoader{Loader: memLoader()}
	srv := newTestServer(t, loader)

	getAPI(t, srv, "year=2020")
	require.Equal(t, 1, loader.calls)

	form := url.Values{"year": {"2020"}, "region": {"Centro"}}
	req := httptest.NewRequest(http.MethodPost, "/refresh", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := serve(srv, req)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/?region=Centro&year=2020", rr.Header().Get("Location"))

	p := getAPI(t, srv, "year=2020")
	assert.False(t, p.Cached)
	assert.Equal(t, 2, loader.calls)
}

func TestRefreshHTMX(t *testing.T) {
	srv := newTestServer(t, memLoader())

	req := httptest.NewRequest(http.MethodPost, "/refresh", strings.NewReader("year=2020"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	rr := serve(srv, req)

	require.Equal(t, http.StatusOK, rr.Code)
	trigger := rr.Header().Get("HX-Trigger")
	assert.Contains(t, trigger, `"dashboard:refreshed"`)
	assert.Contains(t, trigger, `"type":"success"`)
	assert.Equal(t, "/?year=2020", rr.Header().Get("HX-Push-Url"))
	assert.Contains(t, rr.Body.String(), `id="kpi-confirmados"`)
}

func TestRefreshIsRateLimited(t *testing.T) {
	srv := newTestServer(t, memLoader())

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
		req.RemoteAddr = "203.0.113.9:5123"
		codes = append(codes, serve(srv, req).Code)
	}
	assert.Equal(t, []int{http.StatusSeeOther, http.StatusSeeOther, http.StatusTooManyRequests}, codes)

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code, "GET is never limited")
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, memLoader())
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := serve(srv, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}

	broken := newTestServer(t, memstore.NewFromDir(filepath.Join(t.TempDir(), "missing")))
	rr := serve(broken, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"not_ready"`)
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t, memLoader())
	serve(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "covidmx_requests_total 2")
	assert.Contains(t, rr.Body.String(), "covidmx_cached_years 0")
}

func TestGzip(t *testing.T) {
	srv := newTestServer(t, memLoader())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rr := serve(srv, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "gzip", rr.Header().Get("Content-Encoding"))
	assert.False(t, bytes.Contains(rr.Body.Bytes(), []byte("<html")))
}

func TestStaticAssets(t *testing.T) {
	srv := newTestServer(t, memLoader())
	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/static/app.js", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Cache-Control"), "max-age=3600")
}
