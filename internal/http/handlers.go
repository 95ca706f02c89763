package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"covidmx/internal/dashboard"
	applog "covidmx/internal/log"
)

const (
	dashboardTimeout = 3 * time.Minute
	readyTimeout     = 10 * time.Second
)

// parseQuery reads the selection and logs every value that fell back.
func (s *Server) parseQuery(r *http.Request) DashboardQuery {
	q, warnings := s.parser.Parse(r.URL.Query())
	if len(warnings) > 0 {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Invalid query parameters, using defaults",
			"warnings", warnings,
			applog.FieldOperation, applog.OpValidate)
	}
	return q
}

// handleIndex renders the full dashboard page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.renderDashboard(w, r, "index.html")
}

// handleDashboardPartial renders the dashboard fragment swapped in by htmx.
func (s *Server) handleDashboardPartial(w http.ResponseWriter, r *http.Request) {
	s.renderDashboard(w, r, "dashboard")
}

func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, name string) {
	ctx, cancel := context.WithTimeout(r.Context(), dashboardTimeout)
	defer cancel()

	sel, err := s.resolve(ctx, s.parseQuery(r))
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to resolve dashboard", applog.FieldError, err.Error())
		ErrorResponse(http.StatusInternalServerError, "No se pudo construir el tablero").Write(w)
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, s.page(ctx, sel)); err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Template execution failed",
			"template", name,
			applog.FieldError, err.Error(),
			applog.FieldOperation, applog.OpRender)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// dashboardResponse is the JSON payload of /api/dashboard.
type dashboardResponse struct {
	Year      int                 `json:"year"`
	Region    string              `json:"region,omitempty"`
	Entity    string              `json:"entity,omitempty"`
	CaseType  string              `json:"case_type"`
	Group     string              `json:"group"`
	Cached    bool                `json:"cached"`
	Warning   string              `json:"warning,omitempty"`
	Dashboard dashboard.Dashboard `json:"dashboard"`
}

// handleAPIDashboard returns the computed dashboard as JSON.
func (s *Server) handleAPIDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), dashboardTimeout)
	defer cancel()

	sel, err := s.resolve(ctx, s.parseQuery(r))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, dashboardResponse{
		Year:      sel.query.Year,
		Region:    sel.query.Region,
		Entity:    sel.query.Entity,
		CaseType:  string(sel.board.Options.CaseType),
		Group:     string(sel.board.Options.ComorbidityGroup),
		Cached:    sel.snapshot.Cached,
		Warning:   sel.snapshot.Warning,
		Dashboard: sel.board,
	})
}

// handleRefresh drops the table cache. Browsers are redirected to the page
// with the same selection; htmx gets the fresh partial and a trigger.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		ErrorResponse(http.StatusBadRequest, "Formato de solicitud no válido").Write(w)
		return
	}
	q, warnings := s.parser.Parse(r.Form)
	if len(warnings) > 0 {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Invalid refresh parameters, using defaults", "warnings", warnings)
	}

	s.datasets.Refresh(r.Context())

	if !isHTMX(r) {
		http.Redirect(w, r, "/?"+q.Values().Encode(), http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dashboardTimeout)
	defer cancel()
	sel, err := s.resolve(ctx, q)
	if err != nil {
		ErrorResponse(http.StatusInternalServerError, "No se pudo construir el tablero").Write(w)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "dashboard", s.page(ctx, sel)); err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Template execution failed", applog.FieldError, err.Error())
		ErrorResponse(http.StatusInternalServerError, "No se pudo construir el tablero").Write(w)
		return
	}

	b := NewHTMXResponse().
		TriggerDashboardRefreshed(q.Year).
		Header("HX-Push-Url", "/?"+q.Values().Encode()).
		Body(buf.Bytes())
	if sel.snapshot.Failed() {
		b.TriggerNotification(NotificationWarning, sel.snapshot.Warning, 5000)
	} else {
		b.TriggerNotification(NotificationSuccess, "Datos actualizados", 3000)
	}
	b.Write(w)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

// handleReady checks templates and the data store.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if err := s.datasets.Ready(ctx); err != nil {
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	checks["cache"] = map[string]any{"cached_years": s.datasets.CachedYears()}
	checks["rate_limiter"] = map[string]any{"active_clients": s.limiter.ActiveClients()}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides request and security counters in plain text.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.tracer.GetMetrics()
	securityMetrics := s.detector.GetMetrics()
	rateLimitMetrics := s.limiter.GetMetrics()

	fmt.Fprintf(w, "# HELP covidmx_requests_total Total HTTP requests\n")
	fmt.Fprintf(w, "covidmx_requests_total %d\n", traceMetrics.TotalRequests)
	fmt.Fprintf(w, "# HELP covidmx_server_errors_total HTTP responses with status >= 500\n")
	fmt.Fprintf(w, "covidmx_server_errors_total %d\n", traceMetrics.ServerErrors)
	fmt.Fprintf(w, "# HELP covidmx_suspicious_requests_total Requests flagged by the detector\n")
	fmt.Fprintf(w, "covidmx_suspicious_requests_total %d\n", securityMetrics.SuspiciousRequests)
	fmt.Fprintf(w, "covidmx_blocked_requests_total %d\n", securityMetrics.BlockedRequests)
	fmt.Fprintf(w, "# HELP covidmx_rate_limit_hits_total Requests rejected by the rate limiter\n")
	fmt.Fprintf(w, "covidmx_rate_limit_hits_total %d\n", rateLimitMetrics.TotalHits)
	fmt.Fprintf(w, "covidmx_rate_limit_clients %d\n", rateLimitMetrics.ClientCount)
	fmt.Fprintf(w, "# HELP covidmx_cached_years Years held in the table cache\n")
	fmt.Fprintf(w, "covidmx_cached_years %d\n", s.datasets.CachedYears())
	fmt.Fprintf(w, "covidmx_uptime_seconds %.0f\n", time.Since(s.started).Seconds())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
