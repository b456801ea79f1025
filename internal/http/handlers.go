package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"fintrack/internal/chart"
	"fintrack/internal/core"
	"fintrack/internal/dashboard"
	"fintrack/internal/filter"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/source"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.metrics.started).Round(time.Second).String(),
	})
}

// handleReady checks that the backend answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status, code := "ready", http.StatusOK
	checks := map[string]string{"backend": "ok"}

	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			checks["backend"] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		}
	}
	if s.deps.Loader == nil {
		checks["dashboard"] = "not_configured"
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	tm := s.trace.GetMetrics()

	metric := func(name, help, typ string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, typ, name, value)
	}
	metric("http_requests_total", "Total number of HTTP requests", "counter", tm.TotalRequests)
	metric("http_server_errors_total", "Responses with a 5xx status", "counter", tm.ServerErrors)
	metric("dashboard_cycles_total", "Dashboard views served", "counter", atomic.LoadInt64(&s.metrics.cycles))
	metric("transactions_submitted_total", "Mutations accepted by the backend", "counter", atomic.LoadInt64(&s.metrics.submissions))
	metric("charts_rendered", "Charts in the registry", "gauge", len(s.deps.Charts.IDs()))
	metric("active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", s.limiter.ActiveClients())
	metric("uptime_seconds", "Application uptime in seconds", "gauge", fmt.Sprintf("%.0f", time.Since(s.metrics.started).Seconds()))
}

type dashboardResponse struct {
	*dashboard.View
	SkippedCount int                     `json:"skipped_count"`
	Status       dashboard.Status        `json:"status"`
	Charts       map[string]chart.Action `json:"charts"`
}

// handleDashboard runs a cycle for the query's filter and renders the charts.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	f := filter.FromValues(r.URL.Query())
	view, err := s.deps.Loader.Load(r.Context(), f)
	switch {
	case errors.Is(err, dashboard.ErrSuperseded):
		writeError(w, http.StatusConflict, "superseded by a newer request")
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, s.deps.Loader.Status().Message)
		return
	}
	s.recordCycle()

	actions := chart.RenderAll(s.deps.Charts, view.ChartInput())
	if actions[chart.IDTrends] == chart.Stale {
		s.logger.DebugContext(r.Context(), "Charts already drawn by a newer cycle",
			log.FieldOperation, log.OpRender, log.FieldCycle, view.Cycle)
	} else {
		s.logger.DebugContext(r.Context(), "Charts rendered",
			log.FieldOperation, log.OpRender, log.FieldCycle, view.Cycle, log.FieldFilter, f.Encode())
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		View:         view,
		SkippedCount: len(view.Skipped),
		Status:       s.deps.Loader.Status(),
		Charts:       actions,
	})
}

func (s *Server) handleChartList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"charts": s.deps.Charts.IDs()})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	inst, ok := s.deps.Charts.Get(id)
	if !ok {
		s.logger.DebugContext(r.Context(), "Chart requested before first render", log.FieldChartID, id)
		writeError(w, http.StatusNotFound, "chart not rendered: "+id)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

type categoriesResponse struct {
	Income  []string `json:"income,omitempty"`
	Expense []string `json:"expense,omitempty"`
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	typ := strings.TrimSpace(r.URL.Query().Get(filter.ParamType))
	tax := s.deps.Taxonomy
	if typ == "" || strings.EqualFold(typ, filter.All) {
		writeJSON(w, http.StatusOK, categoriesResponse{Income: tax.For(core.Income), Expense: tax.For(core.Expense)})
		return
	}
	kind, ok := core.ParseKind(typ)
	if !ok {
		writeError(w, http.StatusBadRequest, "type must be income, expense or all")
		return
	}
	var resp categoriesResponse
	if kind == core.Income {
		resp.Income = tax.For(kind)
	} else {
		resp.Expense = tax.For(kind)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Loader.Status())
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	d, err := decodeDraft(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.deps.Service.Create(r.Context(), d)
	s.writeMutation(w, r, res, services.MsgAdded, err)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	d, err := decodeDraft(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.deps.Service.Update(r.Context(), core.ID(mux.Vars(r)["id"]), d)
	s.writeMutation(w, r, res, services.MsgUpdated, err)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Service.Delete(r.Context(), core.ID(mux.Vars(r)["id"]))
	s.writeMutation(w, r, res, services.MsgDeleted, err)
}

// writeMutation maps a mutation outcome to a response: 422 for invalid
// input, 400 for a backend rejection, 501 for a read-only source and 502
// for anything else.
func (s *Server) writeMutation(w http.ResponseWriter, r *http.Request, res core.Result, success string, err error) {
	var verr *core.ValidationError
	switch {
	case err == nil:
		s.recordSubmission()
		res.Success = true
		if res.Message == "" {
			res.Message = success
		}
		writeJSON(w, http.StatusOK, res)
	case errors.As(err, &verr):
		writeValidation(w, verr)
	case errors.Is(err, source.ErrReadOnly):
		writeError(w, http.StatusNotImplemented, source.ErrReadOnly.Error())
	default:
		if rej, ok := source.IsRejected(err); ok {
			writeError(w, http.StatusBadRequest, rej.Message)
			return
		}
		s.logger.ErrorContext(r.Context(), "Backend unavailable", log.FieldError, err, log.FieldPath, r.URL.Path)
		writeError(w, http.StatusBadGateway, s.deps.Loader.Status().Message)
	}
}
