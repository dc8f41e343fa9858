package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	applog "divs/internal/log"
	"divs/internal/query"
	"divs/internal/records"
	"divs/internal/report"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

// handleReady reports ready once the record can be loaded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	status, httpStatus := "ready", http.StatusOK
	checks := map[string]any{}
	if snap, err := s.snapshot(r.Context()); err != nil {
		checks["record"] = fmt.Sprintf("failed: %v", err)
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["record"] = map[string]any{
			"origin":  snap.Origin,
			"version": snap.Version,
			"events":  len(snap.Events),
		}
	}
	checks["cache"] = s.reports.Stats()
	if s.rateLimiter != nil {
		checks["rate_limiter"] = map[string]any{"active_clients": s.rateLimiter.ActiveClients()}
	}

	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	stats := s.reports.Stats()
	metric("http_requests_total", "counter", "Total number of HTTP requests", s.trace.GetMetrics().TotalRequests)
	metric("report_cache_hits_total", "counter", "Report cache hits", stats.Hits)
	metric("report_cache_misses_total", "counter", "Report cache misses", stats.Misses)
	metric("report_cache_entries", "gauge", "Current report cache entries", stats.Size)
	metric("suspicious_requests_total", "counter", "Suspicious requests detected", s.detector.GetMetrics().SuspiciousRequests)
	if s.rateLimiter != nil {
		metric("rate_limit_rejected_total", "counter", "Requests refused by the rate limiter", s.rateLimiter.Rejected())
		metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", s.rateLimiter.ActiveClients())
	}
	metric("uptime_seconds", "gauge", "Application uptime in seconds", fmt.Sprintf("%.0f", time.Since(s.started).Seconds()))
}

// handlePivot renders the pivot page or its CSV download.
func (s *Server) handlePivot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	req, err := report.ParseRequest(q, s.scale)
	if err != nil {
		s.writeError(w, r, applog.OpBuild, err)
		return
	}
	wantCSV, err := parseCSVFlag(q)
	if err != nil {
		s.writeError(w, r, applog.OpBuild, err)
		return
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		s.writeError(w, r, applog.OpLoad, err)
		return
	}
	rep, hit, err := s.reports.GetOrBuild(snap.Version, req, func() (*report.Report, error) {
		return report.Build(snap.Events, req)
	})
	if err != nil {
		s.writeError(w, r, applog.OpBuild, err)
		return
	}
	s.events.LogReportBuilt(ctx, string(rep.Request.Bucket), string(rep.Request.Metric), len(rep.Grid.Columns()), hit)

	if wantCSV {
		s.writeCSV(w, r, rep.Table())
		return
	}
	s.render(ctx, w, r, "pivot.html", s.pivotView(rep, snap.Events, snap.Version))
}

// handleEvents lists the events behind a pivot cell, row or column.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	crit, err := query.FromValues(q)
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}
	sel, err := query.SelectorFromValues(q)
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}
	wantCSV, err := parseCSVFlag(q)
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		s.writeError(w, r, applog.OpLoad, err)
		return
	}
	filtered, err := query.Filter(snap.Events, crit)
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}
	events := records.SortByDate(query.Select(filtered, sel))

	if wantCSV {
		s.writeCSV(w, r, report.EventsTable(events, s.scale))
		return
	}
	s.render(ctx, w, r, "events.html", s.eventsView(events, crit, sel, snap.Version))
}

func (s *Server) writeCSV(w http.ResponseWriter, r *http.Request, t report.Table) {
	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, t); err != nil {
		s.writeError(w, r, applog.OpExport, err)
		return
	}
	CSVResponse(buf.Bytes()).Write(w)
}

// render executes into a buffer so a failing template never sends a
// half-written page.
func (s *Server) render(ctx context.Context, w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Template execution failed",
			applog.FieldError, err.Error(),
			applog.FieldOperation, applog.OpRender,
			"template", name)
		InternalServerError("template error").Write(w)
		return
	}
	NewResponse().ContentType("text/html; charset=utf-8").Body(buf.Bytes()).Write(w)
}
