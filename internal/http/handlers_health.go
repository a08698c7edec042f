package http

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks the database and reports optional integrations
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.deps.DB == nil {
		checks["database"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else if err := s.deps.DB.Ping(ctx); err != nil {
		checks["database"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	if s.deps.Advisor != nil {
		checks["advisor"] = "configured"
	} else {
		checks["advisor"] = "not_configured"
	}
	if s.deps.Market != nil {
		checks["market"] = map[string]any{
			"simulated":     s.deps.Market.Simulated(),
			"cache_entries": s.deps.Market.Cache().Size(),
		}
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.limiter.ActiveClients(),
	}

	NewJSONResponse().Status(httpStatus).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics writes counters in Prometheus text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	traceMetrics := s.tracer.Metrics()
	securityMetrics := s.detector.Metrics()

	sessionEntries := 0
	if s.deps.Sessions != nil {
		sessionEntries = s.deps.Sessions.Size()
	}
	quoteEntries := 0
	if s.deps.Market != nil {
		quoteEntries = s.deps.Market.Cache().Size()
	}

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}

	w.WriteHeader(http.StatusOK)
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)
	metric("http_last_request_duration_microseconds", "gauge", "Duration of the most recent request", traceMetrics.LastDurationMicros)
	metric("rate_limit_rejected_total", "counter", "Requests rejected by the rate limiter", s.limiter.Rejected())
	metric("rate_limit_active_clients", "gauge", "Clients tracked by the rate limiter", s.limiter.ActiveClients())
	metric("security_suspicious_requests_total", "counter", "Requests flagged as probes or scanners", securityMetrics.SuspiciousRequests)
	metric("session_cache_entries", "gauge", "Profiles held in the session cache", sessionEntries)
	metric("quote_cache_entries", "gauge", "Quotes held in the market cache", quoteEntries)
	metric("uptime_seconds", "gauge", "Seconds since the server started", int64(time.Since(s.started).Seconds()))
}
