package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"finarth/internal/log"
)

func TestHandlerAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Level: slog.LevelInfo, Component: log.ComponentHTTP, Output: &buf})
	m := NewMiddleware(logger, func(r *http.Request) string { return "198.51.100.1" })

	var seen string
	h := log.Middleware(logger)(m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusCreated)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/holdings", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("expected generated id, got %q", seen)
	}
	if rec.Header().Get(HeaderRequestID) != seen {
		t.Fatalf("response header %q does not match %q", rec.Header().Get(HeaderRequestID), seen)
	}
	if !strings.Contains(buf.String(), seen) {
		t.Fatalf("completion log should carry the request id: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "201") {
		t.Fatalf("completion log should carry the status: %s", buf.String())
	}
	if m.Metrics().TotalRequests != 1 {
		t.Fatalf("expected 1 request, got %d", m.Metrics().TotalRequests)
	}
}

func TestHandlerHonoursIncomingID(t *testing.T) {
	m := NewMiddleware(log.Discard(), nil)

	var seen string
	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "abc-123" {
		t.Fatalf("expected incoming id, got %q", seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "bad id with spaces")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "bad id with spaces" {
		t.Fatal("invalid ids must be replaced")
	}
}

func TestServerErrorsCounted(t *testing.T) {
	m := NewMiddleware(log.Discard(), nil)
	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if m.Metrics().ServerErrors != 1 {
		t.Fatalf("expected 1 server error, got %d", m.Metrics().ServerErrors)
	}
}
