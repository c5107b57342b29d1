package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogRequest(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	var seenID string
	h := NewLoggingMiddleware(zap.New(core)).LogRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	id := rec.Header().Get("X-Request-ID")
	if id == "" || id != seenID {
		t.Fatalf("request id header %q, context %q", id, seenID)
	}
	entries := logs.FilterMessage("Request completed").All()
	if len(entries) != 1 {
		t.Fatalf("logged %d entries", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusTeapot) || fields["bytes"] != int64(15) {
		t.Errorf("fields = %v", fields)
	}
}

func TestLogRequestKeepsIncomingID(t *testing.T) {
	h := NewLoggingMiddleware(zaptest.NewLogger(t)).LogRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "abc" {
		t.Fatalf("X-Request-ID = %q", got)
	}
}

func TestCollectMetricsUsesRouteTemplate(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsMiddleware(reg)

	r := mux.NewRouter()
	r.Use(m.CollectMetrics)
	r.HandleFunc("/api/readings/{sensor}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, p := range []string{"/api/readings/TP", "/api/readings/HM"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	got := testutil.ToFloat64(m.requestCounter.WithLabelValues(http.MethodGet, "/api/readings/{sensor}", "404"))
	if got != 2 {
		t.Fatalf("counter = %v, want 2", got)
	}
}

func TestEnableCORSPreflight(t *testing.T) {
	h := NewCORSMiddleware([]string{"https://farm.example"}, zaptest.NewLogger(t)).
		EnableCORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("preflight reached the handler")
		}))

	req := httptest.NewRequest(http.MethodOptions, "/api/status", nil)
	req.Header.Set("Origin", "https://farm.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://farm.example" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}
}
