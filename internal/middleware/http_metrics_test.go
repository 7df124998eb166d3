package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/", "/"},
		{"/search", "/search"},
		{"/search/actions", "/search/actions"},
		{"/search/suggestions", "/search/suggestions"},
		{"/healthz", "/healthz"},
		{"/metrics", "/metrics"},
		{"/p/riverton", "/p/{portal}"},
		{"/p/riverton/search", "/p/{portal}/search"},
		{"/p/riverton/e/abc123", "/p/{portal}/e/abc123"},
		{"/unknown/route", "/unknown/route"},
	}

	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestHTTPMetricsRecordsRequests(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics()
	if err := m.Register(reg); err != nil {
		t.Fatal(err)
	}

	handler := HTTPMetrics(m)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/search?q=jazz", nil))

	mf := gatherMetric(t, reg, MetricHTTPRequestsTotal)
	if got := counterValue(mf, map[string]string{"method": "GET", "path": "/search", "status": "200"}); got != 1 {
		t.Errorf("http_requests_total{path=/search} = %v, want 1", got)
	}
}

func TestHTTPMetricsSkipsHealthEndpoints(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics()
	if err := m.Register(reg); err != nil {
		t.Fatal(err)
	}

	handler := HTTPMetrics(m)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/healthz", "/readyz"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if mf := gatherMetric(t, reg, MetricHTTPRequestsTotal); mf != nil && len(mf.GetMetric()) > 0 {
		t.Error("health probe requests were recorded in metrics")
	}
}
