package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeChecker struct {
	err error
}

func (f *fakeChecker) HealthCheck(context.Context) error {
	return f.err
}

func decodeHealth(t *testing.T, rec *httptest.ResponseRecorder) HealthResponse {
	t.Helper()
	var body HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	return body
}

func TestHealthEndpoint(t *testing.T) {
	h := NewHealthHandlers(HealthHandlersConfig{})

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := decodeHealth(t, rec)
	if body.Status != "healthy" {
		t.Errorf("Status = %q", body.Status)
	}
	if body.Checks["runtime"] != "ok" {
		t.Errorf("runtime check = %q", body.Checks["runtime"])
	}
}

func TestHealthEndpointMethodNotAllowed(t *testing.T) {
	h := NewHealthHandlers(HealthHandlersConfig{})

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodDelete, "/healthz", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestReadyEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		db, redis  error
		wantStatus int
		wantDB     string
		wantCache  string
	}{
		{"all healthy", nil, nil, http.StatusOK, "ok", "ok"},
		{"database down", errors.New("dial refused"), nil, http.StatusServiceUnavailable, "error", "ok"},
		{"cache down is degraded but ready", nil, errors.New("dial refused"), http.StatusOK, "ok", "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandlers(HealthHandlersConfig{
				DBChecker:    &fakeChecker{err: tt.db},
				RedisChecker: &fakeChecker{err: tt.redis},
			})

			rec := httptest.NewRecorder()
			h.Ready(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			body := decodeHealth(t, rec)
			if body.Checks["database"] != tt.wantDB {
				t.Errorf("database check = %q, want %q", body.Checks["database"], tt.wantDB)
			}
			if body.Checks["cache"] != tt.wantCache {
				t.Errorf("cache check = %q, want %q", body.Checks["cache"], tt.wantCache)
			}
		})
	}
}

func TestReadyEndpointWithoutCheckers(t *testing.T) {
	h := NewHealthHandlers(HealthHandlersConfig{})

	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with no checkers configured", rec.Code)
	}
}
