package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestErrorCodeHolder(t *testing.T) {
	ctx := withErrorCodeHolder(context.Background())

	// Writing through the holder is visible without propagating the
	// returned context, which is what lets handlers report codes back to
	// the logging middleware.
	SetErrorCode(ctx, "validation_error")
	if got := GetErrorCode(ctx); got != "validation_error" {
		t.Errorf("GetErrorCode = %q, want validation_error", got)
	}

	SetErrorCode(ctx, "not_found")
	if got := GetErrorCode(ctx); got != "not_found" {
		t.Errorf("GetErrorCode after overwrite = %q, want not_found", got)
	}
}

func TestSetErrorCodeWithoutHolder(t *testing.T) {
	base := context.Background()
	ctx := SetErrorCode(base, "internal_error")

	if got := GetErrorCode(ctx); got != "internal_error" {
		t.Errorf("GetErrorCode = %q, want internal_error", got)
	}
	if got := GetErrorCode(base); got != "" {
		t.Errorf("original context carries %q, want empty", got)
	}
}

func TestResponseWriterCapture(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusOK) // ignored
	if _, err := rw.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	if _, err := rw.Write([]byte(" world")); err != nil {
		t.Fatal(err)
	}

	if rw.statusCode != http.StatusNotFound {
		t.Errorf("statusCode = %d, want first write 404", rw.statusCode)
	}
	if rw.size != 11 {
		t.Errorf("size = %d, want 11", rw.size)
	}
}

type logLine struct {
	Level     string `json:"level"`
	Msg       string `json:"msg"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	Status    int    `json:"status"`
	ErrorCode string `json:"error_code"`
	RequestID string `json:"request_id"`
}

func captureLog(t *testing.T, handler http.HandlerFunc, req *http.Request) logLine {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	rec := httptest.NewRecorder()
	Logging(logger)(handler).ServeHTTP(rec, req)

	var line logLine
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log output is not JSON: %v: %s", err, buf.String())
	}
	return line
}

func TestLoggingSuccess(t *testing.T) {
	handler := func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
	line := captureLog(t, handler, httptest.NewRequest(http.MethodGet, "/search?q=jazz", nil))

	if line.Level != "INFO" {
		t.Errorf("level = %q, want INFO", line.Level)
	}
	if line.Method != http.MethodGet || line.Path != "/search" {
		t.Errorf("method/path = %q %q", line.Method, line.Path)
	}
	if line.Status != http.StatusOK {
		t.Errorf("status = %d", line.Status)
	}
	if line.ErrorCode != "" {
		t.Errorf("error_code = %q on a success, want empty", line.ErrorCode)
	}
}

func TestLoggingErrorCodePropagation(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		SetErrorCode(r.Context(), "rate_limit_exceeded")
		w.WriteHeader(http.StatusTooManyRequests)
	}
	line := captureLog(t, handler, httptest.NewRequest(http.MethodGet, "/search", nil))

	if line.Level != "WARN" {
		t.Errorf("level = %q for a 429, want WARN", line.Level)
	}
	if line.ErrorCode != "rate_limit_exceeded" {
		t.Errorf("error_code = %q, want rate_limit_exceeded", line.ErrorCode)
	}
}

func TestLoggingServerErrorLevel(t *testing.T) {
	handler := func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}
	line := captureLog(t, handler, httptest.NewRequest(http.MethodGet, "/search", nil))

	if line.Level != "ERROR" {
		t.Errorf("level = %q for a 500, want ERROR", line.Level)
	}
}

func TestLoggingIncludesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := RequestID(Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var line logLine
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatal(err)
	}
	if line.RequestID != "req-123" {
		t.Errorf("request_id = %q, want req-123", line.RequestID)
	}
}
