package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimitConfigValidate(t *testing.T) {
	valid := RateLimitConfig{RequestsPerWindow: 10, WindowDuration: time.Minute}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	if err := (RateLimitConfig{RequestsPerWindow: 0, WindowDuration: time.Minute}).Validate(); err == nil {
		t.Error("zero RequestsPerWindow accepted")
	}
	if err := (RateLimitConfig{RequestsPerWindow: 10, WindowDuration: 0}).Validate(); err == nil {
		t.Error("zero WindowDuration accepted")
	}
}

func TestDefaultLimits(t *testing.T) {
	for name, cfg := range map[string]RateLimitConfig{
		"global":  DefaultGlobalLimit(),
		"search":  DefaultSearchLimit(),
		"suggest": DefaultSuggestLimit(),
	} {
		if err := cfg.Validate(); err != nil {
			t.Errorf("%s default invalid: %v", name, err)
		}
	}
}

func TestInMemoryStoreFixedWindow(t *testing.T) {
	store := NewInMemoryRateLimitStore()
	cfg := RateLimitConfig{RequestsPerWindow: 2, WindowDuration: time.Minute}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if allowed, _ := store.Allow(ctx, "client-a", cfg); !allowed {
			t.Fatalf("request %d denied within limit", i+1)
		}
	}

	allowed, retryAfter := store.Allow(ctx, "client-a", cfg)
	if allowed {
		t.Error("request over limit allowed")
	}
	if retryAfter <= 0 {
		t.Errorf("retryAfter = %d, want positive", retryAfter)
	}

	// Other keys have their own bucket.
	if allowed, _ := store.Allow(ctx, "client-b", cfg); !allowed {
		t.Error("unrelated key denied")
	}
}

func TestInMemoryStoreWindowExpiry(t *testing.T) {
	store := NewInMemoryRateLimitStore()
	cfg := RateLimitConfig{RequestsPerWindow: 1, WindowDuration: 20 * time.Millisecond}
	ctx := context.Background()

	store.Allow(ctx, "client", cfg)
	if allowed, _ := store.Allow(ctx, "client", cfg); allowed {
		t.Fatal("second request in window allowed")
	}

	time.Sleep(30 * time.Millisecond)
	if allowed, _ := store.Allow(ctx, "client", cfg); !allowed {
		t.Error("request denied after window expiry")
	}
}

func TestInMemoryStoreCleanup(t *testing.T) {
	store := NewInMemoryRateLimitStore()
	cfg := RateLimitConfig{RequestsPerWindow: 1, WindowDuration: 10 * time.Millisecond}
	ctx := context.Background()

	store.Allow(ctx, "stale", cfg)
	time.Sleep(20 * time.Millisecond)
	store.Allow(ctx, "fresh", RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute})

	store.Cleanup()

	store.mu.RLock()
	defer store.mu.RUnlock()
	if _, ok := store.buckets["stale"]; ok {
		t.Error("expired bucket survived cleanup")
	}
	if _, ok := store.buckets["fresh"]; !ok {
		t.Error("live bucket removed by cleanup")
	}
}

func TestIPKeyFunc(t *testing.T) {
	keyFunc := IPKeyFunc()

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"remote addr with port", "203.0.113.7:41234", nil, "203.0.113.7"},
		{"remote addr without port", "203.0.113.7", nil, "203.0.113.7"},
		{"ipv6 remote addr", "[2001:db8::1]:443", nil, "2001:db8::1"},
		{"x-forwarded-for single", "10.0.0.1:80", map[string]string{"X-Forwarded-For": "198.51.100.4"}, "198.51.100.4"},
		{"x-forwarded-for chain", "10.0.0.1:80", map[string]string{"X-Forwarded-For": " 198.51.100.4 , 10.0.0.2"}, "198.51.100.4"},
		{"x-real-ip", "10.0.0.1:80", map[string]string{"X-Real-IP": "198.51.100.9"}, "198.51.100.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := keyFunc(req); got != tt.want {
				t.Errorf("key = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	store := NewInMemoryRateLimitStore()
	cfg := RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute}
	handler := RateLimiter(store, cfg, IPKeyFunc())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	req.RemoteAddr = "203.0.113.7:1000"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
	if rec.Header().Get("X-RateLimit-Reset") == "" {
		t.Error("X-RateLimit-Reset header missing")
	}
}
