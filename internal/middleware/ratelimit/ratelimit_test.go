package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter_Allow(t *testing.T) {
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	rl := NewLimiter(Config{RequestsPerMinute: 2})
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("a") {
		t.Fatal("third request in the window should be limited")
	}
	if !rl.Allow("b") {
		t.Fatal("other clients have their own window")
	}

	now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Fatal("new window should reset the count")
	}

	now = now.Add(5 * time.Minute)
	if removed := rl.cleanup(); removed != 2 || rl.ActiveClients() != 0 {
		t.Errorf("cleanup removed %d, %d clients left", removed, rl.ActiveClients())
	}
}

func TestLimiter_Middleware(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	h := rl.Middleware(func(*http.Request) string { return "client" }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))

	do := func(method string) int {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(method, "/api/payments", nil))
		return rr.Code
	}

	if code := do(http.MethodPost); code != http.StatusOK {
		t.Fatalf("first POST = %d", code)
	}
	if code := do(http.MethodPost); code != http.StatusTooManyRequests {
		t.Fatalf("second POST = %d, want 429", code)
	}
	if code := do(http.MethodGet); code != http.StatusOK {
		t.Fatalf("GET should never be limited, got %d", code)
	}
}

func TestNewLimiter_Defaults(t *testing.T) {
	rl := NewLimiter(Config{})
	if rl.requestsPerMinute != 60 || rl.cleanupInterval != 5*time.Minute {
		t.Errorf("unexpected defaults: %d, %v", rl.requestsPerMinute, rl.cleanupInterval)
	}
}
