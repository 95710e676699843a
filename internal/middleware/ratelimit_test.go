package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter() (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter()
	rl.now = clock.now
	return rl, clock
}

func TestRateLimiterAllow(t *testing.T) {
	rl, _ := newTestLimiter()

	for i := 0; i < 5; i++ {
		if ok, _ := rl.Allow("key", 5, time.Minute); !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	ok, retry := rl.Allow("key", 5, time.Minute)
	if ok {
		t.Error("6th request should be denied")
	}
	if retry != time.Minute {
		t.Errorf("retry = %v, want 1m", retry)
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl, clock := newTestLimiter()

	for i := 0; i < 3; i++ {
		rl.Allow("key", 3, 10*time.Second)
	}

	clock.advance(4 * time.Second)
	ok, retry := rl.Allow("key", 3, 10*time.Second)
	if ok {
		t.Error("should be blocked within window")
	}
	if retry != 6*time.Second {
		t.Errorf("retry = %v, want 6s", retry)
	}

	clock.advance(6 * time.Second)
	if ok, _ := rl.Allow("key", 3, 10*time.Second); !ok {
		t.Error("should be allowed after window expires")
	}
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	rl, _ := newTestLimiter()

	rl.Allow("a", 1, time.Minute)
	if ok, _ := rl.Allow("a", 1, time.Minute); ok {
		t.Error("a should be limited")
	}
	if ok, _ := rl.Allow("b", 1, time.Minute); !ok {
		t.Error("b should not be affected by a")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl, clock := newTestLimiter()

	rl.Allow("expired", 5, 10*time.Second)
	clock.advance(15 * time.Second)
	rl.Allow("active", 5, time.Minute)

	rl.Cleanup()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.entries["expired"]; ok {
		t.Error("expired entry should have been cleaned up")
	}
	if _, ok := rl.entries["active"]; !ok {
		t.Error("active entry should still exist")
	}
}

func TestRunCleanupStopsOnCancel(t *testing.T) {
	rl := NewRateLimiter()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rl.RunCleanup(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunCleanup did not return after cancel")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl, _ := newTestLimiter()
	keyFunc := func(r *http.Request) string { return "test" }

	handler := RateLimit(rl, keyFunc, 2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("PUT", "/api/availability", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i+1, rec.Code, http.StatusOK)
		}
	}

	req := httptest.NewRequest("PUT", "/api/availability", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("3rd request: status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if got := rec.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want 60", got)
	}
}

func TestRealIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		remote string
		want   string
	}{
		{"remote addr", "", "10.0.0.5:4321", "10.0.0.5"},
		{"single forwarded", "203.0.113.7", "10.0.0.5:4321", "203.0.113.7"},
		{"forwarded chain", "203.0.113.7, 10.0.0.1", "10.0.0.5:4321", "203.0.113.7"},
		{"no port", "", "10.0.0.5", "10.0.0.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := RealIP(r); got != tt.want {
				t.Errorf("RealIP = %q, want %q", got, tt.want)
			}
		})
	}
}
