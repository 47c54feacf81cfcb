package limiter

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestMiddlewareRejectsOverBurst(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(0.001), 2)
	t.Cleanup(l.Close)

	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		r := httptest.NewRequest("GET", "/ws", nil)
		r.RemoteAddr = "198.51.100.7:5000"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusNoContent || codes[1] != http.StatusNoContent {
		t.Fatalf("expected first two requests through, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("expected third request limited, got %d", codes[2])
	}

	other := httptest.NewRequest("GET", "/ws", nil)
	other.RemoteAddr = "198.51.100.8:5000"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, other)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected separate bucket per ip, got %d", w.Code)
	}
}

func TestPruneDropsRefilledBuckets(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(1), 1)
	t.Cleanup(l.Close)

	l.GetLimiter("10.0.0.1").Allow()
	l.GetLimiter("10.0.0.2")

	removed, remaining := l.prune(time.Now())
	if removed != 1 || remaining != 1 {
		t.Fatalf("expected idle bucket pruned, got removed=%d remaining=%d", removed, remaining)
	}

	removed, remaining = l.prune(time.Now().Add(time.Minute))
	if removed != 1 || remaining != 0 {
		t.Fatalf("expected refilled bucket pruned, got removed=%d remaining=%d", removed, remaining)
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.1"
	if got := ClientIP(r); got != "192.0.2.1" {
		t.Fatalf("expected bare address kept, got %q", got)
	}
	r.RemoteAddr = ""
	if got := ClientIP(r); got != "unknown_ip" {
		t.Fatalf("expected unknown_ip, got %q", got)
	}
}
