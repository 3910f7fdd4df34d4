package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMiddlewareEnforcesPolicy(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	handler := Handler{
		Limiter: SlidingWindow{Client: client, Prefix: "univ:ratelimit:"},
		Policy: Policy{
			KeyFor: func(*http.Request) string { return "admin-ip" },
			Window: time.Second,
			Max:    1,
		},
	}

	guarded := handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/universities", nil)
	first := httptest.NewRecorder()
	guarded.ServeHTTP(first, req.Clone(req.Context()))
	if first.Code != http.StatusOK {
		t.Fatalf("expected first request admitted, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	guarded.ServeHTTP(second, req.Clone(req.Context()))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 once over the limit, got %d", second.Code)
	}
	if second.Header().Get("X-RateLimit-Limit") != "1" {
		t.Fatalf("unexpected limit header: %q", second.Header().Get("X-RateLimit-Limit"))
	}
	if second.Header().Get("Retry-After") == "" {
		t.Fatal("expected a Retry-After header on rejection")
	}
}

func TestMiddlewareFailsOpenOnLimiterError(t *testing.T) {
	// Port 0 is never listening, so every pipeline call errors out.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer func() { _ = client.Close() }()

	var sawErr error
	handler := Handler{
		Limiter: SlidingWindow{Client: client, Prefix: "univ:ratelimit:"},
		Policy: Policy{
			KeyFor: func(*http.Request) string { return "admin-ip" },
			Window: time.Second,
			Max:    1,
		},
		OnError: func(err error) { sawErr = err },
	}

	guarded := handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	guarded.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/universities", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected the request to pass through on limiter failure, got %d", rr.Code)
	}
	if sawErr == nil {
		t.Fatal("expected OnError to observe the limiter failure")
	}
}
