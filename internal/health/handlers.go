package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Checker probes the backing stores the API cannot serve without.
type Checker interface {
	PingDB(ctx context.Context, timeout time.Duration) error
	PingRedis(ctx context.Context, timeout time.Duration) error
}

// Handler serves the liveness and readiness endpoints.
type Handler struct {
	Checker      Checker
	DBTimeout    time.Duration
	RedisTimeout time.Duration
}

// Live answers as long as the process is up; no dependencies are probed.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready pings Postgres and Redis and reports per-dependency status,
// returning 503 while any probe fails so the load balancer holds
// traffic back.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.Checker == nil {
		http.Error(w, "dependencies unavailable", http.StatusServiceUnavailable)
		return
	}
	ctx := r.Context()
	status := map[string]string{
		"db":    probe(ctx, h.Checker.PingDB, h.DBTimeout, 500*time.Millisecond),
		"redis": probe(ctx, h.Checker.PingRedis, h.RedisTimeout, 300*time.Millisecond),
	}

	code := http.StatusOK
	for _, result := range status {
		if result != "ok" {
			code = http.StatusServiceUnavailable
			break
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}

// probe runs one dependency ping, substituting the fallback timeout
// when the configured one is unset.
func probe(ctx context.Context, ping func(context.Context, time.Duration) error, timeout, fallback time.Duration) string {
	if timeout <= 0 {
		timeout = fallback
	}
	if err := ping(ctx, timeout); err != nil {
		return err.Error()
	}
	return "ok"
}
